package main

import (
	"errors"
	"net/http"

	"github.com/jefthah/My-marketplace-sub000/internal/middleware"
	"github.com/jefthah/My-marketplace-sub000/internal/services"

	"github.com/labstack/echo/v4"
)

// actorFrom builds the requester identity. A valid bearer token wins; guests
// fall back to the email they supplied on the request.
func actorFrom(c echo.Context) services.Actor {
	if cl := middleware.TryGetClaimsFromAuthHeader(c); cl != nil {
		return services.Actor{UserID: cl.UserID, Email: cl.Email, Admin: cl.Role == "admin"}
	}
	return services.Actor{Email: c.QueryParam("email")}
}

func errJSON(c echo.Context, err error) error {
	return c.JSON(httpStatus(err), echo.Map{"error": err.Error()})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrSignature):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrExpired):
		return http.StatusGone
	case errors.Is(err, services.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
