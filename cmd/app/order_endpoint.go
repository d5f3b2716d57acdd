package main

import (
	"net/http"
	"strconv"

	"github.com/jefthah/My-marketplace-sub000/internal/middleware"
	"github.com/jefthah/My-marketplace-sub000/internal/model"
	"github.com/jefthah/My-marketplace-sub000/internal/services"

	"github.com/labstack/echo/v4"
)

type createOrderRequest struct {
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	GuestEmail string `json:"guest_email" validate:"omitempty,email"`
	GuestName  string `json:"guest_name"`
}

func registerOrderRoutes(g *echo.Group, os *services.OrderService) {
	o := g.Group("/orders")

	// checkout is open to guests; a bearer token makes it a user order
	o.POST("", func(c echo.Context) error {
		var req createOrderRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
		}
		if err := c.Validate(&req); err != nil {
			return err
		}

		var owner model.Owner
		if cl := middleware.TryGetClaimsFromAuthHeader(c); cl != nil {
			owner = model.UserOwner(cl.UserID, cl.Email, req.GuestName)
		} else {
			if req.GuestEmail == "" {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_email is required for guest checkout"})
			}
			owner = model.GuestOwner(req.GuestEmail, req.GuestName)
		}

		order, err := os.Create(c.Request().Context(), services.CreateOrderInput{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Owner:     owner,
		})
		if err != nil {
			return errJSON(c, err)
		}

		return c.JSON(http.StatusCreated, order)
	})

	o.GET("/:id", func(c echo.Context) error {
		orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || orderID <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
		}

		order, err := os.Get(c.Request().Context(), orderID, actorFrom(c))
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(http.StatusOK, order)
	})

	o.POST("/:id/cancel", func(c echo.Context) error {
		orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || orderID <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
		}

		if err := os.Cancel(c.Request().Context(), orderID, actorFrom(c)); err != nil {
			return errJSON(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "cancelled"})
	})

	o.Use(middleware.JWTMiddleware())

	o.GET("", func(c echo.Context) error {
		orders, err := os.ListForUser(c.Request().Context(), actorFrom(c))
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(http.StatusOK, orders)
	})
}
