package main

import (
	"net/http"

	"github.com/jefthah/My-marketplace-sub000/internal/middleware"
	"github.com/jefthah/My-marketplace-sub000/internal/services"

	"github.com/labstack/echo/v4"
)

type refundRequest struct {
	Reason string `json:"reason" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
}

func registerPayoutRoutes(g *echo.Group, ps *services.PayoutService) {
	p := g.Group("/payouts")

	// refund requests come from buyers: users by token, guests by the email
	// they purchased with
	p.POST("/:transactionId/refund", func(c echo.Context) error {
		var req refundRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
		}
		if err := c.Validate(&req); err != nil {
			return err
		}

		actor := actorFrom(c)
		if actor.UserID == 0 && actor.Email == "" {
			actor.Email = req.Email
		}

		payout, err := ps.RequestRefund(c.Request().Context(), c.Param("transactionId"), actor, req.Reason)
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(http.StatusOK, payout)
	})

	// ============================
	// OPERATOR ROUTES
	// ============================
	p.Use(middleware.JWTMiddleware())

	p.GET("", middleware.AdminOnly(func(c echo.Context) error {
		payouts, err := ps.List(c.Request().Context())
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(http.StatusOK, payouts)
	}))

	p.GET("/stats", middleware.AdminOnly(func(c echo.Context) error {
		stats, err := ps.Stats(c.Request().Context())
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(http.StatusOK, stats)
	}))
}
