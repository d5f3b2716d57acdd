package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jefthah/My-marketplace-sub000/internal/middleware"
	"github.com/jefthah/My-marketplace-sub000/internal/model"
	"github.com/jefthah/My-marketplace-sub000/internal/services"

	"github.com/labstack/echo/v4"
)

func registerPaymentRoutes(g *echo.Group, ps *services.PaymentService) {
	p := g.Group("/payments")

	// ============================
	// GATEWAY NOTIFICATION
	// (NO JWT, must be public)
	// ============================
	p.POST("/notification", func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable payload"})
		}

		var n model.GatewayNotification
		if err := json.Unmarshal(body, &n); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
		}

		if err := ps.HandleNotification(c.Request().Context(), n, body); err != nil {
			switch {
			case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrSignature):
				return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
			case errors.Is(err, services.ErrNotFound):
				return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
			default:
				// withhold the ack so the gateway redelivers; the handler is
				// idempotent so the replay is safe
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "temporary failure"})
			}
		}

		return c.JSON(http.StatusOK, echo.Map{"status": "success"})
	})

	// ============================
	// PAYMENT LIFECYCLE
	// (public: guests authenticate by email)
	// ============================
	p.POST("/:orderId", func(c echo.Context) error {
		orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
		if err != nil || orderID <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
		}

		payment, err := ps.CreateForOrder(c.Request().Context(), orderID, actorFrom(c))
		if err != nil {
			return errJSON(c, err)
		}

		return c.JSON(http.StatusCreated, echo.Map{
			"payment_id":     payment.PaymentID,
			"transaction_id": payment.TransactionID,
			"snap_token":     payment.SnapToken,
			"redirect_url":   payment.RedirectURL,
		})
	})

	p.GET("/:id", func(c echo.Context) error {
		paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || paymentID <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
		}

		payment, err := ps.Get(c.Request().Context(), paymentID, actorFrom(c))
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(http.StatusOK, payment)
	})

	// pull-based reconciliation for lost webhooks
	p.GET("/:id/status", func(c echo.Context) error {
		paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || paymentID <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
		}

		payment, err := ps.Poll(c.Request().Context(), paymentID, actorFrom(c))
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(http.StatusOK, payment)
	})

	p.POST("/retry/:orderId", func(c echo.Context) error {
		orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
		if err != nil || orderID <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
		}

		payment, err := ps.Retry(c.Request().Context(), orderID, actorFrom(c))
		if err != nil {
			return errJSON(c, err)
		}

		return c.JSON(http.StatusCreated, echo.Map{
			"payment_id":     payment.PaymentID,
			"transaction_id": payment.TransactionID,
			"snap_token":     payment.SnapToken,
			"redirect_url":   payment.RedirectURL,
		})
	})

	// ============================
	// ACCOUNT + OPERATOR ROUTES
	// (JWT protected)
	// ============================
	p.Use(middleware.JWTMiddleware())

	p.GET("", func(c echo.Context) error {
		payments, err := ps.ListForUser(c.Request().Context(), actorFrom(c))
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(http.StatusOK, payments)
	})

	p.POST("/sweep", middleware.AdminOnly(func(c echo.Context) error {
		count, err := ps.SweepExpired(c.Request().Context(), time.Now())
		if err != nil {
			return errJSON(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"expired": count})
	}))
}
