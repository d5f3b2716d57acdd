package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jefthah/My-marketplace-sub000/external/abstractapi"
	"github.com/jefthah/My-marketplace-sub000/external/midtrans"
	"github.com/jefthah/My-marketplace-sub000/external/resend"

	"github.com/jefthah/My-marketplace-sub000/internal/config"
	"github.com/jefthah/My-marketplace-sub000/internal/db"
	"github.com/jefthah/My-marketplace-sub000/internal/middleware"
	"github.com/jefthah/My-marketplace-sub000/internal/repository"
	"github.com/jefthah/My-marketplace-sub000/internal/services"
	"github.com/jefthah/My-marketplace-sub000/internal/validation"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	middleware.SetSecret(cfg.JWTSecret)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	// ======================
	// INFRA
	// ======================
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Error("schema setup failed", "err", err)
		os.Exit(1)
	}

	// ======================
	// EXTERNALS
	// ======================
	gateway := midtrans.NewGateway(cfg.MidtransServerKey, cfg.MidtransProduction)

	var emailValidator services.EmailValidator
	if cfg.UseEmailReputation {
		emailValidator, err = abstractapi.NewAbstractReputationValidator()
		if err != nil {
			logger.Error("email reputation setup failed", "err", err)
			os.Exit(1)
		}
	} else {
		emailValidator = services.NewLocalValidator()
	}

	mailer, err := resend.NewResendMailer(cfg.MailFrom)
	if err != nil {
		logger.Error("mailer setup failed", "err", err)
		os.Exit(1)
	}

	notifier := services.NewNotifyDispatcher(mailer, logger, cfg.NotifyWorkers, cfg.NotifyBuffer)
	defer notifier.Close()

	// ======================
	// REPOSITORIES
	// ======================
	orderRepo := repository.NewOrderRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	payoutRepo := repository.NewPayoutRepository(pool)
	productRepo := repository.NewProductRepository(pool)

	// ======================
	// SERVICES
	// ======================
	orderSvc := services.NewOrderService(orderRepo, paymentRepo, productRepo, emailValidator, logger)
	paymentSvc := services.NewPaymentService(paymentRepo, orderRepo, payoutRepo, gateway, notifier, logger)
	payoutSvc := services.NewPayoutService(payoutRepo, logger)

	// periodic sweep; the admin endpoint can force one at any time
	go func() {
		t := time.NewTicker(cfg.SweepInterval)
		defer t.Stop()
		for range t.C {
			if _, err := paymentSvc.SweepExpired(ctx, time.Now()); err != nil {
				logger.Error("expiry sweep failed", "err", err)
			}
		}
	}()

	// ======================
	// ECHO
	// ======================
	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	api := e.Group("/marketplace")

	// ======================
	// ROUTES (ONLY REGISTRATION)
	// ======================
	registerOrderRoutes(api, orderSvc)
	registerPaymentRoutes(api, paymentSvc)
	registerPayoutRoutes(api, payoutSvc)

	// ======================
	// SERVER
	// ======================
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
