package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mindhaven/backend/docs"
	"github.com/mindhaven/backend/internal/config"
	"github.com/mindhaven/backend/internal/database"
	"github.com/mindhaven/backend/internal/handlers"
	mW "github.com/mindhaven/backend/internal/middleware"
	"github.com/mindhaven/backend/internal/services"
	"github.com/mindhaven/backend/internal/store"
)

// @title MindHaven Ledger API
// @version 1.0
// @description Wallet, earnings, and payment reconciliation service for the MindHaven counseling platform
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	config.Load()

	docs.SwaggerInfo.Title = "MindHaven Ledger API"
	docs.SwaggerInfo.Description = "Wallet, earnings, and payment reconciliation service"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	st := store.NewPostgres(db)
	currency := viper.GetString("payments.currency")

	ledgerService := services.NewLedgerService(st, redisClient, currency)
	reconcilerService := services.NewReconcilerService(st, ledgerService,
		viper.GetString("payments.webhook_secret"))
	paymentService := services.NewPaymentService(st,
		viper.GetString("payments.checkout_url"), currency)

	walletHandler := handlers.NewWalletHandler(ledgerService)
	counselorHandler := handlers.NewCounselorHandler(ledgerService)
	webhookHandler := handlers.NewWebhookHandler(reconcilerService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Gateway callbacks authenticate with an HMAC signature, not a
		// bearer token.
		r.Post("/webhooks/cashfree", webhookHandler.HandleCashfree)

		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Post("/wallet/transactions", walletHandler.ProcessTransaction)
			r.Get("/wallet/balance", walletHandler.GetBalance)
			r.Get("/wallet/entries", walletHandler.GetEntries)

			r.Post("/payments/initiate", paymentHandler.InitiatePayment)
			r.Get("/payments/orders/{orderId}", paymentHandler.GetOrder)

			r.Group(func(r chi.Router) {
				r.Use(mW.RequireCounselor)

				r.Post("/counselors/{counselorId}/earnings", counselorHandler.CreateEarnings)
				r.Get("/counselors/{counselorId}/earnings", counselorHandler.GetEarnings)
				r.Get("/counselors/{counselorId}/earnings/entries", counselorHandler.GetEarningEntries)
			})
		})
	})

	port := viper.GetString("server.port")

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.WithField("port", port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Fatal("server forced to shutdown")
	}

	logrus.Info("server stopped")
}
