package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Ubiquity89/QuikKart/handlers"
	"github.com/Ubiquity89/QuikKart/internal/address"
	"github.com/Ubiquity89/QuikKart/internal/auth"
	"github.com/Ubiquity89/QuikKart/internal/cart"
	"github.com/Ubiquity89/QuikKart/internal/categories"
	"github.com/Ubiquity89/QuikKart/internal/consul"
	"github.com/Ubiquity89/QuikKart/internal/orders"
	"github.com/Ubiquity89/QuikKart/internal/payments"
	"github.com/Ubiquity89/QuikKart/internal/products"
	"github.com/Ubiquity89/QuikKart/internal/stores/kafka"
	"github.com/Ubiquity89/QuikKart/internal/stores/postgres"
	"github.com/Ubiquity89/QuikKart/internal/users"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", slog.String("ERROR", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// .env is a development convenience; in deployment the environment is set
	// by the platform.
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	keys, err := auth.NewKeys(os.Getenv("ACCESS_TOKEN_SECRET"), os.Getenv("REFRESH_TOKEN_SECRET"))
	if err != nil {
		return fmt.Errorf("loading auth keys: %w", err)
	}

	db, err := postgres.OpenDB()
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		return err
	}

	orderConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}
	cartConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	userConf, err := users.NewConf(db)
	if err != nil {
		return err
	}
	productConf, err := products.NewConf(db)
	if err != nil {
		return err
	}
	categoryConf, err := categories.NewConf(db)
	if err != nil {
		return err
	}
	addressConf, err := address.NewConf(db)
	if err != nil {
		return err
	}

	gateway, err := payments.NewStripe(os.Getenv("STRIPE_SECRET_KEY"), os.Getenv("FRONTEND_URL"))
	if err != nil {
		return fmt.Errorf("configuring stripe: %w", err)
	}
	// A missing webhook secret is a hard failure: without signature checks the
	// webhook endpoint would accept forged order events.
	verifier, err := payments.NewWebhookVerifier(os.Getenv("STRIPE_WEBHOOK_SECRET"))
	if err != nil {
		return fmt.Errorf("configuring webhook verifier: %w", err)
	}

	cfg := handlers.Config{
		Keys:       keys,
		Orders:     orderConf,
		Cart:       cartConf,
		Users:      userConf,
		Products:   productConf,
		Categories: categoryConf,
		Addresses:  addressConf,
		Payments:   gateway,
		Webhook:    verifier,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaConf, err := kafka.NewConf(strings.Split(brokers, ","))
		if err != nil {
			return fmt.Errorf("connecting to kafka: %w", err)
		}
		defer kafkaConf.Close()
		cfg.Producer = kafkaConf
	} else {
		slog.Warn("KAFKA_BROKERS not set, order events disabled")
	}

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
	}

	if os.Getenv("CONSUL_HTTP_ADDR") != "" {
		client, err := consul.NewClient()
		if err != nil {
			return err
		}
		serviceID := "quikkart-api-" + uuid.NewString()
		host := os.Getenv("SERVICE_HOST")
		if host == "" {
			host = "localhost"
		}
		if err := consul.RegisterService(client, "quikkart-api", serviceID, host, port); err != nil {
			return err
		}
		defer func() {
			if err := consul.DeregisterService(client, serviceID); err != nil {
				slog.Error("consul deregistration failed", slog.String("ERROR", err.Error()))
			}
		}()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handlers.API(cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", slog.Int("Port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
	}
	return nil
}
