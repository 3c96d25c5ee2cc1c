package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-api-otp/internal/application/passcode"
	"github.com/go-api-otp/internal/config"
	"github.com/go-api-otp/internal/domain"
	"github.com/go-api-otp/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-api-otp/internal/infrastructure/jwt"
	"github.com/go-api-otp/internal/infrastructure/memory"
	"github.com/go-api-otp/internal/infrastructure/queue"
	redisinfra "github.com/go-api-otp/internal/infrastructure/redis"
	"github.com/go-api-otp/internal/infrastructure/smtp"
	"github.com/go-api-otp/internal/infrastructure/sns"
	"github.com/go-api-otp/internal/pkg/otp"
	transporthttp "github.com/go-api-otp/internal/transport/http"
	appmiddleware "github.com/go-api-otp/internal/transport/http/middleware"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg.AppEnv))
	if envErr != nil {
		slog.Info("no .env file found, reading from environment")
	}

	if err := run(cfg); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	mode, err := domain.ParseCharacterMode(cfg.OTP.VerifyEmailMode)
	if err != nil {
		return err
	}
	policy := domain.Policy{Length: cfg.OTP.VerifyEmailLength, Mode: mode}
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("verify-email passcode policy: %w", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	kv, closeKV, err := newPasscodeKV(ctx, cfg, dynamoClient)
	if err != nil {
		return err
	}
	defer closeKV()

	delivery, closeDelivery, err := newDelivery(ctx, cfg)
	if err != nil {
		return err
	}

	// JWT provider (optional; verification still succeeds without a token).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		slog.Warn("JWT provider not available", "err", err)
	}

	clientIPs, err := appmiddleware.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	// 5 requests/second, burst of 10, applied to the registration endpoints.
	limiter := appmiddleware.NewRateLimiter(rate.Limit(5), 10, clientIPs)
	defer limiter.Stop()

	lifetime := time.Duration(cfg.OTP.ExpireMinutes) * time.Minute
	deps := &transporthttp.Deps{
		AccountRepo: dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Users),
		Passcodes:   passcode.NewStore(kv, domain.PurposeVerifyEmail, lifetime, nil),
		Generator:   otp.NewGenerator(policy),
		Delivery:    delivery,
		JWTProvider: jwtProvider,
		RateLimiter: limiter,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      otelhttp.NewHandler(transporthttp.NewRouter(cfg, deps), "otp-api"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.AppPort,
			"env", cfg.AppEnv,
			"cache", cfg.CacheDriver,
			"delivery", cfg.DeliveryDriver,
			"otp_mode", policy.Mode.String(),
			"otp_length", policy.Length,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	if err := closeDelivery(shutdownCtx); err != nil {
		slog.Warn("delivery queue not drained", "err", err)
	}
	slog.Info("server stopped")
	return nil
}

// newPasscodeKV selects the passcode cache backend named by CACHE_DRIVER.
func newPasscodeKV(ctx context.Context, cfg *config.Config, dynamoClient *dynamodb.Client) (passcode.KV, func(), error) {
	switch cfg.CacheDriver {
	case "redis":
		client := redisinfra.NewClient(cfg)
		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("redis not reachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		return redisinfra.NewKV(client), func() { _ = client.Close() }, nil
	case "dynamo":
		return dynamo.NewPasscodeKV(dynamoClient, cfg.DynamoTables.Passcodes), func() {}, nil
	case "memory":
		slog.Warn("using in-process passcode cache; do not run more than one instance")
		return memory.NewKV(nil), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown CACHE_DRIVER %q", cfg.CacheDriver)
}

// newDelivery selects the passcode email transport named by DELIVERY_DRIVER.
func newDelivery(ctx context.Context, cfg *config.Config) (transporthttp.DeliveryQueue, func(context.Context) error, error) {
	switch cfg.DeliveryDriver {
	case "smtp":
		d := queue.NewDispatcher(smtp.NewMailer(cfg), cfg.DeliveryWorkers, cfg.DeliveryBuffer)
		return d, d.Close, nil
	case "sns":
		awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg, cfg.SNSRegion)
		if err != nil {
			return nil, nil, err
		}
		if cfg.AWSEndpointURL != "" {
			awsCfg.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
		p, err := sns.NewPublisher(awsCfg, cfg.SNSDeliveryTopicARN)
		if err != nil {
			return nil, nil, err
		}
		return p, func(context.Context) error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown DELIVERY_DRIVER %q", cfg.DeliveryDriver)
}
