package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evenup/evenup/internal/auth"
	"github.com/evenup/evenup/internal/middleware"
	"github.com/evenup/evenup/internal/service"
	"github.com/evenup/evenup/internal/storage/sqlite"
	"github.com/evenup/evenup/pkg/logging"
	"github.com/evenup/evenup/pkg/mail"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration, using fallback", "key", key, "value", value)
		return fallback
	}
	return d
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/evenup.db")
	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage initialized", "database", dbPath)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET must be set")
		os.Exit(1)
	}
	jwtManager := auth.NewJWTManager(jwtSecret,
		getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
	)

	// Revocations live in Redis when one is configured so replicas share
	// them; otherwise the sqlite store keeps them locally.
	var blacklist auth.Blacklist = store
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisBlacklist, err := auth.NewRedisBlacklist(context.Background(), addr, os.Getenv("REDIS_PASSWORD"))
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		blacklist = redisBlacklist
		slog.Info("token blacklist backed by redis", "addr", addr)
	}

	var mailer mail.Sender = mail.LogSender{}
	if smtpAddr := os.Getenv("SMTP_ADDR"); smtpAddr != "" {
		mailer = mail.NewSMTPSender(
			smtpAddr,
			getEnv("SMTP_FROM", "noreply@evenup.local"),
			os.Getenv("SMTP_USERNAME"),
			os.Getenv("SMTP_PASSWORD"),
			getEnv("SMTP_HOST", smtpAddr),
		)
		slog.Info("mail delivery via SMTP", "addr", smtpAddr)
	}

	authenticator := auth.NewPasswordAuthenticator(store)
	requireAuth := middleware.RequireAuth(jwtManager)

	app := fiber.New(fiber.Config{
		AppName:               "evenup",
		DisableStartupMessage: true,
	})
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Metrics())
	app.Use(cors.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	service.NewAuthService(store, authenticator, jwtManager, blacklist, mailer).RegisterRoutes(api, requireAuth)
	service.NewGroupService(store).RegisterRoutes(api, requireAuth)
	service.NewExpenseService(store).RegisterRoutes(api, requireAuth)
	service.NewBillService(store).RegisterRoutes(api, requireAuth)

	addr := ":" + getEnv("PORT", "8080")
	slog.Info("server starting", "address", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
