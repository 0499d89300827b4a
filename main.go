// main.go - Entry point for the user management backend

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-user-backend/auth"
	"go-user-backend/config"
	"go-user-backend/database"
	"go-user-backend/events"
	"go-user-backend/handlers"
	"go-user-backend/mailer"
	"go-user-backend/metrics"
	"go-user-backend/ratelimit"
	"go-user-backend/routes"
	"go-user-backend/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

func main() {
	// STEP 1: Load and check configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	// STEP 2: Establish connections
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("DB connection error: ", err)
	}

	hasher := auth.NewHasher(cfg.BcryptCost, cfg.HashConcurrency)
	if err := database.SeedAdmin(context.Background(), db, cfg, hasher); err != nil {
		log.Fatal("Admin seeding error: ", err)
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
		Issuer: cfg.JWTIssuer,
	})
	if err != nil {
		log.Fatal("Token manager error: ", err)
	}

	var limiter *ratelimit.LoginLimiter
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		limiter = ratelimit.NewLoginLimiter(redisClient, ratelimit.Config{
			MaxAttempts: cfg.LoginMaxAttempts,
			Cooldown:    cfg.LoginCooldown,
		})
		log.Printf("Login rate limiting enabled (redis %s)", cfg.RedisAddr)
	}

	publisher, err := events.New(cfg)
	if err != nil {
		log.Fatal("Event publisher error: ", err)
	}
	dispatcher := events.NewDispatcher(publisher, 256)

	mail, err := mailer.New(cfg)
	if err != nil {
		log.Fatal("Mailer error: ", err)
	}

	m, err := metrics.New(otel.Meter("go-user-backend"), dispatcher.Dropped)
	if err != nil {
		log.Fatal("Metrics error: ", err)
	}

	// STEP 3: Create the router
	router := routes.Setup(handlers.Deps{
		Config:  cfg,
		Store:   store.New(db),
		Hasher:  hasher,
		Tokens:  tokens,
		Limiter: limiter,
		Events:  dispatcher,
		Mailer:  mail,
		Metrics: m,
	})

	// STEP 4: Serve until interrupted
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Server started on :%s (%s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Println("Server forced to shutdown:", err)
	}

	// STEP 5: Release connections
	if err := dispatcher.Close(); err != nil {
		log.Println("Error closing event publisher:", err)
	}
	if err := m.Close(); err != nil {
		log.Println("Error unregistering metrics:", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Println("Error closing redis:", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Println("Error closing database:", err)
		}
	}
	log.Println("Server exited")
}
