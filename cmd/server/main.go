package main

import (
	"context"                            // Context for shutdown and Redis ping
	"errors"                             // Error comparison
	"finance_tracker/internal/analytics" // Aggregation engine
	"finance_tracker/internal/api"       // Custom package for API handlers
	"finance_tracker/internal/config"    // Custom package for configuration
	"finance_tracker/internal/db"        // Database connection and migration
	"finance_tracker/internal/store"     // Persistence layer
	"finance_tracker/internal/utils"     // JWT issuer
	"net/http"                           // HTTP server
	"os"                                 // Signals
	"os/signal"                          // Signal notification
	"syscall"                            // SIGTERM
	"time"                               // Shutdown timeout

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"golang.org/x/sync/errgroup"   // Server lifecycle
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	setupLogger(cfg)

	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET must be set")
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(gdb); err != nil {
			logrus.Fatalf("migration failed: %v", err)
		}
	}

	// Redis is optional; without it every read goes to the database
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ledger := store.NewLedger(gdb)
	router := api.NewRouter(api.Deps{
		DB:          gdb,
		Users:       store.NewUsers(gdb),
		Ledger:      ledger,
		Budgets:     store.NewBudgets(gdb),
		Analytics:   analytics.NewEngine(ledger),
		Tokens:      utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Redis:       redisClient,
		CacheTTL:    cfg.CacheTTL,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithFields(logrus.Fields{"port": cfg.AppPort, "db_driver": cfg.DBDriver, "cache": redisClient != nil}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logrus.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logrus.Fatalf("server error: %v", err)
	}
}

func setupLogger(cfg *config.Config) {
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
