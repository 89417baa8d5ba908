package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-shop-auth/internal/config"
	httpserver "github.com/tendant/simple-shop-auth/internal/http"
	"github.com/tendant/simple-shop-auth/internal/httputil"
	"github.com/tendant/simple-shop-auth/internal/lang"
	"github.com/tendant/simple-shop-auth/internal/metrics"
	"github.com/tendant/simple-shop-auth/internal/notification"
	"github.com/tendant/simple-shop-auth/internal/session"
	"github.com/tendant/simple-shop-auth/pkg/auth"
	"github.com/tendant/simple-shop-auth/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Session storage
	var store session.Store
	if cfg.HasRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		store = session.NewRedisStore(client, "")
		logger.Info("sessions stored in redis", "addr", cfg.RedisAddr)
	} else {
		store = session.NewMemoryStore()
		logger.Warn("REDIS_ADDR not set: sessions kept in memory (single replica only)")
	}

	cookies := httputil.DefaultCookieConfig()
	cookies.Secure = cfg.CookieSecure

	sessions := session.NewManager(store, session.Config{
		CookieName: cfg.SessionCookieName,
		TTL:        cfg.SessionTTL,
		Cookie:     cookies,
	}, logger)

	translator, err := lang.Load(cfg.LangFile)
	if err != nil {
		logger.Error("failed to load messages", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(metrics.Options{Registerer: registry})
	if err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	customersRepo := repository.NewCustomersRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	rememberRepo := repository.NewRememberTokensRepository(db)
	wishlistRepo := repository.NewWishlistRepository(db)
	compareRepo := repository.NewCompareRepository(db)
	cartsRepo := repository.NewCartsRepository(db)

	// Email delivery for verification codes
	var codeSender auth.CodeSender
	if cfg.HasSMTP() {
		codeSender = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		})
		logger.Info("email service enabled")
	} else {
		codeSender = notification.LogOnlyEmailService{Log: logger.Info}
		logger.Warn("SMTP not configured: verification codes are only logged")
	}

	// Initialize services
	loginService := auth.NewLoginService(customersRepo, logger)
	challengeService := auth.NewChallengeService(
		auth.NewImageChallenge(),
		auth.NewRecaptchaVerifier(auth.RecaptchaConfig{
			VerifyURL: cfg.RecaptchaVerifyURL,
			Timeout:   cfg.RecaptchaTimeout,
		}),
		cfg.RecaptchaFailOpen,
		logger,
	)
	bootstrapper := auth.NewBootstrapper(wishlistRepo, compareRepo, cartsRepo, cfg.HomeURL, logger)
	rememberService := auth.NewRememberService(auth.RememberConfig{
		Secret: []byte(cfg.RememberSecret),
		TTL:    cfg.RememberTTL,
	}, rememberRepo)
	verificationService := auth.NewVerificationService(auth.VerificationConfig{
		Secret: []byte(cfg.VerificationSecret),
		Period: cfg.VerificationCodePeriod,
	}, customersRepo, codeSender, logger)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:              logger,
		Settings:            settingsRepo,
		LoginService:        loginService,
		ChallengeService:    challengeService,
		Bootstrapper:        bootstrapper,
		RememberService:     rememberService,
		VerificationService: verificationService,
		Sessions:            sessions,
		Translator:          translator,
		Metrics:             m,
		Gatherer:            registry,
		HomeURL:             cfg.HomeURL,
		Cookies:             cookies,
		RateLimitConfig:     cfg.RateLimit,
		SecurityHeaders:     cfg.SecurityHeaders,
		Validation:          cfg.Validation,
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
