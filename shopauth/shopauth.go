// Package shopauth embeds the storefront customer login in an existing
// chi or net/http application.
//
// Setup:
//
//  1. Run migrations from migrations/ folder using your preferred tool
//  2. Create a ShopAuth instance and mount its handler
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/shop?sslmode=disable")
//
//	sa, err := shopauth.New(shopauth.Config{
//	    DB:             db,
//	    RememberSecret: "your-secret-key-at-least-32-chars",
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if migrations haven't been run
//	}
//
//	http.ListenAndServe(":8080", sa.Handler())
//
// With Redis-backed sessions:
//
//	sa, err := shopauth.New(shopauth.Config{
//	    DB:             db,
//	    Redis:          redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    RememberSecret: "your-secret-key-at-least-32-chars",
//	})
package shopauth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-shop-auth/internal/config"
	httpserver "github.com/tendant/simple-shop-auth/internal/http"
	"github.com/tendant/simple-shop-auth/internal/http/middleware"
	"github.com/tendant/simple-shop-auth/internal/httputil"
	"github.com/tendant/simple-shop-auth/internal/lang"
	"github.com/tendant/simple-shop-auth/internal/metrics"
	"github.com/tendant/simple-shop-auth/internal/notification"
	"github.com/tendant/simple-shop-auth/internal/session"
	"github.com/tendant/simple-shop-auth/pkg/auth"
	"github.com/tendant/simple-shop-auth/pkg/repository"
)

// Config holds the configuration for an embedded login.
type Config struct {
	// DB is the storefront database (required).
	DB *sql.DB

	// RememberSecret signs remember-me tokens (required, min 32 chars).
	RememberSecret string

	// Redis stores sessions when set. Sessions are kept in memory otherwise.
	Redis *redis.Client

	// HomeURL is where customers land after login and logout (default: "/").
	HomeURL string

	// SessionTTL is the idle lifetime of a session (default: 2 hours).
	SessionTTL time.Duration

	// CookieSecure sets the Secure flag on session and remember cookies.
	CookieSecure bool

	// CodeSender mails email verification codes (default: codes are logged).
	CodeSender auth.CodeSender

	// Messages overrides customer-facing texts by key.
	Messages map[string]string

	// Registerer receives the login metrics (optional).
	Registerer prometheus.Registerer

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger
}

// ShopAuth is an embeddable customer login.
type ShopAuth struct {
	config   Config
	remember *auth.RememberService
	sessions *session.Manager
	cookies  httputil.CookieConfig
	handler  http.Handler
}

// New creates a ShopAuth instance with the given configuration.
// Returns an error if required database tables don't exist.
func New(cfg Config) (*ShopAuth, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateSchema(cfg.DB); err != nil {
		return nil, err
	}

	customersRepo := repository.NewCustomersRepository(cfg.DB)

	var store session.Store = session.NewMemoryStore()
	if cfg.Redis != nil {
		store = session.NewRedisStore(cfg.Redis, "")
	}
	cookies := httputil.DefaultCookieConfig()
	cookies.Secure = cfg.CookieSecure
	sessions := session.NewManager(store, session.Config{TTL: cfg.SessionTTL, Cookie: cookies}, cfg.Logger)

	var m *metrics.Metrics
	if cfg.Registerer != nil {
		var err error
		m, err = metrics.New(metrics.Options{Registerer: cfg.Registerer})
		if err != nil {
			return nil, fmt.Errorf("shopauth: register metrics: %w", err)
		}
	}

	remember := auth.NewRememberService(auth.RememberConfig{Secret: []byte(cfg.RememberSecret)},
		repository.NewRememberTokensRepository(cfg.DB))

	handler := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:       cfg.Logger,
		Settings:     repository.NewSettingsRepository(cfg.DB),
		LoginService: auth.NewLoginService(customersRepo, cfg.Logger),
		ChallengeService: auth.NewChallengeService(
			auth.NewImageChallenge(),
			auth.NewRecaptchaVerifier(auth.RecaptchaConfig{}),
			false,
			cfg.Logger,
		),
		Bootstrapper: auth.NewBootstrapper(
			repository.NewWishlistRepository(cfg.DB),
			repository.NewCompareRepository(cfg.DB),
			repository.NewCartsRepository(cfg.DB),
			cfg.HomeURL,
			cfg.Logger,
		),
		RememberService: remember,
		VerificationService: auth.NewVerificationService(auth.VerificationConfig{
			Secret: []byte(cfg.RememberSecret),
		}, customersRepo, cfg.CodeSender, cfg.Logger),
		Sessions:   sessions,
		Translator: lang.New(cfg.Messages),
		Metrics:    m,
		HomeURL:    cfg.HomeURL,
		Cookies:    cookies,
		RateLimitConfig: config.RateLimitConfig{
			Enabled:                  true,
			LoginRequestsPerWindow:   20,
			LoginWindow:              time.Minute,
			CaptchaRequestsPerWindow: 30,
			CaptchaWindow:            time.Minute,
			VerifyRequestsPerWindow:  5,
			VerifyWindow:             15 * time.Minute,
		},
		Validation: config.ValidationConfig{
			MaxRequestBodySize: 64 * 1024,
			MaxIdentifierLen:   255,
			MaxPasswordLen:     128,
		},
	})

	return &ShopAuth{
		config:   cfg,
		remember: remember,
		sessions: sessions,
		cookies:  cookies,
		handler:  handler,
	}, nil
}

// Handler returns the login routes:
//
//	GET  /health
//	GET  /customer/auth/login              - Login page model
//	POST /customer/auth/login              - Submit credentials
//	GET  /customer/auth/code/captcha/{tmp} - Challenge image
//	GET  /customer/auth/check/{id}         - Send a verification code
//	POST /customer/auth/check/{id}         - Confirm a verification code
//	GET  /customer/auth/logout             - Logout
//	POST /customer/auth/logout             - Logout
func (s *ShopAuth) Handler() http.Handler {
	return s.handler
}

// CustomerMiddleware attaches the session and the logged-in customer to
// requests served by your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(sa.CustomerMiddleware())
//	    r.Get("/account", handler)
//	})
func (s *ShopAuth) CustomerMiddleware() func(http.Handler) http.Handler {
	customer := middleware.Customer(s.remember, s.cookies, s.config.Logger)
	return func(next http.Handler) http.Handler {
		return s.sessions.Middleware(customer(next))
	}
}

// GetCustomerID extracts the customer ID from a request.
// Use after CustomerMiddleware:
//
//	customerID, ok := shopauth.GetCustomerID(r)
func GetCustomerID(r *http.Request) (int64, bool) {
	return middleware.GetCustomerID(r.Context())
}

// GetCustomerIDFromContext extracts the customer ID from a context.
func GetCustomerIDFromContext(ctx context.Context) (int64, bool) {
	return middleware.GetCustomerID(ctx)
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("shopauth: DB is required")
	}
	if cfg.RememberSecret == "" {
		return errors.New("shopauth: RememberSecret is required")
	}
	if len(cfg.RememberSecret) < 32 {
		return errors.New("shopauth: RememberSecret must be at least 32 characters")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.HomeURL == "" {
		cfg.HomeURL = "/"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if cfg.CodeSender == nil {
		cfg.CodeSender = notification.LogOnlyEmailService{Log: cfg.Logger.Info}
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(db *sql.DB) error {
	requiredTables := []string{"users", "business_settings", "remember_tokens", "carts"}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRow(query, table).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("shopauth: missing table '%s' - run migrations first (see migrations/ folder)", table)
		}
		if err != nil {
			return fmt.Errorf("shopauth: failed to check schema: %w", err)
		}
	}

	return nil
}
