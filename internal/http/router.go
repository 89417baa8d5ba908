package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/simple-shop-auth/internal/config"
	"github.com/tendant/simple-shop-auth/internal/http/features/captcha"
	"github.com/tendant/simple-shop-auth/internal/http/features/login"
	"github.com/tendant/simple-shop-auth/internal/http/features/verification"
	"github.com/tendant/simple-shop-auth/internal/http/middleware"
	"github.com/tendant/simple-shop-auth/internal/httputil"
	"github.com/tendant/simple-shop-auth/internal/lang"
	"github.com/tendant/simple-shop-auth/internal/metrics"
	"github.com/tendant/simple-shop-auth/internal/session"
	"github.com/tendant/simple-shop-auth/pkg/auth"
	"github.com/tendant/simple-shop-auth/pkg/repository"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger              *slog.Logger
	Settings            *repository.SettingsRepository
	LoginService        *auth.LoginService
	ChallengeService    *auth.ChallengeService
	Bootstrapper        *auth.Bootstrapper
	RememberService     *auth.RememberService
	VerificationService *auth.VerificationService
	Sessions            *session.Manager
	Translator          *lang.Translator
	Metrics             *metrics.Metrics
	Gatherer            prometheus.Gatherer // nil disables /metrics
	HomeURL             string
	Cookies             httputil.CookieConfig
	RateLimitConfig     config.RateLimitConfig
	SecurityHeaders     config.SecurityHeadersConfig
	Validation          config.ValidationConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(cfg.Metrics.Middleware)
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	loginHandler := login.NewHandler(login.Options{
		Logger:     cfg.Logger,
		Settings:   cfg.Settings,
		Login:      cfg.LoginService,
		Challenge:  cfg.ChallengeService,
		Bootstrap:  cfg.Bootstrapper,
		Remember:   cfg.RememberService,
		Translator: cfg.Translator,
		Metrics:    cfg.Metrics,
		Cookies:    cfg.Cookies,
		Validation: cfg.Validation,
		HomeURL:    cfg.HomeURL,
	})
	captchaHandler := captcha.NewHandler(cfg.Logger, cfg.ChallengeService.Image())
	verificationHandler := verification.NewHandler(cfg.Logger, cfg.Settings, cfg.VerificationService, cfg.Translator)

	// Everything below needs the visitor session.
	r.Group(func(r chi.Router) {
		r.Use(cfg.Sessions.Middleware)
		r.Use(middleware.Customer(cfg.RememberService, cfg.Cookies, cfg.Logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.GuestOnly(cfg.HomeURL))
			r.Get(login.LoginPath, loginHandler.LoginPage)
			r.With(rateLimiters[middleware.LimitLogin]).Post(login.LoginPath, loginHandler.Submit)
		})

		r.With(rateLimiters[middleware.LimitCaptcha]).Get("/customer/auth/code/captcha/{tmp}", captchaHandler.Image)

		r.Group(func(r chi.Router) {
			r.Use(rateLimiters[middleware.LimitVerify])
			r.Get("/customer/auth/check/{id}", verificationHandler.Check)
			r.Post("/customer/auth/check/{id}", verificationHandler.Confirm)
		})

		r.Get("/customer/auth/logout", loginHandler.Logout)
		r.Post("/customer/auth/logout", loginHandler.Logout)
	})

	return r
}
