package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/tendant/simple-shop-auth/internal/config"
	"github.com/tendant/simple-shop-auth/internal/httputil"
)

// Rate limiter groups.
const (
	LimitLogin   = "login"
	LimitCaptcha = "captcha"
	LimitVerify  = "verify"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", httputil.ClientIP(r),
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded. please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters creates one limiter per route group.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			LimitLogin:   noOp,
			LimitCaptcha: noOp,
			LimitVerify:  noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		LimitLogin: RateLimit(RateLimitConfig{
			Requests: cfg.LoginRequestsPerWindow,
			Window:   cfg.LoginWindow,
			Logger:   logger,
		}),
		LimitCaptcha: RateLimit(RateLimitConfig{
			Requests: cfg.CaptchaRequestsPerWindow,
			Window:   cfg.CaptchaWindow,
			Logger:   logger,
		}),
		LimitVerify: RateLimit(RateLimitConfig{
			Requests: cfg.VerifyRequestsPerWindow,
			Window:   cfg.VerifyWindow,
			Logger:   logger,
		}),
	}
}
