package middleware

import (
	"fmt"
	"net/http"

	"github.com/tendant/simple-shop-auth/internal/config"
)

// SecurityHeaders creates middleware that applies OWASP-recommended security
// headers. Headers with an empty configured value are left out.
func SecurityHeaders(cfg config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge)
	}

	headers := make([][2]string, 0, 7)
	for _, h := range [][2]string{
		{"Content-Security-Policy", cfg.CSP},
		{"Strict-Transport-Security", hsts},
		{"X-Frame-Options", cfg.FrameOptions},
		{"X-Content-Type-Options", cfg.ContentTypeOptions},
		{"X-XSS-Protection", cfg.XSSProtection},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Permissions-Policy", cfg.PermissionsPolicy},
	} {
		if h[1] != "" {
			headers = append(headers, h)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range headers {
				w.Header().Set(h[0], h[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}
