package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-shop-auth/internal/httputil"
	"github.com/tendant/simple-shop-auth/internal/session"
	"github.com/tendant/simple-shop-auth/pkg/auth"
)

type contextKey string

// CustomerIDKey is the context key for the authenticated customer ID.
const CustomerIDKey contextKey = "customer_id"

// RememberValidator resolves a remember-me cookie to a customer.
type RememberValidator interface {
	Validate(ctx context.Context, value string) (int64, error)
}

// Customer resolves the logged-in customer from the session, falling back to
// the remember-me cookie. Anonymous requests pass through unchanged. Must be
// used after the session middleware.
func Customer(remember RememberValidator, cookies httputil.CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			customerID, ok := sess.GetInt64(auth.SessionKeyCustomerID)
			if !ok && remember != nil {
				if token, found := httputil.GetRememberToken(r); found {
					id, err := remember.Validate(r.Context(), token)
					if err != nil {
						logger.Info("discarding remember token", "ip", httputil.ClientIP(r), "error", err)
						httputil.ClearRememberCookie(w, cookies)
					} else {
						sess.Regenerate()
						sess.Put(auth.SessionKeyCustomerID, id)
						customerID, ok = id, true
					}
				}
			}

			if ok {
				r = r.WithContext(context.WithValue(r.Context(), CustomerIDKey, customerID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GuestOnly sends logged-in customers to redirectURL.
func GuestOnly(redirectURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetCustomerID(r.Context()); ok {
				if httputil.WantsJSON(r) {
					httputil.JSON(w, http.StatusOK, map[string]string{
						"status":       "success",
						"message":      "already logged in",
						"redirect_url": redirectURL,
					})
					return
				}
				http.Redirect(w, r, redirectURL, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetCustomerID extracts the customer ID from the request context.
func GetCustomerID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(CustomerIDKey).(int64)
	return id, ok
}
