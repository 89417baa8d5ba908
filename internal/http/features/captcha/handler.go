package captcha

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tendant/simple-shop-auth/internal/httputil"
	"github.com/tendant/simple-shop-auth/internal/session"
	"github.com/tendant/simple-shop-auth/pkg/auth"
)

// Issuer creates a new image challenge under a session key.
type Issuer interface {
	Issue(store auth.PhraseStore, key string) ([]byte, error)
}

// Handler serves login challenge images.
type Handler struct {
	logger *slog.Logger
	issuer Issuer
}

// NewHandler creates a new captcha handler.
func NewHandler(logger *slog.Logger, issuer Issuer) *Handler {
	return &Handler{logger: logger, issuer: issuer}
}

// Image issues a fresh phrase and returns it as a JPEG. The path segment only
// defeats browser caches.
// GET /customer/auth/code/captcha/{tmp}?captcha_session_id=ID
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("captcha_session_id")
	if key == "" {
		key = auth.DefaultChallengeKey
	}
	if err := auth.ValidateStringLength("captcha_session_id", key, 1, 64); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	img, err := h.issuer.Issue(session.FromContext(r.Context()), key)
	if err != nil {
		h.logger.Error("failed to issue captcha", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to generate captcha")
		return
	}

	w.Header().Set("Cache-Control", "no-cache, must-revalidate")
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}
