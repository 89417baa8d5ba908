package verification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-shop-auth/internal/httputil"
	"github.com/tendant/simple-shop-auth/internal/lang"
	"github.com/tendant/simple-shop-auth/internal/session"
	"github.com/tendant/simple-shop-auth/pkg/domain"
)

const loginPath = "/customer/auth/login"

type SettingsLoader interface {
	Load(ctx context.Context) (domain.BusinessSettings, error)
}

type CodeService interface {
	Send(ctx context.Context, settings domain.BusinessSettings, customerID int64) (domain.VerificationChannel, error)
	Confirm(ctx context.Context, settings domain.BusinessSettings, customerID int64, code string) (domain.VerificationChannel, error)
}

// Handler handles the verification step a customer goes through before the
// first login on an unverified phone or email.
type Handler struct {
	logger     *slog.Logger
	settings   SettingsLoader
	codes      CodeService
	translator *lang.Translator
}

// NewHandler creates a new verification handler.
func NewHandler(logger *slog.Logger, settings SettingsLoader, codes CodeService, translator *lang.Translator) *Handler {
	if translator == nil {
		translator = lang.New(nil)
	}
	return &Handler{
		logger:     logger,
		settings:   settings,
		codes:      codes,
		translator: translator,
	}
}

// CheckResponse describes the pending verification step.
type CheckResponse struct {
	Status     string                     `json:"status"`
	Message    string                     `json:"message"`
	Channel    domain.VerificationChannel `json:"channel,omitempty"`
	CustomerID int64                      `json:"customer_id"`
}

// ConfirmRequest carries the code the customer received.
type ConfirmRequest struct {
	Token string `json:"token"`
}

// Check sends a code on the pending channel.
// GET /customer/auth/check/{id}
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseID(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "not found")
		return
	}

	settings, err := h.settings.Load(r.Context())
	if err != nil {
		h.logger.Error("failed to load business settings", "error", err)
		httputil.Error(w, http.StatusInternalServerError, h.translator.T(lang.KeyLoginFailed))
		return
	}

	channel, err := h.codes.Send(r.Context(), settings, customerID)
	if err != nil {
		h.writeError(w, r, customerID, err)
		return
	}

	httputil.JSON(w, http.StatusOK, CheckResponse{
		Status:     "success",
		Message:    h.translator.T(lang.KeyCodeSent),
		Channel:    channel,
		CustomerID: customerID,
	})
}

// Confirm checks the submitted code and marks the channel verified.
// POST /customer/auth/check/{id}
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseID(r)
	if !ok {
		httputil.Error(w, http.StatusNotFound, "not found")
		return
	}

	var req ConfirmRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Token = r.PostForm.Get("token")
	}
	if req.Token == "" {
		httputil.Error(w, http.StatusUnprocessableEntity, "token is required")
		return
	}

	settings, err := h.settings.Load(r.Context())
	if err != nil {
		h.logger.Error("failed to load business settings", "error", err)
		httputil.Error(w, http.StatusInternalServerError, h.translator.T(lang.KeyLoginFailed))
		return
	}

	channel, err := h.codes.Confirm(r.Context(), settings, customerID, req.Token)
	if err != nil {
		h.writeError(w, r, customerID, err)
		return
	}

	msg := h.translator.T(lang.KeyVerified)
	if httputil.WantsJSON(r) {
		httputil.JSON(w, http.StatusOK, CheckResponse{
			Status:     "success",
			Message:    msg,
			Channel:    channel,
			CustomerID: customerID,
		})
		return
	}
	if sess := session.FromContext(r.Context()); sess != nil {
		sess.Flash("success", msg)
	}
	http.Redirect(w, r, loginPath, http.StatusFound)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, customerID int64, err error) {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound):
		httputil.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNothingToVerify):
		if httputil.WantsJSON(r) {
			httputil.JSON(w, http.StatusOK, CheckResponse{
				Status:     "success",
				Message:    h.translator.T(lang.KeyNothingToVerify),
				CustomerID: customerID,
			})
			return
		}
		http.Redirect(w, r, loginPath, http.StatusFound)
	case errors.Is(err, domain.ErrInvalidVerificationCode):
		httputil.Error(w, http.StatusUnprocessableEntity, h.translator.T(lang.KeyCodeInvalid))
	default:
		h.logger.Error("verification failed", "customer_id", customerID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, h.translator.T(lang.KeyLoginFailed))
	}
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
