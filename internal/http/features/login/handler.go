package login

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/tendant/simple-shop-auth/internal/config"
	"github.com/tendant/simple-shop-auth/internal/http/middleware"
	"github.com/tendant/simple-shop-auth/internal/httputil"
	"github.com/tendant/simple-shop-auth/internal/lang"
	"github.com/tendant/simple-shop-auth/internal/metrics"
	"github.com/tendant/simple-shop-auth/internal/session"
	"github.com/tendant/simple-shop-auth/pkg/auth"
	"github.com/tendant/simple-shop-auth/pkg/domain"
)

// Paths used in redirects.
const (
	LoginPath    = "/customer/auth/login"
	CheckPathFmt = "/customer/auth/check/%d"
)

type SettingsLoader interface {
	Load(ctx context.Context) (domain.BusinessSettings, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, settings domain.BusinessSettings, identifier, password string) (*domain.Customer, error)
}

type ChallengeVerifier interface {
	Verify(ctx context.Context, settings domain.BusinessSettings, sub auth.ChallengeSubmission, store auth.PhraseStore) error
}

type Bootstrapper interface {
	Bootstrap(ctx context.Context, customer *domain.Customer, settings domain.BusinessSettings, sess auth.BootstrapSession) string
}

type RememberIssuer interface {
	Issue(ctx context.Context, customerID int64) (string, error)
	Revoke(ctx context.Context, value string) error
	TTL() time.Duration
}

// Options holds the collaborators of the login handler.
type Options struct {
	Logger     *slog.Logger
	Settings   SettingsLoader
	Login      Authenticator
	Challenge  ChallengeVerifier
	Bootstrap  Bootstrapper
	Remember   RememberIssuer
	Translator *lang.Translator
	Metrics    *metrics.Metrics
	Cookies    httputil.CookieConfig
	Validation config.ValidationConfig
	HomeURL    string
}

// Handler handles the customer login endpoints.
type Handler struct {
	Options
}

// NewHandler creates a new login handler.
func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Translator == nil {
		opts.Translator = lang.New(nil)
	}
	if opts.HomeURL == "" {
		opts.HomeURL = "/"
	}
	return &Handler{Options: opts}
}

// SubmitRequest is the login form.
type SubmitRequest struct {
	UserID            string `json:"user_id"`
	Password          string `json:"password"`
	Remember          bool   `json:"remember"`
	RecaptchaResponse string `json:"g-recaptcha-response"`
	CaptchaAnswer     string `json:"default_recaptcha_id_customer_login"`
	CaptchaSessionID  string `json:"captcha_session_id"`
}

// Response is the answer given to programmatic callers.
type Response struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	RedirectURL string `json:"redirect_url"`
}

// PageResponse is the login page model.
type PageResponse struct {
	ChallengeMode    auth.ChallengeMode `json:"challenge_mode"`
	RecaptchaSiteKey string             `json:"recaptcha_site_key,omitempty"`
	CaptchaURL       string             `json:"captcha_url,omitempty"`
	CaptchaKey       string             `json:"captcha_session_id,omitempty"`
	Flashes          []session.Flash    `json:"flashes,omitempty"`
	OldInput         map[string]string  `json:"old_input,omitempty"`
}

// LoginPage remembers where the visitor came from and describes the form.
// GET /customer/auth/login
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	sess.Put(auth.SessionKeyReturnURL, httputil.Back(r, h.HomeURL))

	settings, err := h.Settings.Load(r.Context())
	if err != nil {
		h.Logger.Error("failed to load business settings", "error", err)
		httputil.Error(w, http.StatusInternalServerError, h.Translator.T(lang.KeyLoginFailed))
		return
	}

	page := PageResponse{
		ChallengeMode: auth.ModeFor(settings),
		Flashes:       sess.Flashes(),
		OldInput:      sess.OldInput(),
	}
	if page.ChallengeMode == auth.ChallengeModeRecaptcha {
		page.RecaptchaSiteKey = settings.Recaptcha.SiteKey
	} else {
		page.CaptchaKey = auth.DefaultChallengeKey
		page.CaptchaURL = fmt.Sprintf("/customer/auth/code/captcha/%d?captcha_session_id=%s",
			time.Now().UnixNano(), auth.DefaultChallengeKey)
	}

	httputil.JSON(w, http.StatusOK, page)
}

// Submit checks the challenge and the credentials and logs the customer in.
// POST /customer/auth/login
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	req, err := decodeSubmit(r)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.UserID = auth.NormalizeIdentifier(req.UserID)
	if msg := h.validate(req); msg != "" {
		h.reject(w, r, sess, req, http.StatusUnprocessableEntity, msg)
		return
	}

	settings, err := h.Settings.Load(ctx)
	if err != nil {
		h.fail(w, r, sess, req, "failed to load business settings", err)
		return
	}

	mode := auth.ModeFor(settings)
	sub := auth.ChallengeSubmission{
		RecaptchaToken: req.RecaptchaResponse,
		Answer:         req.CaptchaAnswer,
		Key:            req.CaptchaSessionID,
		RemoteIP:       httputil.ClientIP(r),
	}
	if err := h.Challenge.Verify(ctx, settings, sub, sess); err != nil {
		h.Metrics.LoginAttempt(metrics.OutcomeChallengeFailed)
		h.Metrics.ChallengeFailed(string(mode))
		h.Logger.Info("login challenge failed", "mode", mode, "ip", sub.RemoteIP, "error", err)

		msg := h.Translator.T(lang.KeyRecaptchaFailed)
		if mode == auth.ChallengeModeImage {
			msg = h.Translator.T(lang.KeyCaptchaFailed)
			if !httputil.WantsJSON(r) {
				key := sub.Key
				if key == "" {
					key = auth.DefaultChallengeKey
				}
				sess.Forget(key)
			}
		}
		h.reject(w, r, sess, req, http.StatusOK, msg)
		return
	}

	customer, err := h.Login.Authenticate(ctx, settings, req.UserID, req.Password)
	if err != nil {
		h.handleAuthError(w, r, sess, req, err)
		return
	}

	h.Metrics.LoginAttempt(metrics.OutcomeSuccess)
	h.Logger.Info("customer logged in", "customer_id", customer.ID, "ip", httputil.ClientIP(r))

	sess.Regenerate()
	sess.Put(auth.SessionKeyCustomerID, customer.ID)
	target := h.Bootstrap.Bootstrap(ctx, customer, settings, sess)

	if req.Remember && h.Remember != nil {
		token, err := h.Remember.Issue(ctx, customer.ID)
		if err != nil {
			h.Logger.Error("failed to issue remember token", "customer_id", customer.ID, "error", err)
		} else {
			httputil.SetRememberCookie(w, token, h.Remember.TTL(), h.Cookies)
		}
	}

	if httputil.WantsJSON(r) {
		httputil.JSON(w, http.StatusOK, Response{
			Status:      "success",
			Message:     h.Translator.T(lang.KeyLoginSuccessful),
			RedirectURL: "samepage",
		})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Logout ends the customer session.
// GET|POST /customer/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	if id, ok := sess.GetInt64(auth.SessionKeyCustomerID); ok {
		h.Logger.Info("customer logged out", "customer_id", id)
	}
	sess.Forget(auth.SessionKeyCustomerID)
	sess.Forget(auth.SessionKeyWishList)
	sess.Regenerate()

	if token, ok := httputil.GetRememberToken(r); ok && h.Remember != nil {
		if err := h.Remember.Revoke(r.Context(), token); err != nil {
			h.Logger.Error("failed to revoke remember token", "error", err)
		}
	}
	httputil.ClearRememberCookie(w, h.Cookies)

	sess.Flash("info", "Come back soon!")
	http.Redirect(w, r, h.HomeURL, http.StatusFound)
}

func (h *Handler) handleAuthError(w http.ResponseWriter, r *http.Request, sess *session.Session, req SubmitRequest, err error) {
	var (
		verifyErr *domain.VerificationError
		lockErr   *domain.LockoutError
	)

	switch {
	case errors.As(err, &verifyErr):
		h.Metrics.LoginAttempt(metrics.OutcomeVerificationRequired)
		checkURL := fmt.Sprintf(CheckPathFmt, verifyErr.CustomerID)
		key := lang.KeyEmailNotVerified
		if verifyErr.Channel == domain.ChannelPhone {
			key = lang.KeyPhoneNotVerified
		}
		if httputil.WantsJSON(r) {
			httputil.JSON(w, http.StatusOK, Response{Status: "error", Message: h.Translator.T(key), RedirectURL: checkURL})
			return
		}
		http.Redirect(w, r, checkURL, http.StatusFound)

	case errors.As(err, &lockErr):
		atTransition := errors.Is(err, domain.ErrTooManyAttempts)
		if atTransition {
			h.Metrics.LoginAttempt(metrics.OutcomeTooManyAttempts)
		} else {
			h.Metrics.LoginAttempt(metrics.OutcomeTemporarilyBlocked)
		}
		h.reject(w, r, sess, req, http.StatusOK, h.Translator.TryAgainAfter(lockErr.Remaining, atTransition))

	case errors.Is(err, domain.ErrInvalidCredentials):
		h.Metrics.LoginAttempt(metrics.OutcomeInvalidCredentials)
		h.reject(w, r, sess, req, http.StatusOK, h.Translator.T(lang.KeyCredentialsMismatch))

	default:
		h.fail(w, r, sess, req, "login failed", err)
	}
}

// reject answers a refused login: JSON for programmatic callers, otherwise a
// flash and a redirect back to the form with the identifier kept.
func (h *Handler) reject(w http.ResponseWriter, r *http.Request, sess *session.Session, req SubmitRequest, status int, message string) {
	if httputil.WantsJSON(r) {
		httputil.JSON(w, status, Response{Status: "error", Message: message})
		return
	}
	sess.Flash("error", message)
	sess.FlashInput(map[string]string{"user_id": req.UserID})
	http.Redirect(w, r, httputil.Back(r, LoginPath), http.StatusFound)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, sess *session.Session, req SubmitRequest, msg string, err error) {
	h.Metrics.LoginAttempt(metrics.OutcomeError)
	h.Logger.Error(msg, "error", err, "ip", httputil.ClientIP(r))
	h.reject(w, r, sess, req, http.StatusInternalServerError, h.Translator.T(lang.KeyLoginFailed))
}

func (h *Handler) validate(req SubmitRequest) string {
	if req.UserID == "" {
		return h.Translator.T("the_user_id_field_is_required.")
	}
	if req.Password == "" {
		return h.Translator.T("the_password_field_is_required.")
	}
	if err := auth.ValidateStringLength("user_id", req.UserID, 0, h.Validation.MaxIdentifierLen); err != nil {
		return err.Error()
	}
	if err := auth.ValidateStringLength("password", req.Password, 0, h.Validation.MaxPasswordLen); err != nil {
		return err.Error()
	}
	return ""
}

func decodeSubmit(r *http.Request) (SubmitRequest, error) {
	var req SubmitRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.UserID = r.PostForm.Get("user_id")
	req.Password = r.PostForm.Get("password")
	req.Remember = formBool(r.PostForm.Get("remember"))
	req.RecaptchaResponse = r.PostForm.Get("g-recaptcha-response")
	req.CaptchaAnswer = r.PostForm.Get(auth.DefaultChallengeKey)
	req.CaptchaSessionID = r.PostForm.Get("captcha_session_id")
	return req, nil
}

func formBool(v string) bool {
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
