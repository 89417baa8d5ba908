package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/simple-shop-auth/pkg/domain"
)

// DefaultRecaptchaVerifyURL is Google's siteverify endpoint.
const DefaultRecaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

type RecaptchaConfig struct {
	VerifyURL string
	Timeout   time.Duration
}

// RecaptchaVerifier checks tokens against a siteverify endpoint.
type RecaptchaVerifier struct {
	verifyURL  string
	httpClient *http.Client
}

func NewRecaptchaVerifier(cfg RecaptchaConfig) *RecaptchaVerifier {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultRecaptchaVerifyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &RecaptchaVerifier{
		verifyURL:  cfg.VerifyURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify returns nil when the endpoint accepts token. A rejected token gives
// ErrChallengeFailed; an endpoint that cannot answer gives ErrChallengeUnavailable.
func (v *RecaptchaVerifier) Verify(ctx context.Context, secret, token, remoteIP string) error {
	form := url.Values{}
	form.Set("secret", secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrChallengeUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrChallengeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: siteverify status %d", domain.ErrChallengeUnavailable, resp.StatusCode)
	}

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: decode siteverify response: %v", domain.ErrChallengeUnavailable, err)
	}

	if !result.Success {
		return fmt.Errorf("%w: %s", domain.ErrChallengeFailed, strings.Join(result.ErrorCodes, ","))
	}
	return nil
}
