// Package lang resolves customer-facing message keys.
package lang

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// Message keys used by the login flow.
const (
	KeyCredentialsMismatch = "credentials_do_not_match_or_account_has_been_suspended"
	KeyTryAgainAfter       = "please_try_again_after_"
	KeyTooManyAttempts     = "too_many_attempts. please_try_again_after_"
	KeyPhoneNotVerified    = "account_phone_not_verified"
	KeyEmailNotVerified    = "account_email_not_verified"
	KeyCaptchaFailed       = "Captcha_Failed."
	KeyRecaptchaFailed     = "ReCAPTCHA Failed"
	KeyLoginSuccessful     = "login_successful"
	KeyLoginFailed         = "something_went_wrong. please_try_again"
	KeyCodeSent            = "verification_code_sent"
	KeyCodeInvalid         = "verification_code_is_invalid"
	KeyVerified            = "verification_successful"
	KeyNothingToVerify     = "nothing_to_verify"
)

var defaults = map[string]string{
	KeyCredentialsMismatch: "Credentials do not match or account has been suspended",
	KeyTryAgainAfter:       "Please try again after ",
	KeyTooManyAttempts:     "Too many attempts. Please try again after ",
	KeyPhoneNotVerified:    "Account phone not verified",
	KeyEmailNotVerified:    "Account email not verified",
	KeyCaptchaFailed:       "Captcha Failed.",
	KeyRecaptchaFailed:     "ReCAPTCHA Failed",
	KeyLoginSuccessful:     "Login successful",
	KeyLoginFailed:         "Something went wrong. Please try again",
	KeyCodeSent:            "Verification code sent",
	KeyCodeInvalid:         "Verification code is invalid",
	KeyVerified:            "Verification successful",
	KeyNothingToVerify:     "Nothing to verify",
}

// Translator maps message keys to text. Unknown keys fall back to the key
// itself with underscores as spaces and the first letter capitalized.
type Translator struct {
	messages map[string]string
}

// New creates a translator with the built-in messages plus overrides.
func New(overrides map[string]string) *Translator {
	messages := make(map[string]string, len(defaults)+len(overrides))
	for k, v := range defaults {
		messages[k] = v
	}
	for k, v := range overrides {
		messages[k] = v
	}
	return &Translator{messages: messages}
}

// Load reads a flat JSON object of overrides. An empty path gives the
// built-in messages.
func Load(path string) (*Translator, error) {
	if path == "" {
		return New(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lang file: %w", err)
	}
	var overrides map[string]string
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse lang file %s: %w", path, err)
	}
	return New(overrides), nil
}

// T returns the text for key.
func (t *Translator) T(key string) string {
	if msg, ok := t.messages[key]; ok {
		return msg
	}
	return fallback(key)
}

// TryAgainAfter renders the lockout message for the remaining block time.
// atTransition selects the wording for the attempt that started the block.
func (t *Translator) TryAgainAfter(remaining time.Duration, atTransition bool) string {
	key := KeyTryAgainAfter
	if atTransition {
		key = KeyTooManyAttempts
	}
	return t.T(key) + HumanizeDuration(remaining)
}

// HumanizeDuration renders d as "5 seconds", "1 minute" and so on. Durations
// are rounded up to whole seconds with a floor of one second.
func HumanizeDuration(d time.Duration) string {
	secs := (d + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	now := time.Now()
	return strings.TrimSpace(humanize.RelTime(now, now.Add(secs*time.Second), "", ""))
}

func fallback(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
