package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tendant/simple-shop-auth/pkg/domain"
)

// DefaultChallengeKey is the session key the login form's image challenge uses
// when the client does not name one.
const DefaultChallengeKey = "default_recaptcha_id_customer_login"

// ChallengeMode is the kind of human-verification challenge in force.
type ChallengeMode string

const (
	ChallengeModeImage     ChallengeMode = "image"
	ChallengeModeRecaptcha ChallengeMode = "recaptcha"
)

// ModeFor selects the challenge mode from the settings snapshot.
func ModeFor(settings domain.BusinessSettings) ChallengeMode {
	if settings.Recaptcha.Status {
		return ChallengeModeRecaptcha
	}
	return ChallengeModeImage
}

// PhraseStore holds issued challenge phrases between requests.
type PhraseStore interface {
	GetString(key string) string
	Put(key string, value any)
	Forget(key string)
}

// ImageChallenge issues and checks local image challenges.
type ImageChallenge struct {
	PhraseLength int
	Render       RenderOptions
}

// NewImageChallenge creates an image challenge with the default phrase length.
func NewImageChallenge() *ImageChallenge {
	return &ImageChallenge{
		PhraseLength: defaultPhraseLength,
		Render:       DefaultRenderOptions(),
	}
}

// Issue generates a new phrase, stores it under key replacing any earlier one,
// and returns the rendered JPEG.
func (c *ImageChallenge) Issue(store PhraseStore, key string) ([]byte, error) {
	phrase, err := GeneratePhrase(c.PhraseLength)
	if err != nil {
		return nil, fmt.Errorf("generate phrase: %w", err)
	}

	img, err := RenderCaptcha(phrase, c.Render)
	if err != nil {
		return nil, fmt.Errorf("render captcha: %w", err)
	}

	store.Forget(key)
	store.Put(key, phrase)
	return img, nil
}

// Verify compares answer with the phrase stored under key, ignoring case.
// A key with no stored phrase never matches.
func (c *ImageChallenge) Verify(store PhraseStore, key, answer string) error {
	phrase := store.GetString(key)
	if phrase == "" {
		return fmt.Errorf("%w: no phrase issued", domain.ErrChallengeFailed)
	}
	if !strings.EqualFold(strings.TrimSpace(answer), phrase) {
		return domain.ErrChallengeFailed
	}
	return nil
}

// RecaptchaClient verifies third-party challenge tokens.
type RecaptchaClient interface {
	Verify(ctx context.Context, secret, token, remoteIP string) error
}

// ChallengeSubmission is the challenge part of a login request.
type ChallengeSubmission struct {
	RecaptchaToken string
	Answer         string
	Key            string
	RemoteIP       string
}

// ChallengeService verifies a submission in whichever mode is configured.
type ChallengeService struct {
	image     *ImageChallenge
	recaptcha RecaptchaClient
	failOpen  bool
	logger    *slog.Logger
}

// NewChallengeService creates a challenge service. With failOpen set, a
// recaptcha endpoint that cannot be reached admits the request.
func NewChallengeService(image *ImageChallenge, recaptcha RecaptchaClient, failOpen bool, logger *slog.Logger) *ChallengeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChallengeService{
		image:     image,
		recaptcha: recaptcha,
		failOpen:  failOpen,
		logger:    logger,
	}
}

// Image returns the local image challenge.
func (s *ChallengeService) Image() *ImageChallenge {
	return s.image
}

// Verify returns nil or an error wrapping domain.ErrChallengeFailed.
func (s *ChallengeService) Verify(ctx context.Context, settings domain.BusinessSettings, sub ChallengeSubmission, store PhraseStore) error {
	if ModeFor(settings) == ChallengeModeImage {
		key := sub.Key
		if key == "" {
			key = DefaultChallengeKey
		}
		return s.image.Verify(store, key, sub.Answer)
	}

	if sub.RecaptchaToken == "" {
		return fmt.Errorf("%w: missing recaptcha response", domain.ErrChallengeFailed)
	}

	err := s.recaptcha.Verify(ctx, settings.Recaptcha.SecretKey, sub.RecaptchaToken, sub.RemoteIP)
	if err != nil && errors.Is(err, domain.ErrChallengeUnavailable) && s.failOpen {
		s.logger.Warn("recaptcha unavailable, admitting request", "ip", sub.RemoteIP, "error", err)
		return nil
	}
	return err
}
