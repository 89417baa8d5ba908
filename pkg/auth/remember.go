package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-shop-auth/pkg/domain"
)

const (
	DefaultRememberTTL = 30 * 24 * time.Hour
	rememberIssuer     = "shop-auth"
)

// RememberTokenStore persists the server side of remember-me tokens.
type RememberTokenStore interface {
	Create(ctx context.Context, token *domain.RememberToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RememberToken, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

// RememberConfig holds remember-me configuration.
type RememberConfig struct {
	Secret []byte
	TTL    time.Duration
}

// RememberService issues and checks the signed cookie that restores a login
// after the session has expired. Each cookie is backed by a row that logout
// revokes.
type RememberService struct {
	config RememberConfig
	tokens RememberTokenStore
}

func NewRememberService(config RememberConfig, tokens RememberTokenStore) *RememberService {
	if config.TTL == 0 {
		config.TTL = DefaultRememberTTL
	}
	return &RememberService{config: config, tokens: tokens}
}

// TTL returns the remember token lifetime.
func (s *RememberService) TTL() time.Duration {
	return s.config.TTL
}

// Issue creates a remember token for the customer and returns the signed value.
func (s *RememberService) Issue(ctx context.Context, customerID int64) (string, error) {
	now := time.Now()
	record := &domain.RememberToken{
		ID:         uuid.New(),
		CustomerID: customerID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.config.TTL),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return "", err
	}

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(customerID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		Issuer:    rememberIssuer,
		ID:        record.ID.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.config.Secret)
}

// Validate checks the signature and the backing row, returning the customer id.
func (s *RememberService) Validate(ctx context.Context, value string) (int64, error) {
	claims, err := s.parse(value)
	if err != nil {
		return 0, err
	}

	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return 0, domain.ErrRememberTokenInvalid
	}
	record, err := s.tokens.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if !record.IsValid() || strconv.FormatInt(record.CustomerID, 10) != claims.Subject {
		return 0, domain.ErrRememberTokenInvalid
	}
	return record.CustomerID, nil
}

// Revoke revokes the row behind value. Tokens that no longer parse are
// ignored since they cannot be used anyway.
func (s *RememberService) Revoke(ctx context.Context, value string) error {
	claims, err := s.parse(value)
	if err != nil {
		return nil
	}
	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil
	}
	return s.tokens.Revoke(ctx, id)
}

func (s *RememberService) parse(value string) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(value, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrRememberTokenInvalid
		}
		return s.config.Secret, nil
	}, jwt.WithIssuer(rememberIssuer))
	if err != nil {
		return nil, domain.ErrRememberTokenInvalid
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrRememberTokenInvalid
	}
	return claims, nil
}
