package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-shop-auth/pkg/domain"
)

const defaultLockoutRetries = 3

// CustomerStore is the account storage used by the login flow.
type CustomerStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetByPhoneOrEmail(ctx context.Context, identifier string) (*domain.Customer, error)
	CompareAndSwapLockout(ctx context.Context, id int64, expected, next domain.LockoutState) (bool, error)
}

// LoginService checks customer credentials under the lockout policy.
type LoginService struct {
	customers CustomerStore
	logger    *slog.Logger
	now       func() time.Time
	retries   int
}

// NewLoginService creates a new login service.
func NewLoginService(customers CustomerStore, logger *slog.Logger) *LoginService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginService{
		customers: customers,
		logger:    logger,
		now:       time.Now,
		retries:   defaultLockoutRetries,
	}
}

// Authenticate looks up the account by phone or email, applies the
// verification gates, then the lockout policy, then the password check.
// Every lockout transition is persisted before Authenticate returns.
//
// Errors: ErrCustomerNotFound, ErrCredentialMismatch, ErrInactiveAccount and
// ErrBlockExpired (all ErrInvalidCredentials); *VerificationError;
// *LockoutError; ErrLockoutConflict; or a storage error.
func (s *LoginService) Authenticate(ctx context.Context, settings domain.BusinessSettings, identifier, password string) (*domain.Customer, error) {
	customer, err := s.customers.GetByPhoneOrEmail(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if channel, pending := customer.PendingVerification(settings); pending {
		return nil, &domain.VerificationError{Channel: channel, CustomerID: customer.ID}
	}

	policy := NewLockoutPolicy(settings)

	var (
		checked bool
		valid   bool
	)
	for attempt := 0; ; attempt++ {
		state := customer.Lockout()
		now := s.now()

		next, changed, rejectErr := policy.Admit(state, now)
		if rejectErr == nil {
			if !checked {
				valid = customer.IsActive && VerifyPassword(password, customer.PasswordHash)
				checked = true
			}
			if valid {
				next = policy.RecordSuccess(state)
			} else {
				next, rejectErr = policy.RecordFailure(state, now)
				if !customer.IsActive && errors.Is(rejectErr, domain.ErrCredentialMismatch) {
					rejectErr = domain.ErrInactiveAccount
				}
			}
			changed = true
		}

		if !changed {
			return nil, rejectErr
		}

		swapped, err := s.customers.CompareAndSwapLockout(ctx, customer.ID, state, next)
		if err != nil {
			return nil, fmt.Errorf("persist lockout state: %w", err)
		}
		if swapped {
			customer.ApplyLockout(next)
			if rejectErr != nil {
				s.logRejection(customer, rejectErr)
				return nil, rejectErr
			}
			return customer, nil
		}

		if attempt >= s.retries {
			return nil, domain.ErrLockoutConflict
		}
		s.logger.Debug("lockout state changed concurrently, reloading", "customer_id", customer.ID)
		if customer, err = s.customers.GetByID(ctx, customer.ID); err != nil {
			return nil, err
		}
	}
}

func (s *LoginService) logRejection(c *domain.Customer, err error) {
	var lockErr *domain.LockoutError
	if errors.As(err, &lockErr) {
		s.logger.Warn("customer temporarily blocked", "customer_id", c.ID, "login_hit_count", c.LoginHitCount)
		return
	}
	s.logger.Info("customer login rejected", "customer_id", c.ID, "reason", err.Error())
}
