package domain

import (
	"errors"
	"fmt"
	"time"
)

// Challenge errors
var (
	ErrChallengeFailed = errors.New("challenge failed")
	// ErrChallengeUnavailable reports that the verification endpoint could not
	// give an answer. It wraps ErrChallengeFailed.
	ErrChallengeUnavailable = fmt.Errorf("%w: verification endpoint unavailable", ErrChallengeFailed)
)

// Authentication errors. Not-found, mismatch and inactive all wrap
// ErrInvalidCredentials and are shown to the customer as one message.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrCustomerNotFound     = fmt.Errorf("%w: customer not found", ErrInvalidCredentials)
	ErrCredentialMismatch   = fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
	ErrInactiveAccount      = fmt.Errorf("%w: account inactive", ErrInvalidCredentials)
	ErrBlockExpired         = fmt.Errorf("%w: temporary block expired", ErrInvalidCredentials)
	ErrVerificationRequired = errors.New("verification required")
	ErrTemporarilyBlocked   = errors.New("temporarily blocked")
	ErrTooManyAttempts      = errors.New("too many attempts")
	ErrLockoutConflict      = errors.New("lockout state changed concurrently")
)

// Verification and session errors
var (
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrNothingToVerify         = errors.New("no verification pending")
	ErrRememberTokenInvalid    = errors.New("invalid remember token")
)

// VerificationError is returned when a channel must be verified before login.
// CustomerID is the continuation reference for the verification flow.
type VerificationError struct {
	Channel    VerificationChannel
	CustomerID int64
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s verification required for customer %d", e.Channel, e.CustomerID)
}

func (e *VerificationError) Unwrap() error {
	return ErrVerificationRequired
}

// LockoutError carries the remaining block time. Kind is ErrTemporarilyBlocked
// for attempts made during a block and ErrTooManyAttempts for the attempt that
// started it.
type LockoutError struct {
	Kind      error
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%v: retry after %s", e.Kind, e.Remaining)
}

func (e *LockoutError) Unwrap() error {
	return e.Kind
}
