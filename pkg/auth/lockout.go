package auth

import (
	"time"

	"github.com/tendant/simple-shop-auth/pkg/domain"
)

// LockoutPolicy is the per-account login throttle.
//
// An account is OPEN or BLOCKED. A BLOCKED account rejects every attempt until
// BlockDuration has elapsed since the block started; the first attempt after
// that re-opens the account but is itself rejected. In the OPEN state the
// MaxLoginHit-th consecutive failure blocks the account.
type LockoutPolicy struct {
	MaxLoginHit   int
	BlockDuration time.Duration
}

// NewLockoutPolicy builds the policy from a settings snapshot.
func NewLockoutPolicy(settings domain.BusinessSettings) LockoutPolicy {
	p := LockoutPolicy{
		MaxLoginHit:   settings.MaxLoginHit,
		BlockDuration: settings.TempBlockTime,
	}
	if p.MaxLoginHit <= 0 {
		p.MaxLoginHit = domain.DefaultMaxLoginHit
	}
	if p.BlockDuration < 0 {
		p.BlockDuration = domain.DefaultTempBlockTime
	}
	return p
}

// Admit decides whether credentials may be checked. A nil error admits the
// attempt and next equals s. Otherwise the attempt is rejected; changed
// reports whether next must be persisted.
func (p LockoutPolicy) Admit(s domain.LockoutState, now time.Time) (next domain.LockoutState, changed bool, err error) {
	if !s.IsTempBlocked {
		return s, false, nil
	}

	if s.TempBlockTime != nil {
		if elapsed := now.Sub(*s.TempBlockTime); elapsed < p.BlockDuration {
			return s, false, &domain.LockoutError{
				Kind:      domain.ErrTemporarilyBlocked,
				Remaining: p.BlockDuration - elapsed,
			}
		}
	}

	// Cooldown over (or block time missing): re-open without admitting.
	return domain.LockoutState{}, true, domain.ErrBlockExpired
}

// RecordFailure returns the state after a failed credential check on an OPEN
// account and the error to report.
func (p LockoutPolicy) RecordFailure(s domain.LockoutState, now time.Time) (domain.LockoutState, error) {
	hits := s.LoginHitCount + 1
	if hits < p.MaxLoginHit {
		return domain.LockoutState{LoginHitCount: hits}, domain.ErrCredentialMismatch
	}

	blockedAt := now
	return domain.LockoutState{
			LoginHitCount: hits,
			IsTempBlocked: true,
			TempBlockTime: &blockedAt,
		}, &domain.LockoutError{
			Kind:      domain.ErrTooManyAttempts,
			Remaining: p.BlockDuration,
		}
}

// RecordSuccess returns the state after a successful login.
func (p LockoutPolicy) RecordSuccess(domain.LockoutState) domain.LockoutState {
	return domain.LockoutState{}
}
