package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/tendant/simple-shop-auth/pkg/domain"
)

func TestNewLockoutPolicy_Defaults(t *testing.T) {
	p := NewLockoutPolicy(domain.BusinessSettings{MaxLoginHit: 0, TempBlockTime: -1})

	if p.MaxLoginHit != domain.DefaultMaxLoginHit {
		t.Errorf("MaxLoginHit = %d, want %d", p.MaxLoginHit, domain.DefaultMaxLoginHit)
	}
	if p.BlockDuration != domain.DefaultTempBlockTime {
		t.Errorf("BlockDuration = %v, want %v", p.BlockDuration, domain.DefaultTempBlockTime)
	}
}

func TestLockoutPolicy_Admit(t *testing.T) {
	p := LockoutPolicy{MaxLoginHit: 5, BlockDuration: 5 * time.Second}
	now := time.Now()
	recent := now.Add(-2 * time.Second)
	expired := now.Add(-5 * time.Second)

	tests := []struct {
		name        string
		state       domain.LockoutState
		wantChanged bool
		wantErr     error
		wantNext    domain.LockoutState
	}{
		{
			name:     "open account admitted",
			state:    domain.LockoutState{LoginHitCount: 3},
			wantNext: domain.LockoutState{LoginHitCount: 3},
		},
		{
			name:     "blocked within cooldown",
			state:    domain.LockoutState{LoginHitCount: 5, IsTempBlocked: true, TempBlockTime: &recent},
			wantErr:  domain.ErrTemporarilyBlocked,
			wantNext: domain.LockoutState{LoginHitCount: 5, IsTempBlocked: true, TempBlockTime: &recent},
		},
		{
			name:        "blocked exactly at cooldown end",
			state:       domain.LockoutState{LoginHitCount: 5, IsTempBlocked: true, TempBlockTime: &expired},
			wantChanged: true,
			wantErr:     domain.ErrInvalidCredentials,
			wantNext:    domain.LockoutState{},
		},
		{
			name:        "blocked without block time",
			state:       domain.LockoutState{LoginHitCount: 2, IsTempBlocked: true},
			wantChanged: true,
			wantErr:     domain.ErrInvalidCredentials,
			wantNext:    domain.LockoutState{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, changed, err := p.Admit(tt.state, now)

			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if !next.Equal(tt.wantNext) {
				t.Errorf("next = %+v, want %+v", next, tt.wantNext)
			}
		})
	}
}

func TestLockoutPolicy_Admit_RemainingTime(t *testing.T) {
	p := LockoutPolicy{MaxLoginHit: 5, BlockDuration: 5 * time.Second}
	now := time.Now()
	blockedAt := now.Add(-2 * time.Second)

	_, _, err := p.Admit(domain.LockoutState{IsTempBlocked: true, TempBlockTime: &blockedAt}, now)

	var lockErr *domain.LockoutError
	if !errors.As(err, &lockErr) {
		t.Fatalf("error = %v, want *LockoutError", err)
	}
	if lockErr.Remaining != 3*time.Second {
		t.Errorf("Remaining = %v, want 3s", lockErr.Remaining)
	}
}

func TestLockoutPolicy_RecordFailure_Increments(t *testing.T) {
	p := LockoutPolicy{MaxLoginHit: 5, BlockDuration: 5 * time.Second}
	now := time.Now()

	for count := 0; count < p.MaxLoginHit-1; count++ {
		next, err := p.RecordFailure(domain.LockoutState{LoginHitCount: count}, now)

		if !errors.Is(err, domain.ErrCredentialMismatch) {
			t.Errorf("count %d: error = %v, want ErrCredentialMismatch", count, err)
		}
		if next.LoginHitCount != count+1 || next.IsTempBlocked || next.TempBlockTime != nil {
			t.Errorf("count %d: next = %+v, want open with count %d", count, next, count+1)
		}
	}
}

func TestLockoutPolicy_RecordFailure_Blocks(t *testing.T) {
	p := LockoutPolicy{MaxLoginHit: 5, BlockDuration: 5 * time.Second}
	now := time.Now()

	next, err := p.RecordFailure(domain.LockoutState{LoginHitCount: 4}, now)

	if !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("error = %v, want ErrTooManyAttempts", err)
	}
	if !next.IsTempBlocked || next.TempBlockTime == nil || !next.TempBlockTime.Equal(now) {
		t.Errorf("next = %+v, want blocked at %v", next, now)
	}

	var lockErr *domain.LockoutError
	if errors.As(err, &lockErr) && lockErr.Remaining != 5*time.Second {
		t.Errorf("Remaining = %v, want 5s", lockErr.Remaining)
	}
}

func TestLockoutPolicy_RecordSuccess(t *testing.T) {
	p := LockoutPolicy{MaxLoginHit: 5, BlockDuration: 5 * time.Second}

	next := p.RecordSuccess(domain.LockoutState{LoginHitCount: 3})
	if !next.Equal(domain.LockoutState{}) {
		t.Errorf("next = %+v, want zero state", next)
	}
}
