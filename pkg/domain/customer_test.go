package domain

import (
	"errors"
	"testing"
	"time"
)

func TestLockoutState_Equal(t *testing.T) {
	now := time.Now()
	same := now
	later := now.Add(time.Second)

	tests := []struct {
		name string
		a    LockoutState
		b    LockoutState
		want bool
	}{
		{
			name: "both open",
			a:    LockoutState{LoginHitCount: 2},
			b:    LockoutState{LoginHitCount: 2},
			want: true,
		},
		{
			name: "different count",
			a:    LockoutState{LoginHitCount: 1},
			b:    LockoutState{LoginHitCount: 2},
			want: false,
		},
		{
			name: "same block time, different pointers",
			a:    LockoutState{IsTempBlocked: true, TempBlockTime: &now},
			b:    LockoutState{IsTempBlocked: true, TempBlockTime: &same},
			want: true,
		},
		{
			name: "different block time",
			a:    LockoutState{IsTempBlocked: true, TempBlockTime: &now},
			b:    LockoutState{IsTempBlocked: true, TempBlockTime: &later},
			want: false,
		},
		{
			name: "one nil block time",
			a:    LockoutState{TempBlockTime: &now},
			b:    LockoutState{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCustomer_PendingVerification(t *testing.T) {
	tests := []struct {
		name     string
		customer Customer
		settings BusinessSettings
		want     VerificationChannel
		wantOK   bool
	}{
		{
			name:     "nothing required",
			customer: Customer{},
			settings: BusinessSettings{},
			wantOK:   false,
		},
		{
			name:     "phone required and unverified",
			customer: Customer{IsEmailVerified: false},
			settings: BusinessSettings{PhoneVerification: true, EmailVerification: true},
			want:     ChannelPhone,
			wantOK:   true,
		},
		{
			name:     "phone verified, email pending",
			customer: Customer{IsPhoneVerified: true},
			settings: BusinessSettings{PhoneVerification: true, EmailVerification: true},
			want:     ChannelEmail,
			wantOK:   true,
		},
		{
			name:     "both verified",
			customer: Customer{IsPhoneVerified: true, IsEmailVerified: true},
			settings: BusinessSettings{PhoneVerification: true, EmailVerification: true},
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.customer.PendingVerification(tt.settings)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("PendingVerification() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestErrors_Collapse(t *testing.T) {
	for _, err := range []error{ErrCustomerNotFound, ErrCredentialMismatch, ErrInactiveAccount, ErrBlockExpired} {
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%v should wrap ErrInvalidCredentials", err)
		}
	}
	if !errors.Is(ErrChallengeUnavailable, ErrChallengeFailed) {
		t.Error("ErrChallengeUnavailable should wrap ErrChallengeFailed")
	}
}

func TestLockoutError_Unwrap(t *testing.T) {
	var err error = &LockoutError{Kind: ErrTooManyAttempts, Remaining: 5 * time.Second}

	if !errors.Is(err, ErrTooManyAttempts) {
		t.Error("LockoutError should unwrap to its kind")
	}
	if errors.Is(err, ErrTemporarilyBlocked) {
		t.Error("too-many-attempts must stay distinct from temporarily-blocked")
	}

	var lockErr *LockoutError
	if !errors.As(err, &lockErr) || lockErr.Remaining != 5*time.Second {
		t.Errorf("errors.As did not recover remaining time: %+v", lockErr)
	}
}

func TestVerificationError_Unwrap(t *testing.T) {
	var err error = &VerificationError{Channel: ChannelEmail, CustomerID: 42}

	if !errors.Is(err, ErrVerificationRequired) {
		t.Error("VerificationError should unwrap to ErrVerificationRequired")
	}
	var vErr *VerificationError
	if !errors.As(err, &vErr) || vErr.CustomerID != 42 {
		t.Errorf("errors.As did not recover continuation reference: %+v", vErr)
	}
}
