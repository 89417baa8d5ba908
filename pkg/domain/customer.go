package domain

import "time"

// Customer represents a storefront customer account.
type Customer struct {
	ID              int64
	Name            string
	Phone           string
	Email           string
	PasswordHash    string
	IsActive        bool
	IsPhoneVerified bool
	IsEmailVerified bool
	LoginHitCount   int
	IsTempBlocked   bool
	TempBlockTime   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Lockout returns the throttling fields of the account.
func (c *Customer) Lockout() LockoutState {
	return LockoutState{
		LoginHitCount: c.LoginHitCount,
		IsTempBlocked: c.IsTempBlocked,
		TempBlockTime: c.TempBlockTime,
	}
}

// ApplyLockout copies a persisted lockout state back onto the customer.
func (c *Customer) ApplyLockout(s LockoutState) {
	c.LoginHitCount = s.LoginHitCount
	c.IsTempBlocked = s.IsTempBlocked
	c.TempBlockTime = s.TempBlockTime
}

// LockoutState is the unit of compare-and-set persistence for login throttling.
// IsTempBlocked implies TempBlockTime != nil.
type LockoutState struct {
	LoginHitCount int
	IsTempBlocked bool
	TempBlockTime *time.Time
}

// Equal compares two states by value.
func (s LockoutState) Equal(o LockoutState) bool {
	if s.LoginHitCount != o.LoginHitCount || s.IsTempBlocked != o.IsTempBlocked {
		return false
	}
	if s.TempBlockTime == nil || o.TempBlockTime == nil {
		return s.TempBlockTime == nil && o.TempBlockTime == nil
	}
	return s.TempBlockTime.Equal(*o.TempBlockTime)
}

// VerificationChannel identifies a contact channel that may require verification.
type VerificationChannel string

const (
	ChannelPhone VerificationChannel = "phone"
	ChannelEmail VerificationChannel = "email"
)

// PendingVerification returns the first channel the settings require that the
// customer has not verified yet. Phone is checked before email.
func (c *Customer) PendingVerification(settings BusinessSettings) (VerificationChannel, bool) {
	if settings.PhoneVerification && !c.IsPhoneVerified {
		return ChannelPhone, true
	}
	if settings.EmailVerification && !c.IsEmailVerified {
		return ChannelEmail, true
	}
	return "", false
}
