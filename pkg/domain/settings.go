package domain

import "time"

// Business setting keys as stored in the business_settings table.
const (
	SettingRecaptcha         = "recaptcha"
	SettingPhoneVerification = "phone_verification"
	SettingEmailVerification = "email_verification"
	SettingMaxLoginHit       = "maximum_login_hit"
	SettingTempBlockTime     = "temporary_login_block_time"
	SettingCompanyName       = "company_name"
)

const (
	DefaultMaxLoginHit   = 5
	DefaultTempBlockTime = 5 * time.Second
)

// RecaptchaSettings selects and configures the third-party challenge.
type RecaptchaSettings struct {
	Status    bool   `json:"status"`
	SiteKey   string `json:"site_key"`
	SecretKey string `json:"secret_key"`
}

// BusinessSettings is a per-request snapshot of the storefront settings
// consulted during login.
type BusinessSettings struct {
	Recaptcha         RecaptchaSettings
	PhoneVerification bool
	EmailVerification bool
	MaxLoginHit       int
	TempBlockTime     time.Duration
	CompanyName       string
}

// DefaultBusinessSettings returns the settings used when a key is absent.
func DefaultBusinessSettings() BusinessSettings {
	return BusinessSettings{
		MaxLoginHit:   DefaultMaxLoginHit,
		TempBlockTime: DefaultTempBlockTime,
	}
}
