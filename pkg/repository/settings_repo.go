package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/tendant/simple-shop-auth/pkg/domain"
)

var loginSettingKeys = []string{
	domain.SettingRecaptcha,
	domain.SettingPhoneVerification,
	domain.SettingEmailVerification,
	domain.SettingMaxLoginHit,
	domain.SettingTempBlockTime,
	domain.SettingCompanyName,
}

// SettingsRepository reads storefront business settings.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load returns a snapshot of the settings used by the login flow. Missing keys
// keep their defaults.
func (r *SettingsRepository) Load(ctx context.Context) (domain.BusinessSettings, error) {
	settings := domain.DefaultBusinessSettings()

	query := `SELECT type, COALESCE(value, '') FROM business_settings WHERE type = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(loginSettingKeys))
	if err != nil {
		return settings, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, err
		}
		if err := applySetting(&settings, key, value); err != nil {
			return settings, fmt.Errorf("business setting %s: %w", key, err)
		}
	}
	return settings, rows.Err()
}

func applySetting(s *domain.BusinessSettings, key, value string) error {
	switch key {
	case domain.SettingRecaptcha:
		var raw struct {
			Status    json.RawMessage `json:"status"`
			SiteKey   string          `json:"site_key"`
			SecretKey string          `json:"secret_key"`
		}
		if value == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(value), &raw); err != nil {
			return err
		}
		s.Recaptcha = domain.RecaptchaSettings{
			Status:    parseFlag(string(raw.Status)),
			SiteKey:   raw.SiteKey,
			SecretKey: raw.SecretKey,
		}
	case domain.SettingPhoneVerification:
		s.PhoneVerification = parseFlag(value)
	case domain.SettingEmailVerification:
		s.EmailVerification = parseFlag(value)
	case domain.SettingMaxLoginHit:
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
			s.MaxLoginHit = n
		}
	case domain.SettingTempBlockTime:
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n >= 0 {
			s.TempBlockTime = time.Duration(n) * time.Second
		}
	case domain.SettingCompanyName:
		s.CompanyName = value
	}
	return nil
}

// parseFlag accepts the loosely typed booleans stored by the admin panel:
// 1, "1", true, "true", "on".
func parseFlag(v string) bool {
	v = strings.ToLower(strings.Trim(strings.TrimSpace(v), `"`))
	switch v {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
