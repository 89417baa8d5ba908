package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/tendant/simple-shop-auth/pkg/domain"
)

func TestSettingsRepository_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM business_settings").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"type", "value"}).
			AddRow(domain.SettingRecaptcha, `{"status":"1","site_key":"site","secret_key":"secret"}`).
			AddRow(domain.SettingPhoneVerification, "0").
			AddRow(domain.SettingEmailVerification, "1").
			AddRow(domain.SettingMaxLoginHit, "3").
			AddRow(domain.SettingTempBlockTime, "60").
			AddRow(domain.SettingCompanyName, "Acme Mart"))

	settings, err := NewSettingsRepository(db).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := domain.BusinessSettings{
		Recaptcha:         domain.RecaptchaSettings{Status: true, SiteKey: "site", SecretKey: "secret"},
		PhoneVerification: false,
		EmailVerification: true,
		MaxLoginHit:       3,
		TempBlockTime:     60 * time.Second,
		CompanyName:       "Acme Mart",
	}
	if settings != want {
		t.Errorf("Load() = %+v, want %+v", settings, want)
	}
}

func TestSettingsRepository_Load_Defaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM business_settings").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"type", "value"}).
			AddRow(domain.SettingMaxLoginHit, "not-a-number"))

	settings, err := NewSettingsRepository(db).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if settings.MaxLoginHit != domain.DefaultMaxLoginHit {
		t.Errorf("MaxLoginHit = %d, want %d", settings.MaxLoginHit, domain.DefaultMaxLoginHit)
	}
	if settings.TempBlockTime != domain.DefaultTempBlockTime {
		t.Errorf("TempBlockTime = %v, want %v", settings.TempBlockTime, domain.DefaultTempBlockTime)
	}
	if settings.Recaptcha.Status {
		t.Error("recaptcha should be disabled by default")
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{`"1"`, true},
		{"true", true},
		{"on", true},
		{"0", false},
		{"", false},
		{"false", false},
	}

	for _, tt := range tests {
		if got := parseFlag(tt.in); got != tt.want {
			t.Errorf("parseFlag(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
