package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int
	HomeURL    string
	LangFile   string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Sessions
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	SessionCookieName string
	SessionTTL        time.Duration
	CookieSecure      bool

	// Remember me
	RememberSecret string
	RememberTTL    time.Duration

	// reCAPTCHA
	RecaptchaVerifyURL string
	RecaptchaTimeout   time.Duration
	RecaptchaFailOpen  bool

	// Verification codes
	VerificationSecret     string
	VerificationCodePeriod time.Duration

	SMTP            SMTPConfig
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Validation      ValidationConfig
}

// SMTPConfig holds outgoing mail settings. Email delivery is disabled when
// Host is empty.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// RateLimitConfig holds per-IP limits for the login surface.
type RateLimitConfig struct {
	Enabled bool

	LoginRequestsPerWindow int
	LoginWindow            time.Duration

	CaptchaRequestsPerWindow int
	CaptchaWindow            time.Duration

	VerifyRequestsPerWindow int
	VerifyWindow            time.Duration
}

// SecurityHeadersConfig holds response security header values. Empty values
// are not sent.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// ValidationConfig holds input limits.
type ValidationConfig struct {
	MaxRequestBodySize int64
	MaxIdentifierLen   int
	MaxPasswordLen     int
}

const minRememberSecretLen = 32

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		HomeURL:    getEnv("HOME_URL", "/"),
		LangFile:   getEnv("LANG_FILE", ""),

		// Database defaults (matches podman setup: make postgres-start)
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 25432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "shop"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "shop_session"),
		SessionTTL:        getEnvDuration("SESSION_TTL", 2*time.Hour),
		CookieSecure:      getEnvBool("COOKIE_SECURE", false),

		RememberSecret: getEnv("REMEMBER_SECRET", ""),
		RememberTTL:    getEnvDuration("REMEMBER_TTL", 30*24*time.Hour),

		RecaptchaVerifyURL: getEnv("RECAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		RecaptchaTimeout:   getEnvDuration("RECAPTCHA_TIMEOUT", 5*time.Second),
		RecaptchaFailOpen:  getEnvBool("RECAPTCHA_FAIL_OPEN", false),

		VerificationSecret:     getEnv("VERIFICATION_SECRET", ""),
		VerificationCodePeriod: getEnvDuration("VERIFICATION_CODE_PERIOD", 5*time.Minute),

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
			FromName: getEnv("SMTP_FROM_NAME", ""),
		},

		RateLimit: RateLimitConfig{
			Enabled:                  getEnvBool("RATE_LIMIT_ENABLED", true),
			LoginRequestsPerWindow:   getEnvInt("RATE_LIMIT_LOGIN_REQUESTS", 20),
			LoginWindow:              getEnvDuration("RATE_LIMIT_LOGIN_WINDOW", time.Minute),
			CaptchaRequestsPerWindow: getEnvInt("RATE_LIMIT_CAPTCHA_REQUESTS", 30),
			CaptchaWindow:            getEnvDuration("RATE_LIMIT_CAPTCHA_WINDOW", time.Minute),
			VerifyRequestsPerWindow:  getEnvInt("RATE_LIMIT_VERIFY_REQUESTS", 5),
			VerifyWindow:             getEnvDuration("RATE_LIMIT_VERIFY_WINDOW", 15*time.Minute),
		},

		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'self'; script-src 'self' https://www.google.com https://www.gstatic.com; frame-src https://www.google.com"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 0),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			XSSProtection:      getEnv("SECURITY_XSS_PROTECTION", "1; mode=block"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin"),
			PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", ""),
		},

		Validation: ValidationConfig{
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 64*1024)),
			MaxIdentifierLen:   getEnvInt("MAX_IDENTIFIER_LENGTH", 255),
			MaxPasswordLen:     getEnvInt("MAX_PASSWORD_LENGTH", 128),
		},
	}

	if cfg.RememberSecret == "" {
		return nil, fmt.Errorf("REMEMBER_SECRET is required")
	}
	if len(cfg.RememberSecret) < minRememberSecretLen {
		return nil, fmt.Errorf("REMEMBER_SECRET must be at least %d characters", minRememberSecretLen)
	}
	if cfg.VerificationSecret == "" {
		cfg.VerificationSecret = cfg.RememberSecret
	}

	return cfg, nil
}

// HasSMTP returns true if outgoing email is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTP.Host != "" && c.SMTP.From != ""
}

// HasRedis returns true if sessions should be kept in Redis.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
