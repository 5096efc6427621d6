package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// PhonePeConfig holds the credentials and endpoints for the PhonePe gateway.
// All fields are required; the process refuses to start without them.
type PhonePeConfig struct {
	MerchantID string
	SaltKey    string
	SaltIndex  string
	BaseURL    string
}

// SMTPConfig holds outbound email settings.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// Config is the immutable process configuration, built once at startup and
// passed into service constructors. Services never read env at call time.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	// FrontendURL is where payment redirects and reset-password links point.
	// BackendURL is this service's own public base, used for the gateway's
	// server-to-server callback URL.
	FrontendURL string
	BackendURL  string

	FirebaseCredentialsPath string

	SMTP    SMTPConfig
	PhonePe PhonePeConfig
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load builds the configuration from the environment. It returns an error
// listing every missing required key instead of failing on the first one.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		FrontendURL: os.Getenv("FRONTEND_URL"),
		BackendURL:  os.Getenv("BACKEND_URL"),

		FirebaseCredentialsPath: getenv("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json"),

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("EMAIL_FROM"),
		},

		PhonePe: PhonePeConfig{
			MerchantID: os.Getenv("PHONEPE_MERCHANT_ID"),
			SaltKey:    os.Getenv("PHONEPE_SALT_KEY"),
			SaltIndex:  getenv("PHONEPE_SALT_INDEX", "1"),
			BaseURL:    os.Getenv("PHONEPE_BASE_URL"),
		},
	}

	var missing []string
	required := map[string]string{
		"JWT_SECRET":          cfg.JWTSecret,
		"FRONTEND_URL":        cfg.FrontendURL,
		"BACKEND_URL":         cfg.BackendURL,
		"PHONEPE_MERCHANT_ID": cfg.PhonePe.MerchantID,
		"PHONEPE_SALT_KEY":    cfg.PhonePe.SaltKey,
		"PHONEPE_BASE_URL":    cfg.PhonePe.BaseURL,
	}
	for key, val := range required {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
