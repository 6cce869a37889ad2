package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string
	AppEnv      string
	LogLevel    string

	// AdminJWTSecret verifies access tokens issued by the account directory
	AdminJWTSecret string

	OTCSalt    string
	OTCDevMode bool

	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string

	// RedisURL is optional; without it rate limits are kept per process
	RedisURL string

	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads configuration from a .env file (if present) and environment variables.
// Environment variables win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	return load(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTC_DEV_MODE", false)
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SWEEP_INTERVAL", "15m")
	return v
}

func load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:          v.GetString("DATABASE_URL"),
		Port:                 v.GetString("PORT"),
		AppEnv:               strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:             strings.ToLower(v.GetString("LOG_LEVEL")),
		AdminJWTSecret:       v.GetString("ADMIN_JWT_SECRET"),
		OTCSalt:              v.GetString("OTC_SALT"),
		OTCDevMode:           v.GetBool("OTC_DEV_MODE"),
		TwilioAccountSID:     v.GetString("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      v.GetString("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: v.GetString("TWILIO_WHATSAPP_NUMBER"),
		RedisURL:             v.GetString("REDIS_URL"),
	}

	var err error
	if cfg.SessionTTL, err = duration(v, "SESSION_TTL"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = duration(v, "SWEEP_INTERVAL"); err != nil {
		return nil, err
	}

	required := map[string]string{
		"DATABASE_URL":     cfg.DatabaseURL,
		"ADMIN_JWT_SECRET": cfg.AdminJWTSecret,
		"OTC_SALT":         cfg.OTCSalt,
	}
	if !cfg.OTCDevMode {
		required["TWILIO_ACCOUNT_SID"] = cfg.TwilioAccountSID
		required["TWILIO_AUTH_TOKEN"] = cfg.TwilioAuthToken
		required["TWILIO_WHATSAPP_NUMBER"] = cfg.TwilioWhatsAppNumber
	}
	for _, name := range []string{
		"DATABASE_URL", "ADMIN_JWT_SECRET", "OTC_SALT",
		"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_WHATSAPP_NUMBER",
	} {
		if value, ok := required[name]; ok && value == "" {
			return nil, fmt.Errorf("%s environment variable is required", name)
		}
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v.GetString(key), err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
