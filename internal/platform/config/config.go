package config

import (
	"os"
	"time"
)

// Config captures process-wide configuration, bound once at startup and passed
// explicitly to the components that need it.
type Config struct {
	Addr        string
	DatabaseURL string
	RedisURL    string

	JWTSigningKey      string
	AdminJWTSigningKey string
	UserTokenTTL       time.Duration
	AdminTokenTTL      time.Duration

	UploadDir string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	ResetURLBase string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("IASET_ADDR")
	if addr == "" {
		addr = ":3000"
	}

	jwtSigningKey := os.Getenv("JWT_SECRET")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}
	adminKey := os.Getenv("ADMIN_JWT_SECRET")
	if adminKey == "" {
		adminKey = jwtSigningKey
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}

	resetBase := os.Getenv("RESET_URL_BASE")
	if resetBase == "" {
		resetBase = "http://localhost:3000/reset-password"
	}

	return Config{
		Addr:               addr,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSigningKey:      jwtSigningKey,
		AdminJWTSigningKey: adminKey,
		UserTokenTTL:       durationEnv("USER_TOKEN_TTL", 24*time.Hour),
		AdminTokenTTL:      durationEnv("ADMIN_TOKEN_TTL", 8*time.Hour),
		UploadDir:          uploadDir,
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           os.Getenv("SMTP_PORT"),
		SMTPUsername:       os.Getenv("SMTP_USERNAME"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		MailFrom:           os.Getenv("MAIL_FROM"),
		ResetURLBase:       resetBase,
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
