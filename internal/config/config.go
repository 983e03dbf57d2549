// Package config loads server settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/netip"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete server configuration.
type Config struct {
	Env  string
	Port string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret   string
	FrontendURL string
	BcryptCost  int

	EmailProvider string
	EmailUser     string
	BrevoAPIKey   string
	SMTPServer    string
	SMTPUser      string
	SMTPPassword  string

	AuthRateMax    int
	AuthRateWindow time.Duration
	OTPRateMax     int
	OTPRateWindow  time.Duration

	CORSOrigins []string
	// TrustedProxies are the peers whose forwarding headers are honoured.
	TrustedProxies []netip.Prefix

	AdminEmail    string
	AdminPassword string
}

// devJWTSecret is only accepted when APP_ENV is development.
const devJWTSecret = "placegrad-dev-secret"

var errNoJWTSecret = errors.New("JWT_SECRET must be set outside development")

var keys = []string{
	"APP_ENV", "PORT",
	"MONGO_URI", "MONGO_DB",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"JWT_SECRET", "FRONTEND_URL", "BCRYPT_COST",
	"EMAIL_PROVIDER", "EMAIL_USER", "BREVO_API_KEY",
	"SMTP_SERVER", "SMTP_USER", "SMTP_PASSWORD",
	"AUTH_RATE_MAX", "AUTH_RATE_WINDOW", "OTP_RATE_MAX", "OTP_RATE_WINDOW",
	"CORS_ORIGINS", "TRUSTED_PROXIES",
	"ADMIN_EMAIL", "ADMIN_PASSWORD",
}

// Load reads the .env files given (".env" when none) and then the process
// environment, which wins over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		log.Println("Warning: .env file not found")
	}

	v := viper.New()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("PORT", "5000")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "placegrad")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("EMAIL_PROVIDER", "brevo")
	v.SetDefault("AUTH_RATE_MAX", 5)
	v.SetDefault("AUTH_RATE_WINDOW", 15*time.Minute)
	v.SetDefault("OTP_RATE_MAX", 3)
	v.SetDefault("OTP_RATE_WINDOW", 5*time.Minute)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	cfg := &Config{
		Env:            v.GetString("APP_ENV"),
		Port:           v.GetString("PORT"),
		MongoURI:       v.GetString("MONGO_URI"),
		MongoDB:        v.GetString("MONGO_DB"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		FrontendURL:    v.GetString("FRONTEND_URL"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		EmailProvider:  strings.ToLower(v.GetString("EMAIL_PROVIDER")),
		EmailUser:      v.GetString("EMAIL_USER"),
		BrevoAPIKey:    v.GetString("BREVO_API_KEY"),
		SMTPServer:     v.GetString("SMTP_SERVER"),
		SMTPUser:       v.GetString("SMTP_USER"),
		SMTPPassword:   v.GetString("SMTP_PASSWORD"),
		AuthRateMax:    v.GetInt("AUTH_RATE_MAX"),
		AuthRateWindow: v.GetDuration("AUTH_RATE_WINDOW"),
		OTPRateMax:     v.GetInt("OTP_RATE_MAX"),
		OTPRateWindow:  v.GetDuration("OTP_RATE_WINDOW"),
		CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),
		AdminEmail:     v.GetString("ADMIN_EMAIL"),
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),
	}

	proxies, err := parsePrefixes(splitList(v.GetString("TRUSTED_PROXIES")))
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	cfg.TrustedProxies = proxies

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, errNoJWTSecret
		}
		log.Println("Warning: JWT_SECRET not set, using development secret")
		cfg.JWTSecret = devJWTSecret
	}
	switch cfg.EmailProvider {
	case "brevo", "smtp":
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q (want brevo or smtp)", cfg.EmailProvider)
	}
	return cfg, nil
}

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePrefixes accepts CIDR prefixes and bare addresses.
func parsePrefixes(list []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, s := range list {
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, err
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
