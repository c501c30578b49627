package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
}

// VerificationConfig carries the code lifecycle knobs so tests and
// deployments can vary them without rebuilding.
type VerificationConfig struct {
	CodeLength            int    `json:"code_length"`
	CodeTTLMinutes        int    `json:"code_ttl_minutes"`
	MaxAttempts           int    `json:"max_attempts"`
	MaxCodesPerHour       int    `json:"max_codes_per_hour"`
	RetentionHours        int    `json:"retention_hours"`
	ResetTicketTTLMinutes int    `json:"reset_ticket_ttl_minutes"`
	CleanupSpec           string `json:"cleanup_spec"`
	CleanupRetryMinutes   int    `json:"cleanup_retry_minutes"`
}

type OAuthProviderConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURL  string `json:"redirect_url"`
}

type OAuthConfig struct {
	Google   OAuthProviderConfig `json:"google"`
	Facebook OAuthProviderConfig `json:"facebook"`
	Twitter  OAuthProviderConfig `json:"twitter"`
	LinkedIn OAuthProviderConfig `json:"linkedin"`
}

type Config struct {
	Port          int                `json:"port"`
	JWTSecret     string             `json:"jwt_secret"`
	JWTTTLHours   int                `json:"jwt_ttl_hours"`
	DefaultRoleID int64              `json:"default_role_id"`
	Database      DatabaseConfig     `json:"database"`
	Mail          MailConfig         `json:"mail"`
	Verification  VerificationConfig `json:"verification"`
	OAuth         OAuthConfig        `json:"oauth"`
	LogConfig     logger.LogConfig   `json:"log_config"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.DefaultRoleID == 0 {
		cfg.DefaultRoleID = 2
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	applyVerificationDefaults(&cfg.Verification)
	return &cfg, nil
}

func applyVerificationDefaults(v *VerificationConfig) {
	if v.CodeLength == 0 {
		v.CodeLength = 6
	}
	if v.CodeTTLMinutes == 0 {
		v.CodeTTLMinutes = 10
	}
	if v.MaxAttempts == 0 {
		v.MaxAttempts = 5
	}
	if v.MaxCodesPerHour == 0 {
		v.MaxCodesPerHour = 3
	}
	if v.RetentionHours == 0 {
		v.RetentionHours = 24
	}
	if v.ResetTicketTTLMinutes == 0 {
		v.ResetTicketTTLMinutes = 10
	}
	if v.CleanupSpec == "" {
		v.CleanupSpec = "0 * * * *"
	}
	if v.CleanupRetryMinutes == 0 {
		v.CleanupRetryMinutes = 5
	}
}
