// Package config loads service configuration from an optional YAML file and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config.yaml"
	DefaultSheetTab   = "Feedback"
	DefaultCacheFile  = ".feedback-sheet-id"
	DefaultSheetTitle = "Admissions Assistant Feedback"
)

// Config holds all application configuration.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	// Credentials is the service-account JSON blob. Absence is not a load
	// error; the feedback store reports it on first use.
	Credentials string `yaml:"credentials"`

	SpreadsheetID    string        `yaml:"spreadsheetID"`
	SheetTab         string        `yaml:"sheetTab"`
	CacheFile        string        `yaml:"cacheFile"`
	SpreadsheetTitle string        `yaml:"spreadsheetTitle"`
	ShareWith        string        `yaml:"shareWith"`
	RequestTimeout   time.Duration `yaml:"requestTimeout"`

	AllowedOrigins []string `yaml:"allowedOrigins"`
	AdminJWTSecret string   `yaml:"adminJWTSecret"`

	ResendAPIKey    string `yaml:"resendAPIKey"`
	NotifyFromEmail string `yaml:"notifyFromEmail"`
	NotifyToEmail   string `yaml:"notifyToEmail"`
}

// Load reads config from path (defaults to config.yaml). A missing file is
// not an error; environment variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	overrideString(&c.Port, "PORT")
	overrideString(&c.LogLevel, "LOG_LEVEL")
	overrideString(&c.Credentials, "GOOGLE_SERVICE_ACCOUNT_JSON")
	overrideString(&c.SpreadsheetID, "FEEDBACK_SPREADSHEET_ID")
	overrideString(&c.SheetTab, "FEEDBACK_SHEET_TAB")
	overrideString(&c.CacheFile, "FEEDBACK_SHEET_CACHE_FILE")
	overrideString(&c.SpreadsheetTitle, "FEEDBACK_SPREADSHEET_TITLE")
	overrideString(&c.ShareWith, "FEEDBACK_SHARE_WITH")
	overrideString(&c.AdminJWTSecret, "ADMIN_JWT_SECRET")
	overrideString(&c.ResendAPIKey, "RESEND_API_KEY")
	overrideString(&c.NotifyFromEmail, "NOTIFY_FROM_EMAIL")
	overrideString(&c.NotifyToEmail, "NOTIFY_TO_EMAIL")

	if v, ok := os.LookupEnv("SHEETS_REQUEST_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: SHEETS_REQUEST_TIMEOUT: %w", err)
		}
		c.RequestTimeout = d
	}
	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok && strings.TrimSpace(v) != "" {
		c.AllowedOrigins = splitList(v)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.SheetTab == "" {
		c.SheetTab = DefaultSheetTab
	}
	if c.CacheFile == "" {
		c.CacheFile = DefaultCacheFile
	}
	if c.SpreadsheetTitle == "" {
		c.SpreadsheetTitle = DefaultSheetTitle
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: port is required")
	}
	if c.RequestTimeout < 0 {
		return errors.New("config: requestTimeout must not be negative")
	}
	if strings.ContainsAny(c.SheetTab, "[]*?:/\\") {
		return fmt.Errorf("config: sheetTab %q contains characters Sheets does not allow", c.SheetTab)
	}
	if c.NotifyToEmail != "" && c.ResendAPIKey != "" && c.NotifyFromEmail == "" {
		return errors.New("config: notifyFromEmail is required when email notifications are enabled")
	}
	return nil
}

// EmailNotificationsEnabled reports whether provisioning notices go out by email.
func (c *Config) EmailNotificationsEnabled() bool {
	return c.ResendAPIKey != "" && c.NotifyToEmail != ""
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
