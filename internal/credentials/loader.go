// Package credentials parses the Google service-account blob the feedback
// store authenticates with.
package credentials

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// EnvVar is the configuration key holding the service-account JSON.
const EnvVar = "GOOGLE_SERVICE_ACCOUNT_JSON"

// ErrNotConfigured is returned by every operation that needs credentials
// when none were loaded.
var ErrNotConfigured = errors.New("google service account credentials are not configured (set " + EnvVar + ")")

type serviceAccount struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// Loader holds the result of parsing the credential blob once at start-up.
// A Loader is either configured or carries the reason it is not.
type Loader struct {
	config *jwt.Config
	reason string
}

// Load parses raw into a JWT config for the given scopes. It never fails:
// absent or malformed credentials are logged and leave the Loader
// unconfigured. No network access happens here.
func Load(raw string, logger *slog.Logger, scopes ...string) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		logger.Warn("Feedback logging disabled until credentials are set", "env", EnvVar)
		return &Loader{reason: "missing"}
	}

	data, err := parse(raw)
	if err != nil {
		logger.Warn("Ignoring malformed service account credentials", "env", EnvVar, "error", err)
		return &Loader{reason: err.Error()}
	}

	cfg, err := google.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		logger.Warn("Ignoring unusable service account credentials", "env", EnvVar, "error", err)
		return &Loader{reason: err.Error()}
	}

	logger.Info("Service account credentials loaded", "client_email", cfg.Email)
	return &Loader{config: cfg}
}

// parse accepts plain or base64-encoded JSON and repairs private keys whose
// newlines arrived escaped.
func parse(raw string) ([]byte, error) {
	data := []byte(raw)
	if !strings.HasPrefix(raw, "{") {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, errors.New("value is neither JSON nor base64-encoded JSON")
		}
		data = decoded
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	var sa serviceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if sa.ClientEmail == "" {
		return nil, errors.New("client_email is missing")
	}
	if sa.PrivateKey == "" {
		return nil, errors.New("private_key is missing")
	}

	if strings.Contains(sa.PrivateKey, `\n`) {
		fields["private_key"] = strings.ReplaceAll(sa.PrivateKey, `\n`, "\n")
		fixed, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("re-encode JSON: %w", err)
		}
		data = fixed
	}
	return data, nil
}

// Configured reports whether usable credentials were loaded.
func (l *Loader) Configured() bool {
	return l != nil && l.config != nil
}

// JWTConfig returns the parsed credentials or an error wrapping
// ErrNotConfigured.
func (l *Loader) JWTConfig() (*jwt.Config, error) {
	if !l.Configured() {
		if l == nil || l.reason == "" || l.reason == "missing" {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, l.reason)
	}
	return l.config, nil
}

// ClientEmail is the service account address, empty when unconfigured.
func (l *Loader) ClientEmail() string {
	if !l.Configured() {
		return ""
	}
	return l.config.Email
}
