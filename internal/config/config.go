package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Environment keys recognized by the agent. Nothing else is consumed.
const (
	EnvDeviceIP       = "DEVICE_IP"
	EnvDeviceUser     = "DEVICE_USER"
	EnvDevicePassword = "DEVICE_PASSWORD"
	EnvDevicePort     = "DEVICE_PORT"
	EnvDeviceName     = "DEVICE_NAME"
	EnvDBURI          = "DB_URI"
	EnvAPIURL         = "API_URL"
	EnvAPIKey         = "API_KEY"

	defaultDevicePort = 8000
)

// Config enumerates every option the sync core consumes. Exactly one of
// DBURI and APIURL selects the sink.
type Config struct {
	IP       string
	User     string
	Password string
	Port     int
	Name     string

	DBURI  string
	APIURL string
	APIKey string
}

// Load reads the agent configuration from the environment and validates it.
// Missing or conflicting required keys fail fast instead of defaulting.
func Load() (Config, error) {
	cfg := Config{
		IP:       String(EnvDeviceIP, ""),
		User:     String(EnvDeviceUser, ""),
		Password: String(EnvDevicePassword, ""),
		Port:     Int(EnvDevicePort, defaultDevicePort),
		Name:     String(EnvDeviceName, ""),
		DBURI:    String(EnvDBURI, ""),
		APIURL:   String(EnvAPIURL, ""),
		APIKey:   String(EnvAPIKey, ""),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every required option is present and consistent.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.IP) == "" {
		missing = append(missing, EnvDeviceIP)
	}
	if strings.TrimSpace(c.User) == "" {
		missing = append(missing, EnvDeviceUser)
	}
	if strings.TrimSpace(c.Password) == "" {
		missing = append(missing, EnvDevicePassword)
	}
	if len(missing) > 0 {
		return errors.Errorf("config: missing required keys: %s", strings.Join(missing, ", "))
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("config: invalid device port %d", c.Port)
	}

	hasDB := strings.TrimSpace(c.DBURI) != ""
	hasAPI := strings.TrimSpace(c.APIURL) != ""
	switch {
	case hasDB && hasAPI:
		return errors.Errorf("config: %s and %s are mutually exclusive", EnvDBURI, EnvAPIURL)
	case !hasDB && !hasAPI:
		return errors.Errorf("config: one of %s or %s is required", EnvDBURI, EnvAPIURL)
	case hasAPI && strings.TrimSpace(c.APIKey) == "":
		return errors.Errorf("config: %s is required when %s is set", EnvAPIKey, EnvAPIURL)
	}
	return nil
}

// SinkKind reports which sink variant the configuration selects.
func (c Config) SinkKind() string {
	if strings.TrimSpace(c.DBURI) != "" {
		return "sqlite"
	}
	return "http"
}

// Redacted returns a loggable summary without credentials.
func (c Config) Redacted() string {
	return fmt.Sprintf("device=%s:%d user=%s name=%q sink=%s", c.IP, c.Port, c.User, c.Name, c.SinkKind())
}
