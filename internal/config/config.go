package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHTTPTimeout = 30 * time.Second
	DefaultAddr        = ":8080"
	DefaultDB          = "cropadvisor.db"
)

// Config is read from the environment. Command-line flags override it.
type Config struct {
	Client  ClientConfig
	Server  ServerConfig
	LLM     LLMConfig
	Debug   bool
	OTLPURL string
}

type ClientConfig struct {
	RecommendURL string
	HistoryURL   string
	Timeout      time.Duration
}

type ServerConfig struct {
	Addr     string
	DBPath   string
	Envelope bool
}

type LLMConfig struct {
	APIKey   string
	Model    string
	Disabled bool
}

// Load reads every CROPADVISOR_* key. Endpoint URLs are optional here;
// commands that need them call RequireClient.
func Load() (*Config, error) {
	timeout, err := getEnvDurationOrDefault("CROPADVISOR_HTTP_TIMEOUT", DefaultHTTPTimeout)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Client: ClientConfig{
			RecommendURL: getEnvOrDefault("CROPADVISOR_RECOMMEND_URL", ""),
			HistoryURL:   getEnvOrDefault("CROPADVISOR_HISTORY_URL", ""),
			Timeout:      timeout,
		},
		Server: ServerConfig{
			Addr:     getEnvOrDefault("CROPADVISOR_ADDR", DefaultAddr),
			DBPath:   getEnvOrDefault("CROPADVISOR_DB", DefaultDB),
			Envelope: getEnvBoolOrDefault("CROPADVISOR_ENVELOPE", false),
		},
		LLM: LLMConfig{
			APIKey:   getEnvOrDefault("ANTHROPIC_API_KEY", ""),
			Model:    getEnvOrDefault("CROPADVISOR_MODEL", ""),
			Disabled: getEnvBoolOrDefault("CROPADVISOR_NO_LLM", false),
		},
		Debug:   getEnvBoolOrDefault("CROPADVISOR_DEBUG", false),
		OTLPURL: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
	for key, raw := range map[string]string{
		"CROPADVISOR_RECOMMEND_URL": cfg.Client.RecommendURL,
		"CROPADVISOR_HISTORY_URL":   cfg.Client.HistoryURL,
	} {
		if err := checkURL(key, raw); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// RequireClient reports which endpoint URLs are missing.
func (c *Config) RequireClient(recommend, history bool) error {
	var missing []string
	if recommend && c.Client.RecommendURL == "" {
		missing = append(missing, "CROPADVISOR_RECOMMEND_URL")
	}
	if history && c.Client.HistoryURL == "" {
		missing = append(missing, "CROPADVISOR_HISTORY_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: %s not set", strings.Join(missing, ", "))
	}
	return nil
}

func checkURL(key, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: %s: scheme must be http or https, got %q", key, u.Scheme)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("45s") or plain seconds ("45").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("config: %s must not be negative", key)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d < 0 {
		return 0, errors.New("config: " + key + " must not be negative")
	}
	return d, nil
}
