package airelay

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads and parses a config file from the given path.
// Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ApplyEnv overlays environment settings on cfg. Environment values win over
// the config file. getenv is os.Getenv in production.
func ApplyEnv(cfg Config, getenv func(string) string) Config {
	if v := getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := getenv("DOCUMENT_ROOT"); v != "" {
		cfg.DocumentRoot = v
	}
	if v := getenv("BODY_LIMIT"); v != "" {
		cfg.BodyLimit = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return cfg
}

// WithDefaults fills every unset field with its default.
func WithDefaults(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.Security.CDNOrigins == nil {
		cfg.Security.CDNOrigins = []string{DefaultCDN}
	}
	if cfg.Security.ConnectOrigins == nil {
		cfg.Security.ConnectOrigins = append([]string(nil), DefaultConnectOrigins...)
	}
	return cfg
}

// BodyLimitBytes returns the parsed body limit.
func (c Config) BodyLimitBytes() (int64, error) {
	return ParseBodyLimit(c.BodyLimit)
}

// ParseBodyLimit parses a size string such as "10MiB" or "512KB". IEC units
// are powers of 1024, SI units powers of 1000.
func ParseBodyLimit(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid body limit %q: %w", s, err)
	}
	if n == 0 || n > 1<<40 {
		return 0, fmt.Errorf("body limit %q out of range", s)
	}
	return int64(n), nil
}

// ValidateConfig validates a defaulted Config for correctness.
func ValidateConfig(cfg Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", cfg.Port)
	}

	if _, err := ParseBodyLimit(cfg.BodyLimit); err != nil {
		return err
	}

	for _, o := range cfg.Security.CDNOrigins {
		if err := validateOrigin(o); err != nil {
			return fmt.Errorf("cdn_origins: %w", err)
		}
	}
	for _, o := range cfg.Security.ConnectOrigins {
		if err := validateOrigin(o); err != nil {
			return fmt.Errorf("connect_origins: %w", err)
		}
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}

	if cfg.DocumentRoot != "" {
		fi, err := os.Stat(cfg.DocumentRoot)
		if err != nil {
			return fmt.Errorf("document root: %w", err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("document root %q is not a directory", cfg.DocumentRoot)
		}
	}

	return nil
}

// validateOrigin accepts scheme://host[:port] with no path, query or
// fragment, which is all a CSP host-source needs here.
func validateOrigin(origin string) error {
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("origin %q must use http or https", origin)
	}
	if u.Host == "" || (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("origin %q must be scheme://host", origin)
	}
	if strings.ContainsAny(origin, " ;'") {
		return fmt.Errorf("origin %q contains CSP separator characters", origin)
	}
	return nil
}
