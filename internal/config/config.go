package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment key.
	EnvPrefix = "STYLEAI_"

	// DiscoveryPath is searched for under the XDG config directories.
	DiscoveryPath = "styleai/config.yaml"

	defaultEnvFile         = ".env"
	defaultHTTPAddr        = ":8080"
	defaultAPIBase         = "http://127.0.0.1:5000"
	defaultAPITimeout      = 60 * time.Second
	defaultMaxUploadBytes  = 10 << 20
	defaultIdleTimeout     = 30 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultEnvironment     = "development"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	HTTP        HTTPConfig
	API         APIConfig
	Upload      UploadConfig
	Session     SessionConfig
	Log         LogConfig

	// File is the YAML file that was applied, if any.
	File string
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// APIConfig points at the StyleAI backend.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// UploadConfig bounds accepted image uploads.
type UploadConfig struct {
	MaxBytes int64
}

// SessionConfig controls the session cookie.
type SessionConfig struct {
	HashKey      []byte
	BlockKey     []byte
	IdleTimeout  time.Duration
	CookieSecure bool
}

// LogConfig controls logging.
type LogConfig struct {
	Level string
}

// IsProduction reports whether the environment is production.
func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Environment) {
	case "production", "prod":
		return true
	}
	return false
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// ErrConfigFileNotFound is returned when an explicitly requested config file does not exist.
var ErrConfigFileNotFound = errors.New("config: file not found")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	configFile   string
	discover     bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.LookupEnv, relying only on provided maps and files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithConfigFile loads the YAML file at path; it must exist.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) {
		o.configFile = path
	}
}

// WithoutDiscovery skips the XDG config file search.
func WithoutDiscovery() Option {
	return func(o *loaderOptions) {
		o.discover = false
	}
}

// Load assembles configuration from defaults, the YAML config file, the .env
// file, the process environment and an explicit map, later sources winning.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		discover:     true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	filePath, fileValues, err := loadConfigFile(options.configFile, options.discover)
	if err != nil {
		return Config{}, err
	}
	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		if value, ok := fileValues[key]; ok {
			return value, true
		}
		return "", false
	}

	cfg := Config{
		Environment: stringWithDefault(lookup, EnvPrefix+"ENV", defaultEnvironment),
		HTTP: HTTPConfig{
			Addr:            stringWithDefault(lookup, EnvPrefix+"HTTP_ADDR", defaultHTTPAddr),
			ShutdownTimeout: durationWithDefault(lookup, EnvPrefix+"SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		API: APIConfig{
			BaseURL: strings.TrimRight(stringWithDefault(lookup, EnvPrefix+"API_BASE", defaultAPIBase), "/"),
			Timeout: durationWithDefault(lookup, EnvPrefix+"API_TIMEOUT", defaultAPITimeout),
		},
		Upload: UploadConfig{
			MaxBytes: int64WithDefault(lookup, EnvPrefix+"MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		},
		Session: SessionConfig{
			HashKey:      []byte(stringWithDefault(lookup, EnvPrefix+"SESSION_HASH_KEY", "")),
			BlockKey:     []byte(stringWithDefault(lookup, EnvPrefix+"SESSION_BLOCK_KEY", "")),
			IdleTimeout:  durationWithDefault(lookup, EnvPrefix+"SESSION_IDLE_TIMEOUT", defaultIdleTimeout),
			CookieSecure: boolWithDefault(lookup, EnvPrefix+"COOKIE_SECURE", false),
		},
		Log: LogConfig{
			Level: strings.ToLower(stringWithDefault(lookup, EnvPrefix+"LOG_LEVEL", defaultLogLevel)),
		},
		File: filePath,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		invalid = append(invalid, "HTTP.Addr")
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		invalid = append(invalid, "HTTP.ShutdownTimeout")
	}
	if u, err := url.Parse(cfg.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		invalid = append(invalid, "API.BaseURL")
	}
	if cfg.API.Timeout <= 0 {
		invalid = append(invalid, "API.Timeout")
	}
	if cfg.Upload.MaxBytes <= 0 {
		invalid = append(invalid, "Upload.MaxBytes")
	}
	if cfg.Session.IdleTimeout <= 0 {
		invalid = append(invalid, "Session.IdleTimeout")
	}
	if n := len(cfg.Session.HashKey); (n > 0 && n < 32) || (n == 0 && cfg.IsProduction()) {
		invalid = append(invalid, "Session.HashKey")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		invalid = append(invalid, "Session.BlockKey")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

// loadConfigFile reads a flat YAML mapping. Keys are the environment names
// without the prefix, in any case: api_base, http_addr, log_level.
func loadConfigFile(explicit string, discover bool) (string, map[string]string, error) {
	path := strings.TrimSpace(explicit)
	if path == "" {
		if !discover {
			return "", nil, nil
		}
		found, err := xdg.SearchConfigFile(DiscoveryPath)
		if err != nil {
			return "", nil, nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return "", nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return "", nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		if !strings.HasPrefix(key, EnvPrefix) {
			key = EnvPrefix + key
		}
		values[key] = value
	}
	return path, values, nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err == nil {
			return d
		}
	}
	return fallback
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
