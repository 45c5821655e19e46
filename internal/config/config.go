package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL         = "http://127.0.0.1:3001"
	DefaultDBFileName     = "mp3index.db"
	DefaultUploadsDirName = "uploads"
	DefaultLogLevel       = "info"

	StorageBackendSQLite = "sqlite"
	StorageBackendMemory = "memory"

	DefaultMaxUploadBytes     int64 = 50 * 1024 * 1024
	DefaultMultipartMaxMemory int64 = 8 * 1024 * 1024
	DefaultCacheMaxItems            = 1000
	DefaultCacheMaxBytes      int64 = 64 * 1024 * 1024
	DefaultTransferTimeout          = "5m"

	configFileName           = ".mp3index.toml"
	configDirEnvKey          = "MP3INDEX_CONFIG_DIR"
	trustProjectConfigEnvKey = "MP3INDEX_TRUST_PROJECT_CONFIG"
)

// StorageConfig selects the storage backends.
type StorageConfig struct {
	Backend    string `toml:"backend"`
	UploadsDir string `toml:"uploads_dir"`
}

// UploadConfig defines runtime limits for memory uploads.
type UploadConfig struct {
	MaxUploadBytes     int64  `toml:"max_upload_bytes"`
	MultipartMaxMemory int64  `toml:"multipart_max_memory"`
	TokenHash          string `toml:"token_hash"`
	// TransferTimeout is a Go duration bounding one upload or media stream.
	TransferTimeout string `toml:"transfer_timeout"`
}

// CacheConfig sizes the memory lookup cache.
type CacheConfig struct {
	MaxItems int   `toml:"max_items"`
	MaxBytes int64 `toml:"max_bytes"`
}

// Config defines runtime configuration for mp3index.
type Config struct {
	APIURL                   string        `toml:"api_url"`
	DBPath                   string        `toml:"db_path"`
	LogLevel                 string        `toml:"log_level"`
	PublicURL                string        `toml:"public_url"`
	Storage                  StorageConfig `toml:"storage"`
	Uploads                  UploadConfig  `toml:"uploads"`
	Cache                    CacheConfig   `toml:"cache"`
	TrustedProjectConfigPath string        `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		Storage: StorageConfig{
			Backend: StorageBackendSQLite,
		},
		Uploads: UploadConfig{
			MaxUploadBytes:     DefaultMaxUploadBytes,
			MultipartMaxMemory: DefaultMultipartMaxMemory,
			TransferTimeout:    DefaultTransferTimeout,
		},
		Cache: CacheConfig{
			MaxItems: DefaultCacheMaxItems,
			MaxBytes: DefaultCacheMaxBytes,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"public_url",
	"storage.backend",
	"storage.uploads_dir",
	"uploads.max_upload_bytes",
	"uploads.multipart_max_memory",
	"uploads.token_hash",
	"uploads.transfer_timeout",
	"cache.max_items",
	"cache.max_bytes",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "public_url":
		return c.PublicURL, nil
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.uploads_dir":
		return c.Storage.UploadsDir, nil
	case "uploads.max_upload_bytes":
		return strconv.FormatInt(c.Uploads.MaxUploadBytes, 10), nil
	case "uploads.multipart_max_memory":
		return strconv.FormatInt(c.Uploads.MultipartMaxMemory, 10), nil
	case "uploads.token_hash":
		return c.Uploads.TokenHash, nil
	case "uploads.transfer_timeout":
		return c.Uploads.TransferTimeout, nil
	case "cache.max_items":
		return strconv.Itoa(c.Cache.MaxItems), nil
	case "cache.max_bytes":
		return strconv.FormatInt(c.Cache.MaxBytes, 10), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if cfg.DBPath == "" {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
		if cfg.Storage.UploadsDir == "" {
			cfg.Storage.UploadsDir = filepath.Join(cwd, DefaultUploadsDirName)
		}
	}

	if apiURL := os.Getenv("MP3INDEX_API_URL"); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv("MP3INDEX_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if dir := os.Getenv("MP3INDEX_UPLOADS_DIR"); dir != "" {
		cfg.Storage.UploadsDir = dir
	}
	if publicURL := os.Getenv("MP3INDEX_PUBLIC_URL"); publicURL != "" {
		cfg.PublicURL = publicURL
	}
	if backend := strings.TrimSpace(os.Getenv("MP3INDEX_STORAGE_BACKEND")); backend != "" {
		cfg.Storage.Backend = backend
	}
	if raw := strings.TrimSpace(os.Getenv("MP3INDEX_MAX_UPLOAD_BYTES")); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			cfg.Uploads.MaxUploadBytes = parsed
		}
	}
	if timeout := strings.TrimSpace(os.Getenv("MP3INDEX_TRANSFER_TIMEOUT")); timeout != "" {
		cfg.Uploads.TransferTimeout = timeout
	}
	if hash := strings.TrimSpace(os.Getenv("MP3INDEX_UPLOAD_TOKEN_HASH")); hash != "" {
		cfg.Uploads.TokenHash = hash
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// EffectiveLogLevel returns the configured log level, honoring the env override.
func (c *Config) EffectiveLogLevel() string {
	if level := strings.TrimSpace(os.Getenv("MP3INDEX_LOG_LEVEL")); level != "" {
		return level
	}
	return c.LogLevel
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "uploads.max_upload_bytes", "uploads.multipart_max_memory", "cache.max_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "cache.max_items":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "uploads.transfer_timeout":
		if _, err := parseTransferTimeout(value); err != nil {
			return nil, err
		}
		return value, nil
	case "storage.backend":
		backend, err := normalizeBackend(value)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func normalizeBackend(value string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(value))
	switch backend {
	case "":
		return StorageBackendSQLite, nil
	case StorageBackendSQLite, StorageBackendMemory:
		return backend, nil
	default:
		return "", fmt.Errorf("storage.backend must be %q or %q", StorageBackendSQLite, StorageBackendMemory)
	}
}

func (c *Config) normalize() error {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	backend, err := normalizeBackend(c.Storage.Backend)
	if err != nil {
		return err
	}
	c.Storage.Backend = backend
	c.PublicURL = strings.TrimRight(strings.TrimSpace(c.PublicURL), "/")
	if c.Uploads.MaxUploadBytes <= 0 {
		c.Uploads.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Uploads.MultipartMaxMemory <= 0 {
		c.Uploads.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.Cache.MaxItems <= 0 {
		c.Cache.MaxItems = DefaultCacheMaxItems
	}
	if c.Cache.MaxBytes <= 0 {
		c.Cache.MaxBytes = DefaultCacheMaxBytes
	}
	c.Uploads.TransferTimeout = strings.TrimSpace(c.Uploads.TransferTimeout)
	if c.Uploads.TransferTimeout == "" {
		c.Uploads.TransferTimeout = DefaultTransferTimeout
	}
	if _, err := parseTransferTimeout(c.Uploads.TransferTimeout); err != nil {
		return err
	}
	return nil
}

// TransferTimeoutDuration returns the parsed uploads.transfer_timeout.
func (c *Config) TransferTimeoutDuration() time.Duration {
	d, err := parseTransferTimeout(c.Uploads.TransferTimeout)
	if err != nil {
		d, _ = parseTransferTimeout(DefaultTransferTimeout)
	}
	return d
}

func parseTransferTimeout(value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("uploads.transfer_timeout must be a positive duration such as 5m")
	}
	return d, nil
}
