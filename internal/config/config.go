package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"gopkg.in/yaml.v3"

	"bondsim/internal/log"
	"bondsim/internal/yield/source"
)

// FileEnv names the optional YAML file whose values seed the environment.
const FileEnv = "BONDSIM_CONFIG"

// DefaultDriveFileID is the shared historical auction workbook.
const DefaultDriveFileID = "1uBNpotluswG-Z5m2zqTo-7ibG1gB99Vs"

type Config struct {
	// HTTP Server
	Port               string
	PublicBaseURL      string
	RateLimitPerMinute int

	// Reports
	ReportsDir          string
	Currency            string
	GoogleSpreadsheetID string

	// Run store
	RunStore     string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Result cache
	CacheEnabled bool
	CacheSize    int
	CacheTTL     time.Duration
	RedisAddr    string

	// Yield model
	YieldSource      string
	YieldDataPath    string
	YieldDriveFileID string
	YieldDataURL     string
	GoogleAPIKey     string
	ForestTrees      int
	ForestSeed       int64

	// Worker
	ExportBatchSize int
	ExportInterval  time.Duration

	LogLevel string
}

// Load reads the configuration from the environment. When BONDSIM_CONFIG
// names a YAML file, its values are used for keys the environment leaves unset.
func Load() (*Config, error) {
	e := env{}
	if path := os.Getenv(FileEnv); path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		e.file = file
	}

	cfg := &Config{
		Port:               e.get("PORT", "8081"),
		PublicBaseURL:      e.get("PUBLIC_BASE_URL", ""),
		RateLimitPerMinute: e.getInt("RATE_LIMIT_PER_MINUTE", 60),

		ReportsDir:          e.get("REPORTS_DIR", "./reports"),
		Currency:            strings.ToUpper(e.get("CURRENCY", "ZMW")),
		GoogleSpreadsheetID: e.get("GOOGLE_SPREADSHEET_ID", ""),

		RunStore:     e.get("RUN_STORE", "memory"),
		SQLiteDBPath: e.get("SQLITE_DB_PATH", "./data/bondsim.db"),

		AMQPURL:      e.get("AMQP_URL", ""),
		AMQPExchange: e.get("AMQP_EXCHANGE", "bondsim"),
		AMQPQueue:    e.get("AMQP_QUEUE", "export_reports"),

		CacheEnabled: e.getBool("CACHE_ENABLED", true),
		CacheSize:    e.getInt("CACHE_SIZE", 256),
		CacheTTL:     e.getDuration("CACHE_TTL", time.Hour),
		RedisAddr:    e.get("REDIS_ADDR", ""),

		YieldSource:      e.get("YIELD_SOURCE", source.KindDrive),
		YieldDataPath:    e.get("YIELD_DATA_PATH", ""),
		YieldDriveFileID: e.get("YIELD_DRIVE_FILE_ID", DefaultDriveFileID),
		YieldDataURL:     e.get("YIELD_DATA_URL", ""),
		GoogleAPIKey:     e.get("GOOGLE_API_KEY", ""),
		ForestTrees:      e.getInt("FOREST_TREES", 200),
		ForestSeed:       int64(e.getInt("FOREST_SEED", 42)),

		ExportBatchSize: e.getInt("EXPORT_BATCH_SIZE", 10),
		ExportInterval:  e.getDuration("EXPORT_INTERVAL", time.Minute),

		LogLevel: e.get("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// SourceConfig returns the yield data source settings.
func (c *Config) SourceConfig() source.Config {
	return source.Config{
		Kind:        c.YieldSource,
		Path:        c.YieldDataPath,
		DriveFileID: c.YieldDriveFileID,
		URL:         c.YieldDataURL,
		APIKey:      c.GoogleAPIKey,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.PublicBaseURL != "" {
		if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid public base URL '%s': must be an absolute URL", c.PublicBaseURL))
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	if c.ReportsDir == "" {
		errors = append(errors, "reports directory cannot be empty")
	}

	if money.GetCurrency(c.Currency) == nil {
		errors = append(errors, fmt.Sprintf("unknown currency '%s'", c.Currency))
	}

	validStores := []string{"memory", "sqlite"}
	isValidStore := false
	for _, s := range validStores {
		if c.RunStore == s {
			isValidStore = true
			break
		}
	}
	if !isValidStore {
		errors = append(errors, fmt.Sprintf("invalid run store '%s': must be one of %v", c.RunStore, validStores))
	}

	if c.RunStore == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite run store")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheEnabled {
		if c.CacheSize < 1 {
			errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
		}
		if c.CacheTTL <= 0 {
			errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
		}
	}

	switch c.YieldSource {
	case source.KindFile:
		if c.YieldDataPath == "" {
			errors = append(errors, "YIELD_DATA_PATH is required for the file yield source")
		}
	case source.KindDrive:
		if c.YieldDriveFileID == "" {
			errors = append(errors, "YIELD_DRIVE_FILE_ID is required for the drive yield source")
		}
	case source.KindURL:
		if u, err := url.Parse(c.YieldDataURL); c.YieldDataURL == "" || err != nil || u.Scheme == "" {
			errors = append(errors, fmt.Sprintf("invalid yield data URL '%s'", c.YieldDataURL))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid yield source '%s': must be one of [file drive url]", c.YieldSource))
	}

	if c.ForestTrees < 1 || c.ForestTrees > 5000 {
		errors = append(errors, fmt.Sprintf("invalid forest size %d: must be between 1 and 5000", c.ForestTrees))
	}

	if c.ExportBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid export batch size %d: must be at least 1", c.ExportBatchSize))
	} else if c.ExportBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid export batch size %d: must be at most 1000", c.ExportBatchSize))
	}

	if c.ExportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// readFile decodes a flat YAML mapping. Keys are matched case-insensitively
// against the environment variable names, so run_store and RUN_STORE are the same key.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

type env struct {
	file map[string]string
}

func (e env) lookup(key string) (string, bool) {
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	value, ok := e.file[key]
	return value, ok && value != ""
}

func (e env) get(key, defaultValue string) string {
	if value, ok := e.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (e env) getInt(key string, defaultValue int) int {
	if value, ok := e.lookup(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func (e env) getBool(key string, defaultValue bool) bool {
	if value, ok := e.lookup(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (e env) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := e.lookup(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
