package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Data sources understood by the backend factory.
const (
	SourceFile   = "file"
	SourceRemote = "remote"
	SourceSheets = "sheets"
	SourceMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port string

	// Source selection
	DataSource string

	// Local workbook
	DataFile  string
	DataSheet string

	// Private repository download
	RemoteURL        string
	RemoteToken      string
	RemoteAuthScheme string
	RemoteTimeout    time.Duration

	// Raw table cache
	CacheTTL        time.Duration
	CacheMaxEntries int

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string

	// Load history, empty disables it
	HistoryDBPath    string
	HistoryRetention time.Duration

	// AMQP, empty URL disables it
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Refresh endpoint
	RefreshRatePerMinute int
	RefreshInterval      time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8501"),

		DataSource: getEnv("DATA_SOURCE", SourceRemote),
		DataFile:   getEnv("DATA_FILE", "./data/custos.xlsx"),
		DataSheet:  getEnv("DATA_SHEET", ""),

		RemoteURL:        getEnv("PRIVATE_REPO_URL", ""),
		RemoteToken:      getEnv("GITHUB_TOKEN", ""),
		RemoteAuthScheme: getEnv("REMOTE_AUTH_SCHEME", "token"),
		RemoteTimeout:    getEnvDuration("REMOTE_TIMEOUT", 30*time.Second),

		CacheTTL:        getEnvDuration("CACHE_TTL", 10*time.Minute),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 16),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		HistoryDBPath:    getEnv("HISTORY_DB_PATH", ""),
		HistoryRetention: getEnvDuration("HISTORY_RETENTION", 90*24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "custos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "custos_refresh"),

		RefreshRatePerMinute: getEnvInt("REFRESH_RATE_PER_MINUTE", 6),
		RefreshInterval:      getEnvDuration("REFRESH_INTERVAL", 0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validSources := []string{SourceFile, SourceRemote, SourceSheets, SourceMemory}
	if !slices.Contains(validSources, c.DataSource) {
		errors = append(errors, fmt.Sprintf("invalid data source '%s': must be one of %v", c.DataSource, validSources))
	}

	switch c.DataSource {
	case SourceFile:
		if c.DataFile == "" {
			errors = append(errors, "DATA_FILE cannot be empty when using file source")
		} else if _, err := os.Stat(c.DataFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("data file does not exist: %s", c.DataFile))
		}
	case SourceRemote:
		// Missing credentials are not fatal: the dashboard renders its
		// no-data state instead. The URL must still be well formed.
		if c.RemoteURL != "" {
			if u, err := url.Parse(c.RemoteURL); err != nil {
				errors = append(errors, fmt.Sprintf("invalid PRIVATE_REPO_URL '%s': %v", c.RemoteURL, err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				errors = append(errors, fmt.Sprintf("invalid PRIVATE_REPO_URL scheme '%s': must be 'http' or 'https'", u.Scheme))
			}
		}
		if strings.TrimSpace(c.RemoteAuthScheme) == "" {
			errors = append(errors, "REMOTE_AUTH_SCHEME cannot be empty")
		}
		if c.RemoteTimeout < time.Second {
			errors = append(errors, fmt.Sprintf("invalid remote timeout %v: must be at least 1 second", c.RemoteTimeout))
		}
	case SourceSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets source")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets source")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasToken := c.GoogleOAuthTokenFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" && !hasToken {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_OAUTH_TOKEN_FILE must be provided for sheets source")
		}
		if hasToken && c.GoogleOAuthClientJSON == "" && c.GoogleOAuthClientFile == "" {
			errors = append(errors, "GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE is required with GOOGLE_OAUTH_TOKEN_FILE")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	} else if c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 24 hours", c.CacheTTL))
	}
	if c.CacheMaxEntries < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheMaxEntries))
	}

	if c.HistoryDBPath != "" {
		dir := filepath.Dir(c.HistoryDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create history database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.HistoryRetention < 0 {
		errors = append(errors, fmt.Sprintf("invalid history retention %v: must not be negative", c.HistoryRetention))
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

	if c.RefreshRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid refresh rate %d: must be at least 1 per minute", c.RefreshRatePerMinute))
	}

	if c.RefreshInterval != 0 && c.RefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be 0 or at least 1 minute", c.RefreshInterval))
	}

	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// HistoryEnabled reports whether load history should be recorded.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDBPath != ""
}

// AMQPEnabled reports whether load events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
