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

// Ledger backends.
const (
	LedgerMemory   = "memory"
	LedgerSheets   = "sheets"
	LedgerSupabase = "supabase"
	LedgerNone     = "none"
)

// Local store backends.
const (
	LocalMemory = "memory"
	LocalSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Remote ledger
	LedgerBackend  string
	LedgerAccount  string
	ConnectTimeout time.Duration

	// Local fallback store
	LocalStore    string
	SQLiteDBPath  string
	LocalStoreKey string

	// AMQP notice stream, disabled when AMQPURL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
	AMQPQueue      string

	// Google Sheets ledger
	GoogleSpreadsheetID      string
	GoogleLedgerSheet        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Supabase ledger
	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string

	// Sessions
	ReloadDelay       time.Duration
	DeleteReloadDelay time.Duration
	SessionTTL        time.Duration
	MaxSessions       int
	NoticeBuffer      int
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LedgerBackend:  getEnv("LEDGER_BACKEND", LedgerMemory),
		LedgerAccount:  getEnv("LEDGER_ACCOUNT", "0x1f0e5b2c9a7d4e3f8b6a0c1d2e3f4a5b6c7d8e9f"),
		ConnectTimeout: getEnvDuration("CONNECT_TIMEOUT", 5*time.Second),

		LocalStore:    getEnv("LOCAL_STORE", LocalMemory),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/ledgerview.db"),
		LocalStoreKey: getEnv("LOCAL_STORE_KEY", "demoExpenses"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "ledgerview"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "notices"),
		AMQPQueue:      getEnv("AMQP_QUEUE", "ledgerview_notices"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLedgerSheet:        getEnv("GOOGLE_LEDGER_SHEET", "Ledger"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SupabaseURL:   getEnv("SUPABASE_URL", ""),
		SupabaseKey:   getEnv("SUPABASE_KEY", ""),
		SupabaseTable: getEnv("SUPABASE_TABLE", "expenses"),

		ReloadDelay:       getEnvDuration("RELOAD_DELAY", 3*time.Second),
		DeleteReloadDelay: getEnvDuration("DELETE_RELOAD_DELAY", 2*time.Second),
		SessionTTL:        getEnvDuration("SESSION_TTL", 30*time.Minute),
		MaxSessions:       getEnvInt("MAX_SESSIONS", 100),
		NoticeBuffer:      getEnvInt("NOTICE_BUFFER", 50),
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

	validLedgers := []string{LedgerMemory, LedgerSheets, LedgerSupabase, LedgerNone}
	if !slices.Contains(validLedgers, c.LedgerBackend) {
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of %v", c.LedgerBackend, validLedgers))
	}
	if c.LedgerBackend != LedgerNone && strings.TrimSpace(c.LedgerAccount) == "" {
		errors = append(errors, "ledger account cannot be empty when a ledger backend is enabled")
	}

	validLocals := []string{LocalMemory, LocalSQLite}
	if !slices.Contains(validLocals, c.LocalStore) {
		errors = append(errors, fmt.Sprintf("invalid local store '%s': must be one of %v", c.LocalStore, validLocals))
	}
	if c.LocalStoreKey == "" {
		errors = append(errors, "local store key cannot be empty")
	}

	if c.LocalStore == LocalSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite local store")
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
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.LedgerBackend == LedgerSheets {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets ledger")
		}
		if c.GoogleLedgerSheet == "" {
			errors = append(errors, "Google ledger sheet name is required when using sheets ledger")
		}
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets ledger")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.LedgerBackend == LedgerSupabase {
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			errors = append(errors, "SUPABASE_URL and SUPABASE_KEY are required when using supabase ledger")
		} else if u, err := url.Parse(c.SupabaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid Supabase URL '%s': must be http or https", c.SupabaseURL))
		}
		if c.SupabaseTable == "" {
			errors = append(errors, "Supabase table name cannot be empty")
		}
	}

	if c.ConnectTimeout < 100*time.Millisecond || c.ConnectTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid connect timeout %v: must be between 100ms and 1m", c.ConnectTimeout))
	}
	if c.ReloadDelay < 0 || c.DeleteReloadDelay < 0 {
		errors = append(errors, "reload delays cannot be negative")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.MaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.MaxSessions))
	}
	if c.NoticeBuffer < 1 {
		errors = append(errors, fmt.Sprintf("invalid notice buffer %d: must be at least 1", c.NoticeBuffer))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
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
