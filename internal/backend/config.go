package backend

import (
	"fmt"

	"ledgerview/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	ledgerType := LedgerType(appConfig.LedgerBackend)
	if !ledgerType.IsValid() {
		return Config{}, fmt.Errorf("invalid ledger backend in config: %s", appConfig.LedgerBackend)
	}
	localType := LocalType(appConfig.LocalStore)
	if !localType.IsValid() {
		return Config{}, fmt.Errorf("invalid local store in config: %s", appConfig.LocalStore)
	}

	return Config{
		Ledger:        ledgerType,
		LedgerAccount: appConfig.LedgerAccount,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleLedgerSheet:        appConfig.GoogleLedgerSheet,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		SupabaseURL:   appConfig.SupabaseURL,
		SupabaseKey:   appConfig.SupabaseKey,
		SupabaseTable: appConfig.SupabaseTable,

		Local:         localType,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		LocalStoreKey: appConfig.LocalStoreKey,

		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Ledger.IsValid() {
		return fmt.Errorf("invalid ledger backend: %s", c.Ledger)
	}
	if !c.Local.IsValid() {
		return fmt.Errorf("invalid local store: %s", c.Local)
	}

	switch c.Ledger {
	case SheetsLedger:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets ledger")
		}
	case SupabaseLedger:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("Supabase URL and key are required for supabase ledger")
		}
	case MemoryLedger, NoLedger:
		// nothing to check
	}

	if c.Local == SQLiteLocal && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite local store")
	}
	return nil
}

// LedgerTypeStrings returns all valid ledger backend names
func LedgerTypeStrings() []string {
	types := []LedgerType{MemoryLedger, SheetsLedger, SupabaseLedger, NoLedger}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
