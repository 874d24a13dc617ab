package backend

import (
	"context"

	"ledgerview/internal/amqp"
	"ledgerview/internal/ledger"
	"ledgerview/internal/localstore"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the backing stores a session needs.
type Result struct {
	// Ledger is shared by every session; nil when no remote ledger is configured.
	Ledger ledger.Client
	// Local is the fallback store.
	Local localstore.Store
	// Publisher streams notices to AMQP; nil when disabled or unreachable.
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Ledger        LedgerType
	LedgerAccount string

	// Google Sheets ledger
	GoogleSpreadsheetID      string
	GoogleLedgerSheet        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Supabase ledger
	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string

	Local         LocalType
	SQLiteDBPath  string
	LocalStoreKey string

	// AMQP, optional
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

// LedgerType selects the remote ledger adapter.
type LedgerType string

const (
	MemoryLedger   LedgerType = "memory"
	SheetsLedger   LedgerType = "sheets"
	SupabaseLedger LedgerType = "supabase"
	NoLedger       LedgerType = "none"
)

// String implements fmt.Stringer
func (lt LedgerType) String() string {
	return string(lt)
}

// IsValid returns true if the ledger type is valid
func (lt LedgerType) IsValid() bool {
	switch lt {
	case MemoryLedger, SheetsLedger, SupabaseLedger, NoLedger:
		return true
	default:
		return false
	}
}

// LocalType selects the fallback store adapter.
type LocalType string

const (
	MemoryLocal LocalType = "memory"
	SQLiteLocal LocalType = "sqlite"
)

func (lt LocalType) String() string {
	return string(lt)
}

func (lt LocalType) IsValid() bool {
	return lt == MemoryLocal || lt == SQLiteLocal
}
