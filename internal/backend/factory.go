package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerview/internal/amqp"
	"ledgerview/internal/ledger"
	ledgermem "ledgerview/internal/ledger/memory"
	"ledgerview/internal/ledger/sheets"
	"ledgerview/internal/ledger/supabase"
	"ledgerview/internal/localstore"
	"ledgerview/internal/localstore/sqlite"
	"ledgerview/internal/log"
	"ledgerview/internal/notify"
	"ledgerview/internal/session"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend builds the ledger, the local store and the optional AMQP
// publisher. An unreachable broker is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var cleanups []CleanupFunc
	cleanup := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	local, closeLocal, err := f.createLocalStore(config)
	if err != nil {
		return nil, err
	}
	if closeLocal != nil {
		cleanups = append(cleanups, closeLocal)
	}

	client, err := f.createLedger(ctx, config)
	if err != nil {
		_ = cleanup()
		return nil, err
	}

	var publisher *amqp.Client
	if config.AMQPURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		publisher, err = amqp.NewClient(dialCtx, config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey, "", f.logger)
		cancel()
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without notice stream", log.FieldError, err.Error())
			publisher = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"routing_key", config.AMQPRoutingKey)
			cleanups = append(cleanups, publisher.Close)
		}
	}

	f.logger.Info("Backend ready",
		"ledger", config.Ledger.String(),
		"local_store", config.Local.String(),
		"amqp_enabled", publisher != nil)

	return &Result{
		Ledger:    client,
		Local:     local,
		Publisher: publisher,
		Cleanup:   cleanup,
	}, nil
}

func (f *DefaultFactory) createLocalStore(config Config) (localstore.Store, CleanupFunc, error) {
	switch config.Local {
	case SQLiteLocal:
		store, err := sqlite.Open(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite local store: %w", err)
		}
		f.logger.Info("Initialized SQLite local store", "db_path", config.SQLiteDBPath)
		return store, store.Close, nil
	default:
		return localstore.NewMemory(), nil, nil
	}
}

func (f *DefaultFactory) createLedger(ctx context.Context, config Config) (ledger.Client, error) {
	switch config.Ledger {
	case MemoryLedger:
		return ledgermem.New(config.LedgerAccount), nil
	case SheetsLedger:
		client, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleLedgerSheet,
			Account:            config.LedgerAccount,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets ledger: %w", err)
		}
		return client, nil
	case SupabaseLedger:
		client, err := supabase.New(config.SupabaseURL, config.SupabaseKey, config.SupabaseTable, config.LedgerAccount, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Supabase ledger: %w", err)
		}
		return client, nil
	default:
		return nil, nil
	}
}

// Notifier fans notices out to the log, the given sinks and, when enabled,
// the AMQP stream.
func (r *Result) Notifier(logger *log.Logger, sinks ...notify.Notifier) notify.Notifier {
	m := notify.Multi{notify.NewLog(logger)}
	m = append(m, sinks...)
	if r.Publisher != nil {
		m = append(m, r.Publisher)
	}
	return m
}

// SessionFactory builds one store per session id. Every store gets its own
// handle on the shared ledger, its own local blob under localKey:id, and
// stamps its notices with the session id.
func (r *Result) SessionFactory(localKey string, notifier notify.Notifier, logger *log.Logger) session.Factory {
	if localKey == "" {
		localKey = localstore.DefaultKey
	}
	return func(id string) *session.Store {
		var client ledger.Client
		if r.Ledger != nil {
			client = ledger.NewHandle(r.Ledger)
		}
		return session.New(session.Options{
			Ledger:   client,
			Local:    r.Local,
			LocalKey: SessionKey(localKey, id),
			Notifier: notify.WithSession(id, notifier),
			Logger:   logger.With(log.FieldSessionID, id),
		})
	}
}

// SessionKey is the local store key holding the fallback collection of one
// session.
func SessionKey(localKey, sessionID string) string {
	return localKey + ":" + sessionID
}

// Close runs the cleanup function, if any.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}
