// Package sheets implements the ledger on a Google Sheets tab. Every
// account shares one tab; rows carry the account in column B.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerview/internal/ledger"
	"ledgerview/internal/log"
)

var (
	ErrAlreadyInitialized = errors.New("ledger tab already initialized")
	ErrRecordNotFound     = errors.New("expense not found")
)

// values is the slice of the Sheets values API the ledger needs.
type values interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Append(ctx context.Context, rng string, row []any) (string, error)
	Clear(ctx context.Context, rng string) error
}

// Config selects the spreadsheet and the credentials.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	Account            string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	values  values
	sheet   string
	account string
	logger  *log.Logger
	now     func() time.Time

	// mu serializes read-then-write cycles so concurrent adds get distinct ids.
	mu        sync.Mutex
	connected bool
}

// New creates a Sheets-backed ledger using service account credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&serviceValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg, logger), nil
}

func newClient(v values, cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Ledger"
	}
	return &Client{
		values:  v,
		sheet:   sheet,
		account: strings.TrimSpace(cfg.Account),
		logger:  logger.WithComponent(log.ComponentLedger),
		now:     time.Now,
	}
}

// newSheetsService prefers inline JSON credentials, then a credentials file,
// then GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(credentialsJSON))
	}
	return service, nil
}

func (c *Client) tabRange() string { return fmt.Sprintf("%s!A:G", c.sheet) }

// Connect checks that the tab is readable and reports the configured account.
func (c *Client) Connect(ctx context.Context) (ledger.Identity, error) {
	if c.account == "" {
		return ledger.Identity{}, ledger.ErrUnavailable
	}
	if _, err := c.values.Get(ctx, fmt.Sprintf("%s!A1:G1", c.sheet)); err != nil {
		return ledger.Identity{}, fmt.Errorf("reach sheet %s: %w", c.sheet, err)
	}
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return ledger.Remote(c.account), nil
}

func (c *Client) Disconnect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *Client) CurrentAccount(_ context.Context) (ledger.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ledger.Identity{}, false
	}
	return ledger.Remote(c.account), true
}

func (c *Client) Submit(ctx context.Context, function string, args []string) (ledger.TransactionHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, ledger.ErrNotConnected)
	}

	var (
		ref string
		err error
	)
	switch function {
	case ledger.FnInitializeTracker:
		ref, err = c.initialize(ctx)
	case ledger.FnAddExpense:
		ref, err = c.add(ctx, args)
	case ledger.FnDeleteExpense:
		ref, err = c.delete(ctx, args)
	default:
		err = ledger.ErrUnknownFunction
	}
	if err != nil {
		return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, err)
	}
	c.logger.InfoContext(ctx, "Ledger sheet updated", log.FieldFunction, function, "range", ref)
	return ledger.TransactionHandle{Hash: ref}, nil
}

func (c *Client) initialize(ctx context.Context) (string, error) {
	rows, err := c.values.Get(ctx, fmt.Sprintf("%s!A1:G1", c.sheet))
	if err != nil {
		return "", fmt.Errorf("read header: %w", err)
	}
	if hasHeader(rows) {
		return "", ErrAlreadyInitialized
	}
	return c.values.Append(ctx, c.tabRange(), header)
}

func (c *Client) add(ctx context.Context, args []string) (string, error) {
	req, err := ledger.DecodeAddArgs(args)
	if err != nil {
		return "", err
	}
	rows, err := c.values.Get(ctx, c.tabRange())
	if err != nil {
		return "", fmt.Errorf("read %s: %w", c.tabRange(), err)
	}
	id := nextID(rows)
	row := []any{id, c.account, req.Amount, req.Description, req.Category, req.Date, c.now().Unix()}
	ref, err := c.values.Append(ctx, c.tabRange(), row)
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.sheet, err)
	}
	return ref, nil
}

func (c *Client) delete(ctx context.Context, args []string) (string, error) {
	id, err := ledger.DecodeID(args)
	if err != nil {
		return "", err
	}
	rows, err := c.values.Get(ctx, c.tabRange())
	if err != nil {
		return "", fmt.Errorf("read %s: %w", c.tabRange(), err)
	}
	n, ok := findRow(rows, id, c.account)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrRecordNotFound, id)
	}
	rng := fmt.Sprintf("%s!A%d:G%d", c.sheet, n, n)
	if err := c.values.Clear(ctx, rng); err != nil {
		return "", fmt.Errorf("clear %s: %w", rng, err)
	}
	return rng, nil
}

func (c *Client) View(ctx context.Context, function string, args []string) ([]ledger.RawRecord, error) {
	if function != ledger.FnGetExpenses {
		return nil, ledger.NewQueryError(function, ledger.ErrUnknownFunction)
	}
	if len(args) != 1 || args[0] == "" {
		return nil, ledger.NewQueryError(function, ledger.ErrBadArguments)
	}
	rows, err := c.values.Get(ctx, c.tabRange())
	if err != nil {
		return nil, ledger.NewQueryError(function, fmt.Errorf("read %s: %w", c.tabRange(), err))
	}
	out := parseRows(rows, args[0])
	c.logger.DebugContext(ctx, "Ledger sheet scanned", log.FieldRecordCount, len(out))
	return out, nil
}

// serviceValues adapts the generated Sheets client.
type serviceValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceValues) Append(ctx context.Context, rng string, row []any) (string, error) {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

func (s *serviceValues) Clear(ctx context.Context, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

var _ ledger.Client = (*Client)(nil)
