// Package supabase implements the ledger on a PostgREST table hosted by
// Supabase. Each row is one expense tagged with its account.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/supabase-community/supabase-go"

	"ledgerview/internal/ledger"
	"ledgerview/internal/log"
)

var ErrRecordNotFound = errors.New("expense not found")

// row is the table shape. The id column is generated by the database.
type row struct {
	ID          int64  `json:"id,omitempty"`
	Account     string `json:"account"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	Category    int64  `json:"category"`
	Date        int64  `json:"date"`
	CreatedAt   int64  `json:"created_at"`
}

// table is the part of the PostgREST API the ledger uses. Every method
// returns the JSON array PostgREST answers with.
type table interface {
	probe() error
	insert(r row) ([]byte, error)
	delete(id int64, account string) ([]byte, error)
	selectByAccount(account string) ([]byte, error)
}

type Client struct {
	table   table
	account string
	logger  *log.Logger
	now     func() time.Time

	mu        sync.Mutex
	connected bool
}

// New connects to the Supabase project at url with key and uses tableName
// for expenses.
func New(url, key, tableName, account string, logger *log.Logger) (*Client, error) {
	sc, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	if tableName == "" {
		tableName = "expenses"
	}
	return newClient(&restTable{client: sc, name: tableName}, account, logger), nil
}

func newClient(t table, account string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		table:   t,
		account: account,
		logger:  logger.WithComponent(log.ComponentLedger),
		now:     time.Now,
	}
}

func (c *Client) Connect(ctx context.Context) (ledger.Identity, error) {
	if c.account == "" {
		return ledger.Identity{}, ledger.ErrUnavailable
	}
	if err := c.table.probe(); err != nil {
		return ledger.Identity{}, fmt.Errorf("reach supabase: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return ledger.Identity{}, err
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
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, ledger.ErrNotConnected)
	}
	if err := ctx.Err(); err != nil {
		return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, err)
	}

	switch function {
	case ledger.FnInitializeTracker:
		// the table is provisioned with the project; only check it answers
		if err := c.table.probe(); err != nil {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, err)
		}
		return ledger.TransactionHandle{Hash: "noop"}, nil

	case ledger.FnAddExpense:
		req, err := ledger.DecodeAddArgs(args)
		if err != nil {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, err)
		}
		data, err := c.table.insert(row{
			Account:     c.account,
			Amount:      req.Amount,
			Description: req.Description,
			Category:    req.Category,
			Date:        req.Date,
			CreatedAt:   c.now().Unix(),
		})
		if err != nil {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, fmt.Errorf("insert expense: %w", err))
		}
		var created []row
		if err := json.Unmarshal(data, &created); err != nil {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, fmt.Errorf("parse created expense: %w", err))
		}
		hash := "insert"
		if len(created) > 0 {
			hash = "insert:" + strconv.FormatInt(created[0].ID, 10)
		}
		c.logger.InfoContext(ctx, "Expense inserted into Supabase", log.FieldAmountCents, req.Amount)
		return ledger.TransactionHandle{Hash: hash}, nil

	case ledger.FnDeleteExpense:
		id, err := ledger.DecodeID(args)
		if err != nil {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, err)
		}
		data, err := c.table.delete(id, c.account)
		if err != nil {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, fmt.Errorf("delete expense: %w", err))
		}
		var deleted []row
		if err := json.Unmarshal(data, &deleted); err != nil {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, fmt.Errorf("parse deleted expense: %w", err))
		}
		if len(deleted) == 0 {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, fmt.Errorf("%w: %d", ErrRecordNotFound, id))
		}
		c.logger.InfoContext(ctx, "Expense deleted from Supabase", log.FieldRecordID, id)
		return ledger.TransactionHandle{Hash: "delete:" + strconv.FormatInt(id, 10)}, nil
	}
	return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, ledger.ErrUnknownFunction)
}

func (c *Client) View(ctx context.Context, function string, args []string) ([]ledger.RawRecord, error) {
	if function != ledger.FnGetExpenses {
		return nil, ledger.NewQueryError(function, ledger.ErrUnknownFunction)
	}
	if len(args) != 1 || args[0] == "" {
		return nil, ledger.NewQueryError(function, ledger.ErrBadArguments)
	}
	if err := ctx.Err(); err != nil {
		return nil, ledger.NewQueryError(function, err)
	}
	data, err := c.table.selectByAccount(args[0])
	if err != nil {
		return nil, ledger.NewQueryError(function, fmt.Errorf("select expenses: %w", err))
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raws []ledger.RawRecord
	if err := dec.Decode(&raws); err != nil {
		return nil, ledger.NewQueryError(function, fmt.Errorf("parse expenses: %w", err))
	}
	return raws, nil
}

// restTable runs the queries through supabase-go.
type restTable struct {
	client *supabase.Client
	name   string
}

func (t *restTable) probe() error {
	_, _, err := t.client.From(t.name).Select("id", "exact", true).Execute()
	return err
}

func (t *restTable) insert(r row) ([]byte, error) {
	data, _, err := t.client.From(t.name).Insert(r, false, "", "representation", "").Execute()
	return data, err
}

func (t *restTable) delete(id int64, account string) ([]byte, error) {
	data, _, err := t.client.From(t.name).
		Delete("representation", "").
		Eq("id", strconv.FormatInt(id, 10)).
		Eq("account", account).
		Execute()
	return data, err
}

func (t *restTable) selectByAccount(account string) ([]byte, error) {
	data, _, err := t.client.From(t.name).
		Select("*", "", false).
		Eq("account", account).
		Execute()
	return data, err
}

var _ ledger.Client = (*Client)(nil)
