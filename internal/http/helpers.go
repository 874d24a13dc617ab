package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"ledgerview/internal/aggregate"
	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
	"ledgerview/internal/session"
)

// recordView is a record as the API renders it.
type recordView struct {
	ID            int64         `json:"id"`
	Amount        core.Money    `json:"amount"`
	AmountDisplay string        `json:"amount_display"`
	Description   string        `json:"description"`
	Category      core.Category `json:"category"`
	CategoryName  string        `json:"category_name"`
	CategoryIcon  string        `json:"category_icon"`
	Date          string        `json:"date"`
	DateDisplay   string        `json:"date_display"`
	CreatedAt     time.Time     `json:"created_at"`
}

func newRecordView(r core.Record, loc *time.Location) recordView {
	return recordView{
		ID:            r.ID,
		Amount:        r.Amount,
		AmountDisplay: r.Amount.String(),
		Description:   r.Description,
		Category:      r.Category,
		CategoryName:  r.Category.Name(),
		CategoryIcon:  r.Category.Icon(),
		Date:          r.Day(loc).Format("2006-01-02"),
		DateDisplay:   r.FormatDate(loc),
		CreatedAt:     time.Unix(r.CreatedAt, 0).In(loc),
	}
}

func newRecordViews(records []core.Record, loc *time.Location) []recordView {
	out := make([]recordView, 0, len(records))
	for _, r := range records {
		out = append(out, newRecordView(r, loc))
	}
	return out
}

type totalsView struct {
	Amount        core.Money `json:"amount"`
	AmountDisplay string     `json:"amount_display"`
	Count         int        `json:"count"`
}

func newTotalsView(t aggregate.Totals) totalsView {
	return totalsView{Amount: t.Amount, AmountDisplay: t.Amount.String(), Count: t.Count}
}

type shareView struct {
	Category      core.Category `json:"category"`
	Name          string        `json:"name"`
	Icon          string        `json:"icon"`
	Amount        core.Money    `json:"amount"`
	AmountDisplay string        `json:"amount_display"`
	Percent       float64       `json:"percent"`
}

type summaryView struct {
	Filter    core.Category `json:"filter"`
	Items     []recordView  `json:"items"`
	Total     totalsView    `json:"total"`
	ThisMonth totalsView    `json:"this_month"`
	Breakdown []shareView   `json:"breakdown"`
	Degraded  bool          `json:"degraded"`
}

func newSummaryView(sum aggregate.Summary, loc *time.Location, degraded bool) summaryView {
	shares := make([]shareView, 0, len(sum.Breakdown))
	for _, s := range sum.Breakdown {
		shares = append(shares, shareView{
			Category:      s.Category,
			Name:          s.Name,
			Icon:          s.Category.Icon(),
			Amount:        s.Amount,
			AmountDisplay: s.Amount.String(),
			Percent:       s.Percent,
		})
	}
	return summaryView{
		Filter:    sum.Filter,
		Items:     newRecordViews(sum.Items, loc),
		Total:     newTotalsView(sum.Total),
		ThisMonth: newTotalsView(sum.ThisMonth),
		Breakdown: shares,
		Degraded:  degraded,
	}
}

// sessionView describes the state of one session store.
type sessionView struct {
	SessionID   string `json:"session_id"`
	State       string `json:"state"`
	Identity    string `json:"identity"`
	Fallback    bool   `json:"fallback"`
	Degraded    bool   `json:"degraded"`
	RecordCount int    `json:"record_count"`
}

func newSessionView(id string, s *session.Store) sessionView {
	ident := s.Identity()
	return sessionView{
		SessionID:   id,
		State:       s.State().String(),
		Identity:    ident.String(),
		Fallback:    ident.IsFallback(),
		Degraded:    s.Degraded(),
		RecordCount: len(s.Records()),
	}
}

// changeView is the body of an accepted add or delete.
type changeView struct {
	Record         *recordView               `json:"record,omitempty"`
	Transaction    *ledger.TransactionHandle `json:"transaction,omitempty"`
	Applied        bool                      `json:"applied"`
	ReloadRequired bool                      `json:"reload_required"`
	ReloadInMS     int64                     `json:"reload_in_ms,omitempty"`
}

func newChangeView(res session.Result, loc *time.Location, reloadIn time.Duration) changeView {
	v := changeView{
		Transaction:    res.Transaction,
		Applied:        res.Applied,
		ReloadRequired: res.ReloadRequired,
	}
	if res.Record != nil {
		rv := newRecordView(*res.Record, loc)
		v.Record = &rv
	}
	if res.ReloadRequired {
		v.ReloadInMS = reloadIn.Milliseconds()
	}
	return v
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
