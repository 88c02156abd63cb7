// Package history owns the append-only per-profile ledger: one space
// delimited row per recorded day, `date rank networth changeValue changePct`,
// CRLF terminated. The ledger is the source of truth for every time-series
// derivation.
package history

import (
	"fmt"
	"math"
	"sort"

	"rtbcli/internal/domain"
	"rtbcli/internal/store"
)

// Ledger reads and writes profile history files through the flat-file store.
type Ledger struct {
	store *store.Store
}

// New creates a ledger handle.
func New(st *store.Store) *Ledger {
	return &Ledger{store: st}
}

// Path returns the ledger file path for a profile.
func (l *Ledger) Path(uri string) string {
	return "profile/" + uri + "/history"
}

// LastDate returns the date of the most recent row, or "" for an empty or
// missing ledger.
func (l *Ledger) LastDate(uri string) (string, error) {
	rows, err := l.store.ReadRows(l.Path(uri))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return store.StringField(rows[len(rows)-1][0]), nil
}

// Append adds one row to a profile's ledger. Appending is idempotent per
// calendar date: when the latest stored row already carries row.Date the
// call is a no-op, so a re-run cannot produce duplicate same-day rows.
func (l *Ledger) Append(uri string, row domain.HistoryRow) error {
	last, err := l.LastDate(uri)
	if err != nil {
		return err
	}
	if last == row.Date {
		return nil
	}
	return l.store.AppendRow(l.Path(uri),
		row.Date, row.Rank, row.Networth, row.ChangeValue, row.ChangePct)
}

// Read returns all rows of a profile's ledger in stored (date) order.
func (l *Ledger) Read(uri string) ([]domain.HistoryRow, error) {
	raw, err := l.store.ReadRows(l.Path(uri))
	if err != nil {
		return nil, err
	}
	rows := make([]domain.HistoryRow, 0, len(raw))
	for _, r := range raw {
		row, err := decodeRow(r)
		if err != nil {
			return nil, fmt.Errorf("ledger %s: %w", uri, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadYear returns the rows whose date falls within the given calendar year.
func (l *Ledger) ReadYear(uri string, year int) ([]domain.HistoryRow, error) {
	rows, err := l.Read(uri)
	if err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf("%04d-", year)
	var out []domain.HistoryRow
	for _, r := range rows {
		if len(r.Date) >= len(prefix) && r.Date[:len(prefix)] == prefix {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeleteDate rewrites a profile's ledger without the rows matching date.
func (l *Ledger) DeleteDate(uri, date string) error {
	raw, err := l.store.ReadRows(l.Path(uri))
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	kept := make([][]any, 0, len(raw))
	for _, r := range raw {
		if store.StringField(r[0]) != date {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(raw) {
		return nil
	}
	return l.store.WriteRows(l.Path(uri), kept)
}

// Concat merges rows from a second profile into uri's ledger, keyed by date.
// On duplicate dates the receiving profile's row wins and the duplicate is
// reported back to the caller. The merged ledger is rewritten date-sorted.
func (l *Ledger) Concat(uri string, from []domain.HistoryRow) ([]string, error) {
	existing, err := l.Read(uri)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]domain.HistoryRow, len(existing)+len(from))
	var duplicates []string
	for _, r := range from {
		byDate[r.Date] = r
	}
	for _, r := range existing {
		if _, ok := byDate[r.Date]; ok {
			duplicates = append(duplicates, r.Date)
		}
		byDate[r.Date] = r
	}
	// ISO dates sort correctly as strings.
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	rows := make([][]any, 0, len(dates))
	for _, d := range dates {
		r := byDate[d]
		rows = append(rows, []any{r.Date, r.Rank, r.Networth, r.ChangeValue, r.ChangePct})
	}
	if err := l.store.WriteRows(l.Path(uri), rows); err != nil {
		return nil, err
	}
	return duplicates, nil
}

func decodeRow(r []any) (domain.HistoryRow, error) {
	if len(r) < 5 {
		return domain.HistoryRow{}, fmt.Errorf("short row (%d fields)", len(r))
	}
	row := domain.HistoryRow{
		Date:        store.StringField(r[0]),
		Networth:    store.FloatField(r[2]),
		ChangeValue: store.FloatField(r[3]),
		ChangePct:   store.FloatField(r[4]),
	}
	if r[1] != nil {
		rank := int(math.Round(store.FloatField(r[1])))
		row.Rank = &rank
	}
	return row, nil
}
