// Package ledger owns the persisted master ledger and the bookkeeping
// manifest that drives incremental ingestion. The ledger is the single
// source of truth; every other component treats it as read-only input.
package ledger

import "time"

// Transaction is one normalized ledger row. ID is the dedup key: the
// ledger holds at most one row per ID, and on collision the newest-seen
// copy wins (re-exported corrections replace earlier rows).
type Transaction struct {
	ID            string    // platform transaction number
	Timestamp     time.Time // zero when the export value was unparseable
	MovementType  string    // raw movement type code ("Tipo Mov.")
	AccountID     int64     // account/document id
	MovementLabel string    // free-text movement description
	AmountCents   int64     // amount in cents, export locale already parsed
}

// Day returns the transaction's calendar day formatted as
// "2006-01-02", or "" when the timestamp is unparsed.
func (t Transaction) Day() string {
	if t.Timestamp.IsZero() {
		return ""
	}
	return t.Timestamp.Format("2006-01-02")
}

// Month returns the transaction's month formatted as "2006-01", or ""
// when the timestamp is unparsed.
func (t Transaction) Month() string {
	if t.Timestamp.IsZero() {
		return ""
	}
	return t.Timestamp.Format("2006-01")
}
