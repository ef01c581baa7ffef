// Package roster reads the externally maintained registry of platform
// accounts. The file is an export we only consume; column naming drifts
// between exports, so headers are matched loosely.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/loteria-digital/walletledger/internal/domain/ingest"
)

var ErrNoIdentityColumn = errors.New("no DNI/Documento column in roster")

// Account is one registered platform account.
type Account struct {
	ID           int64
	RegisteredAt time.Time // zero when the export value was unparseable
	Username     string
	Email        string
}

// Roster holds all registered accounts, deduplicated by id (last row
// wins, matching how the export handles corrections).
type Roster struct {
	Accounts []Account
	byID     map[int64]int
}

// Load reads the roster CSV. The identity column may be named DNI or
// Documento (or a variant containing either); the registration date
// column is any header containing both "fecha" and "alta".
func Load(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening roster: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	if len(rows) == 0 {
		return &Roster{byID: map[int64]int{}}, nil
	}

	idCol, dateCol, userCol, mailCol := -1, -1, -1, -1
	for i, h := range rows[0] {
		n := ingest.Normalize(h)
		switch {
		case idCol < 0 && (strings.Contains(n, "dni") || strings.Contains(n, "documento")):
			idCol = i
		case dateCol < 0 && strings.Contains(n, "fecha") && strings.Contains(n, "alta"):
			dateCol = i
		case userCol < 0 && strings.Contains(n, "usuario"):
			userCol = i
		case mailCol < 0 && (strings.Contains(n, "correo") || strings.Contains(n, "mail")):
			mailCol = i
		}
	}
	if idCol < 0 {
		return nil, ErrNoIdentityColumn
	}

	r := &Roster{byID: make(map[int64]int)}
	for _, row := range rows[1:] {
		if idCol >= len(row) {
			continue
		}
		id, err := ingest.ParseAccountID(row[idCol])
		if err != nil {
			continue // non-numeric identity rows are dropped, as in the export tooling
		}

		acc := Account{ID: id}
		if dateCol >= 0 && dateCol < len(row) {
			if ts, err := ingest.ParseDayFirstTime(row[dateCol]); err == nil {
				acc.RegisteredAt = ts
			}
		}
		if userCol >= 0 && userCol < len(row) {
			acc.Username = strings.TrimSpace(row[userCol])
		}
		if mailCol >= 0 && mailCol < len(row) {
			acc.Email = strings.TrimSpace(row[mailCol])
		}

		if at, ok := r.byID[id]; ok {
			r.Accounts[at] = acc
			continue
		}
		r.byID[id] = len(r.Accounts)
		r.Accounts = append(r.Accounts, acc)
	}
	return r, nil
}

// Get returns the account for an id.
func (r *Roster) Get(id int64) (Account, bool) {
	at, ok := r.byID[id]
	if !ok {
		return Account{}, false
	}
	return r.Accounts[at], true
}

// Len reports the number of registered accounts.
func (r *Roster) Len() int { return len(r.Accounts) }

// Inactive returns the registered accounts with no ledger activity at
// all, the contact list for win-back campaigns.
func (r *Roster) Inactive(activeIDs map[int64]bool) []Account {
	var out []Account
	for _, acc := range r.Accounts {
		if !activeIDs[acc.ID] {
			out = append(out, acc)
		}
	}
	return out
}
