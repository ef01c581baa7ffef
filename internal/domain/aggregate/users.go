package aggregate

import (
	"sort"
	"time"

	"github.com/loteria-digital/walletledger/internal/domain/classify"
	"github.com/loteria-digital/walletledger/internal/domain/roster"
)

// AccountRow is a roster account as it appears in the contact tables.
type AccountRow struct {
	AccountID    int64
	RegisteredAt time.Time
	Username     string
	Email        string
}

// ReactivatedRow is a dormant account that came back through MODO.
type ReactivatedRow struct {
	AccountRow
	FirstModo time.Time // first MODO deposit on or after the cutover
}

// CohortRow summarizes retention for the accounts registered in one
// month. Rate7 is always absent; the dashboard keeps the column for
// chart compatibility.
type CohortRow struct {
	CohortMonth string
	TotalNew    int
	Retained30  int
	Rate30      float64
}

// WagerUserRow is one bet joined with the bettor's contact data.
type WagerUserRow struct {
	Timestamp time.Time
	AccountID int64
	Username  string
	Email     string
	Game      string
	Cents     int64
}

// TopPlayerRow is a leaderboard entry with contact data attached.
type TopPlayerRow struct {
	AccountID int64
	Bets      int
	Cents     int64
	Username  string
	Email     string
}

// GameTopPlayers is the top-10 spenders of one game family.
type GameTopPlayers struct {
	Key     string
	Players []TopPlayerRow
}

func (r *Report) buildRosterTables(views classify.Views, cut Cutovers, reg *roster.Roster) {
	for _, acc := range reg.Accounts {
		if !acc.RegisteredAt.IsZero() && !acc.RegisteredAt.Before(cut.ModoFull) {
			r.NewModoUsers = append(r.NewModoUsers, AccountRow{
				AccountID: acc.ID, RegisteredAt: acc.RegisteredAt,
				Username: acc.Username, Email: acc.Email,
			})
		}
	}
	r.TotalNewModo = len(r.NewModoUsers)

	r.buildReactivated(views, cut, reg)
	r.buildCohorts(views, reg)
	r.buildWagerJoin(reg)
	r.buildTopByGame(reg)

	active := map[int64]bool{}
	for _, tx := range views.All {
		active[tx.AccountID] = true
	}
	for _, acc := range reg.Inactive(active) {
		r.InactiveUsers = append(r.InactiveUsers, AccountRow{
			AccountID: acc.ID, RegisteredAt: acc.RegisteredAt,
			Username: acc.Username, Email: acc.Email,
		})
	}
}

// buildReactivated finds accounts registered in 2021..2024 whose MODO
// deposits only start after the full rollout.
func (r *Report) buildReactivated(views classify.Views, cut Cutovers, reg *roster.Roster) {
	before := map[int64]bool{}
	firstAfter := map[int64]time.Time{}
	for _, d := range views.Deposits {
		if d.Channel != classify.ChannelMODO || d.Timestamp.IsZero() {
			continue
		}
		if d.Timestamp.Before(cut.ModoFull) {
			before[d.AccountID] = true
			continue
		}
		if prev, ok := firstAfter[d.AccountID]; !ok || d.Timestamp.Before(prev) {
			firstAfter[d.AccountID] = d.Timestamp
		}
	}

	for _, acc := range reg.Accounts {
		year := acc.RegisteredAt.Year()
		if year < 2021 || year > 2024 {
			continue
		}
		first, ok := firstAfter[acc.ID]
		if !ok || before[acc.ID] {
			continue
		}
		r.ReactivatedModo = append(r.ReactivatedModo, ReactivatedRow{
			AccountRow: AccountRow{
				AccountID: acc.ID, RegisteredAt: acc.RegisteredAt,
				Username: acc.Username, Email: acc.Email,
			},
			FirstModo: first,
		})
	}
}

// buildCohorts groups wagering accounts by registration month and
// marks as retained the ones that recharged after their first bet and
// then bet again.
func (r *Report) buildCohorts(views classify.Views, reg *roster.Roster) {
	firstWager := map[int64]time.Time{}
	for _, w := range r.Wagers {
		if w.Timestamp.IsZero() {
			continue
		}
		if prev, ok := firstWager[w.AccountID]; !ok || w.Timestamp.Before(prev) {
			firstWager[w.AccountID] = w.Timestamp
		}
	}

	rechargedAfter := map[int64]bool{}
	for _, d := range views.Deposits {
		first, ok := firstWager[d.AccountID]
		if ok && !d.Timestamp.IsZero() && d.Timestamp.After(first) {
			rechargedAfter[d.AccountID] = true
		}
	}
	wageredAgain := map[int64]bool{}
	for _, w := range r.Wagers {
		first, ok := firstWager[w.AccountID]
		if ok && !w.Timestamp.IsZero() && w.Timestamp.After(first) {
			wageredAgain[w.AccountID] = true
		}
	}

	type cohort struct {
		total, retained int
	}
	cohorts := map[string]*cohort{}
	for _, acc := range reg.Accounts {
		if acc.RegisteredAt.IsZero() {
			continue
		}
		if _, wagered := firstWager[acc.ID]; !wagered {
			continue
		}
		month := acc.RegisteredAt.Format("2006-01")
		c := cohorts[month]
		if c == nil {
			c = &cohort{}
			cohorts[month] = c
		}
		c.total++
		if rechargedAfter[acc.ID] && wageredAgain[acc.ID] {
			c.retained++
		}
	}

	months := make([]string, 0, len(cohorts))
	for m := range cohorts {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		c := cohorts[m]
		rate := 0.0
		if c.total > 0 {
			rate = float64(c.retained) / float64(c.total) * 100
		}
		r.CohortRetention = append(r.CohortRetention, CohortRow{
			CohortMonth: m, TotalNew: c.total, Retained30: c.retained, Rate30: rate,
		})
	}
}

func (r *Report) buildWagerJoin(reg *roster.Roster) {
	for _, w := range r.Wagers {
		acc, ok := reg.Get(w.AccountID)
		if !ok {
			continue
		}
		r.WagersWithUsers = append(r.WagersWithUsers, WagerUserRow{
			Timestamp: w.Timestamp,
			AccountID: w.AccountID,
			Username:  acc.Username,
			Email:     acc.Email,
			Game:      w.Game,
			Cents:     w.AmountCents,
		})
	}
}

func (r *Report) buildTopByGame(reg *roster.Roster) {
	for _, summary := range r.GameSummaries {
		top := GameTopPlayers{Key: summary.Key}
		for _, p := range summary.Players {
			acc, ok := reg.Get(p.AccountID)
			if !ok {
				continue
			}
			top.Players = append(top.Players, TopPlayerRow{
				AccountID: p.AccountID, Bets: p.Bets, Cents: p.Cents,
				Username: acc.Username, Email: acc.Email,
			})
			if len(top.Players) == 10 {
				break
			}
		}
		r.TopByGame = append(r.TopByGame, top)
	}
}
