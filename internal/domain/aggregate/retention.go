package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/loteria-digital/walletledger/internal/domain/classify"
	"github.com/loteria-digital/walletledger/internal/domain/ledger"
	"github.com/loteria-digital/walletledger/internal/domain/roster"
)

// RetentionRow tracks what one account did after its first MODO
// deposit. FirstModo is the cut point; the window flags only count
// wagers strictly after it.
type RetentionRow struct {
	AccountID        int64
	FirstModo        time.Time
	FirstMove        time.Time
	IsNew            bool // first ledger movement ever was the MODO deposit
	WageredAfter     bool
	WageredNextDay   bool // within 1 day of the cut
	WageredNextMonth bool // within 30 days of the cut
}

// MonthlyUsersRow is platform growth for one month.
type MonthlyUsersRow struct {
	Month         string
	New           int
	Cumulative    int
	ActivePlayers int
}

// PeriodRow is one side of the before/after milestone comparison.
type PeriodRow struct {
	Period       string
	DepositCents int64
	WagerCents   int64
}

func firstSeen(txs []ledger.Transaction) map[int64]time.Time {
	out := map[int64]time.Time{}
	for _, tx := range txs {
		if tx.Timestamp.IsZero() {
			continue
		}
		if prev, ok := out[tx.AccountID]; !ok || tx.Timestamp.Before(prev) {
			out[tx.AccountID] = tx.Timestamp
		}
	}
	return out
}

func (r *Report) buildRetention(views classify.Views, cut Cutovers) {
	firstMove := firstSeen(views.All)

	firstModo := map[int64]time.Time{}
	for _, d := range views.Deposits {
		if d.Channel != classify.ChannelMODO || d.Timestamp.IsZero() {
			continue
		}
		if prev, ok := firstModo[d.AccountID]; !ok || d.Timestamp.Before(prev) {
			firstModo[d.AccountID] = d.Timestamp
		}
	}

	rows := map[int64]*RetentionRow{}
	for acc, ts := range firstModo {
		rows[acc] = &RetentionRow{
			AccountID: acc,
			FirstModo: ts,
			FirstMove: firstMove[acc],
			IsNew:     firstMove[acc].Equal(ts),
		}
	}

	for _, w := range r.Wagers {
		row, ok := rows[w.AccountID]
		if !ok || w.Timestamp.IsZero() || !w.Timestamp.After(row.FirstModo) {
			continue
		}
		row.WageredAfter = true
		if !w.Timestamp.After(row.FirstModo.AddDate(0, 0, 1)) {
			row.WageredNextDay = true
		}
		if !w.Timestamp.After(row.FirstModo.AddDate(0, 0, 30)) {
			row.WageredNextMonth = true
		}
	}

	for _, row := range rows {
		r.ModoRetention = append(r.ModoRetention, *row)
	}
	sort.Slice(r.ModoRetention, func(i, j int) bool {
		return r.ModoRetention[i].AccountID < r.ModoRetention[j].AccountID
	})
}

func (r *Report) buildGrowth(views classify.Views, cut Cutovers) {
	firstMove := firstSeen(views.All)

	newPerMonth := map[string]int{}
	for _, ts := range firstMove {
		newPerMonth[ts.Format("2006-01")]++
	}
	activePerMonth := map[string]map[int64]bool{}
	for _, w := range r.Wagers {
		if w.Month == "" {
			continue
		}
		if activePerMonth[w.Month] == nil {
			activePerMonth[w.Month] = map[int64]bool{}
		}
		activePerMonth[w.Month][w.AccountID] = true
	}

	months := make([]string, 0, len(newPerMonth))
	for m := range newPerMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	cum := 0
	for _, m := range months {
		cum += newPerMonth[m]
		r.MonthlyUsers = append(r.MonthlyUsers, MonthlyUsersRow{
			Month:         m,
			New:           newPerMonth[m],
			Cumulative:    cum,
			ActivePlayers: uniqueCount(activePerMonth[m]),
		})
	}

	// milestone headcounts
	newSinceGames := 0
	for _, ts := range firstMove {
		if !ts.Before(cut.GamesLaunch) {
			newSinceGames++
		}
	}
	playersSinceGames := map[int64]bool{}
	quiniLotoSince := map[int64]bool{}
	playersSinceModo := map[int64]bool{}
	for _, w := range r.Wagers {
		if w.Timestamp.IsZero() {
			continue
		}
		if !w.Timestamp.Before(cut.GamesLaunch) {
			playersSinceGames[w.AccountID] = true
			if newGamesRe.MatchString(w.GameNorm) {
				quiniLotoSince[w.AccountID] = true
			}
		}
		if !w.Timestamp.Before(cut.ModoFull) {
			playersSinceModo[w.AccountID] = true
		}
	}
	modoSince := map[int64]bool{}
	for _, d := range views.Deposits {
		if d.Channel == classify.ChannelMODO && !d.Timestamp.IsZero() && !d.Timestamp.Before(cut.ModoFull) {
			modoSince[d.AccountID] = true
		}
	}
	modoAndPlayed := 0
	for acc := range modoSince {
		if playersSinceModo[acc] {
			modoAndPlayed++
		}
	}

	games := cut.GamesLaunch.Format("2006-01-02")
	modo := cut.ModoFull.Format("2006-01-02")
	r.Milestones = []LabeledValue{
		{fmt.Sprintf("Nuevos >= %s (cualquier mov.)", games), newSinceGames},
		{fmt.Sprintf("Jugadores >= %s (cualquier apuesta)", games), uniqueCount(playersSinceGames)},
		{fmt.Sprintf("Apostaron Quini/Loto >= %s", games), uniqueCount(quiniLotoSince)},
		{fmt.Sprintf("Recargaron MODO >= %s", modo), uniqueCount(modoSince)},
		{fmt.Sprintf("Jugadores >= %s (cualquier apuesta)", modo), uniqueCount(playersSinceModo)},
		{fmt.Sprintf("Recargaron MODO y jugaron >= %s", modo), modoAndPlayed},
	}

	// before/after split, cut date inclusive on the after side
	var depBefore, depAfter, recBefore, recAfter int64
	for _, d := range views.Deposits {
		if d.Timestamp.IsZero() {
			continue
		}
		if d.Timestamp.Before(cut.ModoFull) {
			depBefore += d.AmountCents
		} else {
			depAfter += d.AmountCents
		}
	}
	for _, w := range r.Wagers {
		if w.Timestamp.IsZero() {
			continue
		}
		if w.Timestamp.Before(cut.ModoFull) {
			recBefore += w.AmountCents
		} else {
			recAfter += w.AmountCents
		}
	}
	cutLabel := cut.ModoFull.Format("02/01/2006")
	r.Comparison = []PeriodRow{
		{Period: "Before " + cutLabel, DepositCents: depBefore, WagerCents: recBefore},
		{Period: "After " + cutLabel, DepositCents: depAfter, WagerCents: recAfter},
	}
}

func (r *Report) buildKPIs(views classify.Views, reg *roster.Roster) {
	allUsers := map[int64]bool{}
	for _, tx := range views.All {
		allUsers[tx.AccountID] = true
	}
	wagerUsers := map[int64]bool{}
	for _, w := range r.Wagers {
		wagerUsers[w.AccountID] = true
	}
	depositUsers := map[int64]bool{}
	var depositTotal int64
	var modoCount, retailCount int
	var modoCents, retailCents int64
	for _, d := range views.Deposits {
		depositUsers[d.AccountID] = true
		depositTotal += d.AmountCents
		switch d.Channel {
		case classify.ChannelMODO:
			modoCount++
			modoCents += d.AmountCents
		case classify.ChannelRetail:
			retailCount++
			retailCents += d.AmountCents
		}
	}

	avg := 0.0
	if len(views.Deposits) > 0 {
		avg = float64(depositTotal) / float64(len(views.Deposits)) / 100
	}

	r.KPIs = []KPI{
		{Name: "Promedio depósito $", Kind: KPIRatio, Ratio: avg},
		{Name: "Usuarios únicos (cualquier mov.)", Kind: KPICount, Count: uniqueCount(allUsers)},
		{Name: "Usuarios únicos apostadores", Kind: KPICount, Count: uniqueCount(wagerUsers)},
		{Name: "Usuarios únicos que recargaron", Kind: KPICount, Count: uniqueCount(depositUsers)},
		{Name: "Recargas - MODO", Kind: KPICount, Count: modoCount},
		{Name: "Recargas - Retail", Kind: KPICount, Count: retailCount},
		{Name: "Monto MODO $", Kind: KPIMoney, Cents: modoCents},
		{Name: "Monto Retail $", Kind: KPIMoney, Cents: retailCents},
	}

	if reg != nil {
		registered := reg.Len()
		active := uniqueCount(allUsers)
		rate := 0.0
		if registered > 0 {
			rate = float64(active) / float64(registered) * 100
		}
		r.KPIs = append(r.KPIs,
			KPI{Name: "Total Usuarios Registrados", Kind: KPICount, Count: registered},
			KPI{Name: "Usuarios Activos (con mov.)", Kind: KPICount, Count: active},
			KPI{Name: "Usuarios Inactivos (sin mov.)", Kind: KPICount, Count: registered - active},
			KPI{Name: "Tasa de Actividad (%)", Kind: KPIRatio, Ratio: rate},
		)
	}
}
