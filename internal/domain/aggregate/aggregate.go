// Package aggregate turns the classified ledger into the tables the
// dashboard consumes. All money values are int64 cents; ratios and
// averages become float64 only at the edge.
package aggregate

import (
	"sort"
	"time"

	"github.com/loteria-digital/walletledger/internal/domain/classify"
	"github.com/loteria-digital/walletledger/internal/domain/roster"
)

// Cutovers are the business milestones the comparative tables pivot on.
type Cutovers struct {
	GamesLaunch time.Time // online games went live
	ModoFull    time.Time // MODO enabled for every account
}

// Report is the full set of dashboard tables for one run. The roster
// block is only populated when a roster was supplied.
type Report struct {
	Wagers []Wager

	DailyTakings  []DailyTaking
	GameDayDetail []GameDayRow
	WeekdayTotals []WeekdayRow
	ClientMonth   []ClientMonthRow
	TopGamesTotal []GameTotalsRow
	TopGamesMonth []GameMonthRow
	GameSummaries []GameSummary

	DailyChannel  []ChannelDayRow
	AmountPivot   Pivot
	CountPivot    CountPivot
	AveragePivot  AvgPivot
	ModoDaily     []ModoDayRow
	ModoMovements []ModoMovement

	WithdrawalsDaily []WithdrawalDayRow
	PrizeWinners     []PrizeRow

	ModoRetention []RetentionRow
	MonthlyUsers  []MonthlyUsersRow
	Milestones    []LabeledValue
	Comparison    []PeriodRow
	KPIs          []KPI

	// roster-dependent tables
	HasRoster       bool
	NewModoUsers    []AccountRow
	ReactivatedModo []ReactivatedRow
	TotalNewModo    int
	CohortRetention []CohortRow
	WagersWithUsers []WagerUserRow
	TopByGame       []GameTopPlayers
	InactiveUsers   []AccountRow
}

// LabeledValue is a generic concept/value row.
type LabeledValue struct {
	Label string
	Value int
}

// KPI is a single summary indicator. Cents carries money values,
// Ratio carries percentages and averages, Count everything else.
// Exactly one of the three is meaningful per row, chosen by Kind.
type KPI struct {
	Name  string
	Kind  KPIKind
	Count int
	Cents int64
	Ratio float64
}

type KPIKind int

const (
	KPICount KPIKind = iota
	KPIMoney
	KPIRatio
)

// Build computes every table from the classified ledger views.
func Build(views classify.Views, cut Cutovers, reg *roster.Roster) *Report {
	r := &Report{}
	r.Wagers = enrichWagers(views.Wagers)

	r.buildWagerTables()
	r.buildDepositTables(views.Deposits)
	r.buildWithdrawalTables(views.Withdrawals, views.Prizes)
	r.buildRetention(views, cut)
	r.buildGrowth(views, cut)
	r.buildKPIs(views, reg)

	if reg != nil {
		r.HasRoster = true
		r.buildRosterTables(views, cut, reg)
	}
	return r
}

func sortedDays(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func uniqueCount(set map[int64]bool) int { return len(set) }
