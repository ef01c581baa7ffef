package aggregate

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/loteria-digital/walletledger/internal/domain/ingest"
	"github.com/loteria-digital/walletledger/internal/domain/ledger"
)

// gamePrefixRe strips the movement label prefix that precedes the game
// name on every bet row.
var gamePrefixRe = regexp.MustCompile(`(?i)jugada\s*-\s*`)

// GamePattern names one game family and the expression that recognizes
// it on a normalized game name.
type GamePattern struct {
	Key     string
	Pattern *regexp.Regexp
}

// GamePatterns drive the per-game summary and top-player tables. Order
// is the order the tables are emitted in.
var GamePatterns = []GamePattern{
	{"Tombo_Express", regexp.MustCompile(`tombo express`)},
	{"Tombola", regexp.MustCompile(`t(?:o|ó)mbola`)},
	{"Quini6", regexp.MustCompile(`quini\s*6`)},
	{"Loto_Plus", regexp.MustCompile(`loto(?:\s*plus)?`)},
}

var newGamesRe = regexp.MustCompile(`(?:quini\s*6|loto(?:\s*plus)?)`)

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "Lunes",
	time.Tuesday:   "Martes",
	time.Wednesday: "Miércoles",
	time.Thursday:  "Jueves",
	time.Friday:    "Viernes",
	time.Saturday:  "Sábado",
	time.Sunday:    "Domingo",
}

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// Wager is a bet row with its derived reporting fields.
type Wager struct {
	ledger.Transaction
	Day      string // "" when the timestamp never parsed
	Month    string
	Game     string
	GameNorm string
	Weekday  string
}

func enrichWagers(txs []ledger.Transaction) []Wager {
	out := make([]Wager, 0, len(txs))
	for _, tx := range txs {
		w := Wager{
			Transaction: tx,
			Day:         tx.Day(),
			Month:       tx.Month(),
			Game:        strings.TrimSpace(gamePrefixRe.ReplaceAllString(tx.MovementLabel, "")),
		}
		w.GameNorm = ingest.Normalize(w.Game)
		if !tx.Timestamp.IsZero() {
			w.Weekday = weekdayNames[tx.Timestamp.Weekday()]
		}
		out = append(out, w)
	}
	return out
}

// DailyTaking is total bet revenue for one calendar day.
type DailyTaking struct {
	Day   string
	Cents int64
}

// GameDayRow is per-game activity for one day.
type GameDayRow struct {
	Day         string
	Game        string
	Bets        int
	UniqueUsers int
	Cents       int64
}

// WeekdayRow is total bet volume for one weekday across the whole
// ledger, Monday first.
type WeekdayRow struct {
	Weekday     string
	Bets        int
	UniqueUsers int
}

// ClientMonthRow is one account's activity on one game in one month.
type ClientMonthRow struct {
	AccountID int64
	Month     string
	Game      string
	Bets      int
	Cents     int64
}

// GameTotalsRow is the all-time leaderboard entry for one game.
type GameTotalsRow struct {
	Game          string
	Bets          int
	UniquePlayers int
	Cents         int64
}

// GameMonthRow is one game's monthly volume.
type GameMonthRow struct {
	Month         string
	Game          string
	Bets          int
	UniquePlayers int
	Cents         int64
}

// PlayerGameRow is one account's totals within a game family.
type PlayerGameRow struct {
	AccountID int64
	Bets      int
	Cents     int64
}

// GameSummary holds the per-player rollup for one game family.
type GameSummary struct {
	Key     string
	Players []PlayerGameRow
}

func (r *Report) buildWagerTables() {
	type dayGameKey struct {
		day, game string
	}
	type monthGameKey struct {
		month, game string
	}
	type clientKey struct {
		acc   int64
		month string
		game  string
	}

	dayCents := map[string]int64{}
	dayGame := map[dayGameKey]*GameDayRow{}
	dayGameUsers := map[dayGameKey]map[int64]bool{}
	weekday := map[string]*WeekdayRow{}
	weekdayUsers := map[string]map[int64]bool{}
	client := map[clientKey]*ClientMonthRow{}
	gameTotal := map[string]*GameTotalsRow{}
	gameUsers := map[string]map[int64]bool{}
	monthGame := map[monthGameKey]*GameMonthRow{}
	monthGameUsers := map[monthGameKey]map[int64]bool{}

	for _, w := range r.Wagers {
		if w.Day != "" {
			dayCents[w.Day] += w.AmountCents

			dk := dayGameKey{w.Day, w.Game}
			row := dayGame[dk]
			if row == nil {
				row = &GameDayRow{Day: w.Day, Game: w.Game}
				dayGame[dk] = row
				dayGameUsers[dk] = map[int64]bool{}
			}
			row.Bets++
			row.Cents += w.AmountCents
			dayGameUsers[dk][w.AccountID] = true

			wd := weekday[w.Weekday]
			if wd == nil {
				wd = &WeekdayRow{Weekday: w.Weekday}
				weekday[w.Weekday] = wd
				weekdayUsers[w.Weekday] = map[int64]bool{}
			}
			wd.Bets++
			weekdayUsers[w.Weekday][w.AccountID] = true
		}

		ck := clientKey{w.AccountID, w.Month, w.Game}
		cr := client[ck]
		if cr == nil {
			cr = &ClientMonthRow{AccountID: w.AccountID, Month: w.Month, Game: w.Game}
			client[ck] = cr
		}
		cr.Bets++
		cr.Cents += w.AmountCents

		gt := gameTotal[w.Game]
		if gt == nil {
			gt = &GameTotalsRow{Game: w.Game}
			gameTotal[w.Game] = gt
			gameUsers[w.Game] = map[int64]bool{}
		}
		gt.Bets++
		gt.Cents += w.AmountCents
		gameUsers[w.Game][w.AccountID] = true

		mk := monthGameKey{w.Month, w.Game}
		mg := monthGame[mk]
		if mg == nil {
			mg = &GameMonthRow{Month: w.Month, Game: w.Game}
			monthGame[mk] = mg
			monthGameUsers[mk] = map[int64]bool{}
		}
		mg.Bets++
		mg.Cents += w.AmountCents
		monthGameUsers[mk][w.AccountID] = true
	}

	for d, c := range dayCents {
		r.DailyTakings = append(r.DailyTakings, DailyTaking{Day: d, Cents: c})
	}
	sort.Slice(r.DailyTakings, func(i, j int) bool { return r.DailyTakings[i].Day < r.DailyTakings[j].Day })

	for k, row := range dayGame {
		row.UniqueUsers = uniqueCount(dayGameUsers[k])
		r.GameDayDetail = append(r.GameDayDetail, *row)
	}
	sort.Slice(r.GameDayDetail, func(i, j int) bool {
		a, b := r.GameDayDetail[i], r.GameDayDetail[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Game < b.Game
	})

	for _, wd := range weekdayOrder {
		name := weekdayNames[wd]
		row := weekday[name]
		if row == nil {
			continue
		}
		row.UniqueUsers = uniqueCount(weekdayUsers[name])
		r.WeekdayTotals = append(r.WeekdayTotals, *row)
	}

	for _, cr := range client {
		r.ClientMonth = append(r.ClientMonth, *cr)
	}
	sort.Slice(r.ClientMonth, func(i, j int) bool {
		a, b := r.ClientMonth[i], r.ClientMonth[j]
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Game < b.Game
	})

	for g, gt := range gameTotal {
		gt.UniquePlayers = uniqueCount(gameUsers[g])
		r.TopGamesTotal = append(r.TopGamesTotal, *gt)
	}
	// Rows come out of a map, so ties need the name tiebreak to keep
	// the leaderboard order identical across runs.
	sort.Slice(r.TopGamesTotal, func(i, j int) bool {
		a, b := r.TopGamesTotal[i], r.TopGamesTotal[j]
		if a.Bets != b.Bets {
			return a.Bets > b.Bets
		}
		return a.Game < b.Game
	})

	for k, mg := range monthGame {
		mg.UniquePlayers = uniqueCount(monthGameUsers[k])
		r.TopGamesMonth = append(r.TopGamesMonth, *mg)
	}
	sort.Slice(r.TopGamesMonth, func(i, j int) bool {
		a, b := r.TopGamesMonth[i], r.TopGamesMonth[j]
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		if a.Bets != b.Bets {
			return a.Bets > b.Bets
		}
		return a.Game < b.Game
	})

	r.buildGameSummaries()
}

func (r *Report) buildGameSummaries() {
	for _, gp := range GamePatterns {
		perPlayer := map[int64]*PlayerGameRow{}
		for _, w := range r.Wagers {
			if !gp.Pattern.MatchString(w.GameNorm) {
				continue
			}
			row := perPlayer[w.AccountID]
			if row == nil {
				row = &PlayerGameRow{AccountID: w.AccountID}
				perPlayer[w.AccountID] = row
			}
			row.Bets++
			row.Cents += w.AmountCents
		}

		summary := GameSummary{Key: gp.Key}
		for _, row := range perPlayer {
			summary.Players = append(summary.Players, *row)
		}
		sort.SliceStable(summary.Players, func(i, j int) bool {
			a, b := summary.Players[i], summary.Players[j]
			if a.Cents != b.Cents {
				return a.Cents > b.Cents
			}
			return a.AccountID < b.AccountID
		})
		r.GameSummaries = append(r.GameSummaries, summary)
	}
}
