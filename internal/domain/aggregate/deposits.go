package aggregate

import (
	"sort"

	"github.com/loteria-digital/walletledger/internal/domain/classify"
)

// ChannelDayRow is deposit activity for one (day, channel) pair.
type ChannelDayRow struct {
	Day         string
	Channel     classify.Channel
	Count       int
	Cents       int64
	UniqueUsers int
}

// Pivot is the wide per-day deposit amount table. Days and Channels
// are sorted; missing cells are zero.
type Pivot struct {
	Days     []string
	Channels []classify.Channel
	Cells    map[string]map[classify.Channel]int64
}

// CountPivot mirrors Pivot for deposit counts.
type CountPivot struct {
	Days     []string
	Channels []classify.Channel
	Cells    map[string]map[classify.Channel]int
}

// AvgPivot is the average ticket per day. Only MODO and Retail are
// averaged; residual channels carry their raw amount through, which
// is what the dashboard template expects.
type AvgPivot struct {
	Days     []string
	Channels []classify.Channel
	Cells    map[string]map[classify.Channel]float64
}

// ModoDayRow is MODO-only daily deposit volume, newest day first.
type ModoDayRow struct {
	Day         string
	Count       int
	Cents       int64
	UniqueUsers int
}

// ModoMovement is one raw MODO deposit, kept for downstream joins.
type ModoMovement struct {
	AccountID int64
	Day       string
	Cents     int64
}

func (r *Report) buildDepositTables(deposits []classify.Deposit) {
	type key struct {
		day     string
		channel classify.Channel
	}
	rows := map[key]*ChannelDayRow{}
	users := map[key]map[int64]bool{}
	modo := map[string]*ModoDayRow{}
	modoUsers := map[string]map[int64]bool{}
	daySet := map[string]bool{}
	chanSet := map[classify.Channel]bool{}

	for _, d := range deposits {
		day := d.Day()
		if d.Channel == classify.ChannelMODO {
			r.ModoMovements = append(r.ModoMovements, ModoMovement{
				AccountID: d.AccountID, Day: day, Cents: d.AmountCents,
			})
		}
		if day == "" {
			continue
		}
		daySet[day] = true
		chanSet[d.Channel] = true

		k := key{day, d.Channel}
		row := rows[k]
		if row == nil {
			row = &ChannelDayRow{Day: day, Channel: d.Channel}
			rows[k] = row
			users[k] = map[int64]bool{}
		}
		row.Count++
		row.Cents += d.AmountCents
		users[k][d.AccountID] = true

		if d.Channel == classify.ChannelMODO {
			md := modo[day]
			if md == nil {
				md = &ModoDayRow{Day: day}
				modo[day] = md
				modoUsers[day] = map[int64]bool{}
			}
			md.Count++
			md.Cents += d.AmountCents
			modoUsers[day][d.AccountID] = true
		}
	}

	for k, row := range rows {
		row.UniqueUsers = uniqueCount(users[k])
		r.DailyChannel = append(r.DailyChannel, *row)
	}
	sort.Slice(r.DailyChannel, func(i, j int) bool {
		a, b := r.DailyChannel[i], r.DailyChannel[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Channel < b.Channel
	})

	days := sortedDays(daySet)
	channels := make([]classify.Channel, 0, len(chanSet))
	for c := range chanSet {
		channels = append(channels, c)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })

	r.AmountPivot = Pivot{Days: days, Channels: channels, Cells: map[string]map[classify.Channel]int64{}}
	r.CountPivot = CountPivot{Days: days, Channels: channels, Cells: map[string]map[classify.Channel]int{}}
	for _, d := range days {
		r.AmountPivot.Cells[d] = map[classify.Channel]int64{}
		r.CountPivot.Cells[d] = map[classify.Channel]int{}
	}
	for _, row := range r.DailyChannel {
		r.AmountPivot.Cells[row.Day][row.Channel] = row.Cents
		r.CountPivot.Cells[row.Day][row.Channel] = row.Count
	}

	r.AveragePivot = AvgPivot{Days: days, Channels: channels, Cells: map[string]map[classify.Channel]float64{}}
	for _, d := range days {
		r.AveragePivot.Cells[d] = map[classify.Channel]float64{}
		for _, c := range channels {
			cents := r.AmountPivot.Cells[d][c]
			if c == classify.ChannelMODO || c == classify.ChannelRetail {
				if n := r.CountPivot.Cells[d][c]; n > 0 {
					r.AveragePivot.Cells[d][c] = float64(cents) / float64(n) / 100
				}
				continue
			}
			r.AveragePivot.Cells[d][c] = float64(cents) / 100
		}
	}

	for day, md := range modo {
		md.UniqueUsers = uniqueCount(modoUsers[day])
		r.ModoDaily = append(r.ModoDaily, *md)
	}
	sort.Slice(r.ModoDaily, func(i, j int) bool { return r.ModoDaily[i].Day > r.ModoDaily[j].Day })
}
