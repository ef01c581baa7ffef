package aggregate

import (
	"sort"

	"github.com/loteria-digital/walletledger/internal/domain/ledger"
)

// WithdrawalDayRow is daily withdrawal volume, newest day first.
type WithdrawalDayRow struct {
	Day           string
	Count         int
	Cents         int64
	UniqueClients int
}

// PrizeRow is one account's collected prizes, largest total first.
type PrizeRow struct {
	AccountID int64
	Count     int
	Cents     int64
}

func (r *Report) buildWithdrawalTables(withdrawals, prizes []ledger.Transaction) {
	rows := map[string]*WithdrawalDayRow{}
	clients := map[string]map[int64]bool{}
	for _, tx := range withdrawals {
		day := tx.Day()
		if day == "" {
			continue
		}
		row := rows[day]
		if row == nil {
			row = &WithdrawalDayRow{Day: day}
			rows[day] = row
			clients[day] = map[int64]bool{}
		}
		row.Count++
		row.Cents += tx.AmountCents
		clients[day][tx.AccountID] = true
	}
	for day, row := range rows {
		row.UniqueClients = uniqueCount(clients[day])
		r.WithdrawalsDaily = append(r.WithdrawalsDaily, *row)
	}
	sort.Slice(r.WithdrawalsDaily, func(i, j int) bool {
		return r.WithdrawalsDaily[i].Day > r.WithdrawalsDaily[j].Day
	})

	perAccount := map[int64]*PrizeRow{}
	for _, tx := range prizes {
		row := perAccount[tx.AccountID]
		if row == nil {
			row = &PrizeRow{AccountID: tx.AccountID}
			perAccount[tx.AccountID] = row
		}
		row.Count++
		row.Cents += tx.AmountCents
	}
	for _, row := range perAccount {
		r.PrizeWinners = append(r.PrizeWinners, *row)
	}
	sort.SliceStable(r.PrizeWinners, func(i, j int) bool {
		a, b := r.PrizeWinners[i], r.PrizeWinners[j]
		if a.Cents != b.Cents {
			return a.Cents > b.Cents
		}
		return a.AccountID < b.AccountID
	})
}
