package classify

import (
	"github.com/loteria-digital/walletledger/internal/domain/ingest"
	"github.com/loteria-digital/walletledger/internal/domain/ledger"
)

// Deposit is a classified deposit ("carga") row with its channel.
type Deposit struct {
	ledger.Transaction
	Channel Channel
}

// Views are the classified slices of the ledger, recreated in full on
// every run and never persisted.
type Views struct {
	All         []ledger.Transaction
	Wagers      []ledger.Transaction
	Deposits    []Deposit
	Withdrawals []ledger.Transaction
	Prizes      []ledger.Transaction
}

// Classify tags every ledger row. Row order is preserved within each
// view, which downstream stable sorts rely on.
func Classify(txs []ledger.Transaction, rules *RuleSet) *Views {
	v := &Views{All: txs}
	for _, tx := range txs {
		normType := ingest.Normalize(tx.MovementType)
		switch rules.KindOf(normType) {
		case KindWager:
			v.Wagers = append(v.Wagers, tx)
		case KindDeposit:
			v.Deposits = append(v.Deposits, Deposit{
				Transaction: tx,
				Channel:     rules.ChannelOf(ingest.Normalize(tx.MovementLabel), normType),
			})
		case KindWithdrawal:
			v.Withdrawals = append(v.Withdrawals, tx)
		case KindPrize:
			v.Prizes = append(v.Prizes, tx)
		}
	}
	return v
}
