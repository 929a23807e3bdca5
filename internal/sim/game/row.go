package game

import (
	"github.com/shopspring/decimal"

	"strategists.ai/internal/money"
	"strategists.ai/internal/update"
)

// Land is a land's immutable identity, fixed once per game at
// CREATE/RESET time. Its position in the game's land list is the index
// every per-land cell is addressed by.
type Land struct {
	ID   int64
	Name string
}

// LandCell holds one player's accumulated amounts for one land.
type LandCell struct {
	Ownership   decimal.Decimal
	DebitInvest decimal.Decimal
	DebitRent   decimal.Decimal
	CreditRent  decimal.Decimal
}

// Row is the evolving feature record kept per active player. Every
// total is the rounded sum of its per-land cells; debit splits into
// invest and rent sides, credit is rent only.
type Row struct {
	ExportTimestamp int64
	GameCode        string
	BankruptcyOrder int // 0 = unset; assigned once, never reassigned
	PlayerID        int64
	BaseCash        decimal.Decimal
	State           string

	OwnershipTotal decimal.Decimal
	OwnershipCount int

	DebitTotal       decimal.Decimal
	DebitCount       int
	DebitInvestTotal decimal.Decimal
	DebitInvestCount int
	DebitRentTotal   decimal.Decimal
	DebitRentCount   int

	CreditTotal     decimal.Decimal
	CreditCount     int
	CreditRentTotal decimal.Decimal
	CreditRentCount int

	// Lands is index-aligned with the game's land list.
	Lands []LandCell
}

func newRow(p update.PlayerSnapshot, gameCode string, exportTimestamp int64, landCount int) *Row {
	return &Row{
		ExportTimestamp: exportTimestamp,
		GameCode:        gameCode,
		PlayerID:        p.ID,
		BaseCash:        p.Cash,
		State:           p.State,
		Lands:           make([]LandCell, landCount),
	}
}

// recomputeInvest rebuilds ownership and invest-debit totals as sums
// over all land cells, counts as the number of strictly positive cells,
// and folds the rent side back into the overall debit aggregate.
func (r *Row) recomputeInvest() {
	ownTotal, investTotal := decimal.Zero, decimal.Zero
	ownCount, investCount := 0, 0
	for _, cell := range r.Lands {
		ownTotal = ownTotal.Add(cell.Ownership)
		investTotal = investTotal.Add(cell.DebitInvest)
		if cell.Ownership.IsPositive() {
			ownCount++
		}
		if cell.DebitInvest.IsPositive() {
			investCount++
		}
	}
	r.OwnershipTotal = money.Round2(ownTotal)
	r.OwnershipCount = ownCount
	r.DebitInvestTotal = money.Round2(investTotal)
	r.DebitInvestCount = investCount

	r.DebitTotal = money.Sum2(r.DebitRentTotal, r.DebitInvestTotal)
	r.DebitCount = r.DebitRentCount + r.DebitInvestCount
}

// applyPaidRent folds one deduplicated paid-rent entry into the debit
// side, including the land's rent-debit cell.
func (r *Row) applyPaidRent(landIdx int, amount decimal.Decimal) {
	r.DebitTotal = money.Sum2(r.DebitTotal, amount)
	r.DebitCount++
	r.DebitRentTotal = money.Sum2(r.DebitRentTotal, amount)
	r.DebitRentCount++
	r.Lands[landIdx].DebitRent = money.Sum2(r.Lands[landIdx].DebitRent, amount)
}

// applyReceivedRent folds one deduplicated received-rent entry into the
// credit side, including the land's rent-credit cell.
func (r *Row) applyReceivedRent(landIdx int, amount decimal.Decimal) {
	r.CreditTotal = money.Sum2(r.CreditTotal, amount)
	r.CreditCount++
	r.CreditRentTotal = money.Sum2(r.CreditRentTotal, amount)
	r.CreditRentCount++
	r.Lands[landIdx].CreditRent = money.Sum2(r.Lands[landIdx].CreditRent, amount)
}
