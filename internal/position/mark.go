package position

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrofut/position-tracker/internal/contract"
	"github.com/agrofut/position-tracker/internal/model"
)

// Mark returns a copy of the open positions with the mark-to-market
// view filled in: current price, unrealized P&L and days open. A symbol
// with no price (or a non-positive one) marks at zero P&L rather than
// producing garbage — the table stays renderable.
//
// This is a read-only derived view, recomputed whenever prices change;
// it is never part of the persisted state.
func Mark(open []model.OpenPosition, prices model.PriceTable, resolve contract.Resolver, now time.Time) []model.OpenPosition {
	marked := make([]model.OpenPosition, len(open))
	for i, p := range open {
		m := p
		m.DaysOpen = daysBetween(p.EntryDate, now)

		cur, ok := prices[p.Symbol]
		if ok && cur.IsPositive() {
			mult, _ := resolve(p.Symbol)
			// NetQuantity is signed, so one formula covers both sides:
			// long profits when price rises, short when it falls.
			m.CurrentPrice = cur
			m.UnrealizedPnL = cur.Sub(p.AveragePrice).
				Mul(decimal.NewFromInt(p.NetQuantity)).Mul(mult)
		} else {
			m.CurrentPrice = decimal.Zero
			m.UnrealizedPnL = decimal.Zero
		}
		marked[i] = m
	}
	return marked
}

// Simulate returns the aggregate hypothetical P&L if every open
// position for the given symbol were closed at the given price. An
// empty symbol simulates across all open positions.
func Simulate(open []model.OpenPosition, symbol string, price decimal.Decimal, resolve contract.Resolver) decimal.Decimal {
	total := decimal.Zero
	for _, p := range open {
		if symbol != "" && p.Symbol != symbol {
			continue
		}
		mult, _ := resolve(p.Symbol)
		total = total.Add(price.Sub(p.AveragePrice).
			Mul(decimal.NewFromInt(p.NetQuantity)).Mul(mult))
	}
	return total
}
