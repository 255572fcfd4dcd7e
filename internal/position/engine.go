// Package position implements the position-accounting engine: a pure
// fold of an ordered transaction list into open positions (weighted
// average entry) and realized liquidation events with computed P&L.
//
// The engine recomputes everything from the transaction log on every
// call. There is no incremental state to reconcile, which makes
// divergence between stored derived state and the ledger impossible at
// the cost of O(n) replay per update.
//
// All monetary values use shopspring/decimal — never float64 for money.
package position

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrofut/position-tracker/internal/contract"
	"github.com/agrofut/position-tracker/internal/model"
)

var (
	// ErrMalformedTransaction is returned when a transaction violates the
	// engine's preconditions (non-positive quantity or price, unknown
	// side). Upstream validation should reject these before they ever
	// reach the ledger; the engine refuses to guess.
	ErrMalformedTransaction = errors.New("position: malformed transaction")
)

// Result is the output of one full replay.
type Result struct {
	Open   []model.OpenPosition
	Closed []model.ClosedPosition

	// Warnings carries non-fatal resolution issues, one entry per
	// affected symbol (e.g. unknown family resolved with the default
	// multiplier).
	Warnings []string
}

// symbolState is the per-symbol running state machine: Flat (net == 0),
// Long (net > 0) or Short (net < 0).
type symbolState struct {
	net       int64
	avgPrice  decimal.Decimal
	entryDate time.Time
}

// Compute replays the transaction list in chronological order and
// returns the open and closed positions. The input slice is never
// mutated; transactions may arrive in any order and are stable-sorted
// by date (same-day ties keep their original relative order, which
// decides the entry date).
func Compute(txs []model.Transaction, resolve contract.Resolver) (*Result, error) {
	sorted := make([]model.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	res := &Result{}
	states := make(map[string]*symbolState)
	mults := make(map[string]decimal.Decimal)
	var symbolOrder []string

	for _, tx := range sorted {
		if err := checkPreconditions(tx); err != nil {
			return nil, err
		}

		st, ok := states[tx.Symbol]
		if !ok {
			st = &symbolState{}
			states[tx.Symbol] = st
			symbolOrder = append(symbolOrder, tx.Symbol)

			mult, known := resolve(tx.Symbol)
			mults[tx.Symbol] = mult
			if !known {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"symbol %s: unknown contract family, using default multiplier %s",
					tx.Symbol, mult))
			}
		}

		applyTransaction(st, tx, mults[tx.Symbol], res)
	}

	for _, sym := range symbolOrder {
		st := states[sym]
		if st.net == 0 {
			continue
		}
		side := model.SideBuy
		if st.net < 0 {
			side = model.SideSell
		}
		res.Open = append(res.Open, model.OpenPosition{
			Symbol:       sym,
			Side:         side,
			NetQuantity:  st.net,
			AveragePrice: st.avgPrice,
			EntryDate:    st.entryDate,
		})
	}

	return res, nil
}

// applyTransaction advances one symbol's state machine by a single
// transaction, emitting a ClosedPosition for any liquidated quantity.
func applyTransaction(st *symbolState, tx model.Transaction, mult decimal.Decimal, res *Result) {
	signed := tx.SignedQuantity()

	// Same-direction accumulation (or opening from flat): fold the fill
	// into the weighted average of the accumulating side.
	if st.net == 0 || sameSign(st.net, signed) {
		held := abs(st.net)
		newHeld := held + tx.Quantity
		st.avgPrice = st.avgPrice.Mul(decimal.NewFromInt(held)).
			Add(tx.Price.Mul(decimal.NewFromInt(tx.Quantity))).
			Div(decimal.NewFromInt(newHeld))
		if st.net == 0 {
			st.entryDate = tx.Date
		}
		st.net += signed
		return
	}

	// Opposite direction: liquidate up to the held quantity.
	closing := tx.Quantity
	if held := abs(st.net); closing > held {
		closing = held
	}

	closedSide := model.SideBuy
	result := tx.Price.Sub(st.avgPrice) // closing a long
	if st.net < 0 {
		closedSide = model.SideSell
		result = st.avgPrice.Sub(tx.Price) // closing a short
	}
	result = result.Mul(decimal.NewFromInt(closing)).Mul(mult)

	res.Closed = append(res.Closed, model.ClosedPosition{
		Symbol:     tx.Symbol,
		ClosedSide: closedSide,
		Quantity:   closing,
		EntryPrice: st.avgPrice,
		ExitPrice:  tx.Price,
		Result:     result,
		DaysHeld:   daysBetween(st.entryDate, tx.Date),
		CloseDate:  tx.Date,
	})

	if st.net > 0 {
		st.net -= closing
	} else {
		st.net += closing
	}

	remainder := tx.Quantity - closing
	switch {
	case remainder > 0:
		// Reversal: the excess opens a brand-new position in the other
		// direction at the fill price. Two logical events from one
		// transaction — never averaged together.
		if tx.Side == model.SideBuy {
			st.net = remainder
		} else {
			st.net = -remainder
		}
		st.avgPrice = tx.Price
		st.entryDate = tx.Date
	case st.net == 0:
		// Exact close: back to flat, and emphatically no zero-quantity
		// reversal record.
		st.avgPrice = decimal.Zero
		st.entryDate = time.Time{}
	}
}

func checkPreconditions(tx model.Transaction) error {
	if tx.Quantity <= 0 {
		return fmt.Errorf("%w: %s quantity %d (must be positive)",
			ErrMalformedTransaction, tx.Symbol, tx.Quantity)
	}
	if !tx.Price.IsPositive() {
		return fmt.Errorf("%w: %s price %s (must be positive)",
			ErrMalformedTransaction, tx.Symbol, tx.Price)
	}
	if tx.Side != model.SideBuy && tx.Side != model.SideSell {
		return fmt.Errorf("%w: %s side %q", ErrMalformedTransaction, tx.Symbol, tx.Side)
	}
	return nil
}

func sameSign(a, b int64) bool {
	return (a > 0) == (b > 0)
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// daysBetween returns whole days from entry to exit, floored and
// clamped to >= 0.
func daysBetween(entry, exit time.Time) int64 {
	if entry.IsZero() || exit.Before(entry) {
		return 0
	}
	return int64(exit.Sub(entry) / (24 * time.Hour))
}
