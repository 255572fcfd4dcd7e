// Package model defines the core domain types shared across the tracker.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction sides.
const (
	SideBuy  = "Buy"
	SideSell = "Sell"
)

// Transaction is an immutable record of a single futures trade.
// Once created, these are never modified or deleted; positions are
// always recomputed by replaying the full transaction list.
type Transaction struct {
	ID       string          `json:"id" db:"id"`
	UserID   string          `json:"user_id" db:"user_id"`
	Symbol   string          `json:"symbol" db:"symbol"` // e.g. BGIK25
	Side     string          `json:"side" db:"side"`     // "Buy" or "Sell"
	Quantity int64           `json:"quantity" db:"quantity"`
	Price    decimal.Decimal `json:"price" db:"price"` // per arroba/sack
	Date     time.Time       `json:"date" db:"date"`   // execution date (UTC midnight)
	Total    decimal.Decimal `json:"total" db:"total"` // quantity * price
}

// SignedQuantity returns the quantity with Buy positive and Sell negative.
func (t Transaction) SignedQuantity() int64 {
	if t.Side == SideSell {
		return -t.Quantity
	}
	return t.Quantity
}

// OpenPosition is the derived running position for one symbol since its
// last zero-crossing. Never persisted as a source of truth.
type OpenPosition struct {
	Symbol       string          `json:"symbol"`
	Side         string          `json:"side"`          // "Buy" = long, "Sell" = short
	NetQuantity  int64           `json:"net_quantity"`  // signed: + long, - short
	AveragePrice decimal.Decimal `json:"average_price"` // weighted over the accumulating side
	EntryDate    time.Time       `json:"entry_date"`

	// Mark-to-market view, filled by position.Mark, zero otherwise.
	CurrentPrice  decimal.Decimal `json:"current_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	DaysOpen      int64           `json:"days_open"`
}

// ClosedPosition is one realized liquidation event: a partial close, an
// exact close, or the closing half of a reversal.
type ClosedPosition struct {
	Symbol     string          `json:"symbol"`
	ClosedSide string          `json:"closed_side"` // side that was being held
	Quantity   int64           `json:"quantity"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	Result     decimal.Decimal `json:"result"` // signed monetary P&L
	DaysHeld   int64           `json:"days_held"`
	CloseDate  time.Time       `json:"close_date"`
}

// PriceTable maps symbol -> current market price.
type PriceTable map[string]decimal.Decimal

// Snapshot is the full export/backup document. Transactions are the only
// source of truth; the derived lists are a rendering convenience and are
// recomputed on import, never trusted.
type Snapshot struct {
	Prices          PriceTable       `json:"prices"`
	Transactions    []Transaction    `json:"transactions"`
	OpenPositions   []OpenPosition   `json:"open_positions"`
	ClosedPositions []ClosedPosition `json:"closed_positions"`
	ExportedAt      time.Time        `json:"exported_at"`
}
