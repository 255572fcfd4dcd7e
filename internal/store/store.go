// Package store defines the persistence interface for the tracker.
// Implementations include PostgreSQL (source of truth), Redis
// (read-through cache, the edge key-value sync target), and in-memory
// (for testing and offline use).
//
// Only transactions and the price table are persisted. Open and closed
// positions are always recomputed from the transaction log, never
// stored. If two writers race, last-writer-wins at this layer.
package store

import (
	"context"

	"github.com/agrofut/position-tracker/internal/model"
)

// Store is the persistence interface, keyed per user.
type Store interface {
	// InsertTransaction appends an immutable trade record.
	InsertTransaction(ctx context.Context, tx *model.Transaction) error

	// ListTransactions returns all transactions for a user in insertion
	// order. A user with no data yields an empty list, not an error.
	ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error)

	// ReplaceTransactions atomically swaps a user's whole ledger.
	// Used by import and reset.
	ReplaceTransactions(ctx context.Context, userID string, txs []model.Transaction) error

	// GetPrices returns the user's symbol -> current price table.
	GetPrices(ctx context.Context, userID string) (model.PriceTable, error)

	// SetPrices replaces the user's price table.
	SetPrices(ctx context.Context, userID string, prices model.PriceTable) error
}
