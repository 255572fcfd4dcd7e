package store

import (
	"context"
	"sync"

	"github.com/agrofut/position-tracker/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and for running the tracker without any backing services (data does
// not survive a restart).
type MemoryStore struct {
	mu     sync.RWMutex
	txs    map[string][]model.Transaction
	prices map[string]model.PriceTable
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		txs:    make(map[string][]model.Transaction),
		prices: make(map[string]model.PriceTable),
	}
}

func (s *MemoryStore) InsertTransaction(_ context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs[tx.UserID] = append(s.txs[tx.UserID], *tx)
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to avoid external mutation.
	out := make([]model.Transaction, len(s.txs[userID]))
	copy(out, s.txs[userID])
	return out, nil
}

func (s *MemoryStore) ReplaceTransactions(_ context.Context, userID string, txs []model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := make([]model.Transaction, len(txs))
	copy(replaced, txs)
	s.txs[userID] = replaced
	return nil
}

func (s *MemoryStore) GetPrices(_ context.Context, userID string) (model.PriceTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(model.PriceTable, len(s.prices[userID]))
	for sym, p := range s.prices[userID] {
		out[sym] = p
	}
	return out, nil
}

func (s *MemoryStore) SetPrices(_ context.Context, userID string, prices model.PriceTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := make(model.PriceTable, len(prices))
	for sym, p := range prices {
		replaced[sym] = p
	}
	s.prices[userID] = replaced
	return nil
}
