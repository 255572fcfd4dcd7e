package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrofut/position-tracker/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis
// read-through cache. Writes go to the primary store and invalidate the
// cache; reads check Redis first then fall back to the primary. This is
// the edge key-value layer keeping dashboard reloads off the database.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) InsertTransaction(ctx context.Context, tx *model.Transaction) error {
	if err := s.primary.InsertTransaction(ctx, tx); err != nil {
		return err
	}
	s.rdb.Del(ctx, transactionsKey(tx.UserID))
	return nil
}

func (s *CachedStore) ReplaceTransactions(ctx context.Context, userID string, txs []model.Transaction) error {
	if err := s.primary.ReplaceTransactions(ctx, userID, txs); err != nil {
		return err
	}
	s.rdb.Del(ctx, transactionsKey(userID))
	return nil
}

func (s *CachedStore) SetPrices(ctx context.Context, userID string, prices model.PriceTable) error {
	if err := s.primary.SetPrices(ctx, userID, prices); err != nil {
		return err
	}
	s.rdb.Del(ctx, pricesKey(userID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	data, err := s.rdb.Get(ctx, transactionsKey(userID)).Bytes()
	if err == nil {
		var txs []model.Transaction
		if json.Unmarshal(data, &txs) == nil {
			return txs, nil
		}
	}

	// Cache miss: read from primary.
	txs, err := s.primary.ListTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(txs); err == nil {
		s.rdb.Set(ctx, transactionsKey(userID), data, s.ttl)
	}
	return txs, nil
}

func (s *CachedStore) GetPrices(ctx context.Context, userID string) (model.PriceTable, error) {
	data, err := s.rdb.Get(ctx, pricesKey(userID)).Bytes()
	if err == nil {
		var prices model.PriceTable
		if json.Unmarshal(data, &prices) == nil {
			return prices, nil
		}
	}

	prices, err := s.primary.GetPrices(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(prices); err == nil {
		s.rdb.Set(ctx, pricesKey(userID), data, s.ttl)
	}
	return prices, nil
}

// --- Cache keys ---

func transactionsKey(userID string) string { return fmt.Sprintf("transactions:%s", userID) }
func pricesKey(userID string) string       { return fmt.Sprintf("prices:%s", userID) }
