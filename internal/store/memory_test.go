package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrofut/position-tracker/internal/model"
)

func memTx(user, symbol string, qty int64) *model.Transaction {
	return &model.Transaction{
		ID:       "tx-" + symbol,
		UserID:   user,
		Symbol:   symbol,
		Side:     model.SideBuy,
		Quantity: qty,
		Price:    decimal.NewFromInt(300),
		Date:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Total:    decimal.NewFromInt(300 * qty),
	}
}

func TestMemoryStore_InsertAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.InsertTransaction(ctx, memTx("u1", "BGIK25", 10)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertTransaction(ctx, memTx("u1", "CCMN25", 2)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	txs, err := s.ListTransactions(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	// Insertion order is preserved.
	if txs[0].Symbol != "BGIK25" || txs[1].Symbol != "CCMN25" {
		t.Errorf("insertion order lost: %s, %s", txs[0].Symbol, txs[1].Symbol)
	}
}

func TestMemoryStore_UsersAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.InsertTransaction(ctx, memTx("u1", "BGIK25", 10))

	txs, _ := s.ListTransactions(ctx, "u2")
	if len(txs) != 0 {
		t.Errorf("u2 should see no transactions, got %d", len(txs))
	}
}

func TestMemoryStore_ListReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.InsertTransaction(ctx, memTx("u1", "BGIK25", 10))

	txs, _ := s.ListTransactions(ctx, "u1")
	txs[0].Symbol = "MUTATED"

	again, _ := s.ListTransactions(ctx, "u1")
	if again[0].Symbol != "BGIK25" {
		t.Error("mutating a listed slice leaked into the store")
	}
}

func TestMemoryStore_ReplaceTransactions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.InsertTransaction(ctx, memTx("u1", "BGIK25", 10))

	replacement := []model.Transaction{*memTx("u1", "CCMN25", 3)}
	if err := s.ReplaceTransactions(ctx, "u1", replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}

	txs, _ := s.ListTransactions(ctx, "u1")
	if len(txs) != 1 || txs[0].Symbol != "CCMN25" {
		t.Errorf("replace did not take: %+v", txs)
	}

	// Replacing with nil clears the ledger.
	if err := s.ReplaceTransactions(ctx, "u1", nil); err != nil {
		t.Fatalf("replace nil: %v", err)
	}
	txs, _ = s.ListTransactions(ctx, "u1")
	if len(txs) != 0 {
		t.Errorf("expected empty ledger after nil replace, got %d", len(txs))
	}
}

func TestMemoryStore_Prices(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	prices, err := s.GetPrices(ctx, "u1")
	if err != nil {
		t.Fatalf("get prices: %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("expected empty price table, got %d entries", len(prices))
	}

	in := model.PriceTable{"BGIK25": decimal.NewFromInt(310)}
	if err := s.SetPrices(ctx, "u1", in); err != nil {
		t.Fatalf("set prices: %v", err)
	}

	// Mutating the caller's map after SetPrices must not leak in.
	in["BGIK25"] = decimal.NewFromInt(999)

	prices, _ = s.GetPrices(ctx, "u1")
	if !prices["BGIK25"].Equal(decimal.NewFromInt(310)) {
		t.Errorf("expected stored price 310, got %s", prices["BGIK25"])
	}
}
