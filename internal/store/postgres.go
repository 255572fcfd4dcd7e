package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/agrofut/position-tracker/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of
// truth. Prices and transaction amounts are stored as NUMERIC for exact
// decimal precision and scanned via TEXT.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertTransaction(ctx context.Context, tx *model.Transaction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transactions (id, user_id, symbol, side, quantity, price, date, total)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7, $8::NUMERIC)`,
		tx.ID, tx.UserID, tx.Symbol, tx.Side, tx.Quantity,
		tx.Price.String(), tx.Date, tx.Total.String(),
	)
	return err
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	// seq is a BIGSERIAL: insertion order must survive round-trips
	// because same-day ordering decides entry dates downstream.
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symbol, side, quantity,
		        price::TEXT, date, total::TEXT
		 FROM transactions WHERE user_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (s *PostgresStore) ReplaceTransactions(ctx context.Context, userID string, txs []model.Transaction) error {
	return pgx.BeginFunc(ctx, s.pool, func(dbTx pgx.Tx) error {
		if _, err := dbTx.Exec(ctx,
			`DELETE FROM transactions WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, t := range txs {
			if _, err := dbTx.Exec(ctx,
				`INSERT INTO transactions (id, user_id, symbol, side, quantity, price, date, total)
				 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7, $8::NUMERIC)`,
				t.ID, userID, t.Symbol, t.Side, t.Quantity,
				t.Price.String(), t.Date, t.Total.String(),
			); err != nil {
				return fmt.Errorf("replace transactions for %s: %w", userID, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetPrices(ctx context.Context, userID string) (model.PriceTable, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT symbol, price::TEXT FROM prices WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(model.PriceTable)
	for rows.Next() {
		var sym, priceS string
		if err := rows.Scan(&sym, &priceS); err != nil {
			return nil, err
		}
		p, err := decimal.NewFromString(priceS)
		if err != nil {
			return nil, fmt.Errorf("scan price for %s: %w", sym, err)
		}
		prices[sym] = p
	}
	return prices, rows.Err()
}

func (s *PostgresStore) SetPrices(ctx context.Context, userID string, prices model.PriceTable) error {
	return pgx.BeginFunc(ctx, s.pool, func(dbTx pgx.Tx) error {
		if _, err := dbTx.Exec(ctx,
			`DELETE FROM prices WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for sym, p := range prices {
			if _, err := dbTx.Exec(ctx,
				`INSERT INTO prices (user_id, symbol, price)
				 VALUES ($1, $2, $3::NUMERIC)`,
				userID, sym, p.String(),
			); err != nil {
				return fmt.Errorf("set price %s for %s: %w", sym, userID, err)
			}
		}
		return nil
	})
}

// scanTransactions reads pgx rows into Transaction slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTransactions(rows pgxRows) ([]model.Transaction, error) {
	var txs []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var priceS, totalS string

		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Side, &t.Quantity,
			&priceS, &t.Date, &totalS); err != nil {
			return nil, err
		}

		var err error
		if t.Price, err = decimal.NewFromString(priceS); err != nil {
			return nil, fmt.Errorf("scan transaction %s: bad price %q: %w", t.ID, priceS, err)
		}
		if t.Total, err = decimal.NewFromString(totalS); err != nil {
			return nil, fmt.Errorf("scan transaction %s: bad total %q: %w", t.ID, totalS, err)
		}

		txs = append(txs, t)
	}
	return txs, rows.Err()
}
