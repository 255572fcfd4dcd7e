// Package track provides the HTTP handlers and business logic for
// recording transactions, querying positions and performance stats, and
// moving data in and out of the tracker.
//
// All monetary values use shopspring/decimal — never float64 for money.
package track

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrofut/position-tracker/internal/contract"
	"github.com/agrofut/position-tracker/internal/metrics"
	"github.com/agrofut/position-tracker/internal/model"
	"github.com/agrofut/position-tracker/internal/position"
	"github.com/agrofut/position-tracker/internal/stats"
	"github.com/agrofut/position-tracker/internal/store"
)

// DefaultUser scopes data when no ?user= is given, matching the
// single-user deployments this tracker started from.
const DefaultUser = "default-user"

const dateLayout = "2006-01-02"

// defaultPrices seeds the price table for users who have never saved
// one: the fat-cattle reference curve, April through December 2025.
var defaultPrices = model.PriceTable{
	"BGIJ25": decimal.NewFromInt(350),
	"BGIK25": decimal.NewFromInt(340),
	"BGIM25": decimal.NewFromInt(330),
	"BGIN25": decimal.NewFromInt(320),
	"BGIQ25": decimal.NewFromInt(310),
	"BGIU25": decimal.NewFromInt(300),
	"BGIV25": decimal.NewFromInt(290),
	"BGIX25": decimal.NewFromInt(280),
	"BGIZ25": decimal.NewFromInt(270),
}

// Service handles tracker operations. Uses a mutex for serialized
// mutations (single-instance); reads go straight to the store.
type Service struct {
	store   store.Store
	resolve contract.Resolver
	mu      sync.Mutex
	wsHub   *WSHub // optional WebSocket hub for real-time broadcasts
	now     func() time.Time
}

// NewService creates a new tracker service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, resolve contract.Resolver, hub *WSHub) *Service {
	return &Service{
		store:   st,
		resolve: resolve,
		wsHub:   hub,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// --- Request/Response types ---

// TransactionRequest is the JSON body for POST /transactions.
type TransactionRequest struct {
	Date     string          `json:"date"` // YYYY-MM-DD
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"` // "Buy" or "Sell"
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// TransactionResponse is returned from POST /transactions.
type TransactionResponse struct {
	Transaction model.Transaction    `json:"transaction"`
	Open        []model.OpenPosition `json:"open_positions"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// LiquidateRequest is the JSON body for POST /positions/liquidate.
type LiquidateRequest struct {
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// SimulateRequest is the JSON body for POST /simulate. An empty symbol
// simulates the price across every open position.
type SimulateRequest struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// --- HTTP Handlers ---

// CreateTransaction handles POST /api/v1/transactions
func (s *Service) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := s.buildTransaction(userID(r), req)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := r.Context()
	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		writeError(w, "failed to record transaction", http.StatusInternalServerError)
		return
	}
	metrics.TransactionsTotal.WithLabelValues(tx.Side).Inc()

	res, err := s.recompute(r, tx.UserID)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.noteFallbacks(tx.UserID, res)

	slog.Info("transaction recorded",
		"id", tx.ID,
		"user", tx.UserID,
		"symbol", tx.Symbol,
		"side", tx.Side,
		"qty", tx.Quantity,
		"price", tx.Price.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:        "transaction_recorded",
			Symbol:      tx.Symbol,
			Side:        tx.Side,
			Quantity:    tx.Quantity,
			Price:       tx.Price.String(),
			OpenCount:   len(res.Open),
			ClosedCount: len(res.Closed),
		})
	}

	writeJSON(w, http.StatusCreated, TransactionResponse{
		Transaction: *tx,
		Open:        res.Open,
		Warnings:    res.Warnings,
	})
}

// ListTransactions handles GET /api/v1/transactions
func (s *Service) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context(), userID(r))
	if err != nil {
		writeError(w, "failed to list transactions", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// OpenPositions handles GET /api/v1/positions/open
// Returns open positions marked to market with the current price table.
func (s *Service) OpenPositions(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	res, err := s.recompute(r, uid)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	prices, err := s.loadPrices(r, uid)
	if err != nil {
		writeError(w, "failed to load prices", http.StatusInternalServerError)
		return
	}

	marked := position.Mark(res.Open, prices, s.resolve, s.now())
	writeJSON(w, http.StatusOK, struct {
		Positions []model.OpenPosition `json:"positions"`
		Warnings  []string             `json:"warnings,omitempty"`
	}{marked, res.Warnings})
}

// ClosedPositions handles GET /api/v1/positions/closed
func (s *Service) ClosedPositions(w http.ResponseWriter, r *http.Request) {
	res, err := s.recompute(r, userID(r))
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	closed := res.Closed
	if closed == nil {
		closed = []model.ClosedPosition{}
	}
	writeJSON(w, http.StatusOK, closed)
}

// Liquidate handles POST /api/v1/positions/liquidate
// Closing is itself a transaction: an offsetting trade dated today is
// appended and positions are recomputed from the ledger.
func (s *Service) Liquidate(w http.ResponseWriter, r *http.Request) {
	var req LiquidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	uid := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.recompute(r, uid)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var open *model.OpenPosition
	for i := range res.Open {
		if res.Open[i].Symbol == req.Symbol {
			open = &res.Open[i]
			break
		}
	}
	if open == nil {
		writeError(w, "no open position for symbol: "+req.Symbol, http.StatusNotFound)
		return
	}

	held := open.NetQuantity
	if held < 0 {
		held = -held
	}
	if req.Quantity <= 0 || req.Quantity > held {
		writeError(w, "quantity must be between 1 and the open position size", http.StatusBadRequest)
		return
	}

	side := model.SideSell // closing a long
	if open.Side == model.SideSell {
		side = model.SideBuy // closing a short
	}

	tx, err := s.buildTransaction(uid, TransactionRequest{
		Date:     s.now().Format(dateLayout),
		Symbol:   req.Symbol,
		Side:     side,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.InsertTransaction(r.Context(), tx); err != nil {
		writeError(w, "failed to record liquidation", http.StatusInternalServerError)
		return
	}
	metrics.TransactionsTotal.WithLabelValues(tx.Side).Inc()

	res, err = s.recompute(r, uid)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.noteFallbacks(uid, res)

	// The liquidation's realized result is the newest closed record for
	// this symbol.
	var realized *model.ClosedPosition
	for i := len(res.Closed) - 1; i >= 0; i-- {
		if res.Closed[i].Symbol == req.Symbol {
			realized = &res.Closed[i]
			break
		}
	}

	slog.Info("position liquidated",
		"user", uid,
		"symbol", req.Symbol,
		"qty", req.Quantity,
		"price", req.Price.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:        "position_liquidated",
			Symbol:      req.Symbol,
			Side:        side,
			Quantity:    req.Quantity,
			Price:       req.Price.String(),
			OpenCount:   len(res.Open),
			ClosedCount: len(res.Closed),
		})
	}

	writeJSON(w, http.StatusOK, struct {
		Transaction model.Transaction     `json:"transaction"`
		Closed      *model.ClosedPosition `json:"closed_position"`
		Open        []model.OpenPosition  `json:"open_positions"`
	}{*tx, realized, res.Open})
}

// Stats handles GET /api/v1/stats
func (s *Service) Stats(w http.ResponseWriter, r *http.Request) {
	res, err := s.recompute(r, userID(r))
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats.Compute(res.Closed))
}

// GetPrices handles GET /api/v1/prices
func (s *Service) GetPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := s.loadPrices(r, userID(r))
	if err != nil {
		writeError(w, "failed to load prices", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// UpdatePrices handles PUT /api/v1/prices
func (s *Service) UpdatePrices(w http.ResponseWriter, r *http.Request) {
	var prices model.PriceTable
	if err := json.NewDecoder(r.Body).Decode(&prices); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	for sym, p := range prices {
		if !p.IsPositive() {
			writeError(w, "price for "+sym+" must be positive", http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SetPrices(r.Context(), userID(r), prices); err != nil {
		writeError(w, "failed to save prices", http.StatusInternalServerError)
		return
	}

	slog.Info("prices updated", "user", userID(r), "symbols", len(prices))

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: "prices_updated"})
	}
	writeJSON(w, http.StatusOK, prices)
}

// Simulate handles POST /api/v1/simulate
// Returns the hypothetical P&L of closing open positions at a price.
func (s *Service) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Price.IsPositive() {
		writeError(w, "price must be positive", http.StatusBadRequest)
		return
	}

	res, err := s.recompute(r, userID(r))
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result := position.Simulate(res.Open, req.Symbol, req.Price, s.resolve)
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"result": result})
}

// Reset handles POST /api/v1/reset
// Clears the user's ledger; the price table survives.
func (s *Service) Reset(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ReplaceTransactions(r.Context(), uid, nil); err != nil {
		writeError(w, "failed to reset data", http.StatusInternalServerError)
		return
	}
	metrics.OpenPositions.Set(0)

	slog.Info("data reset", "user", uid)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{Type: "data_reset"})
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// --- Internal helpers ---

// buildTransaction validates a request and produces the immutable
// ledger record. Malformed input never reaches the store or the engine.
func (s *Service) buildTransaction(uid string, req TransactionRequest) (*model.Transaction, error) {
	if req.Side != model.SideBuy && req.Side != model.SideSell {
		return nil, errors.New("side must be Buy or Sell")
	}
	if req.Quantity <= 0 {
		return nil, errors.New("quantity must be a positive number of contracts")
	}
	if !req.Price.IsPositive() {
		return nil, errors.New("price must be positive")
	}
	if _, err := contract.Parse(req.Symbol); err != nil {
		return nil, err
	}
	date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
	if err != nil {
		return nil, errors.New("date must be formatted YYYY-MM-DD")
	}

	return &model.Transaction{
		ID:       uuid.New().String(),
		UserID:   uid,
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    req.Price,
		Date:     date,
		Total:    req.Price.Mul(decimal.NewFromInt(req.Quantity)),
	}, nil
}

// recompute replays the user's full ledger through the engine.
func (s *Service) recompute(r *http.Request, uid string) (*position.Result, error) {
	txs, err := s.store.ListTransactions(r.Context(), uid)
	if err != nil {
		return nil, errors.New("failed to load transactions")
	}

	start := time.Now()
	res, err := position.Compute(txs, s.resolve)
	if err != nil {
		return nil, err
	}
	metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	metrics.OpenPositions.Set(float64(len(res.Open)))

	return res, nil
}

// noteFallbacks counts and logs multiplier-fallback warnings. Called
// only after mutations so the counter tracks fallback events, not
// read-endpoint replay volume; reads still surface the warnings in
// their responses.
func (s *Service) noteFallbacks(uid string, res *position.Result) {
	for _, warn := range res.Warnings {
		metrics.MultiplierFallbacks.Inc()
		slog.Warn("multiplier fallback", "user", uid, "detail", warn)
	}
}

// loadPrices returns the stored price table, or the reference defaults
// for users who have never saved one.
func (s *Service) loadPrices(r *http.Request, uid string) (model.PriceTable, error) {
	prices, err := s.store.GetPrices(r.Context(), uid)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return defaultPrices, nil
	}
	return prices, nil
}

func userID(r *http.Request) string {
	if uid := r.URL.Query().Get("user"); uid != "" {
		return uid
	}
	return DefaultUser
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
