// Package track — JSON export/import of the full state bundle.
package track

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrofut/position-tracker/internal/metrics"
	"github.com/agrofut/position-tracker/internal/model"
	"github.com/agrofut/position-tracker/internal/position"
)

// Export handles GET /api/v1/export
// Serializes the full state bundle for download/backup. The derived
// position lists ride along for human inspection; on import only the
// transaction list is trusted.
func (s *Service) Export(w http.ResponseWriter, r *http.Request) {
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
	txs, err := s.store.ListTransactions(r.Context(), uid)
	if err != nil {
		writeError(w, "failed to load transactions", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}

	writeJSON(w, http.StatusOK, model.Snapshot{
		Prices:          prices,
		Transactions:    txs,
		OpenPositions:   res.Open,
		ClosedPositions: res.Closed,
		ExportedAt:      s.now(),
	})
}

// importDocument mirrors model.Snapshot with raw fields so structural
// validation can distinguish "absent" from "wrong type" before anything
// is applied.
type importDocument struct {
	Prices       json.RawMessage `json:"prices"`
	Transactions json.RawMessage `json:"transactions"`
}

// Import handles POST /api/v1/import
// The document is validated and applied atomically: a structural error
// anywhere rejects the whole import, and the derived lists are always
// rebuilt from the imported transactions.
func (s *Service) Import(w http.ResponseWriter, r *http.Request) {
	var doc importDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		rejectImport(w, "import must be a JSON object")
		return
	}
	if doc.Prices == nil || doc.Transactions == nil {
		rejectImport(w, "import requires both a price table and a transaction list")
		return
	}

	// A JSON null decodes into a non-nil RawMessage and unmarshals into a
	// nil map/slice without error, so the decoded values are checked for
	// nil too: only a real object/array may replace the ledger.
	var prices model.PriceTable
	if err := json.Unmarshal(doc.Prices, &prices); err != nil || prices == nil {
		rejectImport(w, "price table must be an object of symbol -> price")
		return
	}
	var txs []model.Transaction
	if err := json.Unmarshal(doc.Transactions, &txs); err != nil || txs == nil {
		rejectImport(w, "transaction list must be an array of transactions")
		return
	}

	uid := userID(r)
	for i := range txs {
		if txs[i].ID == "" {
			txs[i].ID = uuid.New().String()
		}
		txs[i].UserID = uid
		if txs[i].Total.IsZero() {
			txs[i].Total = txs[i].Price.Mul(decimal.NewFromInt(txs[i].Quantity))
		}
	}

	// Run the whole list through the engine before touching the store:
	// a malformed transaction rejects the import, not half of it.
	res, err := position.Compute(txs, s.resolve)
	if err != nil {
		rejectImport(w, fmt.Sprintf("transaction %s", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := r.Context()
	if err := s.store.ReplaceTransactions(ctx, uid, txs); err != nil {
		writeError(w, "failed to store imported transactions", http.StatusInternalServerError)
		return
	}
	if err := s.store.SetPrices(ctx, uid, prices); err != nil {
		writeError(w, "failed to store imported prices", http.StatusInternalServerError)
		return
	}
	metrics.OpenPositions.Set(float64(len(res.Open)))
	s.noteFallbacks(uid, res)

	slog.Info("data imported",
		"user", uid,
		"transactions", len(txs),
		"open", len(res.Open),
		"closed", len(res.Closed),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:        "data_imported",
			OpenCount:   len(res.Open),
			ClosedCount: len(res.Closed),
		})
	}

	writeJSON(w, http.StatusOK, struct {
		Transactions int      `json:"transactions"`
		Open         int      `json:"open_positions"`
		Closed       int      `json:"closed_positions"`
		Warnings     []string `json:"warnings,omitempty"`
	}{len(txs), len(res.Open), len(res.Closed), res.Warnings})
}

func rejectImport(w http.ResponseWriter, message string) {
	metrics.ImportRejections.Inc()
	writeError(w, message, http.StatusBadRequest)
}
