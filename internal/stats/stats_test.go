package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrofut/position-tracker/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func closed(result, entry, exit float64, qty, days int64) model.ClosedPosition {
	return model.ClosedPosition{
		Symbol:     "BGIK25",
		ClosedSide: model.SideBuy,
		Quantity:   qty,
		EntryPrice: d(entry),
		ExitPrice:  d(exit),
		Result:     d(result),
		DaysHeld:   days,
		CloseDate:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestCompute_EmptyIsAllZeros(t *testing.T) {
	m := Compute(nil)

	zeros := map[string]decimal.Decimal{
		"total_result":        m.TotalResult,
		"win_rate":            m.WinRate,
		"profit_factor":       m.ProfitFactor,
		"result_per_contract": m.ResultPerContract,
		"result_per_day":      m.ResultPerDay,
		"average_spread":      m.AverageSpread,
		"average_days_held":   m.AverageDaysHeld,
		"best_result":         m.BestResult,
		"worst_result":        m.WorstResult,
		"roi":                 m.ROI,
		"sharpe_ratio":        m.SharpeRatio,
		"volatility":          m.Volatility,
		"max_drawdown":        m.MaxDrawdown,
	}
	for name, v := range zeros {
		if !v.IsZero() {
			t.Errorf("%s must be zero for an empty input, got %s", name, v)
		}
	}
	if m.ContractsClosed != 0 {
		t.Errorf("contracts_closed must be zero, got %d", m.ContractsClosed)
	}
}

// The reference scenario's two liquidations: +13200 over 4 contracts and
// -19800 over 6 contracts.
func TestCompute_ReferenceScenario(t *testing.T) {
	m := Compute([]model.ClosedPosition{
		closed(13200, 300, 310, 4, 4),
		closed(-19800, 300, 290, 6, 9),
	})

	if !m.TotalResult.Equal(d(-6600)) {
		t.Errorf("expected total -6600, got %s", m.TotalResult)
	}
	if m.ContractsClosed != 10 {
		t.Errorf("expected 10 contracts closed, got %d", m.ContractsClosed)
	}
	if !m.WinRate.Equal(d(50)) {
		t.Errorf("expected win rate 50, got %s", m.WinRate)
	}
	if !m.BestResult.Equal(d(13200)) {
		t.Errorf("expected best 13200, got %s", m.BestResult)
	}
	if !m.WorstResult.Equal(d(-19800)) {
		t.Errorf("expected worst -19800, got %s", m.WorstResult)
	}
	// 13200 / 19800 = 0.6667
	if !m.ProfitFactor.Equal(d(0.6667)) {
		t.Errorf("expected profit factor 0.6667, got %s", m.ProfitFactor)
	}
	// -6600 / 10
	if !m.ResultPerContract.Equal(d(-660)) {
		t.Errorf("expected result per contract -660, got %s", m.ResultPerContract)
	}
	// -6600 / 13 days
	if !m.ResultPerDay.Equal(d(-507.69)) {
		t.Errorf("expected result per day -507.69, got %s", m.ResultPerDay)
	}
	// Spreads |310-300| and |290-300|, both 10.
	if !m.AverageSpread.Equal(d(10)) {
		t.Errorf("expected average spread 10, got %s", m.AverageSpread)
	}
	if !m.AverageDaysHeld.Equal(d(6.5)) {
		t.Errorf("expected average days held 6.5, got %s", m.AverageDaysHeld)
	}
}

func TestCompute_AllLossesNoDivisionBlowup(t *testing.T) {
	m := Compute([]model.ClosedPosition{
		closed(-1000, 300, 297, 1, 2),
		closed(-2000, 310, 304, 1, 3),
	})

	if !m.WinRate.IsZero() {
		t.Errorf("expected win rate 0, got %s", m.WinRate)
	}
	// grossGain = 0, grossLoss > 0 -> profit factor exactly 0.
	if !m.ProfitFactor.IsZero() {
		t.Errorf("expected profit factor 0, got %s", m.ProfitFactor)
	}
	if !m.BestResult.Equal(d(-1000)) {
		t.Errorf("best of an all-loss run is the smallest loss -1000, got %s", m.BestResult)
	}
	if !m.WorstResult.Equal(d(-2000)) {
		t.Errorf("expected worst -2000, got %s", m.WorstResult)
	}
}

func TestCompute_AllWinsProfitFactorZeroDenominator(t *testing.T) {
	m := Compute([]model.ClosedPosition{
		closed(500, 300, 302, 1, 1),
	})
	// No losses: the profit factor denominator is zero, the field stays 0
	// rather than Inf.
	if !m.ProfitFactor.IsZero() {
		t.Errorf("expected profit factor 0 with no losses, got %s", m.ProfitFactor)
	}
	if !m.WinRate.Equal(d(100)) {
		t.Errorf("expected win rate 100, got %s", m.WinRate)
	}
}

func TestCompute_ZeroDaysHeld(t *testing.T) {
	// A same-day round trip: daysTotal is 0, result per day stays 0.
	m := Compute([]model.ClosedPosition{
		closed(3300, 300, 310, 1, 0),
	})
	if !m.ResultPerDay.IsZero() {
		t.Errorf("expected result per day 0 for a same-day trade, got %s", m.ResultPerDay)
	}
}

func TestCompute_ROI(t *testing.T) {
	// Entry notional 300*4 + 300*6 = 3000; total -6600 -> -220%.
	m := Compute([]model.ClosedPosition{
		closed(13200, 300, 310, 4, 4),
		closed(-19800, 300, 290, 6, 9),
	})
	if !m.ROI.Equal(d(-220)) {
		t.Errorf("expected ROI -220, got %s", m.ROI)
	}
}

func TestMaxDrawdown_PeakToTrough(t *testing.T) {
	// Cumulative walk: +1000 (peak), -500 (cum 500), -800 (cum -300).
	// Largest decline from the 1000 peak to -300 is 1300.
	m := Compute([]model.ClosedPosition{
		closed(1000, 300, 303, 1, 1),
		closed(-500, 300, 298, 1, 1),
		closed(-800, 300, 297, 1, 1),
	})
	if !m.MaxDrawdown.Equal(d(1300)) {
		t.Errorf("expected max drawdown 1300, got %s", m.MaxDrawdown)
	}
}

func TestMaxDrawdown_MonotonicGainsIsZero(t *testing.T) {
	m := Compute([]model.ClosedPosition{
		closed(100, 300, 301, 1, 1),
		closed(200, 300, 302, 1, 1),
	})
	if !m.MaxDrawdown.IsZero() {
		t.Errorf("expected zero drawdown for monotonic gains, got %s", m.MaxDrawdown)
	}
}

func TestRiskProxies_SingleTradeNoSharpe(t *testing.T) {
	// One trade: the return distribution has zero spread, so volatility
	// is 0 and Sharpe stays 0 (not NaN).
	m := Compute([]model.ClosedPosition{
		closed(3300, 300, 310, 1, 1),
	})
	if !m.Volatility.IsZero() {
		t.Errorf("expected volatility 0 for a single trade, got %s", m.Volatility)
	}
	if !m.SharpeRatio.IsZero() {
		t.Errorf("expected Sharpe 0 for a single trade, got %s", m.SharpeRatio)
	}
}

func TestRiskProxies_SpreadProducesVolatility(t *testing.T) {
	m := Compute([]model.ClosedPosition{
		closed(3000, 300, 310, 1, 1),
		closed(-3000, 300, 290, 1, 1),
	})
	if !m.Volatility.IsPositive() {
		t.Errorf("expected positive volatility, got %s", m.Volatility)
	}
}
