// Package stats derives summary performance statistics from realized
// (closed) positions. Pure functions over engine output, no I/O.
//
// Every division guards the zero-denominator case by returning zero —
// the rendering layer formats these fields blindly as currency or
// percentage strings and must never see NaN or Inf.
package stats

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/agrofut/position-tracker/internal/model"
)

// ratioScale is the number of decimal places for dimensionless ratios
// (win rate, profit factor, Sharpe, volatility).
const ratioScale int32 = 4

// Metrics is the aggregate view over all closed positions.
type Metrics struct {
	TotalResult     decimal.Decimal `json:"total_result"`
	ContractsClosed int64           `json:"contracts_closed"`

	WinRate           decimal.Decimal `json:"win_rate"`      // percent
	ProfitFactor      decimal.Decimal `json:"profit_factor"` // gross gain / gross loss
	ResultPerContract decimal.Decimal `json:"result_per_contract"`
	ResultPerDay      decimal.Decimal `json:"result_per_day"`
	AverageSpread     decimal.Decimal `json:"average_spread"` // mean |exit - entry|
	AverageDaysHeld   decimal.Decimal `json:"average_days_held"`
	BestResult        decimal.Decimal `json:"best_result"`
	WorstResult       decimal.Decimal `json:"worst_result"`
	ROI               decimal.Decimal `json:"roi"` // percent of notional entered

	// Risk proxies over the per-trade return distribution
	// result / (entryPrice * quantity). Approximations for a dashboard,
	// not rigorous financial risk measures.
	SharpeRatio decimal.Decimal `json:"sharpe_ratio"`
	Volatility  decimal.Decimal `json:"volatility"`
	MaxDrawdown decimal.Decimal `json:"max_drawdown"` // peak-to-trough of cumulative result
}

// Compute aggregates metrics over the closed positions. An empty input
// yields the zero value of every field.
func Compute(closed []model.ClosedPosition) Metrics {
	var m Metrics
	m.TotalResult = decimal.Zero
	m.WinRate = decimal.Zero
	m.ProfitFactor = decimal.Zero
	m.ResultPerContract = decimal.Zero
	m.ResultPerDay = decimal.Zero
	m.AverageSpread = decimal.Zero
	m.AverageDaysHeld = decimal.Zero
	m.BestResult = decimal.Zero
	m.WorstResult = decimal.Zero
	m.ROI = decimal.Zero
	m.SharpeRatio = decimal.Zero
	m.Volatility = decimal.Zero
	m.MaxDrawdown = decimal.Zero

	if len(closed) == 0 {
		return m
	}

	var (
		wins      int64
		grossGain = decimal.Zero
		grossLoss = decimal.Zero // absolute
		spreadSum = decimal.Zero
		notional  = decimal.Zero // Σ entryPrice * quantity
		daysTotal int64
	)

	for i, c := range closed {
		m.TotalResult = m.TotalResult.Add(c.Result)
		m.ContractsClosed += c.Quantity
		daysTotal += c.DaysHeld

		if c.Result.IsPositive() {
			wins++
			grossGain = grossGain.Add(c.Result)
		} else {
			grossLoss = grossLoss.Add(c.Result.Abs())
		}

		spreadSum = spreadSum.Add(c.ExitPrice.Sub(c.EntryPrice).Abs())
		notional = notional.Add(c.EntryPrice.Mul(decimal.NewFromInt(c.Quantity)))

		if i == 0 || c.Result.GreaterThan(m.BestResult) {
			m.BestResult = c.Result
		}
		if i == 0 || c.Result.LessThan(m.WorstResult) {
			m.WorstResult = c.Result
		}
	}

	count := decimal.NewFromInt(int64(len(closed)))
	hundred := decimal.NewFromInt(100)

	m.WinRate = decimal.NewFromInt(wins).Div(count).Mul(hundred).Round(ratioScale)
	if grossLoss.IsPositive() {
		m.ProfitFactor = grossGain.Div(grossLoss).Round(ratioScale)
	}
	if m.ContractsClosed > 0 {
		m.ResultPerContract = m.TotalResult.Div(decimal.NewFromInt(m.ContractsClosed)).Round(2)
	}
	if daysTotal > 0 {
		m.ResultPerDay = m.TotalResult.Div(decimal.NewFromInt(daysTotal)).Round(2)
	}
	m.AverageSpread = spreadSum.Div(count).Round(2)
	m.AverageDaysHeld = decimal.NewFromInt(daysTotal).Div(count).Round(2)
	if notional.IsPositive() {
		m.ROI = m.TotalResult.Div(notional).Mul(hundred).Round(ratioScale)
	}

	m.SharpeRatio, m.Volatility = riskProxies(closed)
	m.MaxDrawdown = maxDrawdown(closed)

	return m
}

// riskProxies computes a Sharpe-like ratio and volatility from the
// per-trade return distribution. Transcendental math runs in float64
// with the result immediately converted back to decimal.
func riskProxies(closed []model.ClosedPosition) (sharpe, volatility decimal.Decimal) {
	sharpe, volatility = decimal.Zero, decimal.Zero

	returns := make([]float64, 0, len(closed))
	for _, c := range closed {
		base := c.EntryPrice.Mul(decimal.NewFromInt(c.Quantity))
		if !base.IsPositive() {
			continue
		}
		returns = append(returns, c.Result.Div(base).InexactFloat64())
	}
	if len(returns) == 0 {
		return
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sqDev float64
	for _, r := range returns {
		sqDev += (r - mean) * (r - mean)
	}
	std := math.Sqrt(sqDev / float64(len(returns)))

	volatility = decimal.NewFromFloat(std).Round(ratioScale)
	if std > 0 {
		sharpe = decimal.NewFromFloat(mean / std).Round(ratioScale)
	}
	return
}

// maxDrawdown returns the largest peak-to-trough decline of the running
// cumulative result, walking closed positions in emission order.
func maxDrawdown(closed []model.ClosedPosition) decimal.Decimal {
	cum := decimal.Zero
	peak := decimal.Zero
	dd := decimal.Zero
	for _, c := range closed {
		cum = cum.Add(c.Result)
		if cum.GreaterThan(peak) {
			peak = cum
		}
		if drop := peak.Sub(cum); drop.GreaterThan(dd) {
			dd = drop
		}
	}
	return dd
}
