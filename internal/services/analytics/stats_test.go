package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/domain/trade"
)

func day(s string) time.Time {
	t, err := time.Parse(trade.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func mkTrade(id int64, date, pair string, result trade.Result, pnl string) trade.Trade {
	t := trade.Trade{
		ID:         id,
		Date:       day(date),
		PairTraded: pair,
		StopLoss:   decimal.NewFromInt(10),
		TakeProfit: decimal.NewFromInt(20),
		Result:     result,
	}
	if pnl != "" {
		t.ProfitLoss = decimal.NewNullDecimal(decimal.RequireFromString(pnl))
	}
	return t
}

func fixed(d decimal.Decimal) string { return d.StringFixed(2) }

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil)

	assert.Equal(t, 0, s.TotalTrades)
	assert.Equal(t, 0, s.CountedTrades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.LossRate)
	assert.True(t, s.NetProfitLoss.IsZero())
	assert.True(t, s.AvgWin.IsZero())
	assert.True(t, s.AvgLoss.IsZero())
	assert.True(t, s.RiskRewardRatio.IsZero())
	assert.Equal(t, NoPair, s.MostTradedPair)
	assert.Equal(t, NoPair, s.BestPair)
	assert.Equal(t, NoPair, s.WorstPair)
}

func TestComputeStats_BreakevenReclassification(t *testing.T) {
	trades := []trade.Trade{
		mkTrade(1, "2025-04-28", "EURUSD", trade.ResultWin, "20"),
		mkTrade(2, "2025-04-29", "EURUSD", trade.ResultLoss, "-10"),
		mkTrade(3, "2025-04-30", "GBPUSD", trade.ResultBreakeven, "-3.25"),
	}

	s := ComputeStats(trades)

	assert.Equal(t, 3, s.TotalTrades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 1, s.Breakevens)
	assert.Equal(t, 1, s.EffectiveWins)
	assert.Equal(t, 2, s.EffectiveLosses)
	assert.Equal(t, 0, s.EffectiveBreakevens)
	assert.Equal(t, 3, s.CountedTrades)
	assert.Equal(t, 33.33, s.WinRate)
	assert.Equal(t, 66.67, s.LossRate)
	assert.Equal(t, "6.75", fixed(s.NetProfitLoss))
	assert.Equal(t, "20.00", fixed(s.AvgWin))
	assert.Equal(t, "6.63", fixed(s.AvgLoss))
	assert.Equal(t, "3.02", fixed(s.RiskRewardRatio))
}

func TestComputeStats_TrueBreakevensExcludedFromRate(t *testing.T) {
	tests := []struct {
		name        string
		trades      []trade.Trade
		winRate     float64
		counted     int
		breakevens  int
		netExpected string
	}{
		{
			name: "zero pnl breakeven",
			trades: []trade.Trade{
				mkTrade(1, "2025-04-28", "EURUSD", trade.ResultWin, "20"),
				mkTrade(2, "2025-04-28", "EURUSD", trade.ResultBreakeven, "0"),
			},
			winRate:     100,
			counted:     1,
			breakevens:  1,
			netExpected: "20.00",
		},
		{
			name: "null pnl breakeven",
			trades: []trade.Trade{
				mkTrade(1, "2025-04-28", "EURUSD", trade.ResultLoss, "-10"),
				mkTrade(2, "2025-04-28", "EURUSD", trade.ResultBreakeven, ""),
			},
			winRate:     0,
			counted:     1,
			breakevens:  1,
			netExpected: "-10.00",
		},
		{
			name: "only breakevens",
			trades: []trade.Trade{
				mkTrade(1, "2025-04-28", "EURUSD", trade.ResultBreakeven, "0"),
				mkTrade(2, "2025-04-29", "EURUSD", trade.ResultBreakeven, ""),
			},
			winRate:     0,
			counted:     0,
			breakevens:  2,
			netExpected: "0.00",
		},
		{
			name: "profitable breakeven",
			trades: []trade.Trade{
				mkTrade(1, "2025-04-28", "EURUSD", trade.ResultLoss, "-10"),
				mkTrade(2, "2025-04-29", "EURUSD", trade.ResultBreakeven, "1.5"),
			},
			winRate:     50,
			counted:     2,
			breakevens:  0,
			netExpected: "-8.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeStats(tt.trades)
			assert.Equal(t, tt.winRate, s.WinRate)
			assert.Equal(t, tt.counted, s.CountedTrades)
			assert.Equal(t, tt.breakevens, s.EffectiveBreakevens)
			assert.Equal(t, tt.netExpected, fixed(s.NetProfitLoss))
		})
	}
}

func TestComputeStats_RatesSumToHundred(t *testing.T) {
	trades := []trade.Trade{
		mkTrade(1, "2025-04-28", "EURUSD", trade.ResultWin, "20"),
		mkTrade(2, "2025-04-28", "EURUSD", trade.ResultWin, "20"),
		mkTrade(3, "2025-04-28", "EURUSD", trade.ResultLoss, "-10"),
		mkTrade(4, "2025-04-28", "EURUSD", trade.ResultBreakeven, "0"),
	}
	s := ComputeStats(trades)
	assert.InDelta(t, 100.0, s.WinRate+s.LossRate, 0.011)
}

func TestComputeStats_NullLossCountsAsZero(t *testing.T) {
	trades := []trade.Trade{
		mkTrade(1, "2025-04-28", "EURUSD", trade.ResultLoss, ""),
		mkTrade(2, "2025-04-29", "EURUSD", trade.ResultLoss, "-10"),
	}
	s := ComputeStats(trades)
	assert.Equal(t, "5.00", fixed(s.AvgLoss))
	assert.True(t, s.RiskRewardRatio.IsZero(), "no wins means zero ratio")
}

func TestComputeStats_NoLossesMeansZeroRatio(t *testing.T) {
	trades := []trade.Trade{
		mkTrade(1, "2025-04-28", "EURUSD", trade.ResultWin, "20"),
	}
	s := ComputeStats(trades)
	assert.Equal(t, "20.00", fixed(s.AvgWin))
	assert.True(t, s.AvgLoss.IsZero())
	assert.True(t, s.RiskRewardRatio.IsZero())
}

func TestComputeStats_MostTradedTieGoesToFirstSeen(t *testing.T) {
	trades := []trade.Trade{
		mkTrade(1, "2025-04-28", "EURUSD", trade.ResultWin, "20"),
		mkTrade(2, "2025-04-28", "GBPUSD", trade.ResultWin, "20"),
		mkTrade(3, "2025-04-29", "GBPUSD", trade.ResultWin, "20"),
		mkTrade(4, "2025-04-30", "EURUSD", trade.ResultWin, "20"),
	}
	assert.Equal(t, "EURUSD", ComputeStats(trades).MostTradedPair)

	trades = append(trades, mkTrade(5, "2025-05-01", "GBPUSD", trade.ResultLoss, "-10"))
	assert.Equal(t, "GBPUSD", ComputeStats(trades).MostTradedPair)
}

func TestComputeStats_BestAndWorstPairs(t *testing.T) {
	tests := []struct {
		name  string
		input []trade.Trade
		best  string
		worst string
	}{
		{
			name: "single trade pairs never qualify",
			input: []trade.Trade{
				mkTrade(1, "2025-04-28", "EURUSD", trade.ResultWin, "20"),
				mkTrade(2, "2025-04-28", "GBPUSD", trade.ResultLoss, "-10"),
			},
			best:  NoPair,
			worst: NoPair,
		},
		{
			name: "ranked by mean pnl",
			input: []trade.Trade{
				mkTrade(1, "2025-04-28", "EURUSD", trade.ResultWin, "20"),
				mkTrade(2, "2025-04-28", "EURUSD", trade.ResultWin, "10"),
				mkTrade(3, "2025-04-29", "GBPUSD", trade.ResultLoss, "-10"),
				mkTrade(4, "2025-04-29", "GBPUSD", trade.ResultLoss, "-5"),
				mkTrade(5, "2025-04-30", "XAUUSD", trade.ResultWin, "100"),
			},
			best:  "EURUSD",
			worst: "GBPUSD",
		},
		{
			name: "null pnl does not count toward qualification",
			input: []trade.Trade{
				mkTrade(1, "2025-04-28", "EURUSD", trade.ResultWin, "20"),
				mkTrade(2, "2025-04-28", "EURUSD", trade.ResultBreakeven, ""),
				mkTrade(3, "2025-04-29", "GBPUSD", trade.ResultLoss, "-10"),
				mkTrade(4, "2025-04-29", "GBPUSD", trade.ResultWin, "30"),
			},
			best:  "GBPUSD",
			worst: "GBPUSD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeStats(tt.input)
			assert.Equal(t, tt.best, s.BestPair)
			assert.Equal(t, tt.worst, s.WorstPair)
		})
	}
}

func TestComputeStats_Idempotent(t *testing.T) {
	trades := []trade.Trade{
		mkTrade(1, "2025-04-28", "EURUSD", trade.ResultWin, "20"),
		mkTrade(2, "2025-04-29", "GBPUSD", trade.ResultBreakeven, "-3.25"),
	}
	first := ComputeStats(trades)
	second := ComputeStats(trades)

	require.Equal(t, first.WinRate, second.WinRate)
	assert.True(t, first.NetProfitLoss.Equal(second.NetProfitLoss))
	assert.True(t, first.RiskRewardRatio.Equal(second.RiskRewardRatio))
	assert.Equal(t, first.MostTradedPair, second.MostTradedPair)
	assert.Equal(t, "EURUSD", trades[0].PairTraded, "input is not mutated")
}
