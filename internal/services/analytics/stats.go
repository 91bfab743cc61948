package analytics

import (
	"github.com/shopspring/decimal"

	"tradejournal/internal/domain/trade"
)

// NoPair is reported when no instrument qualifies for a ranking
const NoPair = "None"

// minPairTrades is how many priced trades a pair needs to be ranked best/worst
const minPairTrades = 2

var hundred = decimal.NewFromInt(100)

// Stats is the aggregate view over a set of trades
type Stats struct {
	TotalTrades int

	// Nominal counts as recorded by the trader
	Wins       int
	Losses     int
	Breakevens int

	// Effective counts after breakeven reclassification
	EffectiveWins       int
	EffectiveLosses     int
	EffectiveBreakevens int
	CountedTrades       int

	WinRate  float64 // percent, 2 decimals
	LossRate float64

	NetProfitLoss   decimal.Decimal
	AvgWin          decimal.Decimal
	AvgLoss         decimal.Decimal // magnitude
	RiskRewardRatio decimal.Decimal

	MostTradedPair string
	BestPair       string
	WorstPair      string
}

// outcome is the effective classification of a single trade
type outcome int

const (
	outcomeBreakeven outcome = iota
	outcomeWin
	outcomeLoss
)

// classify folds a breakeven with nonzero P/L into a win or a loss
func classify(t *trade.Trade) outcome {
	switch t.Result {
	case trade.ResultWin:
		return outcomeWin
	case trade.ResultLoss:
		return outcomeLoss
	}
	pnl := t.PnL()
	switch {
	case pnl.IsPositive():
		return outcomeWin
	case pnl.IsNegative():
		return outcomeLoss
	default:
		return outcomeBreakeven
	}
}

type pairAgg struct {
	name   string
	count  int
	priced int
	sum    decimal.Decimal
}

// ComputeStats aggregates trades. Input order matters only for tie-breaks,
// where the pair encountered first wins.
func ComputeStats(trades []trade.Trade) Stats {
	s := Stats{
		NetProfitLoss:   decimal.Zero,
		AvgWin:          decimal.Zero,
		AvgLoss:         decimal.Zero,
		RiskRewardRatio: decimal.Zero,
		MostTradedPair:  NoPair,
		BestPair:        NoPair,
		WorstPair:       NoPair,
	}
	if len(trades) == 0 {
		return s
	}

	s.TotalTrades = len(trades)

	winSum, lossSum := decimal.Zero, decimal.Zero
	pairs := make([]*pairAgg, 0)
	index := make(map[string]*pairAgg)

	for i := range trades {
		t := &trades[i]

		switch t.Result {
		case trade.ResultWin:
			s.Wins++
		case trade.ResultLoss:
			s.Losses++
		default:
			s.Breakevens++
		}

		pnl := t.PnL()
		s.NetProfitLoss = s.NetProfitLoss.Add(pnl)

		switch classify(t) {
		case outcomeWin:
			s.EffectiveWins++
			winSum = winSum.Add(pnl)
		case outcomeLoss:
			s.EffectiveLosses++
			lossSum = lossSum.Add(pnl.Abs())
		default:
			s.EffectiveBreakevens++
		}

		agg, ok := index[t.PairTraded]
		if !ok {
			agg = &pairAgg{name: t.PairTraded, sum: decimal.Zero}
			index[t.PairTraded] = agg
			pairs = append(pairs, agg)
		}
		agg.count++
		if t.HasPnL() {
			agg.priced++
			agg.sum = agg.sum.Add(pnl)
		}
	}

	s.CountedTrades = s.EffectiveWins + s.EffectiveLosses
	if s.CountedTrades > 0 {
		s.WinRate = rate(s.EffectiveWins, s.CountedTrades)
		s.LossRate = rate(s.EffectiveLosses, s.CountedTrades)
	}

	if s.EffectiveWins > 0 {
		s.AvgWin = winSum.Div(decimal.NewFromInt(int64(s.EffectiveWins)))
	}
	if s.EffectiveLosses > 0 {
		s.AvgLoss = lossSum.Div(decimal.NewFromInt(int64(s.EffectiveLosses)))
	}
	if !s.AvgLoss.IsZero() {
		s.RiskRewardRatio = s.AvgWin.Div(s.AvgLoss)
	}

	s.MostTradedPair, s.BestPair, s.WorstPair = rankPairs(pairs)
	return s
}

func rankPairs(pairs []*pairAgg) (most, best, worst string) {
	most, best, worst = NoPair, NoPair, NoPair

	var top *pairAgg
	var bestMean, worstMean decimal.Decimal
	for _, p := range pairs {
		if top == nil || p.count > top.count {
			top = p
		}
		if p.priced < minPairTrades {
			continue
		}
		mean := p.sum.Div(decimal.NewFromInt(int64(p.priced)))
		if best == NoPair || mean.GreaterThan(bestMean) {
			best, bestMean = p.name, mean
		}
		if worst == NoPair || mean.LessThan(worstMean) {
			worst, worstMean = p.name, mean
		}
	}
	if top != nil {
		most = top.name
	}
	return most, best, worst
}

// rate returns part/whole as a percentage rounded to 2 decimals
func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	f, _ := decimal.NewFromInt(int64(part)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(whole))).
		Round(2).
		Float64()
	return f
}
