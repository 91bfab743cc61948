package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/internal/domain/trade"
)

// Report is a weekly aggregate with narrative notes
type Report struct {
	WeekStart time.Time
	WeekEnd   time.Time
	Stats     Stats
	Notes     string
}

// WeekBounds returns the Monday and Sunday (UTC dates) of the week holding t
func WeekBounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	start = day.AddDate(0, 0, -offset)
	end = start.AddDate(0, 0, 6)
	return start, end
}

// GenerateWeeklyReport aggregates the trades dated within [start, end]
func GenerateWeeklyReport(trades []trade.Trade, start, end time.Time) Report {
	inWeek := make([]trade.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Date.Before(start) || t.Date.After(end) {
			continue
		}
		inWeek = append(inWeek, t)
	}

	stats := ComputeStats(inWeek)
	return Report{
		WeekStart: start,
		WeekEnd:   end,
		Stats:     stats,
		Notes:     weeklyNotes(stats),
	}
}

func weeklyNotes(s Stats) string {
	var notes string
	switch {
	case s.EffectiveWins > s.EffectiveLosses:
		notes = fmt.Sprintf("Great week! You had %d winning trades, which is %s%% of your trades.",
			s.EffectiveWins, decimal.NewFromFloat(s.WinRate).StringFixed(1))
	case s.EffectiveLosses > s.EffectiveWins:
		notes = fmt.Sprintf("Challenging week with %d losing trades. Review your strategy and consider risk management.",
			s.EffectiveLosses)
	default:
		notes = "Mixed results this week. Focus on consistency and stick to your trading plan."
	}

	switch {
	case s.NetProfitLoss.IsPositive():
		notes += fmt.Sprintf(" You made a profit of $%s.", s.NetProfitLoss.StringFixed(2))
	case s.NetProfitLoss.IsNegative():
		notes += fmt.Sprintf(" You had a loss of $%s.", s.NetProfitLoss.Abs().StringFixed(2))
	default:
		notes += " You broke even this week."
	}
	return notes
}
