package templates

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTemplatesLoad(t *testing.T) {
	ids := Get().List()
	for _, id := range []string{
		"telegram/help",
		"telegram/stats",
		"telegram/weekly_report",
		"telegram/trade_list",
		"telegram/trade_detail",
		"prompts/therapy_system",
		"prompts/summary_request",
	} {
		assert.Contains(t, ids, id)
	}
}

func TestWeeklyReportTemplate(t *testing.T) {
	out, err := Get().Render("telegram/weekly_report", map[string]any{
		"WeekStart":     time.Date(2025, 4, 28, 0, 0, 0, 0, time.UTC),
		"WeekEnd":       time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC),
		"TotalTrades":   3,
		"Wins":          2,
		"Losses":        1,
		"Breakevens":    0,
		"WinRate":       66.67,
		"NetProfitLoss": decimal.RequireFromString("12.5"),
		"Notes":         "Great week!",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Week: 2025-04-28 to 2025-05-04")
	assert.Contains(t, out, "Effective Win Rate: 66.67%")
	assert.Contains(t, out, "Net P/L: $12.50")
	assert.Contains(t, out, "Notes: Great week!")
}

func TestHelpTemplateListsCommands(t *testing.T) {
	out, err := Get().Render("telegram/help", nil)
	require.NoError(t, err)

	for _, cmd := range []string{"/start", "/journal", "/trades", "/stats", "/therapy", "/summary", "/report", "/cancel", "/help"} {
		assert.Contains(t, out, cmd)
	}
}
