package dialogue

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradejournal/internal/domain/trade"
	"tradejournal/pkg/errors"
)

var (
	errBadDate    = errors.New("bad date")
	errFutureDate = errors.New("future date")
)

var amountCleaner = strings.NewReplacer("$", "", ",", "", " ", "")

// moneyPlaces matches the NUMERIC(20,2) columns amounts are stored in
const moneyPlaces = 2

// parseNumber accepts numbers written like "$1,250.50"
func parseNumber(s string) (decimal.Decimal, bool) {
	cleaned := amountCleaner.Replace(s)
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseAmount is parseNumber for money. Amounts with more than two
// significant decimal places are rejected rather than rounded.
func parseAmount(s string) (decimal.Decimal, bool) {
	d, ok := parseNumber(s)
	if !ok || !d.Equal(d.Round(moneyPlaces)) {
		return decimal.Zero, false
	}
	return d, true
}

func parsePositive(s string) (decimal.Decimal, bool) {
	d, ok := parseAmount(s)
	if !ok || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// parseDate accepts "today" or YYYY-MM-DD, rejecting days after today
func parseDate(s string, today time.Time) (time.Time, error) {
	if strings.EqualFold(strings.TrimSpace(s), "today") {
		return today, nil
	}
	d, err := time.ParseInLocation(trade.DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, errBadDate
	}
	if d.After(today) {
		return time.Time{}, errFutureDate
	}
	return d, nil
}

func parseAge(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 120 {
		return 0, false
	}
	return n, true
}

func parseYears(s string) (float64, bool) {
	d, ok := parseNumber(s)
	if !ok || d.IsNegative() {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// parseTradeID accepts "12" or "#12"
func parseTradeID(s string) (int64, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isWord(s string, words ...string) bool {
	for _, w := range words {
		if strings.EqualFold(strings.TrimSpace(s), w) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalisePair(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
