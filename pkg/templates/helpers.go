package templates

import (
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// EscapeMarkdown escapes the characters that open an entity in Telegram's
// legacy Markdown mode: _ * ` [
func EscapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"`", "\\`",
		"[", "\\[",
	)
	return replacer.Replace(text)
}

// SafeText drops invalid UTF-8 and escapes Markdown so user-supplied text can
// be embedded in a formatted message.
func SafeText(text string) string {
	return EscapeMarkdown(strings.ToValidUTF8(text, ""))
}

// Money renders a USD amount with thousands separators: $1,234.50 or -$3.25
func Money(d decimal.Decimal) string {
	s := "$" + humanize.FormatFloat("#,###.##", d.Abs().Round(2).InexactFloat64())
	if d.Round(2).IsNegative() {
		return "-" + s
	}
	return s
}

// SignedMoney is Money with an explicit plus sign for gains
func SignedMoney(d decimal.Decimal) string {
	if d.Round(2).IsPositive() {
		return "+" + Money(d)
	}
	return Money(d)
}

// Percent renders a rate that is already scaled to 0..100
func Percent(f float64) string {
	return humanize.FormatFloat("#,###.##", f) + "%"
}

// Funcs returns the helpers available inside every template
func Funcs() template.FuncMap {
	return template.FuncMap{
		"esc":    SafeText,
		"money":  Money,
		"signed": SignedMoney,
		"pct":    Percent,
		"fixed": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"num": func(f float64) string {
			return humanize.Ftoa(f)
		},
		"date": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"ago": humanize.Time,
		"add": func(a, b int) int {
			return a + b
		},
	}
}
