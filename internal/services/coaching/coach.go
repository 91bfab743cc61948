package coaching

import (
	"context"
	"encoding/json"
	"time"

	"tradejournal/internal/adapters/ai"
	"tradejournal/internal/domain/therapy"
	"tradejournal/internal/domain/trade"
	"tradejournal/internal/metrics"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
	"tradejournal/pkg/templates"
)

// Texts returned when no backend is configured
const (
	CannedTherapyReply = "I understand that trading can be stressful. Remember to focus on your strategy " +
		"and not let emotions drive your decisions. How else can I support you today?"

	CannedSummary = "Based on your trading history, you seem to perform better with currency pairs " +
		"compared to crypto. You might want to focus more on managing your risk-reward ratio " +
		"and avoid overtrading during volatile market conditions. Consider taking breaks after " +
		"consecutive losses to reset your mindset."
)

// Texts returned when the backend fails for good
const (
	FallbackTherapyReply = "I'm having trouble connecting right now. Let's talk again shortly."
	FallbackSummary      = "I'm having trouble generating your analysis right now. Please try again shortly."
)

const (
	temperature      = 0.7
	therapyMaxTokens = 800
	summaryMaxTokens = 1500

	// older turns are dropped so long-running sessions stay inside the prompt budget
	maxHistoryEntries = 20

	providerNone = "none"
	opTherapy    = "therapy"
	opSummary    = "summary"
)

// Coach answers therapy messages and summarizes trade history. It never
// returns an error: failures degrade to fixed texts.
type Coach struct {
	completer ai.Completer
	retry     *retrier
	templates *templates.Registry
	log       *logger.Logger
}

// NewCoach creates a coach. A nil completer switches to canned replies and
// no network calls are made.
func NewCoach(completer ai.Completer, retry RetryConfig, log *logger.Logger) *Coach {
	c := &Coach{
		completer: completer,
		retry:     newRetrier(retry),
		templates: templates.Get(),
		log:       log.With("component", "coach"),
	}
	c.retry.onRetry = func(attempt int, err error) {
		metrics.CoachingRetries.WithLabelValues(c.provider()).Inc()
		c.log.Warnw("Completion failed, retrying", "provider", c.provider(), "attempt", attempt, "error", err)
	}
	return c
}

// Live reports whether a real backend is configured
func (c *Coach) Live() bool {
	return c.completer != nil
}

// Reply answers one therapy message given the transcript so far
func (c *Coach) Reply(ctx context.Context, p Profile, transcript []therapy.Entry, input string) string {
	if c.completer == nil {
		metrics.RecordCoachingCall(providerNone, opTherapy, "canned", 0)
		return CannedTherapyReply
	}

	system, err := c.templates.Render("prompts/therapy_system", p)
	if err != nil {
		c.log.Errorw("Failed to render therapy prompt", "error", err)
		return FallbackTherapyReply
	}

	req := ai.CompletionRequest{
		System:      system,
		History:     history(transcript),
		Prompt:      input,
		Temperature: temperature,
		MaxTokens:   therapyMaxTokens,
	}

	text, err := c.complete(ctx, opTherapy, req)
	if err != nil {
		return FallbackTherapyReply
	}
	return text
}

// Summary analyzes a trader's full history
func (c *Coach) Summary(ctx context.Context, p Profile, trades []trade.Trade) string {
	if c.completer == nil {
		metrics.RecordCoachingCall(providerNone, opSummary, "canned", 0)
		return CannedSummary
	}

	system, err := c.templates.Render("prompts/summary_system", nil)
	if err != nil {
		c.log.Errorw("Failed to render summary system prompt", "error", err)
		return FallbackSummary
	}

	tradeHistory, err := tradesJSON(trades)
	if err != nil {
		c.log.Errorw("Failed to encode trade history", "error", err)
		return FallbackSummary
	}

	prompt, err := c.templates.Render("prompts/summary_request", map[string]any{
		"Profile":    p,
		"TradesJSON": tradeHistory,
	})
	if err != nil {
		c.log.Errorw("Failed to render summary prompt", "error", err)
		return FallbackSummary
	}

	text, err := c.complete(ctx, opSummary, ai.CompletionRequest{
		System:      system,
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		return FallbackSummary
	}
	return text
}

func (c *Coach) complete(ctx context.Context, op string, req ai.CompletionRequest) (string, error) {
	start := time.Now()

	var text string
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		text, err = c.completer.Complete(ctx, req)
		return err
	})

	if err != nil {
		metrics.RecordCoachingCall(c.provider(), op, "fallback", time.Since(start))
		c.log.Errorw("Coaching request failed",
			"provider", c.provider(),
			"operation", op,
			"retryable", isRetryable(err),
			"error", err,
		)
		return "", err
	}

	metrics.RecordCoachingCall(c.provider(), op, "success", time.Since(start))
	c.log.Debugw("Coaching request completed",
		"provider", c.provider(),
		"operation", op,
		"duration", time.Since(start),
	)
	return text, nil
}

func (c *Coach) provider() string {
	if c.completer == nil {
		return providerNone
	}
	return c.completer.Provider()
}

// history converts stored entries into alternating chat turns, newest last
func history(entries []therapy.Entry) []ai.Message {
	if len(entries) > maxHistoryEntries {
		entries = entries[len(entries)-maxHistoryEntries:]
		// the window must open on a trader turn so each reply follows its question
		for len(entries) > 0 && !entries[0].IsUser() {
			entries = entries[1:]
		}
	}

	out := make([]ai.Message, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.User != "":
			out = append(out, ai.Message{Role: ai.RoleUser, Content: e.User})
		case e.AI != "":
			out = append(out, ai.Message{Role: ai.RoleAssistant, Content: e.AI})
		}
	}
	return out
}

type tradeRecord struct {
	Date       string   `json:"date"`
	Pair       string   `json:"pair"`
	Result     string   `json:"result"`
	ProfitLoss *float64 `json:"profit_loss"`
	Notes      string   `json:"notes"`
}

func tradesJSON(trades []trade.Trade) (string, error) {
	records := make([]tradeRecord, 0, len(trades))
	for i := range trades {
		t := &trades[i]
		rec := tradeRecord{
			Date:   t.DateString(),
			Pair:   t.PairTraded,
			Result: string(t.Result),
			Notes:  t.Notes,
		}
		if t.HasPnL() {
			f := t.PnL().InexactFloat64()
			rec.ProfitLoss = &f
		}
		records = append(records, rec)
	}

	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal trades")
	}
	return string(raw), nil
}
