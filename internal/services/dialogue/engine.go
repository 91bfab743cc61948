package dialogue

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/time/rate"

	"tradejournal/internal/domain/conversation"
	"tradejournal/internal/domain/therapy"
	"tradejournal/internal/domain/user"
	"tradejournal/internal/events"
	"tradejournal/internal/metrics"
	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
	"tradejournal/pkg/templates"
)

// Deps are the collaborators the engine drives
type Deps struct {
	Users     UserService
	Trades    TradeService
	Ledger    Ledger
	States    conversation.Store
	Therapy   therapy.Repository
	Analytics Analytics
	Coach     Coach
	Cursor    PageCursor
	Deliverer Deliverer
	Events    events.Publisher
}

// Config holds operator settings
type Config struct {
	AdminIDs         []int64
	BroadcastLimiter *rate.Limiter // nil delivers unpaced
	Now              func() time.Time
}

// Engine turns chat events into replies. All conversation state lives in the
// store, so any number of engines may serve the same users.
type Engine struct {
	users     UserService
	trades    TradeService
	ledger    Ledger
	states    conversation.Store
	therapy   therapy.Repository
	analytics Analytics
	coach     Coach
	cursor    PageCursor
	deliverer Deliverer
	events    events.Publisher

	admins  map[int64]struct{}
	limiter *rate.Limiter
	now     func() time.Time

	templates *templates.Registry
	locks     *keyedMutex
	log       *logger.Logger
}

// NewEngine wires an engine. A nil Events publisher drops events.
func NewEngine(deps Deps, cfg Config, log *logger.Logger) *Engine {
	admins := make(map[int64]struct{}, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = struct{}{}
	}

	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	publisher := deps.Events
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	return &Engine{
		users:     deps.Users,
		trades:    deps.Trades,
		ledger:    deps.Ledger,
		states:    deps.States,
		therapy:   deps.Therapy,
		analytics: deps.Analytics,
		coach:     deps.Coach,
		cursor:    deps.Cursor,
		deliverer: deps.Deliverer,
		events:    publisher,
		admins:    admins,
		limiter:   cfg.BroadcastLimiter,
		now:       now,
		templates: templates.Get(),
		locks:     newKeyedMutex(),
		log:       log.With("component", "dialogue"),
	}
}

// turn is the context of one handled event
type turn struct {
	ctx    context.Context
	ev     Event
	in     input
	user   *user.User
	state  *conversation.State
	log    *logger.Logger
	status string
}

func (t *turn) step() conversation.Step {
	if t.state == nil {
		return ""
	}
	return t.state.Step
}

func (t *turn) flow() string {
	return string(t.step().Flow())
}

func (t *turn) payload() conversation.Payload {
	if t.state == nil {
		return conversation.Payload{}
	}
	return t.state.Payload
}

// invalid marks the turn as a re-prompt
func (t *turn) invalid(out []Response) []Response {
	t.status = "invalid"
	return out
}

// Handle processes one event and returns the replies to send. It never fails:
// errors and panics become an apology, with the stored state left as it was.
func (e *Engine) Handle(ctx context.Context, ev Event) (out []Response) {
	unlock := e.locks.Lock(ev.TelegramID)
	defer unlock()

	start := time.Now()
	t := &turn{
		ctx:    ctx,
		ev:     ev,
		in:     inputOf(ev),
		log:    e.log.ForUser(ev.TelegramID),
		status: "ok",
	}

	defer func() {
		if r := recover(); r != nil {
			t.status = "panic"
			err := errors.Newf("panic in dialogue turn: %v", r)
			t.log.Errorw("Recovered from panic", "panic", r, "stack", string(debug.Stack()))
			t.log.ErrorWithContext(ctx, err, e.tags(t))
			out = text(msgSomethingWrong)
		}
		metrics.RecordDialogueTurn(t.flow(), t.status, time.Since(start))
	}()

	out, err := e.handle(t)
	if err != nil {
		if errors.Is(err, errors.ErrMalformedState) {
			return e.resetMalformed(t, err)
		}
		t.status = "error"
		t.log.Errorw("Dialogue turn failed",
			"event", ev.Kind.String(),
			"step", t.step(),
			"error", err,
		)
		t.log.ErrorWithContext(ctx, err, e.tags(t))
		return text(msgSomethingWrong)
	}
	return out
}

func (e *Engine) handle(t *turn) ([]Response, error) {
	u, err := e.users.GetOrCreate(t.ctx, t.ev.TelegramID, t.ev.DisplayName)
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}
	t.user = u

	state, err := e.states.Get(t.ctx, u.ID)
	if err != nil {
		if !errors.Is(err, errors.ErrMalformedState) {
			return nil, errors.Wrap(err, "load conversation state")
		}
		// unreadable state is discarded; commands still run on a clean slate
		if t.ev.Kind != EventCommand {
			return nil, err
		}
		t.log.Warnw("Discarding malformed conversation state", "error", err)
		if err := e.states.Clear(t.ctx, u.ID); err != nil {
			return nil, errors.Wrap(err, "clear malformed state")
		}
		state = nil
	}
	t.state = state

	t.log.Debugw("Handling event",
		"event", t.ev.Kind.String(),
		"command", t.ev.Command,
		"step", t.step(),
	)

	switch t.ev.Kind {
	case EventCommand:
		return e.command(t)
	case EventCallback:
		if t.in.kind == tokenTrades {
			return e.tradesNavigation(t)
		}
	}

	if t.state == nil {
		if t.in.callback {
			return text(msgExpiredButton), nil
		}
		return text(msgIdleHint), nil
	}

	switch t.state.Flow() {
	case conversation.FlowRegistration:
		return e.registrationStep(t)
	case conversation.FlowJournal:
		return e.journalStep(t)
	case conversation.FlowTrades:
		return e.tradesStep(t)
	case conversation.FlowBroadcast:
		return e.broadcastStep(t)
	case conversation.FlowTherapy:
		return e.therapyStep(t)
	default:
		return nil, errors.Wrapf(errors.ErrMalformedState, "step %q has no flow", t.state.Step)
	}
}

// resetMalformed drops a state record that can no longer be interpreted
func (e *Engine) resetMalformed(t *turn, cause error) []Response {
	t.status = "reset"
	t.log.Warnw("Resetting malformed conversation state", "step", t.step(), "error", cause)
	if t.user != nil {
		if err := e.states.Clear(t.ctx, t.user.ID); err != nil {
			t.status = "error"
			t.log.ErrorWithContext(t.ctx, errors.Wrap(err, "clear malformed state"), e.tags(t))
			return text(msgSomethingWrong)
		}
	}
	return text(msgStateReset)
}

func (e *Engine) tags(t *turn) map[string]string {
	tags := map[string]string{
		"event": t.ev.Kind.String(),
	}
	if step := t.step(); step != "" {
		tags["step"] = string(step)
	}
	if t.ev.Command != "" {
		tags["command"] = t.ev.Command
	}
	return tags
}

func (e *Engine) isAdmin(telegramID int64) bool {
	_, ok := e.admins[telegramID]
	return ok
}

func (e *Engine) today() time.Time {
	return startOfDay(e.now())
}

// set moves the user to step, replacing the payload when one is given
func (e *Engine) set(t *turn, step conversation.Step, payload *conversation.Payload) error {
	if err := e.states.Set(t.ctx, t.user.ID, step, payload); err != nil {
		return errors.Wrapf(err, "set state %s", step)
	}
	return nil
}

func (e *Engine) clear(t *turn) error {
	if err := e.states.Clear(t.ctx, t.user.ID); err != nil {
		return errors.Wrap(err, "clear state")
	}
	return nil
}

// render builds a Markdown reply from an embedded template
func (e *Engine) render(id string, data any) (Response, error) {
	body, err := e.templates.Render("telegram/"+id, data)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: body, Markdown: true}, nil
}

func text(msg string) []Response {
	return []Response{{Text: msg}}
}

func textf(format string, args ...any) []Response {
	return text(fmt.Sprintf(format, args...))
}

func withButtons(msg string, rows [][]Button) []Response {
	return []Response{{Text: msg, Buttons: rows}}
}
