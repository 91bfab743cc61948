package dialogue

import (
	"fmt"

	"tradejournal/internal/domain/conversation"
	"tradejournal/internal/events"
	"tradejournal/internal/metrics"
	"tradejournal/pkg/errors"
)

func (e *Engine) startBroadcast(t *turn) ([]Response, error) {
	if err := e.set(t, conversation.StepBroadcastCompose, &conversation.Payload{}); err != nil {
		return nil, err
	}
	return text(msgAskBroadcast), nil
}

func (e *Engine) broadcastStep(t *turn) ([]Response, error) {
	switch t.state.Step {
	case conversation.StepBroadcastCompose:
		if t.in.callback {
			return t.invalid(text(msgExpiredButton)), nil
		}
		if isWord(t.in.text, "cancel") {
			return e.abortBroadcast(t)
		}
		if t.in.text == "" {
			return t.invalid(text(msgEmptyMessage)), nil
		}
		payload := &conversation.Payload{Broadcast: &conversation.BroadcastDraft{Message: t.in.text}}
		if err := e.set(t, conversation.StepBroadcastConfirm, payload); err != nil {
			return nil, err
		}
		resp, err := e.render("broadcast_preview", t.in.text)
		if err != nil {
			return nil, err
		}
		resp.Buttons = confirmButtons()
		return []Response{resp}, nil

	case conversation.StepBroadcastConfirm:
		draft := t.payload().Broadcast
		if draft == nil || draft.Message == "" {
			return nil, errors.Wrap(errors.ErrMalformedState, "broadcast confirm without message")
		}
		answer, ok := t.in.choice(tokenConfirm)
		if !ok {
			if t.in.callback {
				return t.invalid(text(msgExpiredButton)), nil
			}
			answer = t.in.text
		}
		switch {
		case isWord(answer, "yes", "y"):
			return e.deliverBroadcast(t, draft.Message)
		case isWord(answer, "no", "n", "cancel"):
			return e.abortBroadcast(t)
		default:
			return t.invalid(withButtons(msgChooseOption, confirmButtons())), nil
		}
	}

	return nil, errors.Wrapf(errors.ErrMalformedState, "broadcast step %q", t.state.Step)
}

func (e *Engine) abortBroadcast(t *turn) ([]Response, error) {
	if err := e.clear(t); err != nil {
		return nil, err
	}
	return text(msgBroadcastAborted), nil
}

// deliverBroadcast sends message to a snapshot of registered users. Every
// recipient is attempted; failures are counted, never fatal.
func (e *Engine) deliverBroadcast(t *turn, message string) ([]Response, error) {
	recipients, err := e.users.ListRegistered(t.ctx)
	if err != nil {
		return nil, err
	}

	log := t.log.With("flow", "broadcast")
	log.Infow("Starting broadcast", "recipients", len(recipients))

	sent, failed := 0, 0
	for _, r := range recipients {
		if e.limiter != nil {
			if err := e.limiter.Wait(t.ctx); err != nil {
				// context is gone: the rest cannot be delivered
				failed += len(recipients) - sent - failed
				log.Warnw("Broadcast interrupted", "error", err)
				break
			}
		}
		if err := e.deliverer.Deliver(t.ctx, r.TelegramID, message); err != nil {
			failed++
			metrics.BroadcastDeliveries.WithLabelValues("failed").Inc()
			log.Warnw("Broadcast delivery failed", "recipient", r.TelegramID, "error", err)
			continue
		}
		sent++
		metrics.BroadcastDeliveries.WithLabelValues("sent").Inc()
	}

	log.Infow("Broadcast finished", "sent", sent, "failed", failed)

	event := events.BroadcastCompletedEvent{
		BaseEvent:  events.NewBaseEvent(events.TypeBroadcastCompleted, t.user.ID.String()),
		OperatorID: t.user.TelegramID,
		Recipients: len(recipients),
		Sent:       sent,
		Failed:     failed,
		Preview:    message,
	}
	if err := e.events.PublishBroadcastCompleted(t.ctx, event); err != nil {
		log.Warnw("Failed to publish broadcast completed event", "error", err)
	}

	if err := e.clear(t); err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("Broadcast complete: %d sent, %d failed", sent, failed)), nil
}
