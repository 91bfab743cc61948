package dialogue

import (
	"tradejournal/internal/domain/conversation"
	"tradejournal/internal/domain/therapy"
	"tradejournal/internal/services/coaching"
	"tradejournal/pkg/errors"
)

func (e *Engine) startTherapy(t *turn) ([]Response, error) {
	if err := e.set(t, conversation.StepTherapyActive, &conversation.Payload{}); err != nil {
		return nil, err
	}
	return text(msgTherapyWelcome), nil
}

// therapyStep answers one message. The user stays in the session until a
// command arrives.
func (e *Engine) therapyStep(t *turn) ([]Response, error) {
	if t.in.callback {
		return t.invalid(text(msgExpiredButton)), nil
	}
	if t.in.text == "" {
		return t.invalid(text(msgTherapyTextOnly)), nil
	}

	session, err := e.therapySession(t)
	if err != nil {
		return nil, err
	}

	reply := e.coach.Reply(t.ctx, coaching.ProfileFromUser(t.user), session.Content, t.in.text)

	session.AppendExchange(t.in.text, reply)
	if err := e.therapy.SaveContent(t.ctx, session); err != nil {
		return nil, errors.Wrap(err, "save therapy transcript")
	}
	return text(reply), nil
}

// therapySession returns the latest transcript, starting one on first use
func (e *Engine) therapySession(t *turn) (*therapy.Session, error) {
	session, err := e.therapy.Latest(t.ctx, t.user.ID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Wrap(err, "load therapy session")
	}

	session = therapy.NewSession(t.user.ID, e.now())
	if err := e.therapy.Create(t.ctx, session); err != nil {
		return nil, errors.Wrap(err, "create therapy session")
	}
	t.log.Infow("Started therapy session", "session_id", session.ID)
	return session, nil
}
