package dialogue

import (
	"strings"

	"tradejournal/internal/domain/conversation"
)

// Commands that need a completed profile
var gatedCommands = map[string]bool{
	"journal":   true,
	"trades":    true,
	"therapy":   true,
	"stats":     true,
	"summary":   true,
	"report":    true,
	"broadcast": true,
}

// command routes a slash command. Commands pre-empt whatever step the user is
// on; only /help and unknown commands leave the state alone.
func (e *Engine) command(t *turn) ([]Response, error) {
	cmd := strings.ToLower(t.ev.Command)

	switch cmd {
	case "start":
		return e.start(t)
	case "help":
		return e.help()
	case "cancel":
		return e.cancel(t)
	}

	if !gatedCommands[cmd] {
		return text(msgUnknownCommand), nil
	}

	// operators are checked before the profile so outsiders learn nothing more
	if cmd == "broadcast" && !e.isAdmin(t.ev.TelegramID) {
		t.log.Warnw("Rejected broadcast from non-operator")
		return text(msgNotAdmin), nil
	}

	if !t.user.RegistrationComplete {
		return e.gate(t)
	}

	switch cmd {
	case "journal":
		return e.startJournal(t)
	case "trades":
		return e.tradesCommand(t)
	case "therapy":
		return e.startTherapy(t)
	case "stats":
		return e.stats(t)
	case "summary":
		return e.summary(t)
	case "report":
		return e.report(t)
	default:
		return e.startBroadcast(t)
	}
}

func (e *Engine) start(t *turn) ([]Response, error) {
	if t.user.RegistrationComplete {
		if err := e.clear(t); err != nil {
			return nil, err
		}
		resp, err := e.render("welcome_back", t.user)
		if err != nil {
			return nil, err
		}
		return []Response{resp}, nil
	}

	if err := e.set(t, conversation.StepRegFullName, &conversation.Payload{}); err != nil {
		return nil, err
	}
	resp, err := e.render("greeting", firstName(t.ev.DisplayName))
	if err != nil {
		return nil, err
	}
	return []Response{resp}, nil
}

func (e *Engine) help() ([]Response, error) {
	resp, err := e.render("help", nil)
	if err != nil {
		return nil, err
	}
	return []Response{resp}, nil
}

func (e *Engine) cancel(t *turn) ([]Response, error) {
	if t.state == nil {
		return text(msgNothingToCancel), nil
	}
	wasTherapy := t.state.Flow() == conversation.FlowTherapy
	if err := e.clear(t); err != nil {
		return nil, err
	}
	if wasTherapy {
		return text(msgTherapyEnded), nil
	}
	return text(msgCancelled), nil
}

// gate answers a gated command from an unregistered user. Someone already
// registering is asked the current question again.
func (e *Engine) gate(t *turn) ([]Response, error) {
	if t.state != nil && t.state.Flow() == conversation.FlowRegistration {
		prompt := registrationPrompt(t.state.Step)
		prompt.Text = msgRegisterFirst + "\n\n" + prompt.Text
		return []Response{prompt}, nil
	}

	if err := e.set(t, conversation.StepRegFullName, &conversation.Payload{}); err != nil {
		return nil, err
	}
	return text(msgRegisterFirst + "\n\n" + msgAskFullName), nil
}

func firstName(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}
