package dialogue

import (
	"tradejournal/internal/domain/conversation"
	"tradejournal/internal/domain/user"
	"tradejournal/pkg/errors"
)

func experienceButtons() [][]Button {
	values := make([]string, 0, len(user.ExperienceLevels))
	for _, v := range user.ExperienceLevels {
		values = append(values, string(v))
	}
	return choiceRows(tokenExperience, values...)
}

func accountTypeButtons() [][]Button {
	values := make([]string, 0, len(user.AccountTypes))
	for _, v := range user.AccountTypes {
		values = append(values, string(v))
	}
	return choiceRows(tokenAccountType, values...)
}

func phaseButtons() [][]Button {
	values := make([]string, 0, len(user.Phases))
	for _, v := range user.Phases {
		values = append(values, string(v))
	}
	return choiceRows(tokenPhase, values...)
}

// registrationPrompt is the question asked on entering step
func registrationPrompt(step conversation.Step) Response {
	switch step {
	case conversation.StepRegAge:
		return Response{Text: msgAskAge}
	case conversation.StepRegTradingYears:
		return Response{Text: msgAskTradingYears}
	case conversation.StepRegExperience:
		return Response{Text: msgAskExperience, Buttons: experienceButtons()}
	case conversation.StepRegAccountType:
		return Response{Text: msgAskAccountType, Buttons: accountTypeButtons()}
	case conversation.StepRegPhase:
		return Response{Text: msgAskPhase, Buttons: phaseButtons()}
	case conversation.StepRegProfitTarget:
		return Response{Text: msgAskProfitTarget}
	case conversation.StepRegInitialBalance:
		return Response{Text: msgAskInitialBalance}
	default:
		return Response{Text: msgAskFullName}
	}
}

// advance saves the profile, then moves to next and asks its question
func (e *Engine) advance(t *turn, next conversation.Step) ([]Response, error) {
	if err := e.users.Save(t.ctx, t.user); err != nil {
		return nil, err
	}
	if err := e.set(t, next, nil); err != nil {
		return nil, err
	}
	return []Response{registrationPrompt(next)}, nil
}

// pick resolves a step that only accepts button choices. A button from
// another step is stale; typed text gets the buttons again.
func pick(t *turn, kind, prompt string, rows [][]Button) (string, []Response) {
	if v, ok := t.in.choice(kind); ok {
		return v, nil
	}
	if t.in.callback {
		return "", t.invalid(text(msgExpiredButton))
	}
	return "", t.invalid(withButtons(msgChooseOption+"\n\n"+prompt, rows))
}

func (e *Engine) registrationStep(t *turn) ([]Response, error) {
	step := t.state.Step
	u := t.user

	// free-text steps ignore buttons from earlier prompts
	switch step {
	case conversation.StepRegExperience, conversation.StepRegAccountType, conversation.StepRegPhase:
	default:
		if t.in.callback {
			return t.invalid(text(msgExpiredButton)), nil
		}
	}

	switch step {
	case conversation.StepRegFullName:
		if t.in.text == "" {
			return t.invalid(text(msgInvalidName)), nil
		}
		u.FullName = t.in.text
		return e.advance(t, conversation.StepRegAge)

	case conversation.StepRegAge:
		age, ok := parseAge(t.in.text)
		if !ok {
			return t.invalid(text(msgInvalidAge)), nil
		}
		u.Age = age
		return e.advance(t, conversation.StepRegTradingYears)

	case conversation.StepRegTradingYears:
		years, ok := parseYears(t.in.text)
		if !ok {
			return t.invalid(text(msgInvalidYears)), nil
		}
		u.TradingYears = years
		return e.advance(t, conversation.StepRegExperience)

	case conversation.StepRegExperience:
		v, out := pick(t, tokenExperience, msgAskExperience, experienceButtons())
		if out != nil {
			return out, nil
		}
		level, ok := user.ParseExperienceLevel(v)
		if !ok {
			return t.invalid(text(msgExpiredButton)), nil
		}
		u.ExperienceLevel = level
		return e.advance(t, conversation.StepRegAccountType)

	case conversation.StepRegAccountType:
		v, out := pick(t, tokenAccountType, msgAskAccountType, accountTypeButtons())
		if out != nil {
			return out, nil
		}
		acct, ok := user.ParseAccountType(v)
		if !ok {
			return t.invalid(text(msgExpiredButton)), nil
		}
		u.SetAccountType(acct)
		if acct == user.AccountFunded {
			return e.advance(t, conversation.StepRegPhase)
		}
		return e.advance(t, conversation.StepRegProfitTarget)

	case conversation.StepRegPhase:
		v, out := pick(t, tokenPhase, msgAskPhase, phaseButtons())
		if out != nil {
			return out, nil
		}
		phase, ok := user.ParsePhase(v)
		if !ok {
			return t.invalid(text(msgExpiredButton)), nil
		}
		u.Phase = &phase
		return e.advance(t, conversation.StepRegProfitTarget)

	case conversation.StepRegProfitTarget:
		target, ok := parsePositive(t.in.text)
		if !ok {
			return t.invalid(text(msgInvalidTarget)), nil
		}
		u.ProfitTarget = target
		return e.advance(t, conversation.StepRegInitialBalance)

	case conversation.StepRegInitialBalance:
		balance, ok := parsePositive(t.in.text)
		if !ok {
			return t.invalid(text(msgInvalidBalance)), nil
		}
		u.InitialBalance = balance
		return e.completeRegistration(t)
	}

	return nil, errors.Wrapf(errors.ErrMalformedState, "registration step %q", step)
}

func (e *Engine) completeRegistration(t *turn) ([]Response, error) {
	if err := e.users.CompleteRegistration(t.ctx, t.user); err != nil {
		return nil, err
	}
	if err := e.clear(t); err != nil {
		return nil, err
	}
	resp, err := e.render("registration_complete", t.user)
	if err != nil {
		return nil, err
	}
	return []Response{resp}, nil
}
