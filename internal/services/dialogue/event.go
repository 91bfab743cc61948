package dialogue

import "strings"

// EventKind tells what a chat update carried
type EventKind int

const (
	EventCommand EventKind = iota + 1
	EventText
	EventPhoto
	EventCallback
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	case EventCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Event is one normalised inbound update from a user
type Event struct {
	Kind        EventKind
	TelegramID  int64
	DisplayName string

	Command string // lower-case, without the slash
	Args    string

	Text string

	FileID  string // largest photo size
	Caption string // ignored by every flow

	Data string // callback token, kind:value
}

// Button is one inline keyboard button
type Button struct {
	Label string
	Data  string
}

// Response is one outbound message. ChatID 0 means the sender's chat.
type Response struct {
	ChatID      int64
	Text        string
	Buttons     [][]Button
	PhotoFileID string // when set, Text is sent as the photo caption
	Markdown    bool
}

// Callback token kinds
const (
	tokenExperience  = "reg_exp"
	tokenAccountType = "reg_acct"
	tokenPhase       = "reg_phase"
	tokenResult      = "result"
	tokenSkip        = "skip"
	tokenEditField   = "edit_field"
	tokenConfirm     = "confirm"
	tokenTrades      = "trades"
)

func token(kind, value string) string {
	return kind + ":" + value
}

// splitToken parses kind:value; a token without a colon has an empty value
func splitToken(data string) (kind, value string) {
	kind, value, _ = strings.Cut(data, ":")
	return kind, value
}

// input is the user-supplied part of an event, as seen by a step handler
type input struct {
	text     string
	photo    string
	callback bool
	kind     string
	value    string
}

func inputOf(ev Event) input {
	switch ev.Kind {
	case EventCallback:
		kind, value := splitToken(ev.Data)
		return input{callback: true, kind: kind, value: value}
	case EventPhoto:
		return input{photo: ev.FileID}
	default:
		return input{text: strings.TrimSpace(ev.Text)}
	}
}

// choice returns the callback value when the token kind matches
func (in input) choice(kind string) (string, bool) {
	if !in.callback || in.kind != kind {
		return "", false
	}
	return in.value, true
}

func choiceRows(kind string, values ...string) [][]Button {
	rows := make([][]Button, 0, len(values))
	for _, v := range values {
		rows = append(rows, []Button{{Label: v, Data: token(kind, v)}})
	}
	return rows
}
