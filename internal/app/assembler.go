package app

import "fmt"

// ExchangeState tracks one send→stream→settle cycle.
type ExchangeState int

const (
	ExchangeIdle ExchangeState = iota
	ExchangeSending
	ExchangeStreaming
	ExchangeSettled
	ExchangeFailed
)

func (s ExchangeState) String() string {
	switch s {
	case ExchangeIdle:
		return "idle"
	case ExchangeSending:
		return "sending"
	case ExchangeStreaming:
		return "streaming"
	case ExchangeSettled:
		return "settled"
	case ExchangeFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ResponseAssembler folds the event sequence of a single exchange into an
// ordered message list and a replace-only status slot.
//
// Rules:
//   - a status event replaces the current status, it never appends a message
//   - the first token of the exchange clears the status in the same step, so
//     no snapshot ever shows stale status next to response text
//   - tokens extend the exchange's assistant message in arrival order,
//     seeding it on the first token
//   - once settled or failed the produced message is frozen
type ResponseAssembler struct {
	state    ExchangeState
	status   string
	started  bool // assistant message exists in the list
	messages *[]Message
	seedID   string
	session  string
}

func NewResponseAssembler(messages *[]Message, messageID, sessionID string) *ResponseAssembler {
	return &ResponseAssembler{
		state:    ExchangeSending,
		messages: messages,
		seedID:   messageID,
		session:  sessionID,
	}
}

func (a *ResponseAssembler) State() ExchangeState { return a.state }

// Status returns the transient thinking status, empty once tokens flow.
func (a *ResponseAssembler) Status() string { return a.status }

// Apply folds one stream event. Events after a terminal state are ignored.
func (a *ResponseAssembler) Apply(ev StreamEvent) {
	if a.state == ExchangeSettled || a.state == ExchangeFailed {
		return
	}
	switch ev.Type {
	case EventStatus:
		a.state = ExchangeStreaming
		a.status = ev.Content
	case EventToken:
		a.state = ExchangeStreaming
		a.status = ""
		a.appendToken(ev.Content)
	case EventDone:
		a.Settle()
	}
}

func (a *ResponseAssembler) appendToken(text string) {
	msgs := *a.messages
	if a.started && len(msgs) > 0 && msgs[len(msgs)-1].Role == RoleAssistant {
		msgs[len(msgs)-1].Content += text
		return
	}
	*a.messages = append(msgs, Message{
		ID:        a.seedID,
		SessionID: a.session,
		Role:      RoleAssistant,
		Content:   text,
	})
	a.started = true
}

// Settle marks the exchange complete; the assistant message is final.
func (a *ResponseAssembler) Settle() {
	if a.state == ExchangeFailed {
		return
	}
	a.state = ExchangeSettled
	a.status = ""
}

// Fail marks the exchange broken. Partial content already appended stays
// visible; it is never rolled back.
func (a *ResponseAssembler) Fail() {
	if a.state == ExchangeSettled {
		return
	}
	a.state = ExchangeFailed
	a.status = ""
}

// Produced reports whether this exchange appended an assistant message.
func (a *ResponseAssembler) Produced() bool { return a.started }
