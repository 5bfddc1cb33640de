package session

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies what kind of operation an audit event records.
type EventType string

const (
	EventSessionCreated   EventType = "session_created"
	EventSessionEscalated EventType = "session_escalated"
	EventSessionDestroyed EventType = "session_destroyed"

	EventScreenshot  EventType = "screenshot"
	EventDOMRead     EventType = "dom_read"
	EventTextRead    EventType = "text_read"
	EventConsoleRead EventType = "console_read"
	EventNetworkRead EventType = "network_read"
	EventEventsRead  EventType = "events_read"
	EventStateRead   EventType = "state_read"

	EventNavigate EventType = "navigate"
	EventClick    EventType = "click"
	EventTypeText EventType = "type"
	EventExecute  EventType = "execute"
)

// Event is one entry in a session's append-only audit log.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Reason    string       `json:"reason,omitempty"`
	Details   EventDetails `json:"details,omitempty"`
}

func newEvent(t EventType, reason string, details EventDetails) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Reason:    reason,
		Details:   details,
	}
}

// EventDetails is the per-event-type payload. The set of implementations
// is closed: one struct per event type, so consumers of the audit log can
// switch on the concrete type instead of digging through a free-form map.
type EventDetails interface {
	isEventDetails()
}

// CreatedDetails records the viewport a session was created with.
type CreatedDetails struct {
	Viewport string `json:"viewport"`
}

// EscalatedDetails marks the escalation event. The justification lives in
// the event's Reason field.
type EscalatedDetails struct{}

// DestroyedDetails records how many events the session had accumulated at
// the moment of destruction, the destruction event excluded.
type DestroyedDetails struct {
	EventCount int `json:"event_count"`
}

// ScreenshotDetails records a screenshot capture.
type ScreenshotDetails struct {
	FullPage bool `json:"full_page"`
	Bytes    int  `json:"bytes"`
}

// DOMReadDetails records an HTML read.
type DOMReadDetails struct {
	Selector  string `json:"selector,omitempty"`
	Length    int    `json:"length"`
	Truncated bool   `json:"truncated"`
}

// TextReadDetails records a visible-text read.
type TextReadDetails struct {
	Selector string `json:"selector,omitempty"`
	Length   int    `json:"length"`
}

// ConsoleReadDetails records a console log read.
type ConsoleReadDetails struct {
	Count int `json:"count"`
}

// NetworkReadDetails records a network log read.
type NetworkReadDetails struct {
	Count int `json:"count"`
}

// EventsReadDetails records an audit log read.
type EventsReadDetails struct {
	Count int `json:"count"`
}

// StateReadDetails records a page state read.
type StateReadDetails struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// NavigateDetails records a navigation action.
type NavigateDetails struct {
	URL        string     `json:"url"`
	FinalURL   string     `json:"final_url,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ClickDetails records a click action.
type ClickDetails struct {
	Selector   string     `json:"selector"`
	Confidence Confidence `json:"confidence,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// TypeDetails records a text input action.
type TypeDetails struct {
	Selector   string     `json:"selector"`
	TextLength int        `json:"text_length"`
	ClearFirst bool       `json:"clear_first"`
	Confidence Confidence `json:"confidence,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ExecuteDetails records a script execution action.
type ExecuteDetails struct {
	ScriptLength int        `json:"script_length"`
	Confidence   Confidence `json:"confidence,omitempty"`
	Error        string     `json:"error,omitempty"`
}

func (CreatedDetails) isEventDetails()     {}
func (EscalatedDetails) isEventDetails()   {}
func (DestroyedDetails) isEventDetails()   {}
func (ScreenshotDetails) isEventDetails()  {}
func (DOMReadDetails) isEventDetails()     {}
func (TextReadDetails) isEventDetails()    {}
func (ConsoleReadDetails) isEventDetails() {}
func (NetworkReadDetails) isEventDetails() {}
func (EventsReadDetails) isEventDetails()  {}
func (StateReadDetails) isEventDetails()   {}
func (NavigateDetails) isEventDetails()    {}
func (ClickDetails) isEventDetails()       {}
func (TypeDetails) isEventDetails()        {}
func (ExecuteDetails) isEventDetails()     {}
