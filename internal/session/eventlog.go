package session

import "sync"

// EventLog is a session's append-only audit log. Events are never
// modified or removed once appended; destruction of the owning session
// seals the log but does not discard it.
type EventLog struct {
	mu     sync.RWMutex
	events []Event
	mirror func(Event)
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

// SetMirror installs a hook invoked for every appended event, after the
// append. Used to stream the audit trail to persistent storage.
func (l *EventLog) SetMirror(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mirror = fn
}

// Append records a new event and returns it.
func (l *EventLog) Append(t EventType, reason string, details EventDetails) Event {
	ev := newEvent(t, reason, details)
	l.mu.Lock()
	l.events = append(l.events, ev)
	mirror := l.mirror
	l.mu.Unlock()
	if mirror != nil {
		mirror(ev)
	}
	return ev
}

// Read returns a copy of all events in append order.
func (l *EventLog) Read() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Filter returns the events of a single type, in append order.
func (l *EventLog) Filter(t EventType) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Len returns the number of events appended so far.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
