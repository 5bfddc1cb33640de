package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"browserwarden-mcp-server/internal/backend"

	"github.com/google/uuid"
)

// State is a session's position in its one-way lifecycle. Sessions start
// locked, may escalate once, and end destroyed. There are no other
// transitions.
type State string

const (
	StateLocked    State = "locked"
	StateEscalated State = "escalated"
	StateDestroyed State = "destroyed"
)

// Session owns one isolated browser page plus its audit log. All page
// operations are serialized through opMu so pre/post snapshots around an
// action cannot interleave with another operation on the same session.
type Session struct {
	Name      string
	ID        string
	CreatedAt time.Time

	stateMu          sync.RWMutex
	state            State
	escalationReason string
	escalatedAt      time.Time

	opMu sync.Mutex
	page backend.Page
	log  *EventLog
}

func newSession(name string, page backend.Page) *Session {
	return &Session{
		Name:      name,
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		state:     StateLocked,
		page:      page,
		log:       NewEventLog(),
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// EscalationReason returns the justification given at escalation time,
// or "" for a session that was never escalated.
func (s *Session) EscalationReason() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.escalationReason
}

// Log exposes the session's audit log.
func (s *Session) Log() *EventLog {
	return s.log
}

// Escalate moves a locked session to the escalated state. The reason is
// mandatory and recorded verbatim in the audit log. Escalation cannot be
// undone short of destroying the session.
func (s *Session) Escalate(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrInvalidReason
	}

	s.stateMu.Lock()
	switch s.state {
	case StateDestroyed:
		s.stateMu.Unlock()
		return ErrSessionDestroyed
	case StateEscalated:
		s.stateMu.Unlock()
		return ErrAlreadyEscalated
	}
	s.state = StateEscalated
	s.escalationReason = reason
	s.escalatedAt = time.Now().UTC()
	s.stateMu.Unlock()

	s.log.Append(EventSessionEscalated, reason, EscalatedDetails{})
	return nil
}

// requireAlive rejects operations on a destroyed session.
func (s *Session) requireAlive() error {
	if s.State() == StateDestroyed {
		return fmt.Errorf("%w: %s", ErrSessionDestroyed, s.Name)
	}
	return nil
}

// requireEscalated rejects actions on a session that is not escalated.
func (s *Session) requireEscalated() error {
	switch s.State() {
	case StateDestroyed:
		return fmt.Errorf("%w: %s", ErrSessionDestroyed, s.Name)
	case StateLocked:
		return fmt.Errorf("%w: %s", ErrSessionNotEscalated, s.Name)
	}
	return nil
}

// destroy seals the session: closes its page, flips the state, and
// appends the final audit event. Idempotency is enforced by the caller.
func (s *Session) destroy() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	count := s.log.Len()
	s.log.Append(EventSessionDestroyed, "", DestroyedDetails{EventCount: count})

	s.stateMu.Lock()
	s.state = StateDestroyed
	s.stateMu.Unlock()

	return s.page.Close()
}

// Screenshot captures the page as a PNG. Available in any live state.
func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.requireAlive(); err != nil {
		return nil, err
	}
	img, err := s.page.Screenshot(ctx, fullPage)
	if err != nil {
		return nil, err
	}
	s.log.Append(EventScreenshot, "", ScreenshotDetails{FullPage: fullPage, Bytes: len(img)})
	return img, nil
}

// DOM reads the page HTML, optionally scoped to a selector. Oversized
// documents are truncated by the backend.
func (s *Session) DOM(ctx context.Context, selector string) (backend.DOMSnapshot, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.requireAlive(); err != nil {
		return backend.DOMSnapshot{}, err
	}
	snap, err := s.page.HTML(ctx, selector)
	if err != nil {
		return backend.DOMSnapshot{}, err
	}
	s.log.Append(EventDOMRead, "", DOMReadDetails{
		Selector:  selector,
		Length:    len(snap.HTML),
		Truncated: snap.Truncated,
	})
	return snap, nil
}

// Text reads the page's visible text, optionally scoped to a selector.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.requireAlive(); err != nil {
		return "", err
	}
	text, err := s.page.Text(ctx, selector)
	if err != nil {
		return "", err
	}
	s.log.Append(EventTextRead, "", TextReadDetails{Selector: selector, Length: len(text)})
	return text, nil
}

// Console returns the console messages captured since the page opened.
func (s *Session) Console(ctx context.Context) ([]backend.ConsoleEntry, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.requireAlive(); err != nil {
		return nil, err
	}
	entries := s.page.ConsoleMessages()
	s.log.Append(EventConsoleRead, "", ConsoleReadDetails{Count: len(entries)})
	return entries, nil
}

// Network returns the network requests captured since the page opened.
func (s *Session) Network(ctx context.Context) ([]backend.NetworkEntry, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.requireAlive(); err != nil {
		return nil, err
	}
	entries := s.page.NetworkRequests()
	s.log.Append(EventNetworkRead, "", NetworkReadDetails{Count: len(entries)})
	return entries, nil
}

// Events returns the audit log and records the read. The returned slice
// is captured before the read event is appended, so a read never lists
// itself.
func (s *Session) Events(ctx context.Context) ([]Event, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.requireAlive(); err != nil {
		return nil, err
	}
	events := s.log.Read()
	s.log.Append(EventEventsRead, "", EventsReadDetails{Count: len(events)})
	return events, nil
}

// PageState returns the page's current URL and title.
func (s *Session) PageState(ctx context.Context) (backend.PageInfo, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if err := s.requireAlive(); err != nil {
		return backend.PageInfo{}, err
	}
	info, err := s.page.Info(ctx)
	if err != nil {
		return backend.PageInfo{}, err
	}
	s.log.Append(EventStateRead, "", StateReadDetails{URL: info.URL, Title: info.Title})
	return info, nil
}
