package session

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"browserwarden-mcp-server/internal/backend"
)

// Registry tracks all sessions by name. Live sessions are unique by name;
// destroyed sessions are retained (most recent per name) so their audit
// logs remain readable after destruction, and their names become
// available for reuse.
type Registry struct {
	backend backend.Backend

	mu        sync.RWMutex
	live      map[string]*Session
	destroyed map[string]*Session
	mirror    func(sessionName string, ev Event)
}

func NewRegistry(b backend.Backend) *Registry {
	return &Registry{
		backend:   b,
		live:      make(map[string]*Session),
		destroyed: make(map[string]*Session),
	}
}

// SetMirror installs a hook that receives every audit event from every
// session created after the call, tagged with the session name.
func (r *Registry) SetMirror(fn func(sessionName string, ev Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mirror = fn
}

// Create opens a fresh isolated page and registers a locked session under
// the given name. Names must be unique among live sessions; a name freed
// by destruction may be reused.
func (r *Registry) Create(ctx context.Context, name string, opts backend.PageOptions) (*Session, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("session name is required")
	}

	r.mu.Lock()
	if _, exists := r.live[name]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, name)
	}
	mirror := r.mirror
	r.mu.Unlock()

	// Resolve unset dimensions up front so the audit log records the
	// viewport the page actually gets.
	if opts.ViewportWidth <= 0 || opts.ViewportHeight <= 0 {
		w, h := r.backend.DefaultViewport()
		if opts.ViewportWidth <= 0 {
			opts.ViewportWidth = w
		}
		if opts.ViewportHeight <= 0 {
			opts.ViewportHeight = h
		}
	}

	// Page creation happens outside the lock; a slow browser must not
	// block List or Get. The name is re-checked before insert.
	page, err := r.backend.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open page for session %s: %w", name, err)
	}

	s := newSession(name, page)
	if mirror != nil {
		s.log.SetMirror(func(ev Event) { mirror(name, ev) })
	}

	r.mu.Lock()
	if _, exists := r.live[name]; exists {
		r.mu.Unlock()
		_ = page.Close()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, name)
	}
	r.live[name] = s
	r.mu.Unlock()

	viewport := fmt.Sprintf("%dx%d", opts.ViewportWidth, opts.ViewportHeight)
	s.log.Append(EventSessionCreated, "", CreatedDetails{Viewport: viewport})
	log.Printf("[session:%s] created (viewport %s)", name, viewport)
	return s, nil
}

// Get returns the live session with the given name. A destroyed session
// is gone from the registry's point of view and reported as not found;
// the message keeps the distinction for humans reading logs.
func (r *Registry) Get(name string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.live[name]; ok {
		return s, nil
	}
	if _, ok := r.destroyed[name]; ok {
		return nil, fmt.Errorf("%w: %s (destroyed)", ErrSessionNotFound, name)
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
}

// SessionSummary is the listing view of a live session.
type SessionSummary struct {
	Name             string    `json:"name"`
	State            State     `json:"state"`
	CreatedAt        time.Time `json:"created_at"`
	EscalationReason string    `json:"escalation_reason,omitempty"`
	EventCount       int       `json:"event_count"`
}

// List returns summaries of all live sessions, sorted by name. Destroyed
// sessions are omitted; their logs stay reachable through Events.
func (r *Registry) List() []SessionSummary {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.live))
	for _, s := range r.live {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionSummary{
			Name:             s.Name,
			State:            s.State(),
			CreatedAt:        s.CreatedAt,
			EscalationReason: s.EscalationReason(),
			EventCount:       s.log.Len(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Destroy permanently tears down a live session. Destroying twice is a
// not-found error, same as destroying a name that never existed, so a
// double-destroy in a caller is surfaced rather than masked.
func (r *Registry) Destroy(ctx context.Context, name string) error {
	r.mu.Lock()
	s, ok := r.live[name]
	if !ok {
		defer r.mu.Unlock()
		if _, gone := r.destroyed[name]; gone {
			return fmt.Errorf("%w: %s (destroyed)", ErrSessionNotFound, name)
		}
		return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	delete(r.live, name)
	r.destroyed[name] = s
	r.mu.Unlock()

	if err := s.destroy(); err != nil {
		log.Printf("[session:%s] page close failed during destroy: %v", name, err)
	}
	log.Printf("[session:%s] destroyed", name)
	return nil
}

// Events returns the audit log for a session by name. For a live session
// the read itself is recorded; a destroyed session's log is sealed, so it
// is returned as-is.
func (r *Registry) Events(ctx context.Context, name string) ([]Event, error) {
	r.mu.RLock()
	live, isLive := r.live[name]
	dead, isDead := r.destroyed[name]
	r.mu.RUnlock()

	if isLive {
		return live.Events(ctx)
	}
	if isDead {
		return dead.log.Read(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
}

// Shutdown destroys every live session. Used at server teardown.
func (r *Registry) Shutdown(ctx context.Context) {
	for _, summary := range r.List() {
		if err := r.Destroy(ctx, summary.Name); err != nil {
			log.Printf("[session:%s] shutdown destroy failed: %v", summary.Name, err)
		}
	}
}
