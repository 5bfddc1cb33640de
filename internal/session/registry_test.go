package session

import (
	"context"
	"errors"
	"testing"

	"browserwarden-mcp-server/internal/backend"
)

func TestRegistryCreate(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake()
	registry := NewRegistry(fake)

	t.Run("requires a name", func(t *testing.T) {
		if _, err := registry.Create(ctx, "", backend.PageOptions{}); err == nil {
			t.Error("expected error for empty name")
		}
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		if _, err := registry.Create(ctx, "checkout", backend.PageOptions{}); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := registry.Create(ctx, "checkout", backend.PageOptions{}); !errors.Is(err, ErrDuplicateSession) {
			t.Errorf("expected ErrDuplicateSession, got %v", err)
		}
	})

	t.Run("propagates backend failures", func(t *testing.T) {
		failing := backend.NewFake()
		failing.OpenErr = errors.New("browser gone")
		r := NewRegistry(failing)
		if _, err := r.Create(ctx, "doomed", backend.PageOptions{}); err == nil {
			t.Error("expected error when page open fails")
		}
		if _, err := r.Get("doomed"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("failed create must not register the session")
		}
	})
}

func TestRegistryGet(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake()
	registry := NewRegistry(fake)

	if _, err := registry.Get("ghost"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	if _, err := registry.Create(ctx, "probe", backend.PageOptions{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	s, err := registry.Get("probe")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Name != "probe" {
		t.Errorf("expected probe, got %q", s.Name)
	}

	if err := registry.Destroy(ctx, "probe"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := registry.Get("probe"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after destroy, got %v", err)
	}
}

func TestRegistryList(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake()
	registry := NewRegistry(fake)

	if got := registry.List(); len(got) != 0 {
		t.Errorf("expected empty list, got %d", len(got))
	}

	for _, name := range []string{"zulu", "alpha", "mike"} {
		if _, err := registry.Create(ctx, name, backend.PageOptions{}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	s, _ := registry.Get("mike")
	if err := s.Escalate("needs clicking"); err != nil {
		t.Fatalf("escalate: %v", err)
	}

	list := registry.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(list))
	}
	wantOrder := []string{"alpha", "mike", "zulu"}
	for i, want := range wantOrder {
		if list[i].Name != want {
			t.Errorf("list[%d]: expected %q, got %q", i, want, list[i].Name)
		}
	}
	if list[1].State != StateEscalated || list[1].EscalationReason != "needs clicking" {
		t.Errorf("expected escalation visible in listing, got %+v", list[1])
	}

	if err := registry.Destroy(ctx, "zulu"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if got := registry.List(); len(got) != 2 {
		t.Errorf("destroyed session still listed: %d entries", len(got))
	}
}

func TestRegistryDestroyNotIdempotent(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake()
	registry := NewRegistry(fake)

	if err := registry.Destroy(ctx, "ghost"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}

	if _, err := registry.Create(ctx, "probe", backend.PageOptions{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := registry.Destroy(ctx, "probe"); err != nil {
		t.Fatalf("first destroy: %v", err)
	}
	if err := registry.Destroy(ctx, "probe"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second destroy: expected ErrSessionNotFound, got %v", err)
	}
}

func TestCreateRecordsEffectiveViewport(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(backend.NewFake())

	s, err := registry.Create(ctx, "probe", backend.PageOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	events := s.Log().Filter(EventSessionCreated)
	if len(events) != 1 {
		t.Fatalf("expected 1 creation event, got %d", len(events))
	}
	details, ok := events[0].Details.(CreatedDetails)
	if !ok {
		t.Fatalf("expected CreatedDetails, got %T", events[0].Details)
	}
	if details.Viewport != "1280x720" {
		t.Errorf("expected backend default viewport recorded, got %q", details.Viewport)
	}
}

// A destroyed name is gone from the registry: lookups and repeat destroys
// report it as not found, the same kind as a name that never existed.
func TestDestroyedNameReportsNotFound(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(backend.NewFake())

	if _, err := registry.Create(ctx, "short-lived", backend.PageOptions{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := registry.Destroy(ctx, "short-lived"); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	if _, err := registry.Get("short-lived"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("get after destroy: expected ErrSessionNotFound, got %v", err)
	}
	if err := registry.Destroy(ctx, "short-lived"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("destroy after destroy: expected ErrSessionNotFound, got %v", err)
	}

	// The sealed audit log stays readable even though lookups fail.
	if _, err := registry.Events(ctx, "short-lived"); err != nil {
		t.Errorf("events after destroy: %v", err)
	}
}

func TestNameReusableAfterDestroy(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake()
	registry := NewRegistry(fake)

	if _, err := registry.Create(ctx, "probe", backend.PageOptions{}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := registry.Destroy(ctx, "probe"); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	fresh, err := registry.Create(ctx, "probe", backend.PageOptions{})
	if err != nil {
		t.Fatalf("recreate after destroy: %v", err)
	}
	if fresh.State() != StateLocked {
		t.Errorf("reused name must start a fresh locked session, got %q", fresh.State())
	}
	if fresh.Log().Len() != 1 {
		t.Errorf("reused name must start a fresh log, got %d events", fresh.Log().Len())
	}
}

func TestEventsSurviveDestroy(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake()
	registry := NewRegistry(fake)

	s, err := registry.Create(ctx, "probe", backend.PageOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Escalate("verify the fix"); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if _, err := s.Navigate(ctx, "https://a.test/", "verify the fix"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := registry.Destroy(ctx, "probe"); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	events, err := registry.Events(ctx, "probe")
	if err != nil {
		t.Fatalf("events after destroy: %v", err)
	}
	// created, escalated, navigate, destroyed
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	// A sealed log stays sealed: reading it must not append.
	again, err := registry.Events(ctx, "probe")
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if len(again) != len(events) {
		t.Errorf("reading a destroyed session's log grew it: %d -> %d", len(events), len(again))
	}
}

func TestRegistryMirror(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake()
	registry := NewRegistry(fake)

	type record struct {
		session string
		ev      Event
	}
	var records []record
	registry.SetMirror(func(name string, ev Event) {
		records = append(records, record{name, ev})
	})

	s, err := registry.Create(ctx, "probe", backend.PageOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Escalate("exercise the mirror"); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if err := registry.Destroy(ctx, "probe"); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 mirrored events, got %d", len(records))
	}
	for _, r := range records {
		if r.session != "probe" {
			t.Errorf("expected session name tag, got %q", r.session)
		}
	}
	if records[2].ev.Type != EventSessionDestroyed {
		t.Errorf("expected destroy mirrored last, got %q", records[2].ev.Type)
	}
}

func TestRegistryShutdown(t *testing.T) {
	ctx := context.Background()
	fake := backend.NewFake()
	registry := NewRegistry(fake)

	for _, name := range []string{"a", "b"} {
		if _, err := registry.Create(ctx, name, backend.PageOptions{}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	registry.Shutdown(ctx)

	if got := registry.List(); len(got) != 0 {
		t.Errorf("expected no live sessions after shutdown, got %d", len(got))
	}
	for _, p := range fake.Pages() {
		if !p.Closed() {
			t.Errorf("expected all pages closed, %v still open", p)
		}
	}
}
