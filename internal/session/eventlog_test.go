package session

import "testing"

func TestEventLogAppendOrder(t *testing.T) {
	l := NewEventLog()
	l.Append(EventSessionCreated, "", CreatedDetails{Viewport: "1280x720"})
	l.Append(EventScreenshot, "", ScreenshotDetails{Bytes: 10})
	l.Append(EventSessionEscalated, "debugging checkout", EscalatedDetails{})

	events := l.Read()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	wantTypes := []EventType{EventSessionCreated, EventScreenshot, EventSessionEscalated}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("event %d: expected type %q, got %q", i, want, events[i].Type)
		}
	}
	if events[2].Reason != "debugging checkout" {
		t.Errorf("expected reason preserved, got %q", events[2].Reason)
	}
}

func TestEventLogReadReturnsCopy(t *testing.T) {
	l := NewEventLog()
	l.Append(EventScreenshot, "", ScreenshotDetails{})

	events := l.Read()
	events[0].Type = EventClick

	if got := l.Read()[0].Type; got != EventScreenshot {
		t.Errorf("mutating a read slice changed the log: got %q", got)
	}
}

func TestEventLogFilter(t *testing.T) {
	l := NewEventLog()
	l.Append(EventScreenshot, "", ScreenshotDetails{})
	l.Append(EventDOMRead, "", DOMReadDetails{})
	l.Append(EventScreenshot, "", ScreenshotDetails{})

	shots := l.Filter(EventScreenshot)
	if len(shots) != 2 {
		t.Errorf("expected 2 screenshot events, got %d", len(shots))
	}
	if len(l.Filter(EventClick)) != 0 {
		t.Error("expected no click events")
	}
}

func TestEventLogUniqueIDs(t *testing.T) {
	l := NewEventLog()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ev := l.Append(EventTextRead, "", TextReadDetails{})
		if seen[ev.ID] {
			t.Fatalf("duplicate event id %s", ev.ID)
		}
		seen[ev.ID] = true
	}
}

func TestEventLogMirror(t *testing.T) {
	l := NewEventLog()
	var mirrored []Event
	l.SetMirror(func(ev Event) { mirrored = append(mirrored, ev) })

	l.Append(EventSessionCreated, "", CreatedDetails{})
	l.Append(EventNavigate, "checking login page", NavigateDetails{URL: "https://a.test/"})

	if len(mirrored) != 2 {
		t.Fatalf("expected 2 mirrored events, got %d", len(mirrored))
	}
	if mirrored[1].Type != EventNavigate {
		t.Errorf("expected navigate mirrored, got %q", mirrored[1].Type)
	}
}
