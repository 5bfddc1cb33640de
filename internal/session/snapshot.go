package session

import (
	"context"

	"browserwarden-mcp-server/internal/backend"
)

// Snapshot is a cheap observation of page state taken immediately before
// and after an action. Counts are cumulative for the page's lifetime.
type Snapshot struct {
	URL                 string `json:"url"`
	NetworkRequestCount int    `json:"network_request_count"`
	ConsoleMessageCount int    `json:"console_message_count"`
}

// capture reads the current snapshot off a page. A failed URL read leaves
// the URL empty rather than failing the surrounding action; the counters
// come from in-memory buffers and cannot fail.
func capture(ctx context.Context, p backend.Page) Snapshot {
	url, err := p.CurrentURL(ctx)
	if err != nil {
		url = ""
	}
	return Snapshot{
		URL:                 url,
		NetworkRequestCount: p.NetworkRequestCount(),
		ConsoleMessageCount: p.ConsoleMessageCount(),
	}
}

// Confidence grades how sure we are that an action had an effect, based
// purely on the pre/post snapshot delta.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ObservedChanges is the snapshot delta an action produced.
type ObservedChanges struct {
	URLChanged         bool `json:"url_changed"`
	NewNetworkRequests int  `json:"new_network_requests"`
	NewConsoleMessages int  `json:"new_console_messages"`
}

// Evaluate grades the pre/post delta. A URL change is the strongest
// signal; new network or console activity is weaker; no observable
// change at all grades low. Counters only ever grow, so negative deltas
// are clamped to zero.
func Evaluate(pre, post Snapshot) (Confidence, ObservedChanges) {
	observed := ObservedChanges{
		URLChanged:         pre.URL != post.URL,
		NewNetworkRequests: max(0, post.NetworkRequestCount-pre.NetworkRequestCount),
		NewConsoleMessages: max(0, post.ConsoleMessageCount-pre.ConsoleMessageCount),
	}
	switch {
	case observed.URLChanged:
		return ConfidenceHigh, observed
	case observed.NewNetworkRequests > 0 || observed.NewConsoleMessages > 0:
		return ConfidenceMedium, observed
	default:
		return ConfidenceLow, observed
	}
}

// ActionResult is returned for every successfully invoked action. Action
// names the operation performed, matching its audit event type.
type ActionResult struct {
	Action     string          `json:"action"`
	Confidence Confidence      `json:"confidence"`
	Observed   ObservedChanges `json:"observed"`
	Pre        Snapshot        `json:"pre"`
	Post       Snapshot        `json:"post"`
	Output     string          `json:"output,omitempty"`
}
