// Package backend defines the browser capability consumed by the session core.
// The core never depends on driver-specific types; the real driver (Rod) and
// the deterministic Fake both implement Backend/Page.
package backend

import (
	"context"
	"fmt"
	"time"

	"browserwarden-mcp-server/internal/correlation"
)

// OperationError wraps a driver-level fault (selector not found, script error,
// navigation failure). The cause is human-readable and never interpreted by
// the caller, only propagated.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// opErr wraps a driver fault, passing nil through untouched.
func opErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Err: err}
}

// PageOptions configures a new page. Zero values fall back to the
// backend-level configuration.
type PageOptions struct {
	ViewportWidth  int
	ViewportHeight int
}

// ConsoleEntry is one captured console message. Correlation keys found in the
// message text (request ids echoed by failed fetches, traceparent dumps) are
// attached so console errors can be matched to server-side logs.
type ConsoleEntry struct {
	Level       string            `json:"level"`
	Message     string            `json:"message"`
	Timestamp   time.Time         `json:"timestamp"`
	Correlation []correlation.Key `json:"correlation,omitempty"`
}

// NetworkEntry is one captured network request. Status is back-filled when the
// matching response arrives. Correlation keys are extracted from request
// headers so agents can tie a request to server-side logs.
type NetworkEntry struct {
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Status      int               `json:"status,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Correlation []correlation.Key `json:"correlation,omitempty"`
}

// PageInfo is the observation returned by Navigate and Info.
type PageInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// DOMSnapshot is the HTML observation returned by HTML. Oversized documents
// are truncated and flagged rather than streamed.
type DOMSnapshot struct {
	HTML           string `json:"html"`
	Truncated      bool   `json:"truncated"`
	OriginalLength int    `json:"original_length,omitempty"`
}

// Backend owns the browser process or connection and opens pages.
type Backend interface {
	// Start connects to or launches the browser. Idempotent for a healthy
	// connection.
	Start(ctx context.Context) error
	// Shutdown releases the browser and every page opened through it.
	Shutdown(ctx context.Context) error
	// Open creates a fresh isolated page.
	Open(ctx context.Context, opts PageOptions) (Page, error)
	// DefaultViewport reports the dimensions applied when PageOptions
	// leaves them unset.
	DefaultViewport() (width, height int)
}

// Page is one browser page capability. All observation methods are pure reads
// of either live page state or the capture buffers; the cumulative console and
// network counts only ever increase while the page is open. Every failure is
// an *OperationError.
type Page interface {
	Close() error

	Navigate(ctx context.Context, url string) (PageInfo, error)
	HTML(ctx context.Context, selector string) (DOMSnapshot, error)
	Text(ctx context.Context, selector string) (string, error)
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	CurrentURL(ctx context.Context) (string, error)
	Info(ctx context.Context) (PageInfo, error)

	ConsoleMessages() []ConsoleEntry
	NetworkRequests() []NetworkEntry
	ConsoleMessageCount() int
	NetworkRequestCount() int

	Click(ctx context.Context, selector string) error
	TypeText(ctx context.Context, selector, text string, clearFirst bool) error
	ExecuteScript(ctx context.Context, code string) (string, error)
}
