package backend

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is an in-memory Backend used by tests. Pages it opens start on
// about:blank with empty observation buffers; tests drive state through
// the FakePage helpers.
type Fake struct {
	mu      sync.Mutex
	started bool
	pages   []*FakePage

	// OpenErr, when set, is returned by Open.
	OpenErr error
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *Fake) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = false
	return nil
}

func (f *Fake) DefaultViewport() (int, int) {
	return 1280, 720
}

func (f *Fake) Open(ctx context.Context, opts PageOptions) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	p := &FakePage{
		url:   "about:blank",
		width: opts.ViewportWidth, height: opts.ViewportHeight,
	}
	f.pages = append(f.pages, p)
	return p, nil
}

// Pages returns every page opened so far, including closed ones.
func (f *Fake) Pages() []*FakePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakePage, len(f.pages))
	copy(out, f.pages)
	return out
}

// FakePage implements Page with scripted behavior. The hook fields let a
// test inject faults or side effects for a single operation; when nil the
// operation succeeds without observable changes.
type FakePage struct {
	mu     sync.Mutex
	url    string
	title  string
	html   string
	text   string
	closed bool
	width  int
	height int

	console []ConsoleEntry
	network []NetworkEntry

	NavigateFunc func(url string) error
	ClickFunc    func(selector string) error
	TypeFunc     func(selector, text string) error
	ExecFunc     func(code string) (string, error)
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (p *FakePage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// SetContent seeds the HTML and text returned by reads.
func (p *FakePage) SetContent(html, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
	p.text = text
}

// SetTitle seeds the page title.
func (p *FakePage) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = title
}

// AddConsole appends a console entry, simulating page activity.
func (p *FakePage) AddConsole(level, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.console = append(p.console, ConsoleEntry{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// AddNetwork appends a network entry, simulating page activity.
func (p *FakePage) AddNetwork(method, url string, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.network = append(p.network, NetworkEntry{
		Method:    method,
		URL:       url,
		Status:    status,
		Timestamp: time.Now(),
	})
}

func (p *FakePage) Navigate(ctx context.Context, url string) (PageInfo, error) {
	p.mu.Lock()
	hook := p.NavigateFunc
	p.mu.Unlock()
	if hook != nil {
		if err := hook(url); err != nil {
			return PageInfo{}, opErr("navigate", err)
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	// A real navigation always issues at least the document request.
	p.network = append(p.network, NetworkEntry{
		Method:    "GET",
		URL:       url,
		Status:    200,
		Timestamp: time.Now(),
	})
	return PageInfo{URL: p.url, Title: p.title}, nil
}

func (p *FakePage) HTML(ctx context.Context, selector string) (DOMSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	html := p.html
	snap := DOMSnapshot{HTML: html}
	if len(html) > maxDOMBytes {
		snap.Truncated = true
		snap.OriginalLength = len(html)
		snap.HTML = html[:maxDOMBytes]
	}
	return snap, nil
}

func (p *FakePage) Text(ctx context.Context, selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.text, nil
}

func (p *FakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	// A tiny valid PNG header is enough for callers that only encode it.
	return []byte("\x89PNG\r\n\x1a\nfake"), nil
}

func (p *FakePage) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *FakePage) Info(ctx context.Context) (PageInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PageInfo{URL: p.url, Title: p.title}, nil
}

func (p *FakePage) ConsoleMessages() []ConsoleEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ConsoleEntry, len(p.console))
	copy(out, p.console)
	return out
}

func (p *FakePage) NetworkRequests() []NetworkEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]NetworkEntry, len(p.network))
	copy(out, p.network)
	return out
}

func (p *FakePage) ConsoleMessageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.console)
}

func (p *FakePage) NetworkRequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.network)
}

func (p *FakePage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	hook := p.ClickFunc
	p.mu.Unlock()
	if hook != nil {
		if err := hook(selector); err != nil {
			return opErr("click", err)
		}
	}
	return nil
}

func (p *FakePage) TypeText(ctx context.Context, selector, text string, clearFirst bool) error {
	p.mu.Lock()
	hook := p.TypeFunc
	p.mu.Unlock()
	if hook != nil {
		if err := hook(selector, text); err != nil {
			return opErr("type", err)
		}
	}
	return nil
}

func (p *FakePage) ExecuteScript(ctx context.Context, code string) (string, error) {
	p.mu.Lock()
	hook := p.ExecFunc
	p.mu.Unlock()
	if hook != nil {
		out, err := hook(code)
		if err != nil {
			return "", opErr("execute", err)
		}
		return out, nil
	}
	return "", nil
}

var _ Backend = (*Fake)(nil)
var _ Page = (*FakePage)(nil)

// String implements fmt.Stringer for debugging test failures.
func (p *FakePage) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("FakePage{url:%s console:%d network:%d closed:%v}", p.url, len(p.console), len(p.network), p.closed)
}
