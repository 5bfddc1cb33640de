package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"browserwarden-mcp-server/internal/config"
	"browserwarden-mcp-server/internal/correlation"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// maxDOMBytes caps the HTML payload returned by a DOM read.
const maxDOMBytes = 100_000

// Rod drives a detached Chrome instance over CDP using go-rod.
type Rod struct {
	cfg config.BrowserConfig

	mu         sync.RWMutex
	browser    *rod.Browser
	controlURL string
	lifetime   context.Context
}

func NewRod(cfg config.BrowserConfig) *Rod {
	return &Rod{cfg: cfg}
}

// Start connects to an existing Chrome or launches a new one using Rod's launcher.
// The context bounds the lifetime of the connection and all event capture.
func (b *Rod) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If we already have a browser, verify it's still alive
	if b.browser != nil {
		_, err := b.browser.Version()
		if err == nil {
			return nil // Browser is healthy, reuse it
		}
		log.Printf("Stale browser connection detected, reconnecting...")
		_ = b.browser.Close()
		b.browser = nil
		b.controlURL = ""
	}

	controlURL := b.cfg.DebuggerURL
	if controlURL == "" && len(b.cfg.Launch) > 0 {
		bin := b.cfg.Launch[0]
		launch := launcher.New().Bin(bin).Headless(b.cfg.IsHeadless())
		if len(b.cfg.Launch) > 1 {
			for _, rawFlag := range b.cfg.Launch[1:] {
				flagStr := strings.TrimLeft(rawFlag, "-")
				name, val, hasVal := strings.Cut(flagStr, "=")
				if hasVal {
					launch = launch.Set(flags.Flag(name), val)
				} else {
					launch = launch.Set(flags.Flag(name))
				}
			}
		}
		url, err := launch.Launch()
		if err != nil {
			// Fallback: let Rod pick the port and defaults.
			fallback := launcher.New().Bin(bin).Headless(b.cfg.IsHeadless())
			if alt, altErr := fallback.Launch(); altErr == nil {
				controlURL = alt
			} else {
				return fmt.Errorf("launch chrome: %w (fallback: %v)", err, altErr)
			}
		} else {
			controlURL = url
		}
	}

	if controlURL == "" {
		return errors.New("no debugger_url or launch command provided")
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	b.browser = browser
	b.controlURL = controlURL
	b.lifetime = ctx
	log.Printf("Browser connected at %s", controlURL)
	return nil
}

// ControlURL returns the WebSocket debugger URL for the connected browser.
func (b *Rod) ControlURL() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.controlURL
}

// IsConnected returns whether the browser is currently connected.
func (b *Rod) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.browser != nil
}

// Shutdown closes the underlying browser. Pages opened through Open are
// closed by their owning sessions; anything left is torn down with the
// browser process.
func (b *Rod) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	b.controlURL = ""
	log.Printf("Browser shutdown complete")
	return err
}

// DefaultViewport reports the configured viewport dimensions.
func (b *Rod) DefaultViewport() (int, int) {
	return b.cfg.GetViewportWidth(), b.cfg.GetViewportHeight()
}

// Open creates a fresh incognito page and wires console/network capture.
func (b *Rod) Open(ctx context.Context, opts PageOptions) (Page, error) {
	b.mu.RLock()
	browser := b.browser
	lifetime := b.lifetime
	b.mu.RUnlock()

	if browser == nil {
		return nil, errors.New("browser not connected")
	}
	if lifetime == nil {
		lifetime = context.Background()
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	width := opts.ViewportWidth
	if width <= 0 {
		width = b.cfg.GetViewportWidth()
	}
	height := opts.ViewportHeight
	if height <= 0 {
		height = b.cfg.GetViewportHeight()
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		log.Printf("warning: failed to set viewport: %v", err)
	}

	p := &rodPage{
		page:     page,
		cfg:      b.cfg,
		reqIndex: make(map[proto.NetworkRequestID]int),
	}
	p.startCapture(lifetime)
	return p, nil
}

// rodPage implements Page on top of a single Rod page. Console and network
// buffers are append-only so len() doubles as the cumulative count.
type rodPage struct {
	page *rod.Page
	cfg  config.BrowserConfig

	mu       sync.RWMutex
	console  []ConsoleEntry
	network  []NetworkEntry
	reqIndex map[proto.NetworkRequestID]int
}

// startCapture wires Rod CDP events into the observation buffers.
func (p *rodPage) startCapture(ctx context.Context) {
	wait := p.page.Context(ctx).EachEvent(
		func(ev *proto.RuntimeConsoleAPICalled) {
			msg := stringifyConsoleArgs(ev.Args)
			entry := ConsoleEntry{
				Level:       string(ev.Type),
				Message:     msg,
				Timestamp:   time.Now(),
				Correlation: correlation.FromMessage(msg),
			}
			p.mu.Lock()
			p.console = append(p.console, entry)
			p.mu.Unlock()
		},
		func(ev *proto.NetworkRequestWillBeSent) {
			headers := make(map[string]string, len(ev.Request.Headers))
			for k, v := range ev.Request.Headers {
				headers[k] = fmt.Sprintf("%v", v)
			}
			entry := NetworkEntry{
				Method:      ev.Request.Method,
				URL:         ev.Request.URL,
				Timestamp:   time.Now(),
				Correlation: correlation.FromHeaders(headers),
			}
			p.mu.Lock()
			p.network = append(p.network, entry)
			p.reqIndex[ev.RequestID] = len(p.network) - 1
			p.mu.Unlock()
		},
		func(ev *proto.NetworkResponseReceived) {
			p.mu.Lock()
			if idx, ok := p.reqIndex[ev.RequestID]; ok && idx < len(p.network) {
				p.network[idx].Status = ev.Response.Status
			}
			p.mu.Unlock()
		},
	)
	go wait()
}

func (p *rodPage) Close() error {
	return opErr("close", p.page.Close())
}

func (p *rodPage) Navigate(ctx context.Context, url string) (PageInfo, error) {
	nav := p.page.Context(ctx).Timeout(p.cfg.NavigationTimeout())
	if err := nav.Navigate(url); err != nil {
		return PageInfo{}, opErr("navigate", err)
	}
	if err := nav.WaitLoad(); err != nil {
		return PageInfo{}, opErr("navigate", err)
	}
	return p.Info(ctx)
}

func (p *rodPage) HTML(ctx context.Context, selector string) (DOMSnapshot, error) {
	var html string
	var err error
	if selector == "" {
		html, err = p.page.Context(ctx).HTML()
	} else {
		var el *rod.Element
		el, err = p.element(ctx, selector)
		if err == nil {
			html, err = el.HTML()
		}
	}
	if err != nil {
		return DOMSnapshot{}, opErr("dom read", err)
	}

	snap := DOMSnapshot{HTML: html}
	if len(html) > maxDOMBytes {
		snap.Truncated = true
		snap.OriginalLength = len(html)
		snap.HTML = html[:maxDOMBytes]
	}
	return snap, nil
}

func (p *rodPage) Text(ctx context.Context, selector string) (string, error) {
	if selector == "" {
		selector = "body"
	}
	el, err := p.element(ctx, selector)
	if err != nil {
		return "", opErr("text read", err)
	}
	text, err := el.Text()
	if err != nil {
		return "", opErr("text read", err)
	}
	return text, nil
}

func (p *rodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	img, err := p.page.Context(ctx).Screenshot(fullPage, nil)
	if err != nil {
		return nil, opErr("screenshot", err)
	}
	return img, nil
}

func (p *rodPage) CurrentURL(ctx context.Context) (string, error) {
	info, err := p.Info(ctx)
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *rodPage) Info(ctx context.Context) (PageInfo, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return PageInfo{}, opErr("page info", err)
	}
	return PageInfo{URL: info.URL, Title: info.Title}, nil
}

func (p *rodPage) ConsoleMessages() []ConsoleEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ConsoleEntry, len(p.console))
	copy(out, p.console)
	return out
}

func (p *rodPage) NetworkRequests() []NetworkEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]NetworkEntry, len(p.network))
	copy(out, p.network)
	return out
}

func (p *rodPage) ConsoleMessageCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.console)
}

func (p *rodPage) NetworkRequestCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.network)
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return opErr("click", err)
	}
	return opErr("click", el.Click("left", 1))
}

func (p *rodPage) TypeText(ctx context.Context, selector, text string, clearFirst bool) error {
	el, err := p.element(ctx, selector)
	if err != nil {
		return opErr("type", err)
	}
	if clearFirst {
		if err := el.SelectAllText(); err == nil {
			_ = el.Input("")
		}
	}
	return opErr("type", el.Input(text))
}

func (p *rodPage) ExecuteScript(ctx context.Context, code string) (string, error) {
	res, err := p.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           fmt.Sprintf("() => { %s }", code),
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return "", opErr("execute", err)
	}
	if res == nil || res.Value.Nil() {
		return "", nil
	}
	return res.Value.String(), nil
}

func (p *rodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	return p.page.Context(ctx).Timeout(p.cfg.ElementTimeout()).Element(selector)
}

func stringifyConsoleArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if !a.Value.Nil() {
			parts = append(parts, a.Value.String())
			continue
		}
		if a.Description != "" {
			parts = append(parts, a.Description)
		}
	}
	return strings.Join(parts, " ")
}
