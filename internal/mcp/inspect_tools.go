package mcp

import (
	"context"
	"encoding/base64"
	"fmt"

	"browserwarden-mcp-server/internal/session"
)

// The inspect tools work on sessions in any live state, locked included.
// They read the page without changing it; each read is recorded in the
// session's audit log.

type ScreenshotTool struct {
	registry *session.Registry
}

func (t *ScreenshotTool) Name() string { return "inspect-screenshot" }
func (t *ScreenshotTool) Description() string {
	return `Capture a PNG screenshot of the session's page.

Works on locked sessions. Set full_page to capture beyond the viewport.

Returns: {session, full_page, data} where data is a base64 PNG data URI.`
}
func (t *ScreenshotTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Session name",
			},
			"full_page": map[string]interface{}{
				"type":        "boolean",
				"description": "Capture the full scrollable page instead of the viewport",
			},
		},
		"required": []string{"name"},
	}
}
func (t *ScreenshotTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	s, err := lookupSession(t.registry, args)
	if err != nil {
		return nil, err
	}
	fullPage := getBoolArg(args, "full_page", false)

	img, err := s.Screenshot(ctx, fullPage)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"session":   s.Name,
		"full_page": fullPage,
		"data":      "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
	}, nil
}

type DOMTool struct {
	registry *session.Registry
}

func (t *DOMTool) Name() string { return "inspect-dom" }
func (t *DOMTool) Description() string {
	return `Read the page HTML, optionally scoped to a CSS selector.

Works on locked sessions. Documents over 100KB are truncated; the
response says so and reports the original length.

Returns: {session, html, truncated, original_length}.`
}
func (t *DOMTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Session name",
			},
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "Optional CSS selector to scope the read",
			},
		},
		"required": []string{"name"},
	}
}
func (t *DOMTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	s, err := lookupSession(t.registry, args)
	if err != nil {
		return nil, err
	}

	snap, err := s.DOM(ctx, getStringArg(args, "selector"))
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{
		"session":   s.Name,
		"html":      snap.HTML,
		"truncated": snap.Truncated,
	}
	if snap.Truncated {
		out["original_length"] = snap.OriginalLength
	}
	return out, nil
}

type TextTool struct {
	registry *session.Registry
}

func (t *TextTool) Name() string { return "inspect-text" }
func (t *TextTool) Description() string {
	return `Read the visible text of the page, optionally scoped to a CSS selector.

Works on locked sessions. Cheaper than inspect-dom when markup is not
needed.

Returns: {session, text}.`
}
func (t *TextTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Session name",
			},
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "Optional CSS selector to scope the read",
			},
		},
		"required": []string{"name"},
	}
}
func (t *TextTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	s, err := lookupSession(t.registry, args)
	if err != nil {
		return nil, err
	}

	text, err := s.Text(ctx, getStringArg(args, "selector"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"session": s.Name,
		"text":    text,
	}, nil
}

type ConsoleTool struct {
	registry *session.Registry
}

func (t *ConsoleTool) Name() string { return "inspect-console" }
func (t *ConsoleTool) Description() string {
	return `Read the console messages captured since the session's page opened.

Works on locked sessions. Messages carry any correlation ids found in
their text (request ids, trace ids) so browser errors can be matched to
server-side logs.

Returns: {session, count, messages}.`
}
func (t *ConsoleTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Session name",
			},
		},
		"required": []string{"name"},
	}
}
func (t *ConsoleTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	s, err := lookupSession(t.registry, args)
	if err != nil {
		return nil, err
	}

	messages, err := s.Console(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"session":  s.Name,
		"count":    len(messages),
		"messages": messages,
	}, nil
}

type NetworkTool struct {
	registry *session.Registry
}

func (t *NetworkTool) Name() string { return "inspect-network" }
func (t *NetworkTool) Description() string {
	return `Read the network requests captured since the session's page opened.

Works on locked sessions. Entries carry method, URL, response status
once received, and any correlation ids found in request headers.

Returns: {session, count, requests}.`
}
func (t *NetworkTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Session name",
			},
		},
		"required": []string{"name"},
	}
}
func (t *NetworkTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	s, err := lookupSession(t.registry, args)
	if err != nil {
		return nil, err
	}

	requests, err := s.Network(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"session":  s.Name,
		"count":    len(requests),
		"requests": requests,
	}, nil
}

type EventsTool struct {
	registry *session.Registry
}

func (t *EventsTool) Name() string { return "inspect-events" }
func (t *EventsTool) Description() string {
	return `Read a session's audit log: every accepted operation in order.

Works on locked sessions, and is the only tool that also works on
destroyed sessions, whose logs are sealed but kept for review.

Returns: {session, count, events}.`
}
func (t *EventsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Session name",
			},
		},
		"required": []string{"name"},
	}
}
func (t *EventsTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	events, err := t.registry.Events(ctx, name)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"session": name,
		"count":   len(events),
		"events":  events,
	}, nil
}

type PageStateTool struct {
	registry *session.Registry
}

func (t *PageStateTool) Name() string { return "inspect-page-state" }
func (t *PageStateTool) Description() string {
	return `Read the current URL and title of the session's page.

Works on locked sessions. Use before and after actions to orient.

Returns: {session, url, title}.`
}
func (t *PageStateTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Session name",
			},
		},
		"required": []string{"name"},
	}
}
func (t *PageStateTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	s, err := lookupSession(t.registry, args)
	if err != nil {
		return nil, err
	}

	info, err := s.PageState(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"session": s.Name,
		"url":     info.URL,
		"title":   info.Title,
	}, nil
}

// lookupSession resolves the "name" argument to a live session.
func lookupSession(registry *session.Registry, args map[string]interface{}) (*session.Session, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	return registry.Get(name)
}
