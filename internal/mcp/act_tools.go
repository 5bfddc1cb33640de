package mcp

import (
	"context"
	"fmt"

	"browserwarden-mcp-server/internal/session"
)

// The act tools require an escalated session and a non-empty reason.
// Every call returns an ActionResult: the pre/post page snapshots, what
// changed, and a confidence grade that the action had an effect.

// actionResponse is the common wire shape for action results.
func actionResponse(sessionName string, res *session.ActionResult) map[string]interface{} {
	return map[string]interface{}{
		"session":    sessionName,
		"action":     res.Action,
		"confidence": res.Confidence,
		"observed":   res.Observed,
		"pre":        res.Pre,
		"post":       res.Post,
		"output":     res.Output,
	}
}

type NavigateTool struct {
	registry *session.Registry
}

func (t *NavigateTool) Name() string { return "act-navigate" }
func (t *NavigateTool) Description() string {
	return `Navigate the session's page to a URL and wait for it to load.

REQUIRES an escalated session and a non-empty reason. Bare hostnames get
an https:// prefix.

Confidence in the result is graded from the pre/post snapshot: "high"
when the URL changed, "medium" when only network or console activity was
observed, "low" when nothing observable changed.

Returns: {session, confidence, observed, pre, post, output} where output
is the final URL after redirects.`
}
func (t *NavigateTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Session name",
			},
			"url": map[string]interface{}{
				"type":        "string",
				"description": "URL to navigate to",
			},
			"reason": map[string]interface{}{
				"type":        "string",
				"description": "Why this navigation is needed; recorded in the audit log",
			},
		},
		"required": []string{"name", "url", "reason"},
	}
}
func (t *NavigateTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	s, err := lookupSession(t.registry, args)
	if err != nil {
		return nil, err
	}
	url := getStringArg(args, "url")
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}

	res, err := s.Navigate(ctx, url, getStringArg(args, "reason"))
	if err != nil {
		return nil, err
	}
	return actionResponse(s.Name, res), nil
}

type ClickTool struct {
	registry *session.Registry
}

func (t *ClickTool) Name() string { return "act-click" }
func (t *ClickTool) Description() string {
	return `Click the first element matching a CSS selector.

REQUIRES an escalated session and a non-empty reason.

The confidence grade tells you whether the click visibly did anything:
"high" if the URL changed, "medium" if it triggered network or console
activity, "low" if nothing observable happened (possibly a dead button).

Returns: {session, confidence, observed, pre, post}.`
}
func (t *ClickTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Session name",
			},
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector of the element to click",
			},
			"reason": map[string]interface{}{
				"type":        "string",
				"description": "Why this click is needed; recorded in the audit log",
			},
		},
		"required": []string{"name", "selector", "reason"},
	}
}
func (t *ClickTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	s, err := lookupSession(t.registry, args)
	if err != nil {
		return nil, err
	}
	selector := getStringArg(args, "selector")
	if selector == "" {
		return nil, fmt.Errorf("selector is required")
	}

	res, err := s.Click(ctx, selector, getStringArg(args, "reason"))
	if err != nil {
		return nil, err
	}
	return actionResponse(s.Name, res), nil
}

type TypeTool struct {
	registry *session.Registry
}

func (t *TypeTool) Name() string { return "act-type" }
func (t *TypeTool) Description() string {
	return `Type text into the first element matching a CSS selector.

REQUIRES an escalated session and a non-empty reason. Set clear_first to
replace the element's existing content instead of appending.

Returns: {session, confidence, observed, pre, post}.`
}
func (t *TypeTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Session name",
			},
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector of the input element",
			},
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Text to type",
			},
			"clear_first": map[string]interface{}{
				"type":        "boolean",
				"description": "Clear existing content before typing",
			},
			"reason": map[string]interface{}{
				"type":        "string",
				"description": "Why this input is needed; recorded in the audit log",
			},
		},
		"required": []string{"name", "selector", "text", "reason"},
	}
}
func (t *TypeTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	s, err := lookupSession(t.registry, args)
	if err != nil {
		return nil, err
	}
	selector := getStringArg(args, "selector")
	if selector == "" {
		return nil, fmt.Errorf("selector is required")
	}

	res, err := s.TypeText(ctx, selector, getStringArg(args, "text"), getBoolArg(args, "clear_first", false), getStringArg(args, "reason"))
	if err != nil {
		return nil, err
	}
	return actionResponse(s.Name, res), nil
}

type ExecuteTool struct {
	registry *session.Registry
}

func (t *ExecuteTool) Name() string { return "act-execute" }
func (t *ExecuteTool) Description() string {
	return `Execute JavaScript in the session's page and return its result.

REQUIRES an escalated session and a non-empty reason. The code runs in
the page context; its return value is stringified into output.

Returns: {session, confidence, observed, pre, post, output}.`
}
func (t *ExecuteTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Session name",
			},
			"code": map[string]interface{}{
				"type":        "string",
				"description": "JavaScript to execute in the page",
			},
			"reason": map[string]interface{}{
				"type":        "string",
				"description": "Why this script is needed; recorded in the audit log",
			},
		},
		"required": []string{"name", "code", "reason"},
	}
}
func (t *ExecuteTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	s, err := lookupSession(t.registry, args)
	if err != nil {
		return nil, err
	}
	code := getStringArg(args, "code")
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}

	res, err := s.Execute(ctx, code, getStringArg(args, "reason"))
	if err != nil {
		return nil, err
	}
	return actionResponse(s.Name, res), nil
}
