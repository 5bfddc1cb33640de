package mcp

import (
	"context"
	"fmt"

	"browserwarden-mcp-server/internal/backend"
	"browserwarden-mcp-server/internal/config"
	"browserwarden-mcp-server/internal/session"
)

// escalationWarning is returned with every successful escalation so the
// caller is reminded the session just crossed a privilege boundary.
const escalationWarning = "Session now allows actions. Actions will be logged and may have side effects."

type CreateSessionTool struct {
	registry *session.Registry
	cfg      config.Config
}

func (t *CreateSessionTool) Name() string { return "session-create" }
func (t *CreateSessionTool) Description() string {
	return `Create a new named browser session in the locked state.

A locked session can only observe (screenshot, DOM, text, console,
network, events, page state). To perform actions (navigate, click, type,
execute) you must first escalate it with session-escalate and give a
reason.

Each session owns an isolated incognito page: no cookies or storage are
shared between sessions.

WHEN TO USE:
- Starting any browser work; everything else needs a session name
- Isolating parallel investigations from each other

Returns: {session: {name, state, created_at}}.`
}
func (t *CreateSessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Unique name for the session",
			},
			"viewport_width": map[string]interface{}{
				"type":        "integer",
				"description": "Viewport width in pixels (default from config)",
			},
			"viewport_height": map[string]interface{}{
				"type":        "integer",
				"description": "Viewport height in pixels (default from config)",
			},
		},
		"required": []string{"name"},
	}
}
func (t *CreateSessionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	opts := backend.PageOptions{
		ViewportWidth:  getIntArg(args, "viewport_width", t.cfg.Browser.GetViewportWidth()),
		ViewportHeight: getIntArg(args, "viewport_height", t.cfg.Browser.GetViewportHeight()),
	}

	s, err := t.registry.Create(ctx, name, opts)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"session": map[string]interface{}{
			"name":       s.Name,
			"state":      s.State(),
			"created_at": s.CreatedAt,
		},
	}, nil
}

type ListSessionsTool struct {
	registry *session.Registry
}

func (t *ListSessionsTool) Name() string { return "session-list" }
func (t *ListSessionsTool) Description() string {
	return `List all live browser sessions.

USE THIS FIRST to discover existing sessions before creating new ones.
Destroyed sessions are not listed; their audit logs remain readable
through inspect-events.

Returns: Array of {name, state, created_at, escalation_reason, event_count}.`
}
func (t *ListSessionsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *ListSessionsTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{"sessions": t.registry.List()}, nil
}

type DestroySessionTool struct {
	registry *session.Registry
}

func (t *DestroySessionTool) Name() string { return "session-destroy" }
func (t *DestroySessionTool) Description() string {
	return `Permanently destroy a session and close its page.

Destruction is final: the session cannot be revived, and a destroyed
name behaves like an unknown one for every tool except inspect-events.
The audit log survives and stays readable through inspect-events. The
name becomes available for reuse.

Returns: {destroyed: name}.`
}
func (t *DestroySessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the session to destroy",
			},
		},
		"required": []string{"name"},
	}
}
func (t *DestroySessionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if err := t.registry.Destroy(ctx, name); err != nil {
		return nil, err
	}
	return map[string]interface{}{"destroyed": name}, nil
}

type EscalateSessionTool struct {
	registry *session.Registry
}

func (t *EscalateSessionTool) Name() string { return "session-escalate" }
func (t *EscalateSessionTool) Description() string {
	return `Escalate a locked session so it can perform actions.

Escalation is one-way: there is no way back to locked short of
destroying the session. A non-empty reason is required and is recorded
verbatim in the audit log. Escalating an already escalated session is an
error.

WHEN TO USE:
- Right before the first navigate/click/type/execute on a session
- Never preemptively; keep sessions locked while only observing

Returns: {session, state, warning}.`
}
func (t *EscalateSessionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the session to escalate",
			},
			"reason": map[string]interface{}{
				"type":        "string",
				"description": "Why this session needs to perform actions",
			},
		},
		"required": []string{"name", "reason"},
	}
}
func (t *EscalateSessionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	name := getStringArg(args, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	s, err := t.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if err := s.Escalate(getStringArg(args, "reason")); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"session": name,
		"state":   s.State(),
		"warning": escalationWarning,
	}, nil
}
