package mcp

import (
	"context"
	"testing"

	"browserwarden-mcp-server/internal/backend"
	"browserwarden-mcp-server/internal/config"
	"browserwarden-mcp-server/internal/session"
)

func testRegistry(t *testing.T) *session.Registry {
	t.Helper()
	return session.NewRegistry(backend.NewFake())
}

func TestToolNamesAndSchemas(t *testing.T) {
	registry := testRegistry(t)
	cfg := config.DefaultConfig()

	tools := map[string]Tool{
		"session-create":     &CreateSessionTool{registry: registry, cfg: cfg},
		"session-list":       &ListSessionsTool{registry: registry},
		"session-destroy":    &DestroySessionTool{registry: registry},
		"session-escalate":   &EscalateSessionTool{registry: registry},
		"inspect-screenshot": &ScreenshotTool{registry: registry},
		"inspect-dom":        &DOMTool{registry: registry},
		"inspect-text":       &TextTool{registry: registry},
		"inspect-console":    &ConsoleTool{registry: registry},
		"inspect-network":    &NetworkTool{registry: registry},
		"inspect-events":     &EventsTool{registry: registry},
		"inspect-page-state": &PageStateTool{registry: registry},
		"act-navigate":       &NavigateTool{registry: registry},
		"act-click":          &ClickTool{registry: registry},
		"act-type":           &TypeTool{registry: registry},
		"act-execute":        &ExecuteTool{registry: registry},
	}

	for want, tool := range tools {
		t.Run(want, func(t *testing.T) {
			if name := tool.Name(); name != want {
				t.Errorf("expected name %q, got %q", want, name)
			}
			if desc := tool.Description(); len(desc) < 20 {
				t.Errorf("description too short: %q", desc)
			}
			schema := tool.InputSchema()
			if schema == nil {
				t.Fatal("expected non-nil schema")
			}
			if schema["type"] != "object" {
				t.Errorf("expected type 'object', got %v", schema["type"])
			}
		})
	}
}

func TestActToolsRequireReasonInSchema(t *testing.T) {
	registry := testRegistry(t)
	tools := []Tool{
		&NavigateTool{registry: registry},
		&ClickTool{registry: registry},
		&TypeTool{registry: registry},
		&ExecuteTool{registry: registry},
	}

	for _, tool := range tools {
		t.Run(tool.Name(), func(t *testing.T) {
			schema := tool.InputSchema()
			required, ok := schema["required"].([]string)
			if !ok {
				t.Fatal("expected required fields in schema")
			}
			found := false
			for _, r := range required {
				if r == "reason" {
					found = true
					break
				}
			}
			if !found {
				t.Error("expected reason in required fields")
			}
		})
	}
}

func TestToolValidation(t *testing.T) {
	registry := testRegistry(t)
	cfg := config.DefaultConfig()
	ctx := context.Background()

	t.Run("session-create requires name", func(t *testing.T) {
		tool := &CreateSessionTool{registry: registry, cfg: cfg}
		if _, err := tool.Execute(ctx, map[string]interface{}{}); err == nil {
			t.Error("expected error for missing name")
		}
	})

	t.Run("session-destroy requires name", func(t *testing.T) {
		tool := &DestroySessionTool{registry: registry}
		if _, err := tool.Execute(ctx, map[string]interface{}{}); err == nil {
			t.Error("expected error for missing name")
		}
	})

	t.Run("act-navigate requires url", func(t *testing.T) {
		create := &CreateSessionTool{registry: registry, cfg: cfg}
		if _, err := create.Execute(ctx, map[string]interface{}{"name": "nav-validate"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		tool := &NavigateTool{registry: registry}
		if _, err := tool.Execute(ctx, map[string]interface{}{"name": "nav-validate"}); err == nil {
			t.Error("expected error for missing url")
		}
	})

	t.Run("act-click requires selector", func(t *testing.T) {
		create := &CreateSessionTool{registry: registry, cfg: cfg}
		if _, err := create.Execute(ctx, map[string]interface{}{"name": "click-validate"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		tool := &ClickTool{registry: registry}
		if _, err := tool.Execute(ctx, map[string]interface{}{"name": "click-validate"}); err == nil {
			t.Error("expected error for missing selector")
		}
	})

	t.Run("unknown session is an error", func(t *testing.T) {
		tool := &ScreenshotTool{registry: registry}
		if _, err := tool.Execute(ctx, map[string]interface{}{"name": "ghost"}); err == nil {
			t.Error("expected error for unknown session")
		}
	})
}

// TestEscalationWorkflow walks the intended end-to-end path through the
// tool layer: create locked, observe, escalate with a reason, act, and
// review the audit log.
func TestEscalationWorkflow(t *testing.T) {
	registry := testRegistry(t)
	cfg := config.DefaultConfig()
	server := &Server{cfg: cfg, registry: registry, tools: make(map[string]Tool)}
	server.registerAllToolsForTest()
	ctx := context.Background()

	exec := func(name string, args map[string]interface{}) (map[string]interface{}, error) {
		t.Helper()
		res, err := server.tools[name].Execute(ctx, args)
		if err != nil {
			return nil, err
		}
		return res.(map[string]interface{}), nil
	}

	if _, err := exec("session-create", map[string]interface{}{"name": "investigate"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Observation works while locked.
	if _, err := exec("inspect-page-state", map[string]interface{}{"name": "investigate"}); err != nil {
		t.Fatalf("page state on locked session: %v", err)
	}

	// Actions are rejected while locked.
	if _, err := exec("act-navigate", map[string]interface{}{
		"name": "investigate", "url": "https://example.com/", "reason": "look around",
	}); err == nil {
		t.Fatal("expected navigate rejection on locked session")
	}

	out, err := exec("session-escalate", map[string]interface{}{
		"name": "investigate", "reason": "need to reproduce the bug",
	})
	if err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if out["warning"] != escalationWarning {
		t.Errorf("expected escalation warning, got %v", out["warning"])
	}

	out, err = exec("act-navigate", map[string]interface{}{
		"name": "investigate", "url": "https://example.com/", "reason": "reproduce the bug",
	})
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if out["confidence"] != session.ConfidenceHigh {
		t.Errorf("expected high confidence, got %v", out["confidence"])
	}
	if out["action"] != "navigate" {
		t.Errorf("expected action name in response, got %v", out["action"])
	}

	out, err = exec("inspect-events", map[string]interface{}{"name": "investigate"})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	events := out["events"].([]session.Event)
	// created, state_read, escalated, navigate; rejected navigate absent
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[2].Type != session.EventSessionEscalated {
		t.Errorf("expected escalation third, got %q", events[2].Type)
	}
	if events[3].Type != session.EventNavigate {
		t.Errorf("expected navigate last, got %q", events[3].Type)
	}

	if _, err := exec("session-destroy", map[string]interface{}{"name": "investigate"}); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := exec("session-destroy", map[string]interface{}{"name": "investigate"}); err == nil {
		t.Fatal("expected second destroy to fail")
	}
	out, err = exec("inspect-events", map[string]interface{}{"name": "investigate"})
	if err != nil {
		t.Fatalf("events after destroy: %v", err)
	}
	if out["count"].(int) != 6 {
		t.Errorf("expected 6 events after destroy (including events_read and destroy), got %v", out["count"])
	}
}

// registerAllToolsForTest populates the tool map without an MCP runtime.
func (s *Server) registerAllToolsForTest() {
	for _, tool := range []Tool{
		&CreateSessionTool{registry: s.registry, cfg: s.cfg},
		&ListSessionsTool{registry: s.registry},
		&DestroySessionTool{registry: s.registry},
		&EscalateSessionTool{registry: s.registry},
		&ScreenshotTool{registry: s.registry},
		&DOMTool{registry: s.registry},
		&TextTool{registry: s.registry},
		&ConsoleTool{registry: s.registry},
		&NetworkTool{registry: s.registry},
		&EventsTool{registry: s.registry},
		&PageStateTool{registry: s.registry},
		&NavigateTool{registry: s.registry},
		&ClickTool{registry: s.registry},
		&TypeTool{registry: s.registry},
		&ExecuteTool{registry: s.registry},
	} {
		s.tools[tool.Name()] = tool
	}
}

func TestMarshalToolPayload(t *testing.T) {
	t.Run("serializable payload", func(t *testing.T) {
		out := marshalToolPayload("session-list", map[string]interface{}{"sessions": []string{}})
		if string(out) != `{"sessions":[]}` {
			t.Errorf("unexpected payload: %s", out)
		}
	})

	t.Run("non-serializable payload falls back to error", func(t *testing.T) {
		out := marshalToolPayload("session-list", map[string]interface{}{"bad": make(chan int)})
		if len(out) == 0 {
			t.Fatal("expected fallback payload")
		}
		if string(out[0]) != "{" {
			t.Errorf("expected JSON object fallback, got %s", out)
		}
	})
}

func TestGetArgHelpers(t *testing.T) {
	args := map[string]interface{}{
		"s": "text",
		"n": float64(7),
		"b": true,
	}
	if got := getStringArg(args, "s"); got != "text" {
		t.Errorf("getStringArg = %q", got)
	}
	if got := getStringArg(args, "missing"); got != "" {
		t.Errorf("getStringArg missing = %q", got)
	}
	if got := getIntArg(args, "n", 0); got != 7 {
		t.Errorf("getIntArg = %d", got)
	}
	if got := getIntArg(args, "missing", 42); got != 42 {
		t.Errorf("getIntArg fallback = %d", got)
	}
	if got := getBoolArg(args, "b", false); !got {
		t.Error("getBoolArg = false")
	}
	if got := getBoolArg(args, "missing", true); !got {
		t.Error("getBoolArg fallback = false")
	}
}
