package session

import (
	"context"
	"strings"

	"browserwarden-mcp-server/internal/backend"
)

// action is one side-effecting operation fed through perform. invoke runs
// against the page and may return a textual output; details builds the
// audit payload after the outcome is known.
type action struct {
	eventType EventType
	invoke    func(ctx context.Context, p backend.Page) (string, error)
	details   func(confidence Confidence, output string, errMsg string) EventDetails
}

// perform is the single path every action takes: policy checks first,
// then pre-snapshot, invoke, post-snapshot, confidence grading, and the
// audit append. Policy rejections return before anything touches the
// page and append nothing; a backend fault after the policy gate is a
// real attempt and is logged with its error.
func (s *Session) perform(ctx context.Context, act action, reason string) (*ActionResult, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.requireEscalated(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrInvalidReason
	}

	pre := capture(ctx, s.page)
	output, invokeErr := act.invoke(ctx, s.page)
	post := capture(ctx, s.page)
	confidence, observed := Evaluate(pre, post)

	errMsg := ""
	if invokeErr != nil {
		errMsg = invokeErr.Error()
		confidence = ""
	}
	s.log.Append(act.eventType, reason, act.details(confidence, output, errMsg))

	if invokeErr != nil {
		return nil, invokeErr
	}
	return &ActionResult{
		Action:     string(act.eventType),
		Confidence: confidence,
		Observed:   observed,
		Pre:        pre,
		Post:       post,
		Output:     output,
	}, nil
}

// NormalizeURL prepends https:// to bare hostnames so "example.com"
// navigates instead of erroring. Explicit schemes pass through.
func NormalizeURL(url string) string {
	if url == "" || strings.Contains(url, "://") || strings.HasPrefix(url, "about:") {
		return url
	}
	return "https://" + url
}

// Navigate loads a URL in the session's page and waits for the load
// event. Requires escalation.
func (s *Session) Navigate(ctx context.Context, url, reason string) (*ActionResult, error) {
	target := NormalizeURL(url)
	return s.perform(ctx, action{
		eventType: EventNavigate,
		invoke: func(ctx context.Context, p backend.Page) (string, error) {
			info, err := p.Navigate(ctx, target)
			if err != nil {
				return "", err
			}
			return info.URL, nil
		},
		details: func(confidence Confidence, output, errMsg string) EventDetails {
			return NavigateDetails{
				URL:        target,
				FinalURL:   output,
				Confidence: confidence,
				Error:      errMsg,
			}
		},
	}, reason)
}

// Click clicks the first element matching the selector. Requires
// escalation.
func (s *Session) Click(ctx context.Context, selector, reason string) (*ActionResult, error) {
	return s.perform(ctx, action{
		eventType: EventClick,
		invoke: func(ctx context.Context, p backend.Page) (string, error) {
			return "", p.Click(ctx, selector)
		},
		details: func(confidence Confidence, output, errMsg string) EventDetails {
			return ClickDetails{
				Selector:   selector,
				Confidence: confidence,
				Error:      errMsg,
			}
		},
	}, reason)
}

// TypeText types into the first element matching the selector, optionally
// clearing existing content first. Requires escalation.
func (s *Session) TypeText(ctx context.Context, selector, text string, clearFirst bool, reason string) (*ActionResult, error) {
	return s.perform(ctx, action{
		eventType: EventTypeText,
		invoke: func(ctx context.Context, p backend.Page) (string, error) {
			return "", p.TypeText(ctx, selector, text, clearFirst)
		},
		details: func(confidence Confidence, output, errMsg string) EventDetails {
			return TypeDetails{
				Selector:   selector,
				TextLength: len(text),
				ClearFirst: clearFirst,
				Confidence: confidence,
				Error:      errMsg,
			}
		},
	}, reason)
}

// Execute evaluates JavaScript in the page and returns its stringified
// result. Requires escalation.
func (s *Session) Execute(ctx context.Context, code, reason string) (*ActionResult, error) {
	return s.perform(ctx, action{
		eventType: EventExecute,
		invoke: func(ctx context.Context, p backend.Page) (string, error) {
			return p.ExecuteScript(ctx, code)
		},
		details: func(confidence Confidence, output, errMsg string) EventDetails {
			return ExecuteDetails{
				ScriptLength: len(code),
				Confidence:   confidence,
				Error:        errMsg,
			}
		},
	}, reason)
}
