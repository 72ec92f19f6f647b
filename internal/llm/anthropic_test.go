package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// messagesServer answers every Messages call with status, optional headers
// and body, and records the last decoded request.
func messagesServer(t *testing.T, status int, header map[string]string, body any) (*AnthropicProvider, *map[string]any) {
	t.Helper()
	var last map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &last)
		for k, v := range header {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key", Model: "claude-haiku", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewAnthropicProvider: %v", err)
	}
	return p, &last
}

func message(stop string, texts ...string) map[string]any {
	blocks := make([]map[string]any, 0, len(texts))
	for _, text := range texts {
		blocks = append(blocks, map[string]any{"type": "text", "text": text})
	}
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-haiku-4-5-20251001",
		"content":     blocks,
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 52, "output_tokens": 18},
	}
}

func anthropicError(kind, msg string) map[string]any {
	return map[string]any{"type": "error", "error": map[string]any{"type": kind, "message": msg}}
}

func TestAnthropicProvider_JoinsTextBlocks(t *testing.T) {
	p, sent := messagesServer(t, http.StatusOK, nil,
		message("end_turn", `{"recommendation":"Place both fractions`, ` on one number line.","priority":1}`))

	req := noteRequest()
	req.Messages = append(req.Messages,
		Message{Role: RoleAssistant, Content: "Which misconception dominates?"},
		Message{Role: RoleUser, Content: "mc-bigger-denominator"})
	resp, err := p.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(resp.Content) != `{"recommendation":"Place both fractions on one number line.","priority":1}` {
		t.Errorf("content = %s", resp.Content)
	}
	if resp.Usage != (Usage{InputTokens: 52, OutputTokens: 18, TotalTokens: 70}) {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Model != "claude-haiku-4-5-20251001" || resp.StopReason != "end" {
		t.Errorf("model/stop = %q/%q", resp.Model, resp.StopReason)
	}

	body := *sent
	if body["model"] != "claude-haiku-4-5-20251001" {
		t.Errorf("model sent = %v, want resolved ID", body["model"])
	}
	if body["max_tokens"] != float64(DefaultMaxTokens) {
		t.Errorf("max_tokens = %v, want %d", body["max_tokens"], DefaultMaxTokens)
	}
	msgs, _ := body["messages"].([]any)
	roles := make([]any, 0, len(msgs))
	for _, m := range msgs {
		roles = append(roles, m.(map[string]any)["role"])
	}
	if len(roles) != 3 || roles[0] != "user" || roles[1] != "assistant" || roles[2] != "user" {
		t.Errorf("roles = %v", roles)
	}
	if _, ok := body["system"]; !ok {
		t.Error("system prompt not sent")
	}
}

func TestAnthropicProvider_ReplyErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply map[string]any
		check func(error) bool
	}{
		{"truncated", message("max_tokens", `{"recommendation":"Reteach`), func(err error) bool {
			var e *ErrMaxTokensExceeded
			return errors.As(err, &e) && string(e.Content) == `{"recommendation":"Reteach`
		}},
		{"refusal", message("refusal"), func(err error) bool {
			var e *ErrInvalidResponse
			return errors.As(err, &e)
		}},
		{"no text", message("end_turn"), func(err error) bool {
			var e *ErrInvalidResponse
			return errors.As(err, &e) && len(e.Content) == 0
		}},
		{"schema violation", message("end_turn", `{"recommendation":"","priority":0}`), func(err error) bool {
			var e *ErrInvalidResponse
			return errors.As(err, &e) && len(e.Content) > 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := messagesServer(t, http.StatusOK, nil, tt.reply)
			_, err := p.Generate(context.Background(), noteRequest())
			if err == nil || !tt.check(err) {
				t.Errorf("got %T (%v)", err, err)
			}
		})
	}
}

func TestAnthropicProvider_HTTPErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		check  func(error) bool
	}{
		{"bad key", http.StatusUnauthorized, nil, func(err error) bool {
			var e *ErrAuth
			return errors.As(err, &e) && e.Status == http.StatusUnauthorized
		}},
		{"no access", http.StatusForbidden, nil, func(err error) bool {
			var e *ErrAuth
			return errors.As(err, &e) && e.Status == http.StatusForbidden
		}},
		{"rate limited", http.StatusTooManyRequests, map[string]string{"Retry-After": "4"}, func(err error) bool {
			var e *ErrRateLimit
			return errors.As(err, &e) && e.RetryAfter == 4*time.Second
		}},
		{"rate limited without hint", http.StatusTooManyRequests, nil, func(err error) bool {
			var e *ErrRateLimit
			return errors.As(err, &e) && e.RetryAfter == 0
		}},
		{"overloaded", 529, nil, func(err error) bool {
			var e *ErrProviderUnavailable
			return errors.As(err, &e)
		}},
		{"server error", http.StatusInternalServerError, nil, func(err error) bool {
			var e *ErrProviderUnavailable
			return errors.As(err, &e)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := messagesServer(t, tt.status, tt.header, anthropicError("api_error", tt.name))
			_, err := p.Generate(context.Background(), noteRequest())
			if err == nil || !tt.check(err) {
				t.Errorf("status %d: got %T (%v)", tt.status, err, err)
			}
		})
	}
}

func TestAnthropicProvider_OverloadedFallsBack(t *testing.T) {
	primary, _ := messagesServer(t, 529, nil, anthropicError("overloaded_error", "Overloaded"))
	secondary := NewMockProvider(MockResponse{Content: json.RawMessage(`{"recommendation":"Use fraction strips.","priority":2}`)})

	resp, err := WithFallback(primary, secondary, zaptest.NewLogger(t)).Generate(context.Background(), noteRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if secondary.CallCount() != 1 {
		t.Errorf("secondary calls = %d, want 1", secondary.CallCount())
	}
	if resp.Model != secondary.ModelID() {
		t.Errorf("model = %q, want fallback model %q", resp.Model, secondary.ModelID())
	}
}

func TestNewAnthropicProvider(t *testing.T) {
	if _, err := NewAnthropicProvider(AnthropicConfig{Model: "claude-haiku"}); err == nil {
		t.Error("expected error for empty API key")
	}
	tests := []struct{ model, want string }{
		{"claude-sonnet", "claude-sonnet-4-20250514"},
		{"claude-haiku", "claude-haiku-4-5-20251001"},
		{"claude-opus-4-1", "claude-opus-4-1"},
	}
	for _, tt := range tests {
		p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "test-key", Model: tt.model})
		if err != nil {
			t.Fatalf("NewAnthropicProvider(%q): %v", tt.model, err)
		}
		if p.ModelID() != tt.want {
			t.Errorf("ModelID(%q) = %q, want %q", tt.model, p.ModelID(), tt.want)
		}
	}
}
