package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"
)

// geminiServer answers every generateContent call with status and body and
// records the last decoded request.
func geminiServer(t *testing.T, status int, body any) (*GeminiProvider, *map[string]any) {
	t.Helper()
	var last map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &last)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)

	p, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "test-key", Model: "gemini-flash", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewGeminiProvider: %v", err)
	}
	return p, &last
}

func candidate(text, finish string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
			"finishReason": finish,
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 33, "candidatesTokenCount": 21, "totalTokenCount": 54},
	}
}

func TestGeminiProvider_SchemaRequest(t *testing.T) {
	p, sent := geminiServer(t, http.StatusOK,
		candidate(`{"recommendation":"Shade equal wholes before comparing.","priority":1}`, "STOP"))

	resp, err := p.Generate(context.Background(), noteRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Usage != (Usage{InputTokens: 33, OutputTokens: 21, TotalTokens: 54}) {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Model != "gemini-2.0-flash" || resp.StopReason != "end" {
		t.Errorf("model/stop = %q/%q", resp.Model, resp.StopReason)
	}

	body := *sent
	gen, _ := body["generationConfig"].(map[string]any)
	if gen["responseMimeType"] != "application/json" {
		t.Errorf("responseMimeType = %v", gen["responseMimeType"])
	}
	if gen["maxOutputTokens"] != float64(DefaultMaxTokens) {
		t.Errorf("maxOutputTokens = %v, want %d", gen["maxOutputTokens"], DefaultMaxTokens)
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Error("system instruction not sent")
	}
}

func TestGeminiProvider_ReplyErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply map[string]any
		check func(error) bool
	}{
		{"truncated", candidate(`{"recommendation":"Shade`, "MAX_TOKENS"), func(err error) bool {
			var e *ErrMaxTokensExceeded
			return errors.As(err, &e) && string(e.Content) == `{"recommendation":"Shade`
		}},
		{"safety", candidate("", "SAFETY"), func(err error) bool {
			var e *ErrInvalidResponse
			return errors.As(err, &e)
		}},
		{"prompt blocked", map[string]any{"promptFeedback": map[string]any{"blockReason": "SAFETY"}}, func(err error) bool {
			var e *ErrInvalidResponse
			return errors.As(err, &e)
		}},
		{"schema violation", candidate(`{"recommendation":"Reteach","tone":"loud"}`, "STOP"), func(err error) bool {
			var e *ErrInvalidResponse
			return errors.As(err, &e) && len(e.Content) > 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := geminiServer(t, http.StatusOK, tt.reply)
			_, err := p.Generate(context.Background(), noteRequest())
			if err == nil || !tt.check(err) {
				t.Errorf("got %T (%v)", err, err)
			}
		})
	}
}

func TestGeminiProvider_HTTPErrors(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusForbidden, func(err error) bool {
			var e *ErrAuth
			return errors.As(err, &e) && e.Status == http.StatusForbidden
		}},
		{http.StatusTooManyRequests, func(err error) bool {
			var e *ErrRateLimit
			return errors.As(err, &e)
		}},
		{http.StatusServiceUnavailable, func(err error) bool {
			var e *ErrProviderUnavailable
			return errors.As(err, &e)
		}},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p, _ := geminiServer(t, tt.status, map[string]any{
				"error": map[string]any{"code": tt.status, "message": http.StatusText(tt.status)},
			})
			_, err := p.Generate(context.Background(), noteRequest())
			if err == nil || !tt.check(err) {
				t.Errorf("status %d: got %T (%v)", tt.status, err, err)
			}
		})
	}
}

func TestGeminiProvider_BlockedFallsBack(t *testing.T) {
	primary, _ := geminiServer(t, http.StatusOK, candidate("", "RECITATION"))
	secondary := NewMockProvider(MockResponse{Content: json.RawMessage(`{"recommendation":"Use fraction strips.","priority":2}`)})

	if _, err := WithFallback(primary, secondary, zaptest.NewLogger(t)).Generate(context.Background(), noteRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if secondary.CallCount() != 1 {
		t.Errorf("secondary calls = %d, want 1", secondary.CallCount())
	}
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type":        "object",
		"description": "remediation note",
		"properties": map[string]any{
			"recommendation": map[string]any{"type": "string"},
			"priority":       map[string]any{"type": "integer"},
			"tone":           map[string]any{"type": "string", "enum": []any{"brief", "detailed"}},
			"topics":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"weight":         map[string]any{"type": "null"},
		},
		"required": []any{"recommendation", "priority"},
	})

	if s.Type != genai.TypeObject || s.Description != "remediation note" {
		t.Fatalf("root = %s %q", s.Type, s.Description)
	}
	want := map[string]genai.Type{
		"recommendation": genai.TypeString,
		"priority":       genai.TypeInteger,
		"tone":           genai.TypeString,
		"topics":         genai.TypeArray,
		"weight":         genai.TypeString,
	}
	for name, typ := range want {
		if got := s.Properties[name]; got == nil || got.Type != typ {
			t.Errorf("property %s = %v, want %s", name, got, typ)
		}
	}
	if got := s.Properties["tone"].Enum; len(got) != 2 || got[1] != "detailed" {
		t.Errorf("tone enum = %v", got)
	}
	if s.Properties["topics"].Items.Type != genai.TypeString {
		t.Errorf("topics items = %s", s.Properties["topics"].Items.Type)
	}
	if len(s.Required) != 2 {
		t.Errorf("required = %v", s.Required)
	}
}

func TestMapGeminiError(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", genai.APIError{Code: http.StatusUnauthorized, Message: "API key not valid"})
	var auth *ErrAuth
	if err := mapGeminiError(wrapped); !errors.As(err, &auth) {
		t.Fatalf("401 = %v, want ErrAuth", err)
	}
	var unavail *ErrProviderUnavailable
	if err := mapGeminiError(errors.New("dial tcp: refused")); !errors.As(err, &unavail) {
		t.Fatalf("network error = %v, want ErrProviderUnavailable", err)
	}
}

func TestNewGeminiProvider(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), GeminiConfig{Model: "gemini-flash"}); err == nil {
		t.Error("expected error for empty API key")
	}
	p, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "test-key", Model: "gemini-pro"})
	if err != nil {
		t.Fatalf("NewGeminiProvider: %v", err)
	}
	if p.ModelID() != "gemini-2.0-pro" {
		t.Errorf("ModelID = %q", p.ModelID())
	}
}
