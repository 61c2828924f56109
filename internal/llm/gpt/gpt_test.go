package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/povarna/generative-ai-agents/chart-agent/internal/llm"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [
    {"index": 0, "message": {"role": "assistant", "content": "{\"title\":\"Sales\"}"}, "finish_reason": "stop"}
  ]
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient("test-key", srv.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClient_MissingKey(t *testing.T) {
	if _, err := NewClient("", ""); err == nil {
		t.Error("Expected error for empty API key")
	}
}

func TestComplete_SendsChatCompletionRequest(t *testing.T) {
	var captured map[string]any

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer header, got %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("Request body is not JSON: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	})

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		Model: "gpt-4o-mini",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "system prompt"},
			{Role: llm.RoleUser, Content: "show sales"},
		},
		Temperature: 0.5,
		MaxTokens:   600,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if resp.Content != `{"title":"Sales"}` {
		t.Errorf("Unexpected content: %s", resp.Content)
	}
	if resp.StopReason != "stop" {
		t.Errorf("Expected stop reason 'stop', got '%s'", resp.StopReason)
	}
	if len(resp.Raw) == 0 {
		t.Error("Expected raw envelope to be kept")
	}

	if captured["model"] != "gpt-4o-mini" {
		t.Errorf("Expected model gpt-4o-mini, got %v", captured["model"])
	}
	if captured["max_tokens"] != float64(600) {
		t.Errorf("Expected max_tokens 600, got %v", captured["max_tokens"])
	}
	if captured["temperature"] != float64(0.5) {
		t.Errorf("Expected temperature 0.5, got %v", captured["temperature"])
	}
	messages, ok := captured["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %v", captured["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "system prompt" {
		t.Errorf("Unexpected first message: %v", first)
	}
}

func TestComplete_RateLimited(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`)
	})

	_, err := client.Complete(context.Background(), llm.CompletionRequest{Model: "gpt-4o-mini"})

	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", statusErr.StatusCode)
	}
	if !strings.Contains(statusErr.Body, "Rate limit reached") {
		t.Errorf("Expected body to carry upstream message, got %s", statusErr.Body)
	}
}

func TestComplete_NonJSONErrorBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "bad gateway")
	})

	_, err := client.Complete(context.Background(), llm.CompletionRequest{Model: "gpt-4o-mini"})

	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", statusErr.StatusCode)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[]}`)
	})

	_, err := client.Complete(context.Background(), llm.CompletionRequest{Model: "gpt-4o-mini"})
	if err == nil {
		t.Fatal("Expected error for empty choices")
	}

	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		t.Error("Empty choices must not be reported as a status error")
	}
}

func TestComplete_ZeroTemperatureIsSent(t *testing.T) {
	var captured map[string]any

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("Request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	})

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Model:       "gpt-4o-mini",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "show sales"}},
		Temperature: 0,
		MaxTokens:   600,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	value, ok := captured["temperature"].(float64)
	if !ok {
		t.Fatalf("Expected temperature in request body, got %v", captured)
	}
	if value <= 0 || value > 1e-30 {
		t.Errorf("Expected near-zero temperature, got %v", value)
	}
}

func TestComplete_RawKeepsUpstreamEnvelope(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"chatcmpl-2","object":"chat.completion","service_tier":"default","x_gateway_trace":"abc123",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":"{}"},"finish_reason":"stop"}]}`)
	})

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if !json.Valid(resp.Raw) {
		t.Fatalf("Expected raw envelope to be valid JSON, got %s", resp.Raw)
	}
	if !strings.Contains(string(resp.Raw), `"x_gateway_trace":"abc123"`) {
		t.Errorf("Expected unknown envelope fields to be kept, got %s", resp.Raw)
	}
}

func TestTemperature(t *testing.T) {
	if got := temperature(0); got <= 0 {
		t.Errorf("Expected positive wire temperature for 0, got %v", got)
	}
	if got := temperature(0.7); got != float32(0.7) {
		t.Errorf("Expected 0.7, got %v", got)
	}
}
