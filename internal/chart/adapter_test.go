package chart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/povarna/generative-ai-agents/chart-agent/internal/config"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/llm"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/llm/mocks"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func newTestAdapter(t *testing.T, client llm.Client) *Adapter {
	t.Helper()
	adapter, err := NewAdapter(client, config.DefaultPromptsConfig(), 5*time.Second, newTestLogger())
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}
	return adapter
}

func reply(content string) *llm.CompletionResponse {
	return &llm.CompletionResponse{
		Content:    content,
		StopReason: "stop",
		Raw:        json.RawMessage(`{"id":"chatcmpl-1"}`),
	}
}

func TestNewAdapter_RequiresClient(t *testing.T) {
	if _, err := NewAdapter(nil, nil, 0, newTestLogger()); err == nil {
		t.Error("Expected error for nil client")
	}
}

func TestAdapter_Generate_FencedReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockClient(ctrl)
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			if len(req.Messages) != 2 {
				t.Fatalf("Expected 2 messages, got %d", len(req.Messages))
			}
			if req.Messages[0].Role != llm.RoleSystem || req.Messages[0].Content != config.DefaultGeneratePrompt {
				t.Errorf("Unexpected system message: %+v", req.Messages[0])
			}
			if req.Messages[1].Role != llm.RoleUser || req.Messages[1].Content != "show sales" {
				t.Errorf("Unexpected user message: %+v", req.Messages[1])
			}
			if req.Model != config.DefaultModel || req.MaxTokens != config.DefaultMaxTokens || req.Temperature != config.DefaultTemperature {
				t.Errorf("Unexpected model parameters: %+v", req)
			}
			if _, ok := ctx.Deadline(); !ok {
				t.Error("Expected a bounded context")
			}
			return reply("```json\n{\"title\":\"Sales\"}\n```"), nil
		})

	adapter := newTestAdapter(t, client)

	result, err := adapter.Generate(context.Background(), "show sales")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if string(result) != `{"title":"Sales"}` {
		t.Errorf("Expected {\"title\":\"Sales\"}, got %s", result)
	}
}

func TestAdapter_Generate_BlankPrompt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No EXPECT: any call to the client fails the test
	client := mocks.NewMockClient(ctrl)
	adapter := newTestAdapter(t, client)

	for _, prompt := range []string{"", "   ", "\n\t"} {
		_, err := adapter.Generate(context.Background(), prompt)
		if KindOf(err) != KindInvalidInput {
			t.Errorf("Generate(%q): expected InvalidInput, got %v", prompt, err)
		}

		var invalid *InvalidInputError
		if errors.As(err, &invalid) && invalid.Field != "prompt" {
			t.Errorf("Expected field 'prompt', got '%s'", invalid.Field)
		}
	}
}

func TestAdapter_Generate_UpstreamStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockClient(ctrl)
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(nil, &llm.StatusError{StatusCode: http.StatusTooManyRequests, Body: `{"error":"rate limited"}`})

	adapter := newTestAdapter(t, client)

	_, err := adapter.Generate(context.Background(), "show sales")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", upstream.StatusCode)
	}
	if upstream.Body != `{"error":"rate limited"}` {
		t.Errorf("Unexpected body: %s", upstream.Body)
	}
}

func TestAdapter_Generate_NotJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockClient(ctrl)
	client.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(reply("not json"), nil)

	adapter := newTestAdapter(t, client)

	_, err := adapter.Generate(context.Background(), "show sales")

	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedResponseError, got %v", err)
	}
	if malformed.RawContent != "not json" {
		t.Errorf("Expected raw content to be kept, got %q", malformed.RawContent)
	}
}

func TestAdapter_Generate_TrailingProseWithBackticks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockClient(ctrl)
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(reply("```json\n{\"title\":\"Sales\"}\n```\nRender it with ```Highcharts.chart```"), nil)

	adapter := newTestAdapter(t, client)

	result, err := adapter.Generate(context.Background(), "show sales")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if string(result) != `{"title":"Sales"}` {
		t.Errorf("Expected {\"title\":\"Sales\"}, got %s", result)
	}
}

func TestAdapter_Generate_EmptyContentIsEmptyObject(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockClient(ctrl)
	client.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(reply("   "), nil)

	adapter := newTestAdapter(t, client)

	result, err := adapter.Generate(context.Background(), "show sales")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if string(result) != "{}" {
		t.Errorf("Expected {}, got %s", result)
	}
}

func TestAdapter_Generate_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		kind       Kind
		statusCode int
	}{
		{
			name:       "Deadline exceeded",
			err:        &url.Error{Op: "Post", URL: "https://api.openai.com/v1/chat/completions", Err: context.DeadlineExceeded},
			kind:       KindUpstream,
			statusCode: http.StatusGatewayTimeout,
		},
		{
			name:       "Connection refused",
			err:        &url.Error{Op: "Post", URL: "https://api.openai.com/v1/chat/completions", Err: errors.New("connection refused")},
			kind:       KindUpstream,
			statusCode: 0,
		},
		{
			name: "Unexpected failure",
			err:  errors.New("no choices in response"),
			kind: KindUnclassified,
		},
		{
			name: "Caller cancelled",
			err:  context.Canceled,
			kind: KindUnclassified,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			client := mocks.NewMockClient(ctrl)
			client.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(nil, test.err)

			adapter := newTestAdapter(t, client)

			_, err := adapter.Generate(context.Background(), "show sales")
			if KindOf(err) != test.kind {
				t.Fatalf("Expected kind %s, got %s (%v)", test.kind, KindOf(err), err)
			}

			var upstream *UpstreamError
			if errors.As(err, &upstream) && upstream.StatusCode != test.statusCode {
				t.Errorf("Expected status %d, got %d", test.statusCode, upstream.StatusCode)
			}
			if !errors.Is(err, test.err) {
				t.Error("Expected classified error to wrap the cause")
			}
		})
	}
}

func TestAdapter_Generate_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockClient(ctrl)
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	adapter, err := NewAdapter(client, nil, 10*time.Millisecond, newTestLogger())
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}

	_, err = adapter.Generate(context.Background(), "show sales")

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("Expected status 504, got %d", upstream.StatusCode)
	}
}

func TestAdapter_Update_EmbedsCurrentConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	current := json.RawMessage(`{
  "title": {"text": "Sales"},
  "series": [{"data": [1, 2, 3]}]
}`)

	client := mocks.NewMockClient(ctrl)
	client.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			if len(req.Messages) != 2 {
				t.Fatalf("Expected 2 messages, got %d", len(req.Messages))
			}
			system := req.Messages[0]
			if system.Role != llm.RoleSystem {
				t.Errorf("Expected system role first, got %s", system.Role)
			}
			if !strings.Contains(system.Content, `{"title":{"text":"Sales"},"series":[{"data":[1,2,3]}]}`) {
				t.Errorf("System message does not embed the current config: %s", system.Content)
			}
			if !strings.Contains(system.Content, "return ONLY the updated JSON object") {
				t.Errorf("System message lost its instruction: %s", system.Content)
			}
			if req.Messages[1].Role != llm.RoleUser || req.Messages[1].Content != "make it a bar chart" {
				t.Errorf("Unexpected user message: %+v", req.Messages[1])
			}
			return reply("```json\n{\"chart\":{\"type\":\"bar\"}}\n```"), nil
		})

	adapter := newTestAdapter(t, client)

	result, err := adapter.Update(context.Background(), current, "make it a bar chart")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if string(result) != `{"chart":{"type":"bar"}}` {
		t.Errorf("Unexpected result: %s", result)
	}
}

func TestAdapter_Update_InvalidInput(t *testing.T) {
	tests := []struct {
		name        string
		current     json.RawMessage
		instruction string
		field       string
	}{
		{name: "Absent config", current: nil, instruction: "x", field: "currentConfig"},
		{name: "Null config", current: json.RawMessage("null"), instruction: "x", field: "currentConfig"},
		{name: "Broken config", current: json.RawMessage(`{"a":`), instruction: "x", field: "currentConfig"},
		{name: "Blank instruction", current: json.RawMessage(`{}`), instruction: "  ", field: "instruction"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			client := mocks.NewMockClient(ctrl)
			adapter := newTestAdapter(t, client)

			_, err := adapter.Update(context.Background(), test.current, test.instruction)

			var invalid *InvalidInputError
			if !errors.As(err, &invalid) {
				t.Fatalf("Expected InvalidInputError, got %v", err)
			}
			if invalid.Field != test.field {
				t.Errorf("Expected field %s, got %s", test.field, invalid.Field)
			}
		})
	}
}

func TestAdapter_Update_MalformedReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockClient(ctrl)
	client.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(reply("Sure! Here is your chart."), nil)

	adapter := newTestAdapter(t, client)

	_, err := adapter.Update(context.Background(), json.RawMessage(`{"a":1}`), "change it")
	if KindOf(err) != KindMalformedResponse {
		t.Errorf("Expected MalformedResponse, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(nil) != KindNone {
		t.Error("Expected KindNone for nil")
	}
	if KindOf(errors.New("boom")) != KindUnclassified {
		t.Error("Expected KindUnclassified for foreign errors")
	}
	wrapped := errors.Join(errors.New("context"), &UpstreamError{StatusCode: 500})
	if KindOf(wrapped) != KindUpstream {
		t.Error("Expected KindUpstream through wrapping")
	}
}
