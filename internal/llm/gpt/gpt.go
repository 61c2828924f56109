package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/povarna/generative-ai-agents/chart-agent/internal/llm"
	openai "github.com/sashabaranov/go-openai"
)

func (c *Client) Complete(ctx context.Context, request llm.CompletionRequest) (*llm.CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(request.Messages))
	for _, m := range request.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	var rawBody bytes.Buffer
	output, err := c.Client.CreateChatCompletion(withRawBody(ctx, &rawBody), openai.ChatCompletionRequest{
		Model:       request.Model,
		Messages:    messages,
		Temperature: temperature(request.Temperature),
		MaxTokens:   request.MaxTokens,
	})
	if err != nil {
		if statusErr := toStatusError(err); statusErr != nil {
			return nil, statusErr
		}
		return nil, fmt.Errorf("unable to invoke gpt model. Error: %w", err)
	}

	if len(output.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := output.Choices[0]
	return &llm.CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Raw:        rawEnvelope(rawBody.Bytes(), output),
	}, nil
}

// temperature converts to the wire type. go-openai omits a zero temperature,
// which the API reads as its default of 1, so zero is sent as the smallest
// positive float32 instead.
func temperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// rawEnvelope prefers the bytes received on the wire and falls back to
// re-encoding the decoded response.
func rawEnvelope(body []byte, output openai.ChatCompletionResponse) json.RawMessage {
	body = bytes.TrimSpace(body)
	if json.Valid(body) {
		return json.RawMessage(body)
	}

	raw, err := json.Marshal(output)
	if err != nil {
		return nil
	}
	return raw
}

// toStatusError converts go-openai HTTP failures into llm.StatusError.
// Transport failures (no HTTP response) return nil.
func toStatusError(err error) *llm.StatusError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		body, mErr := json.Marshal(apiErr)
		if mErr != nil {
			body = []byte(apiErr.Message)
		}
		return &llm.StatusError{StatusCode: apiErr.HTTPStatusCode, Body: string(body)}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := reqErr.HTTPStatus
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &llm.StatusError{StatusCode: reqErr.HTTPStatusCode, Body: body}
	}

	return nil
}
