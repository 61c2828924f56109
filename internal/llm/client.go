package llm

//go:generate mockgen -source=client.go -destination=mocks/mock_client.go -package=mocks

import (
	"context"
)

// Client is an interface for chat-style completion models.
// This allows mocking in tests without making real API calls
type Client interface {
	Complete(ctx context.Context, request CompletionRequest) (*CompletionResponse, error)
}
