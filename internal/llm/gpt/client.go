package gpt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type Client struct {
	Client *openai.Client
}

// NewClient builds an OpenAI chat client. An empty baseURL keeps the public
// https://api.openai.com/v1 endpoint.
func NewClient(apiKey string, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = &recordingDoer{next: cfg.HTTPClient}

	return &Client{
		Client: openai.NewClientWithConfig(cfg),
	}, nil
}

type rawBodyKey struct{}

// withRawBody returns a context under which the response body of the next
// call is copied into buf.
func withRawBody(ctx context.Context, buf *bytes.Buffer) context.Context {
	return context.WithValue(ctx, rawBodyKey{}, buf)
}

// recordingDoer tees response bodies into the buffer carried by the request
// context, so the upstream envelope can be logged as received.
type recordingDoer struct {
	next openai.HTTPDoer
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.next.Do(req)
	if err != nil || resp == nil || resp.Body == nil {
		return resp, err
	}

	if buf, ok := req.Context().Value(rawBodyKey{}).(*bytes.Buffer); ok {
		resp.Body = struct {
			io.Reader
			io.Closer
		}{io.TeeReader(resp.Body, buf), resp.Body}
	}
	return resp, nil
}
