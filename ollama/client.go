// Package ollama is the client for the local model inference endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Chunk is one incremental piece of a streamed generation. Err terminates the
// stream and marks the whole generation as failed.
type Chunk struct {
	Content string
	Done    bool
	Err     error
}

// Client talks to an Ollama server.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateLine struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewClient creates a client. The timeout bounds the entire exchange including
// the streamed body, so it must be generous enough for slow local inference.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Stream starts a generation and returns a channel of chunks in arrival order.
// Connection and status failures are returned synchronously so the caller can
// fall back before emitting anything. The channel is closed after a Done or
// Err chunk, or when ctx is cancelled.
func (c *Client) Stream(ctx context.Context, prompt string) (<-chan Chunk, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach inference endpoint: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("inference endpoint returned status %d", resp.StatusCode)
	}

	ch := make(chan Chunk, 10)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		emit := func(chunk Chunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		dec := json.NewDecoder(resp.Body)
		for {
			var line generateLine
			if err := dec.Decode(&line); err != nil {
				// The stream is terminated by the connection closing, so EOF
				// without an explicit done record still completes normally.
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					emit(Chunk{Done: true})
				} else {
					emit(Chunk{Err: fmt.Errorf("malformed inference stream: %w", err)})
				}
				return
			}
			if line.Response != "" {
				if !emit(Chunk{Content: line.Response}) {
					return
				}
			}
			if line.Done {
				emit(Chunk{Done: true})
				return
			}
		}
	}()

	return ch, nil
}

// Healthy probes the server root, which Ollama answers on any running instance.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
