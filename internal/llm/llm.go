// Package llm is a minimal client for the Anthropic messages endpoint,
// shared by scope extraction and photo analysis.
package llm

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

const apiVersion = "2023-06-01"

// ErrAPI is the sentinel wrapped by every APIError.
var ErrAPI = errors.New("llm api error")

// APIError captures a failed call against the messages endpoint. Status 0
// means the request never produced a response.
type APIError struct {
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("llm: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("llm: %v", e.Err)
}

func (e *APIError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrAPI
}

func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

// Retryable reports whether the failure is transient.
func (e *APIError) Retryable() bool {
	if e.Status == 0 {
		return true
	}
	return e.Status == 429 || e.Status >= 500
}

// ImageSource carries one base64-encoded image for a vision request.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ContentBlock is one element of a message. Text blocks carry Text; image
// blocks carry Source.
type ContentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// Message is one turn of the conversation.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// Usage reports token consumption for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// TextMessage builds a single-block user message.
func TextMessage(text string) Message {
	return Message{
		Role:    "user",
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

// ImageMessage builds a user message pairing one image with a prompt.
func ImageMessage(mediaType, data, prompt string) Message {
	return Message{
		Role: "user",
		Content: []ContentBlock{
			{Type: "image", Source: &ImageSource{Type: "base64", MediaType: mediaType, Data: data}},
			{Type: "text", Text: prompt},
		},
	}
}

// Client calls the messages endpoint with a fixed model.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	http      *http.Client
}

func NewClient(baseURL, apiKey, model string, maxTokens int, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		http:      &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage Usage `json:"usage"`
}

// Complete sends the messages and returns the concatenated text content.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, Usage, error) {
	payload, err := json.Marshal(request{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	res, err := c.http.Do(req)
	if err != nil {
		return "", Usage{}, &APIError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", Usage{}, &APIError{Status: res.StatusCode, Body: string(body)}
	}

	var parsed response
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", Usage{}, &APIError{Status: res.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), parsed.Usage, nil
}
