// Package api is the HTTP client for the narratives server.
package api

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

	"golang.org/x/time/rate"

	"github.com/abelbrown/narratives/internal/narrative"
)

// ErrStatus is wrapped by every error caused by a non-2xx response.
var ErrStatus = errors.New("api: unexpected status")

// StatusError carries the status code and server message of a failed call.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// APIKey is a third-party key stored on the server.
type APIKey struct {
	API string `json:"api" yaml:"api"`
	Key string `json:"key" yaml:"key"`
}

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// Client talks to the narratives server. The base URL is read on every call
// so a server URL change takes effect on the next request.
type Client struct {
	baseURL func() string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client. rps <= 0 disables throttling.
func NewClient(baseURL func() string, timeout time.Duration, rps float64) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// FetchNarratives returns the records matching filters.
func (c *Client) FetchNarratives(ctx context.Context, filters narrative.Filters) ([]narrative.Record, error) {
	var records []narrative.Record
	body := struct {
		Filters narrative.Filters `json:"filters"`
	}{filters}
	if err := c.do(ctx, http.MethodPost, "/fetch-narratives-data", body, &records); err != nil {
		return nil, fmt.Errorf("fetch narratives: %w", err)
	}
	if records == nil {
		records = []narrative.Record{}
	}
	return records, nil
}

// FetchPublisherOptions returns the server's publisher metadata.
func (c *Client) FetchPublisherOptions(ctx context.Context) ([]narrative.PublisherOption, error) {
	var opts []narrative.PublisherOption
	if err := c.do(ctx, http.MethodGet, "/fetch-publisher-options", nil, &opts); err != nil {
		return nil, fmt.Errorf("fetch publisher options: %w", err)
	}
	if opts == nil {
		opts = []narrative.PublisherOption{}
	}
	return opts, nil
}

// EditPublisherOptions updates orientation and country for each publisher.
func (c *Client) EditPublisherOptions(ctx context.Context, opts []narrative.PublisherOption) error {
	body := struct {
		PublisherOptions []narrative.PublisherOption `json:"publisherOptions"`
	}{opts}
	if err := c.do(ctx, http.MethodPost, "/edit-publisher-options", body, nil); err != nil {
		return fmt.Errorf("edit publisher options: %w", err)
	}
	return nil
}

// UpdateDatabase asks the server to scrape and process pending content.
// It returns the server's status message.
func (c *Client) UpdateDatabase(ctx context.Context) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/update-narratives-database", struct{}{}, &resp); err != nil {
		return "", fmt.Errorf("update database: %w", err)
	}
	return resp.Message, nil
}

// AddContentID queues a content ID for scraping.
func (c *Client) AddContentID(ctx context.Context, contentID string) (string, error) {
	body := map[string]string{"content_id": contentID}
	var resp messageResponse
	if err := c.do(ctx, http.MethodPost, "/add-content-id", body, &resp); err != nil {
		return "", fmt.Errorf("add content id: %w", err)
	}
	return resp.Message, nil
}

// UpdateContentTopic reassigns the macro topic of a content ID.
func (c *Client) UpdateContentTopic(ctx context.Context, contentID, topic string) error {
	body := map[string]string{"content_id": contentID, "topic": topic}
	if err := c.do(ctx, http.MethodPost, "/update-content-id-topic", body, nil); err != nil {
		return fmt.Errorf("update content topic: %w", err)
	}
	return nil
}

// LoadChatContent starts a new chat assistant primed with the given content.
func (c *Client) LoadChatContent(ctx context.Context, contentIDs []string) error {
	body := map[string][]string{"content_ids": contentIDs}
	if err := c.do(ctx, http.MethodPost, "/load-content-for-openai-chatbot", body, nil); err != nil {
		return fmt.Errorf("load chat content: %w", err)
	}
	return nil
}

// Chat sends a message to the chat assistant and returns its reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	body := map[string]string{"message": message}
	var resp struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat-with-openai-assistant", body, &resp); err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return resp.Response, nil
}

// CloseChat deletes the chat assistant.
func (c *Client) CloseChat(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/close-openai-chat", struct{}{}, nil); err != nil {
		return fmt.Errorf("close chat: %w", err)
	}
	return nil
}

// FetchAPIKeys returns the keys stored on the server.
func (c *Client) FetchAPIKeys(ctx context.Context) ([]APIKey, error) {
	var keys []APIKey
	if err := c.do(ctx, http.MethodGet, "/fetch-api-keys", nil, &keys); err != nil {
		return nil, fmt.Errorf("fetch api keys: %w", err)
	}
	return keys, nil
}

// UpdateAPIKey creates or replaces the key for api.
func (c *Client) UpdateAPIKey(ctx context.Context, api, key string) error {
	body := APIKey{API: api, Key: key}
	if err := c.do(ctx, http.MethodPost, "/update-api-key", body, nil); err != nil {
		return fmt.Errorf("update api key: %w", err)
	}
	return nil
}

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do performs one request. No retries: a failed call is reported as is.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	url := strings.TrimRight(c.baseURL(), "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageResponse
		_ = json.Unmarshal(data, &msg)
		return &StatusError{Code: resp.StatusCode, Message: msg.Error}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
