package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/narratives/internal/narrative"
)

func newTestClient(url string) *Client {
	c := NewClient(func() string { return url }, 5*time.Second, 0)
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestFetchNarratives(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/fetch-narratives-data" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}

		var body struct {
			Filters narrative.Filters `json:"filters"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.Filters.Publishers) != 2 || body.Filters.DatePublishedRange == nil {
			t.Errorf("filters not forwarded: %+v", body.Filters)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"content_id":"a","title":"T","publisher":"BBC News","date_published":"2024-01-01 10:00:00","duration":12.5,"sentiment_analysis":-0.2}]`))
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchNarratives(context.Background(), narrative.DefaultFilters())
	if err != nil {
		t.Fatalf("FetchNarratives() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.ContentID != "a" || r.Duration != 12.5 || r.SentimentAnalysis != -0.2 {
		t.Errorf("record = %+v", r)
	}
}

func TestFetchNarrativesNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Data not found"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchNarratives(context.Background(), narrative.Filters{})
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound || se.Message != "Data not found" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestPublisherOptions(t *testing.T) {
	var edited []narrative.PublisherOption
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fetch-publisher-options":
			w.Write([]byte(`[{"publisher":"CNBC","publisher_political_orientation":"Centre","country":"United States of America"}]`))
		case "/edit-publisher-options":
			var body struct {
				PublisherOptions []narrative.PublisherOption `json:"publisherOptions"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			edited = body.PublisherOptions
			w.Write([]byte(`{"message":"Publisher options updated successfully"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	opts, err := c.FetchPublisherOptions(context.Background())
	if err != nil {
		t.Fatalf("FetchPublisherOptions() error: %v", err)
	}
	if len(opts) != 1 || opts[0].PoliticalOrientation != "Centre" {
		t.Errorf("opts = %+v", opts)
	}

	opts[0].Country = "United Kingdom"
	if err := c.EditPublisherOptions(context.Background(), opts); err != nil {
		t.Fatalf("EditPublisherOptions() error: %v", err)
	}
	if len(edited) != 1 || edited[0].Country != "United Kingdom" || edited[0].Publisher != "CNBC" {
		t.Errorf("server received %+v", edited)
	}
}

func TestContentEndpoints(t *testing.T) {
	got := make(map[string]map[string]any)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		got[r.URL.Path] = body
		switch r.URL.Path {
		case "/chat-with-openai-assistant":
			w.Write([]byte(`{"response":"hello back"}`))
		case "/fetch-api-keys":
			w.Write([]byte(`[{"api":"openai","key":"sk-1"}]`))
		default:
			w.Write([]byte(`{"message":"ok"}`))
		}
	}))
	defer server.Close()

	ctx := context.Background()
	c := newTestClient(server.URL + "/")

	msg, err := c.AddContentID(ctx, "xyz")
	if err != nil || msg != "ok" {
		t.Fatalf("AddContentID() = %q, %v", msg, err)
	}
	if got["/add-content-id"]["content_id"] != "xyz" {
		t.Errorf("add-content-id body = %v", got["/add-content-id"])
	}

	if err := c.UpdateContentTopic(ctx, "xyz", "Housing"); err != nil {
		t.Fatalf("UpdateContentTopic() error: %v", err)
	}
	if got["/update-content-id-topic"]["topic"] != "Housing" {
		t.Errorf("topic body = %v", got["/update-content-id-topic"])
	}

	if msg, err := c.UpdateDatabase(ctx); err != nil || msg != "ok" {
		t.Errorf("UpdateDatabase() = %q, %v", msg, err)
	}

	if err := c.LoadChatContent(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("LoadChatContent() error: %v", err)
	}
	if ids, _ := got["/load-content-for-openai-chatbot"]["content_ids"].([]any); len(ids) != 2 {
		t.Errorf("content_ids = %v", got["/load-content-for-openai-chatbot"])
	}

	reply, err := c.Chat(ctx, "hi")
	if err != nil || reply != "hello back" {
		t.Errorf("Chat() = %q, %v", reply, err)
	}
	if err := c.CloseChat(ctx); err != nil {
		t.Errorf("CloseChat() error: %v", err)
	}

	keys, err := c.FetchAPIKeys(ctx)
	if err != nil || len(keys) != 1 || keys[0].API != "openai" {
		t.Errorf("FetchAPIKeys() = %+v, %v", keys, err)
	}
	if err := c.UpdateAPIKey(ctx, "openai", "sk-2"); err != nil {
		t.Fatalf("UpdateAPIKey() error: %v", err)
	}
	if got["/update-api-key"]["key"] != "sk-2" {
		t.Errorf("update-api-key body = %v", got["/update-api-key"])
	}
}

func TestNoRetryOnServerError(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).UpdateDatabase(context.Background())
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("err = %v, want ErrStatus", err)
	}
	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestBaseURLReadPerRequest(t *testing.T) {
	hits := make(chan string, 2)
	handler := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			hits <- name
			w.Write([]byte(`[]`))
		}
	}
	a := httptest.NewServer(handler("a"))
	defer a.Close()
	b := httptest.NewServer(handler("b"))
	defer b.Close()

	current := a.URL
	c := NewClient(func() string { return current }, time.Second, 0)

	if _, err := c.FetchPublisherOptions(context.Background()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	current = b.URL
	if _, err := c.FetchPublisherOptions(context.Background()); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first, second := <-hits, <-hits; first != "a" || second != "b" {
		t.Errorf("hits = %s, %s", first, second)
	}
}

func TestCancelledContext(t *testing.T) {
	c := NewClient(func() string { return "http://127.0.0.1:1" }, time.Second, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.FetchNarratives(ctx, narrative.Filters{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
