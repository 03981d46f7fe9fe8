// Package social reads the signed-in user's contact list from Nostr relays
// and keeps the shared state in sync with it.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/abelbrown/narratives/internal/audit"
	"github.com/abelbrown/narratives/internal/logging"
)

// kindContacts is the NIP-02 contact list event kind.
const kindContacts = 3

// ErrRelayClosed is returned when a relay refuses or closes a subscription.
var ErrRelayClosed = errors.New("social: subscription closed by relay")

// RelayClient queries relays over NIP-01 websockets.
type RelayClient struct {
	dialer  *websocket.Dialer
	timeout time.Duration
	audit   *audit.Logger // optional
}

// NewRelayClient creates a client. timeout bounds each relay query.
func NewRelayClient(timeout time.Duration, auditLog *audit.Logger) *RelayClient {
	return &RelayClient{
		dialer:  websocket.DefaultDialer,
		timeout: timeout,
		audit:   auditLog,
	}
}

// event is a NIP-01 event, reduced to the fields read here.
type event struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
}

// FetchFollows returns the pubkeys in the newest contact list pubkey has
// published to relayURL. A relay without a contact list yields no follows.
func (c *RelayClient) FetchFollows(ctx context.Context, relayURL, pubkey string) ([]string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	conn, _, err := c.dialer.DialContext(ctx, relayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	subID := uuid.NewString()[:8]
	req := []any{"REQ", subID, map[string]any{
		"kinds":   []int{kindContacts},
		"authors": []string{pubkey},
		"limit":   1,
	}}
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var latest *event
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read message: %w", err)
		}

		var frame []json.RawMessage
		if err := json.Unmarshal(message, &frame); err != nil || len(frame) == 0 {
			logging.Warn("Ignoring malformed relay frame", "relay", relayURL)
			continue
		}
		var label string
		if err := json.Unmarshal(frame[0], &label); err != nil {
			continue
		}

		switch label {
		case "EVENT":
			if len(frame) < 3 || !sameSub(frame[1], subID) {
				continue
			}
			var ev event
			if err := json.Unmarshal(frame[2], &ev); err != nil {
				logging.Warn("Ignoring malformed event", "relay", relayURL, "error", err)
				continue
			}
			if ev.Kind != kindContacts || ev.Pubkey != pubkey {
				continue
			}
			if latest == nil || ev.CreatedAt > latest.CreatedAt {
				latest = &ev
			}

		case "EOSE":
			if len(frame) < 2 || !sameSub(frame[1], subID) {
				continue
			}
			_ = conn.WriteJSON([]any{"CLOSE", subID})
			return followsOf(latest), nil

		case "CLOSED":
			if len(frame) >= 2 && sameSub(frame[1], subID) {
				reason := ""
				if len(frame) >= 3 {
					_ = json.Unmarshal(frame[2], &reason)
				}
				return nil, fmt.Errorf("%w: %s", ErrRelayClosed, reason)
			}

		case "NOTICE":
			var notice string
			if len(frame) >= 2 {
				_ = json.Unmarshal(frame[1], &notice)
			}
			logging.Debug("Relay notice", "relay", relayURL, "notice", notice)
		}
	}
}

func sameSub(raw json.RawMessage, subID string) bool {
	var id string
	return json.Unmarshal(raw, &id) == nil && id == subID
}

// followsOf returns the distinct "p" tag values of ev in tag order.
func followsOf(ev *event) []string {
	follows := []string{}
	if ev == nil {
		return follows
	}
	seen := make(map[string]bool)
	for _, tag := range ev.Tags {
		if len(tag) < 2 || tag[0] != "p" || tag[1] == "" || seen[tag[1]] {
			continue
		}
		seen[tag[1]] = true
		follows = append(follows, tag[1])
	}
	return follows
}
