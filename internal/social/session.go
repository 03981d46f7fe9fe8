package social

import (
	"context"
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/narratives/internal/audit"
	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/state"
)

// maxConcurrentRelays limits parallel relay queries.
const maxConcurrentRelays = 5

// ErrNoRelay is returned when every configured relay failed.
var ErrNoRelay = errors.New("social: no relay answered")

// followsFetcher is implemented by RelayClient (injectable for tests).
type followsFetcher interface {
	FetchFollows(ctx context.Context, relayURL, pubkey string) ([]string, error)
}

// PrepareSession signs user in: it stores user as the current user and
// replaces the follow set with the union of the contact lists found on the
// active relays. If no relay answers, the follow set is left untouched and
// ErrNoRelay is returned.
func (c *RelayClient) PrepareSession(ctx context.Context, st *state.State, user state.User) error {
	return prepareSession(ctx, c, c.audit, st, user)
}

func prepareSession(ctx context.Context, f followsFetcher, auditLog *audit.Logger, st *state.State, user state.User) error {
	if err := st.CurrentUser.Set(&user); err != nil {
		return fmt.Errorf("store current user: %w", err)
	}

	var (
		mu      sync.Mutex
		union   = mapset.NewThreadUnsafeSet[string]()
		answers int
	)

	var g errgroup.Group
	g.SetLimit(maxConcurrentRelays)
	for _, relay := range st.ActiveRelays() {
		relay := relay
		g.Go(func() error {
			follows, err := f.FetchFollows(ctx, relay, user.Pubkey)
			if err != nil {
				logging.Warn("Relay query failed", "relay", relay, "error", err)
				auditLog.Emit(audit.Event{Level: audit.LevelWarn, Kind: audit.KindRelayError, Comp: "social", Source: relay, Err: err.Error()})
				return nil // one relay failing never fails the group
			}
			auditLog.Emit(audit.Event{Level: audit.LevelInfo, Kind: audit.KindRelayFollows, Comp: "social", Source: relay, Count: len(follows)})

			mu.Lock()
			defer mu.Unlock()
			answers++
			union.Append(follows...)
			return nil
		})
	}
	_ = g.Wait()

	if answers == 0 {
		logging.Error("Session preparation failed", "user", Truncate(user.Npub, 0))
		return ErrNoRelay
	}

	if err := st.UserFollows.Set(mapset.NewSet(union.ToSlice()...)); err != nil {
		return fmt.Errorf("store follows: %w", err)
	}
	logging.Info("Session prepared", "user", Truncate(user.Npub, 0), "follows", union.Cardinality(), "relays", answers)
	return nil
}

// Logout forgets the current user, the follow set and the session key.
func Logout(st *state.State) error {
	if err := st.CurrentUser.Set(nil); err != nil {
		return err
	}
	if err := st.UserFollows.Set(mapset.NewSet[string]()); err != nil {
		return err
	}
	return st.NsecKey.Reset()
}

// Truncate shortens a bech32 identifier for display, keeping its first n
// characters (9 when n <= 0).
func Truncate(bech32 string, n int) string {
	if n <= 0 {
		n = 9
	}
	runes := []rune(bech32)
	if n > len(runes) {
		n = len(runes)
	}
	return string(runes[:n]) + "..."
}
