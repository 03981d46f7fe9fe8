// Package state assembles every container the client shares between the
// coordinator, the CLI and the TUI.
//
// A State lives from startup to shutdown. Callers receive it explicitly;
// nothing here is a package-level singleton.
package state

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/abelbrown/narratives/internal/audit"
	"github.com/abelbrown/narratives/internal/narrative"
	"github.com/abelbrown/narratives/internal/persist"
	"github.com/abelbrown/narratives/internal/reactive"
)

// Slot keys in the persistence medium.
const (
	KeySelectedFilters = "selectedNarrativesFilters"
	KeyServerURL       = "serverUrl"
	KeyRelays          = "relays"
	KeyCurrentUser     = "currentUser"
	KeyUserFollows     = "userFollows"
	KeyNsecKey         = "nsecKey"
)

// DefaultServerURL is used until the session picks another server.
const DefaultServerURL = "http://localhost:5000"

// DefaultRelays are used whenever the stored relay list is empty.
var DefaultRelays = []string{
	"wss://relay.damus.io",
	"wss://nostr.wine/",
	"wss://relay.snort.social",
	"wss://relay.nostr.band/",
	"wss://purplepag.es/",
}

// User is the signed-in social identity.
type User struct {
	Npub   string `json:"npub"`
	Pubkey string `json:"pubkey"`
	Name   string `json:"name,omitempty"`
}

// Options tunes the defaults State is built with. Zero values fall back to
// the package defaults.
type Options struct {
	ServerURL string
	Relays    []string
	Filters   *narrative.Filters
	Audit     *audit.Logger
}

// State holds every shared container.
type State struct {
	Narratives       *reactive.Writable[[]narrative.Record]
	PublisherOptions *reactive.Writable[[]narrative.PublisherOption]
	Grouped          *reactive.Derived[narrative.Grouping]

	SelectedFilters   *persist.Container[narrative.Filters]
	SelectedContentID *reactive.Writable[string]

	FilterWindowOpen      *reactive.Writable[bool]
	DatabaseWindowOpen    *reactive.Writable[bool]
	DatabaseAddWindowOpen *reactive.Writable[bool]
	UpdatingDatabase      *reactive.Writable[bool]

	ServerURL *persist.SessionContainer[string]

	Relays      *persist.Container[[]string]
	CurrentUser *persist.Container[*User]
	UserFollows *persist.Container[mapset.Set[string]]
	NsecKey     *persist.SessionContainer[string]

	defaultRelays []string
}

// New builds the containers over the durable and session media. It fails if
// any stored slot cannot be decoded.
func New(durable, session persist.Medium, opts Options) (*State, error) {
	serverURL := opts.ServerURL
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	relays := opts.Relays
	if len(relays) == 0 {
		relays = DefaultRelays
	}
	filters := narrative.DefaultFilters()
	if opts.Filters != nil {
		filters = opts.Filters.Clone()
	}
	withAudit := persist.WithAudit(opts.Audit)

	s := &State{
		Narratives:            reactive.NewWritable([]narrative.Record{}),
		PublisherOptions:      reactive.NewWritable([]narrative.PublisherOption{}),
		SelectedContentID:     reactive.NewWritable(""),
		FilterWindowOpen:      reactive.NewWritable(false),
		DatabaseWindowOpen:    reactive.NewWritable(false),
		DatabaseAddWindowOpen: reactive.NewWritable(false),
		UpdatingDatabase:      reactive.NewWritable(false),
		defaultRelays:         slices.Clone(relays),
	}

	var err error
	if s.SelectedFilters, err = persist.New(durable, KeySelectedFilters, filters, persist.Plain[narrative.Filters](), withAudit); err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	if s.Relays, err = persist.New(durable, KeyRelays, []string{}, persist.Plain[[]string](), withAudit); err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	if s.CurrentUser, err = persist.New[*User](durable, KeyCurrentUser, nil, persist.Plain[*User](), withAudit); err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	if s.UserFollows, err = persist.New(durable, KeyUserFollows, mapset.NewSet[string](), persist.Set[string](), withAudit); err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	if s.ServerURL, err = persist.NewSession(session, KeyServerURL, serverURL, persist.Plain[string](), withAudit); err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}
	if s.NsecKey, err = persist.NewSession(session, KeyNsecKey, "", persist.Plain[string](), withAudit, persist.Redacted()); err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}

	s.Grouped = narrative.Bind(s.Narratives)
	return s, nil
}

// ActiveRelays returns the stored relay list, or the defaults when it is
// empty.
func (s *State) ActiveRelays() []string {
	if relays := s.Relays.Get(); len(relays) > 0 {
		return relays
	}
	return slices.Clone(s.defaultRelays)
}

// Close detaches the derived grouping from the record container.
func (s *State) Close() {
	s.Grouped.Close()
}
