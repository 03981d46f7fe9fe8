// Package ui provides the Bubble Tea TUI for the narratives client.
package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/narratives/internal/narrative"
	"github.com/abelbrown/narratives/internal/reactive"
)

// GroupingChanged is sent whenever the grouped view of the record
// container is recomputed.
type GroupingChanged struct {
	Grouping narrative.Grouping
}

// RefreshComplete is sent when a user-requested refresh finishes.
type RefreshComplete struct {
	Err error
}

// DatabaseUpdated is sent when the server-side database update finishes.
type DatabaseUpdated struct {
	Message string
	Err     error
}

// ContentSelected is sent after a content ID has been stored as the
// current selection.
type ContentSelected struct {
	ID string
}

// FilterWindowToggled reports the new filter panel state together with the
// filters it should display.
type FilterWindowToggled struct {
	Open    bool
	Filters narrative.Filters
}

// DatabaseWindowToggled reports the new database panel state.
type DatabaseWindowToggled struct {
	Open bool
}

// AddWindowToggled reports whether the content ID prompt is open.
type AddWindowToggled struct {
	Open bool
}

// ContentAdded is sent when the server has answered an add request.
type ContentAdded struct {
	Message string
	Err     error
}

// Watch forwards every recomputed grouping to send. The value delivered
// during subscription is skipped: the App is constructed with it.
// Returns the unsubscribe function.
func Watch(send func(tea.Msg), src reactive.Readable[narrative.Grouping]) func() {
	var primed atomic.Bool
	return src.Subscribe(func(g narrative.Grouping) {
		if !primed.Swap(true) {
			return
		}
		send(GroupingChanged{Grouping: g})
	})
}
