package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/social"
	"github.com/abelbrown/narratives/internal/state"
	"github.com/abelbrown/narratives/internal/ui"
)

// runTUI opens the browser over the grouped narratives and blocks until the
// user quits.
func runTUI(parent context.Context, opts *rootOptions) error {
	e, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	st := e.state
	actions := ui.Actions{
		Refresh: func() tea.Cmd {
			return func() tea.Msg {
				return ui.RefreshComplete{Err: e.coord.RefreshNarratives(ctx)}
			}
		},
		UpdateDatabase: func() tea.Cmd {
			return func() tea.Msg {
				msg, err := e.coord.UpdateDatabase(ctx)
				if err == nil {
					closeDatabaseWindows(st)
				}
				return ui.DatabaseUpdated{Message: msg, Err: err}
			}
		},
		ToggleDatabase: func() tea.Cmd {
			return func() tea.Msg {
				st.DatabaseWindowOpen.Update(func(open bool) bool { return !open })
				open := st.DatabaseWindowOpen.Get()
				if !open {
					st.DatabaseAddWindowOpen.Set(false)
				}
				return ui.DatabaseWindowToggled{Open: open}
			}
		},
		ToggleAdd: func() tea.Cmd {
			return func() tea.Msg {
				st.DatabaseAddWindowOpen.Update(func(open bool) bool { return !open })
				return ui.AddWindowToggled{Open: st.DatabaseAddWindowOpen.Get()}
			}
		},
		AddContent: func(id string) tea.Cmd {
			return func() tea.Msg {
				msg, err := e.client.AddContentID(ctx, id)
				if err != nil {
					logging.Error("Add content id failed", "content_id", id, "error", err)
				} else {
					st.DatabaseAddWindowOpen.Set(false)
				}
				return ui.ContentAdded{Message: msg, Err: err}
			}
		},
		Select: func(id string) tea.Cmd {
			return func() tea.Msg {
				st.SelectedContentID.Set(id)
				return ui.ContentSelected{ID: id}
			}
		},
		ToggleFilters: func() tea.Cmd {
			return func() tea.Msg {
				st.FilterWindowOpen.Update(func(open bool) bool { return !open })
				return ui.FilterWindowToggled{
					Open:    st.FilterWindowOpen.Get(),
					Filters: st.SelectedFilters.Get(),
				}
			}
		},
	}

	app := ui.NewApp(st.Grouped.Get(), actions, e.ring, true)
	program := tea.NewProgram(app, tea.WithAltScreen())

	unwatch := ui.Watch(program.Send, st.Grouped)
	defer unwatch()

	// Refresh follows of a remembered user in the background.
	var wg sync.WaitGroup
	if user := st.CurrentUser.Get(); user != nil {
		relays := social.NewRelayClient(e.cfg.RelayTimeout, e.audit)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := relays.PrepareSession(ctx, st, *user); err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn("Follow refresh failed", "error", err)
			}
		}()
	}

	e.coord.Start(ctx)

	_, runErr := program.Run()

	cancel()
	e.coord.Wait()
	wg.Wait()

	if runErr != nil {
		return fmt.Errorf("run tui: %w", runErr)
	}
	return nil
}

// closeDatabaseWindows closes the database panel and its content ID prompt.
func closeDatabaseWindows(st *state.State) {
	st.DatabaseAddWindowOpen.Set(false)
	st.DatabaseWindowOpen.Set(false)
}
