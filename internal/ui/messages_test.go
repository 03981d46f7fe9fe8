package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/narratives/internal/narrative"
	"github.com/abelbrown/narratives/internal/reactive"
)

func TestWatchForwardsChanges(t *testing.T) {
	records := reactive.NewWritable([]narrative.Record{})
	grouped := narrative.Bind(records)
	defer grouped.Close()

	var msgs []tea.Msg
	unsub := Watch(func(m tea.Msg) { msgs = append(msgs, m) }, grouped)

	if len(msgs) != 0 {
		t.Fatalf("got %d messages on subscribe, want 0", len(msgs))
	}

	records.Set([]narrative.Record{
		{ContentID: "a", Title: "First", Publisher: "BBC", DatePublished: "2024-03-01 08:00:00"},
	})
	if len(msgs) != 1 {
		t.Fatalf("got %d messages after Set, want 1", len(msgs))
	}
	changed, ok := msgs[0].(GroupingChanged)
	if !ok {
		t.Fatalf("message is %T, want GroupingChanged", msgs[0])
	}
	if changed.Grouping.Items() != 1 {
		t.Errorf("Items() = %d, want 1", changed.Grouping.Items())
	}

	unsub()
	records.Set([]narrative.Record{})
	if len(msgs) != 1 {
		t.Errorf("got %d messages after unsubscribe, want 1", len(msgs))
	}
}
