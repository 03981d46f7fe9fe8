package narrative

import (
	"testing"

	"github.com/abelbrown/narratives/internal/reactive"
)

func TestBindRecomputesOnRecordChange(t *testing.T) {
	records := reactive.NewWritable([]Record{})
	grouped := Bind(records)
	defer grouped.Close()

	var seen []int
	unsub := grouped.Subscribe(func(g Grouping) { seen = append(seen, g.Items()) })
	defer unsub()

	records.Set([]Record{rec("a", "BBC", "2024-01-01 10:00")})
	if got := grouped.Get().Items(); got != 1 {
		t.Fatalf("Items() = %d after Set, want 1", got)
	}
	records.Set([]Record{})

	want := []int{0, 1, 0}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen = %v, want %v", seen, want)
		}
	}
}

func TestBindIgnoresFilterChanges(t *testing.T) {
	records := reactive.NewWritable([]Record{rec("a", "BBC", "2024-01-01 10:00")})
	filters := reactive.NewWritable(DefaultFilters())
	grouped := Bind(records)
	defer grouped.Close()

	calls := 0
	unsub := grouped.Subscribe(func(Grouping) { calls++ })
	defer unsub()

	filters.Set(Filters{Publishers: []string{"CNBC"}})
	if calls != 1 {
		t.Errorf("subscriber called %d times, want 1", calls)
	}
}
