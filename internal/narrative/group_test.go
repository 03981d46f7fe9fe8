package narrative

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func rec(id, publisher, published string) Record {
	return Record{
		ContentID:     id,
		Title:         "Title " + id,
		Publisher:     publisher,
		DatePublished: published,
		Duration:      float64(len(id)),
	}
}

func TestGroupSharedCounterAcrossPublishers(t *testing.T) {
	records := []Record{
		rec("a", "BBC", "2024-01-01 10:00"),
		rec("b", "CNBC", "2024-01-01 11:00"),
		rec("c", "BBC", "2024-01-01 12:00"),
	}

	g := Group(records)

	if !reflect.DeepEqual(g.Dates(), []string{"2024-01-01"}) {
		t.Fatalf("Dates() = %v", g.Dates())
	}
	groups := g.Groups("2024-01-01")
	if len(groups) != 2 {
		t.Fatalf("got %d publisher groups, want 2", len(groups))
	}

	bbc, cnbc := groups[0], groups[1]
	if bbc.Publisher != "BBC" || !reflect.DeepEqual(bbc.ContentIDs, []string{"a", "c"}) ||
		!reflect.DeepEqual(bbc.ItemOrder, []int{1, 3}) {
		t.Errorf("BBC group = %+v", bbc)
	}
	if cnbc.Publisher != "CNBC" || !reflect.DeepEqual(cnbc.ContentIDs, []string{"b"}) ||
		!reflect.DeepEqual(cnbc.ItemOrder, []int{2}) {
		t.Errorf("CNBC group = %+v", cnbc)
	}
	if bbc.DatePublished != "2024-01-01" {
		t.Errorf("DatePublished = %q", bbc.DatePublished)
	}
}

func TestGroupCounterResetsPerDay(t *testing.T) {
	records := []Record{
		rec("a", "BBC", "2024-01-02 09:00:00"),
		rec("b", "BBC", "2024-01-01 09:00:00"),
		rec("c", "CNBC", "2024-01-02 10:00:00"),
		rec("d", "BBC", "2024-01-01 10:00:00"),
	}

	g := Group(records)

	if !reflect.DeepEqual(g.Dates(), []string{"2024-01-02", "2024-01-01"}) {
		t.Fatalf("Dates() = %v, want first-appearance order", g.Dates())
	}
	if got := g.Groups("2024-01-01")[0].ItemOrder; !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("2024-01-01 BBC itemOrder = %v, want [1 2]", got)
	}
	if got := g.Groups("2024-01-02")[1].ItemOrder; !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("2024-01-02 CNBC itemOrder = %v, want [2]", got)
	}
	if g.Items() != 4 {
		t.Errorf("Items() = %d, want 4", g.Items())
	}
}

func TestGroupEmpty(t *testing.T) {
	for _, in := range [][]Record{nil, {}} {
		g := Group(in)
		if g.Len() != 0 || g.Items() != 0 {
			t.Errorf("Group(%v) = %d days, %d items", in, g.Len(), g.Items())
		}
		data, err := json.Marshal(g)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if string(data) != "{}" {
			t.Errorf("empty grouping JSON = %s", data)
		}
	}
}

func mixedRecords() []Record {
	publishers := []string{"BBC News", "CNBC", "Reuters", "AP"}
	days := []string{"2024-03-01", "2024-03-02", "2024-02-28"}
	var out []Record
	for i := 0; i < 40; i++ {
		out = append(out, rec(
			fmt.Sprintf("id-%02d", i),
			publishers[(i*7)%len(publishers)],
			fmt.Sprintf("%s %02d:00:00", days[(i*5)%len(days)], i%24),
		))
	}
	return out
}

func TestGroupIdempotent(t *testing.T) {
	records := mixedRecords()
	first := Group(records)
	second := Group(records)
	if !reflect.DeepEqual(first, second) {
		t.Error("Group is not idempotent")
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("JSON differs:\n%s\n%s", a, b)
	}
}

func TestGroupOrdinalsArePermutation(t *testing.T) {
	records := mixedRecords()
	counts := make(map[string]int)
	for _, r := range records {
		counts[DayKey(r.DatePublished)]++
	}

	g := Group(records)
	for _, day := range g.Dates() {
		var ords []int
		for _, pg := range g.Groups(day) {
			ords = append(ords, pg.ItemOrder...)
		}
		slices.Sort(ords)
		if len(ords) != counts[day] {
			t.Fatalf("%s: %d ordinals, want %d", day, len(ords), counts[day])
		}
		for i, o := range ords {
			if o != i+1 {
				t.Errorf("%s: ordinals %v are not 1..%d", day, ords, counts[day])
				break
			}
		}
	}
}

func TestGroupOrdinalIsInputPositionWithinDay(t *testing.T) {
	records := mixedRecords()
	want := make(map[string]int)
	seen := make(map[string]int)
	for _, r := range records {
		day := DayKey(r.DatePublished)
		seen[day]++
		want[r.ContentID] = seen[day]
	}

	g := Group(records)
	for _, day := range g.Dates() {
		for _, pg := range g.Groups(day) {
			for i, id := range pg.ContentIDs {
				if pg.ItemOrder[i] != want[id] {
					t.Errorf("%s/%s %s: ordinal %d, want %d", day, pg.Publisher, id, pg.ItemOrder[i], want[id])
				}
			}
		}
	}
}

func TestGroupParallelSequencesAligned(t *testing.T) {
	records := mixedRecords()
	byID := make(map[string]Record)
	for _, r := range records {
		byID[r.ContentID] = r
	}

	g := Group(records)
	for _, day := range g.Dates() {
		for _, pg := range g.Groups(day) {
			n := len(pg.ContentIDs)
			if len(pg.Titles) != n || len(pg.Duration) != n || len(pg.ItemOrder) != n {
				t.Fatalf("%s/%s: lengths %d/%d/%d/%d", day, pg.Publisher,
					len(pg.ContentIDs), len(pg.Titles), len(pg.Duration), len(pg.ItemOrder))
			}
			for i, id := range pg.ContentIDs {
				r := byID[id]
				if pg.Titles[i] != r.Title || pg.Duration[i] != r.Duration || r.Publisher != pg.Publisher {
					t.Errorf("%s/%s index %d misaligned", day, pg.Publisher, i)
				}
			}
			for i := 1; i < n; i++ {
				if pg.ItemOrder[i] <= pg.ItemOrder[i-1] {
					t.Errorf("%s/%s itemOrder not increasing: %v", day, pg.Publisher, pg.ItemOrder)
				}
			}
		}
	}
}

func TestGroupMalformedDates(t *testing.T) {
	records := []Record{
		rec("a", "BBC", ""),
		rec("b", "BBC", "garbage value"),
		rec("c", "CNBC", "2024-01-01 10:00"),
		rec("d", "CNBC", ""),
	}

	g := Group(records)

	if !reflect.DeepEqual(g.Dates(), []string{"", "garbage", "2024-01-01"}) {
		t.Fatalf("Dates() = %q", g.Dates())
	}
	empty := g.Groups("")
	if len(empty) != 2 || !reflect.DeepEqual(empty[1].ItemOrder, []int{2}) {
		t.Errorf("empty-day groups = %+v", empty)
	}
}

func TestGroupingJSONKeepsDayOrder(t *testing.T) {
	g := Group([]Record{
		rec("a", "BBC", "2024-05-02 10:00:00"),
		rec("b", "BBC", "2024-01-09 10:00:00"),
	})

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Index(string(data), "2024-05-02") > strings.Index(string(data), "2024-01-09") {
		t.Errorf("day order lost: %s", data)
	}
	if !strings.Contains(string(data), `"itemOrder":[1]`) {
		t.Errorf("missing itemOrder: %s", data)
	}

	var back Grouping
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back, g) {
		t.Errorf("decoded = %+v, want %+v", back, g)
	}
}

func TestGroupingYAMLKeepsDayOrder(t *testing.T) {
	g := Group([]Record{
		rec("a", "BBC", "2024-05-02 10:00:00"),
		rec("b", "CNBC", "2024-01-09 10:00:00"),
	})

	data, err := yaml.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := string(data)
	if !strings.HasPrefix(out, `"2024-05-02":`) && !strings.HasPrefix(out, "2024-05-02:") {
		t.Errorf("YAML does not start with first day:\n%s", out)
	}
	if strings.Index(out, "2024-05-02") > strings.Index(out, "2024-01-09") {
		t.Errorf("day order lost:\n%s", out)
	}
}
