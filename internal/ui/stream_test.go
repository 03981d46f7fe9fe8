package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/narratives/internal/narrative"
)

// makeRows creates n rows on a single day.
func makeRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			Day:       "2024-03-01",
			Publisher: "src",
			ContentID: fmt.Sprintf("id-%d", i),
			Title:     strings.Repeat("x", 20),
			Order:     i + 1,
		}
	}
	return rows
}

// makeRowsWithDays creates rows where the first 5 are on day one, the next
// 10 on day two and the rest on day three.
func makeRowsWithDays(n int) []Row {
	rows := makeRows(n)
	for i := range rows {
		switch {
		case i < 5:
			rows[i].Day = "2024-03-01"
		case i < 15:
			rows[i].Day = "2024-03-02"
		default:
			rows[i].Day = "2024-03-03"
		}
	}
	return rows
}

func TestFlattenFollowsGroupingOrder(t *testing.T) {
	g := narrative.Group([]narrative.Record{
		{ContentID: "1", Title: "a", Publisher: "BBC", DatePublished: "2024-03-01", Duration: 60},
		{ContentID: "2", Title: "b", Publisher: "CNBC", DatePublished: "2024-03-01"},
		{ContentID: "3", Title: "c", Publisher: "BBC", DatePublished: "2024-03-01"},
		{ContentID: "4", Title: "d", Publisher: "CNBC", DatePublished: "2024-02-28"},
	})

	rows := Flatten(g)

	want := []Row{
		{Day: "2024-03-01", Publisher: "BBC", ContentID: "1", Title: "a", Order: 1, Duration: 60},
		{Day: "2024-03-01", Publisher: "BBC", ContentID: "3", Title: "c", Order: 3},
		{Day: "2024-03-01", Publisher: "CNBC", ContentID: "2", Title: "b", Order: 2},
		{Day: "2024-02-28", Publisher: "CNBC", ContentID: "4", Title: "d", Order: 1},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("rows[%d] = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestFlattenEmpty(t *testing.T) {
	if rows := Flatten(narrative.Grouping{}); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestCalcScrollOffset_SingleDay(t *testing.T) {
	rows := makeRows(100)

	tests := []struct {
		name       string
		cursor     int
		height     int
		wantOffset int
	}{
		{"top", 0, 10, 0},
		{"within first page", 5, 10, 0},
		// One header line plus 10 rows exceeds 10 lines.
		{"last row of first page", 9, 10, 1},
		{"far down", 50, 10, 41},
		{"cursor past end", 200, 10, 90},
		{"negative cursor", -1, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calcScrollOffset(rows, tt.cursor, tt.height)
			if got != tt.wantOffset {
				t.Errorf("calcScrollOffset(cursor=%d, height=%d) = %d, want %d", tt.cursor, tt.height, got, tt.wantOffset)
			}
		})
	}
}

func TestCalcScrollOffset_CursorAlwaysVisible(t *testing.T) {
	rows := makeRowsWithDays(40)

	for height := 3; height <= 20; height++ {
		for cursor := 0; cursor < len(rows); cursor++ {
			offset := calcScrollOffset(rows, cursor, height)
			if offset > cursor {
				t.Fatalf("height %d cursor %d: offset %d past cursor", height, cursor, offset)
			}
			if lines := visibleLineCount(rows, offset, cursor); lines > height {
				t.Fatalf("height %d cursor %d: %d lines do not fit", height, cursor, lines)
			}
		}
	}
}

func TestVisibleLineCountCountsDayHeaders(t *testing.T) {
	rows := makeRowsWithDays(20)

	tests := []struct {
		from, to int
		want     int
	}{
		{0, 4, 6},   // one header + 5 rows
		{0, 5, 8},   // two headers + 6 rows
		{3, 5, 4},   // starts mid-day: one new header + 3 rows
		{5, 19, 17}, // two headers + 15 rows
	}
	for _, tt := range tests {
		if got := visibleLineCount(rows, tt.from, tt.to); got != tt.want {
			t.Errorf("visibleLineCount(%d, %d) = %d, want %d", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestRenderStreamShowsDayHeaders(t *testing.T) {
	rows := makeRowsWithDays(20)

	out := RenderStream(rows, 0, "", 100, 40)

	for _, day := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		if strings.Count(out, day) != 1 {
			t.Errorf("expected exactly one header for %s", day)
		}
	}
}

func TestRenderStreamFitsHeight(t *testing.T) {
	rows := makeRowsWithDays(40)

	for _, cursor := range []int{0, 10, 25, 39} {
		out := RenderStream(rows, cursor, "", 80, 12)
		if lines := strings.Count(out, "\n"); lines > 12 {
			t.Errorf("cursor %d: rendered %d lines, want <= 12", cursor, lines)
		}
	}
}

func TestRenderStreamEmpty(t *testing.T) {
	out := RenderStream(nil, 0, "", 80, 20)
	if !strings.Contains(out, "No narratives") {
		t.Errorf("empty stream should show hint, got %q", out)
	}
}

func TestRenderRowLineWidth(t *testing.T) {
	row := Row{
		Day:       "2024-03-01",
		Publisher: "A Publisher With A Very Long Name",
		Title:     strings.Repeat("長い見出し", 30),
		Order:     12,
		Duration:  754,
	}

	for _, width := range []int{60, 80, 120} {
		line := renderRowLine(row, false, false, width)
		if w := lipgloss.Width(line); w != width {
			t.Errorf("width %d: line is %d columns", width, w)
		}
	}

	line := renderRowLine(row, true, false, 80)
	if !strings.Contains(line, "12.") {
		t.Errorf("line should carry the item number, got %q", line)
	}
	if !strings.Contains(line, "12:34") {
		t.Errorf("line should carry the duration, got %q", line)
	}
}

func TestRenderStatusBar(t *testing.T) {
	bar := RenderStatusBar(4, 10, 120, "")
	if !strings.Contains(bar, "5/10") {
		t.Errorf("status bar should show position, got %q", bar)
	}

	bar = RenderStatusBar(0, 0, 120, "")
	if !strings.Contains(bar, "0/0") {
		t.Errorf("empty status bar should show 0/0, got %q", bar)
	}

	bar = RenderStatusBar(4, 10, 120, "Refreshing...")
	if !strings.Contains(bar, "Refreshing...") || strings.Contains(bar, "5/10") {
		t.Errorf("busy status bar should replace the position, got %q", bar)
	}
}

func TestRenderFilterPanel(t *testing.T) {
	f := narrative.Filters{
		Publishers:         []string{"BBC", "CNBC"},
		DatePublishedRange: &narrative.DateRange{Start: "2024-01-01"},
	}
	out := RenderFilterPanel(f, 80)

	for _, want := range []string{"BBC, CNBC", "2024-01-01 to ...", "any"} {
		if !strings.Contains(out, want) {
			t.Errorf("filter panel missing %q:\n%s", want, out)
		}
	}
}
