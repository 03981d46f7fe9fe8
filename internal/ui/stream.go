package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/narratives/internal/narrative"
	"github.com/abelbrown/narratives/internal/render"
)

const (
	publisherColWidth = 16
	orderColWidth     = 4
	durationColWidth  = 6
	minTitleWidth     = 10
)

// Row is one selectable line of the stream: a single record position inside
// a publisher group.
type Row struct {
	Day       string
	Publisher string
	ContentID string
	Title     string
	Order     int
	Duration  float64
}

// Flatten lays a grouping out as rows, days in grouping order and
// publishers in first-appearance order within each day.
func Flatten(g narrative.Grouping) []Row {
	rows := make([]Row, 0, g.Items())
	for _, day := range g.Dates() {
		for _, pg := range g.Groups(day) {
			for i := range pg.ContentIDs {
				rows = append(rows, Row{
					Day:       day,
					Publisher: pg.Publisher,
					ContentID: pg.ContentIDs[i],
					Title:     pg.Titles[i],
					Order:     pg.ItemOrder[i],
					Duration:  pg.Duration[i],
				})
			}
		}
	}
	return rows
}

// RenderStream renders rows under day headers, scrolled so the cursor stays
// visible. chosen marks the row whose content ID is the current selection.
func RenderStream(rows []Row, cursor int, chosen string, width, height int) string {
	if len(rows) == 0 {
		return HelpStyle.Render("No narratives to display. Press 'r' to refresh.")
	}

	availableHeight := height
	if availableHeight < 1 {
		availableHeight = 1
	}

	scrollOffset := calcScrollOffset(rows, cursor, availableHeight)

	var b strings.Builder
	renderedLines := 0
	currentDay := ""
	if scrollOffset > 0 {
		currentDay = rows[scrollOffset-1].Day
	}

	for i := scrollOffset; i < len(rows) && renderedLines < availableHeight; i++ {
		row := rows[i]
		if row.Day != currentDay {
			currentDay = row.Day
			b.WriteString(DayHeader.Render(dayLabel(row.Day)))
			b.WriteString("\n")
			renderedLines++
			if renderedLines >= availableHeight {
				break
			}
		}

		b.WriteString(renderRowLine(row, i == cursor, row.ContentID != "" && row.ContentID == chosen, width))
		b.WriteString("\n")
		renderedLines++
	}

	return b.String()
}

// calcScrollOffset finds the smallest row index such that all lines from
// that index through the cursor, day headers included, fit within
// availableHeight.
func calcScrollOffset(rows []Row, cursor, availableHeight int) int {
	if len(rows) == 0 || cursor < 0 {
		return 0
	}
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}

	offset := 0
	if cursor >= availableHeight {
		offset = cursor - availableHeight + 1
	}
	for offset <= cursor {
		if visibleLineCount(rows, offset, cursor) <= availableHeight {
			return offset
		}
		offset++
	}
	return cursor
}

// visibleLineCount counts the rendered lines rows[from..to] produce,
// including the day headers inside that range.
func visibleLineCount(rows []Row, from, to int) int {
	lines := 0
	currentDay := ""
	if from > 0 {
		currentDay = rows[from-1].Day
	}
	for i := from; i <= to && i < len(rows); i++ {
		if rows[i].Day != currentDay {
			currentDay = rows[i].Day
			lines++
		}
		lines++
	}
	return lines
}

func dayLabel(day string) string {
	if day == "" {
		return "Undated"
	}
	return day
}

// renderRowLine renders a single row: publisher badge, per-day number,
// title, duration.
func renderRowLine(row Row, selected, chosen bool, width int) string {
	publisher := runewidth.FillRight(runewidth.Truncate(row.Publisher, publisherColWidth, "…"), publisherColWidth)
	badge := PublisherBadge.Render(publisher)
	order := OrderStyle.Render(fmt.Sprintf("%*d.", orderColWidth-1, row.Order))

	duration := render.Duration(row.Duration)
	durationText := MetaItem.Render(strings.Repeat(" ", max(durationColWidth-runewidth.StringWidth(duration), 0)) + duration)

	// NormalItem and SelectedItem pad the title by one column on each side.
	titleWidth := width - lipgloss.Width(badge) - orderColWidth - durationColWidth - 2
	if titleWidth < minTitleWidth {
		titleWidth = minTitleWidth
	}
	title := runewidth.FillRight(runewidth.Truncate(row.Title, titleWidth, "…"), titleWidth)

	var titleStyle lipgloss.Style
	switch {
	case selected:
		titleStyle = SelectedItem
	case chosen:
		titleStyle = ChosenItem
	default:
		titleStyle = NormalItem
	}

	return badge + order + titleStyle.Render(title) + durationText
}

// RenderStatusBar renders the bottom status bar with key hints and the
// cursor position. busy replaces the position while a command is running.
func RenderStatusBar(cursor, total int, width int, busy string) string {
	var position string
	switch {
	case busy != "":
		position = " " + busy + " "
	case total == 0:
		position = " 0/0 "
	default:
		position = fmt.Sprintf(" %d/%d ", cursor+1, total)
	}

	keys := []string{
		StatusBarKey.Render("j/k") + StatusBarText.Render(":nav"),
		StatusBarKey.Render("Enter") + StatusBarText.Render(":select"),
		StatusBarKey.Render("r") + StatusBarText.Render(":refresh"),
		StatusBarKey.Render("u") + StatusBarText.Render(":database"),
		StatusBarKey.Render("f") + StatusBarText.Render(":filters"),
		StatusBarKey.Render("D") + StatusBarText.Render(":events"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	keyHints := strings.Join(keys, " ")

	padding := width - lipgloss.Width(position) - lipgloss.Width(keyHints)
	if padding < 0 {
		padding = 0
	}

	bar := position + strings.Repeat(" ", padding) + keyHints
	return StatusBar.Width(width).Render(bar)
}

// RenderFilterPanel summarizes the active filters. Unset fields read "any".
func RenderFilterPanel(f narrative.Filters, width int) string {
	lines := []string{
		filterLine("Publishers", f.Publishers),
		filterLine("Platforms", f.Platforms),
		filterLine("Countries", f.Countries),
		filterLine("Topics", f.MacroTopics),
		FilterLabel.Render("Added:     ") + rangeText(f.DateAddedRange),
		FilterLabel.Render("Published: ") + rangeText(f.DatePublishedRange),
	}

	panelWidth := width - 2
	if panelWidth < 20 {
		panelWidth = 20
	}
	return FilterPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// RenderDatabasePanel shows the database actions, or the content ID prompt
// while adding.
func RenderDatabasePanel(adding bool, input string, width int) string {
	lines := []string{
		FilterLabel.Render("Database"),
		StatusBarText.Render("enter: update from sources  a: add content ID  esc: close"),
	}
	if adding {
		lines = []string{
			FilterLabel.Render("Add content ID"),
			input,
			StatusBarText.Render("enter: queue  esc: back"),
		}
	}

	panelWidth := width - 2
	if panelWidth < 20 {
		panelWidth = 20
	}
	return FilterPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

func filterLine(label string, values []string) string {
	text := "any"
	if len(values) > 0 {
		text = strings.Join(values, ", ")
	}
	return FilterLabel.Render(runewidth.FillRight(label+":", 11)) + text
}

func rangeText(r *narrative.DateRange) string {
	if r == nil || (r.Start == "" && r.End == "") {
		return "any"
	}
	start, end := r.Start, r.End
	if start == "" {
		start = "..."
	}
	if end == "" {
		end = "..."
	}
	return start + " to " + end
}
