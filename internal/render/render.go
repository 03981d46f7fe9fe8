// Package render writes a grouping as a text table, JSON or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/narratives/internal/narrative"
)

// Format names an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or yaml)", s)
	}
}

// Write renders g in format f.
func Write(w io.Writer, f Format, g narrative.Grouping, titleWidth int) error {
	switch f {
	case FormatJSON:
		return JSON(w, g)
	case FormatYAML:
		return YAML(w, g)
	default:
		return Table(w, g, titleWidth)
	}
}

// JSON writes g as indented JSON with days in grouping order.
func JSON(w io.Writer, g narrative.Grouping) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}

// YAML writes g as YAML with days in grouping order.
func YAML(w io.Writer, g narrative.Grouping) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(g); err != nil {
		return err
	}
	return enc.Close()
}

var tableHeader = []string{"DATE", "#", "PUBLISHER", "TITLE", "DURATION"}

// Table writes one row per record, aligned by display width. Titles wider
// than titleWidth are cut with an ellipsis; titleWidth <= 0 disables that.
func Table(w io.Writer, g narrative.Grouping, titleWidth int) error {
	rows := [][]string{tableHeader}
	for _, day := range g.Dates() {
		for _, pg := range g.Groups(day) {
			for i, id := range pg.ContentIDs {
				title := pg.Titles[i]
				if title == "" {
					title = id
				}
				if titleWidth > 0 {
					title = runewidth.Truncate(title, titleWidth, "…")
				}
				rows = append(rows, []string{
					day,
					strconv.Itoa(pg.ItemOrder[i]),
					pg.Publisher,
					title,
					Duration(pg.Duration[i]),
				})
			}
		}
	}

	widths := make([]int, len(tableHeader))
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for _, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(cell)
			if i < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)))
			}
		}
		sb.WriteString("\n")
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// Duration renders seconds as m:ss, or "-" when unknown.
func Duration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(seconds + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
