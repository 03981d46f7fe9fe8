package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/narratives/internal/audit"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
// Must be updated if DebugPanel style changes.
const debugPanelChrome = 4

const (
	debugRecentEvents = 20
	debugSlots        = 8
)

// debugOverlay renders the audit panel showing event counts, the most
// recently written storage slots and recent events. Returns empty string if
// ring is nil.
func debugOverlay(ring *audit.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	slots := ring.Slots()
	if len(slots) > debugSlots {
		slots = slots[:debugSlots]
	}
	events := ring.Recent(debugRecentEvents, nil)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Activity"))
	lines = append(lines, fmt.Sprintf("  Fetches:    %d started, %d complete, %d errors",
		stats[audit.KindFetchStart], stats[audit.KindFetchComplete], stats[audit.KindFetchError]))
	lines = append(lines, fmt.Sprintf("  Writes:     %d durable, %d session, %d resets",
		stats[audit.KindContainerSet], stats[audit.KindSessionSet], stats[audit.KindSessionReset]))
	lines = append(lines, fmt.Sprintf("  Relays:     %d follows, %d errors",
		stats[audit.KindRelayFollows], stats[audit.KindRelayError]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	if len(slots) > 0 {
		lines = append(lines, DebugHeaderStyle.Render("Slots"))
		for _, s := range slots {
			scope := "durable"
			if s.Session {
				scope = "session"
			}
			line := fmt.Sprintf("  %s %-7s %3dw %6dB %6s",
				runewidth.FillRight(runewidth.Truncate(s.Key, 20, "…"), 20), scope,
				s.Writes, s.Bytes, formatAge(time.Since(s.Last)))
			if s.Resets > 0 {
				line += fmt.Sprintf(" (%d resets)", s.Resets)
			}
			lines = append(lines, line)
		}
		lines = append(lines, "")
	}

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range events {
		line := fmt.Sprintf("  %6s  %-16s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.Key != "" {
			line += "  " + e.Key
		}
		if e.Source != "" {
			line += "  " + e.Source
		}
		if e.Msg != "" {
			line += "  " + runewidth.Truncate(e.Msg, 40, "…")
		}
		if e.Err != "" {
			line += "  ERR:" + runewidth.Truncate(e.Err, 30, "…")
		}
		lines = append(lines, line)
	}

	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := 76
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}

	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge formats a duration as a compact human string.
// Negative durations from clock skew clamp to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the audit overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [EVENTS]  " + keys)
}
