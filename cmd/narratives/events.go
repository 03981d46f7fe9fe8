package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/narratives/internal/audit"
	"github.com/abelbrown/narratives/internal/config"
)

// eventFilter selects audit events by kind prefix, minimum level, component
// and session.
type eventFilter struct {
	kind    string
	level   string
	comp    string
	session string
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level audit.Level) int {
	switch level {
	case audit.LevelDebug:
		return 0
	case audit.LevelInfo:
		return 1
	case audit.LevelWarn:
		return 2
	case audit.LevelError:
		return 3
	default:
		return 0
	}
}

func (f eventFilter) match(ev audit.Event) bool {
	if f.kind != "" && !strings.HasPrefix(string(ev.Kind), f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(audit.Level(f.level)) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.session != "" && ev.SessionID != f.session {
		return false
	}
	return true
}

func newEventsCmd(root *rootOptions) *cobra.Command {
	var (
		tail    int
		follow  bool
		rawJSON bool
		filter  eventFilter
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the audit trail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}

			f, err := os.Open(cfg.AuditPath())
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no audit trail at %s yet; run any narratives command first", cfg.AuditPath())
				}
				return err
			}
			defer f.Close()

			format := formatEvent
			if rawJSON {
				format = formatEventJSON
			}

			events, err := audit.ReadTail(f, tail, filter.match)
			if err != nil {
				return fmt.Errorf("read audit trail: %w", err)
			}
			for _, ev := range events {
				fmt.Println(format(ev))
			}

			if !follow {
				return nil
			}
			return followEvents(cmd.Context(), f, filter.match, format)
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&tail, "tail", "n", 50, "number of recent events to show (0 = all)")
	fl.BoolVarP(&follow, "follow", "f", false, "keep printing new events (like tail -f)")
	fl.BoolVar(&rawJSON, "json", false, "print raw JSON lines")
	fl.StringVar(&filter.kind, "kind", "", "event kind prefix (e.g. 'fetch', 'session.set')")
	fl.StringVar(&filter.level, "level", "", "minimum level: debug, info, warn, error")
	fl.StringVar(&filter.comp, "comp", "", "component: persist, coord, social, main")
	fl.StringVar(&filter.session, "session-id", "", "only events from this session")
	return cmd
}

// followEvents polls r for appended lines until ctx is done.
func followEvents(ctx context.Context, r io.Reader, match func(audit.Event) bool, format func(audit.Event) string) error {
	reader := bufio.NewReader(r)
	var pending []byte
	for {
		chunk, err := reader.ReadBytes('\n')
		pending = append(pending, chunk...)
		if errors.Is(err, io.EOF) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}
		if err != nil {
			return err
		}

		line := strings.TrimSpace(string(pending))
		pending = pending[:0]
		if line == "" {
			continue
		}
		var ev audit.Event
		if json.Unmarshal([]byte(line), &ev) != nil {
			continue
		}
		if match(ev) {
			fmt.Println(format(ev))
		}
	}
}

func formatEvent(ev audit.Event) string {
	lvl := strings.ToUpper(string(ev.Level))
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-7s] %-15s", ev.Time.Local().Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)}
	if ev.Key != "" {
		parts = append(parts, "key="+ev.Key)
	}
	if ev.Value != "" {
		parts = append(parts, "value="+truncate(ev.Value, 60))
	} else if ev.Bytes > 0 {
		parts = append(parts, fmt.Sprintf("bytes=%d", ev.Bytes))
	}
	if ev.Msg != "" {
		parts = append(parts, "msg="+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Source != "" {
		parts = append(parts, "src="+ev.Source)
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

func formatEventJSON(ev audit.Event) string {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Sprintf(`{"err":%q}`, err.Error())
	}
	return string(data)
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
