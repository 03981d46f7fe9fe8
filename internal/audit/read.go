package audit

import (
	"bufio"
	"encoding/json"
	"io"
)

// ReadTail decodes a JSONL audit log and returns the last n events accepted
// by match, oldest first. Undecodable lines are skipped. n <= 0 returns all.
func ReadTail(r io.Reader, n int, match Match) ([]Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var events []Event
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev Event
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match.accepts(ev) {
			continue
		}
		events = append(events, ev)
		if n > 0 && len(events) > n {
			events = events[1:]
		}
	}
	return events, scanner.Err()
}
