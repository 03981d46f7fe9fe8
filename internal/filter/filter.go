// Package filter provides pure filter functions for narrative records.
// All functions are simple: []Record in, []Record out. No side effects.
package filter

import (
	"sort"
	"strings"

	"github.com/abelbrown/narratives/internal/narrative"
)

// Apply keeps records matching every constrained dimension of f.
func Apply(records []narrative.Record, f narrative.Filters) []narrative.Record {
	if len(records) == 0 {
		return []narrative.Record{}
	}
	if f.IsZero() {
		return records
	}

	result := make([]narrative.Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			result = append(result, r)
		}
	}
	return result
}

// ByPublisher keeps only records from the specified publishers.
func ByPublisher(records []narrative.Record, publishers []string) []narrative.Record {
	if len(records) == 0 || len(publishers) == 0 {
		return []narrative.Record{}
	}

	// Build a set of allowed publishers for O(1) lookup
	allowed := make(map[string]bool, len(publishers))
	for _, p := range publishers {
		allowed[p] = true
	}

	result := make([]narrative.Record, 0, len(records))
	for _, r := range records {
		if allowed[r.Publisher] {
			result = append(result, r)
		}
	}
	return result
}

// Dedup removes records with duplicate content IDs. First occurrence wins.
// Records without a content ID are kept.
func Dedup(records []narrative.Record) []narrative.Record {
	if len(records) == 0 {
		return []narrative.Record{}
	}

	seen := make(map[string]bool, len(records))
	result := make([]narrative.Record, 0, len(records))
	for _, r := range records {
		if r.ContentID != "" {
			if seen[r.ContentID] {
				continue
			}
			seen[r.ContentID] = true
		}
		result = append(result, r)
	}
	return result
}

// ByQuery keeps records whose title, summary or macro topic contains query,
// case-insensitively. An empty query keeps everything.
func ByQuery(records []narrative.Record, query string) []narrative.Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}

	result := make([]narrative.Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Title), q) ||
			strings.Contains(strings.ToLower(r.Summary), q) ||
			strings.Contains(strings.ToLower(r.MacroTopic), q) {
			result = append(result, r)
		}
	}
	return result
}

// LimitPerPublisher caps the number of records per publisher, keeping the
// most recently published. The result is sorted by DatePublished DESC.
func LimitPerPublisher(records []narrative.Record, maxPerPublisher int) []narrative.Record {
	if len(records) == 0 || maxPerPublisher <= 0 {
		return []narrative.Record{}
	}

	byPublisher := make(map[string][]narrative.Record)
	for _, r := range records {
		byPublisher[r.Publisher] = append(byPublisher[r.Publisher], r)
	}

	result := make([]narrative.Record, 0, len(records))
	for _, recs := range byPublisher {
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].DatePublished > recs[j].DatePublished
		})
		limit := maxPerPublisher
		if limit > len(recs) {
			limit = len(recs)
		}
		result = append(result, recs[:limit]...)
	}

	// Map iteration order is random, so sort the merged result
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].DatePublished != result[j].DatePublished {
			return result[i].DatePublished > result[j].DatePublished
		}
		return result[i].ContentID < result[j].ContentID
	})
	return result
}
