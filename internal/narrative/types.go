// Package narrative defines narrative records and the date/publisher
// grouping the client renders.
package narrative

import "slices"

// Record is one narrative item as served by the narratives server.
// Records are snapshots of server state and are not modified after fetch.
type Record struct {
	ContentID                     string  `json:"content_id" yaml:"content_id"`
	Title                         string  `json:"title" yaml:"title"`
	Publisher                     string  `json:"publisher" yaml:"publisher"`
	Author                        string  `json:"author" yaml:"author"`
	DatePublished                 string  `json:"date_published" yaml:"date_published"`
	DateAdded                     string  `json:"date_added" yaml:"date_added"`
	Duration                      float64 `json:"duration" yaml:"duration"`
	Platform                      string  `json:"platform" yaml:"platform"`
	Transcript                    string  `json:"transcript" yaml:"transcript"`
	Summary                       string  `json:"summary" yaml:"summary"`
	SentimentAnalysis             float64 `json:"sentiment_analysis" yaml:"sentiment_analysis"`
	MacroTopic                    string  `json:"macro_topic" yaml:"macro_topic"`
	PublisherPoliticalOrientation string  `json:"publisher_political_orientation" yaml:"publisher_political_orientation"`
	Country                       string  `json:"country" yaml:"country"`
	SentBy                        string  `json:"sent_by" yaml:"sent_by"`
	Comments                      string  `json:"comments" yaml:"comments"`
	ReferenceImage                string  `json:"reference_image" yaml:"reference_image"`
}

// PublisherOption is the server-side metadata attached to a publisher.
type PublisherOption struct {
	Publisher            string `json:"publisher" yaml:"publisher"`
	PoliticalOrientation string `json:"publisher_political_orientation" yaml:"publisher_political_orientation"`
	Country              string `json:"country" yaml:"country"`
}

// DateRange is an inclusive range of sortable date-time strings
// ("2006-01-02 15:04:05").
type DateRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Contains reports whether ts lies within the range. Comparison is
// lexicographic, matching how the server evaluates ranges. An empty bound
// is open.
func (r DateRange) Contains(ts string) bool {
	return (r.Start == "" || ts >= r.Start) && (r.End == "" || ts <= r.End)
}

// Filters is the user's filter selection. An empty list for a dimension
// places no constraint on that dimension; a nil range likewise.
type Filters struct {
	Publishers         []string   `json:"publishers,omitempty" yaml:"publishers,omitempty"`
	Platforms          []string   `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	Countries          []string   `json:"countries,omitempty" yaml:"countries,omitempty"`
	MacroTopics        []string   `json:"macro_topics,omitempty" yaml:"macro_topics,omitempty"`
	DateAddedRange     *DateRange `json:"dateAddedRange,omitempty" yaml:"dateAddedRange,omitempty"`
	DatePublishedRange *DateRange `json:"datePublishedRange,omitempty" yaml:"datePublishedRange,omitempty"`
}

// DefaultFilters returns the selection a fresh install starts with.
func DefaultFilters() Filters {
	return Filters{
		Publishers: []string{"BBC News", "CNBC"},
		Platforms:  []string{"Web", "Nostr", "Twitter"},
		Countries:  []string{"United Kingdom", "United States of America"},
		DateAddedRange: &DateRange{
			Start: "1900-01-01 00:00:00",
			End:   "2050-01-01 23:59:59",
		},
		DatePublishedRange: &DateRange{
			Start: "2024-01-01 00:00:00",
			End:   "2025-01-01 23:59:59",
		},
	}
}

// Match reports whether r satisfies every constrained dimension of f.
func (f Filters) Match(r Record) bool {
	if !accepts(f.Publishers, r.Publisher) ||
		!accepts(f.Platforms, r.Platform) ||
		!accepts(f.Countries, r.Country) ||
		!accepts(f.MacroTopics, r.MacroTopic) {
		return false
	}
	if f.DateAddedRange != nil && !f.DateAddedRange.Contains(r.DateAdded) {
		return false
	}
	if f.DatePublishedRange != nil && !f.DatePublishedRange.Contains(r.DatePublished) {
		return false
	}
	return true
}

func accepts(allowed []string, v string) bool {
	return len(allowed) == 0 || slices.Contains(allowed, v)
}

// IsZero reports whether f constrains nothing.
func (f Filters) IsZero() bool {
	return len(f.Publishers) == 0 && len(f.Platforms) == 0 &&
		len(f.Countries) == 0 && len(f.MacroTopics) == 0 &&
		f.DateAddedRange == nil && f.DatePublishedRange == nil
}

// Clone returns a deep copy of f.
func (f Filters) Clone() Filters {
	out := Filters{
		Publishers:  slices.Clone(f.Publishers),
		Platforms:   slices.Clone(f.Platforms),
		Countries:   slices.Clone(f.Countries),
		MacroTopics: slices.Clone(f.MacroTopics),
	}
	if f.DateAddedRange != nil {
		r := *f.DateAddedRange
		out.DateAddedRange = &r
	}
	if f.DatePublishedRange != nil {
		r := *f.DatePublishedRange
		out.DatePublishedRange = &r
	}
	return out
}
