package narrative

import (
	"bytes"
	"encoding/json"
	"slices"

	"gopkg.in/yaml.v3"
)

// PublisherGroup holds the records of one publisher on one day. Duration,
// ContentIDs, Titles and ItemOrder are parallel: index i in each refers to
// the same record.
type PublisherGroup struct {
	DatePublished string    `json:"date_published" yaml:"date_published"`
	Publisher     string    `json:"publisher" yaml:"publisher"`
	Duration      []float64 `json:"duration" yaml:"duration"`
	ContentIDs    []string  `json:"content_ids" yaml:"content_ids"`
	Titles        []string  `json:"titles" yaml:"titles"`
	ItemOrder     []int     `json:"itemOrder" yaml:"itemOrder"`
}

// Len returns the number of records in the group.
func (g PublisherGroup) Len() int {
	return len(g.ContentIDs)
}

// Grouping maps each day to its publisher groups. Days keep the order in
// which they first appeared in the input.
type Grouping struct {
	dates  []string
	byDate map[string][]PublisherGroup
}

// Dates returns the days in first-appearance order.
func (g Grouping) Dates() []string {
	return slices.Clone(g.dates)
}

// Groups returns the publisher groups for day, in first-appearance order.
func (g Grouping) Groups(day string) []PublisherGroup {
	return g.byDate[day]
}

// Len returns the number of days.
func (g Grouping) Len() int {
	return len(g.dates)
}

// Items returns the total number of records across all days.
func (g Grouping) Items() int {
	n := 0
	for _, groups := range g.byDate {
		for _, pg := range groups {
			n += pg.Len()
		}
	}
	return n
}

// Group partitions records by day, then by publisher, and numbers the
// records of each day 1..N in input order. The counter is shared by all
// publishers of a day, so a publisher's ordinals need not be contiguous.
func Group(records []Record) Grouping {
	g := Grouping{byDate: make(map[string][]PublisherGroup)}
	index := make(map[string]map[string]int)
	next := make(map[string]int)

	for _, r := range records {
		day := DayKey(r.DatePublished)
		pubs, ok := index[day]
		if !ok {
			pubs = make(map[string]int)
			index[day] = pubs
			g.dates = append(g.dates, day)
		}
		i, ok := pubs[r.Publisher]
		if !ok {
			i = len(g.byDate[day])
			pubs[r.Publisher] = i
			g.byDate[day] = append(g.byDate[day], PublisherGroup{
				DatePublished: day,
				Publisher:     r.Publisher,
			})
		}
		pg := &g.byDate[day][i]
		pg.Duration = append(pg.Duration, r.Duration)
		pg.ContentIDs = append(pg.ContentIDs, r.ContentID)
		pg.Titles = append(pg.Titles, r.Title)
		next[day]++
		pg.ItemOrder = append(pg.ItemOrder, next[day])
	}

	return g
}

// MarshalJSON encodes the grouping as an object whose keys keep day order.
func (g Grouping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, day := range g.dates {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(day)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(g.byDate[day])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object of day keys, keeping their order.
func (g *Grouping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	out := Grouping{byDate: make(map[string][]PublisherGroup)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		day, _ := tok.(string)
		var groups []PublisherGroup
		if err := dec.Decode(&groups); err != nil {
			return err
		}
		if _, dup := out.byDate[day]; !dup {
			out.dates = append(out.dates, day)
		}
		out.byDate[day] = groups
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*g = out
	return nil
}

// MarshalYAML encodes the grouping as a mapping whose keys keep day order.
func (g Grouping) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, day := range g.dates {
		var val yaml.Node
		if err := val.Encode(g.byDate[day]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: day},
			&val,
		)
	}
	return node, nil
}
