package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/narratives/internal/narrative"
)

func newFiltersCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Show or change the saved filter selection",
	}
	cmd.AddCommand(newFiltersShowCmd(root), newFiltersSetCmd(root), newFiltersResetCmd(root))
	return cmd
}

func newFiltersShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved filter selection as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()
			return printJSON(e.state.SelectedFilters.Get())
		},
	}
}

// filterFlags are the per-dimension flags of "filters set". A flag that is
// not given leaves its dimension unchanged.
type filterFlags struct {
	publishers    []string
	platforms     []string
	countries     []string
	topics        []string
	publishedFrom string
	publishedTo   string
	addedFrom     string
	addedTo       string
	raw           string
}

func newFiltersSetCmd(root *rootOptions) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change dimensions of the saved filter selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			next := e.state.SelectedFilters.Get().Clone()
			if ff.raw != "" {
				next = narrative.Filters{}
				if err := json.Unmarshal([]byte(ff.raw), &next); err != nil {
					return fmt.Errorf("parse --json: %w", err)
				}
			}

			changed := cmd.Flags().Changed
			if changed("publisher") {
				next.Publishers = ff.publishers
			}
			if changed("platform") {
				next.Platforms = ff.platforms
			}
			if changed("country") {
				next.Countries = ff.countries
			}
			if changed("topic") {
				next.MacroTopics = ff.topics
			}
			if changed("published-from") || changed("published-to") {
				next.DatePublishedRange = mergeRange(next.DatePublishedRange, ff.publishedFrom, ff.publishedTo, changed("published-from"), changed("published-to"))
			}
			if changed("added-from") || changed("added-to") {
				next.DateAddedRange = mergeRange(next.DateAddedRange, ff.addedFrom, ff.addedTo, changed("added-from"), changed("added-to"))
			}

			if err := e.state.SelectedFilters.Set(next); err != nil {
				return fmt.Errorf("save filters: %w", err)
			}
			return printJSON(next)
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVar(&ff.publishers, "publisher", nil, "publishers (empty = any)")
	fl.StringSliceVar(&ff.platforms, "platform", nil, "platforms (empty = any)")
	fl.StringSliceVar(&ff.countries, "country", nil, "countries (empty = any)")
	fl.StringSliceVar(&ff.topics, "topic", nil, "macro topics (empty = any)")
	fl.StringVar(&ff.publishedFrom, "published-from", "", "earliest publication time (2006-01-02 15:04:05)")
	fl.StringVar(&ff.publishedTo, "published-to", "", "latest publication time")
	fl.StringVar(&ff.addedFrom, "added-from", "", "earliest time added")
	fl.StringVar(&ff.addedTo, "added-to", "", "latest time added")
	fl.StringVar(&ff.raw, "json", "", "replace the whole selection with this JSON object before applying other flags")
	return cmd
}

// mergeRange updates the bounds that were given. A range with both bounds
// empty is dropped.
func mergeRange(r *narrative.DateRange, start, end string, setStart, setEnd bool) *narrative.DateRange {
	next := narrative.DateRange{}
	if r != nil {
		next = *r
	}
	if setStart {
		next.Start = start
	}
	if setEnd {
		next.End = end
	}
	if next.Start == "" && next.End == "" {
		return nil
	}
	return &next
}

func newFiltersResetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default filter selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			def := narrative.DefaultFilters()
			if e.cfg.DefaultFilters != nil {
				def = e.cfg.DefaultFilters.Clone()
			}
			if err := e.state.SelectedFilters.Set(def); err != nil {
				return fmt.Errorf("save filters: %w", err)
			}
			return printJSON(def)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
