package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/narratives/internal/filter"
	"github.com/abelbrown/narratives/internal/narrative"
	"github.com/abelbrown/narratives/internal/render"
)

func newFetchCmd(root *rootOptions) *cobra.Command {
	var (
		format       string
		query        string
		publishers   []string
		perPublisher int
		unfiltered   bool
		strict       bool
		titleWidth   int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch narratives and print them grouped by day and publisher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}

			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			filters := e.state.SelectedFilters.Get()
			if unfiltered {
				filters = narrative.Filters{}
			}
			records, err := e.client.FetchNarratives(cmd.Context(), filters)
			if err != nil {
				return fmt.Errorf("fetch narratives: %w", err)
			}

			records = filter.Dedup(records)
			if strict {
				records = filter.Apply(records, filters)
			}
			if len(publishers) > 0 {
				records = filter.ByPublisher(records, publishers)
			}
			if query != "" {
				records = filter.ByQuery(records, query)
			}
			if perPublisher > 0 {
				records = filter.LimitPerPublisher(records, perPublisher)
			}

			// The grouping is derived from the record container, exactly as
			// the TUI sees it.
			e.state.Narratives.Set(records)

			if titleWidth < 0 {
				titleWidth = e.cfg.UI.TitleWidth
			}
			return render.Write(os.Stdout, f, e.state.Grouped.Get(), titleWidth)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&format, "format", "o", "table", "output format: table, json, yaml")
	fl.StringVarP(&query, "query", "q", "", "keep records whose title, summary or topic contains this text")
	fl.StringSliceVarP(&publishers, "publisher", "p", nil, "keep only these publishers (client-side)")
	fl.IntVar(&perPublisher, "per-publisher", 0, "keep at most N records per publisher (0 = no limit)")
	fl.BoolVar(&unfiltered, "all", false, "ignore the saved filter selection")
	fl.BoolVar(&strict, "strict", false, "re-apply the filter selection client-side")
	fl.IntVar(&titleWidth, "title-width", -1, "truncate table titles (0 = no truncation, default from config)")
	return cmd
}
