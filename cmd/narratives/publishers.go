package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/narratives/internal/narrative"
)

func newPublishersCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publishers",
		Short: "List or edit publisher metadata on the server",
	}
	cmd.AddCommand(newPublishersListCmd(root), newPublishersEditCmd(root))
	return cmd
}

func newPublishersListCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List publisher options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.coord.RefreshPublisherOptions(cmd.Context()); err != nil {
				return fmt.Errorf("fetch publisher options: %w", err)
			}
			opts := e.state.PublisherOptions.Get()
			if asJSON {
				return printJSON(opts)
			}
			return writePublisherTable(os.Stdout, opts)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// writePublisherTable prints options as aligned columns.
func writePublisherTable(w io.Writer, opts []narrative.PublisherOption) error {
	rows := make([][]string, 0, len(opts))
	for _, o := range opts {
		rows = append(rows, []string{o.Publisher, o.PoliticalOrientation, o.Country})
	}
	return writeTable(w, []string{"PUBLISHER", "ORIENTATION", "COUNTRY"}, rows)
}

// writeTable prints header and rows as columns aligned by display width.
// The last column is not padded.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	all := append([][]string{header}, rows...)
	widths := make([]int, len(header))
	for _, row := range all {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var sb strings.Builder
	for _, row := range all {
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]+2))
		}
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func newPublishersEditCmd(root *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Replace publisher options from a YAML or JSON list",
		Long: `Replace publisher options from a YAML or JSON list, e.g.

  - publisher: BBC News
    publisher_political_orientation: Centre
    country: United Kingdom

Narratives are reloaded without filters afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readPublisherOptions(file)
			if err != nil {
				return err
			}

			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.coord.EditPublisherOptions(cmd.Context(), opts); err != nil {
				return fmt.Errorf("edit publisher options: %w", err)
			}
			fmt.Printf("Saved %d publisher options; %d narratives reloaded\n", len(opts), len(e.state.Narratives.Get()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "options file (- for stdin)")
	return cmd
}

// readPublisherOptions decodes a YAML (or JSON) list of options from path,
// or from stdin when path is "-".
func readPublisherOptions(path string) ([]narrative.PublisherOption, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read publisher options: %w", err)
	}
	var opts []narrative.PublisherOption
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return nil, fmt.Errorf("parse publisher options: %w", err)
	}
	for i, o := range opts {
		if strings.TrimSpace(o.Publisher) == "" {
			return nil, fmt.Errorf("publisher option %d: missing publisher", i+1)
		}
	}
	return opts, nil
}
