package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/abelbrown/narratives/internal/state"
	"github.com/abelbrown/narratives/internal/store"
)

// slotValueWidth caps the value column of the slots table.
const slotValueWidth = 60

type slotInfo struct {
	Scope string `json:"scope"`
	Key   string `json:"key"`
	Bytes int    `json:"bytes"`
	Value string `json:"value,omitempty"`
}

func newSlotsCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List stored state slots, durable and for the current session",
		Long: `List stored state slots, durable and for the current session.

Use --session to inspect a named session. The secret key slot is listed
without its value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			durable, err := listSlots(e.store.Durable(), "durable")
			if err != nil {
				return err
			}
			session, err := listSlots(e.store.Session(e.sessionID), "session")
			if err != nil {
				return err
			}
			slots := append(durable, session...)

			if asJSON {
				return printJSON(slots)
			}
			rows := make([][]string, 0, len(slots))
			for _, s := range slots {
				rows = append(rows, []string{
					s.Scope,
					s.Key,
					strconv.Itoa(s.Bytes),
					runewidth.Truncate(s.Value, slotValueWidth, "…"),
				})
			}
			return writeTable(os.Stdout, []string{"SCOPE", "KEY", "BYTES", "VALUE"}, rows)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// listSlots reads every slot in ns. The secret key value is withheld.
func listSlots(ns *store.Namespace, scope string) ([]slotInfo, error) {
	keys, err := ns.Keys()
	if err != nil {
		return nil, fmt.Errorf("list %s slots: %w", scope, err)
	}

	slots := make([]slotInfo, 0, len(keys))
	for _, key := range keys {
		data, ok, err := ns.Get(key)
		if err != nil {
			return nil, fmt.Errorf("read %s slot %q: %w", scope, key, err)
		}
		if !ok {
			continue
		}
		info := slotInfo{Scope: scope, Key: key, Bytes: len(data)}
		if key != state.KeyNsecKey {
			info.Value = string(data)
		}
		slots = append(slots, info)
	}
	return slots, nil
}
