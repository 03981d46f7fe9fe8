package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func newServerURLCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server-url",
		Short: "Show or change the server URL for the current session",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the server URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()
			fmt.Println(e.state.ServerURL.Get())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <url>",
		Short: "Use another server for this session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.Parse(args[0])
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("invalid server url %q", args[0])
			}

			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.state.ServerURL.Set(u.String()); err != nil {
				return err
			}
			fmt.Println(e.state.ServerURL.Get())
			if hint := e.keepSession(); hint != "" {
				fmt.Fprintln(os.Stderr, hint)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Go back to the configured server URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.state.ServerURL.Reset(); err != nil {
				return err
			}
			fmt.Println(e.state.ServerURL.Get())
			return nil
		},
	})
	return cmd
}
