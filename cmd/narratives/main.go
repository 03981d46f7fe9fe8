// Command narratives is the terminal client for the narratives server.
//
// Usage:
//
//	narratives                      Browse grouped narratives (TUI)
//	narratives fetch                Print grouped narratives (table, json, yaml)
//	narratives filters show|set|reset
//	narratives publishers list|edit
//	narratives update-db            Ask the server to process pending content
//	narratives add <content-id>     Queue a content ID on the server
//	narratives topic <id> <topic>   Change the macro topic of a content ID
//	narratives follows              Sign in and load follows from relays
//	narratives events               Audit trail viewer
//	narratives server-url show|set|reset
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	serverURL  string
	sessionID  string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "narratives",
		Short:         "Browse and curate narratives grouped by day and publisher",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default ~/.narratives/config.json)")
	pf.StringVar(&opts.serverURL, "server", "", "server URL for this session")
	pf.StringVar(&opts.sessionID, "session", os.Getenv("NARRATIVES_SESSION"), "reuse a session (keeps session-scoped values across commands)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr at debug level")

	root.AddCommand(
		newFetchCmd(opts),
		newFiltersCmd(opts),
		newPublishersCmd(opts),
		newUpdateDBCmd(opts),
		newAddCmd(opts),
		newTopicCmd(opts),
		newChatCmd(opts),
		newKeysCmd(opts),
		newFollowsCmd(opts),
		newEventsCmd(opts),
		newServerURLCmd(opts),
		newSlotsCmd(opts),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "narratives: %v\n", err)
		stop()
		os.Exit(1)
	}
}
