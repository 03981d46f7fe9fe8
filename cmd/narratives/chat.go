package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelbrown/narratives/internal/api"
	"github.com/abelbrown/narratives/internal/logging"
)

func newChatCmd(root *rootOptions) *cobra.Command {
	var contentIDs []string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the server's assistant about a set of content IDs",
		Long: `Ask the server's assistant about a set of content IDs.

With a message argument a single question is asked. Without one, questions
are read from stdin, one per line, until EOF.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(contentIDs) == 0 {
				return fmt.Errorf("at least one --content id is required")
			}

			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			if err := e.client.LoadChatContent(ctx, contentIDs); err != nil {
				return err
			}
			defer func() {
				// The assistant is deleted even when ctx was cancelled.
				if err := e.client.CloseChat(context.WithoutCancel(ctx)); err != nil {
					logging.Warn("Close chat failed", "error", err)
				}
			}()

			if len(args) > 0 {
				return ask(ctx, e.client, strings.Join(args, " "))
			}

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if err := ask(ctx, e.client, line); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringSliceVarP(&contentIDs, "content", "c", nil, "content IDs to load into the assistant")
	return cmd
}

func ask(ctx context.Context, c *api.Client, message string) error {
	reply, err := c.Chat(ctx, message)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func newKeysCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage third-party API keys stored on the server",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored API keys (masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			keys, err := e.client.FetchAPIKeys(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Printf("%-20s %s\n", k.API, maskKey(k.Key))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <api> <key>",
		Short: "Create or replace the key for an API",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.client.UpdateAPIKey(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("%s updated\n", args[0])
			return nil
		},
	})
	return cmd
}

// maskKey keeps the first four characters of key.
func maskKey(key string) string {
	runes := []rune(key)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:4]) + strings.Repeat("*", 8)
}
