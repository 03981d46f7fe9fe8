package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpdateDBCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update-db",
		Short: "Ask the server to process pending content, then reload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			msg, err := e.coord.UpdateDatabase(cmd.Context())
			if msg != "" {
				fmt.Println(msg)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%d narratives, %d publishers\n", len(e.state.Narratives.Get()), len(e.state.PublisherOptions.Get()))
			return nil
		},
	}
}

func newAddCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <content-id>",
		Short: "Queue a content ID for the next database update",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			msg, err := e.client.AddContentID(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("add content id: %w", err)
			}
			fmt.Println(msg)
			return nil
		},
	}
}

func newTopicCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "topic <content-id> <macro-topic>",
		Short: "Change the macro topic of a content ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.client.UpdateContentTopic(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("update topic: %w", err)
			}
			fmt.Printf("%s -> %s\n", args[0], args[1])
			return nil
		},
	}
}
