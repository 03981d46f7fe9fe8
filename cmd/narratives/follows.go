package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelbrown/narratives/internal/social"
	"github.com/abelbrown/narratives/internal/state"
)

func newFollowsCmd(root *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "follows",
		Short: "Show the signed-in user and their follows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			user := e.state.CurrentUser.Get()
			if user == nil {
				fmt.Println("Not signed in. Use 'narratives follows login'.")
				return nil
			}

			name := user.Name
			if name == "" {
				name = social.Truncate(user.Npub, 0)
			}
			follows := e.state.UserFollows.Get().ToSlice()
			slices.Sort(follows)
			fmt.Printf("%s follows %d keys\n", name, len(follows))
			for i, pk := range follows {
				if limit > 0 && i >= limit {
					fmt.Printf("... %d more\n", len(follows)-limit)
					break
				}
				fmt.Println("  " + pk)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "follows to list (0 = all)")

	cmd.AddCommand(newLoginCmd(root), newLogoutCmd(root), newRelaysCmd(root))
	return cmd
}

func newLoginCmd(root *rootOptions) *cobra.Command {
	var (
		user      state.User
		nsecStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and load follows from the configured relays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user.Pubkey == "" {
				return fmt.Errorf("--pubkey is required")
			}

			var nsec string
			if nsecStdin {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read nsec: %w", err)
				}
				nsec = strings.TrimSpace(line)
			}

			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			if nsec != "" {
				if err := e.state.NsecKey.Set(nsec); err != nil {
					return fmt.Errorf("store key: %w", err)
				}
				if hint := e.keepSession(); hint != "" {
					fmt.Fprintln(os.Stderr, "Key kept for this session: "+hint)
				}
			}

			relays := social.NewRelayClient(e.cfg.RelayTimeout, e.audit)
			err = relays.PrepareSession(cmd.Context(), e.state, user)
			if errors.Is(err, social.ErrNoRelay) {
				fmt.Fprintf(os.Stderr, "Signed in, but no relay answered (%s); follows unchanged\n", strings.Join(e.state.ActiveRelays(), ", "))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Signed in as %s with %d follows\n", social.Truncate(user.Npub, 0), e.state.UserFollows.Get().Cardinality())
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&user.Npub, "npub", "", "bech32 public key (display)")
	fl.StringVar(&user.Pubkey, "pubkey", "", "hex public key used to query relays")
	fl.StringVar(&user.Name, "name", "", "display name")
	fl.BoolVar(&nsecStdin, "nsec-stdin", false, "read the secret key from stdin and keep it for this session")
	return cmd
}

func newLogoutCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in user, their follows and the session key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := social.Logout(e.state); err != nil {
				return err
			}
			fmt.Println("Signed out")
			return nil
		},
	}
}

func newRelaysCmd(root *rootOptions) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "relays [url...]",
		Short: "Show or replace the relay list",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.Close()

			switch {
			case reset:
				err = e.state.Relays.Set([]string{})
			case len(args) > 0:
				err = e.state.Relays.Set(args)
			}
			if err != nil {
				return fmt.Errorf("save relays: %w", err)
			}

			for _, r := range e.state.ActiveRelays() {
				fmt.Println(r)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "go back to the default relays")
	return cmd
}
