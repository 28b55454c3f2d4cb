package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chating-app/chating/client/internal/service/auth"
)

func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLoginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and remember the identity locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readSecret(cmd.InOrStdin(), cmd.OutOrStdout(), "password: "); err != nil {
					return err
				}
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			p, err := auth.NewService(client).Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}

			store, err := openProfiles()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Save(p); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s님, 로그인 되었습니다.\n", p.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <name> <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readSecret(cmd.InOrStdin(), cmd.OutOrStdout(), "password: "); err != nil {
					return err
				}
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			if err := auth.NewService(client).Register(cmd.Context(), args[0], args[1], password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openProfiles()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Clear()
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := currentProfile()
			if err != nil {
				return err
			}
			if p.Name != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", p.Username, p.Name)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.Username)
			return nil
		},
	}
}
