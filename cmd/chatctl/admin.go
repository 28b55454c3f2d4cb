package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chating-app/chating/client/internal/render"
	"github.com/chating-app/chating/client/internal/service/room"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Moderate every room",
	}

	admin := func() (*room.Admin, error) {
		client, err := newClient()
		if err != nil {
			return nil, err
		}
		return room.NewAdmin(client), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rooms",
		Short: "List all rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := admin()
			if err != nil {
				return err
			}
			rooms, err := a.Rooms(cmd.Context())
			if err != nil {
				return err
			}
			printRooms(cmd.OutOrStdout(), rooms)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "messages <room>",
		Short: "Print any room's transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := admin()
			if err != nil {
				return err
			}
			msgs, err := a.Messages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Fprintln(cmd.OutOrStdout(), render.Line(m, ""))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <room>",
		Short: "Delete any room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := admin()
			if err != nil {
				return err
			}
			return a.DeleteRoom(cmd.Context(), args[0])
		},
	})
	return cmd
}
