package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	modelroom "github.com/chating-app/chating/client/internal/model/room"
	"github.com/chating-app/chating/client/internal/render"
	"github.com/chating-app/chating/client/internal/service/history"
	"github.com/chating-app/chating/client/internal/service/room"
)

func printRooms(out io.Writer, rooms []modelroom.Room) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROOM\tOWNER\tCREATED\tACTIVE")
	for _, r := range rooms {
		created := "-"
		if ts := r.Created(); !ts.IsZero() {
			created = ts.In(time.Local).Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", r.RoomID, r.Owner, created, r.Active)
	}
	_ = tw.Flush()
}

func newDirectory() (*room.Directory, error) {
	p, err := currentProfile()
	if err != nil {
		return nil, err
	}
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	return room.NewDirectory(client, p.Username, cfg.Session.MaxRooms), nil
}

func newRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage your chat rooms",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := newDirectory()
			if err != nil {
				return err
			}
			rooms, err := dir.List(cmd.Context())
			if err != nil {
				return err
			}
			printRooms(cmd.OutOrStdout(), rooms)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create a room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := newDirectory()
			if err != nil {
				return err
			}
			id, err := dir.Create(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <room>",
		Short: "Delete one of your rooms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := newDirectory()
			if err != nil {
				return err
			}
			return dir.Delete(cmd.Context(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "new-id",
		Short: "Print a fresh ad-hoc room id",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), room.NewAdHocID())
		},
	})
	return cmd
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <room>",
		Short: "Print a room's persisted transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			self := ""
			if p, err := currentProfile(); err == nil {
				self = p.Username
			}

			msgs, err := history.NewLoader(client).Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Fprintln(cmd.OutOrStdout(), render.Line(m, self))
			}
			return nil
		},
	}
}
