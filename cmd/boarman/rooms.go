package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var forceFlag bool

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Manage conversation rooms",
}

var roomsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rooms by most recent activity",
	RunE:  runRoomsList,
}

var roomsDeleteCmd = &cobra.Command{
	Use:   "delete <room>",
	Short: "Delete every message in a room",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoomsDelete,
}

func init() {
	roomsDeleteCmd.Flags().BoolVar(&forceFlag, "force", false, "Skip confirmation")
	roomsCmd.AddCommand(roomsListCmd, roomsDeleteCmd)
	rootCmd.AddCommand(roomsCmd)
}

func runRoomsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rooms, err := store.ListRooms(context.Background())
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		fmt.Println("No rooms found.")
		return nil
	}

	fmt.Printf("%-30s %-10s %s\n", "ROOM", "MESSAGES", "UPDATED")
	fmt.Println(strings.Repeat("─", 55))
	for _, r := range rooms {
		fmt.Printf("%-30s %-10d %s\n", truncate(r.ID, 28), r.MessageCount, timeAgo(r.UpdatedAt))
	}
	return nil
}

func runRoomsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	room := args[0]
	if !forceFlag {
		fmt.Printf("Delete room %q? [y/N] ", room)
		var confirm string
		fmt.Scanln(&confirm)
		if strings.ToLower(confirm) != "y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := store.DeleteRoom(context.Background(), room); err != nil {
		return err
	}
	fmt.Printf("Deleted room %s\n", room)
	return nil
}
