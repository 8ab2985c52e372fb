package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/globals"
	"github.com/tcriess/lightspeed-queue/persistence"
	"github.com/tcriess/lightspeed-queue/types"
)

// A very simple CLI tool for inspecting the persisted state of a
// lightspeed-queue instance.

var configPath = pflag.StringP("config", "c", "", "path to config file or directory")

func main() {
	log.SetFlags(0)

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}
	if globalConfig.LogLevel != "" {
		globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))
	}

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	if persister == nil {
		panic("no persistence configured")
	}
	defer persister.Close()

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show rooms, queues or tas",
		Args:  cobra.MinimumNArgs(0),
	}
	var cmdShowRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show rooms",
		Long:  `show rooms lists all persisted rooms.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			rooms, err := persister.GetRooms()
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			r, err := json.Marshal(rooms)
			if err != nil {
				globals.AppLogger.Error("could not marshal rooms", "error", err)
				return
			}
			fmt.Println(string(r))
		},
	}
	var cmdShowQueue = &cobra.Command{
		Use:   "queue [room code]",
		Short: "Show the persisted queue of a room",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			entrants, err := persister.GetQueue(args[0])
			if err != nil {
				globals.AppLogger.Error("could not get queue", "error", err)
				return
			}
			// outward-facing listing: positions derived, contacts hidden
			entries := make([]types.QueueEntry, 0, len(entrants))
			for i, entrant := range entrants {
				entries = append(entries, types.QueueEntry{Entrant: entrant, Position: i + 1})
			}
			q, err := json.Marshal(entries)
			if err != nil {
				globals.AppLogger.Error("could not marshal queue", "error", err)
				return
			}
			fmt.Println(string(q))
		},
	}
	var cmdShowTAs = &cobra.Command{
		Use:   "tas",
		Short: "Show TAs",
		Long:  `show tas lists all persisted TAs.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			tas, err := persister.GetTAs()
			if err != nil {
				globals.AppLogger.Error("could not get tas", "error", err)
				return
			}
			t, err := json.Marshal(tas)
			if err != nil {
				globals.AppLogger.Error("could not marshal tas", "error", err)
				return
			}
			fmt.Println(string(t))
		},
	}

	var rootCmd = &cobra.Command{Use: "lightspeed-queue-admin"}
	rootCmd.AddCommand(cmdShow)
	cmdShow.AddCommand(cmdShowRooms, cmdShowQueue, cmdShowTAs)
	if err := rootCmd.Execute(); err != nil {
		globals.AppLogger.Error("could not execute command", "error", err)
	}
}
