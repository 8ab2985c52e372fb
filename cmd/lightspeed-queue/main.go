package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/globals"
	"github.com/tcriess/lightspeed-queue/identity"
	"github.com/tcriess/lightspeed-queue/notify"
	"github.com/tcriess/lightspeed-queue/persistence"
	"github.com/tcriess/lightspeed-queue/room"
	"github.com/tcriess/lightspeed-queue/roster"
	"github.com/tcriess/lightspeed-queue/server"
	"github.com/tcriess/lightspeed-queue/types"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	addr       = pflag.String("addr", "localhost:8000", "service address (including port)")
	sslCert    = pflag.String("ssl-cert", "", "SSL cert (optional)")
	sslKey     = pflag.String("ssl-key", "", "SSL key (optional)")
	devMode    = pflag.Bool("dev", false, "enable development endpoints")
)

func main() {
	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()
	log.SetFlags(0)

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

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		if persister != nil {
			_ = persister.Close()
		}
		log.Fatal("interrupted!")
	}()

	hasher := identity.NewHasher(globalConfig.IdentityConfig.Secret)
	directory := room.NewDirectory(globalConfig.RoomsConfig, hasher)
	taRegistry := roster.NewRegistry()

	if persister != nil {
		defer persister.Close()
		rooms, err := persister.GetRooms()
		if err != nil {
			panic(err)
		}
		for _, meta := range rooms {
			entrants, err := persister.GetQueue(meta.Code)
			if err != nil {
				globals.AppLogger.Error("could not restore queue", "room", meta.Code, "error", err)
				entrants = nil
			}
			directory.RestoreRoom(*meta, entrants)
			globals.AppLogger.Info("restored room", "code", meta.Code, "waiting", len(entrants))
		}
		tas, err := persister.GetTAs()
		if err != nil {
			panic(err)
		}
		taRegistry.Restore(tas)
	}

	// the well-known default room always exists, the explicit-code path makes
	// this idempotent across restarts and restores
	defaultRoom := directory.CreateRoom(
		globalConfig.RoomsConfig.DefaultRoomName,
		"system",
		globalConfig.RoomsConfig.DefaultRoomCode,
	)
	if persister != nil {
		if err := persister.StoreRoom(defaultRoom.Room); err != nil {
			globals.AppLogger.Error("could not persist default room", "error", err)
		}
	}

	sender := notify.NewSender(globalConfig.NotifierConfig)
	dispatcher := notify.NewDispatcher(sender, globalConfig.NotifierConfig)

	srv := server.New(globalConfig, directory, taRegistry, dispatcher, sender, persister, *devMode)

	cronRunner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err = cronRunner.AddFunc("@every 1m", func() {
		for _, rm := range directory.Rooms() {
			if persister != nil {
				// periodic sweep in addition to the per-mutation store, so a
				// missed store cannot go stale for longer than one interval
				snapshot := rm.Queue.Snapshot()
				entrants := make([]*types.Entrant, 0, len(snapshot))
				for _, entry := range snapshot {
					entrants = append(entrants, entry.Entrant)
				}
				if err := persister.StoreQueue(rm.Code, entrants); err != nil {
					globals.AppLogger.Error("could not persist queue", "room", rm.Code, "error", err)
				}
			}
			waiting := rm.Queue.Len()
			if waiting > 0 {
				globals.AppLogger.Info("queue stats", "room", rm.Code, "waiting", waiting, "watchers", srv.Watchers(rm.Code))
			}
		}
	})
	if err != nil {
		panic(err)
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	http.Handle("/", srv.Router())
	globals.AppLogger.Info("listening", "addr", *addr)
	if *sslCert != "" && *sslKey != "" {
		err = http.ListenAndServeTLS(*addr, *sslCert, *sslKey, nil)
	} else {
		err = http.ListenAndServe(*addr, nil)
	}
	globals.AppLogger.Error("stopped listening", "error", err)
}
