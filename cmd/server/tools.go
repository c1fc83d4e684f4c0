package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homepage/pkg/database"
	"homepage/pkg/envelope"
	"homepage/pkg/hub"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the postgres schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := bindConfig(cmd)
		if err != nil {
			return err
		}
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		return database.Migrate(db)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [ws-url]",
	Short: "Print live board events from a running server",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := "ws://localhost:8082/ws"
		if len(args) == 1 {
			url = args[0]
		}

		w := hub.NewWatcher(url, 3*time.Second, 30*time.Second)
		w.OnMessage(func(env envelope.Envelope) {
			if env.Action == "pong" {
				return
			}
			ts := time.UnixMilli(env.Timestamp).Format(time.RFC3339)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-14s %s\n", ts, env.Action, string(env.Data))
		})

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sig
			w.Close()
		}()

		w.Run()
		return nil
	},
}
