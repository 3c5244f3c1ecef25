package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"auctionhouse/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Drain the JetStream event stream into Postgres",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, closeLog := loadConfig()
		defer closeLog()
		if cfg.NatsURL == "" {
			cfg.NatsURL = "nats://localhost:4222"
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sink, err := archive.NewPostgresSink(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.InitSchema(ctx); err != nil {
			return err
		}

		cons, err := archive.NewConsumer(ctx, cfg.NatsURL, sink)
		if err != nil {
			return err
		}
		defer cons.Close()

		log.Printf("[archive] consuming %s as %s", cfg.NatsURL, archive.DurableName)
		err = cons.Run(ctx)
		log.Printf("[archive] stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}
