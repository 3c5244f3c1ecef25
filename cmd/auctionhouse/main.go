package main

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"auctionhouse/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "auctionhouse",
	Short:         "Auction marketplace API and event archiver",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "TOML config file (overrides CONFIG_FILE)")
}

// loadConfig resolves the config and tees the standard logger into LOG_FILE when set.
// The returned func closes the log file.
func loadConfig() (config.Config, func()) {
	if configFile != "" {
		_ = os.Setenv("CONFIG_FILE", configFile)
	}
	cfg := config.Load()
	if cfg.LogFile == "" {
		return cfg, func() {}
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		return cfg, func() {}
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))
	return cfg, func() { _ = f.Close() }
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("[fatal] %v", err)
		os.Exit(1)
	}
}
