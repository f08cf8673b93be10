// Command recur-sync runs the Recur offline sync daemon and its maintenance
// commands.
//
//	recur-sync serve          start the control API, connectivity monitor and scheduler
//	recur-sync sync           probe the API once and run a single sync pass
//	recur-sync queue list     print pending actions
//	recur-sync queue clear    discard every pending action
//
// Configuration comes from the environment (optionally a .env file).
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/recur-sync/internal/config"
	"github.com/tbourn/recur-sync/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cfg is loaded once by the root command before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "recur-sync",
	Short:         "Offline sync queue for the Recur API",
	Long:          "Queues subscription, category and profile mutations while the Recur API is unreachable\nand replays them in order once connectivity returns.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is normal outside development.
		_ = godotenv.Load()

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = loaded

		sysutil.SetLogLevel(cfg.LogLevel)
		log.Logger = sysutil.NewLogger(os.Stderr, cfg.LogPretty, "recur-sync")
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
