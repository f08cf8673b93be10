package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/tbourn/recur-sync/internal/config"
	"github.com/tbourn/recur-sync/internal/services"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Probe the Recur API once and run a single sync pass",
	Long:  "Check connectivity, replay pending actions if the API is reachable and print the pass report as JSON.\nWhen the API is unreachable the pass is skipped and nothing is changed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSyncOnce(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

// syncOutput is what the sync command prints.
type syncOutput struct {
	Online bool                `json:"online"`
	Report services.SyncReport `json:"report"`
	State  services.QueueState `json:"state"`
}

func runSyncOnce(ctx context.Context, cfg config.Config, out io.Writer) error {
	pctx, cancel := context.WithTimeout(ctx, cfg.Connectivity.ProbeTimeout)
	probeErr := newRemote(cfg).Health(pctx)
	cancel()
	online := probeErr == nil

	a, err := openApp(ctx, cfg, online)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	if !online {
		a.log.Warn().Err(probeErr).Msg("recur api unreachable, sync skipped")
	}
	report, err := a.queue.SyncPendingActions(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(syncOutput{Online: online, Report: report, State: a.queue.State()})
}
