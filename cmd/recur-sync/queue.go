package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/recur-sync/internal/config"
	"github.com/tbourn/recur-sync/internal/domain"
	"github.com/tbourn/recur-sync/internal/repo"
)

func init() {
	queueListCmd.Flags().Bool("json", false, "print actions as JSON")
	queueClearCmd.Flags().Bool("yes", false, "confirm discarding every pending action")
	queueCmd.AddCommand(queueListCmd, queueClearCmd)
	rootCmd.AddCommand(queueCmd)
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect or reset the offline queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print pending actions in replay order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return listQueue(cmd.Context(), cfg, cmd.OutOrStdout(), asJSON)
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard every pending action",
	Long:  "Delete all pending actions from the queue database. Run this only while the daemon is stopped.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return errors.New("refusing to clear the queue without --yes")
		}
		return clearQueue(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func listQueue(ctx context.Context, cfg config.Config, out io.Writer, asJSON bool) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	actions, err := repo.GetOfflineActions(ctx, db)
	if err != nil {
		return err
	}
	if asJSON {
		if actions == nil {
			actions = []domain.OfflineAction{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(actions)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tENTITY\tQUEUED AT\tRETRIES\tLAST ERROR")
	for _, a := range actions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			a.ID, a.Type, a.Entity, a.Timestamp.UTC().Format(time.RFC3339), a.RetryCount, a.MaxRetries, a.LastError)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d pending\n", len(actions))
	return nil
}

func clearQueue(ctx context.Context, cfg config.Config, out io.Writer) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	n, err := repo.CountOfflineActions(ctx, db)
	if err != nil {
		return err
	}
	if err := repo.ClearOfflineActions(ctx, db); err != nil {
		return err
	}
	fmt.Fprintf(out, "cleared %d pending actions\n", n)
	return nil
}
