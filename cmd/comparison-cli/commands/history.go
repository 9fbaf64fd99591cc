package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/comparison-engine/cmd/comparison-cli/ui"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/factories"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent comparison runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc, err := buildServices(ctx, factories.Options{History: true})
	if err != nil {
		return err
	}
	defer closeServices(svc)

	runs, err := svc.Runs.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.Info("No comparison runs recorded yet")
		return nil
	}

	ui.Table([]string{"ID", "STARTED", "STATUS", "STRATEGY", "CHUNKS", "DURATION", "PROMPT"}, historyRows(runs))
	return nil
}

func historyRows(runs []*storage.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(run.Status),
			string(run.Strategy),
			fmt.Sprintf("%d/%d", run.Chunks.Succeeded, run.Chunks.Processed),
			ui.FormatDuration(run.Duration),
			ui.Truncate(run.BasePrompt, 40),
		})
	}
	return rows
}
