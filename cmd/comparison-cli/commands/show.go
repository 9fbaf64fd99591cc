package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/comparison-engine/cmd/comparison-cli/ui"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/factories"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded comparison run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc, err := buildServices(ctx, factories.Options{History: true})
	if err != nil {
		return err
	}
	defer closeServices(svc)

	run, err := svc.Runs.Get(ctx, args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("run %s not found", args[0])
	}
	if err != nil {
		return err
	}

	ui.Section("Run " + run.ID)
	ui.KeyValue("Status", string(run.Status))
	ui.KeyValue("Started", run.CreatedAt.Local().Format(time.RFC1123))
	ui.KeyValue("Documents", strings.Join(run.Documents, ", "))
	if run.Topic != "" {
		ui.KeyValue("Topic", run.Topic)
	}
	if run.SearchType != "" {
		ui.KeyValue("Search type", run.SearchType)
	}
	ui.KeyValue("Prompt", ui.Truncate(run.BasePrompt, 120))

	if run.Status == storage.RunStatusFailed {
		ui.Error("%s", run.Error)
		return nil
	}

	ui.KeyValue("Strategy", string(run.Strategy))
	ui.KeyValue("Chunks", fmt.Sprintf("%d processed, %d failed", run.Chunks.Processed, run.Chunks.Failed))
	ui.KeyValue("Synthesized", fmt.Sprintf("%t", run.Synthesized))
	ui.KeyValue("Duration", ui.FormatDuration(run.Duration))

	ui.Section("Report")
	ui.Message("%s", run.Report)
	return nil
}
