package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/comparison-engine/cmd/comparison-cli/ui"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/comparison"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/document"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/factories"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/storage"
)

var (
	compareDocs       []string
	comparePrompt     string
	comparePromptFile string
	compareSearchType string
	compareTopic      string
	compareOutput     string
	compareNoSave     bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare documents against a base prompt",
	Long: `Load one or more documents, analyse them chunk by chunk and synthesise a
report. Supported inputs are .txt, .md and .pdf files.`,
	Example: `  comparison compare --doc policy.pdf --doc standard.pdf \
    --prompt "Compare the incident reporting obligations" --topic incident_management`,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringArrayVarP(&compareDocs, "doc", "d", nil, "document to compare (repeatable)")
	compareCmd.Flags().StringVarP(&comparePrompt, "prompt", "p", "", "base prompt")
	compareCmd.Flags().StringVar(&comparePromptFile, "prompt-file", "", "read the base prompt from a file")
	compareCmd.Flags().StringVar(&compareSearchType, "search-type", "", "retrieval search type override (HYBRID or SEMANTIC)")
	compareCmd.Flags().StringVarP(&compareTopic, "topic", "t", "", "topic key adding analysis context (see 'topics')")
	compareCmd.Flags().StringVarP(&compareOutput, "output", "o", "", "write the report to a file")
	compareCmd.Flags().BoolVar(&compareNoSave, "no-save", false, "do not record the run in history")
	compareCmd.MarkFlagRequired("doc")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	basePrompt, err := readPrompt(comparePrompt, comparePromptFile)
	if err != nil {
		return err
	}

	svc, err := buildServices(ctx, factories.Options{Generation: true, History: !compareNoSave})
	if err != nil {
		return err
	}
	defer closeServices(svc)

	if compareTopic != "" && !svc.Topics.Has(compareTopic) {
		ui.Warning("Unknown topic %q, continuing without topic context", compareTopic)
	}

	docs, err := loadDocuments(compareDocs)
	if err != nil {
		return err
	}

	ui.Section("Document Comparison")
	for _, doc := range docs {
		ui.KeyValue("Document", fmt.Sprintf("%s (%d chars)", doc.Name, len(doc.Text)))
	}
	ui.Newline()

	req := comparison.Request{
		BasePrompt:   basePrompt,
		DocumentText: document.Combine(docs...),
		SearchMode:   compareSearchType,
		TopicKey:     compareTopic,
	}

	tracker := ui.NewProgressTracker()
	pipeline := svc.Pipeline(comparison.WithProgress(tracker))

	report, runErr := pipeline.Compare(ctx, req)

	if svc.Runs != nil {
		run := storage.NewRun(req, documentNames(docs), report, runErr)
		if err := svc.Runs.Save(ctx, run); err != nil {
			ui.Warning("Could not record run: %v", err)
		} else {
			ui.Debug("Recorded run %s", run.ID)
		}
	}

	if runErr != nil {
		return fmt.Errorf("comparison failed: %w", runErr)
	}

	printReportSummary(report)

	if compareOutput != "" {
		if err := os.WriteFile(compareOutput, []byte(report.Text), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		ui.Success("Report written to %s", compareOutput)
		return nil
	}

	ui.Section("Report")
	ui.Message("%s", report.Text)
	return nil
}

// loadDocuments extracts text from every path, showing a spinner meanwhile.
func loadDocuments(paths []string) ([]*document.Document, error) {
	spin := ui.NewSpinner("Loading documents...")
	spin.Start()
	defer spin.Stop()

	docs := make([]*document.Document, 0, len(paths))
	for _, path := range paths {
		spin.UpdateMessage("Loading " + filepath.Base(path) + "...")
		doc, err := document.Load(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func documentNames(docs []*document.Document) []string {
	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.Name
	}
	return names
}

func printReportSummary(report *comparison.Report) {
	ui.Success("Analysis complete in %s", ui.FormatDuration(report.Timings.Total))
	ui.KeyValue("Run", report.RunID)
	ui.KeyValue("Strategy", string(report.Strategy))
	ui.KeyValue("Chunks", fmt.Sprintf("%d processed, %d failed", report.Chunks.Processed, report.Chunks.Failed))
	if !report.Synthesized {
		ui.Warning("Synthesis failed; the report lists the individual section analyses")
	}

	if ui.Verbose() {
		scores := make([]string, 0, len(report.Scores))
		for _, s := range report.Scores {
			scores = append(scores, fmt.Sprintf("%s: %.3f (%d spans)", s.Strategy, s.Score, s.Spans))
		}
		ui.Message("Strategy scores:\n%s", strings.TrimRight(ui.FormatList(scores), "\n"))
	}
}
