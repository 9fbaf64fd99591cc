package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/comparison-engine/cmd/comparison-cli/ui"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/factories"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the topics usable with --topic",
	RunE:  runTopics,
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(context.Background(), factories.Options{})
	if err != nil {
		return err
	}
	defer closeServices(svc)

	rows := [][]string{}
	for _, topic := range svc.Topics.Topics() {
		rows = append(rows, []string{topic.Key, topic.Title})
	}
	ui.Table([]string{"KEY", "TITLE"}, rows)

	if ui.Verbose() {
		for _, topic := range svc.Topics.Topics() {
			ui.Section(topic.Title)
			ui.Message("%s", topic.Context)
		}
	}
	return nil
}
