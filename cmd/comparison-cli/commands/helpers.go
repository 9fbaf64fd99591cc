package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spherical-ai/spherical/libs/comparison-engine/cmd/comparison-cli/ui"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/config"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/factories"
)

// loadConfig loads the config file named by --config, or defaults plus
// environment overrides. Verbose mode lowers the log level to debug.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Observability.LogLevel = "debug"
	} else if os.Getenv("LOG_LEVEL") == "" {
		// keep the progress display readable
		cfg.Observability.LogLevel = "error"
	}
	return cfg, nil
}

// buildServices loads config and creates the requested services.
func buildServices(ctx context.Context, opts factories.Options) (*factories.Services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts.ServiceName = "comparison-cli"

	svc, err := factories.Build(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// readPrompt returns the inline prompt or the contents of the prompt file.
func readPrompt(inline, path string) (string, error) {
	if inline != "" && path != "" {
		return "", fmt.Errorf("use either --prompt or --prompt-file, not both")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read prompt file: %w", err)
		}
		inline = string(data)
	}
	if strings.TrimSpace(inline) == "" {
		return "", fmt.Errorf("a base prompt is required (--prompt or --prompt-file)")
	}
	return inline, nil
}

// closeServices releases services, reporting failures in verbose mode.
func closeServices(svc *factories.Services) {
	if err := svc.Close(); err != nil {
		ui.Debug("close: %v", err)
	}
}
