package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/causa-io/workspace/pkg/metrics"
	"github.com/causa-io/workspace/pkg/secrets"
	"github.com/causa-io/workspace/pkg/workspace"
)

// runConfig is the resolved CLI configuration.
type runConfig struct {
	workingDirectory string
	environment      string
	metricsPort      int
	command          string
	args             []string
	logger           *slog.Logger
}

// run initializes a workspace context and executes the requested command.
func run(ctx context.Context, cfg runConfig) error {
	var instruments *metrics.Instruments
	if cfg.metricsPort > 0 {
		registry := prometheus.NewRegistry()
		instruments = metrics.NewInstruments(registry)

		server := metrics.NewServer(fmt.Sprintf(":%d", cfg.metricsPort), registry, cfg.logger)
		go func() {
			if err := server.Start(ctx); err != nil {
				cfg.logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	c, err := workspace.Init(ctx, workspace.Options{
		WorkingDirectory:        cfg.workingDirectory,
		Environment:             cfg.environment,
		Logger:                  cfg.logger,
		Instruments:             instruments,
		FunctionImplementations: secrets.Implementations(),
	})
	if err != nil {
		return err
	}

	switch cfg.command {
	case "render":
		if len(cfg.args) != 1 {
			return fmt.Errorf("usage: causa render <path>")
		}
		value, err := c.GetAndRenderOrError(ctx, cfg.args[0])
		if err != nil {
			return err
		}
		return printValue(value)

	case "get":
		if len(cfg.args) != 1 {
			return fmt.Errorf("usage: causa get <path>")
		}
		value, err := c.GetOrError(cfg.args[0])
		if err != nil {
			return err
		}
		return printValue(value)

	case "projects":
		paths, err := c.ListProjectPaths()
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Println(path)
		}
		return nil

	case "setup-folder":
		folder, err := c.SetupWorkspaceFolder()
		if err != nil {
			return err
		}
		fmt.Println(folder)
		return nil

	case "":
		return fmt.Errorf("no command given; expected render, get, projects, or setup-folder")

	default:
		return fmt.Errorf("unknown command %q", cfg.command)
	}
}

// printValue writes a configuration value to stdout: strings verbatim,
// everything else as JSON.
func printValue(value any) error {
	if s, ok := value.(string); ok {
		fmt.Println(s)
		return nil
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
