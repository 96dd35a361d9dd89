// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main provides the CLI entrypoint for the workspace engine.
//
// The CLI accepts configuration via flags, environment variables, or
// defaults (flags win over environment variables):
//
//   - Working directory: --working-directory flag, CAUSA_WORKING_DIRECTORY env var, or "."
//   - Environment: --environment flag or CAUSA_ENVIRONMENT env var
//   - Log level: --log-level flag, LOG_LEVEL env var, or "INFO"
//   - Metrics port: --metrics-port flag or METRICS_PORT env var (0 = disabled)
//
// Commands:
//
//	causa render <path>   render the configuration value at the dotted path
//	causa get <path>      print the raw configuration value (templates forbidden)
//	causa projects        list the project directories of the workspace
//	causa setup-folder    prepare the .causa folder for module installation
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/KimMachineGun/automemlimit"

	"github.com/causa-io/workspace/pkg/core/logging"
)

const (
	// DefaultWorkingDirectory is used when neither the flag nor the
	// environment variable is set.
	DefaultWorkingDirectory = "."

	// DefaultLogLevel is used when neither the flag nor the environment
	// variable is set.
	DefaultLogLevel = "INFO"
)

func main() {
	var (
		workingDirectory string
		environment      string
		logLevel         string
		metricsPort      int
	)

	flag.StringVar(&workingDirectory, "working-directory", "",
		"Directory workspace discovery starts from (env: CAUSA_WORKING_DIRECTORY)")
	flag.StringVar(&environment, "environment", "",
		"Environment overlay to apply (env: CAUSA_ENVIRONMENT)")
	flag.StringVar(&logLevel, "log-level", "",
		"Log level: ERROR, WARNING, INFO, DEBUG (env: LOG_LEVEL)")
	flag.IntVar(&metricsPort, "metrics-port", 0,
		"Port for the Prometheus metrics endpoint (0 to disable, env: METRICS_PORT)")
	flag.Parse()

	// Configuration priority: CLI flags > Environment variables > Defaults

	if workingDirectory == "" {
		workingDirectory = os.Getenv("CAUSA_WORKING_DIRECTORY")
	}
	if workingDirectory == "" {
		workingDirectory = DefaultWorkingDirectory
	}

	if environment == "" {
		environment = os.Getenv("CAUSA_ENVIRONMENT")
	}

	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	if metricsPort == 0 {
		if fromEnv, err := strconv.Atoi(os.Getenv("METRICS_PORT")); err == nil {
			metricsPort = fromEnv
		}
	}

	logger := logging.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command := ""
	args := flag.Args()
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	cfg := runConfig{
		workingDirectory: workingDirectory,
		environment:      environment,
		metricsPort:      metricsPort,
		command:          command,
		args:             args,
		logger:           logger,
	}

	if err := run(ctx, cfg); err != nil {
		logger.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}
