// Copyright 2025 The DBQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"

	"github.com/DataBridgeTech/dbqflag"
	"github.com/DataBridgeTech/dbqflag/dbq"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configFile string
	envFile    string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:          "dbqflag",
		Short:        "Runs yearly quality control checks and flags offending records",
		Version:      dbq.GetDbqFlagLibVersion(),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "dbqflag.yaml", "run configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "optional .env file with DBQFLAG_* overrides")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newRunCmd(flags), newListCmd(flags), newPingCmd(flags))
	return rootCmd
}

func newLogger(flags *globalFlags) *slog.Logger {
	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openRunner(flags *globalFlags, logger *slog.Logger) (*dbq.Runner, *dbqflag.RunConfig, error) {
	cfg, err := dbqflag.LoadRunConfig(flags.configFile, flags.envFile)
	if err != nil {
		return nil, nil, err
	}
	runner, err := dbq.NewRunner(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return runner, cfg, nil
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every enabled check for the configured protocol and year",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags)
			runner, cfg, err := openRunner(flags, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			report, err := runner.Run(ctx)
			if report != nil {
				printReport(cmd, cfg, report)
			}
			return err
		},
	}
}

func printReport(cmd *cobra.Command, cfg *dbqflag.RunConfig, report *dbqflag.RunReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %s %d\n", report.RunID, cfg.Protocol, cfg.Year)
	for _, o := range report.Outcomes {
		fmt.Fprintf(out, "  ok    %-45s rows=%-6d flagged=%-6d already=%-6d %s\n",
			o.CheckID, o.RowCount, o.Flagged, o.AlreadyFlagged, o.Result)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  fail  %-45s %v\n", f.CheckID, f.Err)
	}
	if report.Aborted {
		fmt.Fprintln(out, "run aborted")
	}
}

func newListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the checks registered for the configured protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := dbqflag.LoadRunConfig(flags.configFile, flags.envFile)
			if err != nil {
				return err
			}

			var checksFile *dbqflag.ChecksFileConfig
			if cfg.ChecksSource == dbqflag.ChecksSourceFile {
				if checksFile, err = dbqflag.LoadChecksFileConfig(cfg.ChecksFile); err != nil {
					return err
				}
			}
			registry, err := dbq.NewRegistry(dbq.Protocols(), checksFile, cfg.Protocol)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range registry.IDs() {
				def, _ := registry.Resolve(id)
				fmt.Fprintf(out, "%-45s %-13s %s\n", id, def.QueryType(), def.Description(cfg.Year))
			}
			return nil
		},
	}
}

func newPingCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the configured stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, _, err := openRunner(flags, newLogger(flags))
			if err != nil {
				return err
			}
			defer runner.Close()

			info, err := runner.Ping(cmd.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(info))
			for name := range info {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, info[name])
			}
			return nil
		},
	}
}
