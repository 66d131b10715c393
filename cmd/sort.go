// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/shardsort/config"
	"github.com/cardinalhq/shardsort/internal/executor"
	"github.com/cardinalhq/shardsort/internal/orchestrator"
	"github.com/cardinalhq/shardsort/internal/sampler"
)

func init() {
	rootCmd.AddCommand(sortCmd)
}

var sortCmd = &cobra.Command{
	Use:   "sort <output-directory> <file> [file...]",
	Short: "Sort each input file into globally ordered shards",
	Long: `Sort each input file, independently and concurrently, into a set of
output shards that concatenate in name order to the fully sorted file.
All jobs share the given output directory.`,
	Args:         cobra.MinimumNArgs(2),
	SilenceUsage: true,
	RunE:         runSort,
}

func runSort(cmd *cobra.Command, args []string) error {
	runStarted = true

	cfg, err := config.Load()
	if err != nil {
		return &orchestrator.UsageError{Msg: fmt.Sprintf("invalid configuration: %v", err)}
	}

	ctx, cancel := setupLogging("shardsort")
	defer cancel()

	outputDir := args[0]
	inputs := args[1:]

	slog.Info("Starting sort run",
		slog.String("outputDir", outputDir),
		slog.Int("inputs", len(inputs)),
		slog.Int("partitions", cfg.Sort.Partitions),
		slog.Int("keyColumn", cfg.Sort.KeyColumn))

	s := &sampler.IntervalSampler{
		Probability: cfg.Sort.SampleProbability,
		MaxSamples:  cfg.Sort.MaxSamples,
		KeyColumn:   cfg.Sort.KeyColumn,
	}
	o := orchestrator.New(
		executor.NewLocalExecutor(cfg.Sort.MapWorkers),
		s,
		cfg.Sort.KeyColumn,
		cfg.Sort.Partitions,
	)

	// Cobra prints the returned error to stderr; Execute maps it to the
	// right exit code.
	if err := o.Run(ctx, outputDir, inputs); err != nil {
		return err
	}

	slog.Info("All sort jobs succeeded", slog.Int("jobs", len(o.Jobs())))
	return nil
}
