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

// Package orchestrator validates inputs, builds one sort job per input
// file, and drives every job to completion. Each job samples its input,
// publishes partition boundaries, and is then handed to the executor; jobs
// run independently and a failure in one never cancels another.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/shardsort/internal/executor"
	"github.com/cardinalhq/shardsort/internal/logctx"
	"github.com/cardinalhq/shardsort/internal/partition"
	"github.com/cardinalhq/shardsort/internal/sampler"
)

// Orchestrator runs one invocation's worth of sort jobs. Its control flow is
// single threaded: submit every job, then wait on each in turn. The
// executor provides all record-level parallelism.
type Orchestrator struct {
	Exec       executor.Executor
	Sampler    sampler.Sampler
	KeyColumn  int
	Partitions int

	jobs []*SortJob
}

// New wires an Orchestrator for the given executor and sort parameters.
func New(exec executor.Executor, s sampler.Sampler, keyColumn, partitions int) *Orchestrator {
	return &Orchestrator{
		Exec:       exec,
		Sampler:    s,
		KeyColumn:  keyColumn,
		Partitions: partitions,
	}
}

// Jobs returns the job registry, populated during the submit phase.
func (o *Orchestrator) Jobs() []*SortJob {
	return o.jobs
}

// Run sorts every input file into outputDir. It returns nil only if every
// job succeeded; a *UsageError if validation failed before anything was
// submitted; otherwise the aggregate of the failed jobs' errors.
func (o *Orchestrator) Run(ctx context.Context, outputDir string, inputs []string) error {
	ll := logctx.FromContext(ctx)

	absInputs, err := validateInputs(outputDir, inputs)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	// Submit phase: every job is submitted before the first wait so that
	// jobs overlap with each other.
	for _, input := range absInputs {
		job, err := o.submitJob(ctx, input, outputDir)
		if err != nil {
			return fmt.Errorf("submitting job for %s: %w", input, err)
		}
		o.jobs = append(o.jobs, job)
	}

	// Wait phase: block on each job in turn. A failed job marks the run
	// failed but its siblings keep running to their own terminal state.
	var result *multierror.Error
	for _, job := range o.jobs {
		jl := ll.With(
			slog.String("jobID", job.ID.String()),
			slog.String("input", job.Config.InputPath))
		if err := job.handle.Wait(ctx); err != nil {
			job.Status = JobFailed
			jl.Error("Sort job failed", slog.Any("error", err))
			result = multierror.Append(result, err)
			continue
		}
		job.Status = JobSucceeded
		jl.Info("Sort job succeeded")
	}
	return result.ErrorOrNil()
}

// submitJob samples one input, publishes its partition boundaries, and
// hands the job to the executor. Boundaries are fully published before
// submission, so no worker can partition a record against missing state.
func (o *Orchestrator) submitJob(ctx context.Context, inputPath, outputDir string) (*SortJob, error) {
	ll := logctx.FromContext(ctx)

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("opening input for sampling: %w", err)
	}
	sample, err := o.Sampler.Sample(ctx, f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("sampling: %w", err)
	}

	bounds, err := partition.BuildBoundaries(sample, o.Partitions)
	if err != nil {
		return nil, err
	}

	inputName := filepath.Base(inputPath)
	manifestPath := partition.ManifestPath(inputPath)
	if err := partition.WriteManifest(manifestPath, inputName, bounds); err != nil {
		return nil, err
	}

	job := &SortJob{
		ID: uuid.New(),
		Config: executor.JobConfig{
			InputPath:    inputPath,
			InputName:    inputName,
			OutputDir:    outputDir,
			ManifestPath: manifestPath,
			KeyColumn:    o.KeyColumn,
		},
		Status: JobPending,
	}

	handle, err := o.Exec.Submit(ctx, job.Config)
	if err != nil {
		job.Status = JobFailed
		return nil, err
	}
	job.handle = handle
	job.Status = JobRunning

	ll.Info("Submitted sort job",
		slog.String("jobID", job.ID.String()),
		slog.String("input", inputPath),
		slog.Int("samples", len(sample)),
		slog.Int("partitions", o.Partitions))
	return job, nil
}

// validateInputs applies every pre-submission check and returns the inputs
// as absolute paths. Any failure means nothing has been submitted.
func validateInputs(outputDir string, inputs []string) ([]string, error) {
	if st, err := os.Stat(outputDir); err == nil && !st.IsDir() {
		return nil, usageErrorf("specified output directory %q is not a directory", outputDir)
	}

	abs := make([]string, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, input := range inputs {
		p, err := filepath.Abs(input)
		if err != nil {
			return nil, usageErrorf("cannot resolve input path %q: %v", input, err)
		}
		if seen[p] {
			return nil, usageErrorf("duplicate file names specified: %q", input)
		}
		seen[p] = true
		abs = append(abs, p)
	}

	for _, p := range abs {
		st, err := os.Stat(p)
		if err != nil {
			return nil, usageErrorf("file %q is not a file: %v", p, err)
		}
		if !st.Mode().IsRegular() {
			return nil, usageErrorf("file %q is not a file", p)
		}
	}
	return abs, nil
}
