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

// Package executor defines the contract between the sort orchestrator and
// whatever actually runs a job's record processing: an in-process worker
// pool here, a cluster scheduler in production. Scheduling concerns such as
// retries, locality, and shuffle transport live entirely behind this
// interface.
package executor

import (
	"context"
	"fmt"
)

// JobConfig is everything a submitted sort job needs; it is immutable once
// the job is submitted. Workers re-derive all other state from the input
// file and the published boundary manifest.
type JobConfig struct {
	// InputPath is the absolute path of the file to sort.
	InputPath string
	// InputName is the bare filename, used to build shard names.
	InputName string
	// OutputDir receives one shard per partition.
	OutputDir string
	// ManifestPath locates the published partition boundaries.
	ManifestPath string
	// KeyColumn is the 1-based tab-delimited column holding the sort key.
	KeyColumn int
}

// Handle tracks one submitted job.
type Handle interface {
	// Wait blocks until the job reaches a terminal state. A nil return
	// means the job succeeded; any error is terminal and never retried
	// at this layer.
	Wait(ctx context.Context) error
}

// Executor accepts sort jobs for asynchronous execution. Submit must not
// block on job completion: the orchestrator submits every job before it
// waits on any of them, so jobs overlap.
type Executor interface {
	Submit(ctx context.Context, cfg JobConfig) (Handle, error)
}

// JobExecutionError wraps whatever the executor reported for a failed job.
// It is opaque to the orchestrator beyond marking the job Failed.
type JobExecutionError struct {
	Input string
	Err   error
}

func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("job for %s failed: %v", e.Input, e.Err)
}

func (e *JobExecutionError) Unwrap() error {
	return e.Err
}
