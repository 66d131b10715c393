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

package orchestrator

import (
	"github.com/google/uuid"

	"github.com/cardinalhq/shardsort/internal/executor"
)

// JobStatus is the lifecycle of one sort job. The terminal state is set
// exactly once, from the executor's completion report, and never reverted.
type JobStatus int

const (
	JobPending JobStatus = iota
	JobRunning
	JobSucceeded
	JobFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobRunning:
		return "running"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SortJob tracks one input file through submission and completion. Jobs are
// created during the submit phase and drained during the wait phase; the
// two phases are sequential in the orchestrator, so no locking is needed.
type SortJob struct {
	ID     uuid.UUID
	Config executor.JobConfig
	Status JobStatus

	handle executor.Handle
}
