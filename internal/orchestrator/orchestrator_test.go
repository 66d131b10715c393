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
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/shardsort/internal/executor"
	"github.com/cardinalhq/shardsort/internal/partition"
	"github.com/cardinalhq/shardsort/internal/sampler"
	"github.com/cardinalhq/shardsort/internal/sortkey"
)

// fakeExecutor records submissions and fails the jobs whose input name is
// in failFor. All handles reach a terminal state.
type fakeExecutor struct {
	submitted []executor.JobConfig
	failFor   map[string]bool
}

type fakeHandle struct {
	err error
}

func (h *fakeHandle) Wait(ctx context.Context) error {
	return h.err
}

func (f *fakeExecutor) Submit(ctx context.Context, cfg executor.JobConfig) (executor.Handle, error) {
	f.submitted = append(f.submitted, cfg)
	if f.failFor[cfg.InputName] {
		return &fakeHandle{err: &executor.JobExecutionError{Input: cfg.InputPath, Err: errors.New("task crashed")}}, nil
	}
	return &fakeHandle{}, nil
}

func testLine(key int64) string {
	return fmt.Sprintf("a\tb\tc\td\te\tf\tg\t%d\tz\n", key)
}

func writeInput(t *testing.T, dir, name string, keys []int64) string {
	t.Helper()
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(testLine(k))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))
	return path
}

func newTestOrchestrator(exec executor.Executor) *Orchestrator {
	s := &sampler.IntervalSampler{Probability: 1, MaxSamples: 100, KeyColumn: sortkey.DefaultColumn}
	return New(exec, s, sortkey.DefaultColumn, 4)
}

func TestRunValidationOutputNotADirectory(t *testing.T) {
	dir := t.TempDir()
	notDir := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(notDir, []byte("x"), 0644))
	input := writeInput(t, dir, "in.tsv", []int64{1, 2, 3})

	fe := &fakeExecutor{}
	err := newTestOrchestrator(fe).Run(context.Background(), notDir, []string{input})
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
	assert.Empty(t, fe.submitted)
}

func TestRunValidationDuplicateInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.tsv", []int64{1})
	b := writeInput(t, dir, "b.tsv", []int64{2})

	fe := &fakeExecutor{}
	err := newTestOrchestrator(fe).Run(context.Background(), t.TempDir(), []string{a, b, a})
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
	assert.Empty(t, fe.submitted)
}

func TestRunValidationNotARegularFile(t *testing.T) {
	dir := t.TempDir()

	fe := &fakeExecutor{}
	err := newTestOrchestrator(fe).Run(context.Background(), t.TempDir(), []string{dir})
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
	assert.Empty(t, fe.submitted)
}

func TestRunValidationMissingInput(t *testing.T) {
	fe := &fakeExecutor{}
	err := newTestOrchestrator(fe).Run(context.Background(), t.TempDir(),
		[]string{filepath.Join(t.TempDir(), "nope.tsv")})
	require.Error(t, err)
	assert.True(t, IsUsageError(err))
	assert.Empty(t, fe.submitted)
}

func TestRunSubmitsAllBeforeWaiting(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.tsv", []int64{3, 1, 2})
	bdir := t.TempDir()
	b := writeInput(t, bdir, "b.tsv", []int64{9, 8, 7})

	fe := &fakeExecutor{}
	o := newTestOrchestrator(fe)
	require.NoError(t, o.Run(context.Background(), t.TempDir(), []string{a, b}))

	require.Len(t, fe.submitted, 2)
	for _, job := range o.Jobs() {
		assert.Equal(t, JobSucceeded, job.Status)
	}

	// Boundaries were published before each submission.
	for _, cfg := range fe.submitted {
		m, err := partition.ReadManifest(cfg.ManifestPath)
		require.NoError(t, err)
		assert.Len(t, m.Boundaries, 3)
	}
}

func TestRunAggregateFailure(t *testing.T) {
	adir := t.TempDir()
	a := writeInput(t, adir, "good.tsv", []int64{1, 2, 3})
	bdir := t.TempDir()
	b := writeInput(t, bdir, "bad.tsv", []int64{4, 5, 6})

	fe := &fakeExecutor{failFor: map[string]bool{"bad.tsv": true}}
	o := newTestOrchestrator(fe)
	err := o.Run(context.Background(), t.TempDir(), []string{a, b})
	require.Error(t, err)
	assert.False(t, IsUsageError(err))

	// Both jobs were submitted and waited on; only the bad one failed.
	require.Len(t, fe.submitted, 2)
	require.Len(t, o.Jobs(), 2)
	assert.Equal(t, JobSucceeded, o.Jobs()[0].Status)
	assert.Equal(t, JobFailed, o.Jobs()[1].Status)
}

func TestRunJobStatusString(t *testing.T) {
	assert.Equal(t, "pending", JobPending.String())
	assert.Equal(t, "running", JobRunning.String())
	assert.Equal(t, "succeeded", JobSucceeded.String())
	assert.Equal(t, "failed", JobFailed.String())
}

// End to end: 10,000 records keyed on column 8, sampled at p=0.01 capped at
// 100, four partitions. Concatenating the shards in name order must yield
// the file sorted ascending by the key column.
func TestRunEndToEndTotalOrder(t *testing.T) {
	keys := make([]int64, 10_000)
	for i := range keys {
		keys[i] = rand.Int64N(1_000_000) - 500_000
	}
	inDir := t.TempDir()
	input := writeInput(t, inDir, "data.tsv", keys)
	outDir := t.TempDir()

	s := &sampler.IntervalSampler{
		Probability: sampler.DefaultProbability,
		MaxSamples:  sampler.DefaultMaxSamples,
		KeyColumn:   sortkey.DefaultColumn,
	}
	o := New(executor.NewLocalExecutor(4), s, sortkey.DefaultColumn, 4)
	require.NoError(t, o.Run(context.Background(), outDir, []string{input}))

	// The manifest holds the three quartile boundaries of the sample.
	m, err := partition.ReadManifest(partition.ManifestPath(input))
	require.NoError(t, err)
	require.Len(t, m.Boundaries, 3)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	require.Len(t, names, 4)

	var got []int64
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			if line == "" {
				continue
			}
			k, err := strconv.ParseInt(strings.Split(line, "\t")[7], 10, 64)
			require.NoError(t, err)
			got = append(got, k)
		}
	}

	require.Len(t, got, len(keys))
	assert.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }))

	want := append([]int64(nil), keys...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	assert.Equal(t, want, got)
}

func TestRunCreatesOutputDirectory(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "in.tsv", []int64{5, 4, 6})
	outDir := filepath.Join(t.TempDir(), "out")

	o := New(executor.NewLocalExecutor(2), &sampler.IntervalSampler{Probability: 1, MaxSamples: 10, KeyColumn: sortkey.DefaultColumn}, sortkey.DefaultColumn, 2)
	require.NoError(t, o.Run(context.Background(), outDir, []string{input}))

	st, err := os.Stat(outDir)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}
