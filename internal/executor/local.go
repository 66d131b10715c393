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

package executor

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/shardsort/internal/idgen"
	"github.com/cardinalhq/shardsort/internal/logctx"
	"github.com/cardinalhq/shardsort/internal/partition"
	"github.com/cardinalhq/shardsort/internal/shard"
	"github.com/cardinalhq/shardsort/internal/sortkey"
)

const (
	lineChanDepth = 1024
	scanBufSize   = 4 * 1024 * 1024
)

// LocalExecutor runs sort jobs with in-process worker pools: map workers
// extract keys and route records to per-partition buffers, then one reduce
// task per partition sorts its records and writes the shard. Each job's
// workers load the partitioner from the published manifest, the same way a
// remote worker would.
type LocalExecutor struct {
	// MapWorkers is the per-job map pool size; zero means GOMAXPROCS.
	MapWorkers int

	gen idgen.Generator
}

// NewLocalExecutor returns a LocalExecutor using the default flake
// generator for attempt identities.
func NewLocalExecutor(mapWorkers int) *LocalExecutor {
	return &LocalExecutor{
		MapWorkers: mapWorkers,
		gen:        idgen.DefaultFlakeGenerator,
	}
}

type localHandle struct {
	done chan struct{}
	err  error
}

func (h *localHandle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.err
	}
}

// Submit starts the job in the background and returns immediately. The
// boundary manifest is loaded here, before any record is read, so the job's
// partitioning is fixed for its whole life.
func (e *LocalExecutor) Submit(ctx context.Context, cfg JobConfig) (Handle, error) {
	part, err := partition.LoadPartitioner(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("loading boundaries for %s: %w", cfg.InputPath, err)
	}

	h := &localHandle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		if err := e.runJob(ctx, cfg, part); err != nil {
			logctx.FromContext(ctx).Error("Sort job failed",
				slog.String("input", cfg.InputPath),
				slog.Any("error", err))
			h.err = &JobExecutionError{Input: cfg.InputPath, Err: err}
		}
	}()
	return h, nil
}

// record pairs a raw line with its extracted key. The key is derived, never
// stored in the output; the raw line is written back verbatim.
type record struct {
	key  int64
	line []byte
}

func (e *LocalExecutor) runJob(ctx context.Context, cfg JobConfig, part *partition.Partitioner) error {
	ll := logctx.FromContext(ctx)

	workers := e.MapWorkers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	parts := part.Partitions()

	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Map phase: one reader fans lines out to the worker pool; each worker
	// keeps its own per-partition buffers so no locking is needed.
	buffers := make([][][]record, workers)
	lines := make(chan []byte, lineChanDepth)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(lines)
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), scanBufSize)
		for scanner.Scan() {
			line := slices.Clone(scanner.Bytes())
			select {
			case lines <- line:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return scanner.Err()
	})
	for w := range workers {
		buf := make([][]record, parts)
		buffers[w] = buf
		g.Go(func() error {
			for line := range lines {
				k, err := sortkey.Key(line, cfg.KeyColumn)
				if err != nil {
					return err
				}
				p := part.Partition(k)
				buf[p] = append(buf[p], record{key: k, line: line})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Reduce phase: per partition, merge the map buffers, sort by key, and
	// write one shard. Boundary order across shards plus this in-partition
	// sort makes the concatenation of shards the fully sorted file.
	rg, rctx := errgroup.WithContext(ctx)
	rg.SetLimit(workers)
	for p := 0; p < parts; p++ {
		rg.Go(func() error {
			if err := rctx.Err(); err != nil {
				return err
			}

			var recs []record
			for w := range workers {
				recs = append(recs, buffers[w][p]...)
			}
			slices.SortStableFunc(recs, func(a, b record) int {
				return cmp.Compare(a.key, b.key)
			})

			attempt := shard.AttemptID(p, e.gen)
			sw, err := shard.NewWriter(cfg.OutputDir, shard.WorkFileName(cfg.InputName, attempt, ""))
			if err != nil {
				return err
			}
			for _, rec := range recs {
				if err := sw.WriteLine(rec.line); err != nil {
					_ = sw.Close()
					return err
				}
			}
			if err := sw.Close(); err != nil {
				return err
			}
			ll.Debug("Wrote shard",
				slog.String("path", sw.Path()),
				slog.Int("partition", p),
				slog.Int("records", len(recs)))
			return nil
		})
	}
	return rg.Wait()
}
