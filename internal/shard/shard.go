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

// Package shard names and writes the per-partition output files of a sort
// job. Names embed the zero-padded partition index and a flake ID, so
// lexically sorting one input's shard names recovers partition order, and
// concurrent jobs sharing an output directory can never collide.
package shard

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cardinalhq/shardsort/internal/idgen"
)

// AttemptID returns the task attempt identity for one reduce partition:
// r-<partition, 5 digits>-<flake ID, hex>. The flake component makes the
// identity unique across attempts, workers, and machines.
func AttemptID(partitionIdx int, gen idgen.Generator) string {
	return fmt.Sprintf("r-%05d-%016x", partitionIdx, uint64(gen.NextID()))
}

// WorkFileName is the output filename for one shard. It is a pure function
// of the input file's name, the task attempt identity, and an optional
// extension.
func WorkFileName(inputName, attemptID, ext string) string {
	if ext != "" {
		ext = "." + ext
	}
	return inputName + "_" + attemptID + ext
}

// Writer writes one shard's records, in the order received, into the shared
// output directory. The directory may already exist and hold other jobs'
// shards; that is the normal case when several jobs share one destination.
type Writer struct {
	path string
	f    *os.File
	bw   *bufio.Writer
}

// NewWriter creates the shard file. It fails if the exact path already
// exists: attempt identities are unique, so a collision means a bug.
func NewWriter(outputDir, filename string) (*Writer, error) {
	path := filepath.Join(outputDir, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating shard %s: %w", path, err)
	}
	return &Writer{
		path: path,
		f:    f,
		bw:   bufio.NewWriterSize(f, 256*1024),
	}, nil
}

// Path returns the shard's full output path.
func (w *Writer) Path() string {
	return w.path
}

// WriteLine appends one record plus a trailing newline.
func (w *Writer) WriteLine(line []byte) error {
	if _, err := w.bw.Write(line); err != nil {
		return fmt.Errorf("writing shard %s: %w", w.path, err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return fmt.Errorf("writing shard %s: %w", w.path, err)
	}
	return nil
}

// Close flushes buffered records and closes the file.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("flushing shard %s: %w", w.path, err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("closing shard %s: %w", w.path, err)
	}
	return nil
}
