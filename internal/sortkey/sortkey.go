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

// Package sortkey extracts the int64 sort key from a tab-delimited record.
package sortkey

import (
	"bytes"
	"fmt"
	"strconv"
)

// DefaultColumn is the 1-based column the sort key is read from.
const DefaultColumn = 8

const maxErrLineLen = 120

// MalformedRecordError reports a record whose key column is missing or does
// not parse as a signed 64-bit integer. It is fatal to the work unit that hit
// it: a bad key routed to a default partition would silently break global
// ordering, so these records are never skipped or retried.
type MalformedRecordError struct {
	Column int
	Line   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: %s (column %d, line %q)", e.Reason, e.Column, e.Line)
}

func malformed(line []byte, col int, reason string) *MalformedRecordError {
	l := string(line)
	if len(l) > maxErrLineLen {
		l = l[:maxErrLineLen] + "..."
	}
	return &MalformedRecordError{Column: col, Line: l, Reason: reason}
}

// Extract returns the col'th tab-delimited field of line (1-based), as the
// exact byte range between the surrounding tabs. The field must be terminated
// by a tab; running out of tabs before reaching col is a malformed record.
func Extract(line []byte, col int) ([]byte, error) {
	if col < 1 {
		return nil, fmt.Errorf("key column must be >= 1, got %d", col)
	}
	pos := 0
	for n := 0; ; n++ {
		npos := bytes.IndexByte(line[pos:], '\t')
		if npos < 0 {
			return nil, malformed(line, col, fmt.Sprintf("ran out of tabs after %d field(s)", n))
		}
		npos += pos
		if n+1 == col {
			return line[pos:npos], nil
		}
		pos = npos + 1
	}
}

// Key extracts the col'th field and parses it as a base-10 signed 64-bit
// integer. Empty fields, trailing garbage, and overflow all yield a
// MalformedRecordError; there is no default key.
func Key(line []byte, col int) (int64, error) {
	field, err := Extract(line, col)
	if err != nil {
		return 0, err
	}
	k, err := strconv.ParseInt(string(field), 10, 64)
	if err != nil {
		return 0, malformed(line, col, fmt.Sprintf("key %q is not an int64", field))
	}
	return k, nil
}
