// Package verify streams a record file in fixed-size buffers and reports
// whether it is sorted in non-decreasing order, using a buffered reader
// rather than a mapping since verification only needs a single forward
// pass and never mutates the file.
package verify

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mmsort/mmsort/internal/record"
)

const bufRecords = 32 * 1024

// Result reports the outcome of a Check.
type Result struct {
	// Sorted is true if every record was non-decreasing relative to its
	// predecessor.
	Sorted bool

	// Records is the number of records examined.
	Records int64

	// MismatchIndex is the index of the first record found smaller than
	// its predecessor, valid only when !Sorted.
	MismatchIndex int64

	// Previous and Offending are the two compared values at
	// MismatchIndex-1 and MismatchIndex, valid only when !Sorted.
	Previous, Offending int64
}

// String renders a Result the way a command-line tool would print it.
func (r Result) String() string {
	if r.Sorted {
		return fmt.Sprintf("sorted ascending (%d records)", r.Records)
	}
	return fmt.Sprintf("NOT sorted: record %d (%d) precedes record %d (%d)",
		r.MismatchIndex-1, r.Previous, r.MismatchIndex, r.Offending)
}

// Check streams path and reports whether its records are non-decreasing.
// It returns an error only for I/O failures or a malformed file size;
// "not sorted" is reported through Result, not an error.
func Check(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("verify: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("verify: stat %s: %w", path, err)
	}
	if err := record.CheckAligned(info.Size()); err != nil {
		return Result{}, fmt.Errorf("verify: %w", err)
	}

	r := bufio.NewReaderSize(f, bufRecords*record.Size)
	buf := make([]byte, record.Size)

	var idx int64
	var prev int64
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF {
				break
			}
			return Result{}, fmt.Errorf("verify: read record %d: %w", idx, err)
		}
		v := record.AsInt64s(buf)[0]
		if idx > 0 && v < prev {
			return Result{
				Sorted:        false,
				Records:       idx + 1,
				MismatchIndex: idx,
				Previous:      prev,
				Offending:     v,
			}, nil
		}
		prev = v
		idx++
	}

	return Result{Sorted: true, Records: idx}, nil
}
