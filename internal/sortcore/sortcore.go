// Package sortcore implements the orchestrator (C5): open the target file,
// create a sized temporary file, short-circuit on a sampled sortedness
// check, derive the memory budget and fan-in from the caller's limit, run
// the run generator then repeated merge passes, and guarantee the final
// result lands back in the caller's file.
package sortcore

import (
	"fmt"
	"io"
	"os"

	"github.com/mmsort/mmsort/internal/lockfile"
	"github.com/mmsort/mmsort/internal/pass"
	"github.com/mmsort/mmsort/internal/record"
	"github.com/mmsort/mmsort/internal/rungen"
)

const (
	tempSuffix     = ".tmp_sort"
	sampleLimit    = 1000
	minSlotBytes   = 16 * 1024
	minFanIn       = 2
	maxFanIn       = 1024
	finalizeWindow = 1 << 20 // 1 MiB
)

// Options controls an individual sort invocation. The zero value is valid
// and uses the documented defaults.
type Options struct {
	// LimitMB bounds the sum of buffer sizes used during sorting, in
	// megabytes. Zero selects the default of fs/10, floored at one page.
	LimitMB int

	// Diagnostics receives progress lines describing each phase of the
	// sort. Defaults to os.Stderr when nil.
	Diagnostics io.Writer
}

// Sort sorts the fixed-width int64 records in path in place.
func Sort(path string, opts Options) error {
	diag := opts.Diagnostics
	if diag == nil {
		diag = os.Stderr
	}

	a, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("sortcore: open %s: %w", path, err)
	}
	defer a.Close()

	info, err := a.Stat()
	if err != nil {
		return fmt.Errorf("sortcore: stat %s: %w", path, err)
	}
	fs := info.Size()
	if err := record.CheckAligned(fs); err != nil {
		return fmt.Errorf("sortcore: %w", err)
	}

	total := record.TotalRecords(fs)
	if total <= 1 {
		return nil
	}

	lock, lockErr := lockfile.Lock(a)
	if lockErr != nil {
		fmt.Fprintf(diag, "sortcore: advisory lock on %s unavailable, continuing without it: %v\n", path, lockErr)
	} else {
		defer func() {
			if err := lock.Unlock(); err != nil {
				fmt.Fprintf(diag, "sortcore: failed to release advisory lock on %s: %v\n", path, err)
			}
		}()
	}

	if sorted, err := sampledSorted(a, total); err != nil {
		return fmt.Errorf("sortcore: sortedness check: %w", err)
	} else if sorted {
		fmt.Fprintf(diag, "sortcore: %s already sorted (sampled check), skipping\n", path)
		return nil
	}

	memBytes := memoryBudget(opts.LimitMB, fs)
	maxK := fanIn(memBytes)
	fmt.Fprintf(diag, "sortcore: sorting %s (%d records, %d byte budget, fan-in %d)\n", path, total, memBytes, maxK)

	tempPath := path + tempSuffix
	b, err := os.OpenFile(tempPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return fmt.Errorf("sortcore: create temp file %s: %w", tempPath, err)
	}
	defer func() {
		b.Close()
		os.Remove(tempPath)
	}()
	if err := b.Truncate(fs); err != nil {
		return fmt.Errorf("sortcore: truncate temp file: %w", err)
	}

	runs, err := rungen.Generate(a, b, total, memBytes)
	if err != nil {
		return fmt.Errorf("sortcore: run generation: %w", err)
	}
	fmt.Fprintf(diag, "sortcore: generated %d initial runs\n", len(runs))

	in, out := b, a
	for len(runs) > 1 {
		if err := out.Truncate(fs); err != nil {
			return fmt.Errorf("sortcore: truncate pass output: %w", err)
		}
		runs, err = pass.Run(in, out, runs, memBytes, maxK)
		if err != nil {
			return fmt.Errorf("sortcore: merge pass: %w", err)
		}
		in, out = out, in
		fmt.Fprintf(diag, "sortcore: pass complete, %d runs remain\n", len(runs))
	}

	// After the flip-flop loop, in holds the file the last pass wrote into
	// (each iteration swaps in/out after writing, so in always tracks the
	// most recently produced data). If that is the temporary, the result
	// has to be copied back into the caller's file.
	if in == b {
		if err := streamCopy(b, a, fs); err != nil {
			return fmt.Errorf("sortcore: finalize copy: %w", err)
		}
	}

	return nil
}

// sampledSorted checks up to sampleLimit evenly spaced records for
// non-decreasing order. This is a heuristic, not a proof: a pathological
// almost-sorted file can slip past it. The heuristic is kept deliberately
// (see SPEC_FULL.md §9) rather than replaced with a full scan, trading
// exactness for avoiding an extra full read pass in the common case.
func sampledSorted(f *os.File, total int64) (bool, error) {
	n := total
	if n > sampleLimit {
		n = sampleLimit
	}
	if n < 2 {
		return true, nil
	}

	stride := total / n
	if stride < 1 {
		stride = 1
	}

	var prev int64
	var buf [record.Size]byte
	for i := int64(0); i < n; i++ {
		idx := i * stride
		if idx >= total {
			break
		}
		if _, err := f.ReadAt(buf[:], record.ByteOffset(idx)); err != nil {
			return false, err
		}
		v := record.AsInt64s(buf[:])[0]
		if i > 0 && v < prev {
			return false, nil
		}
		prev = v
	}
	return true, nil
}

// memoryBudget resolves the caller's limitMB into a byte budget.
func memoryBudget(limitMB int, fs int64) int64 {
	if limitMB == 0 {
		budget := fs / 10
		ps := int64(os.Getpagesize())
		if budget < ps {
			budget = ps
		}
		return budget
	}
	return int64(limitMB) << 20
}

// fanIn derives the maximum number of runs merged per invocation from the
// memory budget, reserving at least 16 KiB of buffer per input slot.
func fanIn(memBytes int64) int {
	k := memBytes/minSlotBytes - 1
	if k < minFanIn {
		k = minFanIn
	}
	if k > maxFanIn {
		k = maxFanIn
	}
	return int(k)
}

// streamCopy copies n bytes from src to dst using a buffered streaming
// copy rather than a mapping: at this point both files must be fully
// consistent with their on-disk contents at the copy boundary, which a
// mapping-based copy (subject to lazy writeback) does not guarantee as
// cheaply as an explicit write.
func streamCopy(src, dst *os.File, n int64) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return err
	}
	buf := make([]byte, finalizeWindow)
	_, err := io.CopyBuffer(dst, io.LimitReader(src, n), buf)
	return err
}
