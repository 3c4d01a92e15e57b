// Package pass implements the pass driver (C4): group the current run list
// into windows of at most maxK runs, merge each window, and emit the new,
// shorter run list.
package pass

import (
	"fmt"
	"os"

	"github.com/mmsort/mmsort/internal/merge"
	"github.com/mmsort/mmsort/internal/record"
)

// Run groups runs into windows of at most maxK, merges each window from in
// into out, and returns the new run list. Its length is
// ceil(len(runs) / maxK).
func Run(in, out *os.File, runs []record.Run, memBytes int64, maxK int) ([]record.Run, error) {
	if maxK < 1 {
		maxK = 1
	}

	var next []record.Run
	var outOff int64
	for i := 0; i < len(runs); i += maxK {
		end := i + maxK
		if end > len(runs) {
			end = len(runs)
		}
		window := runs[i:end]

		var total int64
		for _, r := range window {
			total += r.Length
		}

		if err := merge.Merge(in, out, window, outOff, memBytes); err != nil {
			return nil, fmt.Errorf("pass: window starting at run %d: %w", i, err)
		}

		next = append(next, record.Run{Offset: outOff, Length: total})
		outOff += total
	}
	return next, nil
}
