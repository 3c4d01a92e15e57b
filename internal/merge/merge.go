// Package merge implements the k-way merge of sorted runs (C3): per-run
// refillable input buffers, an output buffer, and a manual min-heap keyed
// on head values.
//
// A manual heap is used instead of container/heap deliberately: boxing each
// heapEntry through container/heap's interface{}-based Push/Pop allocates
// on every push and pop, which dominates the cost of a merge whose inner
// loop runs once per output record.
package merge

import (
	"fmt"
	"os"

	"github.com/mmsort/mmsort/internal/mmapio"
	"github.com/mmsort/mmsort/internal/record"
)

// minCopyWindow is the minimum window size, in bytes, used by the
// degenerate k=1 copy path, regardless of the caller's memory budget.
const minCopyWindow = 1 << 20 // 1 MiB

// Merge merges the sorted runs in (read from in) into a single contiguous
// run written to out starting at record offset outOffset. For k >= 2,
// memBytes is split evenly across the k input buffers and the output
// buffer, each holding at least one record, so a budget below
// (k+1)*8 bytes is exceeded. A single run is copied in mapped windows of
// max(memBytes, 1 MiB).
//
// Preconditions: every run in runs is individually non-decreasing; the
// output range does not overlap any input range (guaranteed by the caller
// using distinct files for in and out).
func Merge(in, out *os.File, runs []record.Run, outOffset int64, memBytes int64) error {
	switch len(runs) {
	case 0:
		return nil
	case 1:
		return copyRun(in, out, runs[0], outOffset, memBytes)
	}
	return mergeMany(in, out, runs, outOffset, memBytes)
}

// copyRun handles the degenerate k=1 case: a windowed paired-mapping copy,
// no heap, no per-run buffering.
func copyRun(in, out *os.File, run record.Run, outOffset int64, memBytes int64) error {
	window := memBytes
	if window < minCopyWindow {
		window = minCopyWindow
	}
	windowRecords := window / record.Size
	if windowRecords < 1 {
		windowRecords = 1
	}

	remaining := run.Length
	srcOff, dstOff := run.Offset, outOffset
	for remaining > 0 {
		n := windowRecords
		if n > remaining {
			n = remaining
		}

		srcMap, err := mmapio.Map(in, record.ByteOffset(srcOff), n*record.Size, mmapio.ReadOnly)
		if err != nil {
			return fmt.Errorf("merge: map source window: %w", err)
		}
		dstMap, err := mmapio.Map(out, record.ByteOffset(dstOff), n*record.Size, mmapio.ReadWrite)
		if err != nil {
			_ = mmapio.Unmap(srcMap)
			return fmt.Errorf("merge: map dest window: %w", err)
		}

		copy(dstMap.Bytes, srcMap.Bytes)

		if err := mmapio.Unmap(dstMap); err != nil {
			_ = mmapio.Unmap(srcMap)
			return fmt.Errorf("merge: unmap dest window: %w", err)
		}
		if err := mmapio.Unmap(srcMap); err != nil {
			return fmt.Errorf("merge: unmap source window: %w", err)
		}

		srcOff += n
		dstOff += n
		remaining -= n
	}
	return nil
}

// runState tracks the buffered-refill state of a single input run during a
// k >= 2 merge, matching the "Merge state" data model in §3: consumed is
// the count of records pulled into buf over all refills, bufPos is the
// index of the next unread record in buf, and done becomes permanent once
// the run is fully consumed and its buffer fully drained.
type runState struct {
	offset   int64
	length   int64
	consumed int64
	buf      []int64
	bufPos   int
	done     bool
}

// refill loads the next batch of up to inCap records for the run from
// in. It is an ordinary procedure with explicit state (no coroutine, no
// generator) as called for in the spec's design notes.
func (s *runState) refill(in *os.File, inCap int64) error {
	s.bufPos = 0
	remaining := s.length - s.consumed
	if remaining == 0 {
		s.done = true
		s.buf = s.buf[:0]
		return nil
	}

	n := inCap
	if n > remaining {
		n = remaining
	}

	m, err := mmapio.Map(in, record.ByteOffset(s.offset+s.consumed), n*record.Size, mmapio.ReadOnly)
	if err != nil {
		return fmt.Errorf("merge: refill map: %w", err)
	}
	src := record.AsInt64s(m.Bytes)
	if cap(s.buf) < int(n) {
		s.buf = make([]int64, n)
	} else {
		s.buf = s.buf[:n]
	}
	copy(s.buf, src)
	if err := mmapio.Unmap(m); err != nil {
		return fmt.Errorf("merge: refill unmap: %w", err)
	}

	s.consumed += n
	return nil
}

// heapEntry is a single live candidate in the merge heap: the smallest
// not-yet-emitted value of one run, and which run it came from. The
// invariant of §3's Heap entry holds throughout: exactly one entry per run
// that still has records to emit.
type heapEntry struct {
	value int64
	run   int
}

// minHeap is a hand-rolled binary min-heap over heapEntry, avoiding
// container/heap's interface{} boxing on the hot path.
type minHeap []heapEntry

func (h minHeap) less(i, j int) bool { return h[i].value < h[j].value }
func (h minHeap) swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minHeap) push(e heapEntry) {
	*h = append(*h, e)
	h.up(len(*h) - 1)
}

func (h *minHeap) pop() heapEntry {
	old := *h
	n := len(old)
	top := old[0]
	old[0] = old[n-1]
	*h = old[:n-1]
	if len(*h) > 0 {
		h.down(0)
	}
	return top
}

func (h *minHeap) up(j int) {
	for j > 0 {
		i := (j - 1) / 2
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h *minHeap) down(i0 int) {
	n := len(*h)
	i := i0
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		j := left
		if right := left + 1; right < n && h.less(right, left) {
			j = right
		}
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		i = j
	}
}

// mergeMany implements the k >= 2 general case of §4.3.
func mergeMany(in, out *os.File, runs []record.Run, outOffset int64, memBytes int64) error {
	k := int64(len(runs))
	perSlot := (memBytes / (k + 1)) &^ (record.Size - 1)
	if perSlot < record.Size {
		perSlot = record.Size
	}
	inCap := perSlot / record.Size
	outCap := perSlot / record.Size

	states := make([]runState, k)
	for i, r := range runs {
		states[i] = runState{offset: r.Offset, length: r.Length}
	}

	h := make(minHeap, 0, k)
	for i := range states {
		if err := states[i].refill(in, inCap); err != nil {
			return err
		}
		if !states[i].done {
			h.push(heapEntry{value: states[i].buf[0], run: i})
			states[i].bufPos = 1
		}
	}

	outBuf := make([]int64, 0, outCap)
	curOut := outOffset
	var totalLen int64
	for _, r := range runs {
		totalLen += r.Length
	}

	flush := func() error {
		if len(outBuf) == 0 {
			return nil
		}
		m, err := mmapio.Map(out, record.ByteOffset(curOut), int64(len(outBuf))*record.Size, mmapio.ReadWrite)
		if err != nil {
			return fmt.Errorf("merge: flush map: %w", err)
		}
		copy(record.AsInt64s(m.Bytes), outBuf)
		if err := mmapio.Unmap(m); err != nil {
			return fmt.Errorf("merge: flush unmap: %w", err)
		}
		curOut += int64(len(outBuf))
		outBuf = outBuf[:0]
		return nil
	}

	for len(h) > 0 {
		top := h.pop()
		outBuf = append(outBuf, top.value)
		if int64(len(outBuf)) == outCap {
			if err := flush(); err != nil {
				return err
			}
		}

		s := &states[top.run]
		if s.done {
			continue
		}
		if s.bufPos == len(s.buf) {
			if err := s.refill(in, inCap); err != nil {
				return err
			}
		}
		if s.done {
			continue
		}
		h.push(heapEntry{value: s.buf[s.bufPos], run: top.run})
		s.bufPos++
	}

	if err := flush(); err != nil {
		return err
	}
	if curOut-outOffset != totalLen {
		return fmt.Errorf("merge: wrote %d records, expected %d", curOut-outOffset, totalLen)
	}
	return nil
}
