// Package rungen implements the run-generation phase (C2): partition the
// input into chunks bounded by the memory budget, sort each chunk in place
// through a writable mapping, and write the sorted chunk into the other
// file of the pair.
package rungen

import (
	"fmt"
	"os"
	"slices"

	"github.com/mmsort/mmsort/internal/mmapio"
	"github.com/mmsort/mmsort/internal/record"
)

// Generate walks in in strictly increasing offset order, sorting chunks of
// at most chunkBytes worth of records and writing each sorted chunk to the
// same byte range of out. It returns the catalog of runs now resident in
// out, which together partition [0, total).
//
// chunkBytes is clamped to at least one record's worth of bytes.
func Generate(in, out *os.File, total int64, chunkBytes int64) ([]record.Run, error) {
	chunkRecords := chunkBytes / record.Size
	if chunkRecords < 1 {
		chunkRecords = 1
	}

	var runs []record.Run
	for off := int64(0); off < total; off += chunkRecords {
		n := chunkRecords
		if remaining := total - off; n > remaining {
			n = remaining
		}

		if err := sortChunk(in, out, off, n); err != nil {
			return nil, fmt.Errorf("rungen: chunk at record %d: %w", off, err)
		}
		runs = append(runs, record.Run{Offset: off, Length: n})
	}
	return runs, nil
}

// sortChunk sorts the n records starting at record offset off, in place
// through a writable mapping of in, then copies the sorted bytes into the
// same byte range of out.
func sortChunk(in, out *os.File, off, n int64) error {
	byteOff := record.ByteOffset(off)
	byteLen := n * record.Size

	inMap, err := mmapio.Map(in, byteOff, byteLen, mmapio.ReadWrite)
	if err != nil {
		return fmt.Errorf("map input: %w", err)
	}

	slices.Sort(record.AsInt64s(inMap.Bytes))

	outMap, err := mmapio.Map(out, byteOff, byteLen, mmapio.ReadWrite)
	if err != nil {
		_ = mmapio.Unmap(inMap)
		return fmt.Errorf("map output: %w", err)
	}
	copy(outMap.Bytes, inMap.Bytes)

	if err := mmapio.Unmap(outMap); err != nil {
		_ = mmapio.Unmap(inMap)
		return fmt.Errorf("unmap output: %w", err)
	}
	if err := mmapio.Unmap(inMap); err != nil {
		return fmt.Errorf("unmap input: %w", err)
	}
	return nil
}
