// Package datagen generates fixed-width int64 record files for testing and
// benchmarking: a buffered writer fed by a seeded PRNG, sized by record
// count rather than byte count.
package datagen

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"

	"github.com/mmsort/mmsort/internal/record"
)

const writeBufSize = 64 * 1024

// Options controls generation of a record file.
type Options struct {
	// Count is the number of records to write.
	Count int64

	// Seed1 and Seed2 seed the PCG generator, making generation
	// reproducible. Left unset they are zero, itself a fixed seed, so
	// repeated runs without seeds still reproduce.
	Seed1, Seed2 uint64

	// Sorted, when true, writes the records in non-decreasing order
	// instead of random order — useful for exercising the sortedness
	// short-circuit.
	Sorted bool
}

// Generate writes opts.Count random int64 records to path, truncating any
// existing content.
func Generate(path string, opts Options) error {
	if opts.Count < 0 {
		return fmt.Errorf("datagen: negative count %d", opts.Count)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("datagen: create %s: %w", path, err)
	}
	defer f.Close()

	rng := rand.New(rand.NewPCG(opts.Seed1, opts.Seed2))

	if opts.Sorted {
		return generateSorted(f, opts.Count, rng)
	}
	return generateRandom(f, opts.Count, rng)
}

func generateRandom(f *os.File, count int64, rng *rand.Rand) error {
	w := bufio.NewWriterSize(f, writeBufSize)
	var buf [record.Size]byte
	view := record.AsInt64s(buf[:])
	for i := int64(0); i < count; i++ {
		view[0] = rng.Int64()
		if _, err := w.Write(buf[:]); err != nil {
			return fmt.Errorf("datagen: write record %d: %w", i, err)
		}
	}
	return w.Flush()
}

// generateSorted draws count random values, sorts them in memory, then
// streams them out. Sized for test fixtures and modest benchmark files, not
// for counts that would themselves need external sorting.
func generateSorted(f *os.File, count int64, rng *rand.Rand) error {
	vals := make([]int64, count)
	for i := range vals {
		vals[i] = rng.Int64()
	}
	slices.Sort(vals)

	w := bufio.NewWriterSize(f, writeBufSize)
	var buf [record.Size]byte
	view := record.AsInt64s(buf[:])
	for _, v := range vals {
		view[0] = v
		if _, err := w.Write(buf[:]); err != nil {
			return fmt.Errorf("datagen: write sorted record: %w", err)
		}
	}
	return w.Flush()
}
