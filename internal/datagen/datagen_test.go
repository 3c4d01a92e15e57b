package datagen

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mmsort/mmsort/internal/record"
)

func TestGenerateRandomCountAndAlignment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	require.NoError(t, Generate(path, Options{Count: 500, Seed1: 1, Seed2: 2}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, 500*record.Size, info.Size())
}

func TestGenerateIsDeterministicForSameSeed(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.bin")
	p2 := filepath.Join(dir, "b.bin")
	require.NoError(t, Generate(p1, Options{Count: 200, Seed1: 7, Seed2: 11}))
	require.NoError(t, Generate(p2, Options{Count: 200, Seed1: 7, Seed2: 11}))

	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	b2, err := os.ReadFile(p2)
	require.NoError(t, err)
	require.Equal(t, b1, b2)
}

func TestGenerateDifferentSeedsDiffer(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.bin")
	p2 := filepath.Join(dir, "b.bin")
	require.NoError(t, Generate(p1, Options{Count: 200, Seed1: 1, Seed2: 1}))
	require.NoError(t, Generate(p2, Options{Count: 200, Seed1: 2, Seed2: 2}))

	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	b2, err := os.ReadFile(p2)
	require.NoError(t, err)
	require.NotEqual(t, b1, b2)
}

func TestGenerateSortedProducesNonDecreasing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sorted.bin")
	require.NoError(t, Generate(path, Options{Count: 1000, Seed1: 3, Seed2: 4, Sorted: true}))

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	vals := record.AsInt64s(buf)
	require.True(t, slices.IsSorted(vals))
}

func TestGenerateZeroCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, Generate(path, Options{Count: 0}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestGenerateRejectsNegativeCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neg.bin")
	err := Generate(path, Options{Count: -1})
	require.Error(t, err)
}
