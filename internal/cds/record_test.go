package cds

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forward(start, end int64) *Record {
	r := &Record{Chrom: "2L", GeneID: "FBgnF"}
	for p := start; p <= end; p++ {
		r.Positions = append(r.Positions, p)
	}
	return r
}

func reverse(start, end int64) *Record {
	r := &Record{Chrom: "2L", GeneID: "FBgnR"}
	for p := end; p >= start; p-- {
		r.Positions = append(r.Positions, p)
	}
	return r
}

func TestRecord_Bounds(t *testing.T) {
	f := forward(100, 109)
	assert.Equal(t, Forward, f.Strand())
	assert.Equal(t, int64(100), f.Start())
	assert.Equal(t, int64(109), f.End())

	r := reverse(100, 109)
	assert.Equal(t, Reverse, r.Strand())
	assert.Equal(t, int64(100), r.Start())
	assert.Equal(t, int64(109), r.End())

	assert.Equal(t, 9, f.HighIndex(0))
	assert.Equal(t, 0, r.HighIndex(0))
}

func TestRecord_TrimWithSequence(t *testing.T) {
	f := forward(100, 105)
	require.NoError(t, f.SetSequence("ACGTAC"))
	f.TrimHigh(3)
	assert.Equal(t, []int64{100, 101, 102}, f.Positions)
	assert.Equal(t, "ACG", f.Seq)

	r := reverse(100, 105)
	require.NoError(t, r.SetSequence("ACGTAC"))
	r.TrimHigh(3)
	assert.Equal(t, []int64{102, 101, 100}, r.Positions)
	assert.Equal(t, "TAC", r.Seq)

	r2 := reverse(100, 105)
	require.NoError(t, r2.SetSequence("ACGTAC"))
	r2.TrimLow(3)
	assert.Equal(t, []int64{105, 104, 103}, r2.Positions)
	assert.Equal(t, "ACG", r2.Seq)
}

func TestRecord_PendingTrimAppliedOnSequence(t *testing.T) {
	f := forward(108, 120)
	f.TrimLow(3)
	assert.Equal(t, int64(111), f.Start())
	require.NoError(t, f.SetSequence("AAACCCGGGTTTA"))
	assert.Equal(t, "CCCGGGTTTA", f.Seq)
	assert.Equal(t, 10, f.Len())

	r := reverse(108, 120)
	r.TrimLow(3)
	assert.Equal(t, int64(111), r.Start())
	require.NoError(t, r.SetSequence("AAACCCGGGTTTA"))
	assert.Equal(t, "AAACCCGGGT", r.Seq)
	assert.Equal(t, []int64{120, 119, 118, 117, 116, 115, 114, 113, 112, 111}, r.Positions)
}

func TestRecord_SetSequenceLengthMismatch(t *testing.T) {
	f := forward(1, 6)
	err := f.SetSequence("ACG")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolation))

	var cdsErr *Error
	require.True(t, errors.As(err, &cdsErr))
	assert.Equal(t, "FBgnF", cdsErr.GeneID)
	assert.Equal(t, "2L", cdsErr.Chrom)
}

func TestRecord_SingleNucleotideIsForward(t *testing.T) {
	r := &Record{Positions: []int64{42}}
	assert.Equal(t, Forward, r.Strand())
	assert.Equal(t, int64(42), r.Start())
	assert.Equal(t, int64(42), r.End())
}
