// Package cds models coding-sequence records read from annotated FASTA files.
package cds

import "fmt"

// Strand is the transcript orientation of a record.
type Strand int8

const (
	Forward Strand = 1
	Reverse Strand = -1
)

func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// Record is one CDS. Positions are in transcript (5'->3') order and run
// parallel to Seq once the sequence has been assigned.
type Record struct {
	Chrom     string  // Chromosome arm (e.g. "2L", "X")
	GeneID    string  // Parent gene identifier (FBgn)
	Positions []int64 // Genomic coordinate of every nucleotide
	Seq       string  // Nucleotide sequence, empty until assigned
	Header    string  // Raw header line, kept for diagnostics

	hasSeq bool
	// trims recorded before the sequence arrived, in transcript order
	pendingFront int
	pendingBack  int
}

// Strand is derived from the first and last coordinates so that it can never
// disagree with them. Records shorter than two nucleotides read as Forward.
func (r *Record) Strand() Strand {
	n := len(r.Positions)
	if n > 1 && r.Positions[0] > r.Positions[n-1] {
		return Reverse
	}
	return Forward
}

// Len returns the number of nucleotides the record currently covers.
func (r *Record) Len() int {
	return len(r.Positions)
}

// Start returns the lowest genomic coordinate.
func (r *Record) Start() int64 {
	if len(r.Positions) == 0 {
		return 0
	}
	if r.Strand() == Reverse {
		return r.Positions[len(r.Positions)-1]
	}
	return r.Positions[0]
}

// End returns the highest genomic coordinate.
func (r *Record) End() int64 {
	if len(r.Positions) == 0 {
		return 0
	}
	if r.Strand() == Reverse {
		return r.Positions[0]
	}
	return r.Positions[len(r.Positions)-1]
}

// HasSequence reports whether the sequence line has been assigned.
func (r *Record) HasSequence() bool {
	return r.hasSeq
}

// HighIndex returns the transcript index of the i-th nucleotide counted from
// the genomically high end (i == 0 is the nucleotide at End()).
func (r *Record) HighIndex(i int) int {
	if r.Strand() == Reverse {
		return i
	}
	return len(r.Positions) - 1 - i
}

// TrimHigh removes n nucleotides from the genomically high end.
func (r *Record) TrimHigh(n int) {
	if r.Strand() == Reverse {
		r.trim(n, 0)
	} else {
		r.trim(0, n)
	}
}

// TrimLow removes n nucleotides from the genomically low end.
func (r *Record) TrimLow(n int) {
	if r.Strand() == Reverse {
		r.trim(0, n)
	} else {
		r.trim(n, 0)
	}
}

// trim drops front and back nucleotides in transcript order. Without a
// sequence the offsets are kept and applied by SetSequence.
func (r *Record) trim(front, back int) {
	n := len(r.Positions)
	if front+back >= n {
		r.Positions = r.Positions[:0]
	} else {
		r.Positions = r.Positions[front : n-back]
	}
	if r.hasSeq {
		s := len(r.Seq)
		if front+back >= s {
			r.Seq = ""
		} else {
			r.Seq = r.Seq[front : s-back]
		}
		return
	}
	r.pendingFront += front
	r.pendingBack += back
}

// SetSequence assigns the raw sequence line, applying any trims recorded
// while the record was still waiting for it.
func (r *Record) SetSequence(seq string) error {
	want := len(r.Positions) + r.pendingFront + r.pendingBack
	if len(seq) != want {
		return invariantError(r, fmt.Sprintf("sequence length %d does not match %d coordinates", len(seq), want))
	}
	r.Seq = seq[r.pendingFront : len(seq)-r.pendingBack]
	r.pendingFront, r.pendingBack = 0, 0
	r.hasSeq = true
	return r.Validate()
}

// Validate checks that coordinates and sequence are parallel.
func (r *Record) Validate() error {
	if r.hasSeq && len(r.Seq) != len(r.Positions) {
		return invariantError(r, fmt.Sprintf("sequence length %d does not match %d coordinates", len(r.Seq), len(r.Positions)))
	}
	return nil
}
