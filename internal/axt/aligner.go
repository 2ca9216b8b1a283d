package axt

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ffsites/ffsites/internal/codon"
	"github.com/ffsites/ffsites/internal/query"
)

// Diverged is a site where the primary and aligned bases differ.
type Diverged struct {
	Chrom       string
	Pos         int64
	Primary     byte
	Aligned     byte
	SameChrom   bool
	GoodQuality bool // both bases upper case
}

// ChromLength is the number of usable sites examined on one chromosome.
type ChromLength struct {
	Chrom  string
	Length int64
}

// Outgroup is the aligned base at a primary position. Base is 'N' when the
// position is not covered or aligns to a gap or an unknown base.
type Outgroup struct {
	Base        byte
	GoodQuality bool
	SameChrom   bool
}

// Known reports whether the outgroup base is available.
func (o Outgroup) Known() bool {
	return o.Base != 'N'
}

type column struct {
	primary byte
	aligned byte
	same    bool
}

// Aligner answers site queries against a forward-only AXT stream. Queries
// must arrive grouped by chromosome in the same order as the file and with
// non-decreasing positions within a chromosome; once the stream has moved
// past a chromosome, later queries for it report the site as not covered.
type Aligner struct {
	r      *Reader
	cur    *Block
	eof    bool
	passed map[string]bool
	blocks int
	logger *zap.Logger
}

// NewAligner creates an aligner reading blocks from r.
func NewAligner(r *Reader) *Aligner {
	return &Aligner{r: r, passed: make(map[string]bool), logger: zap.NewNop()}
}

// SetLogger sets the logger for chromosome transitions.
func (a *Aligner) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Blocks returns the number of blocks read so far.
func (a *Aligner) Blocks() int {
	return a.blocks
}

func (a *Aligner) advance() error {
	prev := a.cur
	b, err := a.r.Next()
	if err != nil {
		return err
	}
	a.cur = b
	if b == nil {
		a.eof = true
		if prev != nil {
			a.passed[prev.Chrom] = true
		}
		return nil
	}
	a.blocks++
	if prev != nil && prev.Chrom != b.Chrom {
		a.passed[prev.Chrom] = true
		a.logger.Debug("alignment chromosome switch",
			zap.String("from", prev.Chrom),
			zap.String("to", b.Chrom),
			zap.Int("line", b.Line))
	}
	return nil
}

// site locates pos on chrom. ok is false when the position is not covered by
// any block still reachable.
func (a *Aligner) site(chrom string, pos int64) (col column, ok bool, err error) {
	for {
		if a.passed[chrom] {
			return column{}, false, nil
		}
		if a.cur == nil {
			if a.eof {
				return column{}, false, nil
			}
			if err := a.advance(); err != nil {
				return column{}, false, err
			}
			continue
		}
		if a.cur.Chrom != chrom || a.cur.End < pos {
			if err := a.advance(); err != nil {
				return column{}, false, err
			}
			continue
		}
		// pos may fall between two blocks
		i := a.cur.Column(pos)
		if i < 0 {
			return column{}, false, nil
		}
		return column{primary: a.cur.Primary[i], aligned: a.cur.Aligned[i], same: a.cur.SameChrom()}, true, nil
	}
}

func missing(b byte) bool {
	return b == '-' || b == 'N' || b == 'n'
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

// compare classifies a usable column. usable is false for gaps and unknown
// bases, which do not count towards the effective length.
func compare(chrom string, pos int64, col column) (d *Diverged, usable bool) {
	if missing(col.primary) || missing(col.aligned) {
		return nil, false
	}
	if codon.Upper(col.primary) == codon.Upper(col.aligned) {
		return nil, true
	}
	return &Diverged{
		Chrom:       chrom,
		Pos:         pos,
		Primary:     col.primary,
		Aligned:     col.aligned,
		SameChrom:   col.same,
		GoodQuality: isUpper(col.primary) && isUpper(col.aligned),
	}, true
}

// DivergedInRange returns the diverged sites in [start, end] on chrom and the
// number of positions that were covered without gaps or unknown bases.
func (a *Aligner) DivergedInRange(chrom string, start, end int64) ([]Diverged, int64, error) {
	if start >= end {
		return nil, 0, fmt.Errorf("range start %d must come before end %d", start, end)
	}
	var (
		sites  []Diverged
		length int64
	)
	for pos := start; pos <= end; pos++ {
		if a.passed[chrom] {
			break
		}
		col, ok, err := a.site(chrom, pos)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}
		d, usable := compare(chrom, pos, col)
		if !usable {
			continue
		}
		length++
		if d != nil {
			sites = append(sites, *d)
		}
	}
	return sites, length, nil
}

// DivergedAt returns the diverged sites among positions and the effective
// length per chromosome, in order of first appearance.
func (a *Aligner) DivergedAt(positions []query.Position) ([]Diverged, []ChromLength, error) {
	var (
		sites   []Diverged
		lengths []ChromLength
	)
	index := make(map[string]int)
	for _, p := range positions {
		if a.passed[p.Chrom] {
			continue
		}
		col, ok, err := a.site(p.Chrom, p.Pos)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		d, usable := compare(p.Chrom, p.Pos, col)
		if !usable {
			continue
		}
		i, seen := index[p.Chrom]
		if !seen {
			i = len(lengths)
			index[p.Chrom] = i
			lengths = append(lengths, ChromLength{Chrom: p.Chrom})
		}
		lengths[i].Length++
		if d != nil {
			sites = append(sites, *d)
		}
	}
	return sites, lengths, nil
}

// OutgroupState returns the aligned base at pos on chrom.
func (a *Aligner) OutgroupState(chrom string, pos int64) (Outgroup, error) {
	col, ok, err := a.site(chrom, pos)
	if err != nil {
		return Outgroup{}, err
	}
	if !ok {
		return Outgroup{Base: 'N'}, nil
	}
	if missing(col.aligned) {
		return Outgroup{Base: 'N', SameChrom: col.same}, nil
	}
	return Outgroup{Base: col.aligned, GoodQuality: isUpper(col.aligned), SameChrom: col.same}, nil
}
