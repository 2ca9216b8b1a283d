package fasta

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"

	"github.com/ffsites/ffsites/internal/cds"
)

// SortStats reports what a sort pass kept and discarded.
type SortStats struct {
	Read       int // records read
	Written    int // records written
	Duplicates int // records replaced or rejected at an already used start
	Skipped    int // records on unrecognised chromosomes
}

type sortEntry struct {
	header string
	seq    string
}

// Sorter orders CDS records by chromosome arm and start coordinate, keeping
// the longest record when several share a start.
type Sorter struct {
	logger *zap.Logger
}

// NewSorter creates a sorter.
func NewSorter() *Sorter {
	return &Sorter{logger: zap.NewNop()}
}

// SetLogger sets the logger for skipped and duplicate records.
func (s *Sorter) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Sort reads every record from r and writes them to w grouped by arm (in
// cds.Arms order) and ascending by start, one sequence line per record.
func (s *Sorter) Sort(r *Reader, w io.Writer) (SortStats, error) {
	var stats SortStats
	byArm := make(map[string]map[int64]sortEntry)

	for {
		rec, err := r.Next()
		if err != nil {
			return stats, err
		}
		if rec == nil {
			break
		}
		stats.Read++

		c, err := cds.ParseHeader(rec.Header)
		if err != nil {
			if errors.Is(err, cds.ErrUnknownChromosome) {
				stats.Skipped++
				s.logger.Debug("skipping record on unrecognised chromosome",
					zap.Int("line", rec.Line), zap.Error(err))
				continue
			}
			return stats, withLine(err, rec.Line)
		}
		if !rec.HasSeq {
			return stats, cds.Truncated(c, rec.Line, "header is not followed by a sequence line")
		}

		byStart, ok := byArm[c.Chrom]
		if !ok {
			byStart = make(map[int64]sortEntry)
			byArm[c.Chrom] = byStart
		}
		start := c.Start()
		if prev, dup := byStart[start]; dup {
			stats.Duplicates++
			s.logger.Debug("duplicate CDS start",
				zap.String("chrom", cds.Label(c.Chrom)),
				zap.Int64("start", start),
				zap.Int("kept_length", max(len(prev.seq), len(rec.Seq))))
			if len(rec.Seq) <= len(prev.seq) {
				continue
			}
		}
		byStart[start] = sortEntry{header: rec.Header, seq: rec.Seq}
	}

	bw := bufio.NewWriter(w)
	for _, arm := range cds.Arms {
		byStart := byArm[arm]
		starts := make([]int64, 0, len(byStart))
		for p := range byStart {
			starts = append(starts, p)
		}
		sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
		for _, p := range starts {
			e := byStart[p]
			if _, err := fmt.Fprintf(bw, "%s\n%s\n", e.header, e.seq); err != nil {
				return stats, fmt.Errorf("write sorted record: %w", err)
			}
			stats.Written++
		}
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("flush sorted output: %w", err)
	}
	return stats, nil
}

func withLine(err error, line int) error {
	var ce *cds.Error
	if errors.As(err, &ce) && ce.Line == 0 {
		ce.Line = line
	}
	return err
}
