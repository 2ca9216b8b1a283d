package extract

import (
	"errors"

	"go.uber.org/zap"

	"github.com/ffsites/ffsites/internal/cds"
	"github.com/ffsites/ffsites/internal/fasta"
)

// RecordReader yields header/sequence records in file order.
// Returns nil, nil when there are no more records.
type RecordReader interface {
	Next() (*fasta.Record, error)
}

// Stats summarises an extraction run.
type Stats struct {
	Records  int // headers parsed
	Flushed  int // records classified
	Overlaps int // overlapping pairs resolved
	Dropped  int // records discarded by containment
	Sites    int // sites written to the sink
}

// Extractor consumes a CDS stream sorted by chromosome and start coordinate.
// It holds one current record and one lookahead whose sequence line has not
// been read yet; overlaps between them are settled by Resolve.
type Extractor struct {
	current     Slot
	next        Slot
	chrom       string // chromosome of the last header
	discardNext bool
	finished    bool

	sink   Sink
	stats  Stats
	logger *zap.Logger
}

// New creates an extractor writing sites to sink.
func New(sink Sink) *Extractor {
	return &Extractor{
		sink:   sink,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for overlap and chromosome diagnostics.
func (e *Extractor) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Stats returns the counters accumulated so far.
func (e *Extractor) Stats() Stats {
	return e.stats
}

// Run drives the extractor over every record of r and flushes at the end.
func (e *Extractor) Run(r RecordReader) error {
	for {
		rec, err := r.Next()
		if err != nil {
			return err
		}
		if rec == nil {
			return e.Finish()
		}
		if err := e.Header(rec.Header, rec.Line); err != nil {
			return err
		}
		// A header without sequence is reported by the next Header or Finish.
		if rec.HasSeq {
			if err := e.Sequence(rec.Seq, rec.Line+1); err != nil {
				return err
			}
		}
	}
}

// Header parses the next header and settles it against the current record.
func (e *Extractor) Header(header string, line int) error {
	if e.finished {
		return errors.New("extractor already finished")
	}
	if !e.next.Empty() {
		return cds.Truncated(e.next.Record(), line, "header found before the sequence of the previous record")
	}

	cand, err := cds.ParseHeader(header)
	if err != nil {
		return withLine(err, line)
	}
	e.stats.Records++

	// The current slot may already be empty after a drop, so the switch is
	// detected against the previous header.
	if e.chrom != "" && e.chrom != cand.Chrom {
		e.logger.Info("chromosome switch",
			zap.String("from", cds.Label(e.chrom)),
			zap.String("to", cds.Label(cand.Chrom)))
		if err := e.flush(); err != nil {
			return err
		}
	}
	e.chrom = cand.Chrom

	if e.current.Empty() {
		e.next.Replace(cand)
		return nil
	}
	return e.apply(Resolve(e.current.Record(), cand), cand)
}

// apply carries out a resolution. The candidate always becomes the lookahead
// so that its sequence line is consumed, even when it is discarded.
func (e *Extractor) apply(res Resolution, cand *cds.Record) error {
	cur := e.current.Record()
	e.next.Replace(cand)
	if res.Action == ActionNone {
		return e.flush()
	}

	e.stats.Overlaps++
	e.logger.Info("overlapping CDS",
		zap.String("chrom", cds.Label(cur.Chrom)),
		zap.String("current", cur.GeneID),
		zap.String("next", cand.GeneID),
		zap.Int("overlap", res.OverlapCount),
		zap.Int("deleted", res.DelLength),
		zap.Stringer("action", res.Action))

	switch res.Action {
	case ActionTruncateBoth:
		e.current.TruncateTail(res.DelLength)
		if err := e.flush(); err != nil {
			return err
		}
		e.next.TruncateHead(res.DelLength)

	case ActionDropBoth:
		e.contained(cur, cand)
		e.contained(cand, cur)
		e.current.Drop()
		e.discardNext = true

	case ActionDropCurrent:
		e.contained(cur, cand)
		e.current.Drop()
		e.next.TruncateHead(res.DelLength)

	case ActionDropCandidate:
		e.contained(cand, cur)
		e.current.TruncateTail(res.DelLength)
		if err := e.flush(); err != nil {
			return err
		}
		e.discardNext = true
	}
	return nil
}

func (e *Extractor) contained(dropped, by *cds.Record) {
	e.stats.Dropped++
	e.logger.Info("dropping contained CDS",
		zap.String("chrom", cds.Label(dropped.Chrom)),
		zap.String("gene", dropped.GeneID),
		zap.String("within", by.GeneID),
		zap.Int64("start", dropped.Start()),
		zap.Int64("end", dropped.End()))
}

// Sequence assigns the sequence line of the lookahead and adopts it as the
// current record, unless the resolver discarded it.
func (e *Extractor) Sequence(seq string, line int) error {
	if e.next.Empty() {
		return &cds.Error{Kind: cds.KindHeaderFormat, Line: line, Reason: "sequence line without a preceding header"}
	}
	if e.discardNext {
		e.next.Drop()
		e.discardNext = false
		return nil
	}
	if !e.current.Empty() {
		return &cds.Error{
			Kind:   cds.KindInvariantViolation,
			Line:   line,
			GeneID: e.current.Record().GeneID,
			Reason: "current record still pending when adopting the next one",
		}
	}

	if err := e.next.Record().SetSequence(seq); err != nil {
		return withLine(err, line)
	}
	e.current.Replace(e.next.Drop())
	return nil
}

// Finish flushes the pending record. A lookahead still waiting for its
// sequence means the input was truncated.
func (e *Extractor) Finish() error {
	if e.finished {
		return nil
	}
	if !e.next.Empty() {
		return cds.Truncated(e.next.Record(), 0, "input ended before the sequence line")
	}
	e.finished = true
	return e.flush()
}

func (e *Extractor) flush() error {
	if e.current.Empty() {
		return nil
	}
	e.stats.Flushed++
	return e.current.Flush(e.emit)
}

func (e *Extractor) emit(s Site) error {
	if err := e.sink.Write(s); err != nil {
		return err
	}
	e.stats.Sites++
	return nil
}

func withLine(err error, line int) error {
	var ce *cds.Error
	if errors.As(err, &ce) && ce.Line == 0 {
		ce.Line = line
	}
	return err
}
