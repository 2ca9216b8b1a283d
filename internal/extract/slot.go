package extract

import "github.com/ffsites/ffsites/internal/cds"

// Slot owns the current record. It is either empty or holds exactly one
// record; every transition moves the record in or out.
type Slot struct {
	rec *cds.Record
}

// Empty reports whether the slot holds no record.
func (s *Slot) Empty() bool {
	return s.rec == nil
}

// Record returns the held record without giving up ownership.
func (s *Slot) Record() *cds.Record {
	return s.rec
}

// Replace moves r into the slot. The previous record, if any, is discarded.
func (s *Slot) Replace(r *cds.Record) {
	s.rec = r
}

// Drop empties the slot and returns the record it held.
func (s *Slot) Drop() *cds.Record {
	r := s.rec
	s.rec = nil
	return r
}

// TruncateTail removes n nucleotides from the genomically high end.
func (s *Slot) TruncateTail(n int) {
	if s.rec != nil {
		s.rec.TrimHigh(n)
	}
}

// TruncateHead removes n nucleotides from the genomically low end.
func (s *Slot) TruncateHead(n int) {
	if s.rec != nil {
		s.rec.TrimLow(n)
	}
}

// Flush classifies the held record into emit and empties the slot.
// Flushing an empty slot is a no-op.
func (s *Slot) Flush(emit func(Site) error) error {
	r := s.Drop()
	if r == nil {
		return nil
	}
	return Classify(r, emit)
}
