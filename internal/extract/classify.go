package extract

import (
	"github.com/ffsites/ffsites/internal/cds"
	"github.com/ffsites/ffsites/internal/codon"
)

// Classify walks r in codon steps from offset 0 and calls emit for the third
// base of every four-fold codon. Trailing partial codons are ignored.
func Classify(r *cds.Record, emit func(Site) error) error {
	if err := r.Validate(); err != nil {
		return err
	}
	chrom := cds.Label(r.Chrom)
	n := len(r.Seq) / 3 * 3
	for i := 0; i < n; i += 3 {
		if !codon.IsFourFold(r.Seq[i], r.Seq[i+1]) {
			continue
		}
		if err := emit(Site{Chrom: chrom, GeneID: r.GeneID, Pos: r.Positions[i+2]}); err != nil {
			return err
		}
	}
	return nil
}

// FourFoldSites returns the four-fold sites of a single record.
func FourFoldSites(r *cds.Record) ([]Site, error) {
	var c Collector
	if err := Classify(r, c.Write); err != nil {
		return nil, err
	}
	return c.Sites, nil
}
