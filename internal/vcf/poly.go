package vcf

import (
	"go.uber.org/zap"

	"github.com/ffsites/ffsites/internal/axt"
	"github.com/ffsites/ffsites/internal/codon"
	"github.com/ffsites/ffsites/internal/query"
	"github.com/ffsites/ffsites/internal/region"
)

// Ancestral is the inferred ancestral allele of a polymorphic site.
type Ancestral byte

const (
	AncestralRef     Ancestral = 'r'
	AncestralAlt     Ancestral = 'a'
	AncestralUnknown Ancestral = 'u'
)

func (a Ancestral) String() string {
	return string(rune(a))
}

// OutgroupSource looks up the outgroup base at a primary position.
// Lookups arrive in VCF order.
type OutgroupSource interface {
	OutgroupState(chrom string, pos int64) (axt.Outgroup, error)
}

// PolySite is one polymorphic site with allele counts polarised so that they
// describe the derived allele whenever the ancestral allele is known.
type PolySite struct {
	Chrom      string
	Pos        int64
	Ref        byte
	Alt        byte
	Ancestral  Ancestral
	AC         int64   // derived allele count
	MLAC       int64   // maximum-likelihood derived allele count
	AF         float64 // derived allele frequency
	MLAF       float64 // maximum-likelihood derived allele frequency
	Missing    int     // samples with uncalled genotypes
	SameChrom  bool    // outgroup base aligned from the same chromosome
	OutQuality bool    // outgroup base is upper case
	Qual       float64 // VCF QUAL
}

// Polarise builds a PolySite from v and the outgroup base at its position.
func Polarise(v *Variant, og axt.Outgroup) PolySite {
	s := PolySite{
		Chrom:     v.ChromLabel(),
		Pos:       v.Pos,
		Ref:       v.Ref[0],
		Alt:       v.Alt[0],
		Ancestral: AncestralUnknown,
		AC:        v.InfoInt("AC"),
		MLAC:      v.InfoInt("MLEAC"),
		AF:        v.InfoFloat("AF"),
		MLAF:      v.InfoFloat("MLEAF"),
		Missing:   v.MissingGenotypes(),
		Qual:      v.Qual,
	}
	if !og.Known() {
		return s
	}

	s.SameChrom = og.SameChrom
	s.OutQuality = og.GoodQuality
	switch codon.Upper(og.Base) {
	case codon.Upper(s.Ref):
		s.Ancestral = AncestralRef
	case codon.Upper(s.Alt):
		s.Ancestral = AncestralAlt
		an := v.InfoInt("AN")
		s.AC = an - s.AC
		s.MLAC = an - s.MLAC
		s.AF = 1 - s.AF
		s.MLAF = 1 - s.MLAF
	}
	return s
}

// PolyStats counts what a scan examined.
type PolyStats struct {
	Variants int // data lines read
	Skipped  int // non-SNV calls inside the query
	Reported int // sites emitted, counting each peak separately
}

// PolyScanner streams a VCF once and reports the calls that fall on queried
// positions or ranges.
type PolyScanner struct {
	src      VariantParser
	outgroup OutgroupSource
	stats    PolyStats
	logger   *zap.Logger
}

// NewPolyScanner creates a scanner over src using outgroup for polarisation.
func NewPolyScanner(src VariantParser, outgroup OutgroupSource) *PolyScanner {
	return &PolyScanner{src: src, outgroup: outgroup, logger: zap.NewNop()}
}

// SetLogger sets the logger for skipped calls.
func (s *PolyScanner) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Stats returns the scan counters.
func (s *PolyScanner) Stats() PolyStats {
	return s.stats
}

// scan calls fn for every SNV accepted by want, in VCF order.
func (s *PolyScanner) scan(want func(chrom string, pos int64) bool, fn func(PolySite) error) error {
	for {
		v, err := s.src.Next()
		if err != nil {
			return err
		}
		if v == nil {
			return nil
		}
		s.stats.Variants++

		chrom := v.ChromLabel()
		if !want(chrom, v.Pos) {
			continue
		}
		if !v.IsSNV() {
			s.stats.Skipped++
			s.logger.Debug("skipping non-SNV call",
				zap.String("chrom", chrom),
				zap.Int64("pos", v.Pos),
				zap.String("ref", v.Ref),
				zap.String("alt", v.Alt),
				zap.Int("line", s.src.LineNumber()))
			continue
		}
		og, err := s.outgroup.OutgroupState(chrom, v.Pos)
		if err != nil {
			return err
		}
		if err := fn(Polarise(v, og)); err != nil {
			return err
		}
	}
}

// ScanPositions emits the calls at the queried positions.
func (s *PolyScanner) ScanPositions(positions []query.Position, emit func(PolySite) error) error {
	set := make(map[query.Position]bool, len(positions))
	for _, p := range positions {
		set[p] = true
	}
	want := func(chrom string, pos int64) bool {
		return set[query.Position{Chrom: chrom, Pos: pos}]
	}
	return s.scan(want, func(site PolySite) error {
		s.stats.Reported++
		return emit(site)
	})
}

// ScanRanges emits the calls inside the queried ranges, grouped by range in
// query order. A call inside several overlapping ranges is emitted once per
// range.
func (s *PolyScanner) ScanRanges(ranges []query.Range, emit func(peak *query.Range, site PolySite) error) error {
	idx := region.NewIndex(ranges)
	byPeak := make(map[*query.Range][]PolySite)

	err := s.scan(
		func(chrom string, pos int64) bool { return len(idx.Find(chrom, pos)) > 0 },
		func(site PolySite) error {
			for _, peak := range idx.Find(site.Chrom, site.Pos) {
				byPeak[peak] = append(byPeak[peak], site)
			}
			return nil
		},
	)
	if err != nil {
		return err
	}

	for i := range ranges {
		peak := &ranges[i]
		for _, site := range byPeak[peak] {
			s.stats.Reported++
			if err := emit(peak, site); err != nil {
				return err
			}
		}
	}
	return nil
}
