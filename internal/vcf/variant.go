package vcf

import (
	"strconv"
	"strings"
)

// Variant represents a single genomic variant from a VCF file.
type Variant struct {
	Chrom   string            // Chromosome name (e.g., "2L", "chr2L")
	Pos     int64             // 1-based genomic position
	ID      string            // Variant identifier
	Ref     string            // Reference allele
	Alt     string            // Alternate allele(s), comma separated
	Qual    float64           // Quality score
	Filter  string            // Filter status (PASS or filter name)
	Info    map[string]string // INFO key-value pairs; flags map to ""
	Samples []string          // Per-sample columns after FORMAT
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// ChromLabel returns the chromosome name with the "chr" prefix.
func (v *Variant) ChromLabel() string {
	if strings.HasPrefix(v.Chrom, "chr") {
		return v.Chrom
	}
	return "chr" + v.Chrom
}

// InfoInt returns the first value of an integer INFO key, or 0.
func (v *Variant) InfoInt(key string) int64 {
	n, _ := strconv.ParseInt(firstValue(v.Info[key]), 10, 64)
	return n
}

// InfoFloat returns the first value of a numeric INFO key, or 0.
func (v *Variant) InfoFloat(key string) float64 {
	f, _ := strconv.ParseFloat(firstValue(v.Info[key]), 64)
	return f
}

func firstValue(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[:i]
	}
	return s
}

// MissingGenotypes counts samples whose GT is not called.
func (v *Variant) MissingGenotypes() int {
	n := 0
	for _, s := range v.Samples {
		gt := s
		if i := strings.IndexByte(s, ':'); i >= 0 {
			gt = s[:i]
		}
		switch gt {
		case ".", "./.", ".|.":
			n++
		}
	}
	return n
}
