package cds

import (
	"fmt"
	"strconv"
	"strings"
)

// Arms lists the recognised chromosome arm names in output order.
var Arms = []string{"2L", "2R", "3L", "3R", "4", "X"}

// scaffoldPrefix precedes arm names in the D. simulans annotation.
const scaffoldPrefix = "Scf_"

// IsArm reports whether name is a recognised chromosome arm.
func IsArm(name string) bool {
	for _, a := range Arms {
		if a == name {
			return true
		}
	}
	return false
}

// Label returns the output chromosome label for an arm ("X" -> "chrX").
func Label(arm string) string {
	return "chr" + arm
}

// ParseHeader parses a FASTA header such as
//
//	>FBpp0070000 type=CDS; loc=X:complement(join(19961297..19961845,19963955..19964071)); parent=FBgn0031081,FBtr0070000;
//
// into a Record without a sequence. The coordinate list always reads 5'->3'.
func ParseHeader(header string) (*Record, error) {
	var loc, parent string
	var haveLoc, haveParent bool
	for _, field := range strings.Fields(header) {
		switch {
		case !haveLoc && strings.HasPrefix(field, "loc="):
			loc, haveLoc = strings.TrimSuffix(field[len("loc="):], ";"), true
		case !haveParent && strings.HasPrefix(field, "parent="):
			parent, haveParent = field[len("parent="):], true
		}
	}
	if !haveLoc {
		return nil, headerError(header, "missing loc= field")
	}
	if !haveParent {
		return nil, headerError(header, "missing parent= field")
	}

	geneID := parent
	if i := strings.IndexAny(geneID, ",;"); i >= 0 {
		geneID = geneID[:i]
	}
	if geneID == "" {
		return nil, headerError(header, "empty parent= field")
	}

	chrom, ranges, ok := strings.Cut(loc, ":")
	if !ok {
		return nil, headerError(header, fmt.Sprintf("no chromosome separator in location %q", loc))
	}
	chrom = strings.TrimPrefix(chrom, scaffoldPrefix)
	if !IsArm(chrom) {
		e := headerError(header, fmt.Sprintf("unknown chromosome %q", chrom))
		e.cause = ErrUnknownChromosome
		return nil, e
	}

	complemented := false
	if inner, ok := unwrapCall(ranges, "complement"); ok {
		ranges, complemented = inner, true
	}
	if inner, ok := unwrapCall(ranges, "join"); ok {
		ranges = inner
	}

	parts := strings.Split(ranges, ",")
	bounds := make([][2]int64, len(parts))
	total := 0
	for i, p := range parts {
		start, end, err := parseRange(p)
		if err != nil {
			e := headerError(header, err.Error())
			e.Chrom, e.GeneID = chrom, geneID
			return nil, e
		}
		bounds[i] = [2]int64{start, end}
		total += int(end-start) + 1
	}

	positions := make([]int64, 0, total)
	if complemented {
		for i := len(bounds) - 1; i >= 0; i-- {
			for p := bounds[i][1]; p >= bounds[i][0]; p-- {
				positions = append(positions, p)
			}
		}
	} else {
		for _, b := range bounds {
			for p := b[0]; p <= b[1]; p++ {
				positions = append(positions, p)
			}
		}
	}

	return &Record{
		Chrom:     chrom,
		GeneID:    geneID,
		Positions: positions,
		Header:    header,
	}, nil
}

// unwrapCall strips name( ... ) from s.
func unwrapCall(s, name string) (string, bool) {
	if !strings.HasPrefix(s, name+"(") || !strings.HasSuffix(s, ")") {
		return s, false
	}
	return s[len(name)+1 : len(s)-1], true
}

// parseRange parses START..END; start must be strictly below end.
func parseRange(s string) (int64, int64, error) {
	a, b, ok := strings.Cut(s, "..")
	if !ok {
		return 0, 0, fmt.Errorf("cannot parse position range %q", s)
	}
	start, err := strconv.ParseInt(a, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range start %q", a)
	}
	end, err := strconv.ParseInt(b, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range end %q", b)
	}
	if start >= end {
		return 0, 0, fmt.Errorf("start position %d is not before end position %d", start, end)
	}
	return start, end, nil
}
