// Package codon classifies codons under the standard genetic code.
package codon

// Upper returns the upper-case form of a nucleotide letter.
func Upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// IsFourFold reports whether the third base of codon (b0, b1, b2) is a
// four-fold degenerate site. Only the first two bases matter:
//
//	b1 == A          never
//	b1 == C          always
//	b1 == T or G     when b0 is C or G
func IsFourFold(b0, b1 byte) bool {
	switch Upper(b1) {
	case 'C':
		return true
	case 'T', 'G':
		switch Upper(b0) {
		case 'C', 'G':
			return true
		}
	}
	return false
}
