// Package vcf reads VCF calls and reports polarised polymorphic sites.
package vcf

// VariantParser is the interface for parsers that read variants.
type VariantParser interface {
	// Next reads the next variant.
	// Returns nil, nil when there are no more variants.
	Next() (*Variant, error)

	// Close closes the parser and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}
