// Package extract finds four-fold degenerate sites in a sorted CDS stream,
// discarding regions covered by more than one CDS.
package extract

// Site is a four-fold degenerate position.
type Site struct {
	Chrom  string // Output chromosome label (e.g. "chr2L")
	GeneID string // Parent gene of the CDS the site was taken from
	Pos    int64  // Genomic coordinate of the third codon base
}

// Sink receives sites in emission order.
type Sink interface {
	Write(s Site) error
}

// Collector is an in-memory Sink.
type Collector struct {
	Sites []Site
}

// Write appends s.
func (c *Collector) Write(s Site) error {
	c.Sites = append(c.Sites, s)
	return nil
}

// MultiSink writes every site to each sink in turn.
type MultiSink []Sink

// Write forwards s to all sinks, stopping at the first error.
func (m MultiSink) Write(s Site) error {
	for _, sink := range m {
		if err := sink.Write(s); err != nil {
			return err
		}
	}
	return nil
}
