// Package output provides tab-delimited writers for extracted sites.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/ffsites/ffsites/internal/axt"
	"github.com/ffsites/ffsites/internal/extract"
	"github.com/ffsites/ffsites/internal/query"
	"github.com/ffsites/ffsites/internal/vcf"
)

// TabWriter writes rows in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer with the given columns.
func NewTabWriter(w io.Writer, columns ...string) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	return tw.WriteRow(tw.columns...)
}

// WriteRow writes one tab-joined line.
func (tw *TabWriter) WriteRow(values ...string) error {
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// SiteWriter writes four-fold degenerate sites. It satisfies extract.Sink.
type SiteWriter struct {
	*TabWriter
}

// NewSiteWriter creates a site writer.
func NewSiteWriter(w io.Writer) *SiteWriter {
	return &SiteWriter{NewTabWriter(w, "chr", "FBgn", "pos")}
}

// Write writes a single site.
func (sw *SiteWriter) Write(s extract.Site) error {
	return sw.WriteRow(s.Chrom, s.GeneID, itoa(s.Pos))
}

// DivergenceWriter writes diverged sites, either per position or per peak.
type DivergenceWriter struct {
	*TabWriter
}

// NewDivergenceWriter creates a divergence writer. With ranges set, each row
// is prefixed by the peak id and its effective length.
func NewDivergenceWriter(w io.Writer, ranges bool) *DivergenceWriter {
	cols := []string{"chr", "position", "prNuc", "alNuc", "sameCHR", "goodQual"}
	if ranges {
		cols = append([]string{"peakID", "realLen"}, cols...)
	}
	return &DivergenceWriter{NewTabWriter(w, cols...)}
}

// WriteLengths writes the per-chromosome effective lengths as comment lines.
// Call it before WriteHeader.
func (dw *DivergenceWriter) WriteLengths(lengths []axt.ChromLength) error {
	for _, l := range lengths {
		if err := dw.WriteRow("#", l.Chrom, itoa(l.Length)); err != nil {
			return err
		}
	}
	return nil
}

func divergedFields(d axt.Diverged) []string {
	return []string{
		d.Chrom,
		itoa(d.Pos),
		string(d.Primary),
		string(d.Aligned),
		flag(d.SameChrom),
		flag(d.GoodQuality),
	}
}

// Write writes a diverged site in positions layout.
func (dw *DivergenceWriter) Write(d axt.Diverged) error {
	return dw.WriteRow(divergedFields(d)...)
}

// WritePeak writes a diverged site in ranges layout.
func (dw *DivergenceWriter) WritePeak(peak *query.Range, length int64, d axt.Diverged) error {
	return dw.WriteRow(append([]string{peak.ID, itoa(length)}, divergedFields(d)...)...)
}

// PolyWriter writes polarised polymorphic sites.
type PolyWriter struct {
	*TabWriter
}

// NewPolyWriter creates a polymorphism writer. With ranges set, each row is
// prefixed by the peak id.
func NewPolyWriter(w io.Writer, ranges bool) *PolyWriter {
	cols := []string{"CHR", "POS", "REF", "ALT", "ANC", "AC", "MLAC", "AF", "MLAF", "NMISS", "SAME_CHR", "OUTQUAL", "SITEQUAL"}
	if ranges {
		cols = append([]string{"PEAK_ID"}, cols...)
	}
	return &PolyWriter{NewTabWriter(w, cols...)}
}

func polyFields(p vcf.PolySite) []string {
	return []string{
		p.Chrom,
		itoa(p.Pos),
		string(p.Ref),
		string(p.Alt),
		p.Ancestral.String(),
		itoa(p.AC),
		itoa(p.MLAC),
		ftoa(p.AF),
		ftoa(p.MLAF),
		strconv.Itoa(p.Missing),
		flag(p.SameChrom),
		flag(p.OutQuality),
		ftoa(p.Qual),
	}
}

// Write writes a site in positions layout.
func (pw *PolyWriter) Write(p vcf.PolySite) error {
	return pw.WriteRow(polyFields(p)...)
}

// WritePeak writes a site in ranges layout.
func (pw *PolyWriter) WritePeak(peak *query.Range, p vcf.PolySite) error {
	return pw.WriteRow(append([]string{peak.ID}, polyFields(p)...)...)
}
