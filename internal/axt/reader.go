// Package axt reads pairwise AXT alignments and answers site-level questions
// about the aligned (outgroup) genome.
package axt

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ffsites/ffsites/internal/cds"
)

// Block is one alignment record: a summary line followed by the primary and
// aligned sequence lines.
type Block struct {
	ID           string
	Chrom        string // Primary chromosome, always "chr" prefixed
	Start        int64  // 1-based primary start
	End          int64  // 1-based primary end, inclusive
	AlignedChrom string
	AlignedStart int64
	AlignedEnd   int64
	Strand       string
	Score        int64
	Primary      string // Primary sequence with '-' for gaps
	Aligned      string // Aligned sequence, same length as Primary
	Line         int    // Line number of the summary line
}

// SameChrom reports whether the aligned chunk sits on the same chromosome as
// the primary one.
func (b *Block) SameChrom() bool {
	return b.Chrom == b.AlignedChrom
}

// Column returns the alignment column holding primary position pos, or -1
// when pos is outside the block.
func (b *Block) Column(pos int64) int {
	if pos < b.Start || pos > b.End {
		return -1
	}
	truePos := b.Start
	for i := 0; i < len(b.Primary); i++ {
		if b.Primary[i] == '-' {
			continue
		}
		if truePos == pos {
			return i
		}
		truePos++
	}
	return -1
}

// Reader reads AXT blocks from a plain or gzipped stream. Blocks must be
// grouped by primary chromosome and sorted by primary start within a group.
type Reader struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int

	prev *Block
	seen map[string]bool
}

// Open opens path for reading. Gzipped input is detected from its magic bytes.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open axt file: %w", err)
	}

	r := &Reader{file: file, seen: make(map[string]bool)}
	br := bufio.NewReaderSize(file, 1<<20)

	// Check for gzip magic number (0x1f, 0x8b)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		r.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.reader = bufio.NewReaderSize(r.gzipReader, 1<<20)
	} else {
		r.reader = br
	}
	return r, nil
}

// NewReader creates a reader over an uncompressed stream.
func NewReader(rd io.Reader) *Reader {
	return &Reader{reader: bufio.NewReaderSize(rd, 1<<20), seen: make(map[string]bool)}
}

func (r *Reader) readLine() (string, bool, error) {
	line, err := r.reader.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", false, fmt.Errorf("read axt line: %w", err)
		}
		if line == "" {
			return "", false, nil
		}
	}
	r.lineNumber++
	return strings.TrimRight(line, "\r\n"), true, nil
}

// Next reads the next block.
// Returns nil, nil when there are no more blocks.
func (r *Reader) Next() (*Block, error) {
	var summary string
	for {
		line, ok, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		if strings.TrimSpace(line) == "" || line[0] == '#' {
			continue
		}
		summary = line
		break
	}

	b, err := r.parseSummary(summary)
	if err != nil {
		return nil, err
	}

	primary, ok, err := r.readLine()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ParseError{Line: r.lineNumber, Message: "end of file before primary sequence"}
	}
	aligned, ok, err := r.readLine()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ParseError{Line: r.lineNumber, Message: "end of file before aligned sequence"}
	}
	b.Primary = strings.TrimSpace(primary)
	b.Aligned = strings.TrimSpace(aligned)
	if len(b.Primary) != len(b.Aligned) {
		return nil, &ParseError{
			Line:    b.Line,
			Message: fmt.Sprintf("sequences of block %s differ in length (%d and %d)", b.ID, len(b.Primary), len(b.Aligned)),
		}
	}

	r.prev = b
	return b, nil
}

func (r *Reader) parseSummary(line string) (*Block, error) {
	fields := strings.Fields(line)
	if len(fields) != 9 {
		return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("expected 9 summary fields, found %d", len(fields))}
	}

	b := &Block{ID: fields[0], Strand: fields[7], Line: r.lineNumber}
	var err error
	if b.Chrom, err = normalizeChrom(fields[1]); err != nil {
		return nil, &ParseError{Line: r.lineNumber, Message: err.Error()}
	}
	if b.AlignedChrom, err = normalizeChrom(fields[4]); err != nil {
		return nil, &ParseError{Line: r.lineNumber, Message: "aligned " + err.Error()}
	}

	coords := []*int64{&b.Start, &b.End, &b.AlignedStart, &b.AlignedEnd}
	for i, idx := range []int{2, 3, 5, 6} {
		v, err := strconv.ParseInt(fields[idx], 10, 64)
		if err != nil || v <= 0 {
			return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid coordinate: %s", fields[idx])}
		}
		*coords[i] = v
	}
	if b.End < b.Start {
		return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("primary end %d before start %d", b.End, b.Start)}
	}
	if b.Score, err = strconv.ParseInt(fields[8], 10, 64); err != nil {
		return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("invalid score: %s", fields[8])}
	}

	if r.prev != nil && r.prev.Chrom == b.Chrom {
		if b.Start <= r.prev.Start {
			return nil, &ParseError{
				Line:    r.lineNumber,
				Message: fmt.Sprintf("primary start %d not greater than previous block start %d", b.Start, r.prev.Start),
			}
		}
	} else {
		if r.seen[b.Chrom] {
			return nil, &ParseError{Line: r.lineNumber, Message: fmt.Sprintf("blocks for %s are not contiguous", b.Chrom)}
		}
		r.seen[b.Chrom] = true
	}
	return b, nil
}

func normalizeChrom(name string) (string, error) {
	if strings.HasPrefix(name, "chr") {
		return name, nil
	}
	if cds.IsArm(name) {
		return "chr" + name, nil
	}
	return "", fmt.Errorf("chromosome field %q is neither chr prefixed nor a chromosome arm", name)
}

// LineNumber returns the number of lines consumed so far.
func (r *Reader) LineNumber() int {
	return r.lineNumber
}

// Close closes the reader and underlying file.
func (r *Reader) Close() error {
	if r.gzipReader != nil {
		r.gzipReader.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ParseError represents a malformed AXT stream with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("axt parse error at line %d: %s", e.Line, e.Message)
}
