// Package fasta reads and sorts annotated CDS FASTA files.
package fasta

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one header line and the sequence that follows it.
type Record struct {
	Header string // Full header line including '>'
	Seq    string // Sequence lines joined, whitespace trimmed
	Line   int    // 1-based line number of the header
	HasSeq bool   // false when the header was not followed by any sequence line
}

// Reader reads FASTA records from a plain or gzipped stream.
type Reader struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int

	peeked    string
	hasPeeked bool
}

// Open opens path for reading. "-" reads from stdin. Gzipped input is
// detected from its magic bytes.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fasta file: %w", err)
	}

	r := &Reader{file: file}
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
	return &Reader{reader: bufio.NewReaderSize(rd, 1<<20)}
}

// readLine returns the next line without its terminator. ok is false at EOF.
func (r *Reader) readLine() (line string, ok bool, err error) {
	if r.hasPeeked {
		r.hasPeeked = false
		return r.peeked, true, nil
	}
	line, err = r.reader.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", false, fmt.Errorf("read fasta line: %w", err)
		}
		if line == "" {
			return "", false, nil
		}
	}
	r.lineNumber++
	return strings.TrimRight(line, "\r\n"), true, nil
}

func (r *Reader) unread(line string) {
	r.peeked, r.hasPeeked = line, true
}

// Next reads the next record.
// Returns nil, nil when there are no more records.
func (r *Reader) Next() (*Record, error) {
	var header string
	for {
		line, ok, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] != '>' {
			return nil, &ParseError{Line: r.lineNumber, Message: "expected a header line starting with '>'"}
		}
		header = line
		break
	}

	rec := &Record{Header: header, Line: r.lineNumber}
	var seq strings.Builder
	for {
		line, ok, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if strings.HasPrefix(line, ">") {
			r.unread(line)
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seq.WriteString(line)
		rec.HasSeq = true
	}
	rec.Seq = seq.String()
	return rec, nil
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

// ParseError represents a malformed FASTA stream with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fasta parse error at line %d: %s", e.Line, e.Message)
}
