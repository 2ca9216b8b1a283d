package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parser streams variant calls from a VCF file.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	samples    int // sample columns announced by #CHROM
}

// NewParser opens a plain or gzipped VCF file and consumes its header.
// "-" reads from stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p := &Parser{file: file}
	br := bufio.NewReader(file)

	// gzip magic number
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = br
	}

	if err := p.skipHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser over an uncompressed stream.
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{reader: bufio.NewReader(r)}
	if err := p.skipHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

// readLine returns the next line without its terminator. ok is false at EOF.
func (p *Parser) readLine() (line string, ok bool, err error) {
	line, err = p.reader.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", false, fmt.Errorf("read vcf line: %w", err)
		}
		if line == "" {
			return "", false, nil
		}
	}
	p.lineNumber++
	return strings.TrimRight(line, "\r\n"), true, nil
}

// skipHeader consumes the ## meta lines and the #CHROM line.
func (p *Parser) skipHeader() error {
	for {
		line, ok, err := p.readLine()
		if err != nil {
			return err
		}
		if !ok {
			return &ParseError{Line: p.lineNumber, Message: "no #CHROM header line found"}
		}
		switch {
		case strings.HasPrefix(line, "##"):
			continue
		case strings.HasPrefix(line, "#CHROM"):
			if n := strings.Count(line, "\t") + 1; n > 9 {
				p.samples = n - 9
			}
			return nil
		default:
			return &ParseError{Line: p.lineNumber, Message: "expected #CHROM header line"}
		}
	}
}

// Next returns the next call, or nil, nil at end of input.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, ok, err := p.readLine()
		if err != nil || !ok {
			return nil, err
		}
		if line == "" {
			continue
		}
		return p.parseLine(line)
	}
}

func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}
	if p.samples > 0 && len(fields) != 9+p.samples {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected %d sample columns, found %d", p.samples, max(len(fields)-9, 0)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || pos < 1 {
		return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid position: %s", fields[1])}
	}

	var qual float64
	if fields[5] != "." {
		if qual, err = strconv.ParseFloat(fields[5], 64); err != nil {
			return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid QUAL: %s", fields[5])}
		}
	}

	v := &Variant{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    fields[4],
		Qual:   qual,
		Filter: fields[6],
		Info:   parseInfo(fields[7]),
	}
	if len(fields) > 9 {
		v.Samples = fields[9:]
	}
	return v, nil
}

// parseInfo splits key=value pairs; flags map to "".
func parseInfo(info string) map[string]string {
	out := make(map[string]string)
	if info == "." {
		return out
	}
	for _, kv := range strings.Split(info, ";") {
		key, value, _ := strings.Cut(kv, "=")
		out[key] = value
	}
	return out
}

// LineNumber returns the number of lines read so far.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close releases the underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError reports a malformed VCF line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
