// Package query reads the position and range lists that drive the divergence
// and polymorphism scans.
package query

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Mode is the layout of a query file, fixed by its first data line.
type Mode int

const (
	ModePositions Mode = iota + 1 // two columns: chromosome, position
	ModeRanges                    // three or more columns: chromosome, start, end
)

func (m Mode) String() string {
	switch m {
	case ModePositions:
		return "positions"
	case ModeRanges:
		return "ranges"
	}
	return "unknown"
}

// Position is a single queried site.
type Position struct {
	Chrom string
	Pos   int64
}

// Range is a queried region, inclusive on both ends. ID is assigned in file
// order as P1, P2, ...
type Range struct {
	ID    string
	Chrom string
	Start int64
	End   int64
}

// Query holds the parsed contents of a query file. Exactly one of Positions
// and Ranges is populated, according to Mode.
type Query struct {
	Mode      Mode
	Positions []Position
	Ranges    []Range
}

// Chroms returns the distinct chromosomes in file order.
func (q *Query) Chroms() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, p := range q.Positions {
		add(p.Chrom)
	}
	for _, r := range q.Ranges {
		add(r.Chrom)
	}
	return out
}

// NormalizeChrom adds the "chr" prefix to short names such as "2L" or "X".
func NormalizeChrom(name string) string {
	if len(name) <= 2 {
		return "chr" + name
	}
	return name
}

// ReadFile parses the query file at path.
func ReadFile(path string) (*Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open query file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a query stream. Blank lines and lines starting with '#' are
// skipped. A first data line whose coordinate columns are not numeric is
// treated as a column header.
func Read(r io.Reader) (*Query, error) {
	q := &Query{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)

		if q.Mode == 0 {
			switch {
			case len(fields) < 2:
				return nil, &ParseError{Line: lineNumber, Message: "expected at least two whitespace separated fields"}
			case len(fields) == 2:
				q.Mode = ModePositions
			default:
				q.Mode = ModeRanges
			}
			if !isDigit(fields[1]) || (q.Mode == ModeRanges && !isDigit(fields[2])) {
				continue
			}
		}

		switch q.Mode {
		case ModePositions:
			p, err := parsePosition(fields)
			if err != nil {
				return nil, &ParseError{Line: lineNumber, Message: err.Error()}
			}
			q.Positions = append(q.Positions, p)
		case ModeRanges:
			rg, err := parseRange(fields)
			if err != nil {
				return nil, &ParseError{Line: lineNumber, Message: err.Error()}
			}
			rg.ID = "P" + strconv.Itoa(len(q.Ranges)+1)
			q.Ranges = append(q.Ranges, rg)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}
	if q.Mode == 0 {
		return nil, &ParseError{Line: lineNumber, Message: "no uncommented non-empty lines"}
	}
	return q, nil
}

func parsePosition(fields []string) (Position, error) {
	if len(fields) != 2 {
		return Position{}, fmt.Errorf("expected 2 fields in a positions file, found %d", len(fields))
	}
	pos, err := parseCoord(fields[1])
	if err != nil {
		return Position{}, err
	}
	return Position{Chrom: NormalizeChrom(fields[0]), Pos: pos}, nil
}

func parseRange(fields []string) (Range, error) {
	if len(fields) < 3 {
		return Range{}, fmt.Errorf("expected at least 3 fields in a ranges file, found %d", len(fields))
	}
	start, err := parseCoord(fields[1])
	if err != nil {
		return Range{}, err
	}
	end, err := parseCoord(fields[2])
	if err != nil {
		return Range{}, err
	}
	if start >= end {
		return Range{}, fmt.Errorf("range start %d must be less than end %d", start, end)
	}
	return Range{Chrom: NormalizeChrom(fields[0]), Start: start, End: end}, nil
}

func parseCoord(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid coordinate: %s", s)
	}
	return v, nil
}

func isDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// ParseError represents a malformed query file with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("query parse error at line %d: %s", e.Line, e.Message)
}
