package cds

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a fatal error raised while reading the CDS stream.
type ErrorKind int

const (
	// KindHeaderFormat marks an unparseable header line.
	KindHeaderFormat ErrorKind = iota + 1
	// KindStreamTruncated marks input that ended in the middle of a record.
	KindStreamTruncated
	// KindInvariantViolation marks a coordinate/sequence length mismatch.
	KindInvariantViolation
)

func (k ErrorKind) String() string {
	switch k {
	case KindHeaderFormat:
		return "header format error"
	case KindStreamTruncated:
		return "stream truncated"
	case KindInvariantViolation:
		return "invariant violation"
	default:
		return "unknown error"
	}
}

// Sentinels for use with errors.Is.
var (
	ErrHeaderFormat       = errors.New(KindHeaderFormat.String())
	ErrStreamTruncated    = errors.New(KindStreamTruncated.String())
	ErrInvariantViolation = errors.New(KindInvariantViolation.String())

	// ErrUnknownChromosome is reported alongside ErrHeaderFormat when the
	// location names a chromosome outside the recognised arm set.
	ErrUnknownChromosome = errors.New("unknown chromosome")
)

// Error carries the context of the record that failed.
type Error struct {
	Kind   ErrorKind
	Line   int // 1-based input line, 0 if unknown
	Chrom  string
	GeneID string
	Header string
	Reason string

	cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Chrom != "" || e.GeneID != "" {
		fmt.Fprintf(&b, " (chrom=%s gene=%s)", e.Chrom, e.GeneID)
	}
	if e.Header != "" {
		b.WriteString("\n")
		b.WriteString(e.Header)
	}
	return b.String()
}

// Unwrap exposes the kind sentinel and, when set, the specific cause.
func (e *Error) Unwrap() []error {
	var kind error
	switch e.Kind {
	case KindHeaderFormat:
		kind = ErrHeaderFormat
	case KindStreamTruncated:
		kind = ErrStreamTruncated
	case KindInvariantViolation:
		kind = ErrInvariantViolation
	}
	errs := make([]error, 0, 2)
	if kind != nil {
		errs = append(errs, kind)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

func headerError(header, reason string) *Error {
	return &Error{Kind: KindHeaderFormat, Header: header, Reason: reason}
}

// Truncated builds a StreamTruncatedError for the given record.
func Truncated(r *Record, line int, reason string) *Error {
	e := &Error{Kind: KindStreamTruncated, Line: line, Reason: reason}
	if r != nil {
		e.Chrom, e.GeneID, e.Header = r.Chrom, r.GeneID, r.Header
	}
	return e
}

func invariantError(r *Record, reason string) *Error {
	return &Error{
		Kind:   KindInvariantViolation,
		Chrom:  r.Chrom,
		GeneID: r.GeneID,
		Header: r.Header,
		Reason: reason,
	}
}
