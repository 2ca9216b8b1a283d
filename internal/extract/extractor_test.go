package extract

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ffsites/ffsites/internal/cds"
	"github.com/ffsites/ffsites/internal/fasta"
)

type testRecord struct {
	gene       string
	chrom      string
	start, end int64
	reverse    bool
	seq        string
}

func (r testRecord) header() string {
	chrom := r.chrom
	if chrom == "" {
		chrom = "2L"
	}
	loc := fmt.Sprintf("%d..%d", r.start, r.end)
	if r.reverse {
		loc = "complement(" + loc + ")"
	}
	return fmt.Sprintf(">%s-PA type=CDS; loc=%s:%s; parent=%s,FBtr0000001;", r.gene, chrom, loc, r.gene)
}

func fastaText(recs ...testRecord) string {
	var b strings.Builder
	for _, r := range recs {
		b.WriteString(r.header())
		b.WriteString("\n")
		b.WriteString(r.seq)
		b.WriteString("\n")
	}
	return b.String()
}

func run(t *testing.T, text string) ([]Site, Stats, error) {
	t.Helper()
	var c Collector
	e := New(&c)
	err := e.Run(fasta.NewReader(strings.NewReader(text)))
	return c.Sites, e.Stats(), err
}

func positions(sites []Site) []int64 {
	out := make([]int64, len(sites))
	for i, s := range sites {
		out[i] = s.Pos
	}
	return out
}

func TestExtractor_SingleRecordFlushedOnce(t *testing.T) {
	a := testRecord{gene: "FBgnA", start: 100, end: 108, seq: "CTGATGGGT"}
	sites, stats, err := run(t, fastaText(a))
	require.NoError(t, err)

	assert.Equal(t, []Site{
		{Chrom: "chr2L", GeneID: "FBgnA", Pos: 102},
		{Chrom: "chr2L", GeneID: "FBgnA", Pos: 108},
	}, sites)
	assert.Equal(t, 1, stats.Flushed)
	assert.Equal(t, 2, stats.Sites)
}

func TestExtractor_NoOverlapIsNoOp(t *testing.T) {
	a := testRecord{gene: "FBgnA", start: 100, end: 111, seq: "CTGCCAAGATGA"}
	b := testRecord{gene: "FBgnB", start: 112, end: 120, reverse: true, seq: "GGTTCACGA"}
	sites, stats, err := run(t, fastaText(a, b))
	require.NoError(t, err)

	var want []Site
	for _, r := range []testRecord{a, b} {
		rec, err := cds.ParseHeader(r.header())
		require.NoError(t, err)
		require.NoError(t, rec.SetSequence(r.seq))
		direct, err := FourFoldSites(rec)
		require.NoError(t, err)
		want = append(want, direct...)
	}
	assert.Equal(t, want, sites)
	assert.Zero(t, stats.Overlaps)
}

func TestExtractor_PartialOverlapAllStrandCombinations(t *testing.T) {
	const aSeq = "CTGCCACGAA"    // 100..109
	const bSeq = "AAACTGGGTCCAT" // 108..120

	tests := []struct {
		name       string
		aRev, bRev bool
		want       []int64
	}{
		{"forward/forward", false, false, []int64{102, 105, 113, 116, 119}},
		{"forward/reverse", false, true, []int64{102, 105, 115, 112}},
		{"reverse/forward", true, false, []int64{104, 101, 113, 116, 119}},
		{"reverse/reverse", true, true, []int64{104, 101, 115, 112}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testRecord{gene: "FBgnA", start: 100, end: 109, reverse: tt.aRev, seq: aSeq}
			b := testRecord{gene: "FBgnB", start: 108, end: 120, reverse: tt.bRev, seq: bSeq}
			sites, stats, err := run(t, fastaText(a, b))
			require.NoError(t, err)

			assert.Equal(t, tt.want, positions(sites))
			assert.Equal(t, 1, stats.Overlaps)
			assert.Equal(t, 2, stats.Flushed)
			for _, s := range sites {
				assert.False(t, s.Pos >= 107 && s.Pos <= 110, "site %d inside the trimmed overlap", s.Pos)
			}
		})
	}
}

func TestExtractor_CandidateContained(t *testing.T) {
	a := testRecord{gene: "FBgnA", start: 100, end: 109, seq: "CTGCCACGAA"}
	b := testRecord{gene: "FBgnB", start: 101, end: 105, seq: "CCACC"}
	c := testRecord{gene: "FBgnC", start: 200, end: 205, seq: "GGAGCT"}
	sites, stats, err := run(t, fastaText(a, b, c))
	require.NoError(t, err)

	// A keeps a single nucleotide, B is dropped, C is untouched.
	assert.Equal(t, []Site{
		{Chrom: "chr2L", GeneID: "FBgnC", Pos: 202},
		{Chrom: "chr2L", GeneID: "FBgnC", Pos: 205},
	}, sites)
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, 2, stats.Flushed)
}

func TestExtractor_CurrentContained(t *testing.T) {
	a := testRecord{gene: "FBgnA", start: 100, end: 102, seq: "CTG"}
	b := testRecord{gene: "FBgnB", start: 101, end: 112, seq: "AAACTGGGTCCA"}
	sites, stats, err := run(t, fastaText(a, b))
	require.NoError(t, err)

	// A (3 nt) disappears, B loses its first codon.
	assert.Equal(t, []Site{
		{Chrom: "chr2L", GeneID: "FBgnB", Pos: 106},
		{Chrom: "chr2L", GeneID: "FBgnB", Pos: 109},
		{Chrom: "chr2L", GeneID: "FBgnB", Pos: 112},
	}, sites)
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, 1, stats.Flushed)
}

func TestExtractor_BothDropped(t *testing.T) {
	a := testRecord{gene: "FBgnA", start: 100, end: 105, seq: "CTGCTG"}
	b := testRecord{gene: "FBgnB", start: 100, end: 104, seq: "CTGCT"}
	c := testRecord{gene: "FBgnC", start: 300, end: 302, seq: "GCA"}
	sites, stats, err := run(t, fastaText(a, b, c))
	require.NoError(t, err)

	assert.Equal(t, []Site{{Chrom: "chr2L", GeneID: "FBgnC", Pos: 302}}, sites)
	assert.Equal(t, 2, stats.Dropped)
	assert.Equal(t, 1, stats.Flushed)
}

func TestExtractor_ChromosomeSwitch(t *testing.T) {
	a := testRecord{gene: "FBgnA", chrom: "2L", start: 100, end: 105, seq: "CTGCTG"}
	b := testRecord{gene: "FBgnB", chrom: "X", start: 100, end: 105, seq: "GGAGGA"}
	sites, stats, err := run(t, fastaText(a, b))
	require.NoError(t, err)

	assert.Equal(t, []Site{
		{Chrom: "chr2L", GeneID: "FBgnA", Pos: 102},
		{Chrom: "chr2L", GeneID: "FBgnA", Pos: 105},
		{Chrom: "chrX", GeneID: "FBgnB", Pos: 102},
		{Chrom: "chrX", GeneID: "FBgnB", Pos: 105},
	}, sites)
	assert.Zero(t, stats.Overlaps)
}

func TestExtractor_LowercaseSequence(t *testing.T) {
	a := testRecord{gene: "FBgnA", start: 1, end: 6, seq: "ctgaga"}
	sites, _, err := run(t, fastaText(a))
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, positions(sites))
}

func TestExtractor_Diagnostics(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var c Collector
	e := New(&c)
	e.SetLogger(zap.New(core))

	text := fastaText(
		testRecord{gene: "FBgnA", start: 100, end: 109, seq: "CTGCCACGAA"},
		testRecord{gene: "FBgnB", start: 108, end: 120, seq: "AAACTGGGTCCAT"},
		testRecord{gene: "FBgnC", start: 112, end: 114, seq: "CTG"},
		testRecord{gene: "FBgnD", start: 300, end: 302, seq: "CTG"},
		testRecord{gene: "FBgnE", chrom: "3R", start: 1, end: 3, seq: "CTG"},
	)
	require.NoError(t, e.Run(fasta.NewReader(strings.NewReader(text))))

	overlaps := logs.FilterMessage("overlapping CDS").All()
	require.Len(t, overlaps, 2)
	fields := overlaps[0].ContextMap()
	assert.Equal(t, "FBgnA", fields["current"])
	assert.Equal(t, "FBgnB", fields["next"])

	assert.Equal(t, 1, logs.FilterMessage("dropping contained CDS").Len())
	assert.Equal(t, 1, logs.FilterMessage("chromosome switch").Len())
}

func TestExtractor_WrappedSequenceLines(t *testing.T) {
	a := testRecord{gene: "FBgnA", start: 100, end: 109}
	text := a.header() + "\nCTGCC\nACGAA\n"
	sites, stats, err := run(t, text)
	require.NoError(t, err)
	assert.Equal(t, []int64{102, 105}, positions(sites))
	assert.Equal(t, 1, stats.Records)
}

func TestExtractor_ChromosomeSwitchAfterDrop(t *testing.T) {
	tests := []struct {
		name string
		recs []testRecord
		want []Site
	}{
		{
			name: "candidate contained",
			recs: []testRecord{
				{gene: "FBgnA", start: 100, end: 111, seq: "CTGCTGCTGCTG"},
				{gene: "FBgnB", start: 103, end: 107, seq: "CTGCT"},
				{gene: "FBgnC", chrom: "X", start: 1, end: 3, seq: "CTG"},
			},
			want: []Site{
				{Chrom: "chr2L", GeneID: "FBgnA", Pos: 102},
				{Chrom: "chrX", GeneID: "FBgnC", Pos: 3},
			},
		},
		{
			name: "both dropped",
			recs: []testRecord{
				{gene: "FBgnA", start: 100, end: 105, seq: "CTGCTG"},
				{gene: "FBgnB", start: 100, end: 104, seq: "CTGCT"},
				{gene: "FBgnC", chrom: "X", start: 1, end: 3, seq: "CTG"},
			},
			want: []Site{{Chrom: "chrX", GeneID: "FBgnC", Pos: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.InfoLevel)
			var c Collector
			e := New(&c)
			e.SetLogger(zap.New(core))

			require.NoError(t, e.Run(fasta.NewReader(strings.NewReader(fastaText(tt.recs...)))))
			assert.Equal(t, tt.want, c.Sites)

			switches := logs.FilterMessage("chromosome switch").All()
			require.Len(t, switches, 1)
			assert.Equal(t, "chr2L", switches[0].ContextMap()["from"])
			assert.Equal(t, "chrX", switches[0].ContextMap()["to"])
		})
	}
}

func TestExtractor_Errors(t *testing.T) {
	a := testRecord{gene: "FBgnA", start: 100, end: 105, seq: "CTGCTG"}

	t.Run("header without sequence at end", func(t *testing.T) {
		sites, _, err := run(t, fastaText(a)+a.header()+"\n")
		require.Error(t, err)
		assert.True(t, errors.Is(err, cds.ErrStreamTruncated))
		assert.Empty(t, sites)
	})

	t.Run("header followed by header", func(t *testing.T) {
		b := testRecord{gene: "FBgnB", start: 200, end: 205, seq: "CTGCTG"}
		text := fastaText(a) + b.header() + "\n" + fastaText(b)
		sites, _, err := run(t, text)
		require.Error(t, err)
		assert.True(t, errors.Is(err, cds.ErrStreamTruncated))

		var ce *cds.Error
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "FBgnB", ce.GeneID)
		assert.Equal(t, 4, ce.Line)
		// A was flushed when B arrived and stays in the output.
		assert.Equal(t, []int64{102, 105}, positions(sites))
	})

	t.Run("sequence length mismatch", func(t *testing.T) {
		bad := testRecord{gene: "FBgnB", start: 200, end: 205, seq: "CTG"}
		_, _, err := run(t, fastaText(a, bad))
		require.Error(t, err)
		assert.True(t, errors.Is(err, cds.ErrInvariantViolation))

		var ce *cds.Error
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, 4, ce.Line)
		assert.Equal(t, "FBgnB", ce.GeneID)
	})

	t.Run("unknown chromosome", func(t *testing.T) {
		bad := testRecord{gene: "FBgnB", chrom: "Y", start: 200, end: 205, seq: "CTGCTG"}
		_, _, err := run(t, fastaText(a, bad))
		require.Error(t, err)
		assert.True(t, errors.Is(err, cds.ErrHeaderFormat))
		assert.True(t, errors.Is(err, cds.ErrUnknownChromosome))
	})

	t.Run("sequence without header", func(t *testing.T) {
		e := New(&Collector{})
		err := e.Sequence("ACG", 1)
		assert.True(t, errors.Is(err, cds.ErrHeaderFormat))
	})
}

func TestExtractor_FinishIsIdempotent(t *testing.T) {
	var c Collector
	e := New(&c)
	a := testRecord{gene: "FBgnA", start: 100, end: 102, seq: "CCA"}
	require.NoError(t, e.Header(a.header(), 1))
	require.NoError(t, e.Sequence(a.seq, 2))
	require.NoError(t, e.Finish())
	require.NoError(t, e.Finish())
	assert.Len(t, c.Sites, 1)

	assert.Error(t, e.Header(a.header(), 3))
}

type failingSink struct{ err error }

func (f failingSink) Write(Site) error { return f.err }

func TestExtractor_SinkError(t *testing.T) {
	boom := errors.New("disk full")
	e := New(failingSink{err: boom})
	a := testRecord{gene: "FBgnA", start: 100, end: 102, seq: "CCA"}
	err := e.Run(fasta.NewReader(strings.NewReader(fastaText(a))))
	assert.ErrorIs(t, err, boom)
}
