package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffsites/ffsites/internal/extract"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustWriteSites(t *testing.T, s *Store, sites []extract.Site) {
	t.Helper()
	_, err := s.WriteSites(sites)
	require.NoError(t, err)
}

var testSites = []extract.Site{
	{Chrom: "chr2L", GeneID: "FBgn0031208", Pos: 7680},
	{Chrom: "chr2L", GeneID: "FBgn0031208", Pos: 7683},
	{Chrom: "chr2L", GeneID: "FBgn0002121", Pos: 9840},
	{Chrom: "chrX", GeneID: "FBgn0000003", Pos: 12},
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	sites, err := s.SitesByGene("FBgn0031208")
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sites.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestWriteSites_Dedup(t *testing.T) {
	s := openInMemory(t)

	n, err := s.WriteSites(append(testSites, testSites[0]))
	require.NoError(t, err)
	assert.Equal(t, len(testSites), n, "duplicates are not counted")

	n, err = s.WriteSites(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	counts, err := s.CountByChrom()
	require.NoError(t, err)
	assert.Equal(t, []ChromCount{
		{Chrom: "chr2L", Sites: 3, Genes: 2},
		{Chrom: "chrX", Sites: 1, Genes: 1},
	}, counts)
}

func TestSitesByGene(t *testing.T) {
	s := openInMemory(t)
	mustWriteSites(t, s, testSites)

	sites, err := s.SitesByGene("FBgn0031208")
	require.NoError(t, err)
	assert.Equal(t, testSites[:2], sites)

	sites, err = s.SitesByGene("FBgn9999999")
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestSitesInRange(t *testing.T) {
	s := openInMemory(t)
	mustWriteSites(t, s, testSites)

	sites, err := s.SitesInRange("chr2L", 7683, 9840)
	require.NoError(t, err)
	assert.Equal(t, []extract.Site{testSites[1], testSites[2]}, sites)

	sites, err = s.SitesInRange("chr3R", 1, 1_000_000)
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestSiteWriter(t *testing.T) {
	s := openInMemory(t)
	w := s.NewSiteWriter()

	var sink extract.Sink = w
	for _, site := range append(testSites, testSites[2]) {
		require.NoError(t, sink.Write(site))
	}

	counts, err := s.CountByChrom()
	require.NoError(t, err)
	assert.Empty(t, counts, "nothing reaches the store before Flush")

	require.NoError(t, w.Flush())
	require.NoError(t, w.Flush())
	assert.Equal(t, len(testSites), w.Written(), "a repeated site is stored once")

	counts, err = s.CountByChrom()
	require.NoError(t, err)
	assert.Len(t, counts, 2)
}

func TestClearSites(t *testing.T) {
	s := openInMemory(t)
	mustWriteSites(t, s, testSites)
	require.NoError(t, s.RecordSource(FileFingerprint{Path: "cds.fa", Size: 1, ModTime: time.Unix(10, 0)}, 4))

	require.NoError(t, s.ClearSites())

	counts, err := s.CountByChrom()
	require.NoError(t, err)
	assert.Empty(t, counts)
	sources, err := s.Sources()
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestSources(t *testing.T) {
	s := openInMemory(t)

	path := filepath.Join(t.TempDir(), "cds.fa")
	require.NoError(t, os.WriteFile(path, []byte(">a\nACG\n"), 0o644))
	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), fp.Size)

	current, err := s.Current(fp)
	require.NoError(t, err)
	assert.False(t, current, "unknown source is not current")

	require.NoError(t, s.RecordSource(fp, 42))

	src, ok, err := s.LookupSource(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(42), src.SiteCount)
	assert.True(t, src.ModTime.Equal(fp.ModTime))

	current, err = s.Current(fp)
	require.NoError(t, err)
	assert.True(t, current)

	changed := fp
	changed.Size++
	current, err = s.Current(changed)
	require.NoError(t, err)
	assert.False(t, current)

	// Re-recording replaces the entry.
	require.NoError(t, s.RecordSource(fp, 43))
	sources, err := s.Sources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, int64(43), sources[0].SiteCount)

	_, ok, err = s.LookupSource("missing.fa")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatFile_Missing(t *testing.T) {
	_, err := StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
