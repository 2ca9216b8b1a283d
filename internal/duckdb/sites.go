package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/ffsites/ffsites/internal/extract"
)

// siteKey is the primary key of ff_sites.
type siteKey struct {
	chrom, geneID string
	pos           int64
}

// WriteSites batch-inserts sites into DuckDB using the Appender API and
// returns the number of rows appended. Duplicate (chrom, pos, gene_id)
// entries are dropped before writing.
func (s *Store) WriteSites(sites []extract.Site) (int, error) {
	if len(sites) == 0 {
		return 0, nil
	}

	seen := make(map[siteKey]bool, len(sites))
	deduped := make([]extract.Site, 0, len(sites))
	for _, site := range sites {
		k := siteKey{site.Chrom, site.GeneID, site.Pos}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, site)
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return 0, fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "ff_sites")
		return err
	}); err != nil {
		return 0, fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, site := range deduped {
		if err := appender.AppendRow(site.Chrom, site.GeneID, site.Pos); err != nil {
			return 0, fmt.Errorf("append site: %w", err)
		}
	}

	if err := appender.Flush(); err != nil {
		return 0, fmt.Errorf("flush appender: %w", err)
	}
	return len(deduped), nil
}

// ClearSites removes all stored sites and source fingerprints.
func (s *Store) ClearSites() error {
	if _, err := s.db.Exec("DELETE FROM ff_sites"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM sources")
	return err
}

// SitesByGene returns the sites of one gene ordered by position.
func (s *Store) SitesByGene(geneID string) ([]extract.Site, error) {
	rows, err := s.db.Query(`SELECT chrom, gene_id, pos FROM ff_sites
		WHERE gene_id=? ORDER BY chrom, pos`, geneID)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanSites(rows)
}

// SitesInRange returns the sites on chrom within [start, end].
func (s *Store) SitesInRange(chrom string, start, end int64) ([]extract.Site, error) {
	rows, err := s.db.Query(`SELECT chrom, gene_id, pos FROM ff_sites
		WHERE chrom=? AND pos BETWEEN ? AND ? ORDER BY pos, gene_id`, chrom, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by range: %w", err)
	}
	defer rows.Close()

	return scanSites(rows)
}

// ChromCount is the number of stored sites on one chromosome.
type ChromCount struct {
	Chrom string
	Sites int64
	Genes int64
}

// CountByChrom returns site and gene counts per chromosome.
func (s *Store) CountByChrom() ([]ChromCount, error) {
	rows, err := s.db.Query(`SELECT chrom, COUNT(*), COUNT(DISTINCT gene_id)
		FROM ff_sites GROUP BY chrom ORDER BY chrom`)
	if err != nil {
		return nil, fmt.Errorf("count by chromosome: %w", err)
	}
	defer rows.Close()

	var counts []ChromCount
	for rows.Next() {
		var c ChromCount
		if err := rows.Scan(&c.Chrom, &c.Sites, &c.Genes); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// scanSites scans rows into Site slices.
func scanSites(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]extract.Site, error) {
	var sites []extract.Site
	for rows.Next() {
		var site extract.Site
		if err := rows.Scan(&site.Chrom, &site.GeneID, &site.Pos); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}
	return sites, nil
}

// SiteWriter buffers sites in memory and appends them to the store on Flush.
// It satisfies extract.Sink.
type SiteWriter struct {
	store   *Store
	pending []extract.Site
	written int
}

// NewSiteWriter creates a buffered writer into s.
func (s *Store) NewSiteWriter() *SiteWriter {
	return &SiteWriter{store: s}
}

// Write buffers a site.
func (w *SiteWriter) Write(site extract.Site) error {
	w.pending = append(w.pending, site)
	return nil
}

// Flush appends buffered sites to the store.
func (w *SiteWriter) Flush() error {
	n, err := w.store.WriteSites(w.pending)
	if err != nil {
		return err
	}
	w.written += n
	w.pending = w.pending[:0]
	return nil
}

// Written returns the number of rows stored so far.
func (w *SiteWriter) Written() int {
	return w.written
}
