package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Source is a FASTA file whose sites are in the store.
type Source struct {
	FileFingerprint
	SiteCount int64
}

// RecordSource stores the fingerprint of a loaded FASTA file.
func (s *Store) RecordSource(fp FileFingerprint, siteCount int64) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO sources (path, size, mod_time, site_count)
		VALUES (?, ?, ?, ?)`, fp.Path, fp.Size, fp.ModTime.UnixNano(), siteCount)
	if err != nil {
		return fmt.Errorf("record source: %w", err)
	}
	return nil
}

// LookupSource returns the stored entry for path. ok is false when path has
// never been loaded.
func (s *Store) LookupSource(path string) (src Source, ok bool, err error) {
	var modTime int64
	err = s.db.QueryRow(`SELECT path, size, mod_time, site_count FROM sources WHERE path=?`, path).
		Scan(&src.Path, &src.Size, &modTime, &src.SiteCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, false, nil
	}
	if err != nil {
		return Source{}, false, fmt.Errorf("lookup source: %w", err)
	}
	src.ModTime = time.Unix(0, modTime)
	return src, true, nil
}

// Current reports whether fp matches the stored fingerprint for its path.
func (s *Store) Current(fp FileFingerprint) (bool, error) {
	src, ok, err := s.LookupSource(fp.Path)
	if err != nil || !ok {
		return false, err
	}
	return src.Size == fp.Size && src.ModTime.Equal(fp.ModTime), nil
}

// Sources lists every loaded FASTA file.
func (s *Store) Sources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT path, size, mod_time, site_count FROM sources ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var src Source
		var modTime int64
		if err := rows.Scan(&src.Path, &src.Size, &modTime, &src.SiteCount); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.ModTime = time.Unix(0, modTime)
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return out, nil
}
