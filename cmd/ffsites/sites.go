package main

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ffsites/ffsites/internal/duckdb"
	"github.com/ffsites/ffsites/internal/extract"
	"github.com/ffsites/ffsites/internal/output"
	"github.com/ffsites/ffsites/internal/query"
)

func newSitesCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Query four-fold sites stored by \"ffsites extract --db\"",
		Example: `  ffsites sites gene FBgn0031208 --db sites.duckdb
  ffsites sites range 2L:7000-9000 --db sites.duckdb
  ffsites sites count --db sites.duckdb`,
	}

	cmd.PersistentFlags().String("db", "", "DuckDB database written by extract (default: extract.db from config)")

	cmd.AddCommand(&cobra.Command{
		Use:   "gene <FBgn>",
		Short: "List the sites of a gene",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *duckdb.Store) error {
				sites, err := s.SitesByGene(args[0])
				if err != nil {
					return err
				}
				return writeSites(stdout, sites)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "range <chrom:start-end>",
		Short: "List the sites inside a genomic range",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			chrom, start, end, err := parseRegion(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(s *duckdb.Store) error {
				sites, err := s.SitesInRange(chrom, start, end)
				if err != nil {
					return err
				}
				return writeSites(stdout, sites)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Count sites and genes per chromosome",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *duckdb.Store) error {
				counts, err := s.CountByChrom()
				if err != nil {
					return err
				}
				tw := output.NewTabWriter(stdout, "chr", "sites", "genes")
				if err := tw.WriteHeader(); err != nil {
					return err
				}
				for _, c := range counts {
					if err := tw.WriteRow(c.Chrom, strconv.FormatInt(c.Sites, 10), strconv.FormatInt(c.Genes, 10)); err != nil {
						return err
					}
				}
				return tw.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sources",
		Short: "List the FASTA files whose sites are stored",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(s *duckdb.Store) error {
				sources, err := s.Sources()
				if err != nil {
					return err
				}
				tw := output.NewTabWriter(stdout, "path", "size", "mod_time", "sites")
				if err := tw.WriteHeader(); err != nil {
					return err
				}
				for _, src := range sources {
					if err := tw.WriteRow(src.Path, strconv.FormatInt(src.Size, 10),
						src.ModTime.UTC().Format(time.RFC3339), strconv.FormatInt(src.SiteCount, 10)); err != nil {
						return err
					}
				}
				return tw.Flush()
			})
		},
	})

	return cmd
}

// withStore opens the database named by --db, falling back to extract.db.
func withStore(cmd *cobra.Command, fn func(*duckdb.Store) error) error {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = viper.GetString("extract.db")
	}
	if path == "" {
		return usageErrorf("flag --db is required (or set extract.db in the config)")
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func writeSites(w io.Writer, sites []extract.Site) error {
	sw := output.NewSiteWriter(w)
	if err := sw.WriteHeader(); err != nil {
		return err
	}
	for _, s := range sites {
		if err := sw.Write(s); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// parseRegion parses "chrom:start-end". Short chromosome names get the "chr"
// prefix used in the store.
func parseRegion(s string) (string, int64, int64, error) {
	chrom, span, ok := strings.Cut(s, ":")
	if !ok || chrom == "" {
		return "", 0, 0, usageErrorf("region %q is not chrom:start-end", s)
	}
	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return "", 0, 0, usageErrorf("region %q is not chrom:start-end", s)
	}
	start, err := strconv.ParseInt(strings.ReplaceAll(startStr, ",", ""), 10, 64)
	if err != nil {
		return "", 0, 0, usageErrorf("invalid region start %q", startStr)
	}
	end, err := strconv.ParseInt(strings.ReplaceAll(endStr, ",", ""), 10, 64)
	if err != nil {
		return "", 0, 0, usageErrorf("invalid region end %q", endStr)
	}
	if end < start {
		return "", 0, 0, usageErrorf("region end %d before start %d", end, start)
	}
	return query.NormalizeChrom(chrom), start, end, nil
}
