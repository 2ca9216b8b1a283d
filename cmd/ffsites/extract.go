package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ffsites/ffsites/internal/duckdb"
	"github.com/ffsites/ffsites/internal/extract"
	"github.com/ffsites/ffsites/internal/fasta"
	"github.com/ffsites/ffsites/internal/output"
)

func newExtractCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract four-fold degenerate sites from a sorted CDS FASTA file",
		Long: `Extract four-fold degenerate sites from a FlyBase CDS FASTA file sorted by
chromosome arm and start coordinate (see "ffsites sort"). Overlapping CDS are
truncated at codon boundaries; CDS contained in a neighbour are dropped.`,
		Example: `  ffsites extract -i dmel-all-CDS-sorted.fasta -o ffsites.tsv
  ffsites extract -i cds.fa.gz -o ffsites.tsv --log overlaps.log --db sites.duckdb`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "input"); err != nil {
				return err
			}
			input, _ := cmd.Flags().GetString("input")
			out, _ := cmd.Flags().GetString("output")
			return runExtract(input, out, viper.GetString("extract.log"), viper.GetString("extract.db"), stdout, stderr)
		},
	}

	cmd.Flags().StringP("input", "i", "", "Sorted CDS FASTA file, plain or gzipped ('-' for stdin)")
	cmd.Flags().StringP("output", "o", "-", "Output TSV file (default: stdout)")
	cmd.Flags().String("log", "", "Write overlap diagnostics to this file instead of stderr")
	cmd.Flags().String("db", "", "Also store the sites in this DuckDB database (replaced on each load; a failed run keeps the sites emitted before the error)")
	viper.BindPFlag("extract.log", cmd.Flags().Lookup("log"))
	viper.BindPFlag("extract.db", cmd.Flags().Lookup("db"))

	return cmd
}

func runExtract(input, out, logPath, dbPath string, stdout, stderr io.Writer) (err error) {
	logger, closeLog, err := newLogger(stderr, logPath)
	if err != nil {
		return err
	}
	defer closeLog()

	reader, err := fasta.Open(input)
	if err != nil {
		return err
	}
	defer reader.Close()

	w, closeOut, err := createOutput(out, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	tsv := output.NewSiteWriter(w)
	if err := tsv.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	sinks := extract.MultiSink{tsv}

	var (
		store    *duckdb.Store
		dbWriter *duckdb.SiteWriter
		source   duckdb.FileFingerprint
	)
	if dbPath != "" {
		store, err = duckdb.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		dbWriter, source, err = prepareStore(store, input, logger)
		if err != nil {
			return err
		}
		if dbWriter != nil {
			sinks = append(sinks, dbWriter)
		}
	}

	ex := extract.New(sinks)
	ex.SetLogger(logger)
	runErr := ex.Run(reader)

	// Sites emitted before a failure stay valid in both outputs. The source
	// is only recorded after a complete run, so a partial store is reloaded
	// next time.
	if err := tsv.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if dbWriter != nil {
		if err := dbWriter.Flush(); err != nil && runErr == nil {
			return fmt.Errorf("store sites: %w", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	if dbWriter != nil {
		if source.Path != "" {
			if err := store.RecordSource(source, int64(dbWriter.Written())); err != nil {
				return err
			}
		}
		logger.Info("stored sites", zap.String("db", dbPath), zap.Int("sites", dbWriter.Written()))
	}

	stats := ex.Stats()
	logger.Info("extraction complete",
		zap.Int("records", stats.Records),
		zap.Int("flushed", stats.Flushed),
		zap.Int("overlaps", stats.Overlaps),
		zap.Int("dropped", stats.Dropped),
		zap.Int("sites", stats.Sites))
	return nil
}

// prepareStore decides whether the sites of input must be (re)loaded into
// store. A store holds the sites of one FASTA file; loading a different or
// changed file replaces them. A nil writer means the store is up to date.
func prepareStore(store *duckdb.Store, input string, logger *zap.Logger) (*duckdb.SiteWriter, duckdb.FileFingerprint, error) {
	var fp duckdb.FileFingerprint
	if input != "-" {
		var err error
		fp, err = duckdb.StatFile(input)
		if err != nil {
			return nil, fp, fmt.Errorf("stat input: %w", err)
		}
		current, err := store.Current(fp)
		if err != nil {
			return nil, fp, err
		}
		if current {
			logger.Info("site store is up to date", zap.String("source", input))
			return nil, fp, nil
		}
	}
	if err := store.ClearSites(); err != nil {
		return nil, fp, fmt.Errorf("clear site store: %w", err)
	}
	return store.NewSiteWriter(), fp, nil
}
