package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ffsites/ffsites/internal/axt"
	"github.com/ffsites/ffsites/internal/output"
	"github.com/ffsites/ffsites/internal/query"
)

func newDivergenceCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "divergence",
		Short: "Report diverged sites between the reference and an aligned outgroup",
		Long: `Report sites where the reference and the aligned outgroup differ.

The query file lists either positions (chromosome, position) or ranges
(chromosome, start, end, ...), one per line. Ranges are reported per peak
(P1, P2, ... in file order) together with the number of usable sites.
Queries must follow the chromosome order of the AXT file.`,
		Example: `  ffsites divergence -q ffsites.pos -a dm6.droYak3.net.axt.gz -o diverged.tsv
  ffsites divergence -q msl_peaks.bed -a dm6.droYak3.net.axt.gz -o peaks.tsv`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "query", "axt"); err != nil {
				return err
			}
			q, _ := cmd.Flags().GetString("query")
			a, _ := cmd.Flags().GetString("axt")
			out, _ := cmd.Flags().GetString("output")
			return runDivergence(q, a, out, stdout, stderr)
		},
	}

	cmd.Flags().StringP("query", "q", "", "Query file of positions or ranges")
	cmd.Flags().StringP("axt", "a", "", "AXT alignment file, plain or gzipped")
	cmd.Flags().StringP("output", "o", "-", "Output TSV file (default: stdout)")

	return cmd
}

func runDivergence(queryPath, axtPath, out string, stdout, stderr io.Writer) (err error) {
	logger, closeLog, err := newLogger(stderr, "")
	if err != nil {
		return err
	}
	defer closeLog()

	q, err := query.ReadFile(queryPath)
	if err != nil {
		return err
	}

	ar, err := axt.Open(axtPath)
	if err != nil {
		return err
	}
	defer ar.Close()
	aligner := axt.NewAligner(ar)
	aligner.SetLogger(logger)

	w, closeOut, err := createOutput(out, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	dw := output.NewDivergenceWriter(w, q.Mode == query.ModeRanges)
	diverged := 0

	switch q.Mode {
	case query.ModePositions:
		sites, lengths, err := aligner.DivergedAt(q.Positions)
		if err != nil {
			return err
		}
		if err := dw.WriteLengths(chromLengths(q.Chroms(), lengths)); err != nil {
			return fmt.Errorf("write lengths: %w", err)
		}
		if err := dw.WriteHeader(); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for _, d := range sites {
			if err := dw.Write(d); err != nil {
				return fmt.Errorf("write site: %w", err)
			}
		}
		diverged = len(sites)

	case query.ModeRanges:
		if err := dw.WriteHeader(); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for i := range q.Ranges {
			peak := &q.Ranges[i]
			sites, length, err := aligner.DivergedInRange(peak.Chrom, peak.Start, peak.End)
			if err != nil {
				return fmt.Errorf("peak %s: %w", peak.ID, err)
			}
			for _, d := range sites {
				if err := dw.WritePeak(peak, length, d); err != nil {
					return fmt.Errorf("write site: %w", err)
				}
			}
			diverged += len(sites)
		}
	}

	if err := dw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	logger.Info("divergence scan complete",
		zap.Stringer("mode", q.Mode),
		zap.Int("queries", len(q.Positions)+len(q.Ranges)),
		zap.Int("blocks", aligner.Blocks()),
		zap.Int("diverged", diverged))
	return nil
}

// chromLengths lists every queried chromosome in query order, with zero for
// those without a usable position.
func chromLengths(chroms []string, found []axt.ChromLength) []axt.ChromLength {
	byChrom := make(map[string]int64, len(found))
	for _, l := range found {
		byChrom[l.Chrom] = l.Length
	}
	out := make([]axt.ChromLength, len(chroms))
	for i, c := range chroms {
		out[i] = axt.ChromLength{Chrom: c, Length: byChrom[c]}
	}
	return out
}
