package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ffsites/ffsites/internal/axt"
	"github.com/ffsites/ffsites/internal/output"
	"github.com/ffsites/ffsites/internal/query"
	"github.com/ffsites/ffsites/internal/vcf"
)

func newPolyCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poly",
		Short: "Report polarised polymorphic sites at queried positions or ranges",
		Long: `Report SNV calls from a VCF file that fall on queried positions or inside
queried ranges. Allele counts and frequencies are polarised with the outgroup
base from the AXT alignment: when the outgroup carries the alternative allele
they describe the reference allele instead (ANC column: r, a or u).`,
		Example: `  ffsites poly -q ffsites.pos -a dm6.droYak3.net.axt.gz -v dgrp2.vcf.gz -o poly.tsv`,
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "query", "axt", "vcf"); err != nil {
				return err
			}
			q, _ := cmd.Flags().GetString("query")
			a, _ := cmd.Flags().GetString("axt")
			v, _ := cmd.Flags().GetString("vcf")
			out, _ := cmd.Flags().GetString("output")
			return runPoly(q, a, v, out, stdout, stderr)
		},
	}

	cmd.Flags().StringP("query", "q", "", "Query file of positions or ranges")
	cmd.Flags().StringP("axt", "a", "", "AXT alignment file, plain or gzipped")
	cmd.Flags().StringP("vcf", "v", "", "VCF file, plain or gzipped")
	cmd.Flags().StringP("output", "o", "-", "Output TSV file (default: stdout)")

	return cmd
}

func runPoly(queryPath, axtPath, vcfPath, out string, stdout, stderr io.Writer) (err error) {
	logger, closeLog, err := newLogger(stderr, "")
	if err != nil {
		return err
	}
	defer closeLog()

	q, err := query.ReadFile(queryPath)
	if err != nil {
		return err
	}

	parser, err := vcf.NewParser(vcfPath)
	if err != nil {
		return err
	}
	defer parser.Close()

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

	pw := output.NewPolyWriter(w, q.Mode == query.ModeRanges)
	if err := pw.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	scanner := vcf.NewPolyScanner(parser, aligner)
	scanner.SetLogger(logger)
	switch q.Mode {
	case query.ModePositions:
		err = scanner.ScanPositions(q.Positions, pw.Write)
	case query.ModeRanges:
		err = scanner.ScanRanges(q.Ranges, pw.WritePeak)
	}
	if err != nil {
		return err
	}

	if err := pw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	stats := scanner.Stats()
	logger.Info("polymorphism scan complete",
		zap.Stringer("mode", q.Mode),
		zap.Int("variants", stats.Variants),
		zap.Int("skipped", stats.Skipped),
		zap.Int("reported", stats.Reported))
	return nil
}
