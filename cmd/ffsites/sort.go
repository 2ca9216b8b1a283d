package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ffsites/ffsites/internal/fasta"
)

func newSortCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Sort a CDS FASTA file by chromosome arm and start coordinate",
		Long: `Sort a FlyBase CDS FASTA file into the order "ffsites extract" expects.
Records off the main chromosome arms are skipped. When several CDS share a
start coordinate only the longest is kept.`,
		Example: `  ffsites sort -i dmel-all-CDS-r6.32.fasta.gz -o dmel-all-CDS-sorted.fasta`,
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "input"); err != nil {
				return err
			}
			input, _ := cmd.Flags().GetString("input")
			out, _ := cmd.Flags().GetString("output")
			return runSort(input, out, stdout, stderr)
		},
	}

	cmd.Flags().StringP("input", "i", "", "CDS FASTA file, plain or gzipped ('-' for stdin)")
	cmd.Flags().StringP("output", "o", "-", "Output FASTA file (default: stdout)")

	return cmd
}

func runSort(input, out string, stdout, stderr io.Writer) (err error) {
	logger, closeLog, err := newLogger(stderr, "")
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

	sorter := fasta.NewSorter()
	sorter.SetLogger(logger)
	stats, err := sorter.Sort(reader, w)
	if err != nil {
		return err
	}

	logger.Info("sort complete",
		zap.Int("read", stats.Read),
		zap.Int("written", stats.Written),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("skipped", stats.Skipped))
	return nil
}
