// Package main provides the ffsites command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

// usageError marks errors caused by a malformed command line.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{fmt.Errorf(format, args...)}
}

// usageArgs turns positional argument validation failures into usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "ffsites",
		Short: "Four-fold degenerate site extraction for Drosophila CDS annotations",
		Long: `ffsites extracts four-fold degenerate sites from FlyBase CDS FASTA files,
resolving overlapping CDS at codon boundaries, and reports divergence and
polymorphism at queried sites from AXT alignments and VCF calls.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Help()
			return usageErrorf("a command is required")
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	viper.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newExtractCmd(stdout, stderr))
	root.AddCommand(newSortCmd(stdout, stderr))
	root.AddCommand(newDivergenceCmd(stdout, stderr))
	root.AddCommand(newPolyCmd(stdout, stderr))
	root.AddCommand(newSitesCmd(stdout, stderr))
	root.AddCommand(newConfigCmd(stdout))

	return root
}

// initConfig reads ~/.ffsites.yaml and FFSITES_* environment variables.
func initConfig() error {
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigName(".ffsites")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("FFSITES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// newLogger builds a console logger at the configured level writing to
// logPath, or to stderr when logPath is empty. The returned function closes
// the log file.
func newLogger(stderr io.Writer, logPath string) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return nil, nil, usageErrorf("invalid log level %q", viper.GetString("log.level"))
	}

	sink := zapcore.AddSync(stderr)
	closeFn := func() {}
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.Create(logPath)
		if err != nil {
			return nil, nil, fmt.Errorf("create log file: %w", err)
		}
		sink = zapcore.AddSync(f)
		closeFn = func() { f.Close() }
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), sink, level)
	logger := zap.New(core)
	return logger, func() {
		logger.Sync()
		closeFn()
	}, nil
}

// createOutput opens path for writing, or returns stdout for "" and "-".
func createOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}

// requireFlags reports the first empty string flag as a usage error.
func requireFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if v, _ := cmd.Flags().GetString(name); v == "" {
			return usageErrorf("flag --%s is required", name)
		}
	}
	return nil
}
