package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configKeys are the settings read from ~/.ffsites.yaml.
var configKeys = map[string]string{
	"log.level":   "log level: debug, info, warn, error",
	"extract.log": "overlap diagnostics file for extract",
	"extract.db":  "DuckDB site store used by extract and sites",
}

func newConfigCmd(stdout io.Writer) *cobra.Command {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var help strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&help, "\n  %-12s %s", k, configKeys[k])
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ffsites configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.ffsites.yaml.\n\nKeys:" + help.String(),
		Example: `  ffsites config                             # show all config
  ffsites config set extract.db ~/ffsites.duckdb  # default site store
  ffsites config get log.level               # get a value`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(stdout)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(stdout, args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(stdout, args[0])
		},
	})

	return cmd
}

func runConfigShow(stdout io.Writer) error {
	settings := make(map[string]any)
	for key := range configKeys {
		if v := viper.Get(key); v != nil && v != "" {
			settings[key] = v
		}
	}
	if len(settings) == 0 {
		fmt.Fprintln(stdout, "# No configuration set. Config file: ~/.ffsites.yaml")
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(stdout, string(out))
	return nil
}

func runConfigSet(stdout io.Writer, key, value string) error {
	if _, ok := configKeys[key]; !ok {
		return usageErrorf("unknown config key %q", key)
	}
	viper.Set(key, value)

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".ffsites.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(stdout, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(stdout io.Writer, key string) error {
	val := viper.Get(key)
	if val == nil || val == "" {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(stdout, val)
	return nil
}
