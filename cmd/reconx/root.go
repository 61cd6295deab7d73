package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hakim/reconx/internal/config"
	"github.com/hakim/reconx/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logrus.Logger
	logSink io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "reconx",
	Short: "Automated reconnaissance pipeline",
	Long: `ReconX orchestrates subfinder, httpx and nmap against one or more target
domains, analyzes security headers of the live web services it finds, and
aggregates everything into text, JSON, CSV and Markdown reports.

Running reconx with -d or -l is the same as running 'reconx scan'.

Examples:
  reconx -d example.com
  reconx -l targets.txt --ports --headers -o all
  reconx scan -d example.com --preset full --concurrency 3`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		skipConfig := map[string]bool{
			"init":    true,
			"help":    true,
			"version": true,
		}
		if skipConfig[cmd.Name()] {
			log = logging.Discard()
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		applyLogFlags(cmd, cfg)

		log, logSink, err = logging.New(logging.Options{
			Silent:     cfg.Log.Silent,
			Verbose:    cfg.Log.Verbose,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		})
		if err != nil {
			return fmt.Errorf("setting up logging: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		list, _ := cmd.Flags().GetString("list")
		if domain == "" && list == "" {
			return cmd.Help()
		}
		return runScan(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./reconx.yaml or ~/.config/reconx/reconx.yaml)")
	rootCmd.PersistentFlags().Bool("silent", false, "only print warnings, errors and results")
	rootCmd.PersistentFlags().Bool("verbose", false, "print debug output")
	rootCmd.PersistentFlags().String("log-file", "", "also write JSON logs to this rotated file")

	addScanFlags(rootCmd)

	rootCmd.Version = version
}

// applyLogFlags lets explicit flags override the logging section of the
// config file.
func applyLogFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("silent") {
		c.Log.Silent, _ = flags.GetBool("silent")
	}
	if flags.Changed("verbose") {
		c.Log.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("log-file") {
		c.Log.File, _ = flags.GetString("log-file")
	}
	if c.Log.Silent && c.Log.Verbose {
		c.Log.Verbose = false
	}
}

// Execute runs the root command and flushes the log file afterwards
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if logSink != nil {
		logSink.Close()
	}
	return err
}
