package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hakim/reconx/internal/config"
	"github.com/hakim/reconx/internal/storage"
)

var (
	initForce bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize reconx with default configuration",
	Long: `Creates a default configuration file (reconx.yaml), the output directory
and the run history database.

This is typically the first command you run when setting up reconx.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		configPath := filepath.Join(initDir, "reconx.yaml")

		if _, err := os.Stat(configPath); err == nil && !initForce {
			return fmt.Errorf("config file already exists at %s. Use --force to overwrite", configPath)
		}

		if err := storage.EnsureDir(initDir); err != nil {
			return fmt.Errorf("failed to create %s: %w", initDir, err)
		}
		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		fmt.Fprintf(out, "Created %s with default configuration\n", configPath)

		// Load the config we just created to get paths
		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := storage.EnsureDir(c.OutputDir); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		fmt.Fprintf(out, "Created output directory: %s\n", c.OutputDir)

		store, err := storage.NewStore(c.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()
		fmt.Fprintf(out, "Initialized database: %s\n", c.DBPath)

		fmt.Fprintln(out)
		fmt.Fprintln(out, success("ReconX initialized successfully!"))
		fmt.Fprintln(out, "Run 'reconx check' to verify your tools.")

		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "directory to write reconx.yaml into")
	rootCmd.AddCommand(initCmd)
}
