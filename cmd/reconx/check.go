package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hakim/reconx/internal/tools"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for required external tools",
	Long: `Verify that subfinder, httpx and nmap are installed and available.
Shows installation status, version information, and installation instructions
for missing tools. nmap is only required when port scanning is enabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, _ := cmd.Flags().GetBool("ports")
		portScan := ports || cfg.Stages.Ports

		results := tools.CheckTools(tools.RequiredTools(binaries(cfg), portScan))
		out := cmd.OutOrStdout()

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Tool\tStatus\tVersion\tPurpose")
		fmt.Fprintln(w, "----\t------\t-------\t-------")

		foundCount := 0
		requiredMissing := 0

		for _, result := range results {
			status := fail("[-]")
			version := "-"

			if result.Found {
				status = success("[+]")
				foundCount++
				if result.Version != "" && result.Version != "unknown" {
					version = result.Version
				}
			} else if result.Tool.Required {
				requiredMissing++
			}

			purpose := result.Tool.Purpose
			if !result.Tool.Required {
				purpose += " (only with --ports)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", result.Tool.Name, status, version, purpose)
		}
		w.Flush()

		fmt.Fprintln(out)
		header := false
		for _, result := range results {
			if result.Found {
				continue
			}
			if !header {
				fmt.Fprintln(out, "Missing tools:")
				header = true
			}
			required := ""
			if result.Tool.Required {
				required = warn(" (REQUIRED)")
			}
			fmt.Fprintf(out, "  %s%s\n    Install: %s\n", result.Tool.Name, required, result.Tool.InstallCmd)
		}

		fmt.Fprintln(out)
		fmt.Fprintf(out, "Summary: %d/%d tools found", foundCount, len(results))
		if requiredMissing > 0 {
			fmt.Fprintf(out, ", %d required tools missing", requiredMissing)
		}
		fmt.Fprintln(out)

		if requiredMissing > 0 {
			return errors.New("required tools are missing")
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().Bool("ports", false, "treat nmap as required")
	rootCmd.AddCommand(checkCmd)
}
