package main

import (
	"github.com/spf13/cobra"

	"github.com/julia-Lukaszewska/readerpane/internal/api"
	"github.com/julia-Lukaszewska/readerpane/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "readerpane",
	Short: "Personal document library with range-based streaming",
	Long: `Readerpane stores large PDFs, pre-splits them into fixed page
windows, and streams pages and rendered page images on demand.

The server provides:
  - Upload with automatic range splitting
  - Byte-range streaming of whole documents and page windows
  - Single-page PNG rendering through a bounded server-side cache`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.readerpane/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "readerpane home directory (default: ~/.readerpane)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
