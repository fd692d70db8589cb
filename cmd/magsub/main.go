// Command magsub submits metagenomic samples, reads, assemblies, bins
// and MAGs to the sequence archive.
//
// Usage:
//
//	magsub submit --config config.yaml --staging-dir ./staging --logging-dir ./logs [options]
//	magsub makecfg --output config.yaml
//	magsub download-webin --dir ./tools
//	magsub login
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "magsub",
	Short: "Submit metagenome assemblies, bins and MAGs to the sequence archive",
	Long: `magsub automates archive submissions for metagenomic studies: it
registers samples, uploads read sets, submits the primary assembly and
pushes quality-filtered bins and MAGs, threading the accessions assigned
by each phase into the next.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(makecfgCmd)
	rootCmd.AddCommand(downloadWebinCmd)
	rootCmd.AddCommand(loginCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
