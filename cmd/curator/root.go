package main

import (
	"github.com/spf13/cobra"

	"github.com/awilliams/curator/internal/api"
	"github.com/awilliams/curator/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Document-to-retrieval conversion pipeline with two-tier LLM routing",
	Long: `Curator converts uploaded documents into structured, retrieval-ready
JSON using a two-tier LLM strategy: every document is first scored by a
cheap model's self-assessment, and only documents that fail the quality
gate are escalated to the strong model for rewriting.

The pipeline includes:
  - Text extraction from txt, markdown, PDF, and docx uploads
  - Two-pass quality self-assessment with an accept/escalate gate
  - Partial or full strong-tier rewrites for failing documents
  - Chunked, augmented conversion output for retrieval systems`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.curator/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "json", "output format: json or yaml",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
