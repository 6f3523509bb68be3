package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for csrgen
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csrgen",
		Short: "Clinical Study Report generation and improvement pipeline",
		Long: `csrgen generates a Clinical Study Report draft from structured
clinical-trial data and a CSR template, then iteratively reviews and revises
it until a target quality score is reached or the iteration budget runs out.

Each iteration runs a completeness review and a regulatory compliance check
against the current draft, combines the two scores, and either stops
(converged) or asks the generation service for a revised draft. Every draft
and report is written as an immutable, versioned document.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewCompareCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
