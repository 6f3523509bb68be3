package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pharmatext/csrgen/internal/document"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and input files without running",
		Long: `Check that the configuration is well formed, the generation settings
are usable, and the input files exist and parse. Exits non-zero on the
first problem found.

Examples:
  csrgen validate
  csrgen validate --config ./configs/prod.yaml
  csrgen validate --data trial.json --template template.md`,
		Args: cobra.NoArgs,
		RunE: validateCommand,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .csrgen/config.yaml)")
	cmd.Flags().String("data", "", "Path to clinical data JSON")
	cmd.Flags().String("template", "", "Path to CSR template document")
	cmd.Flags().String("reference", "", "Path to sample CSR")
	cmd.Flags().String("checklist", "", "Path to regulatory section checklist")

	return cmd
}

// validateCommand implements the validate command logic
func validateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("data"); v != "" {
		cfg.Inputs.ClinicalData = v
	}
	if v, _ := cmd.Flags().GetString("template"); v != "" {
		cfg.Inputs.Template = v
	}
	if v, _ := cmd.Flags().GetString("reference"); v != "" {
		cfg.Inputs.Reference = v
	}
	if v, _ := cmd.Flags().GetString("checklist"); v != "" {
		cfg.Inputs.Checklist = v
	}

	out := cmd.OutOrStdout()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Fprintln(out, "✓ Configuration is valid")
	fmt.Fprintf(out, "  target confidence: %.1f\n", cfg.TargetConfidence)
	fmt.Fprintf(out, "  max iterations:    %d\n", cfg.MaxIterations)
	fmt.Fprintf(out, "  model:             %s\n", cfg.Generation.Model)
	fmt.Fprintf(out, "  output directory:  %s\n", cfg.OutputDir)

	if cfg.APIKey() == "" {
		fmt.Fprintf(out, "! %s is not set; run will fail without it\n", cfg.Generation.APIKeyEnv)
	}

	if err := cfg.ValidateInputs(); err != nil {
		return fmt.Errorf("inputs invalid: %w", err)
	}

	data, err := os.ReadFile(cfg.Inputs.ClinicalData)
	if err != nil {
		return fmt.Errorf("failed to read clinical data: %w", err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("clinical data %s is not valid JSON", cfg.Inputs.ClinicalData)
	}
	fmt.Fprintf(out, "✓ Clinical data parses (%d bytes)\n", len(data))

	store := document.NewStore()
	template, err := store.Read(cfg.Inputs.Template)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	if document.IsBlank(template) {
		return fmt.Errorf("template %s is blank", cfg.Inputs.Template)
	}
	sections := document.SplitSections(template)
	fmt.Fprintf(out, "✓ Template parses (%d sections)\n", len(sections))

	if cfg.Inputs.Reference != "" {
		if _, err := store.Read(cfg.Inputs.Reference); err != nil {
			return fmt.Errorf("failed to read reference CSR: %w", err)
		}
		fmt.Fprintln(out, "✓ Reference CSR readable")
	}
	if cfg.Inputs.Checklist != "" {
		checklist, err := loadChecklist(cfg.Inputs.Checklist)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Checklist parses (%d sections)\n", len(checklist))
	}

	fmt.Fprintln(out, "✓ All checks passed")
	return nil
}
