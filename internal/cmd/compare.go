package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/pharmatext/csrgen/internal/document"
)

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <old> <new>",
		Short: "Show section-by-section differences between two document versions",
		Long: `Compare two CSR versions section by section. Sections are matched by
normalized heading, so renumbering alone does not show as a change.

Examples:
  csrgen compare output/csr.md output/csr_v2.md
  csrgen compare output/csr_v1.md output/csr_v3.md --full`,
		Args: cobra.ExactArgs(2),
		RunE: compareCommand,
	}

	cmd.Flags().Bool("full", false, "Print full inline diffs instead of change summaries")

	return cmd
}

// compareCommand implements the compare command logic
func compareCommand(cmd *cobra.Command, args []string) error {
	full, _ := cmd.Flags().GetBool("full")
	out := cmd.OutOrStdout()

	store := document.NewStore()
	oldText, err := store.Read(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	newText, err := store.Read(args[1])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[1], err)
	}

	oldMap, oldOrder := document.SectionMap(document.SplitSections(oldText))
	newMap, newOrder := document.SectionMap(document.SplitSections(newText))

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	changed := color.New(color.FgYellow)

	dmp := diffmatchpatch.New()
	unchanged := 0

	for _, key := range newOrder {
		newSec := newMap[key]
		oldSec, ok := oldMap[key]
		if !ok {
			added.Fprintf(out, "+ added:   %s\n", sectionLabel(newSec, key))
			continue
		}
		if strings.TrimSpace(oldSec.Body) == strings.TrimSpace(newSec.Body) {
			unchanged++
			continue
		}
		diffs := dmp.DiffMain(oldSec.Body, newSec.Body, true)
		dmp.DiffCleanupSemantic(diffs)
		ins, del := diffCounts(diffs)
		changed.Fprintf(out, "~ changed: %s (+%d/-%d chars)\n", sectionLabel(newSec, key), ins, del)
		if full {
			printDiff(out, diffs)
		}
	}

	for _, key := range oldOrder {
		if _, ok := newMap[key]; !ok {
			removed.Fprintf(out, "- removed: %s\n", sectionLabel(oldMap[key], key))
		}
	}

	fmt.Fprintf(out, "%d sections unchanged\n", unchanged)
	return nil
}

func sectionLabel(sec document.Section, key string) string {
	if key == document.UnsectionedKey {
		return "(preamble)"
	}
	if sec.Heading != "" {
		return sec.Heading
	}
	return key
}

func diffCounts(diffs []diffmatchpatch.Diff) (inserted, deleted int) {
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += len(d.Text)
		}
	}
	return inserted, deleted
}

func printDiff(out io.Writer, diffs []diffmatchpatch.Diff) {
	ins := color.New(color.FgGreen)
	del := color.New(color.FgRed, color.CrossedOut)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			ins.Fprint(out, d.Text)
		case diffmatchpatch.DiffDelete:
			del.Fprint(out, d.Text)
		default:
			fmt.Fprint(out, d.Text)
		}
	}
	fmt.Fprintln(out)
}
