package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "csr.md")
	newPath := filepath.Join(dir, "csr_v1.md")

	oldDoc := `# 1. Synopsis

Initial summary.

# 2. Study Objectives

Primary objective only.

# 3. Deprecated Section

Will be dropped.
`
	newDoc := `# 1. Synopsis

Initial summary.

# 2. Study Objectives

Primary and secondary objectives.

# 4. Safety Evaluation

New material.
`
	require.NoError(t, os.WriteFile(oldPath, []byte(oldDoc), 0644))
	require.NoError(t, os.WriteFile(newPath, []byte(newDoc), 0644))

	cmd := NewCompareCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{oldPath, newPath})

	require.NoError(t, cmd.Execute())

	got := out.String()
	assert.Contains(t, got, "~ changed: 2. Study Objectives")
	assert.Contains(t, got, "+ added:   4. Safety Evaluation")
	assert.Contains(t, got, "- removed: 3. Deprecated Section")
	assert.Contains(t, got, "1 sections unchanged")
}

func TestCompareCommandRenumberingIsNotAChange(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "a.md")
	newPath := filepath.Join(dir, "b.md")
	require.NoError(t, os.WriteFile(oldPath, []byte("# 3. Safety Evaluation\n\nSame body.\n"), 0644))
	require.NoError(t, os.WriteFile(newPath, []byte("# 4. Safety Evaluation\n\nSame body.\n"), 0644))

	cmd := NewCompareCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{oldPath, newPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1 sections unchanged")
	assert.NotContains(t, out.String(), "changed:")
}

func TestCompareCommandFullDiff(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "a.md")
	newPath := filepath.Join(dir, "b.md")
	require.NoError(t, os.WriteFile(oldPath, []byte("# Synopsis\n\nshort summary\n"), 0644))
	require.NoError(t, os.WriteFile(newPath, []byte("# Synopsis\n\nexpanded summary\n"), 0644))

	cmd := NewCompareCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{oldPath, newPath, "--full"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "summary")
}

func TestCompareCommandMissingFile(t *testing.T) {
	cmd := NewCompareCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "a.md"), filepath.Join(t.TempDir(), "b.md")})

	assert.Error(t, cmd.Execute())
}

func TestCompareCommandRequiresTwoArgs(t *testing.T) {
	cmd := NewCompareCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"only-one.md"})

	assert.Error(t, cmd.Execute())
}
