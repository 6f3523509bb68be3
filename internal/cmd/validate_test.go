package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeValidateFixtures(t *testing.T) (configPath string) {
	t.Helper()
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "trial.json")
	templatePath := filepath.Join(dir, "template.md")
	require.NoError(t, os.WriteFile(dataPath, []byte(`{"study_id":"CSR-001"}`), 0644))
	require.NoError(t, os.WriteFile(templatePath, []byte("# 1. Synopsis\n\n[Summary here.]\n"), 0644))

	configPath = filepath.Join(dir, "config.yaml")
	content := "inputs:\n  clinical_data: " + dataPath + "\n  template: " + templatePath + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestValidateCommandPasses(t *testing.T) {
	configPath := writeValidateFixtures(t)

	cmd := NewValidateCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", configPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Configuration is valid")
	assert.Contains(t, out.String(), "All checks passed")
	assert.Contains(t, out.String(), "Template parses (1 sections)")
}

func TestValidateCommandMissingInputs(t *testing.T) {
	cmd := NewValidateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inputs invalid")
}

func TestValidateCommandRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "trial.json")
	templatePath := filepath.Join(dir, "template.md")
	require.NoError(t, os.WriteFile(dataPath, []byte("{broken"), 0644))
	require.NoError(t, os.WriteFile(templatePath, []byte("# T\n\nx\n"), 0644))

	cmd := NewValidateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "none.yaml"),
		"--data", dataPath,
		"--template", templatePath,
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestValidateCommandRejectsBlankTemplate(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "trial.json")
	templatePath := filepath.Join(dir, "template.md")
	require.NoError(t, os.WriteFile(dataPath, []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(templatePath, []byte("   \n"), 0644))

	cmd := NewValidateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "none.yaml"),
		"--data", dataPath,
		"--template", templatePath,
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blank")
}
