package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/visits-go/internal/app"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := `
logging:
  defaultlevel: error
  console:
    enabled: false
database:
  type: sqlite
  sqlite:
    path: ` + filepath.Join(dir, "visits.db") + `
  mysql:
    password: hunter2
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	appCtx := app.NewContext()
	t.Cleanup(appCtx.Close)

	root := RootCommand(appCtx)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "visits-go "+app.Version)
}

func TestConfigCommandMasksSecrets(t *testing.T) {
	out, err := run(t, "--config", writeConfig(t), "config")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigCommandDefaults(t *testing.T) {
	out, err := run(t, "config", "--defaults")
	require.NoError(t, err)
	assert.Contains(t, out, "eventmaxtime: 10m")
}

func TestVisitsCommandOnEmptyDatabase(t *testing.T) {
	out, err := run(t, "--config", writeConfig(t), "visits", "--from", "2024-03-01", "--until", "2024-03-02")
	require.NoError(t, err)

	var page map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, false, page["more"])
	assert.InDelta(t, 0, page["recordingsFetched"], 0)
}

func TestReportCommandRequiresRange(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t), "report", "--from", "2024-03-01")
	require.Error(t, err)
}

func TestReportCommandRejectsReversedRange(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t), "report", "--from", "2024-03-02", "--until", "2024-03-01")
	require.Error(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "visits")
	require.Error(t, err)
}

func TestMissingEnvFile(t *testing.T) {
	_, err := run(t, "--env-file", filepath.Join(t.TempDir(), "nope.env"), "config")
	require.Error(t, err)
}
