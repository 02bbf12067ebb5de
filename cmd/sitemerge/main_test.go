package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sitemerge/internal/config"
	"sitemerge/internal/jsonstream"
	"sitemerge/internal/models"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default between Execute calls, since
// cobra keeps flag state on the package-level commands.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SITEMERGE_LOG_LEVEL", "error")
	t.Setenv("SITEMERGE_DB", "")
	t.Setenv("SITEMERGE_INPUT_DIR", "")
	resetFlags(rootCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestGenerateMergeAndShow(t *testing.T) {
	work := t.TempDir()
	input := filepath.Join(work, "input")
	merged := filepath.Join(work, "merged.json")
	db := filepath.Join(work, "runs.db")

	out, err := execute(t, "generate", input, "--count", "25", "--start-id", "100", "--seed", "3")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Wrote 25 sites")

	out, err = execute(t, "merge", input, "--json", merged, "--db", db, "--quiet", "--strict")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Merged 25 sites")
	assert.Contains(t, out, ": 25 stored]")

	f, err := os.Open(merged)
	require.NoError(t, err)
	records, err := jsonstream.ReadAll[models.Record](merged, f)
	f.Close()
	require.NoError(t, err)
	require.Len(t, records, 25)
	assert.Equal(t, 100, records[0].ID)
	assert.Equal(t, 124, records[24].ID)

	out, err = execute(t, "runs", "list", "--db", db)
	require.NoError(t, err, out)
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, input)

	out, err = execute(t, "runs", "show", "--db", db)
	require.NoError(t, err, out)
	shown, err := jsonstream.ReadAll[models.Record]("stdout", strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, records, shown)
}

func TestMerge_UnsortedInputRecordsFailedRun(t *testing.T) {
	input := t.TempDir()
	db := filepath.Join(t.TempDir(), "runs.db")
	files := map[string]string{
		"main.json":      `[{"id":2,"siteName":"B","address":"b"},{"id":1,"siteName":"A","address":"a"}]`,
		"poc.json":       `[]`,
		"equipment.json": `[]`,
		"materials.json": `[]`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(input, name), []byte(body), 0o644))
	}

	_, err := execute(t, "merge", input, "--db", db, "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not sorted")

	out, err := execute(t, "runs", "list", "--db", db)
	require.NoError(t, err, out)
	assert.Contains(t, out, "failed")
}

func TestMerge_IncompleteSiteRecordFails(t *testing.T) {
	input := t.TempDir()
	files := map[string]string{
		"main.json":      `[{"id":1,"siteName":"","address":"a"},{"id":2,"siteName":"B","address":"b"}]`,
		"poc.json":       `[]`,
		"equipment.json": `[]`,
		"materials.json": `[]`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(input, name), []byte(body), 0o644))
	}

	out, err := execute(t, "merge", input, "--quiet")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrIncomplete)
	assert.NotContains(t, out, "dropped")
}

func TestResolveMergeSettings_StrictStaysLocal(t *testing.T) {
	saved := cfg
	t.Cleanup(func() {
		cfg = saved
		mergeStrict = false
	})
	cfg = config.DefaultConfig()
	mergeStrict = true

	s := resolveMergeSettings(nil)
	assert.True(t, s.opts.Strict)
	assert.False(t, cfg.Merge.Strict)
	assert.Equal(t, cfg.Merge.Buffer, s.opts.Buffer)
}

func TestMerge_MissingInput(t *testing.T) {
	_, err := execute(t, "merge", filepath.Join(t.TempDir(), "nowhere"), "--quiet")
	assert.Error(t, err)
}

func TestRuns_NoDatabase(t *testing.T) {
	_, err := execute(t, "runs", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database configured")
}

func TestRuns_EmptyDatabase(t *testing.T) {
	out, err := execute(t, "runs", "list", "--db", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")
}

func TestGenerate_TempDir(t *testing.T) {
	out, err := execute(t, "generate", "--count", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 sites")

	idx := strings.LastIndex(out, " to ")
	require.Positive(t, idx)
	dir := strings.TrimSpace(out[idx+len(" to "):])
	t.Cleanup(func() { os.RemoveAll(dir) })
	assert.FileExists(t, filepath.Join(dir, "main.json"))
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: shout\n"), 0o644))
	t.Setenv("SITEMERGE_LOG_LEVEL", "")
	resetFlags(rootCmd)
	rootCmd.SetArgs([]string{"--config", path, "generate", t.TempDir()})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
