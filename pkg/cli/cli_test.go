package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/pagebuilder/pkg/config"
	"github.com/dshills/pagebuilder/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupDir points the CLI at a fresh config directory using the file backend
func setupDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendFile
	require.NoError(t, config.Save(dir, cfg))
	t.Setenv(config.EnvConfigDir, dir)
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := run(t, stdin, args...)
	require.NoError(t, err, "pagebuilder %s", strings.Join(args, " "))
	return out
}

func TestRoot_CreatesConfigOnFirstRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	t.Setenv(config.EnvConfigDir, dir)

	mustRun(t, "", "catalog", "list")

	_, err := os.Stat(filepath.Join(dir, config.FileName))
	assert.NoError(t, err)
}

func TestDoc_Lifecycle(t *testing.T) {
	dir := setupDir(t)

	id := strings.TrimSpace(mustRun(t, "", "doc", "new", "Landing"))
	require.NotEmpty(t, id)

	out := mustRun(t, "", "doc", "list")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Landing")

	out = mustRun(t, "", "doc", "show", id)
	assert.Contains(t, out, "Page: Landing")
	assert.Contains(t, out, "(empty page)")

	reply := "Here you go\n```json\n" +
		`{"explanation":"Added a card","actions":[{"type":"add","kind":"card"},{"type":"update","properties":{"title":"Pricing"}},{"type":"remove","targetId":"ghost"}]}` +
		"\n```"
	out = mustRun(t, reply, "doc", "apply", id, "-")
	assert.Contains(t, out, "Added a card")
	assert.Contains(t, out, "(2) changes applied")
	assert.Contains(t, out, "skipped #2")

	out = mustRun(t, "", "doc", "show", id)
	assert.Contains(t, out, "Nodes: 1")
	assert.Contains(t, out, `title: "Pricing"`)

	exportPath := filepath.Join(dir, "landing.json")
	mustRun(t, "", "doc", "export", id, "-o", exportPath)
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "1.0"`)

	imported := strings.TrimSpace(mustRun(t, "", "doc", "import", exportPath, "--name", "Landing v2"))
	assert.NotEqual(t, id, imported)

	dup := strings.TrimSpace(mustRun(t, "", "doc", "duplicate", id))
	out = mustRun(t, "", "doc", "list")
	assert.Contains(t, out, "Landing v2")
	assert.Contains(t, out, "Landing (copy)")

	mustRun(t, "", "doc", "delete", dup, imported)
	out = mustRun(t, "", "doc", "list")
	assert.NotContains(t, out, dup)
	assert.NotContains(t, out, imported)
	assert.Contains(t, out, id)
}

func TestDoc_ExportFormats(t *testing.T) {
	setupDir(t)
	id := strings.TrimSpace(mustRun(t, "", "doc", "new", "Blog"))

	out := mustRun(t, "", "doc", "export", id)
	assert.Contains(t, out, `"payload"`)

	out = mustRun(t, "", "doc", "export", id, "--format", "yaml")
	assert.Contains(t, out, "payload:")
	assert.Contains(t, out, "name: Blog")

	_, err := run(t, "", "doc", "export", id, "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestDoc_ImportFromStdin(t *testing.T) {
	setupDir(t)
	export := `{"version":"1.0","exportedAt":0,"payload":{"id":"old","name":"Shared","nodes":[]}}`

	id := strings.TrimSpace(mustRun(t, export, "doc", "import", "-"))
	assert.NotEqual(t, "old", id)

	out := mustRun(t, "", "doc", "show", id, "--json")
	assert.Contains(t, out, `"name": "Shared"`)

	_, err := run(t, `{"version":"2.0","payload":{}}`, "doc", "import", "-")
	assert.ErrorIs(t, err, document.ErrUnsupportedVersion)
}

func TestDoc_MissingPage(t *testing.T) {
	setupDir(t)

	_, err := run(t, "", "doc", "show", "nope")
	assert.ErrorIs(t, err, document.ErrNotFound)

	_, err = run(t, "", "doc", "duplicate", "nope")
	assert.ErrorIs(t, err, document.ErrNotFound)

	out := mustRun(t, "", "doc", "list")
	assert.Contains(t, out, "No pages saved")
}

func TestWorkspace_Commands(t *testing.T) {
	setupDir(t)

	id := strings.TrimSpace(mustRun(t, "", "workspace", "new", "Default"))
	require.NotEmpty(t, id)

	out := mustRun(t, "", "workspace", "show", id)
	assert.Contains(t, out, "Workspace: Default")
	assert.Contains(t, out, "Components")
	assert.Contains(t, out, "(palette)")

	out = mustRun(t, "", "ws", "reset", id)
	assert.Contains(t, out, `Workspace "Default" reset`)

	out = mustRun(t, "", "workspace", "list")
	assert.Contains(t, out, id)

	mustRun(t, "", "workspace", "delete", id)
	out = mustRun(t, "", "workspace", "list")
	assert.Contains(t, out, "No workspaces saved")

	_, err := run(t, "", "workspace", "show", id)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestCatalog_List(t *testing.T) {
	setupDir(t)

	out := mustRun(t, "", "catalog", "list")
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "card")
	assert.Contains(t, out, "container")

	out = mustRun(t, "", "catalog", "list", "--filter", "zzz")
	assert.Contains(t, out, "No matching kinds")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
