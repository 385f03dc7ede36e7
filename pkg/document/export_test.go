package document

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var exportTime = time.UnixMilli(1_700_000_000_000)

func TestExport_Envelope(t *testing.T) {
	page := NewPage("Landing")
	page.Nodes = sampleStore(t).Export()

	data, err := Export(page, exportTime)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, FormatVersion, env.Version)
	assert.Equal(t, exportTime.UnixMilli(), env.ExportedAt)

	var payload Page
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, page.ID, payload.ID)
	assert.Equal(t, page.Count(), payload.Count())
}

func TestImportPage_MintsNewIdentity(t *testing.T) {
	page := NewPage("Landing")
	page.Nodes = sampleStore(t).Export()
	data, err := Export(page, exportTime)
	require.NoError(t, err)

	later := exportTime.Add(time.Hour)
	imported, err := ImportPage(data, 0, later)
	require.NoError(t, err)

	assert.NotEqual(t, page.ID, imported.ID)
	assert.Equal(t, "Landing", imported.Name)
	assert.Equal(t, later.UnixMilli(), imported.CreatedAt)
	assert.Equal(t, page.Count(), imported.Count())

	again, err := ImportPage(data, 0, later)
	require.NoError(t, err)
	assert.NotEqual(t, imported.ID, again.ID)
}

func TestImportPage_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"not json", `version: 1`, ErrInvalidExport},
		{"array", `[1, 2]`, ErrInvalidExport},
		{"missing version", `{"payload": {"id": "x"}}`, ErrInvalidExport},
		{"numeric version", `{"version": 1, "payload": {"id": "x"}}`, ErrInvalidExport},
		{"missing payload", `{"version": "1.0"}`, ErrInvalidExport},
		{"payload not object", `{"version": "1.0", "payload": "x"}`, ErrInvalidExport},
		{"future major", `{"version": "2.0", "payload": {"id": "x"}}`, ErrUnsupportedVersion},
		{"bad forest", `{"version": "1.0", "payload": {"id": "x", "nodes": [{"id": "", "kind": "card"}]}}`, ErrInvalidExport},
		{"duplicate ids", `{"version": "1.0", "payload": {"nodes": [{"id": "a", "kind": "card"}, {"id": "a", "kind": "card"}]}}`, ErrInvalidExport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportPage([]byte(tt.data), 0, exportTime)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestImportPage_MinorVersionAndDefaults(t *testing.T) {
	page, err := ImportPage([]byte(`{"version": "1.3", "exportedAt": 1, "payload": {"id": "old"}}`), 0, exportTime)
	require.NoError(t, err)
	assert.Equal(t, "Imported page", page.Name)
	assert.Equal(t, []*tree.Node{}, page.Nodes)
	assert.NotEqual(t, "old", page.ID)
}

func TestExportYAML(t *testing.T) {
	page := NewPage("Landing")
	page.Nodes = sampleStore(t).Export()

	data, err := ExportYAML(page, exportTime)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "exportedAt:"))

	var out map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, FormatVersion, out["version"])
	payload, ok := out["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Landing", payload["name"])
}
