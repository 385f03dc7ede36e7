package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// FormatVersion is written into every export envelope
const FormatVersion = "1.0"

var (
	// ErrInvalidExport is returned for data that is not an export envelope
	ErrInvalidExport = errors.New("not a valid export")
	// ErrUnsupportedVersion is returned for envelopes from an incompatible format
	ErrUnsupportedVersion = errors.New("unsupported export version")
)

// Envelope wraps an exported document
type Envelope struct {
	Version    string          `json:"version"`
	ExportedAt int64           `json:"exportedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Export wraps doc in a versioned envelope stamped at the given time
func Export(doc Document, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	env := Envelope{
		Version:    FormatVersion,
		ExportedAt: at.UnixMilli(),
		Payload:    payload,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// ExportYAML renders the same envelope as YAML for human review
func ExportYAML(doc Document, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var body interface{}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	out := map[string]interface{}{
		"version":    FormatVersion,
		"exportedAt": at.UnixMilli(),
		"payload":    body,
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// Import checks the envelope in data and decodes its payload into doc. The
// document always gets a new id and fresh timestamps.
func Import(data []byte, doc Document, at time.Time) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: malformed JSON", ErrInvalidExport)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("%w: expected an object", ErrInvalidExport)
	}

	version := root.Get("version")
	if !version.Exists() || version.Type != gjson.String || version.Str == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidExport)
	}
	payload := root.Get("payload")
	if !payload.Exists() || !payload.IsObject() {
		return fmt.Errorf("%w: missing payload", ErrInvalidExport)
	}
	if major(version.Str) != major(FormatVersion) {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, version.Str)
	}

	if err := json.Unmarshal([]byte(payload.Raw), doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}

	meta := doc.Metadata()
	meta.ID = NewID()
	ms := at.UnixMilli()
	meta.CreatedAt = ms
	meta.UpdatedAt = ms
	return nil
}

// ImportPage imports a page export and validates its node forest
func ImportPage(data []byte, maxDepth int, at time.Time) (*Page, error) {
	page := &Page{}
	if err := Import(data, page, at); err != nil {
		return nil, err
	}
	if page.Nodes == nil {
		page.Nodes = []*tree.Node{}
	}
	if err := tree.Validate(page.Nodes, maxDepth); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}
	if page.Name == "" {
		page.Name = "Imported page"
	}
	return page, nil
}

func major(version string) string {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if i := strings.IndexByte(v, '.'); i >= 0 {
		return v[:i]
	}
	return v
}
