package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidIdentifierChar(t *testing.T) {
	tests := []struct {
		name string
		ch   rune
		want bool
	}{
		{"lowercase a", 'a', true},
		{"uppercase Z", 'Z', true},
		{"digit 9", '9', true},
		{"hyphen", '-', true},
		{"underscore", '_', true},
		{"space", ' ', false},
		{"dot", '.', false},
		{"slash", '/', false},
		{"backslash", '\\', false},
		{"colon", ':', false},
		{"newline", '\n', false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidIdentifierChar(tt.ch); got != tt.want {
				t.Errorf("IsValidIdentifierChar(%q) = %v, want %v", tt.ch, got, tt.want)
			}
		})
	}
}

func TestIsValidKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"pages/abc-123", true},
		{"workspaces/default", true},
		{"single", true},
		{"", false},
		{"pages/", false},
		{"/pages/a", false},
		{"pages/../etc", false},
		{"pages/a.json", false},
		{`pages\a`, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidKey(tt.key))
		})
	}
}

func TestPathValidator_KeyPath(t *testing.T) {
	base := t.TempDir()
	v, err := NewPathValidator(base)
	require.NoError(t, err)

	path, err := v.KeyPath("pages/abc", ".json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(v.Base(), "pages", "abc.json"), path)

	_, err = v.KeyPath("../escape", ".json")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "../escape", verr.UserPath)

	validations, rejections := v.Stats()
	assert.Equal(t, uint64(2), validations)
	assert.Equal(t, uint64(1), rejections)
}

func TestPathValidator_Validate(t *testing.T) {
	base := t.TempDir()
	v, err := NewPathValidator(base)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"simple file", "a.json", false},
		{"missing nested dirs", "x/y/z.json", false},
		{"empty", "", true},
		{"parent traversal", "../a.json", true},
		{"absolute", "/etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPathValidator_SymlinkEscape(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(base, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	v, err := NewPathValidator(base)
	require.NoError(t, err)

	_, err = v.Validate("link/file.json")
	assert.Error(t, err)
}

func TestNewPathValidator_Errors(t *testing.T) {
	_, err := NewPathValidator("")
	assert.Error(t, err)

	_, err = NewPathValidator("relative/dir")
	assert.Error(t, err)

	_, err = NewPathValidator(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
