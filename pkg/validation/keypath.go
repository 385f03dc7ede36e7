package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// PathValidator resolves storage keys and relative paths below a base
// directory, rejecting anything that escapes it.
type PathValidator struct {
	basePath     string
	resolvedBase string
	maxPathLen   int
	validations  uint64
	rejections   uint64
}

// ValidationError represents a path validation failure with context for logging.
type ValidationError struct {
	UserPath     string    // Original user input that was rejected
	Reason       string    // Human-readable reason for rejection
	ResolvedPath string    // Resolved path if resolution succeeded (may be empty)
	Timestamp    time.Time // When the validation error occurred
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.ResolvedPath != "" {
		return fmt.Sprintf("path validation failed: %s (input: %s, resolved: %s)",
			e.Reason, e.UserPath, e.ResolvedPath)
	}
	return fmt.Sprintf("path validation failed: %s (input: %s)", e.Reason, e.UserPath)
}

// NewPathValidator creates a validator for an existing absolute base directory.
func NewPathValidator(basePath string) (*PathValidator, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if !filepath.IsAbs(basePath) {
		return nil, fmt.Errorf("base path must be absolute: %s", basePath)
	}

	info, err := os.Stat(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("base path does not exist: %s", basePath)
		}
		return nil, fmt.Errorf("cannot access base path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path is not a directory: %s", basePath)
	}

	resolvedBase, err := filepath.EvalSymlinks(basePath)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve symbolic links in base path: %w", err)
	}

	return &PathValidator{
		basePath:     basePath,
		resolvedBase: resolvedBase,
		maxPathLen:   1024,
	}, nil
}

// Base returns the resolved base directory
func (v *PathValidator) Base() string {
	return v.resolvedBase
}

// KeyPath maps a storage key to a file path with the given extension.
// The key must satisfy IsValidKey, so "..", absolute paths and separators
// other than "/" never reach the filesystem.
func (v *PathValidator) KeyPath(key, ext string) (string, error) {
	if !IsValidKey(key) {
		atomic.AddUint64(&v.validations, 1)
		atomic.AddUint64(&v.rejections, 1)
		return "", &ValidationError{
			UserPath:  key,
			Reason:    "key must be slash-separated identifiers",
			Timestamp: time.Now(),
		}
	}
	return v.Validate(filepath.FromSlash(key) + ext)
}

// Validate checks that userPath stays inside the base directory after
// cleaning and symlink resolution, and returns the resolved absolute path.
// Paths that do not exist yet are resolved through their nearest existing parent.
func (v *PathValidator) Validate(userPath string) (string, error) {
	atomic.AddUint64(&v.validations, 1)

	reject := func(reason, resolved string) (string, error) {
		atomic.AddUint64(&v.rejections, 1)
		return "", &ValidationError{
			UserPath:     userPath,
			Reason:       reason,
			ResolvedPath: resolved,
			Timestamp:    time.Now(),
		}
	}

	if userPath == "" {
		return reject("path cannot be empty", "")
	}
	if len(userPath) > v.maxPathLen {
		return reject(fmt.Sprintf("path length exceeds maximum of %d bytes", v.maxPathLen), "")
	}
	if !filepath.IsLocal(userPath) {
		return reject("path escapes allowed directory", "")
	}

	fullPath := filepath.Join(v.resolvedBase, filepath.Clean(userPath))
	resolvedPath, err := resolveExisting(fullPath)
	if err != nil {
		return reject("cannot resolve path", "")
	}

	relPath, err := filepath.Rel(v.resolvedBase, resolvedPath)
	if err != nil {
		return reject("path is not relative to base", resolvedPath)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return reject("resolved path escapes base directory", resolvedPath)
	}

	return resolvedPath, nil
}

// Stats returns validation statistics for monitoring.
func (v *PathValidator) Stats() (validations, rejections uint64) {
	return atomic.LoadUint64(&v.validations), atomic.LoadUint64(&v.rejections)
}

// resolveExisting resolves symlinks in the longest existing prefix of path
// and re-appends the missing tail.
func resolveExisting(path string) (string, error) {
	var tail []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			parts := append([]string{resolved}, tail...)
			return filepath.Join(parts...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}
		tail = append([]string{filepath.Base(current)}, tail...)
		current = parent
	}
}
