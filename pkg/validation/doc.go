// Package validation provides input validation utilities for pagebuilder.
//
// # Identifiers
//
// Component kinds and storage key segments share one naming convention:
// ASCII letters, digits, hyphen and underscore. IsValidIdentifier checks a
// whole identifier; IsValidIdentifierChar checks a single rune.
//
// # Storage keys
//
// The filesystem key-value backend maps keys such as "pages/5b0c..." onto
// files below a base directory. KeyPath resolves a key to a path and refuses
// anything that would escape the base directory:
//
//	validator, err := validation.NewPathValidator("/var/lib/pagebuilder")
//	if err != nil {
//	    return err
//	}
//
//	path, err := validator.KeyPath("pages/5b0c9b1e", ".json")
//	if err != nil {
//	    return fmt.Errorf("invalid key: %w", err)
//	}
//
// # Thread Safety
//
// All types in this package are safe for concurrent use by multiple goroutines.
package validation
