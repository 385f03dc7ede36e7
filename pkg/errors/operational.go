package errors

import (
	"errors"
	"fmt"
	"time"
)

// OperationalError carries the context of a failed persistence or editor
// operation: which document, which node, and when.
type OperationalError struct {
	Operation  string                 // What operation was being performed
	DocumentID string                 // Which document (if applicable)
	NodeID     string                 // Which node (if applicable)
	Timestamp  time.Time              // When error occurred
	Attributes map[string]interface{} // Additional context (optional)
	Cause      error                  // Underlying error
}

// NewOperationalError creates an OperationalError wrapping an error.
//
// Returns nil if cause is nil (no error to wrap).
//
// Example:
//
//	if err := kv.Save(ctx, key, data); err != nil {
//	    return NewOperationalError("saving page", doc.ID, "", err)
//	}
func NewOperationalError(operation, documentID, nodeID string, cause error) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation:  operation,
		DocumentID: documentID,
		NodeID:     nodeID,
		Timestamp:  time.Now(),
		Cause:      cause,
	}
}

// WithAttr returns e with an extra attribute set
func (e *OperationalError) WithAttr(key string, value interface{}) *OperationalError {
	if e == nil {
		return nil
	}
	if e.Attributes == nil {
		e.Attributes = make(map[string]interface{})
	}
	e.Attributes[key] = value
	return e
}

// Error implements the error interface.
//
// Format: "operation: document={id} node={id}: {cause}"
// Empty ids are omitted.
func (e *OperationalError) Error() string {
	if e == nil {
		return "<nil OperationalError>"
	}

	msg := e.Operation
	if e.DocumentID != "" {
		msg += fmt.Sprintf(": document=%s", e.DocumentID)
	}
	if e.NodeID != "" {
		msg += fmt.Sprintf(" node=%s", e.NodeID)
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// AsOperational extracts an OperationalError from err's chain
func AsOperational(err error) (*OperationalError, bool) {
	var opErr *OperationalError
	if errors.As(err, &opErr) {
		return opErr, true
	}
	return nil, false
}
