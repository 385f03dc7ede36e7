package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDisk = errors.New("disk full")

func TestNewOperationalError_NilCause(t *testing.T) {
	assert.Nil(t, NewOperationalError("saving page", "doc-1", "", nil))
}

func TestOperationalError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *OperationalError
		want string
	}{
		{
			name: "document only",
			err:  NewOperationalError("saving page", "doc-1", "", errDisk),
			want: "saving page: document=doc-1: disk full",
		},
		{
			name: "document and node",
			err:  NewOperationalError("applying action", "doc-1", "n-7", errDisk),
			want: "applying action: document=doc-1 node=n-7: disk full",
		},
		{
			name: "no ids",
			err:  NewOperationalError("listing", "", "", errDisk),
			want: "listing: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestOperationalError_Unwrap(t *testing.T) {
	opErr := NewOperationalError("saving page", "doc-1", "", errDisk).WithAttr("bytes", 42)
	wrapped := fmt.Errorf("autosave: %w", opErr)

	assert.True(t, errors.Is(wrapped, errDisk))

	got, ok := AsOperational(wrapped)
	require.True(t, ok)
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, 42, got.Attributes["bytes"])
}
