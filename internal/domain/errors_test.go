package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *DomainError
		want string
	}{
		{
			name: "without cause",
			err:  ValidationError("document text is empty", nil),
			want: "[validation] document text is empty",
		},
		{
			name: "with cause",
			err:  GenerationError("chunk 2 failed", errors.New("throttled")),
			want: "[generation] chunk 2 failed: throttled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestDomainError_UnwrapsSentinel(t *testing.T) {
	err := fmt.Errorf("compare: %w", PipelineError("processing failed", ErrNoUsableResults))

	assert.True(t, errors.Is(err, ErrNoUsableResults))
	assert.True(t, IsType(err, ErrorTypePipeline))
	assert.False(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(errors.New("plain"), ErrorTypePipeline))
}
