// Package domain holds the error taxonomy shared by the comparison pipeline.
package domain

import (
	"errors"
	"fmt"
)

// ErrorType classifies a domain error.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeChunking   ErrorType = "chunking"
	ErrorTypeGeneration ErrorType = "generation"
	ErrorTypeSynthesis  ErrorType = "synthesis"
	ErrorTypePipeline   ErrorType = "pipeline"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeStorage    ErrorType = "storage"
)

// ErrNoUsableResults is returned when every chunk failed to produce an answer.
var ErrNoUsableResults = errors.New("no usable results")

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err is (or wraps) a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == errType
	}
	return false
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ChunkingError(message string, err error) *DomainError {
	return NewError(ErrorTypeChunking, message, err)
}

func GenerationError(message string, err error) *DomainError {
	return NewError(ErrorTypeGeneration, message, err)
}

func SynthesisError(message string, err error) *DomainError {
	return NewError(ErrorTypeSynthesis, message, err)
}

func PipelineError(message string, err error) *DomainError {
	return NewError(ErrorTypePipeline, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

func StorageError(message string, err error) *DomainError {
	return NewError(ErrorTypeStorage, message, err)
}
