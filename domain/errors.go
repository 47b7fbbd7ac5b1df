package domain

import (
	"errors"
	"fmt"
)

// DomainError represents errors in the domain layer
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

func (e DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e DomainError) Unwrap() error {
	return e.Cause
}

// Domain error codes
const (
	ErrCodeInvalidInput         = "INVALID_INPUT"
	ErrCodeFileNotFound         = "FILE_NOT_FOUND"
	ErrCodeParseError           = "PARSE_ERROR"
	ErrCodeOutOfBounds          = "OUT_OF_BOUNDS"
	ErrCodeInvalidConfiguration = "INVALID_CONFIGURATION"
	ErrCodeAnalysisError        = "ANALYSIS_ERROR"
	ErrCodeOutputError          = "OUTPUT_ERROR"
	ErrCodeUnsupportedFormat    = "UNSUPPORTED_FORMAT"
)

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) error {
	return DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidInput, message, cause)
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string, cause error) error {
	return NewDomainError(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path), cause)
}

// NewParseError creates a parse error for a file or code unit
func NewParseError(unit string, cause error) error {
	return NewDomainError(ErrCodeParseError, fmt.Sprintf("failed to parse: %s", unit), cause)
}

// NewOutOfBoundsError reports a line or byte range outside the source text
func NewOutOfBoundsError(start, end, limit int) error {
	return NewDomainError(ErrCodeOutOfBounds,
		fmt.Sprintf("range %d-%d exceeds source length %d", start, end, limit), nil)
}

// NewInvalidConfigurationError creates a configuration error
func NewInvalidConfigurationError(message string) error {
	return NewDomainError(ErrCodeInvalidConfiguration, message, nil)
}

// NewConfigError wraps an error raised while loading configuration
func NewConfigError(message string, cause error) error {
	return NewDomainError(ErrCodeInvalidConfiguration, message, cause)
}

// NewAnalysisError creates an analysis error
func NewAnalysisError(message string, cause error) error {
	return NewDomainError(ErrCodeAnalysisError, message, cause)
}

// NewOutputError creates an output error
func NewOutputError(message string, cause error) error {
	return NewDomainError(ErrCodeOutputError, message, cause)
}

// NewUnsupportedFormatError creates an unsupported format error
func NewUnsupportedFormatError(format string) error {
	return NewDomainError(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported format: %s", format), nil)
}

// NewValidationError creates a validation error
func NewValidationError(message string) error {
	return NewDomainError(ErrCodeInvalidInput, message, nil)
}

// HasErrorCode reports whether err (or anything it wraps) is a DomainError with the given code
func HasErrorCode(err error, code string) bool {
	var de DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsParseFailure reports whether err is a parse failure
func IsParseFailure(err error) bool {
	return HasErrorCode(err, ErrCodeParseError)
}

// IsOutOfBounds reports whether err is an out-of-bounds error
func IsOutOfBounds(err error) bool {
	return HasErrorCode(err, ErrCodeOutOfBounds)
}

// IsInvalidConfiguration reports whether err is a configuration error
func IsInvalidConfiguration(err error) bool {
	return HasErrorCode(err, ErrCodeInvalidConfiguration)
}
