package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeMalformedRecord indicates a record cannot take part in admission
	// (missing identifier, non-scalar value, row out of sequence).
	ErrCodeMalformedRecord ErrorCode = "MALFORMED_RECORD"

	// ErrCodeInvalidLimits indicates the admission limits are out of range.
	ErrCodeInvalidLimits ErrorCode = "INVALID_LIMITS"

	// ErrCodeAuxOverflow indicates an aggregate sum overflowed int64.
	ErrCodeAuxOverflow ErrorCode = "AUX_OVERFLOW"

	// ErrCodeCheckpointMismatch indicates a checkpoint does not belong to the input.
	ErrCodeCheckpointMismatch ErrorCode = "CHECKPOINT_MISMATCH"
)

// RecordError reports a malformed input record.
//
// Malformed records are fatal for the run: the engine never silently skips
// a record, and the error names the offending row so the operator can fix
// the source table.
type RecordError struct {
	Code ErrorCode

	// Row is the 0-based index of the record in the input sequence.
	Row int

	// Line is the 1-based line in the source table (0 when unknown).
	Line int

	// Column names the offending column, if known.
	Column string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	loc := fmt.Sprintf("row %d", e.Row)
	if e.Line > 0 {
		loc = fmt.Sprintf("row %d (line %d)", e.Row, e.Line)
	}
	if e.Column != "" {
		return fmt.Sprintf("%s: %s, column %q: %s", e.Code, loc, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, loc, e.Message)
}

// NewRecordError creates a RecordError for a malformed record.
func NewRecordError(row, line int, column, message string) *RecordError {
	return &RecordError{
		Code:    ErrCodeMalformedRecord,
		Row:     row,
		Line:    line,
		Column:  column,
		Message: message,
	}
}

// RuntimeError represents a run-level error detected by the engine.
type RuntimeError struct {
	Code    ErrorCode
	Message string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewLimitsError creates a RuntimeError for out-of-range limits.
func NewLimitsError(message string) *RuntimeError {
	return &RuntimeError{Code: ErrCodeInvalidLimits, Message: message}
}

// NewOverflowError creates a RuntimeError for an aggregate overflow.
func NewOverflowError(key string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeAuxOverflow,
		Message: "auxiliary sum overflows int64",
		Details: map[string]string{"triple": key},
	}
}

// NewCheckpointError creates a RuntimeError for a checkpoint that cannot be
// applied to the given input.
func NewCheckpointError(message string) *RuntimeError {
	return &RuntimeError{Code: ErrCodeCheckpointMismatch, Message: message}
}

// IsRecordError returns true if the error is a RecordError.
// Uses errors.As to handle wrapped errors.
func IsRecordError(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}

// IsLimitsError returns true if the error reports invalid limits.
func IsLimitsError(err error) bool {
	return hasCode(err, ErrCodeInvalidLimits)
}

// IsCheckpointError returns true if the error reports a checkpoint mismatch.
func IsCheckpointError(err error) bool {
	return hasCode(err, ErrCodeCheckpointMismatch)
}

func hasCode(err error, code ErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
