package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the pipeline can observe
type ErrorKind string

const (
	KindTransientNetwork ErrorKind = "TRANSIENT_NETWORK"
	KindClientRequest    ErrorKind = "CLIENT_REQUEST"
	KindRecordTransform  ErrorKind = "RECORD_TRANSFORM"
	KindPersistence      ErrorKind = "PERSISTENCE"
	KindExhaustedRetries ErrorKind = "EXHAUSTED_RETRIES"
	KindUnknown          ErrorKind = "UNKNOWN"
)

// SyncError is the single classified error type returned across the pipeline
type SyncError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *SyncError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Kind, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError wraps err with a kind
func NewSyncError(kind ErrorKind, source string, err error) *SyncError {
	return &SyncError{Kind: kind, Source: source, Err: err}
}

// KindOf returns the classification of err, or KindUnknown
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsTerminal reports whether retrying err cannot help
func IsTerminal(err error) bool {
	switch KindOf(err) {
	case KindClientRequest, KindExhaustedRetries, KindRecordTransform:
		return true
	default:
		return false
	}
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
