package mirror

import (
	"errors"
	"fmt"
)

// SyncError represents an error detected during a sync cycle.
//
// SyncError includes structured fields for diagnostics:
//   - Code identifies the failure category
//   - Locator is the resource involved, when there is one
//   - Err is the underlying cause
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Message is a human-readable description.
	Message string

	// Locator identifies the affected resource.
	Locator string

	// Err is the wrapped cause.
	Err error
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// ErrCodeNotBootstrapped indicates an operation that needs a mirror root
	// ran before the first successful bootstrap.
	ErrCodeNotBootstrapped SyncErrorCode = "NOT_BOOTSTRAPPED"

	// ErrCodeSourceUnavailable indicates the source root could not be fetched.
	ErrCodeSourceUnavailable SyncErrorCode = "SOURCE_UNAVAILABLE"

	// ErrCodeMirrorUnavailable indicates the mirror root could not be read.
	ErrCodeMirrorUnavailable SyncErrorCode = "MIRROR_UNAVAILABLE"

	// ErrCodeMalformedSource indicates a missing relation part, a locator
	// outside the source namespace or a member without timestamp.
	ErrCodeMalformedSource SyncErrorCode = "MALFORMED_SOURCE"

	// ErrCodeMalformedMirror indicates a mirror root without relations or
	// with unreadable relation records.
	ErrCodeMalformedMirror SyncErrorCode = "MALFORMED_MIRROR"

	// ErrCodeMissingCursor indicates zero or several cursor records.
	ErrCodeMissingCursor SyncErrorCode = "MISSING_CURSOR"

	// ErrCodeAmbiguousOpenPage indicates several relations share the
	// greatest boundary value.
	ErrCodeAmbiguousOpenPage SyncErrorCode = "AMBIGUOUS_OPEN_PAGE"

	// ErrCodeWriteFailure indicates the mirror store rejected a write.
	ErrCodeWriteFailure SyncErrorCode = "WRITE_FAILURE"

	// ErrCodeSyncInProgress indicates Synchronize was called while another
	// cycle of the same engine was running.
	ErrCodeSyncInProgress SyncErrorCode = "SYNC_IN_PROGRESS"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Locator != "" {
		msg = fmt.Sprintf("%s (locator=%s)", msg, e.Locator)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error {
	return e.Err
}

func newSyncError(code SyncErrorCode, locator string, err error, format string, args ...any) *SyncError {
	return &SyncError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Locator: locator,
		Err:     err,
	}
}

// HasCode reports whether err is a SyncError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code SyncErrorCode) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsNotBootstrapped returns true if the mirror root does not exist yet.
func IsNotBootstrapped(err error) bool { return HasCode(err, ErrCodeNotBootstrapped) }

// IsSourceUnavailable returns true if the source root could not be fetched.
func IsSourceUnavailable(err error) bool { return HasCode(err, ErrCodeSourceUnavailable) }

// IsMirrorUnavailable returns true if the mirror root could not be read.
func IsMirrorUnavailable(err error) bool { return HasCode(err, ErrCodeMirrorUnavailable) }

// IsMalformedSource returns true if source content had an unexpected shape.
func IsMalformedSource(err error) bool { return HasCode(err, ErrCodeMalformedSource) }

// IsMalformedMirror returns true if the mirror root had an unexpected shape.
func IsMalformedMirror(err error) bool { return HasCode(err, ErrCodeMalformedMirror) }

// IsMissingCursor returns true if the mirror root did not hold exactly one cursor.
func IsMissingCursor(err error) bool { return HasCode(err, ErrCodeMissingCursor) }

// IsAmbiguousOpenPage returns true if the open page could not be determined.
func IsAmbiguousOpenPage(err error) bool { return HasCode(err, ErrCodeAmbiguousOpenPage) }

// IsWriteFailure returns true if a mirror write was rejected.
func IsWriteFailure(err error) bool { return HasCode(err, ErrCodeWriteFailure) }

// IsSyncInProgress returns true if another cycle was already running.
func IsSyncInProgress(err error) bool { return HasCode(err, ErrCodeSyncInProgress) }
