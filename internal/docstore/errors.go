package docstore

import (
	"errors"
	"fmt"
)

// Failures surfaced by the store. Each wraps its cause, so errors.Is works on both.
var (
	ErrFetchFailed    = errors.New("failed to fetch documents")
	ErrSearchFailed   = errors.New("search failed")
	ErrUploadFailed   = errors.New("failed to upload document")
	ErrDeleteFailed   = errors.New("failed to delete document")
	ErrDownloadFailed = errors.New("failed to download document")

	// ErrValidationFailed is an upload failure detected before any network call.
	ErrValidationFailed = fmt.Errorf("%w: name and file are required", ErrUploadFailed)

	errNoSaver = errors.New("no saver")
)

// Message returns the user-facing text for a store error; it never includes the cause.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidationFailed):
		return "Please provide both file and name"
	case errors.Is(err, ErrUploadFailed):
		return "Failed to upload document"
	case errors.Is(err, ErrFetchFailed):
		return "Failed to fetch documents"
	case errors.Is(err, ErrSearchFailed):
		return "Search failed"
	case errors.Is(err, ErrDeleteFailed):
		return "Failed to delete document"
	case errors.Is(err, ErrDownloadFailed):
		return "Failed to download document"
	default:
		return "Something went wrong"
	}
}

func wrap(sentinel, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}
