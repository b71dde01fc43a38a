package biz

import "errors"

// Sentinel errors returned by the deduplication engine. The service
// layer maps these onto business error codes; the engine itself never
// retries and never panics.
var (
	// ErrInvalidPayload means the upload body is missing or could not be
	// decoded per its declared transfer encoding
	ErrInvalidPayload = errors.New("invalid file payload")

	// ErrPayloadTooLarge means the payload exceeds the configured limit
	ErrPayloadTooLarge = errors.New("file payload too large")

	// ErrNotFound means the requested file_id does not exist
	ErrNotFound = errors.New("file not found")

	// ErrStoreUnavailable means a metadata or blob store call failed.
	// Retrying the whole request is safe: a retried duplicate simply
	// re-detects duplication.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInconsistent means the metadata record was created but the blob
	// write failed, leaving a record that points at a missing blob.
	// Reconciliation is an operational concern; the engine reports the
	// condition and never treats it as success.
	ErrInconsistent = errors.New("metadata record created but blob write failed")
)
