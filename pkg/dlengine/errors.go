package dlengine

import "errors"

var (
	// ErrProbeFailed wraps the transport cause of a failed metadata request.
	ErrProbeFailed = errors.New("failed to get file info")
	// ErrSegmentFailed wraps a failed, short, or corrupt segment fetch.
	ErrSegmentFailed = errors.New("segment download failed")
	// ErrCancelled is returned by a fetch loop when the cancel flag is observed.
	ErrCancelled = errors.New("download cancelled")
	// ErrMergeFailed wraps an I/O error while concatenating segment sidecars.
	ErrMergeFailed = errors.New("failed to merge segments")

	// ErrContentLengthInvalid is returned when a present Content-Length
	// header is negative or not a number.
	ErrContentLengthInvalid = errors.New("content length is invalid")
)
