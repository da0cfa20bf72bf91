package purge

import "errors"

var (
	// ErrCutoffNotFound means no tweet older than the cutoff was confirmed
	// within the page budget. Nothing has been written when it is returned.
	ErrCutoffNotFound = errors.New("cutoff tweet not found")

	// ErrBatchAborted means a delete failed for a reason other than the tweet
	// being gone already. The remaining batch is not attempted.
	ErrBatchAborted = errors.New("delete batch aborted")

	// ErrPersistence means the checkpoint or whitelist could not be written.
	ErrPersistence = errors.New("persistence failure")
)
