package ledger

import "errors"

var (
	// ErrNotFound reports a plain miss on a read; it is a valid outcome, not a defect.
	ErrNotFound = errors.New("block not found")
	// ErrChainLink reports that a new block cannot be linked at the next height:
	// its predecessor is missing or the height is already taken.
	ErrChainLink = errors.New("cannot link new block to the chain tip")
)
