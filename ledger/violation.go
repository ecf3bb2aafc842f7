package ledger

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type ViolationKind string

const (
	// ViolationHashMismatch: stored hash differs from the recomputed digest.
	ViolationHashMismatch ViolationKind = "hash_mismatch"
	// ViolationPreviousHashMismatch: previousBlockHash differs from the predecessor's hash,
	// or is set on the genesis block.
	ViolationPreviousHashMismatch ViolationKind = "previous_hash_mismatch"
	// ViolationHeightMismatch: the block's height field differs from its storage key.
	ViolationHeightMismatch ViolationKind = "height_mismatch"
	// ViolationMissingPredecessor: no block is stored directly below this one.
	ViolationMissingPredecessor ViolationKind = "missing_predecessor"
	// ViolationCorrupt: the stored value does not decode as a block.
	ViolationCorrupt ViolationKind = "corrupt"
)

// Violation is one integrity problem found at a height.
type Violation struct {
	Height uint64        `json:"height"`
	Kind   ViolationKind `json:"kind"`
}

func (v Violation) Error() string {
	switch v.Kind {
	case ViolationHashMismatch:
		return fmt.Sprintf("Block#%d hash check failed", v.Height)
	case ViolationPreviousHashMismatch:
		return fmt.Sprintf("Block#%d previousBlockHash check failed", v.Height)
	case ViolationHeightMismatch:
		return fmt.Sprintf("Block#%d height does not match its key", v.Height)
	case ViolationMissingPredecessor:
		return fmt.Sprintf("Block#%d has no predecessor", v.Height)
	case ViolationCorrupt:
		return fmt.Sprintf("Block#%d cannot be decoded", v.Height)
	default:
		return fmt.Sprintf("Block#%d %s", v.Height, v.Kind)
	}
}

// Violations is the ordered result of a chain validation; empty means valid.
type Violations []Violation

// Err folds the violations into a single error, nil when the chain is valid.
func (vs Violations) Err() error {
	var result *multierror.Error
	for _, v := range vs {
		result = multierror.Append(result, v)
	}
	return result.ErrorOrNil()
}

func (vs Violations) At(height uint64) []ViolationKind {
	var kinds []ViolationKind
	for _, v := range vs {
		if v.Height == height {
			kinds = append(kinds, v.Kind)
		}
	}
	return kinds
}
