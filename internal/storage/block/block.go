package block

import (
	"errors"
	"fmt"
)

const (
	// IDWidth is the number of decimal digits in a block identifier.
	IDWidth = 5
	// MaxBlocks is the number of distinct identifiers IDWidth digits allow.
	MaxBlocks = 100000
)

// ErrTooManyBlocks is returned when a file needs more blocks than MaxBlocks.
var ErrTooManyBlocks = errors.New("too many blocks for a single blob")

// State is the lifecycle state of a staged block.
type State int

const (
	// StateUncommitted marks a block staged but not yet part of the blob.
	StateUncommitted State = iota + 1
)

// String returns the storage service name of the state.
func (s State) String() string {
	if s == StateUncommitted {
		return "uncommitted"
	}

	return "unknown"
}

// Block is one staged chunk of a blob.
type Block struct {
	// ID is the zero-padded sequence number of the block.
	ID string
	// State is always StateUncommitted until the list is committed.
	State State
}

// List is the ordered set of blocks making up one blob.
type List []Block

// IDs returns the identifiers in upload order.
func (l List) IDs() []string {
	ids := make([]string, len(l))
	for i, b := range l {
		ids[i] = b.ID
	}

	return ids
}

// ID renders a sequence number as a fixed-width identifier, so that
// lexicographic order of identifiers equals upload order.
func ID(sequence int) (string, error) {
	if sequence < 0 || sequence >= MaxBlocks {
		return "", fmt.Errorf("block %d: %w", sequence, ErrTooManyBlocks)
	}

	return fmt.Sprintf("%0*d", IDWidth, sequence), nil
}
