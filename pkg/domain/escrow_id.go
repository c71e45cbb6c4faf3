package domain

import (
	"strconv"

	dErrors "escrowd/pkg/domain-errors"
)

// EscrowID is the ledger-assigned, monotonically increasing escrow key.
// Zero is never assigned.
type EscrowID uint64

// ParseEscrowID parses a path or query parameter.
//
// Errors: CodeValidation when the value is not a positive integer.
func ParseEscrowID(s string) (EscrowID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "escrow id must be a positive integer")
	}
	return EscrowID(n), nil
}

func (id EscrowID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IsNil returns true for the unassigned id.
func (id EscrowID) IsNil() bool {
	return id == 0
}
