// Package split computes per-participant shares of an expense in integer cents.
package split

import (
	"errors"
	"fmt"
)

var (
	ErrNoParticipants       = errors.New("at least one participant is required")
	ErrPayerIndexOutOfRange = errors.New("payer index is out of range")
)

// Equal divides amountCents evenly across participants. Any remainder cents
// are assigned in full to the share at payerIndex, wherever the payer sits in
// the participant ordering. The returned shares always sum to amountCents.
func Equal(amountCents int64, participants, payerIndex int) ([]int64, error) {
	if participants <= 0 {
		return nil, ErrNoParticipants
	}
	if payerIndex < 0 || payerIndex >= participants {
		return nil, fmt.Errorf("%w: index %d with %d participants", ErrPayerIndexOutOfRange, payerIndex, participants)
	}

	base := amountCents / int64(participants)
	remainder := amountCents % int64(participants)

	shares := make([]int64, participants)
	for i := range shares {
		shares[i] = base
	}
	if remainder > 0 {
		shares[payerIndex] += remainder
	}

	return shares, nil
}
