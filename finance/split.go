package finance

import "strings"

type SplitMode string

const (
	SplitEqual  SplitMode = "equal"
	SplitCustom SplitMode = "custom"
)

// Share is one participant's part of a split expense.
type Share struct {
	ParticipantID string `json:"participant_id"`
	Amount        Money  `json:"share_amount"`
}

// SplitPlan partitions Total across participants in input order.
type SplitPlan struct {
	Total  Money     `json:"total_amount"`
	Mode   SplitMode `json:"mode"`
	Shares []Share   `json:"participants"`
}

func checkParticipants(total Money, ids []string) error {
	if len(ids) == 0 {
		return invalid("participants", "need at least one")
	}
	if !total.IsPositive() {
		return invalid("totalAmount", "must be positive")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return invalid("participantId", "must not be empty")
		}
		if _, ok := seen[id]; ok {
			return invalid("participantId", "duplicate participant %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// EqualSplit divides total across participants so that shares differ by at
// most one minor unit and sum exactly to total. The first participants
// receive the remainder units.
func EqualSplit(total Money, participantIDs []string) (SplitPlan, error) {
	if err := checkParticipants(total, participantIDs); err != nil {
		return SplitPlan{}, err
	}
	parts, err := total.Allocate(len(participantIDs))
	if err != nil {
		return SplitPlan{}, err
	}
	shares := make([]Share, len(participantIDs))
	for i, id := range participantIDs {
		shares[i] = Share{ParticipantID: id, Amount: parts[i]}
	}
	return SplitPlan{Total: total, Mode: SplitEqual, Shares: shares}, nil
}

// CustomSplit accepts caller-supplied shares and rejects them with a
// SplitMismatchError unless they sum exactly to total.
func CustomSplit(total Money, shares []Share) (SplitPlan, error) {
	ids := make([]string, len(shares))
	for i, s := range shares {
		ids[i] = s.ParticipantID
	}
	if err := checkParticipants(total, ids); err != nil {
		return SplitPlan{}, err
	}

	sum := Zero(total.Currency())
	for _, s := range shares {
		if s.Amount.IsNegative() {
			return SplitPlan{}, invalid("shareAmount", "share of %q must not be negative", s.ParticipantID)
		}
		var err error
		if sum, err = sum.Add(s.Amount); err != nil {
			return SplitPlan{}, err
		}
	}
	delta, _ := total.Subtract(sum)
	if !delta.IsZero() {
		return SplitPlan{}, &SplitMismatchError{Delta: delta}
	}

	out := make([]Share, len(shares))
	copy(out, shares)
	return SplitPlan{Total: total, Mode: SplitCustom, Shares: out}, nil
}
