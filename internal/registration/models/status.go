package models

import dErrors "retreat/pkg/domain-errors"

// Status is the lifecycle of a registration:
//
//	pending_payment -> confirmed -> refunded
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusConfirmed      Status = "confirmed"
	StatusRefunded       Status = "refunded"
)

var statusTransitions = map[Status][]Status{
	StatusPendingPayment: {StatusConfirmed},
	StatusConfirmed:      {StatusRefunded},
}

// ParseStatus accepts the wire form of a status. Empty input is an error;
// callers that treat "" as "any" check before parsing.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPendingPayment, StatusConfirmed, StatusRefunded:
		return st, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status: "+s)
	}
}

func (s Status) String() string { return string(s) }

// CanTransitionTo reports whether moving from s to next is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
