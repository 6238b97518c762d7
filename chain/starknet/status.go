package starknet

import (
	"slices"
	"time"

	"github.com/NethermindEth/juno/core/felt"
)

// TxStatus is the status of a transaction as reported by an endpoint.
type TxStatus string

const (
	// TxStatusUnknown is reported when the endpoint does not know the transaction (yet).
	TxStatusUnknown TxStatus = "UNKNOWN"
	// TxStatusPending is reported once the transaction is received but not yet in a block.
	TxStatusPending TxStatus = "RECEIVED"
	// TxStatusAcceptedOnL2 is the first acceptance tier.
	TxStatusAcceptedOnL2 TxStatus = "ACCEPTED_ON_L2"
	// TxStatusAcceptedOnL1 is the second acceptance tier.
	TxStatusAcceptedOnL1 TxStatus = "ACCEPTED_ON_L1"
	// TxStatusReverted means the transaction was included but its execution failed.
	TxStatusReverted TxStatus = "REVERTED"
	// TxStatusRejected means the transaction was never included.
	TxStatusRejected TxStatus = "REJECTED"
)

// DefaultAcceptedStatuses is the accepted terminal set used when a caller does not provide one.
var DefaultAcceptedStatuses = []TxStatus{TxStatusAcceptedOnL2, TxStatusAcceptedOnL1}

// IsTerminal reports whether no further transition can happen from s.
// Acceptance on L2 is terminal for the purpose of confirmation: a later move to L1 never undoes it.
func (s TxStatus) IsTerminal() bool {
	switch s {
	case TxStatusAcceptedOnL2, TxStatusAcceptedOnL1, TxStatusReverted, TxStatusRejected:
		return true
	default:
		return false
	}
}

// IsFailure reports whether s is a terminal status that is not an acceptance.
func (s TxStatus) IsFailure() bool {
	return s == TxStatusReverted || s == TxStatusRejected
}

// TxStatusResult is the answer of a status-by-hash query.
type TxStatusResult struct {
	Status TxStatus
	// Reason is the revert reason, when the endpoint reports one.
	Reason string
}

// OperationState tracks a PendingOperation through its lifetime.
type OperationState string

const (
	OperationSubmitted            OperationState = "submitted"
	OperationAwaitingConfirmation OperationState = "awaiting_confirmation"
	OperationConfirmed            OperationState = "confirmed"
	OperationReverted             OperationState = "reverted"
	OperationDropped              OperationState = "dropped"
	// OperationUnconfirmed means the deadline passed before a terminal status was observed.
	// The remote side may still finalize the operation later.
	OperationUnconfirmed OperationState = "unconfirmed"
)

// PendingOperation is a write request that has been accepted by an endpoint.
type PendingOperation struct {
	TxHash         *felt.Felt
	Target         *felt.Felt
	Entrypoint     string
	Calldata       []*felt.Felt
	SubmittedAt    time.Time
	Endpoint       string
	State          OperationState
	FinalStatus    TxStatus
	ConfirmedAfter time.Duration
}

func statusIn(s TxStatus, set []TxStatus) bool {
	return slices.Contains(set, s)
}
