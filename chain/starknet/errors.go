package starknet

import (
	"errors"
	"fmt"
	"time"

	"github.com/NethermindEth/juno/core/felt"
)

var (
	// ErrMalformedResponse is returned by endpoints when a response cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrReverted is the sentinel behind RevertedError.
	ErrReverted = errors.New("transaction reverted")
	// ErrUnconfirmed is the sentinel behind UnconfirmedError.
	ErrUnconfirmed = errors.New("transaction unconfirmed")
	// ErrNoSigner is returned when a write is attempted on a client without a signer.
	ErrNoSigner = errors.New("no signer configured")
)

// RemoteError is a transport or endpoint failure, annotated with the endpoint that produced it.
type RemoteError struct {
	Endpoint string
	Index    int
	Op       string
	Err      error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("op %q: endpoint %q (index %d): %v", e.Op, e.Endpoint, e.Index, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// RevertedError is returned when the remote side executed an operation and rejected it.
// It is terminal and never retried.
type RevertedError struct {
	TxHash *felt.Felt
	Status TxStatus
	Reason string
}

func (e *RevertedError) Error() string {
	msg := fmt.Sprintf("tx %s %s", e.TxHash, e.Status)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	return msg
}

func (e *RevertedError) Unwrap() error { return ErrReverted }

// UnconfirmedError is returned when no terminal status was observed before the deadline.
// It is neither a success nor a failure: the operation may still finalize later.
type UnconfirmedError struct {
	TxHash     *felt.Felt
	LastStatus TxStatus
	Waited     time.Duration
	// Err is the last error seen while polling, usually a RemoteError when every endpoint was
	// unreachable, or the context error.
	Err error
}

func (e *UnconfirmedError) Error() string {
	return fmt.Sprintf("tx %s not confirmed after %s (last status %q): %v",
		e.TxHash, e.Waited.Round(time.Millisecond), e.LastStatus, e.Err)
}

func (e *UnconfirmedError) Unwrap() []error { return []error{ErrUnconfirmed, e.Err} }

// permanentError marks an endpoint error as deterministic: another endpoint would answer the same.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// NewPermanentError marks err so the MultiClient does not fall over to the next endpoint.
// Endpoints use it for contract errors and other deterministic rejections.
func NewPermanentError(err error) error {
	if err == nil {
		return nil
	}

	return permanentError{err: err}
}

// IsTransient reports whether err is worth retrying on another endpoint.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var perm permanentError
	if errors.As(err, &perm) {
		return false
	}

	return !errors.Is(err, ErrReverted)
}
