package starknet

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/NethermindEth/juno/core/felt"
)

// Call is a single contract call: an entrypoint on a contract with positional calldata.
type Call struct {
	ContractAddress *felt.Felt
	Entrypoint      string
	Calldata        []*felt.Felt
}

// DeclareRequest carries a compiled class to declare. The payload is large (hundreds of KB),
// which is why declarations run with the endpoint's large payload timeout.
type DeclareRequest struct {
	// ClassHash is the expected class hash, used to detect classes that are already declared.
	ClassHash *felt.Felt
	// Sierra is the JSON encoded Sierra contract class.
	Sierra json.RawMessage
	// Casm is the JSON encoded compiled CASM class.
	Casm json.RawMessage
}

// Signer identifies the account that signs write operations.
//
// WARNING: This data type contains sensitive fields and should not be logged.
type Signer struct {
	Address    *felt.Felt
	PublicKey  string
	PrivateKey *big.Int
}

// Endpoint is a single remote execution endpoint. Implementations must honour ctx deadlines,
// the MultiClient relies on them to move on to the next endpoint.
type Endpoint interface {
	// Name identifies the endpoint in logs and errors.
	Name() string
	// Call executes a read-only call and returns the raw result fields.
	Call(ctx context.Context, call Call) ([]*felt.Felt, error)
	// Invoke signs and submits calls as a single transaction and returns its hash.
	Invoke(ctx context.Context, signer Signer, calls []Call) (*felt.Felt, error)
	// Declare signs and submits a class declaration and returns its transaction hash.
	Declare(ctx context.Context, signer Signer, req DeclareRequest) (*felt.Felt, error)
	// TransactionStatus returns the status of a previously submitted transaction.
	TransactionStatus(ctx context.Context, txHash *felt.Felt) (TxStatusResult, error)
	// ClassDeclared reports whether classHash is retrievable from the network.
	ClassDeclared(ctx context.Context, classHash *felt.Felt) (bool, error)
}
