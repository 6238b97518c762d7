package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/account"
	"github.com/NethermindEth/starknet.go/contracts"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/NethermindEth/starknet.go/utils"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
)

// Starknet JSON-RPC error codes the endpoint reacts to.
const (
	codeContractNotFound          = 20
	codeClassHashNotFound         = 28
	codeTxnHashNotFound           = 29
	codeContractError             = 40
	codeTransactionExecutionError = 41
)

const (
	defaultCairoVersion  = 2
	defaultFeeMultiplier = 1.5
	latestBlock          = "latest"
)

// RPCEndpointConfig configures a single Starknet JSON-RPC endpoint.
type RPCEndpointConfig struct {
	// Name identifies the endpoint in logs and errors. Defaults to the URL host.
	Name string
	// Required: the JSON-RPC URL of the node
	URL string
	// CairoVersion of the signing account contract. Defaults to 2.
	CairoVersion int
	// FeeMultiplier applied to the estimated max fee of writes. Defaults to 1.5.
	FeeMultiplier float64
}

func (c RPCEndpointConfig) validate() error {
	if c.URL == "" {
		return errors.New("rpc url is required")
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("invalid rpc url: %w", err)
	}

	return nil
}

var _ starknet.Endpoint = (*RPCEndpoint)(nil)

// RPCEndpoint implements starknet.Endpoint on top of a starknet.go JSON-RPC provider.
type RPCEndpoint struct {
	config   RPCEndpointConfig
	provider *rpc.Provider
}

// NewRPCEndpoint creates an endpoint for the given configuration. No request is made until the
// endpoint is used.
func NewRPCEndpoint(config RPCEndpointConfig) (*RPCEndpoint, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if config.Name == "" {
		u, _ := url.Parse(config.URL)
		config.Name = u.Host
	}
	if config.CairoVersion == 0 {
		config.CairoVersion = defaultCairoVersion
	}
	if config.FeeMultiplier <= 0 {
		config.FeeMultiplier = defaultFeeMultiplier
	}

	p, err := rpc.NewProvider(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider for %s: %w", config.Name, err)
	}

	return &RPCEndpoint{config: config, provider: p}, nil
}

// Name returns the configured endpoint name.
func (e *RPCEndpoint) Name() string { return e.config.Name }

// Call executes a read-only call against the latest block.
func (e *RPCEndpoint) Call(ctx context.Context, call starknet.Call) ([]*felt.Felt, error) {
	res, err := e.provider.Call(ctx, rpc.FunctionCall{
		ContractAddress:    call.ContractAddress,
		EntryPointSelector: utils.GetSelectorFromNameFelt(call.Entrypoint),
		Calldata:           nonNil(call.Calldata),
	}, rpc.WithBlockTag(latestBlock))
	if err != nil {
		return nil, classify(err)
	}

	return res, nil
}

// Invoke signs calls with signer and submits them as a single invoke transaction.
func (e *RPCEndpoint) Invoke(ctx context.Context, signer starknet.Signer, calls []starknet.Call) (*felt.Felt, error) {
	acct, err := e.account(signer)
	if err != nil {
		return nil, err
	}

	fnCalls := make([]rpc.InvokeFunctionCall, 0, len(calls))
	for _, c := range calls {
		fnCalls = append(fnCalls, rpc.InvokeFunctionCall{
			ContractAddress: c.ContractAddress,
			FunctionName:    c.Entrypoint,
			CallData:        nonNil(c.Calldata),
		})
	}

	resp, err := acct.BuildAndSendInvokeTxn(ctx, fnCalls, e.config.FeeMultiplier)
	if err != nil {
		return nil, classify(err)
	}

	return resp.TransactionHash, nil
}

// Declare signs and submits a class declaration.
func (e *RPCEndpoint) Declare(ctx context.Context, signer starknet.Signer, req starknet.DeclareRequest) (*felt.Felt, error) {
	var class contracts.ContractClass
	if err := json.Unmarshal(req.Sierra, &class); err != nil {
		return nil, starknet.NewPermanentError(fmt.Errorf("failed to decode sierra class: %w", err))
	}
	var casm contracts.CasmClass
	if err := json.Unmarshal(req.Casm, &casm); err != nil {
		return nil, starknet.NewPermanentError(fmt.Errorf("failed to decode casm class: %w", err))
	}

	acct, err := e.account(signer)
	if err != nil {
		return nil, err
	}

	resp, err := acct.BuildAndSendDeclareTxn(ctx, &casm, &class, e.config.FeeMultiplier)
	if err != nil {
		return nil, classify(err)
	}

	return resp.TransactionHash, nil
}

// TransactionStatus maps the node's finality and execution status onto starknet.TxStatus.
// A transaction the node does not know yet is reported as TxStatusUnknown, not as an error.
func (e *RPCEndpoint) TransactionStatus(ctx context.Context, txHash *felt.Felt) (starknet.TxStatusResult, error) {
	resp, err := e.provider.GetTransactionStatus(ctx, txHash)
	if err != nil {
		if hasCode(err, codeTxnHashNotFound) {
			return starknet.TxStatusResult{Status: starknet.TxStatusUnknown}, nil
		}

		return starknet.TxStatusResult{}, classify(err)
	}

	if string(resp.ExecutionStatus) == string(starknet.TxStatusReverted) {
		return starknet.TxStatusResult{Status: starknet.TxStatusReverted}, nil
	}

	switch status := starknet.TxStatus(resp.FinalityStatus); status {
	case starknet.TxStatusPending, starknet.TxStatusRejected,
		starknet.TxStatusAcceptedOnL2, starknet.TxStatusAcceptedOnL1:
		return starknet.TxStatusResult{Status: status}, nil
	default:
		return starknet.TxStatusResult{Status: starknet.TxStatusUnknown}, nil
	}
}

// ClassDeclared reports whether classHash can be fetched from the latest block.
func (e *RPCEndpoint) ClassDeclared(ctx context.Context, classHash *felt.Felt) (bool, error) {
	_, err := e.provider.Class(ctx, rpc.WithBlockTag(latestBlock), classHash)
	if err == nil {
		return true, nil
	}
	if hasCode(err, codeClassHashNotFound) {
		return false, nil
	}

	return false, classify(err)
}

// account builds a starknet.go account for signer, backed by an in-memory keystore.
func (e *RPCEndpoint) account(signer starknet.Signer) (*account.Account, error) {
	if signer.Address == nil || signer.PrivateKey == nil || signer.PublicKey == "" {
		return nil, starknet.NewPermanentError(errors.New("signer requires an address, a public key and a private key"))
	}

	ks := account.NewMemKeystore()
	ks.Put(signer.PublicKey, signer.PrivateKey)

	acct, err := account.NewAccount(e.provider, signer.Address, signer.PublicKey, ks, e.config.CairoVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", signer.Address, err)
	}

	return acct, nil
}

// classify marks deterministic node errors as permanent and decoding failures as malformed
// responses, so the MultiClient knows whether another endpoint is worth trying.
func classify(err error) error {
	var rpcErr *rpc.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case codeContractNotFound, codeClassHashNotFound, codeContractError, codeTransactionExecutionError:
			return starknet.NewPermanentError(err)
		}

		return err
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %w", starknet.ErrMalformedResponse, err)
	}

	return err
}

func hasCode(err error, code int) bool {
	var rpcErr *rpc.RPCError

	return errors.As(err, &rpcErr) && rpcErr.Code == code
}

func nonNil(fs []*felt.Felt) []*felt.Felt {
	if fs == nil {
		return []*felt.Felt{}
	}

	return fs
}
