package deployment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/contracts"
	"github.com/segmentio/ksuid"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/operations"
)

// UDCAddress is the address of the Universal Deployer Contract, identical on every Starknet network.
var UDCAddress = starknet.MustParseFelt("0x041a78e741e5af2fec34b695679bc6891742439f7afb8484ecd7766661ad02bf")

const udcDeployEntrypoint = "deployContract"

// Executor is the subset of starknet.MultiClient the orchestrator depends on.
type Executor interface {
	ClassDeclared(ctx context.Context, classHash *felt.Felt) (bool, error)
	DeclareAndConfirm(ctx context.Context, req starknet.DeclareRequest) (*starknet.PendingOperation, error)
	WriteAndConfirm(ctx context.Context, calls ...starknet.Call) (*starknet.PendingOperation, error)
}

var _ Executor = (*starknet.MultiClient)(nil)

// Deps are the dependencies of the step operations.
type Deps struct {
	Client Executor
	Class  ClassSource
	// NewSalt returns the uniqueness value of a deployment.
	NewSalt func() *felt.Felt
}

// KSUIDSalt derives a salt from a fresh KSUID: a timestamp followed by 128 random bits, so salts
// of one run never collide and sort by creation time.
func KSUIDSalt() *felt.Felt {
	return new(felt.Felt).SetBytes(ksuid.New().Bytes())
}

type DeclareInput struct {
	Step      string `json:"step"`
	ClassHash string `json:"classHash"`
}

type DeclareOutput struct {
	ClassHash string `json:"classHash"`
	// TxHash is empty when the class was already declared.
	TxHash string `json:"txHash,omitempty"`
}

// OpDeclare declares the class of a step unless the network already knows it.
var OpDeclare = operations.NewOperation(
	"starknet-declare",
	semver.MustParse("1.0.0"),
	"Declares a class if it is not declared yet",
	func(b operations.Bundle, deps Deps, input DeclareInput) (DeclareOutput, error) {
		ctx := b.GetContext()
		classHash, err := starknet.ParseFelt(input.ClassHash)
		if err != nil {
			return DeclareOutput{}, operations.NewUnrecoverableError(err)
		}

		declared, err := deps.Client.ClassDeclared(ctx, classHash)
		if err != nil {
			return DeclareOutput{}, err
		}
		if declared {
			b.Logger.Infow("Class already declared", "step", input.Step, "classHash", input.ClassHash)
			return DeclareOutput{ClassHash: input.ClassHash}, nil
		}
		if len(deps.Class.Sierra) == 0 || len(deps.Class.Casm) == 0 {
			return DeclareOutput{}, operations.NewUnrecoverableError(
				fmt.Errorf("class %s is not declared and no sierra/casm artifacts were provided", input.ClassHash))
		}

		op, err := deps.Client.DeclareAndConfirm(ctx, starknet.DeclareRequest{
			ClassHash: classHash,
			Sierra:    deps.Class.Sierra,
			Casm:      deps.Class.Casm,
		})
		if err != nil {
			return DeclareOutput{}, unrecoverableIfFinal(err)
		}

		// The declared artifacts must hash to the class the plan expects.
		declared, err = deps.Client.ClassDeclared(ctx, classHash)
		if err != nil {
			return DeclareOutput{}, err
		}
		if !declared {
			return DeclareOutput{}, operations.NewUnrecoverableError(fmt.Errorf(
				"declare %s confirmed but class %s is still unknown, artifacts do not match the class hash",
				op.TxHash, input.ClassHash))
		}

		return DeclareOutput{ClassHash: input.ClassHash, TxHash: op.TxHash.String()}, nil
	},
)

type DeployInput struct {
	Step        string   `json:"step"`
	ClassHash   string   `json:"classHash"`
	Constructor []string `json:"constructor"`
}

type DeployOutput struct {
	Address string `json:"address"`
	Salt    string `json:"salt"`
	TxHash  string `json:"txHash"`
}

// OpDeploy deploys an instance of a class through the Universal Deployer Contract.
var OpDeploy = operations.NewOperation(
	"starknet-deploy",
	semver.MustParse("1.0.0"),
	"Deploys a contract instance through the Universal Deployer Contract",
	func(b operations.Bundle, deps Deps, input DeployInput) (DeployOutput, error) {
		classHash, err := starknet.ParseFelt(input.ClassHash)
		if err != nil {
			return DeployOutput{}, operations.NewUnrecoverableError(err)
		}
		ctorArgs, err := starknet.StringsToFelts(input.Constructor)
		if err != nil {
			return DeployOutput{}, operations.NewUnrecoverableError(fmt.Errorf("constructor: %w", err))
		}

		salt := deps.NewSalt()
		calldata := make([]*felt.Felt, 0, 4+len(ctorArgs))
		calldata = append(calldata,
			classHash,
			salt,
			new(felt.Felt), // not unique: the address does not depend on the deployer account
			starknet.Uint64ToFelt(uint64(len(ctorArgs))),
		)
		calldata = append(calldata, ctorArgs...)

		op, err := deps.Client.WriteAndConfirm(b.GetContext(), starknet.Call{
			ContractAddress: UDCAddress,
			Entrypoint:      udcDeployEntrypoint,
			Calldata:        calldata,
		})
		if err != nil {
			return DeployOutput{}, unrecoverableIfFinal(err)
		}

		address := contracts.PrecomputeAddress(new(felt.Felt), salt, classHash, ctorArgs)

		return DeployOutput{
			Address: address.String(),
			Salt:    salt.String(),
			TxHash:  op.TxHash.String(),
		}, nil
	},
)

type InitializeInput struct {
	Step       string   `json:"step"`
	Address    string   `json:"address"`
	Entrypoint string   `json:"entrypoint"`
	Calldata   []string `json:"calldata"`
}

type InitializeOutput struct {
	TxHash string `json:"txHash"`
}

// OpInitialize calls the initialization entrypoint of a freshly deployed instance.
var OpInitialize = operations.NewOperation(
	"starknet-initialize",
	semver.MustParse("1.0.0"),
	"Initializes a deployed contract instance",
	func(b operations.Bundle, deps Deps, input InitializeInput) (InitializeOutput, error) {
		address, err := starknet.ParseFelt(input.Address)
		if err != nil {
			return InitializeOutput{}, operations.NewUnrecoverableError(err)
		}
		calldata, err := starknet.StringsToFelts(input.Calldata)
		if err != nil {
			return InitializeOutput{}, operations.NewUnrecoverableError(fmt.Errorf("calldata: %w", err))
		}

		op, err := deps.Client.WriteAndConfirm(b.GetContext(), starknet.Call{
			ContractAddress: address,
			Entrypoint:      input.Entrypoint,
			Calldata:        calldata,
		})
		if err != nil {
			return InitializeOutput{}, unrecoverableIfFinal(err)
		}

		return InitializeOutput{TxHash: op.TxHash.String()}, nil
	},
)

// unrecoverableIfFinal stops operation retries for outcomes a retry cannot fix or would make
// worse: a revert is deterministic, and an unconfirmed write may still land.
func unrecoverableIfFinal(err error) error {
	if errors.Is(err, starknet.ErrReverted) || errors.Is(err, starknet.ErrUnconfirmed) {
		return operations.NewUnrecoverableError(err)
	}

	return err
}
