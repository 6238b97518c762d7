package datastore

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
)

var (
	ErrContractRefNotFound = errors.New("no contract ref can be found for the provided name")
	ErrContractRefExists   = errors.New("a different contract ref with the supplied name already exists")
	ErrInvalidContractRef  = errors.New("invalid contract ref")
)

// ContractRef is the recorded outcome of one deployment step: the class the contract was deployed
// from and the address of the instance. Felts are stored as hex strings.
type ContractRef struct {
	// ClassHash is the class identifier the instance was deployed from.
	ClassHash string `json:"classHash"`
	// Address is the instance address.
	Address string `json:"address"`
	// DeployTxHash is the hash of the deploy transaction, when known.
	DeployTxHash string `json:"deployTxHash,omitempty"`
}

// NewContractRef builds a ContractRef from felts.
func NewContractRef(classHash, address, deployTxHash *felt.Felt) ContractRef {
	ref := ContractRef{
		ClassHash: classHash.String(),
		Address:   address.String(),
	}
	if deployTxHash != nil {
		ref.DeployTxHash = deployTxHash.String()
	}

	return ref
}

// Validate checks that the class hash and address are valid non-zero felts.
func (r ContractRef) Validate() error {
	for _, field := range []struct{ name, value string }{
		{"class hash", r.ClassHash},
		{"address", r.Address},
	} {
		f, err := starknet.ParseFelt(field.value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidContractRef, field.name, err)
		}
		if f.IsZero() {
			return fmt.Errorf("%w: %s is zero", ErrInvalidContractRef, field.name)
		}
	}

	return nil
}

// ClassHashFelt returns the class hash as a felt.
func (r ContractRef) ClassHashFelt() (*felt.Felt, error) {
	return starknet.ParseFelt(r.ClassHash)
}

// AddressFelt returns the address as a felt.
func (r ContractRef) AddressFelt() (*felt.Felt, error) {
	return starknet.ParseFelt(r.Address)
}

// Equals reports whether both refs point at the same class and address.
func (r ContractRef) Equals(other ContractRef) bool {
	return sameFelt(r.ClassHash, other.ClassHash) && sameFelt(r.Address, other.Address)
}

func sameFelt(a, b string) bool {
	fa, errA := starknet.ParseFelt(a)
	fb, errB := starknet.ParseFelt(b)
	if errA != nil || errB != nil {
		return a == b
	}

	return fa.Equal(fb)
}
