package deployment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/smartcontractkit/starknet-deployments-framework/datastore"
)

var ErrBlockedByDependency = errors.New("blocked by a failed or missing dependency")

// ArgsFunc computes call arguments from the record accumulated so far, so a step can use the
// addresses of the steps it depends on.
type ArgsFunc func(record datastore.RecordStore) ([]*felt.Felt, error)

// StaticArgs returns an ArgsFunc that always yields args.
func StaticArgs(args ...*felt.Felt) ArgsFunc {
	return func(datastore.RecordStore) ([]*felt.Felt, error) {
		return args, nil
	}
}

// ClassSource is the class a step deploys. ClassHash is the expected class identifier; Sierra and
// Casm are only needed when the class still has to be declared.
type ClassSource struct {
	ClassHash *felt.Felt
	Sierra    json.RawMessage
	Casm      json.RawMessage
}

// Initialize describes a call made on the new instance right after it is deployed.
type Initialize struct {
	Entrypoint string
	Calldata   ArgsFunc
}

// StepSpec describes one contract of a plan.
type StepSpec struct {
	// Name is the key of the contract in the deployment record.
	Name  string
	Class ClassSource
	// DependsOn names the steps whose record entries Constructor or Initialize read.
	DependsOn   []string
	Constructor ArgsFunc
	// Initialize is optional.
	Initialize *Initialize
}

// StepError is the failure of one step.
type StepError struct {
	Step string
	// Op is the part of the step that failed: "resolve", "declare", "deploy", "initialize" or
	// "record".
	Op  string
	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %s: %v", e.Step, e.Op, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// validatePlan checks step names are set and unique and that every dependency is either an
// earlier step or already recorded.
func validatePlan(steps []StepSpec, record datastore.RecordStore) error {
	seen := make(map[string]bool, len(steps))
	for i, s := range steps {
		if s.Name == "" {
			return fmt.Errorf("step %d: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("step %q is defined more than once", s.Name)
		}
		if s.Class.ClassHash == nil || s.Class.ClassHash.IsZero() {
			return fmt.Errorf("step %q: class hash is required", s.Name)
		}
		if s.Initialize != nil && s.Initialize.Entrypoint == "" {
			return fmt.Errorf("step %q: initialize entrypoint is required", s.Name)
		}
		for _, dep := range s.DependsOn {
			if seen[dep] {
				continue
			}
			if _, err := record.Get(dep); err != nil {
				return fmt.Errorf("step %q depends on %q which is neither an earlier step nor recorded", s.Name, dep)
			}
		}
		seen[s.Name] = true
	}

	return nil
}
