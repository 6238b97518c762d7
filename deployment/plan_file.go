package deployment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/datastore"
	"github.com/smartcontractkit/starknet-deployments-framework/internal/configfile"
)

// planFile is the file representation of a plan.
type planFile struct {
	Steps []stepFile `yaml:"steps" toml:"steps"`
}

type stepFile struct {
	Name        string    `yaml:"name" toml:"name"`
	ClassHash   string    `yaml:"class_hash" toml:"class_hash"`
	SierraPath  string    `yaml:"sierra_path" toml:"sierra_path"`
	CasmPath    string    `yaml:"casm_path" toml:"casm_path"`
	DependsOn   []string  `yaml:"depends_on" toml:"depends_on"`
	Constructor []string  `yaml:"constructor" toml:"constructor"`
	Initialize  *initFile `yaml:"initialize" toml:"initialize"`
}

type initFile struct {
	Entrypoint string   `yaml:"entrypoint" toml:"entrypoint"`
	Calldata   []string `yaml:"calldata" toml:"calldata"`
}

var refPattern = regexp.MustCompile(`^\$\{([A-Za-z0-9_.-]+)\.(address|class_hash)\}$`)

const maxShortStringLen = 31

// LoadPlanFile loads a plan from a YAML or TOML file. Artifact paths are relative to the plan
// file. Calldata items are one of:
//
//	0x1234 or 42          a felt literal
//	${token.address}      the recorded address of step "token"
//	${token.class_hash}   the recorded class hash of step "token"
//	u256:1000000          a 256 bit integer, expanded to its low and high limbs
//	str:MyToken           a Cairo short string of at most 31 ASCII characters
//
// References add the referenced step to the dependencies of the step.
func LoadPlanFile(path string) ([]StepSpec, error) {
	var f planFile
	if err := configfile.Decode(path, &f); err != nil {
		return nil, err
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("plan %s has no steps", path)
	}

	dir := filepath.Dir(path)
	steps := make([]StepSpec, 0, len(f.Steps))
	for i, sf := range f.Steps {
		step, err := sf.toStepSpec(dir)
		if err != nil {
			return nil, fmt.Errorf("plan %s: step %d (%s): %w", path, i, sf.Name, err)
		}
		steps = append(steps, step)
	}

	return steps, nil
}

func (sf stepFile) toStepSpec(dir string) (StepSpec, error) {
	classHash, err := starknet.ParseFelt(sf.ClassHash)
	if err != nil {
		return StepSpec{}, fmt.Errorf("class_hash: %w", err)
	}

	class := ClassSource{ClassHash: classHash}
	if sf.SierraPath != "" || sf.CasmPath != "" {
		if class.Sierra, err = readArtifact(dir, sf.SierraPath); err != nil {
			return StepSpec{}, fmt.Errorf("sierra_path: %w", err)
		}
		if class.Casm, err = readArtifact(dir, sf.CasmPath); err != nil {
			return StepSpec{}, fmt.Errorf("casm_path: %w", err)
		}
	}

	deps := slices.Clone(sf.DependsOn)
	ctor, refs, err := compileArgs(sf.Constructor)
	if err != nil {
		return StepSpec{}, fmt.Errorf("constructor: %w", err)
	}
	deps = append(deps, refs...)

	step := StepSpec{
		Name:        sf.Name,
		Class:       class,
		Constructor: ctor,
	}
	if sf.Initialize != nil {
		calldata, refs, err := compileArgs(sf.Initialize.Calldata)
		if err != nil {
			return StepSpec{}, fmt.Errorf("initialize: %w", err)
		}
		deps = append(deps, refs...)
		step.Initialize = &Initialize{Entrypoint: sf.Initialize.Entrypoint, Calldata: calldata}
	}

	slices.Sort(deps)
	step.DependsOn = slices.Compact(deps)

	return step, nil
}

func readArtifact(dir, path string) (json.RawMessage, error) {
	if path == "" {
		return nil, errors.New("both sierra_path and casm_path are required to declare a class")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}

	return b, nil
}

// argFunc produces the felts of one calldata item.
type argFunc func(record datastore.RecordStore) ([]*felt.Felt, error)

// compileArgs parses calldata items up front, so syntax errors surface when the plan is loaded,
// and returns the steps they reference.
func compileArgs(items []string) (ArgsFunc, []string, error) {
	fns := make([]argFunc, 0, len(items))
	var refs []string

	for i, item := range items {
		fn, ref, err := compileArg(strings.TrimSpace(item))
		if err != nil {
			return nil, nil, fmt.Errorf("item %d %q: %w", i, item, err)
		}
		if ref != "" {
			refs = append(refs, ref)
		}
		fns = append(fns, fn)
	}

	return func(record datastore.RecordStore) ([]*felt.Felt, error) {
		out := make([]*felt.Felt, 0, len(fns))
		for _, fn := range fns {
			fs, err := fn(record)
			if err != nil {
				return nil, err
			}
			out = append(out, fs...)
		}

		return out, nil
	}, refs, nil
}

func compileArg(item string) (argFunc, string, error) {
	if m := refPattern.FindStringSubmatch(item); m != nil {
		name, field := m[1], m[2]

		return func(record datastore.RecordStore) ([]*felt.Felt, error) {
			ref, err := record.Get(name)
			if err != nil {
				return nil, err
			}
			value := ref.Address
			if field == "class_hash" {
				value = ref.ClassHash
			}
			f, err := starknet.ParseFelt(value)
			if err != nil {
				return nil, fmt.Errorf("record %q %s: %w", name, field, err)
			}

			return []*felt.Felt{f}, nil
		}, name, nil
	}
	if strings.HasPrefix(item, "${") {
		return nil, "", errors.New("references must look like ${step.address} or ${step.class_hash}")
	}

	var fs []*felt.Felt
	switch {
	case strings.HasPrefix(item, "u256:"):
		v, ok := new(big.Int).SetString(strings.TrimPrefix(item, "u256:"), 0)
		if !ok {
			return nil, "", errors.New("invalid u256 value")
		}
		u, err := starknet.NewUint256(v)
		if err != nil {
			return nil, "", err
		}
		fs = u.Calldata()
	case strings.HasPrefix(item, "str:"):
		s := strings.TrimPrefix(item, "str:")
		f, err := shortString(s)
		if err != nil {
			return nil, "", err
		}
		fs = []*felt.Felt{f}
	default:
		f, err := starknet.ParseFelt(item)
		if err != nil {
			return nil, "", err
		}
		fs = []*felt.Felt{f}
	}

	return func(datastore.RecordStore) ([]*felt.Felt, error) { return fs, nil }, "", nil
}

// shortString encodes s as a Cairo short string: its ASCII bytes read as a big endian integer.
func shortString(s string) (*felt.Felt, error) {
	if len(s) > maxShortStringLen {
		return nil, fmt.Errorf("short string %q is longer than %d characters", s, maxShortStringLen)
	}
	for _, r := range s {
		if r > 0x7f {
			return nil, fmt.Errorf("short string %q is not ASCII", s)
		}
	}

	return new(felt.Felt).SetBytes([]byte(s)), nil
}
