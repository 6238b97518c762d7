package deployment

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/datastore"
	"github.com/smartcontractkit/starknet-deployments-framework/operations"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

// StepStatus is the outcome of one step of a run.
type StepStatus string

const (
	StepDeployed StepStatus = "deployed"
	// StepAlreadyDone means the record already held the step; nothing was submitted.
	StepAlreadyDone StepStatus = "already_done"
	StepFailed      StepStatus = "failed"
	StepBlocked     StepStatus = "blocked"
)

// StepResult describes what happened to one step.
type StepResult struct {
	Step   string
	Status StepStatus
	Ref    datastore.ContractRef
	// Err is set for failed and blocked steps.
	Err *StepError
}

// Result is the outcome of RunPlan. The record holds every completed step, including those of
// earlier runs, even when other steps failed.
type Result struct {
	Record *datastore.MemoryRecordStore
	Steps  []StepResult
	// RecordErr is the error of the last attempt to save the record. Saving never changes the
	// status of a deployed step.
	RecordErr error
}

// Failures returns the failed and blocked steps in plan order.
func (r Result) Failures() []*StepError {
	var out []*StepError
	for _, s := range r.Steps {
		if s.Err != nil {
			out = append(out, s.Err)
		}
	}

	return out
}

// Err joins the failures and the record save error, or returns nil when every step completed and
// the record was saved.
func (r Result) Err() error {
	errs := make([]error, 0, len(r.Steps)+1)
	for _, f := range r.Failures() {
		errs = append(errs, f)
	}
	if r.RecordErr != nil {
		errs = append(errs, r.RecordErr)
	}

	return errors.Join(errs...)
}

// Orchestrator runs deployment plans step by step: declare if needed, deploy, initialize if
// needed, then record. Steps run one at a time and the record has a single writer.
type Orchestrator struct {
	client     Executor
	lggr       logger.Logger
	reporter   operations.Reporter
	newSalt    func() *felt.Felt
	recordPath string
	execOpts   []operations.ExecuteOption
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReporter sets the reporter of the step operations. A FileReporter lets a later run reuse the
// deploy of a step whose initialization failed instead of deploying it again.
func WithReporter(r operations.Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = r
	}
}

// WithRecordPath saves the record to path after every completed step.
func WithRecordPath(path string) Option {
	return func(o *Orchestrator) {
		o.recordPath = path
	}
}

// WithSaltSource overrides how deploy salts are generated.
func WithSaltSource(fn func() *felt.Felt) Option {
	return func(o *Orchestrator) {
		o.newSalt = fn
	}
}

// WithOperationRetry retries failed step operations with policy. Reverted and unconfirmed
// transactions are never retried.
func WithOperationRetry(policy operations.RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.execOpts = append(o.execOpts, operations.WithRetryPolicy(policy))
	}
}

// NewOrchestrator creates an Orchestrator submitting through client.
func NewOrchestrator(lggr logger.Logger, client Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:   client,
		lggr:     lggr.Named("Orchestrator"),
		reporter: operations.NewMemoryReporter(),
		newSalt:  KSUIDSalt,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// RunPlan runs steps in order against record. Steps already in the record are skipped and feed
// their recorded address to dependants. A failing step does not stop independent later steps, but
// steps depending on it are reported as blocked and not attempted.
//
// The returned error is only set when the plan itself is invalid; step failures are in the Result.
func (o *Orchestrator) RunPlan(
	ctx context.Context, record *datastore.MemoryRecordStore, steps []StepSpec,
) (Result, error) {
	if err := validatePlan(steps, record); err != nil {
		return Result{Record: record}, fmt.Errorf("invalid plan: %w", err)
	}

	bundle := operations.NewBundle(func() context.Context { return ctx }, o.lggr, o.reporter)
	res := Result{Record: record, Steps: make([]StepResult, 0, len(steps))}
	unavailable := make(map[string]bool)

	for _, step := range steps {
		lggr := o.lggr.With("step", step.Name)

		if ref, err := record.Get(step.Name); err == nil {
			lggr.Infow("Step already recorded, skipping", "address", ref.Address)
			res.Steps = append(res.Steps, StepResult{Step: step.Name, Status: StepAlreadyDone, Ref: ref})

			continue
		}

		if blocked := slices.IndexFunc(step.DependsOn, func(d string) bool { return unavailable[d] }); blocked >= 0 {
			serr := &StepError{Step: step.Name, Op: "resolve",
				Err: fmt.Errorf("%w: %q", ErrBlockedByDependency, step.DependsOn[blocked])}
			lggr.Warnw("Step blocked", "dependency", step.DependsOn[blocked])
			res.Steps = append(res.Steps, StepResult{Step: step.Name, Status: StepBlocked, Err: serr})
			unavailable[step.Name] = true

			continue
		}

		if err := ctx.Err(); err != nil {
			serr := &StepError{Step: step.Name, Op: "resolve", Err: err}
			res.Steps = append(res.Steps, StepResult{Step: step.Name, Status: StepFailed, Err: serr})
			unavailable[step.Name] = true

			continue
		}

		ref, serr := o.runStep(bundle, record, step)
		if serr != nil {
			status := StepFailed
			if errors.Is(serr, ErrBlockedByDependency) {
				status = StepBlocked
			}
			lggr.Errorw("Step failed", "op", serr.Op, "err", serr.Err)
			res.Steps = append(res.Steps, StepResult{Step: step.Name, Status: status, Err: serr})
			unavailable[step.Name] = true

			continue
		}

		lggr.Infow("Step deployed", "address", ref.Address, "classHash", ref.ClassHash)
		res.Steps = append(res.Steps, StepResult{Step: step.Name, Status: StepDeployed, Ref: ref})

		if o.recordPath != "" {
			// Each save writes the whole record, so a later success repairs an earlier failure.
			res.RecordErr = datastore.SaveRecordFile(o.recordPath, record)
			if res.RecordErr != nil {
				lggr.Errorw("Step deployed but record not saved", "path", o.recordPath, "err", res.RecordErr)
			}
		}
	}

	return res, nil
}

func (o *Orchestrator) runStep(
	b operations.Bundle, record *datastore.MemoryRecordStore, step StepSpec,
) (datastore.ContractRef, *StepError) {
	fail := func(op string, err error) (datastore.ContractRef, *StepError) {
		return datastore.ContractRef{}, &StepError{Step: step.Name, Op: op, Err: err}
	}

	ctorArgs, err := resolveArgs(step.Constructor, record)
	if err != nil {
		return fail("resolve", err)
	}
	var initArgs []string
	if step.Initialize != nil {
		if initArgs, err = resolveArgs(step.Initialize.Calldata, record); err != nil {
			return fail("resolve", err)
		}
	}

	deps := Deps{Client: o.client, Class: step.Class, NewSalt: o.newSalt}
	classHash := step.Class.ClassHash.String()

	if _, err = operations.ExecuteOperation(b, OpDeclare, deps,
		DeclareInput{Step: step.Name, ClassHash: classHash}, o.execOpts...); err != nil {
		return fail("declare", err)
	}

	deployed, err := operations.ExecuteOperation(b, OpDeploy, deps,
		DeployInput{Step: step.Name, ClassHash: classHash, Constructor: ctorArgs}, o.execOpts...)
	if err != nil {
		return fail("deploy", err)
	}

	if step.Initialize != nil {
		// A failure here leaves a deployed but unrecorded instance. With a persistent reporter the
		// next run reuses it instead of deploying again.
		if _, err = operations.ExecuteOperation(b, OpInitialize, deps, InitializeInput{
			Step:       step.Name,
			Address:    deployed.Output.Address,
			Entrypoint: step.Initialize.Entrypoint,
			Calldata:   initArgs,
		}, o.execOpts...); err != nil {
			return fail("initialize", fmt.Errorf("instance %s deployed but not initialized: %w",
				deployed.Output.Address, err))
		}
	}

	ref := datastore.ContractRef{
		ClassHash:    classHash,
		Address:      deployed.Output.Address,
		DeployTxHash: deployed.Output.TxHash,
	}
	if err = record.Add(step.Name, ref); err != nil {
		return fail("record", err)
	}

	return ref, nil
}

// resolveArgs evaluates fn against the record. A reference to a missing entry means a dependency
// is unavailable.
func resolveArgs(fn ArgsFunc, record datastore.RecordStore) ([]string, error) {
	if fn == nil {
		return []string{}, nil
	}

	args, err := fn(record)
	if err != nil {
		if errors.Is(err, datastore.ErrContractRefNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrBlockedByDependency, err)
		}

		return nil, err
	}
	for i, a := range args {
		if a == nil {
			return nil, fmt.Errorf("argument %d is nil", i)
		}
	}

	return starknet.FeltsToStrings(args), nil
}
