package upgrade

import (
	"context"

	"github.com/NethermindEth/juno/core/felt"
	"golang.org/x/sync/errgroup"
)

// defaultBatchConcurrency bounds the number of contracts processed at once by batch operations.
const defaultBatchConcurrency = 8

// Status is the upgrade status of one contract in a batch.
type Status struct {
	Contract *felt.Felt
	Info     Info
	State    State
	Err      error
}

// ScheduleRequest asks for contract to be upgraded to ClassHash.
type ScheduleRequest struct {
	Contract  *felt.Felt
	ClassHash *felt.Felt
}

// ScheduleResult is the outcome of one ScheduleRequest in a batch.
type ScheduleResult struct {
	Request ScheduleRequest
	Result  Result
	Err     error
}

// StatusBatch reads the status of independent contracts concurrently. Failures are reported per
// contract; results keep the order of contracts.
func (c *Coordinator) StatusBatch(ctx context.Context, contracts []*felt.Felt) []Status {
	out := make([]Status, len(contracts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultBatchConcurrency)
	for i, contract := range contracts {
		g.Go(func() error {
			state, info, err := c.State(gctx, contract)
			out[i] = Status{Contract: contract, Info: info, State: state, Err: err}

			return nil
		})
	}
	_ = g.Wait()

	return out
}

// ScheduleBatch schedules upgrades of independent contracts concurrently. Each contract goes
// through the same checks as Schedule and a failure on one contract does not stop the others.
func (c *Coordinator) ScheduleBatch(ctx context.Context, reqs []ScheduleRequest) []ScheduleResult {
	out := make([]ScheduleResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultBatchConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := c.Schedule(gctx, req.Contract, req.ClassHash)
			out[i] = ScheduleResult{Request: req, Result: res, Err: err}

			return nil
		})
	}
	_ = g.Wait()

	return out
}
