package operations

import (
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
)

var ErrNotSerializable = errors.New("data cannot be safely written to disk without data lost, " +
	"avoid type that can't be serialized")

// RetryPolicy controls how a failing operation is retried.
type RetryPolicy struct {
	MaxAttempts uint
	Delay       time.Duration
}

// DefaultRetryPolicy is used by WithRetry.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: time.Second}

func (p RetryPolicy) options() []retry.Option {
	return []retry.Option{
		retry.Attempts(p.MaxAttempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	}
}

type executeConfig struct {
	retry  bool
	policy RetryPolicy
	force  bool
}

// ExecuteOption configures ExecuteOperation.
type ExecuteOption func(*executeConfig)

// WithRetry retries the operation with DefaultRetryPolicy.
func WithRetry() ExecuteOption {
	return WithRetryPolicy(DefaultRetryPolicy)
}

// WithRetryPolicy retries the operation with the given policy.
func WithRetryPolicy(p RetryPolicy) ExecuteOption {
	return func(c *executeConfig) {
		c.retry = true
		c.policy = p
	}
}

// WithForceExecute runs the operation even if a previous successful report exists.
func WithForceExecute() ExecuteOption {
	return func(c *executeConfig) {
		c.force = true
	}
}

// ExecuteOperation executes an operation with the given input and dependencies and records a
// report of the execution.
//
// If a successful report for the same definition and input already exists, the operation is not
// executed again and that report is returned. Skipped executions are not reported again.
//
// Errors wrapped with NewUnrecoverableError stop retries immediately. Input and output must be
// JSON serializable.
func ExecuteOperation[IN, OUT, DEP any](
	b Bundle,
	operation *Operation[IN, OUT, DEP],
	deps DEP,
	input IN,
	opts ...ExecuteOption,
) (Report[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s input: %w", operation.def.ID, ErrNotSerializable)
	}

	cfg := &executeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if !cfg.force {
		if previous, found := loadPreviousSuccessfulReport[IN, OUT](b, operation.def, input); found {
			b.Logger.Infow("Operation already executed. Returning previous result", "id", operation.def.ID,
				"version", operation.def.Version, "reportID", previous.ID)

			return previous, nil
		}
	}

	var (
		output OUT
		err    error
	)
	if cfg.retry {
		retryOpts := append(cfg.policy.options(),
			retry.Context(b.GetContext()),
			retry.OnRetry(func(attempt uint, err error) {
				b.Logger.Infow("Operation failed. Retrying...",
					"operation", operation.def.ID, "attempt", attempt, "error", err)
			}),
		)
		output, err = retry.DoWithData(func() (OUT, error) {
			return operation.execute(b, deps, input)
		}, retryOpts...)
	} else {
		output, err = operation.execute(b, deps, input)
	}

	if err == nil && !IsSerializable(b.Logger, output) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s output: %w", operation.def.ID, ErrNotSerializable)
	}

	report := NewReport(operation.def, input, output, err)
	report.Forced = cfg.force
	if rerr := b.reporter.AddReport(genericReport(report)); rerr != nil {
		return Report[IN, OUT]{}, rerr
	}

	if err != nil {
		return report, err
	}

	return report, nil
}

// NewUnrecoverableError marks err so that ExecuteOperation does not retry it.
func NewUnrecoverableError(err error) error {
	return retry.Unrecoverable(err)
}

func loadPreviousSuccessfulReport[IN, OUT any](b Bundle, def Definition, input IN) (Report[IN, OUT], bool) {
	prevReports, err := b.reporter.GetReports()
	if err != nil {
		b.Logger.Errorw("Failed to get reports", "error", err)
		return Report[IN, OUT]{}, false
	}
	currentHash, err := constructUniqueHashFrom(b.reportHashCache, def, input)
	if err != nil {
		b.Logger.Errorw("Failed to construct unique hash", "error", err)
		return Report[IN, OUT]{}, false
	}

	for _, report := range prevReports {
		if report.Err != nil {
			continue
		}
		reportHash, err := constructUniqueHashFrom(b.reportHashCache, report.Def, report.Input)
		if err != nil {
			b.Logger.Errorw("Failed to construct unique hash for previous report", "error", err)
			continue
		}
		if reportHash != currentHash {
			continue
		}

		typed, ok := typeReport[IN, OUT](report)
		if !ok {
			b.Logger.Debugw("Previous execution found but its report does not match the operation types",
				"id", def.ID, "reportID", report.ID)

			continue
		}

		return typed, true
	}

	return Report[IN, OUT]{}, false
}
