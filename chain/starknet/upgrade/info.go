package upgrade

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/NethermindEth/juno/core/felt"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
)

var (
	ErrUpgradeAlreadyPending         = errors.New("an upgrade is already pending")
	ErrNoPendingUpgrade              = errors.New("no pending upgrade")
	ErrNotReady                      = errors.New("pending upgrade is not ready")
	ErrCannotChangeDelayWhilePending = errors.New("cannot change upgrade delay while an upgrade is pending")
	ErrUnknownClass                  = errors.New("class hash is not declared")
	ErrUnexpectedArity               = errors.New("unexpected upgrade info arity")
	ErrMissingContract               = errors.New("contract address is required")
)

// NotReadyError is returned by Execute when the pending upgrade has not reached its ready time.
type NotReadyError struct {
	Contract  *felt.Felt
	ReadyAt   time.Time
	Remaining time.Duration
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("upgrade of %s is ready at %s (%s remaining)",
		e.Contract, e.ReadyAt.UTC().Format(time.RFC3339), e.Remaining)
}

func (e *NotReadyError) Unwrap() error { return ErrNotReady }

// State is the upgrade state of a contract, derived from its Info at a point in time.
type State string

const (
	StateIdle      State = "Idle"
	StateScheduled State = "Scheduled"
	StateReady     State = "Ready"
)

// Info is the upgrade record of a contract as returned by get_upgrade_info.
type Info struct {
	// PendingClassHash is zero when no upgrade is in flight.
	PendingClassHash *felt.Felt
	// ReadyTime is in unix seconds.
	ReadyTime    uint64
	DelaySeconds uint32
	// ObservedRemoteTime is the chain's block timestamp, only returned by the 4 field record.
	ObservedRemoteTime *uint64
}

// DecodeInfo decodes the get_upgrade_info response. The older record is
// [pending, ready_time, delay] and the newer one [pending, ready_time, current_time, delay].
func DecodeInfo(fields []*felt.Felt) (Info, error) {
	if len(fields) != 3 && len(fields) != 4 {
		return Info{}, fmt.Errorf("%w: got %d fields, want 3 or 4", ErrUnexpectedArity, len(fields))
	}
	for i, f := range fields {
		if f == nil {
			return Info{}, fmt.Errorf("%w: field %d is nil", starknet.ErrMalformedResponse, i)
		}
	}

	info := Info{}
	delayField := fields[2]
	if len(fields) == 4 {
		now, err := starknet.FeltToUint64(fields[2])
		if err != nil {
			return Info{}, fmt.Errorf("current time: %w", err)
		}
		info.ObservedRemoteTime = &now
		delayField = fields[3]
	}

	info.PendingClassHash = fields[0]

	readyTime, err := starknet.FeltToUint64(fields[1])
	if err != nil {
		return Info{}, fmt.Errorf("ready time: %w", err)
	}
	info.ReadyTime = readyTime

	delay, err := starknet.FeltToUint64(delayField)
	if err != nil {
		return Info{}, fmt.Errorf("delay: %w", err)
	}
	if delay > math.MaxUint32 {
		return Info{}, fmt.Errorf("%w: delay %d does not fit in 32 bits", starknet.ErrMalformedResponse, delay)
	}
	info.DelaySeconds = uint32(delay)

	return info, nil
}

// Pending reports whether an upgrade is in flight.
func (i Info) Pending() bool {
	return !starknet.IsZeroFelt(i.PendingClassHash)
}

// Now returns the time readiness is evaluated against: the chain's observed time when the record
// carries one, else the local time given.
func (i Info) Now(local time.Time) time.Time {
	if i.ObservedRemoteTime != nil {
		return time.Unix(int64(*i.ObservedRemoteTime), 0) //nolint:gosec // block timestamps fit in int64
	}

	return local
}

// ReadyAt returns ReadyTime as a time.Time.
func (i Info) ReadyAt() time.Time {
	return time.Unix(int64(i.ReadyTime), 0) //nolint:gosec // see Now
}

// State derives the upgrade state at local time now. Readiness is inclusive: now == ReadyTime is
// Ready.
func (i Info) State(now time.Time) State {
	if !i.Pending() {
		return StateIdle
	}
	if i.Now(now).Unix() >= int64(i.ReadyTime) { //nolint:gosec // see Now
		return StateReady
	}

	return StateScheduled
}

// Remaining returns how long until the pending upgrade becomes ready, or zero.
func (i Info) Remaining(now time.Time) time.Duration {
	d := i.ReadyAt().Sub(i.Now(now))
	if d < 0 {
		return 0
	}

	return d
}
