package upgrade

import (
	"testing"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
)

func feltsOf(vs ...uint64) []*felt.Felt {
	out := make([]*felt.Felt, 0, len(vs))
	for _, v := range vs {
		out = append(out, starknet.Uint64ToFelt(v))
	}

	return out
}

func TestDecodeInfo(t *testing.T) {
	t.Parallel()

	remoteNow := uint64(1_700_000_500)

	tests := []struct {
		name       string
		give       []*felt.Felt
		want       Info
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "three fields",
			give: feltsOf(0xabc, 1_700_000_000, 3600),
			want: Info{PendingClassHash: starknet.Uint64ToFelt(0xabc), ReadyTime: 1_700_000_000, DelaySeconds: 3600},
		},
		{
			name: "four fields carry the chain time before the delay",
			give: feltsOf(0xabc, 1_700_000_000, remoteNow, 60),
			want: Info{
				PendingClassHash:   starknet.Uint64ToFelt(0xabc),
				ReadyTime:          1_700_000_000,
				DelaySeconds:       60,
				ObservedRemoteTime: &remoteNow,
			},
		},
		{
			name: "idle record",
			give: feltsOf(0, 0, 86400),
			want: Info{PendingClassHash: new(felt.Felt), DelaySeconds: 86400},
		},
		{
			name:    "two fields",
			give:    feltsOf(0, 0),
			wantErr: ErrUnexpectedArity,
		},
		{
			name:    "five fields",
			give:    feltsOf(0, 0, 0, 0, 0),
			wantErr: ErrUnexpectedArity,
		},
		{
			name:    "nil field",
			give:    []*felt.Felt{nil, starknet.Uint64ToFelt(1), starknet.Uint64ToFelt(2)},
			wantErr: starknet.ErrMalformedResponse,
		},
		{
			name:       "delay larger than 32 bits",
			give:       feltsOf(0, 0, 1<<40),
			wantErr:    starknet.ErrMalformedResponse,
			wantErrMsg: "does not fit in 32 bits",
		},
		{
			name:    "ready time larger than 64 bits",
			give:    []*felt.Felt{new(felt.Felt), starknet.MustParseFelt("0x10000000000000000"), starknet.Uint64ToFelt(1)},
			wantErr: starknet.ErrInvalidFelt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeInfo(tt.give)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.wantErrMsg != "" {
					require.ErrorContains(t, err, tt.wantErrMsg)
				}

				return
			}

			require.NoError(t, err)
			assert.True(t, starknet.FeltsEqual(tt.want.PendingClassHash, got.PendingClassHash))
			assert.Equal(t, tt.want.ReadyTime, got.ReadyTime)
			assert.Equal(t, tt.want.DelaySeconds, got.DelaySeconds)
			assert.Equal(t, tt.want.ObservedRemoteTime, got.ObservedRemoteTime)
		})
	}
}

func TestInfo_State(t *testing.T) {
	t.Parallel()

	readyTime := uint64(1_700_000_000)
	ready := time.Unix(int64(readyTime), 0)
	pending := Info{PendingClassHash: starknet.Uint64ToFelt(0xabc), ReadyTime: readyTime}

	tests := []struct {
		name          string
		info          Info
		now           time.Time
		want          State
		wantRemaining time.Duration
	}{
		{
			name: "idle",
			info: Info{PendingClassHash: new(felt.Felt)},
			now:  ready,
			want: StateIdle,
		},
		{
			name: "nil pending hash is idle",
			info: Info{},
			now:  ready,
			want: StateIdle,
		},
		{
			name:          "scheduled one second before",
			info:          pending,
			now:           ready.Add(-time.Second),
			want:          StateScheduled,
			wantRemaining: time.Second,
		},
		{
			name: "ready at the boundary",
			info: pending,
			now:  ready,
			want: StateReady,
		},
		{
			name: "ready after",
			info: pending,
			now:  ready.Add(time.Hour),
			want: StateReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.info.State(tt.now))
			assert.Equal(t, tt.wantRemaining, tt.info.Remaining(tt.now))
		})
	}
}

func TestInfo_State_prefersObservedRemoteTime(t *testing.T) {
	t.Parallel()

	readyTime := uint64(1_700_000_000)
	remote := readyTime - 10
	info := Info{
		PendingClassHash:   starknet.Uint64ToFelt(0xabc),
		ReadyTime:          readyTime,
		ObservedRemoteTime: &remote,
	}

	localAfter := time.Unix(int64(readyTime)+3600, 0)
	assert.Equal(t, StateScheduled, info.State(localAfter))
	assert.Equal(t, 10*time.Second, info.Remaining(localAfter))
}
