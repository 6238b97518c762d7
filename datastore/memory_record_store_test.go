package datastore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenRef = ContractRef{ClassHash: "0x1234", Address: "0xabc", DeployTxHash: "0x99"}
	vaultRef = ContractRef{ClassHash: "0x5678", Address: "0xdef"}
)

func TestMemoryRecordStore_Add(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		givenState    map[string]ContractRef
		recordName    string
		ref           ContractRef
		expectedError error
	}{
		{
			name:       "new entry",
			recordName: "token",
			ref:        tokenRef,
		},
		{
			name:       "same entry again is a no-op",
			givenState: map[string]ContractRef{"token": tokenRef},
			recordName: "token",
			ref:        ContractRef{ClassHash: "0x01234", Address: "0x0abc"},
		},
		{
			name:          "different entry under the same name",
			givenState:    map[string]ContractRef{"token": tokenRef},
			recordName:    "token",
			ref:           vaultRef,
			expectedError: ErrContractRefExists,
		},
		{
			name:          "zero address",
			recordName:    "token",
			ref:           ContractRef{ClassHash: "0x1234", Address: "0x0"},
			expectedError: ErrInvalidContractRef,
		},
		{
			name:          "invalid class hash",
			recordName:    "token",
			ref:           ContractRef{ClassHash: "nope", Address: "0xabc"},
			expectedError: ErrInvalidContractRef,
		},
		{
			name:          "empty name",
			ref:           tokenRef,
			expectedError: ErrInvalidContractRef,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := NewMemoryRecordStore(1)
			for k, v := range tt.givenState {
				require.NoError(t, store.Add(k, v))
			}

			err := store.Add(tt.recordName, tt.ref)
			if tt.expectedError != nil {
				require.ErrorIs(t, err, tt.expectedError)
				return
			}

			require.NoError(t, err)
			got, err := store.Get(tt.recordName)
			require.NoError(t, err)
			assert.True(t, got.Equals(tt.ref))
		})
	}
}

func TestMemoryRecordStore_neverReplaces(t *testing.T) {
	t.Parallel()

	store := NewMemoryRecordStore(1)
	require.NoError(t, store.Add("token", tokenRef))
	require.ErrorIs(t, store.Add("token", vaultRef), ErrContractRefExists)

	got, err := store.Get("token")
	require.NoError(t, err)
	assert.Equal(t, tokenRef, got)
}

func TestMemoryRecordStore_Get_notFound(t *testing.T) {
	t.Parallel()

	_, err := NewMemoryRecordStore(1).Get("missing")
	require.ErrorIs(t, err, ErrContractRefNotFound)
}

func TestMemoryRecordStore_FetchAndNames(t *testing.T) {
	t.Parallel()

	store := NewMemoryRecordStore(1)
	require.NoError(t, store.Add("vault", vaultRef))
	require.NoError(t, store.Add("token", tokenRef))

	assert.Equal(t, []string{"token", "vault"}, store.Names())

	fetched := store.Fetch()
	delete(fetched, "token")
	_, err := store.Get("token")
	require.NoError(t, err, "Fetch must return a copy")
}

func TestMemoryRecordStore_concurrentAdd(t *testing.T) {
	t.Parallel()

	store := NewMemoryRecordStore(1)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Add("token", tokenRef))
		}()
	}
	wg.Wait()

	assert.Len(t, store.Fetch(), 1)
}
