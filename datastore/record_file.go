package datastore

import (
	"fmt"

	"github.com/smartcontractkit/starknet-deployments-framework/internal/jsonutils"
)

// recordFile is the on-disk form of a MemoryRecordStore.
type recordFile struct {
	ChainSelector uint64                 `json:"chainSelector"`
	Records       map[string]ContractRef `json:"records"`
}

// LoadRecordFile loads the deployment record at path. A missing file yields an empty record for
// chainSelector, so a plan can be re-run against the same path from scratch.
func LoadRecordFile(path string, chainSelector uint64) (*MemoryRecordStore, error) {
	f, found, err := jsonutils.LoadFileOrZero[recordFile](path)
	if err != nil {
		return nil, err
	}
	if !found {
		return NewMemoryRecordStore(chainSelector), nil
	}
	if f.ChainSelector != chainSelector {
		return nil, fmt.Errorf("record %s belongs to chain selector %d, not %d", path, f.ChainSelector, chainSelector)
	}

	return f.toStore(path)
}

// ReadRecordFile loads an existing deployment record at path, whatever its chain selector.
func ReadRecordFile(path string) (*MemoryRecordStore, error) {
	f, found, err := jsonutils.LoadFileOrZero[recordFile](path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("record %s does not exist", path)
	}

	return f.toStore(path)
}

func (f recordFile) toStore(path string) (*MemoryRecordStore, error) {
	store := NewMemoryRecordStore(f.ChainSelector)
	for name, ref := range f.Records {
		if err := store.Add(name, ref); err != nil {
			return nil, fmt.Errorf("record %s: %w", path, err)
		}
	}

	return store, nil
}

// SaveRecordFile writes the deployment record to path, replacing the file atomically.
func SaveRecordFile(path string, store *MemoryRecordStore) error {
	store.mu.RLock()
	f := recordFile{ChainSelector: store.ChainSelector, Records: store.Records}
	err := jsonutils.WriteFile(path, f)
	store.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", path, err)
	}

	return nil
}
