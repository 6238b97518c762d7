package datastore

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// RecordStore gives read access to a deployment record.
type RecordStore interface {
	Get(name string) (ContractRef, error)
	Fetch() map[string]ContractRef
	Names() []string
}

// MutableRecordStore is a RecordStore that can be appended to.
type MutableRecordStore interface {
	RecordStore
	Add(name string, ref ContractRef) error
}

// MemoryRecordStore is the deployment record: contract name to ContractRef, built up as a plan
// runs. It is append-only; an entry is never replaced once written.
type MemoryRecordStore struct {
	mu sync.RWMutex

	ChainSelector uint64                 `json:"chainSelector"`
	Records       map[string]ContractRef `json:"records"`
}

var _ MutableRecordStore = &MemoryRecordStore{}

// NewMemoryRecordStore creates an empty record for the given chain.
func NewMemoryRecordStore(chainSelector uint64) *MemoryRecordStore {
	return &MemoryRecordStore{
		ChainSelector: chainSelector,
		Records:       make(map[string]ContractRef),
	}
}

// Get returns the entry for name, or ErrContractRefNotFound.
func (s *MemoryRecordStore) Get(name string) (ContractRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.Records[name]
	if !ok {
		return ContractRef{}, fmt.Errorf("%w: %q", ErrContractRefNotFound, name)
	}

	return ref, nil
}

// Fetch returns a copy of all entries.
func (s *MemoryRecordStore) Fetch() map[string]ContractRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.Records)
}

// Names returns the recorded names in sorted order.
func (s *MemoryRecordStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.Records))
}

// Add appends an entry. Adding the same entry again is a no-op; adding a different entry under an
// existing name fails with ErrContractRefExists.
func (s *MemoryRecordStore) Add(name string, ref ContractRef) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidContractRef)
	}
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("contract ref %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Records == nil {
		s.Records = make(map[string]ContractRef)
	}
	if existing, ok := s.Records[name]; ok {
		if existing.Equals(ref) {
			return nil
		}

		return fmt.Errorf("%w: %q is recorded at %s", ErrContractRefExists, name, existing.Address)
	}
	s.Records[name] = ref

	return nil
}
