package escrow

import (
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// AgreementStore holds agreements keyed by id.
type AgreementStore interface {
	Get(id ethcommon.Hash) (*Agreement, bool)
	Put(a *Agreement)
}

// MemoryAgreementStore backs the contract in-process.
type MemoryAgreementStore struct {
	mu         sync.RWMutex
	agreements map[ethcommon.Hash]*Agreement
}

func NewMemoryAgreementStore() *MemoryAgreementStore {
	return &MemoryAgreementStore{
		agreements: make(map[ethcommon.Hash]*Agreement),
	}
}

func (s *MemoryAgreementStore) Get(id ethcommon.Hash) (*Agreement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agreements[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

func (s *MemoryAgreementStore) Put(a *Agreement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agreements[a.ID] = a.Clone()
}
