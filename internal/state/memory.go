package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/picklr-io/serp2snow/internal/ir"
)

// MemoryStore keeps the state in process memory, serialized the same way
// the persistent backends serialize it. Used for dry runs.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(ctx context.Context) (*ir.ProvisioningState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, nil
	}
	var st ir.ProvisioningState
	if err := json.Unmarshal(s.data, &st); err != nil {
		return nil, fmt.Errorf("failed to load setup progress: %w", err)
	}
	return &st, nil
}

func (s *MemoryStore) Set(ctx context.Context, state *ir.ProvisioningState) error {
	if state == nil {
		return fmt.Errorf("refusing to persist nil state")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to save setup progress: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}

// Raw returns the serialized record, or nil when empty.
func (s *MemoryStore) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}
