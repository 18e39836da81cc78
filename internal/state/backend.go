package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/picklr-io/serp2snow/internal/config"
	"github.com/picklr-io/serp2snow/internal/ir"
)

// Store holds the one provisioning-state record of an installation.
type Store interface {
	// Get returns the persisted state, or nil when no run is tracked.
	Get(ctx context.Context) (*ir.ProvisioningState, error)

	// Set overwrites the persisted state with state.
	Set(ctx context.Context, state *ir.ProvisioningState) error

	// Clear forgets the tracked run. Cloud resources are not touched.
	Clear(ctx context.Context) error
}

// Locker is implemented by stores that can prevent two runs from
// overlapping.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

const (
	progressKey  = "setupProgress"
	lastStateKey = progressKey + ".lastState"
)

// NewStore creates the store selected by cfg.
func NewStore(cfg *config.StoreConfig) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("store configuration is nil")
	}

	switch cfg.Backend {
	case "local", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("local store requires a path")
		}
		return NewLocalStore(NewConfigFile(cfg.Path)), nil
	case "s3":
		return newS3Backend(cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

// LocalStore keeps the state under setupProgress.lastState in the local
// configuration file.
type LocalStore struct {
	file *ConfigFile

	mu          sync.Mutex
	lock        *fileLock
	lockRefresh time.Duration
}

func NewLocalStore(file *ConfigFile) *LocalStore {
	return &LocalStore{file: file, lockRefresh: staleLockAge / 4}
}

func (s *LocalStore) Get(ctx context.Context) (*ir.ProvisioningState, error) {
	var st ir.ProvisioningState
	found, err := s.file.Get(lastStateKey, &st)
	if err != nil {
		return nil, fmt.Errorf("failed to load setup progress: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &st, nil
}

func (s *LocalStore) Set(ctx context.Context, state *ir.ProvisioningState) error {
	if state == nil {
		return fmt.Errorf("refusing to persist nil state")
	}
	if err := s.file.Set(lastStateKey, state); err != nil {
		return fmt.Errorf("failed to save setup progress: %w", err)
	}
	return nil
}

func (s *LocalStore) Clear(ctx context.Context) error {
	if err := s.file.Delete(progressKey); err != nil {
		return fmt.Errorf("failed to clear setup progress: %w", err)
	}
	return nil
}

// Lock takes the lock file next to the store and keeps it fresh until
// Unlock.
func (s *LocalStore) Lock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := lockFile(s.file.Path()+".lock", s.lockRefresh)
	if err != nil {
		return err
	}
	s.lock = l
	return nil
}

// Unlock releases a lock taken by this store. A lock file written by
// another run is left in place.
func (s *LocalStore) Unlock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock == nil {
		return nil
	}
	l := s.lock
	s.lock = nil
	return l.release()
}
