package state

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// staleLockAge is how old a lock file must be before it is ignored.
const staleLockAge = 10 * time.Minute

// ErrLocked is returned when another setup run holds the store lock.
var ErrLocked = errors.New("setup progress is locked by another process")

// fileLock is a held lock file. While held its modification time is
// refreshed so a long interactive run never looks stale.
type fileLock struct {
	path  string
	token string
	stop  chan struct{}
	done  chan struct{}
}

func lockFile(lockPath string, refresh time.Duration) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := os.Stat(lockPath); err == nil {
		if time.Since(info.ModTime()) <= staleLockAge {
			return nil, fmt.Errorf("%w (lock file: %s). If this is an error, remove the lock file manually",
				ErrLocked, lockPath)
		}
		os.Remove(lockPath)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w (lock file: %s)", ErrLocked, lockPath)
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	l := &fileLock{
		path:  lockPath,
		token: uuid.NewString(),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if _, err := fmt.Fprintf(f, "pid=%d\ntoken=%s\ntime=%s\n",
		os.Getpid(), l.token, time.Now().UTC().Format(time.RFC3339)); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	go l.heartbeat(refresh)
	return l, nil
}

func (l *fileLock) heartbeat(every time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if !l.owned() {
				return
			}
			now := time.Now()
			os.Chtimes(l.path, now, now)
		}
	}
}

// owned reports whether the lock file on disk is still the one this
// process wrote.
func (l *fileLock) owned() bool {
	f, err := os.Open(l.path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if v, ok := strings.CutPrefix(scanner.Text(), "token="); ok {
			return v == l.token
		}
	}
	return false
}

// release stops the refresh and removes the lock file if it is still ours.
func (l *fileLock) release() error {
	close(l.stop)
	<-l.done

	if !l.owned() {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}
