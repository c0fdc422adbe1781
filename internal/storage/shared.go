package storage

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tsharp/kupier-btree/internal/logging"
	"github.com/tsharp/kupier-btree/internal/metrics"
)

// SharedConfig configures a Shared store.
type SharedConfig struct {
	// Metrics receives per-operation counters. Optional.
	Metrics *metrics.Metrics
	// Logger receives lock poisoning reports. Defaults to a no-op logger.
	Logger logging.Logger
}

// DefaultSharedConfig returns a config with no metrics and a no-op logger.
func DefaultSharedConfig() SharedConfig {
	return SharedConfig{
		Logger: logging.NewNop(),
	}
}

var _ Store = (*Shared)(nil)

// sharedCell is the state every clone of a Shared points at.
type sharedCell struct {
	mu       sync.RWMutex
	backend  Store
	poisoned atomic.Bool
	handles  atomic.Int64
	metrics  *metrics.Metrics
	log      logging.Logger
}

// Shared protects a single backend with a read/write lock so that it can be
// cloned and used from several goroutines. Clones are views of the same
// backend: a write through one is visible through all of them.
//
// If the backend panics during a write, the lock is poisoned and every later
// call on any clone fails with a *LockError wrapping ErrLockPoisoned.
type Shared struct {
	cell     *sharedCell
	released atomic.Bool
}

// NewShared creates a Shared store over a fresh in-memory backend.
func NewShared() *Shared {
	return Wrap(NewMemory(), DefaultSharedConfig())
}

// Wrap creates a Shared store over backend. The caller must not use backend
// directly afterwards.
func Wrap(backend Store, config SharedConfig) *Shared {
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	cell := &sharedCell{
		backend: backend,
		metrics: config.Metrics,
		log:     config.Logger.WithFields("store", backend.String()),
	}
	return cell.newHandle()
}

func (c *sharedCell) newHandle() *Shared {
	c.handles.Add(1)
	if c.metrics != nil {
		c.metrics.CloneOpened()
	}
	return &Shared{cell: c}
}

// Clone returns another handle to the same backend and lock.
func (s *Shared) Clone() *Shared {
	return s.cell.newHandle()
}

// Release drops this handle from the live handle count. It does not affect
// other clones and is safe to call more than once.
func (s *Shared) Release() {
	if s.released.Swap(true) {
		return
	}
	s.cell.handles.Add(-1)
	if s.cell.metrics != nil {
		s.cell.metrics.CloneReleased()
	}
}

// Handles returns the number of live, unreleased handles sharing the backend.
func (s *Shared) Handles() int {
	return int(s.cell.handles.Load())
}

// Poisoned reports whether a writer panicked while holding the lock.
func (s *Shared) Poisoned() bool {
	return s.cell.poisoned.Load()
}

func (s *Shared) String() string {
	return "shared"
}

// Delete removes key under the write lock.
func (s *Shared) Delete(key []byte) error {
	return s.cell.write(metrics.OpDelete, func(b Store) error {
		return b.Delete(key)
	})
}

// Set stores value under key under the write lock.
func (s *Shared) Set(key, value []byte) error {
	return s.cell.write(metrics.OpSet, func(b Store) error {
		return b.Set(key, value)
	})
}

// Get looks up key under the read lock.
func (s *Shared) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.cell.read(metrics.OpGet, func(b Store) error {
		var err error
		value, err = b.Get(key)
		return err
	})
	return value, err
}

// Flush always succeeds; the in-process backend has nothing to persist.
func (s *Shared) Flush() error {
	return nil
}

// Scan copies the backend's scan of r into a buffer while holding the read
// lock and returns a sequence over that buffer. The lock is released before
// Scan returns, so the caller may write to the store while iterating, and
// those writes do not show up in the returned sequence.
//
// A lock or backend error is reported by Err once the buffered entries
// have been consumed.
func (s *Shared) Scan(r Range) Scan {
	var entries []Entry
	err := s.cell.read(metrics.OpScan, func(b Store) error {
		scan := b.Scan(r)
		defer scan.Close()
		for scan.Next() {
			entries = append(entries, Entry{Key: clone(scan.Key()), Value: clone(scan.Value())})
		}
		return scan.Err()
	})
	if s.cell.metrics != nil {
		s.cell.metrics.RecordScanned(len(entries))
	}
	return newSliceScan(entries, err)
}

func (c *sharedCell) read(op metrics.Op, fn func(Store) error) error {
	start := time.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run(op, time.Since(start), fn)
}

func (c *sharedCell) write(op metrics.Op, fn func(Store) error) error {
	start := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.poisonOnPanic(op)
	return c.run(op, time.Since(start), fn)
}

func (c *sharedCell) run(op metrics.Op, wait time.Duration, fn func(Store) error) error {
	if c.poisoned.Load() {
		if c.metrics != nil {
			c.metrics.RecordLockError()
		}
		return &LockError{Op: op.String(), Err: ErrLockPoisoned}
	}

	err := fn(c.backend)
	if c.metrics != nil {
		c.metrics.RecordOp(op, wait)
		if err != nil {
			c.metrics.RecordBackendError()
		}
	}
	return err
}

// poisonOnPanic must be deferred after the write lock is taken, so it runs
// before the unlock.
func (c *sharedCell) poisonOnPanic(op metrics.Op) {
	if r := recover(); r != nil {
		if !c.poisoned.Swap(true) {
			c.log.Error("backend panicked while holding write lock", "op", op.String(), "panic", r)
		}
		panic(r)
	}
}
