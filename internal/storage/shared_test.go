package storage

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/tsharp/kupier-btree/internal/logging"
	"github.com/tsharp/kupier-btree/internal/metrics"
)

var errBackend = errors.New("backend failure")

// faultyStore wraps a Memory and panics or fails on chosen keys.
type faultyStore struct {
	*Memory
	panicKey []byte
	failKey  []byte
	scanErr  error
}

func (f *faultyStore) Set(key, value []byte) error {
	if f.panicKey != nil && bytes.Equal(key, f.panicKey) {
		panic("faulty store: " + string(key))
	}
	if f.failKey != nil && bytes.Equal(key, f.failKey) {
		return errBackend
	}
	return f.Memory.Set(key, value)
}

func (f *faultyStore) Scan(r Range) Scan {
	if f.scanErr == nil {
		return f.Memory.Scan(r)
	}
	entries, _ := Collect(f.Memory.Scan(r))
	return newSliceScan(entries, f.scanErr)
}

func TestShared_ConcurrentWritersVisibleFromThirdClone(t *testing.T) {
	s := NewShared()
	w1, w2, reader := s.Clone(), s.Clone(), s.Clone()

	var wg sync.WaitGroup
	errs := make(chan error, 3)

	for _, w := range []struct {
		store  *Shared
		prefix string
	}{{w1, "left"}, {w2, "right"}} {
		wg.Add(1)
		go func(store *Shared, prefix string) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := []byte(fmt.Sprintf("%s-%04d", prefix, i))
				if err := store.Set(key, key); err != nil {
					errs <- err
					return
				}
			}
		}(w.store, w.prefix)
	}

	// Concurrent reader; missing keys are fine while writers run.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if _, err := reader.Get([]byte(fmt.Sprintf("left-%04d", i))); err != nil {
				errs <- err
				return
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent access error: %v", err)
	}

	for _, prefix := range []string{"left", "right"} {
		for i := 0; i < 500; i++ {
			key := []byte(fmt.Sprintf("%s-%04d", prefix, i))
			v, err := reader.Get(key)
			if err != nil || !bytes.Equal(v, key) {
				t.Fatalf("missing key after concurrent writes: %s (err=%v)", key, err)
			}
		}
	}
}

func TestShared_ScanIsSnapshot(t *testing.T) {
	s := NewShared()
	for _, k := range []string{"a", "b", "c"} {
		s.Set([]byte(k), []byte(k))
	}

	scan := s.Scan(All())
	defer scan.Close()

	// Writes after Scan returns must not deadlock or leak into the scan.
	if err := s.Set([]byte("d"), []byte("d")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete([]byte("a")); err != nil {
		t.Fatal(err)
	}

	var got []string
	for scan.Next() {
		got = append(got, string(scan.Key()))
		// Writing from inside the iteration loop must not block either.
		if err := s.Clone().Set([]byte("z-"+string(scan.Key())), nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := scan.Err(); err != nil {
		t.Fatal(err)
	}
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("expected snapshot a,b,c, got %v", got)
	}

	entries, err := Collect(s.Scan(All()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 6 { // b c d z-a z-b z-c
		t.Errorf("expected 6 live keys, got %d", len(entries))
	}
}

func TestShared_ClonesShareState(t *testing.T) {
	a := NewShared()
	b := a.Clone()

	a.Set([]byte("k"), []byte("v"))
	if v, _ := b.Get([]byte("k")); string(v) != "v" {
		t.Errorf("clone did not see write, got %q", v)
	}
	b.Delete([]byte("k"))
	if v, _ := a.Get([]byte("k")); v != nil {
		t.Errorf("original still sees deleted key, got %q", v)
	}

	if a.Handles() != 2 {
		t.Errorf("expected 2 handles, got %d", a.Handles())
	}
	b.Release()
	b.Release()
	if a.Handles() != 1 {
		t.Errorf("expected 1 handle after release, got %d", a.Handles())
	}
	if a.String() != "shared" {
		t.Errorf("expected name shared, got %s", a)
	}
}

func TestShared_BackendErrorPassthrough(t *testing.T) {
	s := Wrap(&faultyStore{Memory: NewMemory(), failKey: []byte("bad")}, DefaultSharedConfig())

	if err := s.Set([]byte("bad"), nil); err != errBackend {
		t.Errorf("expected backend error unchanged, got %v", err)
	}
	if s.Poisoned() {
		t.Error("backend error must not poison the lock")
	}
	if err := s.Set([]byte("good"), nil); err != nil {
		t.Errorf("expected later writes to succeed, got %v", err)
	}
}

func TestShared_ScanBackendError(t *testing.T) {
	backend := &faultyStore{Memory: NewMemory(), scanErr: errBackend}
	backend.Memory.Set([]byte("a"), []byte("1"))
	s := Wrap(backend, DefaultSharedConfig())

	scan := s.Scan(All())
	if !scan.Next() || string(scan.Key()) != "a" {
		t.Fatal("expected buffered entry before the error")
	}
	if scan.Err() != nil {
		t.Error("error reported before entries were consumed")
	}
	if scan.Next() {
		t.Fatal("expected end of scan")
	}
	if !errors.Is(scan.Err(), errBackend) {
		t.Errorf("expected backend error, got %v", scan.Err())
	}
}

// reusingStore wraps a Memory whose scans hand out one key buffer and one
// value buffer, overwritten on every Next.
type reusingStore struct {
	*Memory
}

func (r reusingStore) Scan(rg Range) Scan {
	return &reusingScan{Scan: r.Memory.Scan(rg)}
}

type reusingScan struct {
	Scan
	key, value []byte
}

func (s *reusingScan) Next() bool {
	if !s.Scan.Next() {
		return false
	}
	s.key = append(s.key[:0], s.Scan.Key()...)
	s.value = append(s.value[:0], s.Scan.Value()...)
	return true
}

func (s *reusingScan) Key() []byte   { return s.key }
func (s *reusingScan) Value() []byte { return s.value }

func TestShared_ScanCopiesReusedBuffers(t *testing.T) {
	s := Wrap(reusingStore{Memory: NewMemory()}, DefaultSharedConfig())
	for _, k := range []string{"a", "b", "c"} {
		if err := s.Set([]byte(k), []byte(k+"-value")); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := Collect(s.Scan(All()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"a", "b", "c"} {
		if string(entries[i].Key) != want {
			t.Errorf("entry %d: expected key %q, got %q", i, want, entries[i].Key)
		}
		if string(entries[i].Value) != want+"-value" {
			t.Errorf("entry %d: expected value %q, got %q", i, want+"-value", entries[i].Value)
		}
	}
}

func TestShared_ScanEntriesOwned(t *testing.T) {
	s := NewShared()
	if err := s.Set([]byte("k"), []byte("before")); err != nil {
		t.Fatal(err)
	}

	scan := s.Scan(All())
	if !scan.Next() {
		t.Fatal("expected one entry")
	}
	got := scan.Value()
	got[0] = 'X'

	value, err := s.Get([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	if string(value) != "before" {
		t.Errorf("mutating a scanned value changed the store: %q", value)
	}
}

func TestShared_PoisonedAfterPanic(t *testing.T) {
	var logBuf bytes.Buffer
	config := DefaultSharedConfig()
	config.Logger = logging.New(logging.Config{Level: "error", Output: &logBuf})
	config.Metrics = metrics.NewMetrics()

	s := Wrap(&faultyStore{Memory: NewMemory(), panicKey: []byte("boom")}, config)
	other := s.Clone()

	if err := s.Set([]byte("before"), []byte("1")); err != nil {
		t.Fatal(err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		s.Set([]byte("boom"), nil)
	}()

	if !other.Poisoned() {
		t.Fatal("expected clone to observe poisoning")
	}

	var lockErr *LockError
	if _, err := other.Get([]byte("before")); !errors.As(err, &lockErr) || lockErr.Op != "get" {
		t.Errorf("expected get LockError, got %v", err)
	}
	if err := other.Set([]byte("x"), nil); !errors.Is(err, ErrLockPoisoned) {
		t.Errorf("expected ErrLockPoisoned from set, got %v", err)
	}
	if err := other.Delete([]byte("x")); !errors.Is(err, ErrLockPoisoned) {
		t.Errorf("expected ErrLockPoisoned from delete, got %v", err)
	}
	scan := other.Scan(All())
	if scan.Next() {
		t.Error("expected no entries from poisoned scan")
	}
	if !errors.Is(scan.Err(), ErrLockPoisoned) {
		t.Errorf("expected ErrLockPoisoned from scan, got %v", scan.Err())
	}
	if err := other.Flush(); err != nil {
		t.Errorf("flush must always succeed, got %v", err)
	}

	if n := strings.Count(logBuf.String(), "backend panicked"); n != 1 {
		t.Errorf("expected one poisoning log line, got %d: %q", n, logBuf.String())
	}
	if got := config.Metrics.Snapshot().LockErrors; got != 4 {
		t.Errorf("expected 4 lock errors, got %d", got)
	}
}

func TestShared_Metrics(t *testing.T) {
	m := metrics.NewMetrics()
	s := Wrap(NewMemory(), SharedConfig{Metrics: m})
	c := s.Clone()

	s.Set([]byte("a"), []byte("1"))
	s.Set([]byte("b"), []byte("2"))
	c.Get([]byte("a"))
	c.Delete([]byte("b"))
	Collect(c.Scan(All()))

	snap := m.Snapshot()
	if snap.Sets != 2 || snap.Gets != 1 || snap.Deletes != 1 || snap.Scans != 1 {
		t.Errorf("unexpected op counts: %+v", snap)
	}
	if snap.ScannedTotal != 1 {
		t.Errorf("expected 1 scanned entry, got %d", snap.ScannedTotal)
	}
	if snap.Handles != 2 {
		t.Errorf("expected 2 handles, got %d", snap.Handles)
	}
}

func BenchmarkShared_ParallelGet(b *testing.B) {
	s := NewShared()
	for i := 0; i < 10000; i++ {
		key := []byte(fmt.Sprintf("key%06d", i))
		s.Set(key, key)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		c := s.Clone()
		i := 0
		for pb.Next() {
			c.Get([]byte(fmt.Sprintf("key%06d", i%10000)))
			i++
		}
	})
}
