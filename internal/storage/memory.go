package storage

var _ Store = (*Memory)(nil)

// Memory is an in-memory ordered key-value backend built on a skip list.
// It is not safe for concurrent use; wrap it in a Shared to share it.
type Memory struct {
	sl *skipList
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{sl: newSkipList()}
}

func (m *Memory) String() string {
	return "memory"
}

// Get returns the value for key, or nil if it is absent.
func (m *Memory) Get(key []byte) ([]byte, error) {
	value, ok := m.sl.get(key)
	if !ok {
		return nil, nil
	}
	return clone(value), nil
}

// Set stores a copy of key and value.
func (m *Memory) Set(key, value []byte) error {
	// A stored value is never nil, so Get can tell "empty" from "absent".
	m.sl.put(clone(key), append([]byte{}, value...))
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(key []byte) error {
	m.sl.remove(key)
	return nil
}

// Flush is a no-op.
func (m *Memory) Flush() error {
	return nil
}

// Scan walks the skip list over r. The returned sequence reads the list as it
// advances, so the caller must not mutate m while iterating.
func (m *Memory) Scan(r Range) Scan {
	var start *skipListNode
	if r.Start.Kind == Unbounded {
		start = m.sl.first()
	} else {
		start = m.sl.seek(r.Start.Key)
	}
	return &memoryScan{next: start, r: r}
}

// Len returns the number of keys stored.
func (m *Memory) Len() int {
	return int(m.sl.count)
}

// Size returns the approximate memory usage in bytes.
func (m *Memory) Size() int64 {
	return m.sl.size
}

type memoryScan struct {
	next    *skipListNode
	current *skipListNode
	r       Range
}

func (s *memoryScan) Next() bool {
	for s.next != nil && !s.r.afterStart(s.next.entry.Key) {
		s.next = s.next.forward[0]
	}
	if s.next == nil || !s.r.beforeEnd(s.next.entry.Key) {
		s.next, s.current = nil, nil
		return false
	}
	s.current = s.next
	s.next = s.next.forward[0]
	return true
}

func (s *memoryScan) Key() []byte {
	if s.current == nil {
		return nil
	}
	return clone(s.current.entry.Key)
}

func (s *memoryScan) Value() []byte {
	if s.current == nil {
		return nil
	}
	return clone(s.current.entry.Value)
}

func (s *memoryScan) Err() error {
	return nil
}

func (s *memoryScan) Close() {
	s.next, s.current = nil, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
