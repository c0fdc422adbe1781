package storage

import (
	"bytes"
	"fmt"
)

// Store is a key-value storage backend. Keys and values are opaque byte strings.
type Store interface {
	fmt.Stringer

	// Get returns the value for key, or nil if the key does not exist.
	Get(key []byte) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value []byte) error

	// Delete removes key. Whether a missing key is an error is up to the backend.
	Delete(key []byte) error

	// Scan iterates over the key-value pairs in r in ascending key order.
	Scan(r Range) Scan

	// Flush persists buffered writes, if the backend buffers any.
	Flush() error
}

// Entry is a key-value pair produced by a scan.
type Entry struct {
	Key   []byte
	Value []byte
}

// Scan is a sequence of key-value results. Next must be called before the
// first Key/Value. The slices returned by Key and Value are only valid until
// the next call to Next. Iteration stops at the first error, which Err reports.
type Scan interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close()
}

// BoundKind describes how a range endpoint treats its key.
type BoundKind uint8

const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound is one endpoint of a Range.
type Bound struct {
	Kind BoundKind
	Key  []byte
}

// Range describes the bounds of a scan.
type Range struct {
	Start Bound
	End   Bound
}

// All returns a range covering every key.
func All() Range {
	return Range{}
}

// From returns the range of keys >= start.
func From(start []byte) Range {
	return Range{Start: Bound{Kind: Included, Key: start}}
}

// Between returns the half-open range [start, end).
func Between(start, end []byte) Range {
	return Range{
		Start: Bound{Kind: Included, Key: start},
		End:   Bound{Kind: Excluded, Key: end},
	}
}

// Prefix returns the range of keys beginning with prefix.
func Prefix(prefix []byte) Range {
	r := From(prefix)
	// The smallest key greater than every key with this prefix is the prefix
	// with its last non-0xff byte incremented and the tail dropped.
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			r.End = Bound{Kind: Excluded, Key: end[:i+1]}
			return r
		}
	}
	return r
}

// afterStart reports whether key is not below the start bound.
func (r Range) afterStart(key []byte) bool {
	switch r.Start.Kind {
	case Included:
		return bytes.Compare(key, r.Start.Key) >= 0
	case Excluded:
		return bytes.Compare(key, r.Start.Key) > 0
	}
	return true
}

// beforeEnd reports whether key is not above the end bound.
func (r Range) beforeEnd(key []byte) bool {
	switch r.End.Kind {
	case Included:
		return bytes.Compare(key, r.End.Key) <= 0
	case Excluded:
		return bytes.Compare(key, r.End.Key) < 0
	}
	return true
}

// Contains reports whether key lies within the range.
func (r Range) Contains(key []byte) bool {
	return r.afterStart(key) && r.beforeEnd(key)
}

// sliceScan iterates over an already materialized set of entries.
type sliceScan struct {
	entries []Entry
	pos     int
	err     error
}

func newSliceScan(entries []Entry, err error) *sliceScan {
	return &sliceScan{entries: entries, pos: -1, err: err}
}

func (s *sliceScan) Next() bool {
	if s.pos+1 >= len(s.entries) {
		s.pos = len(s.entries)
		return false
	}
	s.pos++
	return true
}

func (s *sliceScan) entry() *Entry {
	if s.pos < 0 || s.pos >= len(s.entries) {
		return nil
	}
	return &s.entries[s.pos]
}

func (s *sliceScan) Key() []byte {
	if e := s.entry(); e != nil {
		return e.Key
	}
	return nil
}

func (s *sliceScan) Value() []byte {
	if e := s.entry(); e != nil {
		return e.Value
	}
	return nil
}

// Err reports the error that ended the scan, once the buffered entries are exhausted.
func (s *sliceScan) Err() error {
	if s.pos < len(s.entries) {
		return nil
	}
	return s.err
}

func (s *sliceScan) Close() {
	s.entries = nil
	s.pos = 0
}

// Collect drains scan into a slice and closes it.
func Collect(scan Scan) ([]Entry, error) {
	defer scan.Close()

	var entries []Entry
	for scan.Next() {
		entries = append(entries, Entry{Key: scan.Key(), Value: scan.Value()})
	}
	return entries, scan.Err()
}
