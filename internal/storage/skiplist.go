package storage

import (
	"bytes"
)

// Size returns the approximate memory footprint of this entry in bytes.
func (e *Entry) Size() int {
	return len(e.Key) + len(e.Value) + 16 // two slice headers' worth of overhead
}

// skipListNode is a node in the skip list.
type skipListNode struct {
	entry   Entry
	forward []*skipListNode
}

// skipList keeps entries ordered by key for O(log n) lookups and ordered scans.
// It does no locking of its own.
type skipList struct {
	head     *skipListNode
	maxLevel int
	level    int
	size     int64
	count    int64
	rng      uint64 // XorShift64 state for level generation
}

const (
	maxSkipListLevel = 16 // Maximum height of skip list
)

func newSkipList() *skipList {
	return &skipList{
		head: &skipListNode{
			forward: make([]*skipListNode, maxSkipListLevel),
		},
		maxLevel: maxSkipListLevel,
		rng:      1,
	}
}

// randomLevel draws a level with P(level increase) = 1/4.
func (s *skipList) randomLevel() int {
	level := 0
	s.next()
	for level < s.maxLevel-1 && (s.rng&0xFFFF) < uint64(0xFFFF/4) {
		level++
		s.next()
	}
	return level
}

func (s *skipList) next() {
	s.rng ^= s.rng << 13
	s.rng ^= s.rng >> 7
	s.rng ^= s.rng << 17
}

// findPath fills update with the rightmost node before key on every level and
// returns the node at level 0 that would follow it.
func (s *skipList) findPath(key []byte, update []*skipListNode) *skipListNode {
	current := s.head
	for i := s.level; i >= 0; i-- {
		for current.forward[i] != nil && bytes.Compare(current.forward[i].entry.Key, key) < 0 {
			current = current.forward[i]
		}
		if update != nil {
			update[i] = current
		}
	}
	return current.forward[0]
}

// put inserts or updates a key-value pair.
func (s *skipList) put(key, value []byte) {
	update := make([]*skipListNode, s.maxLevel)
	next := s.findPath(key, update)

	if next != nil && bytes.Equal(next.entry.Key, key) {
		oldSize := int64(next.entry.Size())
		next.entry.Value = value
		s.size += int64(next.entry.Size()) - oldSize
		return
	}

	level := s.randomLevel()
	if level > s.level {
		for i := s.level + 1; i <= level; i++ {
			update[i] = s.head
		}
		s.level = level
	}

	node := &skipListNode{
		entry:   Entry{Key: key, Value: value},
		forward: make([]*skipListNode, level+1),
	}
	for i := 0; i <= level; i++ {
		node.forward[i] = update[i].forward[i]
		update[i].forward[i] = node
	}

	s.size += int64(node.entry.Size())
	s.count++
}

// get returns the value for key and whether it was present.
func (s *skipList) get(key []byte) ([]byte, bool) {
	next := s.findPath(key, nil)
	if next != nil && bytes.Equal(next.entry.Key, key) {
		return next.entry.Value, true
	}
	return nil, false
}

// remove unlinks key. Returns false if the key was absent.
func (s *skipList) remove(key []byte) bool {
	update := make([]*skipListNode, s.maxLevel)
	next := s.findPath(key, update)
	if next == nil || !bytes.Equal(next.entry.Key, key) {
		return false
	}

	for i := 0; i <= s.level; i++ {
		if update[i].forward[i] != next {
			break
		}
		update[i].forward[i] = next.forward[i]
	}
	for s.level > 0 && s.head.forward[s.level] == nil {
		s.level--
	}

	s.size -= int64(next.entry.Size())
	s.count--
	return true
}

// seek returns the first node whose key is >= key.
func (s *skipList) seek(key []byte) *skipListNode {
	return s.findPath(key, nil)
}

// first returns the lowest node, or nil if the list is empty.
func (s *skipList) first() *skipListNode {
	return s.head.forward[0]
}
