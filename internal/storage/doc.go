// Package storage defines the key-value Store contract used by the paged
// storage engine, together with an in-memory backend and a concurrency-safe
// adapter for sharing one backend between several owners.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────────────┐
//	│  Shared (clone) ─┐                                            │
//	│  Shared (clone) ─┼─► sharedCell{RWMutex, poisoned} ─► Store   │
//	│  Shared (clone) ─┘                                            │
//	├──────────────────────────────────────────────────────────────┤
//	│  Reads:  Get, Scan take the read lock                         │
//	│  Writes: Set, Delete take the write lock                      │
//	│  Scan:   drain backend under lock → release → slice iterator  │
//	└──────────────────────────────────────────────────────────────┘
//
// Key components:
//   - Store: get/set/delete/scan/flush over byte-string keys and values
//   - Range: inclusive, exclusive or unbounded scan endpoints
//   - Memory: skip-list backed ordered map, not goroutine-safe on its own
//   - Shared: clonable handle guarding one backend with a read/write lock
package storage
