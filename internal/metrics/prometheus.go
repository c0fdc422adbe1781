package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Op identifies a store operation for accounting.
type Op int

const (
	OpGet Op = iota
	OpSet
	OpDelete
	OpScan
	numOps
)

var opNames = [numOps]string{"get", "set", "delete", "scan"}

func (o Op) String() string {
	if o < 0 || o >= numOps {
		return "unknown"
	}
	return opNames[o]
}

// Metrics collects and exposes Prometheus-style metrics for a shared store.
type Metrics struct {
	// Counters
	ops           [numOps]atomic.Uint64
	scannedTotal  atomic.Uint64
	lockErrors    atomic.Uint64
	backendErrors atomic.Uint64

	// Gauges
	clones atomic.Int64

	// Histograms (simplified as averages)
	lockWaitSum atomic.Uint64
	lockWaitN   atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// RecordOp records a completed operation and how long it waited for the lock.
func (m *Metrics) RecordOp(op Op, lockWait time.Duration) {
	if op < 0 || op >= numOps {
		return
	}
	m.ops[op].Add(1)
	m.lockWaitSum.Add(uint64(lockWait.Microseconds()))
	m.lockWaitN.Add(1)
}

// RecordScanned records the number of entries buffered by a scan.
func (m *Metrics) RecordScanned(n int) {
	m.scannedTotal.Add(uint64(n))
}

// RecordLockError records a failed lock acquisition.
func (m *Metrics) RecordLockError() {
	m.lockErrors.Add(1)
}

// RecordBackendError records an error returned by the wrapped backend.
func (m *Metrics) RecordBackendError() {
	m.backendErrors.Add(1)
}

// CloneOpened increments the live handle gauge.
func (m *Metrics) CloneOpened() {
	m.clones.Add(1)
}

// CloneReleased decrements the live handle gauge.
func (m *Metrics) CloneReleased() {
	m.clones.Add(-1)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		uptime := time.Since(m.startTime).Seconds()
		fmt.Fprintf(w, "# HELP kupier_uptime_seconds Time since the collector was created\n")
		fmt.Fprintf(w, "# TYPE kupier_uptime_seconds gauge\n")
		fmt.Fprintf(w, "kupier_uptime_seconds %.2f\n\n", uptime)

		fmt.Fprintf(w, "# HELP kupier_store_ops_total Store operations by kind\n")
		fmt.Fprintf(w, "# TYPE kupier_store_ops_total counter\n")
		for op := Op(0); op < numOps; op++ {
			fmt.Fprintf(w, "kupier_store_ops_total{op=\"%s\"} %d\n", op, m.ops[op].Load())
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "# HELP kupier_scan_entries_total Entries buffered by scans\n")
		fmt.Fprintf(w, "# TYPE kupier_scan_entries_total counter\n")
		fmt.Fprintf(w, "kupier_scan_entries_total %d\n\n", m.scannedTotal.Load())

		fmt.Fprintf(w, "# HELP kupier_lock_errors_total Failed lock acquisitions\n")
		fmt.Fprintf(w, "# TYPE kupier_lock_errors_total counter\n")
		fmt.Fprintf(w, "kupier_lock_errors_total %d\n\n", m.lockErrors.Load())

		fmt.Fprintf(w, "# HELP kupier_backend_errors_total Errors returned by the backend\n")
		fmt.Fprintf(w, "# TYPE kupier_backend_errors_total counter\n")
		fmt.Fprintf(w, "kupier_backend_errors_total %d\n\n", m.backendErrors.Load())

		fmt.Fprintf(w, "# HELP kupier_store_handles Live store handles\n")
		fmt.Fprintf(w, "# TYPE kupier_store_handles gauge\n")
		fmt.Fprintf(w, "kupier_store_handles %d\n\n", m.clones.Load())

		if n := m.lockWaitN.Load(); n > 0 {
			avg := float64(m.lockWaitSum.Load()) / float64(n) / 1000.0 // ms
			fmt.Fprintf(w, "# HELP kupier_lock_wait_ms Average lock wait\n")
			fmt.Fprintf(w, "# TYPE kupier_lock_wait_ms gauge\n")
			fmt.Fprintf(w, "kupier_lock_wait_ms %.3f\n", avg)
		}
	}
}

// Snapshot contains current metric values.
type Snapshot struct {
	Gets          uint64
	Sets          uint64
	Deletes       uint64
	Scans         uint64
	ScannedTotal  uint64
	LockErrors    uint64
	BackendErrors uint64
	Handles       int64
	UptimeSeconds float64
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Gets:          m.ops[OpGet].Load(),
		Sets:          m.ops[OpSet].Load(),
		Deletes:       m.ops[OpDelete].Load(),
		Scans:         m.ops[OpScan].Load(),
		ScannedTotal:  m.scannedTotal.Load(),
		LockErrors:    m.lockErrors.Load(),
		BackendErrors: m.backendErrors.Load(),
		Handles:       m.clones.Load(),
		UptimeSeconds: time.Since(m.startTime).Seconds(),
	}
}
