package metrics

import (
	"sync/atomic"
	"time"
)

// Collector collects real-time operation counters for the store and its
// transports. All counters are atomics, so recording never takes a lock.
type Collector struct {
	// Store operation counters
	puts      uint64
	gets      uint64
	getMisses uint64
	deletes   uint64

	// Transaction counters
	txnsStarted    uint64
	txnsCommitted  uint64
	txnsRolledBack uint64

	// Protocol counters
	commandErrors uint64

	// Connection counters
	activeConnections int64
	totalConnections  uint64

	// Start time for uptime calculation
	startTime time.Time
}

// NewCollector creates a new collector.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// RecordPut records a completed PUT.
func (c *Collector) RecordPut() { atomic.AddUint64(&c.puts, 1) }

// RecordGet records a completed GET; miss marks a not-found result.
func (c *Collector) RecordGet(miss bool) {
	atomic.AddUint64(&c.gets, 1)
	if miss {
		atomic.AddUint64(&c.getMisses, 1)
	}
}

// RecordDelete records a completed DEL.
func (c *Collector) RecordDelete() { atomic.AddUint64(&c.deletes, 1) }

// RecordTxnStarted records a successful START.
func (c *Collector) RecordTxnStarted() { atomic.AddUint64(&c.txnsStarted, 1) }

// RecordTxnCommitted records a successful COMMIT.
func (c *Collector) RecordTxnCommitted() { atomic.AddUint64(&c.txnsCommitted, 1) }

// RecordTxnRolledBack records a successful ROLLBACK.
func (c *Collector) RecordTxnRolledBack() { atomic.AddUint64(&c.txnsRolledBack, 1) }

// RecordCommandError records a request answered with an Error envelope.
func (c *Collector) RecordCommandError() { atomic.AddUint64(&c.commandErrors, 1) }

// ConnectionOpened records a newly accepted client connection.
func (c *Collector) ConnectionOpened() {
	atomic.AddInt64(&c.activeConnections, 1)
	atomic.AddUint64(&c.totalConnections, 1)
}

// ConnectionClosed records a client connection ending.
func (c *Collector) ConnectionClosed() {
	atomic.AddInt64(&c.activeConnections, -1)
}

// Stats is a point-in-time snapshot of all counters.
type Stats struct {
	Puts              uint64  `json:"puts"`
	Gets              uint64  `json:"gets"`
	GetMisses         uint64  `json:"get_misses"`
	Deletes           uint64  `json:"deletes"`
	TxnsStarted       uint64  `json:"transactions_started"`
	TxnsCommitted     uint64  `json:"transactions_committed"`
	TxnsRolledBack    uint64  `json:"transactions_rolled_back"`
	CommandErrors     uint64  `json:"command_errors"`
	ActiveConnections int64   `json:"active_connections"`
	TotalConnections  uint64  `json:"total_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// Snapshot returns the current counter values.
func (c *Collector) Snapshot() Stats {
	return Stats{
		Puts:              atomic.LoadUint64(&c.puts),
		Gets:              atomic.LoadUint64(&c.gets),
		GetMisses:         atomic.LoadUint64(&c.getMisses),
		Deletes:           atomic.LoadUint64(&c.deletes),
		TxnsStarted:       atomic.LoadUint64(&c.txnsStarted),
		TxnsCommitted:     atomic.LoadUint64(&c.txnsCommitted),
		TxnsRolledBack:    atomic.LoadUint64(&c.txnsRolledBack),
		CommandErrors:     atomic.LoadUint64(&c.commandErrors),
		ActiveConnections: atomic.LoadInt64(&c.activeConnections),
		TotalConnections:  atomic.LoadUint64(&c.totalConnections),
		UptimeSeconds:     time.Since(c.startTime).Seconds(),
	}
}
