package sim

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Audit logging for gameplay-significant actions: joins, kills,
// placements, door operations. Records land in an append-only JSONL
// file through a bounded ring and an async writer, so a flood of
// events can never stall the tick loop; under pressure the oldest
// unwritten records are dropped and counted.

const (
	auditRingSize      = 1024
	auditGlobalPerSec  = 5000
	auditPlayerPerSec  = 50
	auditFlushBatch    = 64
	auditFlushInterval = 250 * time.Millisecond
	auditLimiterTTL    = 5 * time.Minute
)

// AuditEvent is one recorded action.
type AuditEvent struct {
	Sequence uint64         `json:"seq"`
	Time     time.Time      `json:"time"`
	Tick     uint64         `json:"tick"`
	Kind     string         `json:"kind"`
	PlayerID string         `json:"playerId,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

type auditLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// AuditLog is a bounded, rate-limited audit sink. Record is safe to
// call from the tick goroutine; the file writer runs on its own.
type AuditLog struct {
	ring      [auditRingSize]AuditEvent
	writeHead uint64 // atomic
	readHead  uint64 // atomic

	globalLimiter  *rate.Limiter
	playerLimiters sync.Map // playerID -> *auditLimiterEntry

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	fileMu sync.Mutex
	file   *os.File

	dropped uint64 // atomic
	total   uint64 // atomic
}

// NewAuditLog creates a stopped audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{
		globalLimiter: rate.NewLimiter(auditGlobalPerSec, auditGlobalPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens the output file and launches the writer. An empty path
// keeps the log running without file output, which tests use.
func (a *AuditLog) Start(path string) error {
	if a.running.Load() {
		return nil
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		a.file = f
	}
	a.running.Store(true)
	a.wg.Add(2)
	go a.writerLoop()
	go a.cleanupLoop()
	return nil
}

// Stop flushes pending records and closes the file.
func (a *AuditLog) Stop() {
	a.stopOnce.Do(func() {
		a.running.Store(false)
		close(a.stopChan)
		a.wg.Wait()

		a.fileMu.Lock()
		if a.file != nil {
			a.file.Close()
		}
		a.fileMu.Unlock()
	})
}

// Record enqueues one event. Returns false when rate limited or
// stopped; callers never treat that as an error.
func (a *AuditLog) Record(kind, playerID string, tick uint64, fields map[string]any) bool {
	if !a.running.Load() {
		return false
	}
	if !a.globalLimiter.Allow() {
		atomic.AddUint64(&a.dropped, 1)
		return false
	}
	if playerID != "" && !a.playerLimiter(playerID).Allow() {
		atomic.AddUint64(&a.dropped, 1)
		return false
	}

	// The reserved slot is the pre-increment value; the writer reads
	// [readHead, writeHead).
	slot := atomic.AddUint64(&a.writeHead, 1) - 1
	tail := atomic.LoadUint64(&a.readHead)
	if slot-tail >= auditRingSize {
		// Overwrite the oldest unwritten record.
		atomic.AddUint64(&a.readHead, 1)
		atomic.AddUint64(&a.dropped, 1)
	}
	a.ring[slot%auditRingSize] = AuditEvent{
		Sequence: slot,
		Time:     time.Now().UTC(),
		Tick:     tick,
		Kind:     kind,
		PlayerID: playerID,
		Fields:   fields,
	}
	atomic.AddUint64(&a.total, 1)
	return true
}

func (a *AuditLog) playerLimiter(playerID string) *rate.Limiter {
	if v, ok := a.playerLimiters.Load(playerID); ok {
		e := v.(*auditLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}
	entry := &auditLimiterEntry{
		limiter:  rate.NewLimiter(auditPlayerPerSec, auditPlayerPerSec/5),
		lastUsed: time.Now(),
	}
	actual, _ := a.playerLimiters.LoadOrStore(playerID, entry)
	return actual.(*auditLimiterEntry).limiter
}

func (a *AuditLog) writerLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	batch := make([]AuditEvent, 0, auditFlushBatch)
	for {
		select {
		case <-a.stopChan:
			for {
				batch = a.collect(batch[:0])
				if len(batch) == 0 {
					return
				}
				a.flush(batch)
			}
		case <-ticker.C:
			batch = a.collect(batch[:0])
			if len(batch) > 0 {
				a.flush(batch)
			}
		}
	}
}

func (a *AuditLog) cleanupLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(auditLimiterTTL)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-auditLimiterTTL)
			a.playerLimiters.Range(func(key, value any) bool {
				if value.(*auditLimiterEntry).lastUsed.Before(cutoff) {
					a.playerLimiters.Delete(key)
				}
				return true
			})
		}
	}
}

func (a *AuditLog) collect(batch []AuditEvent) []AuditEvent {
	head := atomic.LoadUint64(&a.writeHead)
	tail := atomic.LoadUint64(&a.readHead)
	for i := tail; i < head && len(batch) < auditFlushBatch; i++ {
		batch = append(batch, a.ring[i%auditRingSize])
	}
	if len(batch) > 0 {
		atomic.AddUint64(&a.readHead, uint64(len(batch)))
	}
	return batch
}

func (a *AuditLog) flush(batch []AuditEvent) {
	a.fileMu.Lock()
	defer a.fileMu.Unlock()
	if a.file == nil {
		return
	}
	for _, ev := range batch {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		a.file.Write(data)
		a.file.Write([]byte("\n"))
	}
}

// Stats reports counters for monitoring.
func (a *AuditLog) Stats() map[string]any {
	head := atomic.LoadUint64(&a.writeHead)
	tail := atomic.LoadUint64(&a.readHead)
	return map[string]any{
		"total":   atomic.LoadUint64(&a.total),
		"dropped": atomic.LoadUint64(&a.dropped),
		"pending": head - tail,
		"running": a.running.Load(),
	}
}
