package sim

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TestAuditLogWritesJSONL tests that recorded events land in the file
// as one JSON object per line.
func TestAuditLogWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	a := NewAuditLog()
	if err := a.Start(path); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if !a.Record("place", "p1", 42, map[string]any{"piece": "wall"}) {
		t.Fatal("record should be accepted")
	}
	a.Record("kill", "p2", 43, nil)
	a.Stop()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad audit line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 audit lines, got %d", len(events))
	}
	if events[0].Kind != "place" || events[0].PlayerID != "p1" || events[0].Tick != 42 {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[0].Sequence != 0 || events[1].Sequence != 1 {
		t.Errorf("expected sequences 0 and 1, got %d and %d", events[0].Sequence, events[1].Sequence)
	}
	if events[1].Kind != "kill" {
		t.Errorf("expected the second line to be the kill record, got %+v", events[1])
	}
	if events[0].Fields["piece"] != "wall" {
		t.Errorf("expected piece field, got %v", events[0].Fields)
	}
}

// TestAuditLogStoppedRejects tests that a stopped log refuses records.
func TestAuditLogStoppedRejects(t *testing.T) {
	a := NewAuditLog()
	if a.Record("kill", "p1", 1, nil) {
		t.Error("a log that was never started should reject records")
	}

	a.Start("")
	if !a.Record("kill", "p1", 2, nil) {
		t.Error("a running log should accept records")
	}
	a.Stop()
	if a.Record("kill", "p1", 3, nil) {
		t.Error("a stopped log should reject records")
	}
}

// TestAuditLogStats tests the counter snapshot.
func TestAuditLogStats(t *testing.T) {
	a := NewAuditLog()
	a.Start("")
	defer a.Stop()

	a.Record("join", "p1", 1, nil)
	a.Record("join", "p2", 1, nil)

	stats := a.Stats()
	if stats["total"].(uint64) != 2 {
		t.Errorf("expected total 2, got %v", stats["total"])
	}
	if stats["running"] != true {
		t.Error("expected running=true")
	}
}

// TestAuditLogPlayerRateLimit tests the per-player burst cap.
func TestAuditLogPlayerRateLimit(t *testing.T) {
	a := NewAuditLog()
	a.Start("")
	defer a.Stop()

	accepted := 0
	for i := 0; i < 200; i++ {
		if a.Record("damage", "spammer", uint64(i), nil) {
			accepted++
		}
	}
	if accepted == 200 {
		t.Error("expected the per-player limiter to drop part of the burst")
	}
	if accepted == 0 {
		t.Error("expected the initial burst allowance to pass")
	}
	if a.Stats()["dropped"].(uint64) == 0 {
		t.Error("expected dropped counter to advance")
	}
}
