package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/blocks"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/config"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/sim"
)

// fakeEngine serves handler tests without a running tick loop.
type fakeEngine struct {
	world *sim.World
	stats sim.Stats
}

func (f *fakeEngine) Snapshot() sim.Stats          { return f.stats }
func (f *fakeEngine) WithRead(fn func(*sim.World)) { fn(f.world) }

func newTestRouter(t *testing.T) (*fakeEngine, http.Handler) {
	t.Helper()
	engine := &fakeEngine{
		world: sim.NewWorld(config.DefaultTuning(), blocks.NewFlatProvider(), 1),
	}
	router := NewRouter(RouterConfig{
		Engine:         engine,
		DisableLogging: true,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 10000,
			Burst:             10000,
			CleanupInterval:   defaultTestCleanup,
		},
	})
	return engine, router
}

// TestHealthz tests the liveness endpoint.
func TestHealthz(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("expected body OK, got %q", rec.Body.String())
	}
}

// TestStatsEndpoint tests the counter payload.
func TestStatsEndpoint(t *testing.T) {
	engine, router := newTestRouter(t)
	engine.stats = sim.Stats{Tick: 77, Players: 3, Entities: 12}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Tick        uint64 `json:"tick"`
		Players     int    `json:"players"`
		Entities    int    `json:"entities"`
		Connections int    `json:"connections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad stats payload: %v", err)
	}
	if resp.Tick != 77 || resp.Players != 3 || resp.Entities != 12 {
		t.Errorf("unexpected stats: %+v", resp)
	}
	if resp.Connections != 0 {
		t.Errorf("expected 0 connections without a hub, got %d", resp.Connections)
	}
}

// TestStateEndpoint tests the entity listing.
func TestStateEndpoint(t *testing.T) {
	engine, router := newTestRouter(t)
	npcID := sim.SpawnNPC(engine.world, 3, 5, 50)
	sim.SpawnLootBag(engine.world, -2, 1, 4)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Tick     uint64 `json:"tick"`
		Entities []struct {
			ID     int64    `json:"id"`
			Kind   string   `json:"kind"`
			X      float64  `json:"x"`
			Z      float64  `json:"z"`
			Health *float64 `json:"health"`
		} `json:"entities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad state payload: %v", err)
	}
	if len(resp.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(resp.Entities))
	}
	// IDs come back sorted ascending.
	if resp.Entities[0].ID > resp.Entities[1].ID {
		t.Errorf("entities not sorted: %d before %d", resp.Entities[0].ID, resp.Entities[1].ID)
	}

	var foundNPC bool
	for _, e := range resp.Entities {
		if e.ID == int64(npcID) {
			foundNPC = true
			if e.X != 3 || e.Z != 5 {
				t.Errorf("unexpected npc position: %+v", e)
			}
			if e.Health == nil || *e.Health != 50 {
				t.Errorf("expected npc health 50, got %v", e.Health)
			}
		}
	}
	if !foundNPC {
		t.Error("npc missing from state payload")
	}
}

// TestStateEntityCap tests that huge worlds produce bounded responses.
func TestStateEntityCap(t *testing.T) {
	engine, router := newTestRouter(t)
	for i := 0; i < stateEntityCap+50; i++ {
		sim.SpawnNPC(engine.world, float64(i%30), float64(i/30), 10)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/state", nil))

	var resp struct {
		Entities []json.RawMessage `json:"entities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad state payload: %v", err)
	}
	if len(resp.Entities) != stateEntityCap {
		t.Errorf("expected the response capped at %d entities, got %d", stateEntityCap, len(resp.Entities))
	}
}

// TestRateLimitRejects tests the 429 path through the middleware.
func TestRateLimitRejects(t *testing.T) {
	engine := &fakeEngine{
		world: sim.NewWorld(config.DefaultTuning(), blocks.NewFlatProvider(), 1),
	}
	router := NewRouter(RouterConfig{
		Engine:         engine,
		DisableLogging: true,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 0.001,
			Burst:             2,
			CleanupInterval:   defaultTestCleanup,
		},
	})

	var lastCode int
	var lastHeader http.Header
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/healthz", nil)
		req.RemoteAddr = "203.0.113.9:5000"
		router.ServeHTTP(rec, req)
		lastCode = rec.Code
		lastHeader = rec.Header()
	}
	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", lastCode)
	}
	if lastHeader.Get("Retry-After") == "" {
		t.Error("expected a Retry-After header on 429")
	}
}
