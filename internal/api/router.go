package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/sim"
)

// stateEntityCap bounds the /api/state response so a huge world cannot
// be used to generate huge responses.
const stateEntityCap = 1000

// StateEngine is the read-side engine surface the HTTP handlers use.
// Interface DI keeps handler tests free of the tick loop.
type StateEngine interface {
	Snapshot() sim.Stats
	WithRead(fn func(w *sim.World))
}

// RouterConfig carries router dependencies.
type RouterConfig struct {
	// Engine serves the read endpoints (required).
	Engine StateEngine

	// Hub serves /ws. Nil leaves the route off, which handler tests use.
	Hub *Hub

	// RateLimiter overrides the default limiter when set.
	RateLimiter *IPRateLimiter

	// RateLimitConfig configures a fresh limiter when RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins extends the localhost development origins.
	CORSOrigins []string

	// DisableLogging turns off the request logger, for benchmarks.
	DisableLogging bool
}

// NewRouter builds the HTTP router. It is pure: no goroutines, no
// listeners, safe to hand straight to httptest.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS so floods are rejected cheaply.
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rlCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rlCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", handleStats(cfg.Engine, cfg.Hub))
		r.Get("/state", handleState(cfg.Engine))
	})

	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWS)
	}

	return r
}

// statsResponse is the /api/stats payload.
type statsResponse struct {
	sim.Stats
	Connections int `json:"connections"`
}

func handleStats(engine StateEngine, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statsResponse{Stats: engine.Snapshot()}
		if hub != nil {
			resp.Connections = hub.SessionCount()
		}
		writeJSON(w, resp)
	}
}

// stateEntity is one entity in the /api/state payload.
type stateEntity struct {
	ID       int64    `json:"id"`
	Kind     string   `json:"kind"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Z        float64  `json:"z"`
	Rotation float64  `json:"rotation"`
	Health   *float64 `json:"health,omitempty"`
}

func handleState(engine StateEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entities []stateEntity
		var tick uint64
		engine.WithRead(func(world *sim.World) {
			tick = world.Tick()
			ids := world.Store().Query(ecs.CPosition)
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			if len(ids) > stateEntityCap {
				ids = ids[:stateEntityCap]
			}
			entities = make([]stateEntity, 0, len(ids))
			for _, id := range ids {
				pos, ok := world.Store().Position(id)
				if !ok {
					continue
				}
				e := stateEntity{
					ID:   int64(id),
					Kind: world.Store().KindOf(id).String(),
					X:    pos.X, Y: pos.Y, Z: pos.Z,
					Rotation: pos.Rotation,
				}
				if hp, ok := world.Store().Health(id); ok {
					v := hp.Current
					e.Health = &v
				}
				entities = append(entities, e)
			}
		})
		writeJSON(w, map[string]any{"tick": tick, "entities": entities})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
