package sim

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/protocol"
)

// saveEveryTicks is the periodic persistence cadence. 30 seconds at
// the default 20 TPS.
const saveEveryTicks = 600

// Engine drives the world at a fixed tick rate and serializes all
// access to it. The network layer talks to the engine, never to the
// world directly: message submission goes through the lock-free input
// queue, connection changes take the write lock between ticks.
type Engine struct {
	mu          sync.RWMutex
	world       *World
	broadcaster *Broadcaster

	tickDuration time.Duration
	dt           float64

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	// onTick observes each completed tick for metrics. Set before Start.
	onTick func(tick uint64, elapsed time.Duration)
}

// NewEngine wraps a world and wires its broadcaster to the sink.
func NewEngine(world *World, sink Sink) *Engine {
	tickDuration := time.Second / time.Duration(world.Tuning.TickRateHz)
	return &Engine{
		world:        world,
		broadcaster:  NewBroadcaster(sink),
		tickDuration: tickDuration,
		dt:           tickDuration.Seconds(),
		stopChan:     make(chan struct{}),
	}
}

// SetOnTick installs the per-tick metrics callback.
func (e *Engine) SetOnTick(cb func(tick uint64, elapsed time.Duration)) {
	e.onTick = cb
}

// Start launches the tick loop.
func (e *Engine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.wg.Add(1)
	go e.loop()
	log.Printf("engine: started at %d TPS", e.world.Tuning.TickRateHz)
}

// Stop halts the loop and performs a final save.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
		e.wg.Wait()
		e.running.Store(false)

		e.mu.Lock()
		e.world.SaveAll()
		e.mu.Unlock()
		log.Printf("engine: stopped at tick %d", e.world.Tick())
	})
}

func (e *Engine) loop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickDuration)
	defer ticker.Stop()

	broadcastEvery := uint64(e.world.Tuning.BroadcastEveryTicks)

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			start := time.Now()

			e.mu.Lock()
			e.world.Step(e.dt)
			tick := e.world.Tick()
			if tick%broadcastEvery == 0 {
				e.broadcaster.Run(e.world)
			}
			if tick%saveEveryTicks == 0 {
				e.world.SaveAll()
			}
			e.mu.Unlock()

			elapsed := time.Since(start)
			if elapsed > e.tickDuration {
				log.Printf("engine: tick %d overran budget: %v", tick, elapsed)
			}
			if e.onTick != nil {
				e.onTick(tick, elapsed)
			}
		}
	}
}

// Connect attaches a player session and starts delta tracking for it.
func (e *Engine) Connect(clientID, playerID, name string, rec *PlayerRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.world.ConnectPlayer(playerID, name, rec)
	e.broadcaster.AddClient(clientID, playerID)
}

// Disconnect detaches a session. The player's entity lingers through
// the grace window so a quick reconnect resumes seamlessly.
func (e *Engine) Disconnect(clientID, playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcaster.RemoveClient(clientID)
	e.world.DisconnectPlayer(playerID)
}

// Submit queues a validated client message. Safe to call from any
// goroutine; nothing is applied until the next tick drains the queue.
func (e *Engine) Submit(playerID string, env *protocol.Envelope) {
	if env.Type == protocol.TypeInput {
		e.world.Inputs().PushInput(playerID, *env.Input)
		return
	}
	e.world.Inputs().PushAction(playerID, env)
}

// WithRead runs fn with shared access to the world. Used by the HTTP
// state endpoints.
func (e *Engine) WithRead(fn func(w *World)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.world)
}

// Stats is a point-in-time summary for the stats endpoint.
type Stats struct {
	Tick     uint64 `json:"tick"`
	Players  int    `json:"players"`
	Entities int    `json:"entities"`
}

// Snapshot returns current counters.
func (e *Engine) Snapshot() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		Tick:     e.world.Tick(),
		Players:  e.world.PlayerCount(),
		Entities: e.world.Store().Count(),
	}
}
