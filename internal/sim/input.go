package sim

import (
	"sync"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/protocol"
)

// InputQueue buffers client messages between ticks. Network goroutines
// push asynchronously; the tick loop drains everything atomically once
// per tick, so simulation order is deterministic regardless of network
// jitter. Inputs are never applied on arrival.
type InputQueue struct {
	mu sync.Mutex

	// moves keeps only the latest movement sample per player within a
	// tick; stale samples are superseded, not replayed.
	moves map[string]protocol.Input

	// acts preserves arrival order for request/response operations.
	acts []QueuedAction
}

// QueuedAction is one non-movement request awaiting the next tick.
type QueuedAction struct {
	PlayerID string
	Env      *protocol.Envelope
}

// NewInputQueue returns an empty queue.
func NewInputQueue() *InputQueue {
	return &InputQueue{moves: make(map[string]protocol.Input)}
}

// PushInput records a movement sample, superseding any earlier sample
// from the same player this tick. Out-of-order samples (by seq) are
// dropped.
func (q *InputQueue) PushInput(playerID string, in protocol.Input) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if prev, ok := q.moves[playerID]; ok && in.Seq <= prev.Seq {
		return
	}
	q.moves[playerID] = in
}

// PushAction appends a request to the ordered action queue.
func (q *InputQueue) PushAction(playerID string, env *protocol.Envelope) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acts = append(q.acts, QueuedAction{PlayerID: playerID, Env: env})
}

// Drain atomically takes everything buffered so far.
func (q *InputQueue) Drain() (map[string]protocol.Input, []QueuedAction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	moves := q.moves
	acts := q.acts
	q.moves = make(map[string]protocol.Input, len(moves))
	q.acts = nil
	return moves, acts
}
