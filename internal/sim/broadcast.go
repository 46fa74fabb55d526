package sim

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/protocol"
)

// Delta broadcasting. Each client receives only entities inside its
// view radius; the broadcaster keeps a per-client known set so an
// entity drifting out of view is reported as removed to that client
// even though it still exists in the world.

// Sink delivers an encoded payload to one client. Implementations must
// not block the tick loop; slow clients get dropped, not waited on.
type Sink interface {
	Deliver(clientID string, payload []byte)
}

// entityCapture is the networked view of one entity at one broadcast.
type entityCapture struct {
	x, y, z  float64
	rotation float64

	hasHealth bool
	hp, maxHP float64

	kind string

	hasBuilding bool
	piece       string
	tier        int

	hasDoor  bool
	doorOpen bool
}

// changedSince compares two captures using the position and rotation
// epsilons, so sub-epsilon jitter does not generate traffic. Discrete
// fields compare exactly.
func (c *entityCapture) changedSince(prev *entityCapture, posEps, rotEps float64) bool {
	if math.Abs(c.x-prev.x) > posEps || math.Abs(c.y-prev.y) > posEps || math.Abs(c.z-prev.z) > posEps {
		return true
	}
	if math.Abs(c.rotation-prev.rotation) > rotEps {
		return true
	}
	if c.hasHealth != prev.hasHealth || c.hp != prev.hp || c.maxHP != prev.maxHP {
		return true
	}
	if c.kind != prev.kind {
		return true
	}
	if c.hasBuilding != prev.hasBuilding || c.piece != prev.piece || c.tier != prev.tier {
		return true
	}
	if c.hasDoor != prev.hasDoor || c.doorOpen != prev.doorOpen {
		return true
	}
	return false
}

// snapshot renders the capture as wire components.
func (c *entityCapture) snapshot(id ecs.EntityID) protocol.EntitySnapshot {
	comps := map[string]any{
		"position": map[string]any{
			"x": c.x, "y": c.y, "z": c.z, "rotation": c.rotation,
		},
		"kind": c.kind,
	}
	if c.hasHealth {
		comps["health"] = map[string]any{"current": c.hp, "max": c.maxHP}
	}
	if c.hasBuilding {
		comps["building"] = map[string]any{"pieceType": c.piece, "tier": float64(c.tier)}
	}
	if c.hasDoor {
		comps["door"] = map[string]any{"open": c.doorOpen}
	}
	return protocol.EntitySnapshot{EntityID: int64(id), Components: comps}
}

// clientView is the broadcaster's memory of one client.
type clientView struct {
	playerID string
	known    map[ecs.EntityID]struct{}
}

// Broadcaster computes and ships per-client deltas.
type Broadcaster struct {
	sink    Sink
	last    map[ecs.EntityID]*entityCapture
	clients map[string]*clientView
}

// NewBroadcaster creates a broadcaster that writes to the sink.
func NewBroadcaster(sink Sink) *Broadcaster {
	return &Broadcaster{
		sink:    sink,
		last:    make(map[ecs.EntityID]*entityCapture),
		clients: make(map[string]*clientView),
	}
}

// AddClient starts delta tracking for a client. The first broadcast
// after this sends everything in view as created.
func (b *Broadcaster) AddClient(clientID, playerID string) {
	b.clients[clientID] = &clientView{
		playerID: playerID,
		known:    make(map[ecs.EntityID]struct{}),
	}
}

// RemoveClient stops tracking a client.
func (b *Broadcaster) RemoveClient(clientID string) {
	delete(b.clients, clientID)
}

// Run captures the world, diffs it against the previous run, and sends
// each client its personal delta plus any queued events.
func (b *Broadcaster) Run(w *World) {
	cur := b.capture(w)

	posEps := w.Tuning.Broadcast.PositionEpsilon
	rotEps := w.Tuning.Broadcast.RotationEpsilon

	changed := make(map[ecs.EntityID]struct{})
	removed := make(map[ecs.EntityID]struct{})
	for id, c := range cur {
		prev, ok := b.last[id]
		if !ok || c.changedSince(prev, posEps, rotEps) {
			changed[id] = struct{}{}
		}
	}
	for id := range b.last {
		if _, ok := cur[id]; !ok {
			removed[id] = struct{}{}
		}
	}

	notes := w.notify.Drain()

	for clientID, view := range b.clients {
		b.sendDelta(w, clientID, view, cur, changed, removed)
	}
	b.sendEvents(notes)

	b.last = cur
}

// capture snapshots every positioned entity's networked components.
func (b *Broadcaster) capture(w *World) map[ecs.EntityID]*entityCapture {
	out := make(map[ecs.EntityID]*entityCapture, len(b.last))
	for _, id := range w.store.Query(ecs.CPosition) {
		pos, ok := w.store.Position(id)
		if !ok {
			continue
		}
		c := &entityCapture{
			x: pos.X, y: pos.Y, z: pos.Z, rotation: pos.Rotation,
			kind: w.store.KindOf(id).String(),
		}
		if hp, ok := w.store.Health(id); ok {
			c.hasHealth = true
			c.hp, c.maxHP = hp.Current, hp.Max
		}
		if bld, ok := w.store.Building(id); ok {
			c.hasBuilding = true
			c.piece, c.tier = bld.PieceType, bld.Tier
		}
		if ds, ok := w.store.DoorState(id); ok {
			c.hasDoor = true
			c.doorOpen = ds.Open
		}
		out[id] = c
	}
	return out
}

// sendDelta builds and ships one client's delta. Entities entering
// view arrive as created with a full snapshot, in-view changes as
// updated, and anything the client knew that is now gone or out of
// view as removed. An entity never appears as both created and removed
// in the same delta.
func (b *Broadcaster) sendDelta(w *World, clientID string, view *clientView, cur map[ecs.EntityID]*entityCapture, changed, removed map[ecs.EntityID]struct{}) {
	center, ok := w.PlayerEntity(view.playerID)
	if !ok {
		return
	}
	cpos, ok := w.store.Position(center)
	if !ok {
		return
	}
	radius := w.Tuning.ViewRadius

	visible := make(map[ecs.EntityID]struct{}, len(view.known))
	delta := protocol.Delta{Tick: w.Tick()}

	for id, c := range cur {
		if math.Hypot(c.x-cpos.X, c.z-cpos.Z) > radius {
			continue
		}
		visible[id] = struct{}{}
		if _, knew := view.known[id]; !knew {
			delta.Created = append(delta.Created, c.snapshot(id))
		} else if _, ch := changed[id]; ch {
			delta.Updated = append(delta.Updated, c.snapshot(id))
		}
	}
	for id := range view.known {
		_, gone := removed[id]
		_, vis := visible[id]
		if gone || !vis {
			delta.Removed = append(delta.Removed, int64(id))
		}
	}
	view.known = visible

	if delta.Empty() {
		return
	}
	sort.Slice(delta.Created, func(i, j int) bool { return delta.Created[i].EntityID < delta.Created[j].EntityID })
	sort.Slice(delta.Updated, func(i, j int) bool { return delta.Updated[i].EntityID < delta.Updated[j].EntityID })
	sort.Slice(delta.Removed, func(i, j int) bool { return delta.Removed[i] < delta.Removed[j] })

	payload, err := protocol.EncodeDelta(&delta)
	if err != nil {
		return
	}
	b.sink.Deliver(clientID, payload)
}

// wireEvent is the outbound event envelope body.
type wireEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// sendEvents fans queued notifications out: kills, doors and
// explosions go to every client, container contents and rejects only
// to the player they concern.
func (b *Broadcaster) sendEvents(notes Notifications) {
	for _, e := range notes.Kills {
		b.broadcastEvent("kill", e)
	}
	for _, e := range notes.Doors {
		b.broadcastEvent("door", e)
	}
	for _, e := range notes.Explosions {
		b.broadcastEvent("explosion", e)
	}
	for _, e := range notes.Containers {
		if payload, ok := encodeEvent("container", e); ok {
			b.deliverToPlayer(e.PlayerID, payload)
		}
	}
	for _, e := range notes.Rejects {
		msg := protocol.ServerMessage{Type: "reject", Reject: &protocol.Reject{Op: e.Op, Error: e.Error}}
		if payload, err := json.Marshal(msg); err == nil {
			b.deliverToPlayer(e.PlayerID, payload)
		}
	}
}

func (b *Broadcaster) broadcastEvent(name string, data any) {
	payload, ok := encodeEvent(name, data)
	if !ok {
		return
	}
	for clientID := range b.clients {
		b.sink.Deliver(clientID, payload)
	}
}

func (b *Broadcaster) deliverToPlayer(playerID string, payload []byte) {
	for clientID, view := range b.clients {
		if view.playerID == playerID {
			b.sink.Deliver(clientID, payload)
		}
	}
}

func encodeEvent(name string, data any) ([]byte, bool) {
	body, err := json.Marshal(wireEvent{Event: name, Data: data})
	if err != nil {
		return nil, false
	}
	msg := protocol.ServerMessage{Type: "event", Event: body}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, false
	}
	return payload, true
}
