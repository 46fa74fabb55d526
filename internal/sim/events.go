package sim

import "github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"

// Notification drain queues. Systems push during the tick; the
// broadcaster drains once per tick and fans out to clients. Everything
// runs on the tick goroutine, so no locking is needed — the queues are
// fields on the world context, not globals, so separate worlds never
// interfere.

// KillEvent records a lethal hit for external observers (kill feed,
// stat tracking).
type KillEvent struct {
	Tick         uint64 `json:"tick"`
	KillerPlayer string `json:"killerPlayer,omitempty"`
	VictimEntity int64  `json:"victimEntity"`
	VictimPlayer string `json:"victimPlayer,omitempty"`
	VictimKind   string `json:"victimKind"`
	WeaponID     string `json:"weaponId"`
	PvP          bool   `json:"pvp"`
}

// DoorEvent records a door state change.
type DoorEvent struct {
	Tick   uint64  `json:"tick"`
	Entity int64   `json:"entity"`
	Open   bool    `json:"open"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
}

// ContainerEvent carries container contents to the opening player.
type ContainerEvent struct {
	Tick     uint64      `json:"tick"`
	Entity   int64       `json:"entity"`
	PlayerID string      `json:"playerId"` // only this player receives it
	Slots    []SlotEntry `json:"slots"`
}

// SlotEntry is one occupied inventory slot on the wire.
type SlotEntry struct {
	Slot     int    `json:"slot"`
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// ExplosionEvent records an area detonation.
type ExplosionEvent struct {
	Tick   uint64  `json:"tick"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Radius float64 `json:"radius"`
}

// RejectEvent reports a locally rejected request to its sender.
type RejectEvent struct {
	PlayerID string `json:"-"`
	Op       string `json:"op"`
	Error    string `json:"error"`
}

// Notifications is the set of per-tick drain queues.
type Notifications struct {
	Kills      []KillEvent
	Doors      []DoorEvent
	Containers []ContainerEvent
	Explosions []ExplosionEvent
	Rejects    []RejectEvent
}

// NewNotifications returns empty queues.
func NewNotifications() *Notifications {
	return &Notifications{}
}

// PushKill enqueues a kill event.
func (n *Notifications) PushKill(e KillEvent) { n.Kills = append(n.Kills, e) }

// PushDoor enqueues a door event.
func (n *Notifications) PushDoor(e DoorEvent) { n.Doors = append(n.Doors, e) }

// PushContainer enqueues a container contents event.
func (n *Notifications) PushContainer(e ContainerEvent) { n.Containers = append(n.Containers, e) }

// PushExplosion enqueues an explosion event.
func (n *Notifications) PushExplosion(e ExplosionEvent) { n.Explosions = append(n.Explosions, e) }

// PushReject enqueues a rejection aimed at one player.
func (n *Notifications) PushReject(playerID, op, errMsg string) {
	n.Rejects = append(n.Rejects, RejectEvent{PlayerID: playerID, Op: op, Error: errMsg})
}

// Drain returns the queued events and resets the queues.
func (n *Notifications) Drain() Notifications {
	out := Notifications{
		Kills:      n.Kills,
		Doors:      n.Doors,
		Containers: n.Containers,
		Explosions: n.Explosions,
		Rejects:    n.Rejects,
	}
	n.Kills = nil
	n.Doors = nil
	n.Containers = nil
	n.Explosions = nil
	n.Rejects = nil
	return out
}

// ContainerSlots converts an inventory to wire slot entries.
func ContainerSlots(inv *ecs.Inventory) []SlotEntry {
	out := make([]SlotEntry, 0, len(inv.Slots))
	for i, s := range inv.Slots {
		if s == nil {
			continue
		}
		out = append(out, SlotEntry{Slot: i, ItemID: s.ItemID, Quantity: s.Quantity})
	}
	return out
}
