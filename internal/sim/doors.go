package sim

import (
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/protocol"
)

// Door toggling, container access and the timed lock operation.

// lockDelayTicks is how long a lock takes to engage after the key is
// consumed. One second at 20 TPS.
const lockDelayTicks = 20

// HandleInteract toggles a door or opens a container or loot bag.
func HandleInteract(w *World, playerID string, ps *playerState, req *protocol.Interact) error {
	target := ecs.EntityID(req.Target)
	if !w.store.Exists(target) {
		return errReject("no such entity")
	}
	if !w.withinReach(ps.entity, target) {
		return errReject("out of range")
	}

	switch w.store.KindOf(target) {
	case ecs.KindDoor:
		return w.toggleDoor(playerID, target, req.Code)
	case ecs.KindContainer:
		return w.openContainer(playerID, target, req.Code)
	case ecs.KindLootBag:
		return w.collectLootBag(playerID, ps.entity, target)
	}
	return errReject("not interactable")
}

// toggleDoor flips a door open or closed. A locked door opens only for
// authorized players or the correct code; a correct code also
// authorizes the player for future toggles.
func (w *World) toggleDoor(playerID string, door ecs.EntityID, code string) error {
	ds, ok := w.store.DoorState(door)
	if !ok {
		return errReject("no door state")
	}
	if ds.LockCode != "" && !doorAuthorized(ds, playerID) {
		if code != ds.LockCode {
			return errReject("locked")
		}
		ds.Authorized = append(ds.Authorized, playerID)
	}
	ds.Open = !ds.Open
	pos, _ := w.store.Position(door)
	ev := DoorEvent{Tick: w.tick, Entity: int64(door), Open: ds.Open}
	if pos != nil {
		ev.X, ev.Y, ev.Z = pos.X, pos.Y, pos.Z
	}
	w.notify.PushDoor(ev)
	w.auditEvent("door_toggle", playerID, map[string]any{"entity": int64(door), "open": ds.Open})
	return nil
}

// doorAuthorized reports whether a player may pass a locked door
// without the code.
func doorAuthorized(ds *ecs.DoorState, playerID string) bool {
	if ds.OwnerID == playerID {
		return true
	}
	for _, a := range ds.Authorized {
		if a == playerID {
			return true
		}
	}
	return false
}

// openContainer sends the container's contents to the requesting
// player. Locked containers open only for their owner circle.
func (w *World) openContainer(playerID string, box ecs.EntityID, code string) error {
	if own, ok := w.store.Ownership(box); ok && own.Locked {
		if !w.canModifyBuilding(playerID, box) {
			return errReject("locked")
		}
		_ = code
	}
	inv, ok := w.store.Inventory(box)
	if !ok {
		return errReject("no contents")
	}
	w.notify.PushContainer(ContainerEvent{
		Tick:     w.tick,
		Entity:   int64(box),
		PlayerID: playerID,
		Slots:    ContainerSlots(inv),
	})
	return nil
}

// collectLootBag moves as much of the bag as fits into the collector's
// inventory. An emptied bag disappears immediately; leftovers keep the
// bag (and its despawn timer) alive.
func (w *World) collectLootBag(playerID string, collector, bag ecs.EntityID) error {
	bagInv, ok := w.store.Inventory(bag)
	if !ok {
		return errReject("no contents")
	}
	inv, ok := w.store.Inventory(collector)
	if !ok {
		return errReject("no inventory")
	}
	if TransferAll(bagInv, inv) {
		delete(w.lootExpiry, bag)
		w.store.DestroyEntity(bag)
	} else {
		w.notify.PushContainer(ContainerEvent{
			Tick:     w.tick,
			Entity:   int64(bag),
			PlayerID: playerID,
			Slots:    ContainerSlots(bagInv),
		})
	}
	w.auditEvent("loot_collect", playerID, map[string]any{"entity": int64(bag)})
	return nil
}

// HandleLock starts the timed lock operation on a door the player may
// modify. The key is consumed up front; cancelling or losing the door
// before completion does not refund it.
func HandleLock(w *World, playerID string, ps *playerState, req *protocol.Lock) error {
	if req.Code == "" {
		return errReject("empty lock code")
	}
	if ps.pending != nil {
		return errReject("operation already pending")
	}
	target := ecs.EntityID(req.Target)
	if w.store.KindOf(target) != ecs.KindDoor {
		return errReject("not a door")
	}
	if !w.withinReach(ps.entity, target) {
		return errReject("out of range")
	}
	if !w.canModifyBuilding(playerID, target) {
		return errReject("not authorized")
	}
	inv, ok := w.store.Inventory(ps.entity)
	if !ok || !RemoveItem(inv, "key_lock", 1) {
		return errReject("no key lock")
	}
	ps.pending = &pendingOp{
		op:           "lock",
		target:       target,
		code:         req.Code,
		completeTick: w.tick + lockDelayTicks,
	}
	return nil
}

// HandleCancel aborts the player's pending operation. Consumed
// materials stay spent. Cancelling with nothing pending is a no-op.
func HandleCancel(w *World, playerID string, ps *playerState) error {
	if ps.pending == nil {
		return nil
	}
	ps.pending = nil
	w.auditEvent("cancel", playerID, nil)
	return nil
}
