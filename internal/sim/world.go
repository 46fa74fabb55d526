package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/blocks"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/config"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/protocol"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/sim/spatial"
)

// worldExtent is the square play area the broad-phase grid covers.
const worldExtent = 4096

// pendingOp is a timed operation in flight for one player. Only door
// locking uses this today: the key is consumed up front and the lock
// engages after a delay unless the player cancels.
type pendingOp struct {
	op           string
	target       ecs.EntityID
	code         string
	completeTick uint64
}

// playerState is the per-connection bookkeeping the world keeps beside
// the player's entity.
type playerState struct {
	entity ecs.EntityID
	name   string

	lastAttackTime float64 // world-clock seconds of last swing or shot
	pending        *pendingOp

	// graceDeadline is the tick at which a disconnected player's entity
	// is reclaimed. Zero while connected.
	graceDeadline uint64
}

// World owns the entire simulation state and advances it one fixed
// tick at a time. It is not safe for concurrent use; the engine
// serializes all access.
type World struct {
	Tuning config.Tuning

	store  *ecs.Store
	blocks blocks.Provider
	rng    *rand.Rand

	tick    uint64
	timeSec float64

	players map[string]*playerState
	grid    *spatial.Grid
	limiter *ActionLimiter
	notify  *Notifications
	inputs  *InputQueue

	// lootExpiry maps loot-bag entities to their despawn tick.
	lootExpiry map[ecs.EntityID]uint64

	repo  Repository // nil when persistence is disabled
	audit *AuditLog  // nil when auditing is disabled
}

// NewWorld creates an empty world over the given terrain.
func NewWorld(tuning config.Tuning, provider blocks.Provider, seed int64) *World {
	return &World{
		Tuning:     tuning,
		store:      ecs.NewStore(),
		blocks:     provider,
		rng:        rand.New(rand.NewSource(seed)),
		players:    make(map[string]*playerState),
		grid:       spatial.NewGrid(worldExtent, 16),
		limiter:    NewActionLimiter(),
		notify:     NewNotifications(),
		inputs:     NewInputQueue(),
		lootExpiry: make(map[ecs.EntityID]uint64),
	}
}

// SetRepository wires the save path. Must be called before Step.
func (w *World) SetRepository(repo Repository) { w.repo = repo }

// SetAuditLog wires the audit event sink. Must be called before Step.
func (w *World) SetAuditLog(a *AuditLog) { w.audit = a }

// Store exposes the component store for read-side consumers (HTTP
// state endpoints, tests). Callers must hold the engine lock.
func (w *World) Store() *ecs.Store { return w.store }

// Inputs exposes the input queue for the network layer. The queue has
// its own lock, so pushes do not need the engine lock.
func (w *World) Inputs() *InputQueue { return w.inputs }

// Tick returns the current tick counter.
func (w *World) Tick() uint64 { return w.tick }

// Blocks returns the terrain provider.
func (w *World) Blocks() blocks.Provider { return w.blocks }

// Step advances the simulation by one fixed timestep. All queued
// inputs are drained first, then systems run in a fixed order so the
// outcome of a tick depends only on world state and the drained queue.
func (w *World) Step(dt float64) {
	w.tick++
	w.timeSec += dt

	moves, acts := w.inputs.Drain()

	w.rebuildGrid()
	w.applyMovement(moves, dt)
	StepPhysics(w, dt)
	UpdateProjectiles(w, dt)
	w.processActions(acts)
	w.tickPendingOps()
	w.expireLootBags()
	w.reclaimDisconnected()
}

// rebuildGrid repopulates the broad-phase grid from scratch. Entities
// without a position (pure data holders) are skipped.
func (w *World) rebuildGrid() {
	w.grid.Clear()
	for _, id := range w.store.Query(ecs.CPosition) {
		if pos, ok := w.store.Position(id); ok {
			w.grid.Insert(int64(id), pos.X, pos.Z)
		}
	}
}

// applyMovement consumes the latest movement sample per player.
func (w *World) applyMovement(moves map[string]protocol.Input, dt float64) {
	for playerID, in := range moves {
		ps, ok := w.players[playerID]
		if !ok || ps.graceDeadline != 0 {
			continue
		}
		t := &w.Tuning
		if !w.limiter.Allow(playerID, ActionInput, w.tick, t.RateLimits.InputWindowTicks, t.RateLimits.InputMax) {
			continue
		}
		id := ps.entity
		pos, ok := w.store.Position(id)
		if !ok {
			continue
		}
		vel, ok := w.store.Velocity(id)
		if !ok {
			continue
		}

		pos.Rotation = in.Rotation

		speed := t.Movement.MoveSpeed
		if in.Sprint && !in.Crouch {
			speed *= t.Movement.SprintFactor
		}
		if in.Crouch {
			speed *= t.Movement.CrouchFactor
		}

		// Yaw 0 faces +Z; the basis rotates with the player.
		sin, cos := math.Sin(in.Rotation), math.Cos(in.Rotation)
		fx, fz := sin, cos
		rx, rz := cos, -sin
		mx := in.Forward*fx + in.Right*rx
		mz := in.Forward*fz + in.Right*rz
		if mag := math.Hypot(mx, mz); mag > 1 {
			mx /= mag
			mz /= mag
		}
		vel.VX = mx * speed
		vel.VZ = mz * speed

		if in.Jump && isGrounded(w, id) {
			vel.VY = t.Movement.JumpVelocity
		}

		w.applySelectedSlot(id, in.SelectedSlot)

		if in.PrimaryAction {
			w.performPrimary(playerID, ps)
		}
	}
}

// applySelectedSlot points the held-item slot at the selected
// inventory slot when it holds a weapon or tool, and clears it
// otherwise. The stack stays in the inventory; Held aliases it so
// durability loss is visible in both places.
func (w *World) applySelectedSlot(id ecs.EntityID, slot int) {
	inv, ok := w.store.Inventory(id)
	if !ok {
		return
	}
	eq, ok := w.store.Equipment(id)
	if !ok {
		return
	}
	if slot < 0 || slot >= len(inv.Slots) {
		eq.Held = nil
		return
	}
	st := inv.Slots[slot]
	if st == nil {
		eq.Held = nil
		return
	}
	if _, ok := WeaponByID(st.ItemID); !ok {
		eq.Held = nil
		return
	}
	eq.Held = st
}

// HandleEquip wears the armor item in the requested inventory slot.
// Whatever occupied its body slot swaps back into the inventory, so
// the operation never loses an item.
func HandleEquip(w *World, playerID string, ps *playerState, req *protocol.Equip) error {
	inv, ok := w.store.Inventory(ps.entity)
	if !ok {
		return errReject("no inventory")
	}
	if req.Slot < 0 || req.Slot >= len(inv.Slots) {
		return errReject("slot out of range")
	}
	st := inv.Slots[req.Slot]
	if st == nil {
		return errReject("empty slot")
	}
	def, ok := ItemByID(st.ItemID)
	if !ok || def.Armor == nil {
		return errReject("%q is not wearable", st.ItemID)
	}
	eq, ok := w.store.Equipment(ps.entity)
	if !ok {
		return errReject("no equipment")
	}
	var worn **ecs.ItemStack
	switch def.Armor.Slot {
	case SlotHead:
		worn = &eq.Head
	case SlotChest:
		worn = &eq.Chest
	case SlotLegs:
		worn = &eq.Legs
	case SlotFeet:
		worn = &eq.Feet
	default:
		return errReject("%q is not wearable", st.ItemID)
	}
	inv.Slots[req.Slot] = *worn
	*worn = st
	w.auditEvent("equip", playerID, map[string]any{"item": st.ItemID})
	return nil
}

// performPrimary routes the primary action to melee or ranged
// depending on the held weapon. Bare hands do nothing.
func (w *World) performPrimary(playerID string, ps *playerState) {
	eq, ok := w.store.Equipment(ps.entity)
	if !ok || eq.Held == nil {
		return
	}
	weapon, ok := WeaponByID(eq.Held.ItemID)
	if !ok {
		return
	}
	if w.timeSec-ps.lastAttackTime < 1.0/weapon.AttackRate {
		return
	}
	if weapon.Ranged {
		t := &w.Tuning
		if !w.limiter.Allow(playerID, ActionFire, w.tick, t.RateLimits.FireWindowTicks, t.RateLimits.FireMax) {
			return
		}
		if FireProjectile(w, playerID, ps.entity, eq.Held, weapon) {
			ps.lastAttackTime = w.timeSec
		}
		return
	}
	MeleeAttack(w, playerID, ps.entity, eq.Held, weapon)
	ps.lastAttackTime = w.timeSec
}

// processActions runs queued request/response operations in arrival
// order. Each class carries its own rate limit; rejected requests are
// answered with a reject notification rather than silently dropped.
func (w *World) processActions(acts []QueuedAction) {
	t := &w.Tuning
	for _, qa := range acts {
		ps, ok := w.players[qa.PlayerID]
		if !ok || ps.graceDeadline != 0 || !w.store.Exists(ps.entity) {
			continue
		}
		env := qa.Env
		switch env.Type {
		case protocol.TypeBuild, protocol.TypeUpgrade, protocol.TypeDemolish:
			if !w.limiter.Allow(qa.PlayerID, ActionBuild, w.tick, t.RateLimits.BuildWindowTicks, t.RateLimits.BuildMax) {
				w.notify.PushReject(qa.PlayerID, string(env.Type), "rate limited")
				continue
			}
		case protocol.TypeInteract, protocol.TypeEquip, protocol.TypeLock, protocol.TypeCancel:
			if !w.limiter.Allow(qa.PlayerID, ActionInteract, w.tick, t.RateLimits.InteractWindowTicks, t.RateLimits.InteractMax) {
				w.notify.PushReject(qa.PlayerID, string(env.Type), "rate limited")
				continue
			}
		}

		var err error
		switch env.Type {
		case protocol.TypeBuild:
			err = HandlePlacement(w, qa.PlayerID, ps.entity, env.Build)
		case protocol.TypeUpgrade:
			err = HandleUpgrade(w, qa.PlayerID, ps.entity, env.Upgrade)
		case protocol.TypeDemolish:
			err = HandleDemolish(w, qa.PlayerID, ps.entity, env.Demolish)
		case protocol.TypeInteract:
			err = HandleInteract(w, qa.PlayerID, ps, env.Interact)
		case protocol.TypeEquip:
			err = HandleEquip(w, qa.PlayerID, ps, env.Equip)
		case protocol.TypeLock:
			err = HandleLock(w, qa.PlayerID, ps, env.Lock)
		case protocol.TypeCancel:
			err = HandleCancel(w, qa.PlayerID, ps)
		default:
			continue
		}
		if err != nil {
			w.notify.PushReject(qa.PlayerID, string(env.Type), err.Error())
		}
	}
}

// tickPendingOps completes timed operations whose delay elapsed. The
// target is re-checked at completion; a vanished target makes the
// operation a no-op (the consumed key is not refunded).
func (w *World) tickPendingOps() {
	for playerID, ps := range w.players {
		op := ps.pending
		if op == nil || w.tick < op.completeTick {
			continue
		}
		ps.pending = nil
		if op.op != "lock" {
			continue
		}
		ds, ok := w.store.DoorState(op.target)
		if !ok {
			continue
		}
		ds.LockCode = op.code
		ds.Authorized = []string{playerID}
		if own, ok := w.store.Ownership(op.target); ok {
			own.Locked = true
			own.Authorized = []string{playerID}
		}
		w.auditEvent("door_lock", playerID, map[string]any{"entity": int64(op.target)})
	}
}

// expireLootBags removes bags whose lifetime ran out.
func (w *World) expireLootBags() {
	for id, deadline := range w.lootExpiry {
		if w.tick < deadline {
			continue
		}
		delete(w.lootExpiry, id)
		if w.store.Exists(id) {
			w.store.DestroyEntity(id)
		}
	}
}

// reclaimDisconnected removes entities of players whose disconnect
// grace expired, saving them first.
func (w *World) reclaimDisconnected() {
	for playerID, ps := range w.players {
		if ps.graceDeadline == 0 || w.tick < ps.graceDeadline {
			continue
		}
		w.savePlayer(playerID, ps)
		if w.store.Exists(ps.entity) {
			w.store.DestroyEntity(ps.entity)
		}
		delete(w.players, playerID)
		w.limiter.Forget(playerID)
		w.auditEvent("player_reclaimed", playerID, nil)
	}
}

// ConnectPlayer attaches a player to the world, spawning an entity or
// reattaching to one still inside its disconnect grace window. The
// optional record restores a previously saved player.
func (w *World) ConnectPlayer(playerID, name string, rec *PlayerRecord) ecs.EntityID {
	if ps, ok := w.players[playerID]; ok && w.store.Exists(ps.entity) {
		ps.graceDeadline = 0
		return ps.entity
	}

	var id ecs.EntityID
	if rec != nil {
		id = SpawnPlayerFromRecord(w, rec)
	} else {
		x, z := w.spawnPoint()
		id = SpawnPlayer(w, x, z)
	}
	w.players[playerID] = &playerState{entity: id, name: name}
	w.auditEvent("player_join", playerID, map[string]any{"entity": int64(id)})
	return id
}

// DisconnectPlayer starts the grace countdown. The entity stays in the
// world and remains attackable until the grace expires or the player
// reconnects.
func (w *World) DisconnectPlayer(playerID string) {
	ps, ok := w.players[playerID]
	if !ok {
		return
	}
	ps.graceDeadline = w.tick + w.Tuning.DisconnectGraceTicks
	ps.pending = nil
	w.auditEvent("player_leave", playerID, nil)
}

// PlayerEntity resolves a connected player's entity.
func (w *World) PlayerEntity(playerID string) (ecs.EntityID, bool) {
	ps, ok := w.players[playerID]
	if !ok {
		return 0, false
	}
	return ps.entity, true
}

// PlayerCount returns the number of attached players, including those
// inside the disconnect grace window.
func (w *World) PlayerCount() int { return len(w.players) }

// spawnPoint picks a fresh spawn location near the origin.
func (w *World) spawnPoint() (x, z float64) {
	x = (w.rng.Float64() - 0.5) * 32
	z = (w.rng.Float64() - 0.5) * 32
	return x, z
}

// groundHeight returns the Y coordinate of the first air block above
// solid ground at (x, z), scanning a bounded column.
func (w *World) groundHeight(x, z float64) float64 {
	bx, bz := int(math.Floor(x)), int(math.Floor(z))
	for y := 255; y >= 0; y-- {
		if blocks.IsSolid(w.blocks.BlockAt(bx, y, bz)) {
			return float64(y + 1)
		}
	}
	return 0
}

// savePlayer captures and queues a player save. No-op without a
// repository.
func (w *World) savePlayer(playerID string, ps *playerState) {
	if w.repo == nil {
		return
	}
	if rec, ok := recordFromPlayer(w.store, playerID, ps.name, ps.entity); ok {
		w.repo.SavePlayer(rec)
	}
}

// SaveAll queues saves for every attached player and the full set of
// building pieces. The engine calls this periodically and on shutdown.
func (w *World) SaveAll() {
	if w.repo == nil {
		return
	}
	for playerID, ps := range w.players {
		w.savePlayer(playerID, ps)
	}
	w.repo.SaveBuildings(w.BuildingRecords())
}

// BuildingRecords captures every placed piece in storable form.
func (w *World) BuildingRecords() []BuildingRecord {
	ids := w.store.Query(ecs.CBuilding, ecs.CPosition)
	out := make([]BuildingRecord, 0, len(ids))
	for _, id := range ids {
		b, _ := w.store.Building(id)
		pos, _ := w.store.Position(id)
		rec := BuildingRecord{
			PieceType: b.PieceType,
			Tier:      b.Tier,
			X:         pos.X, Y: pos.Y, Z: pos.Z,
			Rotation: pos.Rotation,
		}
		if hp, ok := w.store.Health(id); ok {
			rec.Health = hp.Current
		}
		if own, ok := w.store.Ownership(id); ok {
			rec.OwnerID = own.OwnerID
			rec.TeamID = own.TeamID
		}
		out = append(out, rec)
	}
	return out
}

// damageSource identifies who dealt a hit, for kill attribution.
type damageSource struct {
	attackerEntity ecs.EntityID
	attackerPlayer string
	weaponID       string
}

// applyDamage reduces a target's health and handles death. Damage is
// post-mitigation; armor is resolved by the caller.
func (w *World) applyDamage(target ecs.EntityID, amount float64, src damageSource) {
	hp, ok := w.store.Health(target)
	if !ok || hp.Current <= 0 {
		return
	}
	hp.Current -= amount
	w.auditEvent("damage", src.attackerPlayer, map[string]any{
		"target": int64(target), "amount": amount, "weapon": src.weaponID,
	})
	if hp.Current > 0 {
		return
	}
	hp.Current = 0
	w.handleDeath(target, src)
}

// handleDeath drops the victim's carried items into a loot bag, emits
// the kill event, and either respawns (players) or removes (others)
// the victim.
func (w *World) handleDeath(victim ecs.EntityID, src damageSource) {
	kind := w.store.KindOf(victim)
	victimPlayer := w.playerIDFor(victim)

	w.notify.PushKill(KillEvent{
		Tick:         w.tick,
		KillerPlayer: src.attackerPlayer,
		VictimEntity: int64(victim),
		VictimPlayer: victimPlayer,
		VictimKind:   kind.String(),
		WeaponID:     src.weaponID,
		PvP:          src.attackerPlayer != "" && victimPlayer != "",
	})
	w.auditEvent("kill", src.attackerPlayer, map[string]any{
		"victim": int64(victim), "kind": kind.String(), "weapon": src.weaponID,
	})

	w.dropCarriedItems(victim)

	if kind == ecs.KindPlayer && victimPlayer != "" {
		w.respawnPlayer(victim)
		return
	}
	w.store.DestroyEntity(victim)
}

// dropCarriedItems moves the victim's inventory and equipment into a
// fresh loot bag at the victim's position. No bag spawns when there is
// nothing to drop.
func (w *World) dropCarriedItems(victim ecs.EntityID) {
	pos, ok := w.store.Position(victim)
	if !ok {
		return
	}
	inv, _ := w.store.Inventory(victim)
	eq, _ := w.store.Equipment(victim)

	var loose []*ecs.ItemStack
	if eq != nil {
		for _, st := range []*ecs.ItemStack{eq.Head, eq.Chest, eq.Legs, eq.Feet} {
			if st != nil {
				loose = append(loose, st)
			}
		}
		// Held aliases an inventory slot, so it is already covered.
		eq.Head, eq.Chest, eq.Legs, eq.Feet, eq.Held = nil, nil, nil, nil, nil
	}

	hasItems := len(loose) > 0 || (inv != nil && !IsEmpty(inv))
	if !hasItems {
		return
	}

	bag := SpawnLootBag(w, pos.X, pos.Y, pos.Z)
	bagInv, _ := w.store.Inventory(bag)
	if inv != nil {
		TransferAll(inv, bagInv)
	}
	for _, st := range loose {
		AddItem(bagInv, st.ItemID, st.Quantity)
	}
	if IsEmpty(bagInv) {
		delete(w.lootExpiry, bag)
		w.store.DestroyEntity(bag)
	}
}

// respawnPlayer resets a dead player entity in place of destroying it:
// fresh health, fresh starter inventory, new spawn position. The
// entity id is kept so the connection does not need rebinding.
func (w *World) respawnPlayer(id ecs.EntityID) {
	x, z := w.spawnPoint()
	if pos, ok := w.store.Position(id); ok {
		pos.X, pos.Z = x, z
		pos.Y = w.groundHeight(x, z)
		pos.Rotation = 0
	}
	if vel, ok := w.store.Velocity(id); ok {
		vel.VX, vel.VY, vel.VZ = 0, 0, 0
	}
	if hp, ok := w.store.Health(id); ok {
		hp.Current = hp.Max
	}
	w.store.AddComponent(id, ecs.CInventory, starterInventory())
}

// playerIDFor reverse-maps an entity to its player id.
func (w *World) playerIDFor(id ecs.EntityID) string {
	for playerID, ps := range w.players {
		if ps.entity == id {
			return playerID
		}
	}
	return ""
}

// auditEvent forwards to the audit log when one is attached.
func (w *World) auditEvent(kind, playerID string, fields map[string]any) {
	if w.audit == nil {
		return
	}
	w.audit.Record(kind, playerID, w.tick, fields)
}

// errReject builds the short operation errors returned to clients.
func errReject(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
