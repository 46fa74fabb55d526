package sim

import (
	"math"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/config"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
)

// Melee resolution and the hit-zone/armor pipeline shared with
// projectiles. All combat math runs on the tick goroutine.

type hitZone int

const (
	zoneLegs hitZone = iota
	zoneTorso
	zoneHead
)

// MeleeAttack resolves one swing. The nearest combatant inside the
// weapon's range, the attacker's view cone and the vertical tolerance
// takes the hit; equal distances break toward the lower entity id so
// resolution is deterministic. Buildings can be hit too, at flat
// damage with no zones or armor.
func MeleeAttack(w *World, playerID string, attacker ecs.EntityID, held *ecs.ItemStack, weapon *WeaponDef) {
	pos, ok := w.store.Position(attacker)
	if !ok {
		return
	}
	c := &w.Tuning.Combat
	fx, fz := math.Sin(pos.Rotation), math.Cos(pos.Rotation)
	halfCone := c.MeleeConeDeg * math.Pi / 360 // half the full cone, in radians

	var best ecs.EntityID
	bestDist := math.Inf(1)
	found := false

	for _, raw := range w.grid.QueryRadius(pos.X, pos.Z, weapon.Range+2) {
		target := ecs.EntityID(raw)
		if target == attacker {
			continue
		}
		if !isMeleeTarget(w, target) {
			continue
		}
		tpos, ok := w.store.Position(target)
		if !ok {
			continue
		}
		dx, dz := tpos.X-pos.X, tpos.Z-pos.Z
		dist := math.Hypot(dx, dz)
		// Reach extends to the target's surface, not its center.
		reach := weapon.Range
		if tcol, ok := w.store.Collider(target); ok {
			reach += tcol.Width / 2
		}
		if dist > reach {
			continue
		}
		if math.Abs(tpos.Y-pos.Y) > c.VerticalTolerance {
			continue
		}
		if dist > 1e-9 {
			dot := (dx*fx + dz*fz) / dist
			if dot < math.Cos(halfCone) {
				continue
			}
		}
		if dist < bestDist || (dist == bestDist && target < best) {
			best, bestDist, found = target, dist, true
		}
	}
	if !found {
		return
	}

	consumeDurability(w, attacker, held)

	tpos, _ := w.store.Position(best)
	dx, dz := tpos.X-pos.X, tpos.Z-pos.Z

	src := damageSource{attackerEntity: attacker, attackerPlayer: playerID, weaponID: held.ItemID}

	if kind := w.store.KindOf(best); kind == ecs.KindBuilding || kind == ecs.KindDoor {
		w.damageBuilding(best, weapon.Damage, src)
		return
	}

	zone := zoneForImpact(c, pos.Y+c.EyeHeight, best, w)
	dmg := mitigatedDamage(w, best, weapon.Damage, zone, weapon.HeadshotCapable)
	applyKnockback(w, best, dx, dz, weapon.Knockback*c.KnockbackScale)
	w.applyDamage(best, dmg, src)
}

// isMeleeTarget reports whether an entity can be struck by melee:
// combatants with health, plus buildings and doors.
func isMeleeTarget(w *World, id ecs.EntityID) bool {
	if !w.store.HasComponent(id, ecs.CHealth) {
		return false
	}
	switch w.store.KindOf(id) {
	case ecs.KindPlayer, ecs.KindNPC, ecs.KindBuilding, ecs.KindDoor:
		return true
	}
	return false
}

// zoneForImpact maps a vertical impact height onto the target's body.
// The impact ratio runs 0 at the feet to 1 at the head.
func zoneForImpact(c *config.CombatTuning, impactY float64, target ecs.EntityID, w *World) hitZone {
	tpos, ok := w.store.Position(target)
	if !ok {
		return zoneTorso
	}
	col, ok := w.store.Collider(target)
	if !ok || col.Height <= 0 {
		return zoneTorso
	}
	ratio := (impactY - tpos.Y) / col.Height
	switch {
	case ratio >= c.HeadZoneRatio:
		return zoneHead
	case ratio >= c.TorsoZoneRatio:
		return zoneTorso
	default:
		return zoneLegs
	}
}

// zoneMultiplier returns the damage multiplier for a zone. Head hits
// from weapons that cannot headshot land as torso hits.
func zoneMultiplier(c *config.CombatTuning, zone hitZone, headshotCapable bool) float64 {
	switch zone {
	case zoneHead:
		if headshotCapable {
			return c.HeadMultiplier
		}
		return c.TorsoMultiplier
	case zoneTorso:
		return c.TorsoMultiplier
	default:
		return c.LegsMultiplier
	}
}

// armorReduction returns the damage fraction absorbed by everything
// the target wears, capped so armor never fully negates a hit. Targets
// without equipment take full damage.
func armorReduction(w *World, target ecs.EntityID) float64 {
	eq, ok := w.store.Equipment(target)
	if !ok {
		return 0
	}
	var total float64
	for _, worn := range []*ecs.ItemStack{eq.Head, eq.Chest, eq.Legs, eq.Feet} {
		if worn == nil {
			continue
		}
		def, ok := ItemByID(worn.ItemID)
		if !ok || def.Armor == nil {
			continue
		}
		total += def.Armor.Reduction
	}
	if limit := w.Tuning.Combat.ArmorReductionCap; total > limit {
		total = limit
	}
	return total
}

// mitigatedDamage runs base damage through the zone multiplier and the
// target's armor. The result is rounded and a landed hit always deals
// at least 1.
func mitigatedDamage(w *World, target ecs.EntityID, base float64, zone hitZone, headshotCapable bool) float64 {
	c := &w.Tuning.Combat
	dmg := math.Round(base * zoneMultiplier(c, zone, headshotCapable) * (1 - armorReduction(w, target)))
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// applyKnockback adds a horizontal impulse away from the attacker,
// scaled down for heavy targets. Mass is approximated from collider
// volume, normalized so a player-sized target takes the impulse as is.
func applyKnockback(w *World, target ecs.EntityID, dx, dz, power float64) {
	if power <= 0 {
		return
	}
	vel, ok := w.store.Velocity(target)
	if !ok {
		return
	}
	dist := math.Hypot(dx, dz)
	if dist < 1e-9 {
		return
	}
	const referenceVolume = playerWidth * playerHeight * playerDepth
	mass := 1.0
	if col, ok := w.store.Collider(target); ok {
		if v := col.Width * col.Height * col.Depth; v > 0 {
			mass = v / referenceVolume
		}
	}
	vel.VX += dx / dist * power / mass
	vel.VZ += dz / dist * power / mass
}

// consumeDurability spends one use of the held weapon, breaking it at
// zero. A broken weapon vanishes from the inventory slot it aliases.
func consumeDurability(w *World, owner ecs.EntityID, held *ecs.ItemStack) {
	def, ok := ItemByID(held.ItemID)
	if !ok || def.Weapon == nil || def.Weapon.MaxDurability == 0 {
		return
	}
	held.Durability--
	if held.Durability > 0 {
		return
	}
	if inv, ok := w.store.Inventory(owner); ok {
		for i, s := range inv.Slots {
			if s == held {
				inv.Slots[i] = nil
				break
			}
		}
	}
	if eq, ok := w.store.Equipment(owner); ok && eq.Held == held {
		eq.Held = nil
	}
}

// damageBuilding applies flat damage to a placed piece and removes it
// at zero health.
func (w *World) damageBuilding(target ecs.EntityID, amount float64, src damageSource) {
	hp, ok := w.store.Health(target)
	if !ok || hp.Current <= 0 {
		return
	}
	hp.Current -= amount
	if hp.Current > 0 {
		return
	}
	w.auditEvent("building_destroyed", src.attackerPlayer, map[string]any{
		"entity": int64(target), "weapon": src.weaponID,
	})
	w.store.DestroyEntity(target)
}
