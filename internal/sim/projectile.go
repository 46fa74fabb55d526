package sim

import (
	"math"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/blocks"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
)

// Projectile firing and flight. Projectiles are real entities so the
// broadcaster streams them like everything else, but they integrate
// here instead of in StepPhysics: flight uses projectile gravity and
// substepped sweep tests so fast arrows cannot tunnel through a wall
// between ticks.

// FireProjectile spends one round of ammo and spawns a projectile at
// the shooter's eye. Returns false without side effects when the
// shooter has no ammo. Spread is sampled uniformly over the weapon's
// cone solid angle, so shots do not cluster on the cone edge.
func FireProjectile(w *World, playerID string, shooter ecs.EntityID, held *ecs.ItemStack, weapon *WeaponDef) bool {
	pos, ok := w.store.Position(shooter)
	if !ok {
		return false
	}
	inv, ok := w.store.Inventory(shooter)
	if !ok {
		return false
	}
	if weapon.AmmoItem != "" && !RemoveItem(inv, weapon.AmmoItem, 1) {
		return false
	}
	consumeDurability(w, shooter, held)

	c := &w.Tuning.Combat
	dx, dy, dz := spreadDirection(w, pos.Rotation, weapon.SpreadDeg)

	id := w.store.CreateEntity()
	w.store.AddComponent(id, ecs.CKind, &ecs.Kind{Kind: ecs.KindProjectile})
	w.store.AddComponent(id, ecs.CPosition, &ecs.Position{
		X: pos.X, Y: pos.Y + c.EyeHeight, Z: pos.Z, Rotation: pos.Rotation,
	})
	w.store.AddComponent(id, ecs.CVelocity, &ecs.Velocity{
		VX: dx * weapon.ProjectileSpeed,
		VY: dy * weapon.ProjectileSpeed,
		VZ: dz * weapon.ProjectileSpeed,
	})
	w.store.AddComponent(id, ecs.CProjectile, &ecs.Projectile{
		SourceEntity: shooter,
		SourcePlayer: playerID,
		WeaponID:     held.ItemID,
		Damage:       weapon.Damage,
		MaxRange:     weapon.MaxRange,
		MaxLifetime:  weapon.MaxLifetime,
	})
	return true
}

// spreadDirection perturbs the straight-ahead aim direction by a
// random angle inside the spread cone. The deflection angle scales
// with sqrt of a uniform sample, which makes the distribution uniform
// per unit solid angle rather than biased toward the center line.
func spreadDirection(w *World, yaw, spreadDeg float64) (x, y, z float64) {
	dx, dy, dz := math.Sin(yaw), 0.0, math.Cos(yaw)
	if spreadDeg <= 0 {
		return dx, dy, dz
	}
	maxTheta := spreadDeg * math.Pi / 360 // half-angle in radians
	theta := maxTheta * math.Sqrt(w.rng.Float64())
	phi := 2 * math.Pi * w.rng.Float64()

	// Orthonormal basis around the aim direction. The aim is always
	// horizontal, so world-up is never parallel to it.
	ux, uy, uz := 0.0, 1.0, 0.0
	vx, vz := uy*dz-uz*dy, ux*dy-uy*dx // up x dir, horizontal
	sinT, cosT := math.Sin(theta), math.Cos(theta)
	sinP, cosP := math.Sin(phi), math.Cos(phi)

	x = dx*cosT + (vx*cosP+ux*sinP)*sinT
	y = dy*cosT + uy*sinP*sinT
	z = dz*cosT + (vz*cosP+uz*sinP)*sinT
	return x, y, z
}

// UpdateProjectiles advances every projectile one timestep, resolving
// at most one impact per projectile per tick.
func UpdateProjectiles(w *World, dt float64) {
	c := &w.Tuning.Combat
	for _, id := range w.store.Query(ecs.CProjectile, ecs.CPosition, ecs.CVelocity) {
		if !w.store.Exists(id) {
			continue
		}
		proj, _ := w.store.Projectile(id)
		pos, _ := w.store.Position(id)
		vel, _ := w.store.Velocity(id)

		proj.Age += dt
		if proj.Age > proj.MaxLifetime || proj.Traveled > proj.MaxRange {
			w.store.DestroyEntity(id)
			continue
		}

		vel.VY -= c.ProjectileGravity * dt

		stepX, stepY, stepZ := vel.VX*dt, vel.VY*dt, vel.VZ*dt
		length := math.Sqrt(stepX*stepX + stepY*stepY + stepZ*stepZ)
		n := 1
		if c.MaxSubstepDistance > 0 {
			n = int(math.Ceil(length / c.MaxSubstepDistance))
			if n < 1 {
				n = 1
			}
		}

		hit := false
		for s := 0; s < n && !hit; s++ {
			pos.X += stepX / float64(n)
			pos.Y += stepY / float64(n)
			pos.Z += stepZ / float64(n)
			proj.Traveled += length / float64(n)

			// Range is exhausted mid-flight, never a whole tick late.
			if proj.Traveled > proj.MaxRange {
				w.store.DestroyEntity(id)
				hit = true
				break
			}
			if blocks.IsSolid(w.blocks.BlockAt(int(math.Floor(pos.X)), int(math.Floor(pos.Y)), int(math.Floor(pos.Z)))) {
				w.projectileImpact(id, proj, pos, 0)
				hit = true
				break
			}
			if target, ok := w.projectileTarget(id, proj, pos); ok {
				w.projectileImpact(id, proj, pos, target)
				hit = true
				break
			}
		}
	}
}

// projectileTarget finds the first entity whose AABB contains the
// projectile point. The shooter is immune to their own shot.
func (w *World) projectileTarget(id ecs.EntityID, proj *ecs.Projectile, pos *ecs.Position) (ecs.EntityID, bool) {
	for _, raw := range w.grid.QueryRadius(pos.X, pos.Z, 3) {
		target := ecs.EntityID(raw)
		if target == id || target == proj.SourceEntity {
			continue
		}
		if !isMeleeTarget(w, target) {
			continue
		}
		tpos, ok := w.store.Position(target)
		if !ok {
			continue
		}
		col, ok := w.store.Collider(target)
		if !ok {
			continue
		}
		if ds, ok := w.store.DoorState(target); ok && ds.Open {
			continue
		}
		if math.Abs(pos.X-tpos.X) > col.Width/2 || math.Abs(pos.Z-tpos.Z) > col.Depth/2 {
			continue
		}
		if pos.Y < tpos.Y || pos.Y > tpos.Y+col.Height {
			continue
		}
		return target, true
	}
	return 0, false
}

// projectileImpact resolves a hit and destroys the projectile exactly
// once. A zero target means terrain.
func (w *World) projectileImpact(id ecs.EntityID, proj *ecs.Projectile, pos *ecs.Position, target ecs.EntityID) {
	weapon, _ := WeaponByID(proj.WeaponID)
	src := damageSource{
		attackerEntity: proj.SourceEntity,
		attackerPlayer: proj.SourcePlayer,
		weaponID:       proj.WeaponID,
	}

	if weapon != nil && weapon.Explosive {
		w.explodeAt(pos.X, pos.Y, pos.Z, weapon.ExplosionRadius, proj.Damage, src)
		w.store.DestroyEntity(id)
		return
	}

	if target != 0 {
		vel, _ := w.store.Velocity(id)
		kind := w.store.KindOf(target)
		if kind == ecs.KindBuilding || kind == ecs.KindDoor {
			w.damageBuilding(target, proj.Damage, src)
		} else {
			c := &w.Tuning.Combat
			zone := zoneForImpact(c, pos.Y, target, w)
			headshot := weapon != nil && weapon.HeadshotCapable
			dmg := mitigatedDamage(w, target, proj.Damage, zone, headshot)
			if vel != nil {
				kb := 1.0
				if weapon != nil {
					kb = weapon.Knockback
				}
				applyKnockback(w, target, vel.VX, vel.VZ, kb*c.KnockbackScale)
			}
			w.applyDamage(target, dmg, src)
		}
	}
	w.store.DestroyEntity(id)
}

// explodeAt applies area damage with linear falloff from the center.
// Combatants take torso-zone mitigated damage; buildings take the
// flat falloff amount.
func (w *World) explodeAt(x, y, z, radius, base float64, src damageSource) {
	w.notify.PushExplosion(ExplosionEvent{Tick: w.tick, X: x, Y: y, Z: z, Radius: radius})
	w.auditEvent("explosion", src.attackerPlayer, map[string]any{"x": x, "y": y, "z": z, "radius": radius})

	for _, raw := range w.grid.QueryRadius(x, z, radius) {
		target := ecs.EntityID(raw)
		if !isMeleeTarget(w, target) {
			continue
		}
		tpos, ok := w.store.Position(target)
		if !ok {
			continue
		}
		col, _ := w.store.Collider(target)
		centerY := tpos.Y
		if col != nil {
			centerY += col.Height / 2
		}
		d := math.Sqrt((tpos.X-x)*(tpos.X-x) + (centerY-y)*(centerY-y) + (tpos.Z-z)*(tpos.Z-z))
		if d > radius {
			continue
		}
		dmg := base * (1 - d/radius)
		if dmg <= 0 {
			continue
		}
		if kind := w.store.KindOf(target); kind == ecs.KindBuilding || kind == ecs.KindDoor {
			w.damageBuilding(target, dmg, src)
			continue
		}
		applyKnockback(w, target, tpos.X-x, tpos.Z-z, dmg/10*w.Tuning.Combat.KnockbackScale)
		w.applyDamage(target, mitigatedDamage(w, target, dmg, zoneTorso, false), src)
	}
}
