package sim

import (
	"math"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/blocks"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
)

// Physics integration for walking entities. Projectiles are integrated
// by their own system; static colliders never move.

const (
	groundContact = 0.05 // feet-to-ground distance still counted as standing
	colliderSkin  = 0.1  // inset for block overlap sampling
)

// StepPhysics advances every mobile collider one timestep: gravity or
// buoyancy on the vertical axis, exponential drag in water, axis-wise
// horizontal movement against terrain and static colliders, then
// vertical resolution with ground snapping.
func StepPhysics(w *World, dt float64) {
	p := &w.Tuning.Physics
	for _, id := range w.store.Query(ecs.CPosition, ecs.CVelocity, ecs.CCollider) {
		col, _ := w.store.Collider(id)
		if col.Static {
			continue
		}
		if w.store.HasComponent(id, ecs.CProjectile) {
			continue
		}
		pos, _ := w.store.Position(id)
		vel, _ := w.store.Velocity(id)

		inWater := w.inWater(pos, col)

		g := p.Gravity
		if inWater {
			g = p.WaterGravity
		}
		vel.VY -= g * dt
		if vel.VY < -p.TerminalVelocity {
			vel.VY = -p.TerminalVelocity
		}
		if inWater {
			drag := math.Exp(-p.WaterDragK * dt)
			vel.VX *= drag
			vel.VZ *= drag
		}

		// Each horizontal axis resolves independently so sliding along
		// a wall works without a contact solver.
		w.moveAxis(id, pos, col, vel.VX*dt, 0)
		w.moveAxis(id, pos, col, 0, vel.VZ*dt)

		pos.Y += vel.VY * dt
		ground := w.supportHeight(id, pos, col)
		if pos.Y <= ground {
			pos.Y = ground
			if vel.VY < 0 {
				vel.VY = 0
			}
		} else if vel.VY <= 0 && pos.Y-ground <= p.GroundSnapTolerance {
			// Walking off a half-step stays glued instead of airborne.
			pos.Y = ground
			vel.VY = 0
		}
	}
}

// moveAxis applies one horizontal displacement, reverting it when the
// new body volume intersects solid terrain or a static collider.
func (w *World) moveAxis(id ecs.EntityID, pos *ecs.Position, col *ecs.Collider, dx, dz float64) {
	if dx == 0 && dz == 0 {
		return
	}
	nx, nz := pos.X+dx, pos.Z+dz
	if w.blockedAt(nx, pos.Y, nz, col) || w.hitsStatic(id, nx, pos.Y, nz, col) {
		return
	}
	pos.X, pos.Z = nx, nz
}

// blockedAt reports whether the body AABB at (x, y, z) overlaps solid
// terrain. The footprint is sampled at its four corners on every block
// layer the body spans, inset by a skin so brushing a face does not
// stick.
func (w *World) blockedAt(x, y, z float64, col *ecs.Collider) bool {
	hw := col.Width/2 - colliderSkin
	hd := col.Depth/2 - colliderSkin
	if hw < 0 {
		hw = 0
	}
	if hd < 0 {
		hd = 0
	}
	yLo := int(math.Floor(y + colliderSkin))
	yHi := int(math.Floor(y + col.Height - colliderSkin))
	for by := yLo; by <= yHi; by++ {
		for _, sx := range [2]float64{x - hw, x + hw} {
			for _, sz := range [2]float64{z - hd, z + hd} {
				if blocks.IsSolid(w.blocks.BlockAt(int(math.Floor(sx)), by, int(math.Floor(sz)))) {
					return true
				}
			}
		}
	}
	return false
}

// hitsStatic reports whether the body AABB at (x, y, z) intersects any
// static collider. Overlap resting exactly on a top face does not
// count, so standing on a foundation is not a collision.
func (w *World) hitsStatic(id ecs.EntityID, x, y, z float64, col *ecs.Collider) bool {
	reach := math.Max(col.Width, col.Depth)/2 + 4
	for _, raw := range w.grid.QueryRadius(x, z, reach) {
		other := ecs.EntityID(raw)
		if other == id {
			continue
		}
		oc, ok := w.store.Collider(other)
		if !ok || !oc.Static {
			continue
		}
		op, ok := w.store.Position(other)
		if !ok {
			continue
		}
		if ds, ok := w.store.DoorState(other); ok && ds.Open {
			continue
		}
		if boxesOverlap(x, y, z, col, op.X, op.Y, op.Z, oc) {
			return true
		}
	}
	return false
}

// boxesOverlap tests two base-anchored AABBs with a vertical contact
// allowance at the top face.
func boxesOverlap(ax, ay, az float64, a *ecs.Collider, bx, by, bz float64, b *ecs.Collider) bool {
	if math.Abs(ax-bx) >= (a.Width+b.Width)/2 {
		return false
	}
	if math.Abs(az-bz) >= (a.Depth+b.Depth)/2 {
		return false
	}
	// Vertical ranges, shaved by the contact allowance.
	aLo, aHi := ay+groundContact, ay+a.Height-groundContact
	bLo, bHi := by, by+b.Height
	return aLo < bHi && bLo < aHi
}

// supportHeight returns the highest standing surface under the body:
// the terrain column at the footprint center and corners, plus the top
// faces of static colliders the footprint overlaps.
func (w *World) supportHeight(id ecs.EntityID, pos *ecs.Position, col *ecs.Collider) float64 {
	hw := col.Width/2 - colliderSkin
	hd := col.Depth/2 - colliderSkin
	if hw < 0 {
		hw = 0
	}
	if hd < 0 {
		hd = 0
	}
	ground := math.Inf(-1)
	samples := [5][2]float64{
		{pos.X, pos.Z},
		{pos.X - hw, pos.Z - hd},
		{pos.X - hw, pos.Z + hd},
		{pos.X + hw, pos.Z - hd},
		{pos.X + hw, pos.Z + hd},
	}
	for _, s := range samples {
		if g := w.columnGround(s[0], pos.Y, s[1]); g > ground {
			ground = g
		}
	}

	for _, raw := range w.grid.QueryRadius(pos.X, pos.Z, math.Max(col.Width, col.Depth)/2+4) {
		other := ecs.EntityID(raw)
		if other == id {
			continue
		}
		oc, ok := w.store.Collider(other)
		if !ok || !oc.Static {
			continue
		}
		op, ok := w.store.Position(other)
		if !ok {
			continue
		}
		if math.Abs(pos.X-op.X) >= (col.Width+oc.Width)/2 || math.Abs(pos.Z-op.Z) >= (col.Depth+oc.Depth)/2 {
			continue
		}
		top := op.Y + oc.Height
		if top <= pos.Y+w.Tuning.Physics.GroundSnapTolerance && top > ground {
			ground = top
		}
	}
	if math.IsInf(ground, -1) {
		return 0
	}
	return ground
}

// columnGround scans the terrain column at (x, z) downward from just
// above the entity's feet and returns the surface height of the first
// solid block.
func (w *World) columnGround(x, fromY, z float64) float64 {
	bx, bz := int(math.Floor(x)), int(math.Floor(z))
	start := int(math.Floor(fromY + 0.5))
	if start > 255 {
		start = 255
	}
	for y := start; y >= 0; y-- {
		if blocks.IsSolid(w.blocks.BlockAt(bx, y, bz)) {
			return float64(y + 1)
		}
	}
	return 0
}

// inWater reports whether the entity's vertical center sits in liquid.
func (w *World) inWater(pos *ecs.Position, col *ecs.Collider) bool {
	bx := int(math.Floor(pos.X))
	by := int(math.Floor(pos.Y + col.Height/2))
	bz := int(math.Floor(pos.Z))
	return blocks.IsLiquid(w.blocks.BlockAt(bx, by, bz))
}

// isGrounded reports whether the entity is standing on a surface, for
// jump gating.
func isGrounded(w *World, id ecs.EntityID) bool {
	pos, ok := w.store.Position(id)
	if !ok {
		return false
	}
	col, ok := w.store.Collider(id)
	if !ok {
		return false
	}
	vel, ok := w.store.Velocity(id)
	if !ok {
		return false
	}
	if vel.VY > 0 {
		return false
	}
	return pos.Y-w.supportHeight(id, pos, col) <= groundContact
}
