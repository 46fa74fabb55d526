package sim

import (
	"math"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/blocks"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/protocol"
)

// Building placement, upgrade and demolition. Placement runs a fixed
// validation pipeline; the first failing check rejects the request and
// nothing is deducted.

// HandlePlacement validates and executes a build request. Pieces are
// always placed at the lowest tier; upgrades raise the tier afterward.
func HandlePlacement(w *World, playerID string, builder ecs.EntityID, req *protocol.Build) error {
	def, ok := PieceByType(req.PieceType)
	if !ok {
		return errReject("unknown piece type %q", req.PieceType)
	}
	if req.Tier != 0 {
		return errReject("pieces are placed at tier 0")
	}

	ppos, ok := w.store.Position(builder)
	if !ok {
		return errReject("no builder position")
	}
	if math.Hypot(req.X-ppos.X, req.Z-ppos.Z) > w.Tuning.Building.PlaceRange {
		return errReject("out of placement range")
	}

	x, y, z, rotation := snapPlacement(w, def, req)

	if !w.hasSupport(def, x, y, z) {
		return errReject("no structural support")
	}
	if w.placementBlocked(def, x, y, z) {
		return errReject("placement obstructed")
	}

	inv, ok := w.store.Inventory(builder)
	if !ok {
		return errReject("no inventory")
	}
	cost := def.CostAtTier(0)
	if !HasMaterials(inv, cost) {
		return errReject("missing materials")
	}
	DeductMaterials(inv, cost)

	ownerTeam := ""
	if own, ok := w.store.Ownership(builder); ok {
		ownerTeam = own.TeamID
	}
	id := spawnPiece(w, def, 0, x, y, z, rotation, playerID, ownerTeam, def.HealthAtTier(0))
	w.grid.Insert(int64(id), x, z)
	w.auditEvent("place", playerID, map[string]any{
		"entity": int64(id), "piece": def.Type, "x": x, "y": y, "z": z,
	})
	return nil
}

// snapPlacement quantizes a requested pose onto the building grid.
// Horizontal pieces snap their center to cell centers; vertical pieces
// snap to the cell edge selected by the rotation quadrant, so a wall
// always lands flush with the side of its cell.
func snapPlacement(w *World, def PieceDef, req *protocol.Build) (x, y, z, rotation float64) {
	g := w.Tuning.Building.GridSize

	cellX := math.Floor(req.X/g)*g + g/2
	cellZ := math.Floor(req.Z/g)*g + g/2

	// Rotation quantizes to quarter turns.
	q := int(math.Round(req.Rotation/(math.Pi/2)))%4 + 4
	q %= 4
	rotation = float64(q) * (math.Pi / 2)

	x, z = cellX, cellZ
	switch def.Category {
	case CategoryPillar:
		// Pillars stand on cell corners, not centers.
		x = math.Floor(req.X/g) * g
		z = math.Floor(req.Z/g) * g
	case CategoryWall, CategoryDoorway, CategoryFence, CategoryDoor:
		// Offset to the cell edge the quadrant faces: 0 = +Z, 1 = +X,
		// 2 = -Z, 3 = -X.
		switch q {
		case 0:
			z = cellZ + g/2
		case 1:
			x = cellX + g/2
		case 2:
			z = cellZ - g/2
		case 3:
			x = cellX - g/2
		}
	}

	switch def.Category {
	case CategoryFoundation:
		// Half-block vertical snapping; a foundation never sinks below
		// the terrain surface.
		y = math.Round(req.Y*2) / 2
		if ground := w.groundHeight(x, z); y < ground {
			y = ground
		}
	default:
		// Stack on whole wall-height levels above the requested Y.
		wallH := w.Tuning.Building.WallHeight
		y = math.Round(req.Y/wallH) * wallH
		if y < 0 {
			y = 0
		}
	}
	return x, y, z, rotation
}

// hasSupport enforces the structural rules: foundations sit on solid
// ground, walls and their kin stand on a foundation or floor, elevated
// floors and roofs need a supporting piece within the support radius
// at or below their level.
func (w *World) hasSupport(def PieceDef, x, y, z float64) bool {
	switch def.Category {
	case CategoryFoundation:
		ground := w.groundHeight(x, z)
		if math.Abs(y-ground) <= w.Tuning.Building.GridSize/2 &&
			blocks.IsSolid(w.blocks.BlockAt(int(math.Floor(x)), int(math.Floor(ground))-1, int(math.Floor(z)))) {
			return true
		}
		return w.adjacentFoundation(x, y, z)
	case CategoryWall, CategoryDoorway, CategoryFence, CategoryPillar:
		return w.pieceBelow(x, y, z)
	case CategoryDoor:
		return w.doorwayAt(x, y, z) != 0
	case CategoryFloor, CategoryRoof:
		if y <= w.groundHeight(x, z)+w.Tuning.Physics.GroundSnapTolerance {
			return true
		}
		return w.supportNearby(x, y, z)
	}
	return false
}

// adjacentFoundation reports whether a foundation occupies a
// neighboring grid cell at a similar height, which lets terraces
// extend off ground-supported foundations.
func (w *World) adjacentFoundation(x, y, z float64) bool {
	g := w.Tuning.Building.GridSize
	for _, raw := range w.grid.QueryRadius(x, z, g*1.5) {
		id := ecs.EntityID(raw)
		b, ok := w.store.Building(id)
		if !ok {
			continue
		}
		def, ok := PieceByType(b.PieceType)
		if !ok || def.Category != CategoryFoundation {
			continue
		}
		pos, _ := w.store.Position(id)
		if pos == nil {
			continue
		}
		dx, dz := math.Abs(pos.X-x), math.Abs(pos.Z-z)
		sideBySide := (math.Abs(dx-g) <= 0.1 && dz <= 0.1) ||
			(math.Abs(dz-g) <= 0.1 && dx <= 0.1)
		if sideBySide && math.Abs(pos.Y-y) <= g/2 {
			return true
		}
	}
	return false
}

// pieceBelow reports whether a foundation or floor top sits directly
// under (x, y, z).
func (w *World) pieceBelow(x, y, z float64) bool {
	for _, raw := range w.grid.QueryRadius(x, z, w.Tuning.Building.GridSize) {
		id := ecs.EntityID(raw)
		b, ok := w.store.Building(id)
		if !ok {
			continue
		}
		def, ok := PieceByType(b.PieceType)
		if !ok || (def.Category != CategoryFoundation && def.Category != CategoryFloor) {
			continue
		}
		pos, _ := w.store.Position(id)
		if pos == nil {
			continue
		}
		if math.Abs(pos.X-x) > def.Width/2 || math.Abs(pos.Z-z) > def.Depth/2 {
			continue
		}
		top := pos.Y + def.Height
		if math.Abs(top-y) <= 0.5 {
			return true
		}
	}
	return false
}

// supportNearby reports whether any building piece within the support
// radius reaches up to the target level.
func (w *World) supportNearby(x, y, z float64) bool {
	r := w.Tuning.Building.SupportRadius
	for _, raw := range w.grid.QueryRadius(x, z, r) {
		id := ecs.EntityID(raw)
		b, ok := w.store.Building(id)
		if !ok {
			continue
		}
		def, ok := PieceByType(b.PieceType)
		if !ok {
			continue
		}
		pos, _ := w.store.Position(id)
		if pos == nil || math.Hypot(pos.X-x, pos.Z-z) > r {
			continue
		}
		top := pos.Y + def.Height
		if top >= y-0.5 && pos.Y <= y {
			return true
		}
	}
	return false
}

// doorwayAt finds the doorway frame a door would hang in.
func (w *World) doorwayAt(x, y, z float64) ecs.EntityID {
	for _, raw := range w.grid.QueryRadius(x, z, w.Tuning.Building.GridSize) {
		id := ecs.EntityID(raw)
		b, ok := w.store.Building(id)
		if !ok || b.PieceType != "doorway" {
			continue
		}
		pos, _ := w.store.Position(id)
		if pos == nil {
			continue
		}
		if math.Hypot(pos.X-x, pos.Z-z) <= 1.0 && math.Abs(pos.Y-y) <= 0.5 {
			return id
		}
	}
	return 0
}

// placementBlocked reports whether the new piece's volume, shrunk by
// the collision epsilon, intersects an existing collider. The epsilon
// lets flush pieces share faces without rejecting each other.
func (w *World) placementBlocked(def PieceDef, x, y, z float64) bool {
	eps := w.Tuning.Building.CollisionEpsilon
	body := &ecs.Collider{
		Width:  def.Width - 2*eps,
		Height: def.Height - 2*eps,
		Depth:  def.Depth - 2*eps,
	}
	if body.Width < 0 {
		body.Width = 0
	}
	if body.Height < 0 {
		body.Height = 0
	}
	if body.Depth < 0 {
		body.Depth = 0
	}
	reach := math.Max(def.Width, def.Depth)/2 + 4
	for _, raw := range w.grid.QueryRadius(x, z, reach) {
		other := ecs.EntityID(raw)
		oc, ok := w.store.Collider(other)
		if !ok {
			continue
		}
		if w.store.HasComponent(other, ecs.CProjectile) {
			continue
		}
		// A door necessarily shares its volume with the doorway frame it
		// hangs in.
		if def.Category == CategoryDoor {
			if b, ok := w.store.Building(other); ok && b.PieceType == "doorway" {
				continue
			}
		}
		op, ok := w.store.Position(other)
		if !ok {
			continue
		}
		if boxesOverlap(x, y+eps, z, body, op.X, op.Y, op.Z, oc) {
			return true
		}
	}
	return false
}

// HandleUpgrade raises a piece one tier, deducting the new tier's cost
// and scaling current health proportionally so damage carries over.
func HandleUpgrade(w *World, playerID string, builder ecs.EntityID, req *protocol.Upgrade) error {
	target := ecs.EntityID(req.Target)
	b, ok := w.store.Building(target)
	if !ok {
		return errReject("no such building")
	}
	if !w.canModifyBuilding(playerID, target) {
		return errReject("not authorized")
	}
	def, _ := PieceByType(b.PieceType)
	if req.Tier != b.Tier+1 {
		return errReject("upgrades go one tier at a time")
	}
	newMax := def.HealthAtTier(req.Tier)
	if newMax <= 0 {
		return errReject("no such tier")
	}
	if !w.withinReach(builder, target) {
		return errReject("out of range")
	}
	inv, ok := w.store.Inventory(builder)
	if !ok {
		return errReject("no inventory")
	}
	cost := def.CostAtTier(req.Tier)
	if !HasMaterials(inv, cost) {
		return errReject("missing materials")
	}
	DeductMaterials(inv, cost)

	hp, _ := w.store.Health(target)
	if hp != nil && hp.Max > 0 {
		hp.Current = hp.Current / hp.Max * newMax
		hp.Max = newMax
	}
	b.Tier = req.Tier
	w.auditEvent("upgrade", playerID, map[string]any{"entity": req.Target, "tier": req.Tier})
	return nil
}

// HandleDemolish removes an owned piece and refunds part of its
// current-tier cost, rounded down per material.
func HandleDemolish(w *World, playerID string, builder ecs.EntityID, req *protocol.Demolish) error {
	target := ecs.EntityID(req.Target)
	b, ok := w.store.Building(target)
	if !ok {
		return errReject("no such building")
	}
	if !w.canModifyBuilding(playerID, target) {
		return errReject("not authorized")
	}
	if !w.withinReach(builder, target) {
		return errReject("out of range")
	}
	def, _ := PieceByType(b.PieceType)
	refund := w.Tuning.Building.DemolishRefund
	if inv, ok := w.store.Inventory(builder); ok {
		for _, c := range def.CostAtTier(b.Tier) {
			back := int(math.Floor(float64(c.Quantity) * refund))
			if back > 0 {
				AddItem(inv, c.ItemID, back)
			}
		}
	}
	w.store.DestroyEntity(target)
	w.auditEvent("demolish", playerID, map[string]any{"entity": req.Target, "piece": b.PieceType})
	return nil
}

// canModifyBuilding checks ownership: the owner, their team, or an
// explicitly authorized player.
func (w *World) canModifyBuilding(playerID string, target ecs.EntityID) bool {
	own, ok := w.store.Ownership(target)
	if !ok {
		return false
	}
	if own.OwnerID == playerID {
		return true
	}
	if own.TeamID != "" {
		if ps, ok := w.players[playerID]; ok {
			if po, ok := w.store.Ownership(ps.entity); ok && po.TeamID == own.TeamID {
				return true
			}
		}
	}
	for _, a := range own.Authorized {
		if a == playerID {
			return true
		}
	}
	return false
}

// withinReach checks the builder is close enough to operate on a
// target entity.
func (w *World) withinReach(builder, target ecs.EntityID) bool {
	bp, ok := w.store.Position(builder)
	if !ok {
		return false
	}
	tp, ok := w.store.Position(target)
	if !ok {
		return false
	}
	return math.Hypot(tp.X-bp.X, tp.Z-bp.Z) <= w.Tuning.Building.PlaceRange
}
