package sim

import (
	"math"
	"testing"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/protocol"
)

// builderAt spawns a player with building materials at (x, z).
func builderAt(w *World, x, z float64) ecs.EntityID {
	id := SpawnPlayer(w, x, z)
	inv, _ := w.Store().Inventory(id)
	AddItem(inv, "wood", 500)
	AddItem(inv, "stone", 500)
	AddItem(inv, "metal", 500)
	return id
}

// findPiece returns the first placed piece of the given type.
func findPiece(w *World, pieceType string) (ecs.EntityID, bool) {
	for _, id := range w.Store().Query(ecs.CBuilding) {
		if b, _ := w.Store().Building(id); b != nil && b.PieceType == pieceType {
			return id, true
		}
	}
	return 0, false
}

// TestPlaceFoundation tests the happy path: snap to the grid cell,
// deduct materials, spawn the piece.
func TestPlaceFoundation(t *testing.T) {
	w := newTestWorld()
	builder := builderAt(w, -3, 1.5)
	inv, _ := w.Store().Inventory(builder)
	woodBefore := CountItem(inv, "wood")
	w.rebuildGrid()

	err := HandlePlacement(w, "p1", builder, &protocol.Build{PieceType: "foundation", X: 1, Z: 1})
	if err != nil {
		t.Fatalf("placement failed: %v", err)
	}

	id, ok := findPiece(w, "foundation")
	if !ok {
		t.Fatal("no foundation entity after placement")
	}
	pos, _ := w.Store().Position(id)
	if pos.X != 1.5 || pos.Z != 1.5 {
		t.Errorf("expected snap to cell center (1.5, 1.5), got (%v, %v)", pos.X, pos.Z)
	}
	if pos.Y != 1 {
		t.Errorf("expected foundation on the ground at y=1, got %v", pos.Y)
	}
	b, _ := w.Store().Building(id)
	if b.Tier != 0 {
		t.Errorf("expected tier 0, got %d", b.Tier)
	}
	own, _ := w.Store().Ownership(id)
	if own.OwnerID != "p1" {
		t.Errorf("expected owner p1, got %q", own.OwnerID)
	}
	if got := CountItem(inv, "wood"); got != woodBefore-100 {
		t.Errorf("expected 100 wood deducted, have %d of %d", got, woodBefore)
	}
}

// TestFoundationHalfBlockSnap tests that a requested height above the
// terrain snaps to the nearest half block instead of being flattened
// to the ground.
func TestFoundationHalfBlockSnap(t *testing.T) {
	w := newTestWorld()
	builder := builderAt(w, -3, 1.5)
	w.rebuildGrid()

	err := HandlePlacement(w, "p1", builder, &protocol.Build{PieceType: "foundation", X: 1, Y: 1.3, Z: 1})
	if err != nil {
		t.Fatalf("placement failed: %v", err)
	}
	id, _ := findPiece(w, "foundation")
	pos, _ := w.Store().Position(id)
	if pos.Y != 1.5 {
		t.Errorf("expected y snapped to 1.5, got %v", pos.Y)
	}
}

// TestTerracedFoundationSupport tests that a foundation too high for
// ground support stands when a neighboring cell holds one at its
// level.
func TestTerracedFoundationSupport(t *testing.T) {
	w := newTestWorld()
	builder := builderAt(w, -2, 1.5)

	def, _ := PieceByType("foundation")
	spawnPiece(w, def, 0, 1.5, 4, 1.5, 0, "p1", "", def.HealthAtTier(0))
	w.rebuildGrid()

	err := HandlePlacement(w, "p1", builder, &protocol.Build{PieceType: "foundation", X: 4, Y: 4, Z: 1})
	if err != nil {
		t.Fatalf("adjacent-supported placement failed: %v", err)
	}

	t.Run("no neighbor means no support", func(t *testing.T) {
		w := newTestWorld()
		builder := builderAt(w, -2, 1.5)
		w.rebuildGrid()

		if err := HandlePlacement(w, "p1", builder, &protocol.Build{PieceType: "foundation", X: 4, Y: 4, Z: 1}); err == nil {
			t.Error("expected a floating foundation to be rejected")
		}
	})
}

// TestPillarSnapsToCorner tests that pillars land on grid corners.
func TestPillarSnapsToCorner(t *testing.T) {
	w := newTestWorld()
	builder := builderAt(w, 6, 10)
	w.rebuildGrid()

	if err := HandlePlacement(w, "p1", builder, &protocol.Build{PieceType: "foundation", X: 10, Z: 10}); err != nil {
		t.Fatalf("foundation failed: %v", err)
	}
	if err := HandlePlacement(w, "p1", builder, &protocol.Build{PieceType: "pillar", X: 10, Y: 2.5, Z: 10}); err != nil {
		t.Fatalf("pillar failed: %v", err)
	}

	id, ok := findPiece(w, "pillar")
	if !ok {
		t.Fatal("no pillar entity after placement")
	}
	pos, _ := w.Store().Position(id)
	if pos.X != 9 || pos.Z != 9 {
		t.Errorf("expected pillar at corner (9, 9), got (%v, %v)", pos.X, pos.Z)
	}
}

// TestPlacementRejections tests the validation pipeline; a rejected
// request must deduct nothing.
func TestPlacementRejections(t *testing.T) {
	tests := []struct {
		name string
		req  protocol.Build
	}{
		{"unknown piece", protocol.Build{PieceType: "moat", X: 1, Z: 1}},
		{"nonzero tier", protocol.Build{PieceType: "foundation", Tier: 1, X: 1, Z: 1}},
		{"out of range", protocol.Build{PieceType: "foundation", X: 30, Z: 30}},
		{"wall without support", protocol.Build{PieceType: "wall", X: 10, Z: 10}},
		{"door without doorway", protocol.Build{PieceType: "door", X: 10, Z: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld()
			builder := builderAt(w, tt.req.X-4, tt.req.Z)
			if tt.name == "out of range" {
				builder = builderAt(w, 0, 0)
			}
			inv, _ := w.Store().Inventory(builder)
			woodBefore := CountItem(inv, "wood")
			w.rebuildGrid()

			if err := HandlePlacement(w, "p1", builder, &tt.req); err == nil {
				t.Fatal("expected placement to be rejected")
			}
			if got := CountItem(inv, "wood"); got != woodBefore {
				t.Errorf("rejected placement deducted materials: %d != %d", got, woodBefore)
			}
			if n := len(w.Store().Query(ecs.CBuilding)); n != 0 {
				t.Errorf("rejected placement left %d pieces", n)
			}
		})
	}
}

// TestPlacementObstructed tests that two pieces cannot share a volume.
func TestPlacementObstructed(t *testing.T) {
	w := newTestWorld()
	builder := builderAt(w, -3, 1.5)
	w.rebuildGrid()

	if err := HandlePlacement(w, "p1", builder, &protocol.Build{PieceType: "foundation", X: 1, Z: 1}); err != nil {
		t.Fatalf("first placement failed: %v", err)
	}
	err := HandlePlacement(w, "p1", builder, &protocol.Build{PieceType: "foundation", X: 1, Z: 1})
	if err == nil {
		t.Fatal("expected second placement in the same cell to be rejected")
	}
}

// TestWallOnFoundation tests vertical support chaining.
func TestWallOnFoundation(t *testing.T) {
	w := newTestWorld()
	builder := builderAt(w, 6, 10)
	w.rebuildGrid()

	if err := HandlePlacement(w, "p1", builder, &protocol.Build{PieceType: "foundation", X: 10, Z: 10}); err != nil {
		t.Fatalf("foundation failed: %v", err)
	}
	if err := HandlePlacement(w, "p1", builder, &protocol.Build{PieceType: "wall", X: 10, Y: 2.5, Z: 10}); err != nil {
		t.Fatalf("wall on foundation failed: %v", err)
	}

	id, ok := findPiece(w, "wall")
	if !ok {
		t.Fatal("no wall entity after placement")
	}
	pos, _ := w.Store().Position(id)
	if pos.Z != 12 {
		t.Errorf("expected wall snapped to the +z cell edge, got z=%v", pos.Z)
	}
}

// TestDoorInDoorway tests that a door hangs only in a doorway frame.
func TestDoorInDoorway(t *testing.T) {
	w := newTestWorld()
	builder := builderAt(w, 6, 1)

	frame, _ := PieceByType("doorway")
	spawnPiece(w, frame, 0, 1.5, 0, 3, 0, "p1", "", frame.HealthAtTier(0))
	w.rebuildGrid()

	if err := HandlePlacement(w, "p1", builder, &protocol.Build{PieceType: "door", X: 1, Z: 1}); err != nil {
		t.Fatalf("door in doorway failed: %v", err)
	}
	id, ok := findPiece(w, "door")
	if !ok {
		t.Fatal("no door entity after placement")
	}
	if w.Store().KindOf(id) != ecs.KindDoor {
		t.Error("door piece should carry the door kind")
	}
	if _, ok := w.Store().DoorState(id); !ok {
		t.Error("door piece should carry door state")
	}
}

// TestUpgradeScalesHealth tests one-tier upgrades and proportional
// health carry-over.
func TestUpgradeScalesHealth(t *testing.T) {
	w := newTestWorld()
	builder := builderAt(w, 0, 0)
	def, _ := PieceByType("foundation")
	piece := spawnPiece(w, def, 0, 2, 1, 2, 0, "p1", "", def.HealthAtTier(0))
	hp, _ := w.Store().Health(piece)
	hp.Current = 125 // half damaged

	err := HandleUpgrade(w, "p1", builder, &protocol.Upgrade{Target: int64(piece), Tier: 1})
	if err != nil {
		t.Fatalf("upgrade failed: %v", err)
	}
	if hp.Max != 500 {
		t.Errorf("expected max health 500 at tier 1, got %v", hp.Max)
	}
	if hp.Current != 250 {
		t.Errorf("expected damage fraction to carry over (250), got %v", hp.Current)
	}
	b, _ := w.Store().Building(piece)
	if b.Tier != 1 {
		t.Errorf("expected tier 1, got %d", b.Tier)
	}
	inv, _ := w.Store().Inventory(builder)
	if got := CountItem(inv, "stone"); got != 350 {
		t.Errorf("expected 150 stone deducted, have %d", got)
	}

	t.Run("skipping a tier is rejected", func(t *testing.T) {
		if err := HandleUpgrade(w, "p1", builder, &protocol.Upgrade{Target: int64(piece), Tier: 3}); err == nil {
			t.Error("expected tier skip to be rejected")
		}
	})

	t.Run("strangers cannot upgrade", func(t *testing.T) {
		stranger := builderAt(w, 0, 1)
		if err := HandleUpgrade(w, "p2", stranger, &protocol.Upgrade{Target: int64(piece), Tier: 2}); err == nil {
			t.Error("expected unauthorized upgrade to be rejected")
		}
	})
}

// TestDemolishRefund tests partial material refund and removal.
func TestDemolishRefund(t *testing.T) {
	w := newTestWorld()
	builder := SpawnPlayer(w, 0, 0)
	inv, _ := w.Store().Inventory(builder)
	woodBefore := CountItem(inv, "wood")

	def, _ := PieceByType("foundation")
	piece := spawnPiece(w, def, 0, 2, 1, 2, 0, "p1", "", def.HealthAtTier(0))

	err := HandleDemolish(w, "p1", builder, &protocol.Demolish{Target: int64(piece)})
	if err != nil {
		t.Fatalf("demolish failed: %v", err)
	}
	if w.Store().Exists(piece) {
		t.Error("demolished piece should be removed")
	}
	want := woodBefore + int(math.Floor(100*w.Tuning.Building.DemolishRefund))
	if got := CountItem(inv, "wood"); got != want {
		t.Errorf("expected %d wood after refund, got %d", want, got)
	}
}

// TestTeamCanModify tests that teammates share building rights.
func TestTeamCanModify(t *testing.T) {
	w := newTestWorld()
	mate := w.ConnectPlayer("p2", "Mate", nil)
	w.Store().AddComponent(mate, ecs.COwnership, &ecs.Ownership{OwnerID: "p2", TeamID: "red"})

	def, _ := PieceByType("foundation")
	piece := spawnPiece(w, def, 0, 2, 1, 2, 0, "p1", "red", def.HealthAtTier(0))

	if !w.canModifyBuilding("p2", piece) {
		t.Error("teammate should be allowed to modify a team piece")
	}
	if w.canModifyBuilding("p3", piece) {
		t.Error("stranger should not be allowed to modify the piece")
	}
}
