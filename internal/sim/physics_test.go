package sim

import (
	"math"
	"testing"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/blocks"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/config"
)

// newTestWorld builds a world on flat grass with a water pool at
// (40, 40)..(41, 41), deterministic seed.
func newTestWorld() *World {
	provider := &blocks.FlatProvider{
		GroundY: 0,
		Pools: map[[2]int]int{
			{40, 40}: 3,
			{41, 40}: 3,
			{40, 41}: 3,
			{41, 41}: 3,
		},
	}
	return NewWorld(config.DefaultTuning(), provider, 1)
}

const testDT = 0.05

// TestFallToGround verifies an airborne entity falls and lands on the
// terrain surface.
func TestFallToGround(t *testing.T) {
	w := newTestWorld()
	id := SpawnPlayer(w, 0, 0)
	pos, _ := w.store.Position(id)
	pos.Y = 5

	for i := 0; i < 200; i++ {
		StepPhysics(w, testDT)
	}

	if pos.Y != 1 {
		t.Errorf("expected to rest on ground at y=1, got %v", pos.Y)
	}
	vel, _ := w.store.Velocity(id)
	if vel.VY != 0 {
		t.Errorf("expected zero vertical velocity at rest, got %v", vel.VY)
	}
}

// TestTerminalVelocity verifies fall speed is clamped.
func TestTerminalVelocity(t *testing.T) {
	w := newTestWorld()
	id := SpawnPlayer(w, 0, 0)
	pos, _ := w.store.Position(id)
	pos.Y = 10000

	vel, _ := w.store.Velocity(id)
	for i := 0; i < 100; i++ {
		StepPhysics(w, testDT)
	}

	limit := w.Tuning.Physics.TerminalVelocity
	if -vel.VY > limit+1e-9 {
		t.Errorf("fall speed %v exceeds terminal velocity %v", -vel.VY, limit)
	}
}

// TestGroundSnap verifies a small downward step stays glued to the
// surface instead of going airborne.
func TestGroundSnap(t *testing.T) {
	w := newTestWorld()
	id := SpawnPlayer(w, 0, 0)
	pos, _ := w.store.Position(id)
	vel, _ := w.store.Velocity(id)

	pos.Y = 1 + w.Tuning.Physics.GroundSnapTolerance/2
	vel.VY = 0

	StepPhysics(w, testDT)

	if pos.Y != 1 {
		t.Errorf("expected snap to ground at y=1, got %v", pos.Y)
	}
}

// TestWaterDragSlowsHorizontalMotion verifies exponential drag in
// water against the same motion in air.
func TestWaterDragSlowsHorizontalMotion(t *testing.T) {
	w := newTestWorld()

	swimmer := SpawnPlayer(w, 40.5, 40.5)
	spos, _ := w.store.Position(swimmer)
	spos.Y = 2 // inside the pool column
	svel, _ := w.store.Velocity(swimmer)
	svel.VX = 5

	runner := SpawnPlayer(w, 0, 0)
	rvel, _ := w.store.Velocity(runner)
	rvel.VX = 5

	StepPhysics(w, testDT)

	if svel.VX >= rvel.VX {
		t.Errorf("water should slow horizontal motion: swimmer %v, runner %v", svel.VX, rvel.VX)
	}
	want := 5 * math.Exp(-w.Tuning.Physics.WaterDragK*testDT)
	if math.Abs(svel.VX-want) > 1e-9 {
		t.Errorf("expected drag to leave VX=%v, got %v", want, svel.VX)
	}
}

// TestBuoyancyReducesSinking verifies water applies the reduced
// vertical acceleration.
func TestBuoyancyReducesSinking(t *testing.T) {
	w := newTestWorld()

	swimmer := SpawnPlayer(w, 40.5, 40.5)
	spos, _ := w.store.Position(swimmer)
	spos.Y = 2
	svel, _ := w.store.Velocity(swimmer)

	faller := SpawnPlayer(w, 0, 0)
	fpos, _ := w.store.Position(faller)
	fpos.Y = 20
	fvel, _ := w.store.Velocity(faller)

	StepPhysics(w, testDT)

	if svel.VY <= fvel.VY {
		t.Errorf("water should reduce downward acceleration: swimmer VY %v, faller VY %v", svel.VY, fvel.VY)
	}
}

// TestStaticCollidersDoNotMove verifies physics skips building pieces.
func TestStaticCollidersDoNotMove(t *testing.T) {
	w := newTestWorld()
	def, _ := PieceByType("foundation")
	id := spawnPiece(w, def, 0, 1.5, 5, 1.5, 0, "owner", "", def.HealthAtTier(0))

	pos, _ := w.store.Position(id)
	before := *pos
	for i := 0; i < 10; i++ {
		StepPhysics(w, testDT)
	}
	if *pos != before {
		t.Errorf("static collider moved from %+v to %+v", before, *pos)
	}
}

// TestWalkIntoWallStops verifies horizontal movement is blocked by a
// static collider but sliding along it still works.
func TestWalkIntoWallStops(t *testing.T) {
	w := newTestWorld()

	def, _ := PieceByType("wall")
	spawnPiece(w, def, 0, 0, 1, 2, 0, "owner", "", def.HealthAtTier(0))

	id := SpawnPlayer(w, 0, 0)
	w.rebuildGrid()
	vel, _ := w.store.Velocity(id)
	vel.VZ = 5
	vel.VX = 1

	pos, _ := w.store.Position(id)
	startZ := pos.Z
	for i := 0; i < 20; i++ {
		vel.VZ = 5
		vel.VX = 1
		StepPhysics(w, testDT)
	}

	if pos.Z-startZ > 2 {
		t.Errorf("expected wall to stop forward motion, moved to z=%v", pos.Z)
	}
	if pos.X <= 0 {
		t.Errorf("expected sliding along the wall on x, got x=%v", pos.X)
	}
}

// TestStandOnFoundation verifies a player can stand on a static
// collider's top face.
func TestStandOnFoundation(t *testing.T) {
	w := newTestWorld()

	def, _ := PieceByType("foundation")
	spawnPiece(w, def, 0, 10.5, 1, 10.5, 0, "owner", "", def.HealthAtTier(0))

	id := SpawnPlayer(w, 10.5, 10.5)
	w.rebuildGrid()
	pos, _ := w.store.Position(id)
	pos.Y = 6

	for i := 0; i < 200; i++ {
		StepPhysics(w, testDT)
	}

	top := 1 + def.Height
	if math.Abs(pos.Y-top) > 1e-9 {
		t.Errorf("expected to stand on foundation top %v, got %v", top, pos.Y)
	}
}

// TestIsGrounded verifies the jump gate.
func TestIsGrounded(t *testing.T) {
	w := newTestWorld()
	id := SpawnPlayer(w, 0, 0)

	if !isGrounded(w, id) {
		t.Error("freshly spawned player should be grounded")
	}

	pos, _ := w.store.Position(id)
	pos.Y = 5
	if isGrounded(w, id) {
		t.Error("airborne player should not be grounded")
	}
}
