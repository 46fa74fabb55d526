package sim

import (
	"testing"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/protocol"
)

// TestStepMovesPlayer tests the input path end to end: queued sample,
// drained on Step, applied as velocity, integrated by physics.
func TestStepMovesPlayer(t *testing.T) {
	w := newTestWorld()
	ps := connectAt(w, "p1", 0, 0)
	pos, _ := w.Store().Position(ps.entity)
	startZ := pos.Z

	w.Inputs().PushInput("p1", protocol.Input{Seq: 1, Forward: 1})
	w.Step(testDT)

	if pos.Z <= startZ {
		t.Errorf("expected forward input to move the player along +z, z=%v", pos.Z)
	}
}

// TestStaleInputSuperseded tests per-tick sample coalescing and
// out-of-order drops.
func TestStaleInputSuperseded(t *testing.T) {
	q := NewInputQueue()
	q.PushInput("p1", protocol.Input{Seq: 5, Rotation: 1})
	q.PushInput("p1", protocol.Input{Seq: 6, Rotation: 2})
	q.PushInput("p1", protocol.Input{Seq: 4, Rotation: 3}) // out of order

	moves, _ := q.Drain()
	in, ok := moves["p1"]
	if !ok {
		t.Fatal("expected a sample for p1")
	}
	if in.Seq != 6 || in.Rotation != 2 {
		t.Errorf("expected the latest in-order sample to win, got seq=%d rotation=%v", in.Seq, in.Rotation)
	}

	if moves, _ := q.Drain(); len(moves) != 0 {
		t.Error("drain should empty the queue")
	}
}

// TestRejectedActionNotifiesSender tests that a failing request queues
// a reject for its player.
func TestRejectedActionNotifiesSender(t *testing.T) {
	w := newTestWorld()
	connectAt(w, "p1", 0, 0)

	w.Inputs().PushAction("p1", &protocol.Envelope{
		Type:  protocol.TypeBuild,
		Build: &protocol.Build{PieceType: "moat", X: 1, Z: 1},
	})
	w.Step(testDT)

	notes := w.notify.Drain()
	if len(notes.Rejects) != 1 {
		t.Fatalf("expected one reject, got %d", len(notes.Rejects))
	}
	r := notes.Rejects[0]
	if r.PlayerID != "p1" || r.Op != "build" {
		t.Errorf("unexpected reject: %+v", r)
	}
}

// TestBuildThroughActionQueue tests a valid build request flowing
// through Step.
func TestBuildThroughActionQueue(t *testing.T) {
	w := newTestWorld()
	ps := connectAt(w, "p1", -3, 1.5)
	inv, _ := w.Store().Inventory(ps.entity)
	AddItem(inv, "wood", 200)

	w.Inputs().PushAction("p1", &protocol.Envelope{
		Type:  protocol.TypeBuild,
		Build: &protocol.Build{PieceType: "foundation", X: 1, Z: 1},
	})
	w.Step(testDT)

	if _, ok := findPiece(w, "foundation"); !ok {
		t.Fatal("expected the queued build to place a foundation")
	}
	if notes := w.notify.Drain(); len(notes.Rejects) != 0 {
		t.Errorf("valid build should not be rejected: %+v", notes.Rejects)
	}
}

// TestEquipArmor tests wearing armor from an inventory slot and
// swapping with an already worn piece.
func TestEquipArmor(t *testing.T) {
	w := newTestWorld()
	ps := connectAt(w, "p1", 0, 0)
	inv, _ := w.Store().Inventory(ps.entity)
	AddItem(inv, "metal_chest", 1)
	slot := -1
	for i, st := range inv.Slots {
		if st != nil && st.ItemID == "metal_chest" {
			slot = i
		}
	}
	if slot < 0 {
		t.Fatal("no slot holding the chestplate")
	}

	w.Inputs().PushAction("p1", &protocol.Envelope{
		Type:  protocol.TypeEquip,
		Equip: &protocol.Equip{Slot: slot},
	})
	w.Step(testDT)

	eq, _ := w.Store().Equipment(ps.entity)
	if eq.Chest == nil || eq.Chest.ItemID != "metal_chest" {
		t.Fatal("expected the chestplate to be worn")
	}
	if inv.Slots[slot] != nil {
		t.Error("equipped armor should leave its inventory slot")
	}
	if notes := w.notify.Drain(); len(notes.Rejects) != 0 {
		t.Errorf("valid equip should not be rejected: %+v", notes.Rejects)
	}

	t.Run("swap with worn piece", func(t *testing.T) {
		inv.Slots[slot] = &ecs.ItemStack{ItemID: "cloth_shirt", Quantity: 1}
		w.Inputs().PushAction("p1", &protocol.Envelope{
			Type:  protocol.TypeEquip,
			Equip: &protocol.Equip{Slot: slot},
		})
		w.Step(testDT)

		if eq.Chest == nil || eq.Chest.ItemID != "cloth_shirt" {
			t.Error("expected the shirt to replace the chestplate")
		}
		if inv.Slots[slot] == nil || inv.Slots[slot].ItemID != "metal_chest" {
			t.Error("expected the chestplate back in the inventory slot")
		}
	})

	t.Run("non-armor is rejected", func(t *testing.T) {
		woodSlot := -1
		for i, st := range inv.Slots {
			if st != nil && st.ItemID == "wood" {
				woodSlot = i
			}
		}
		if woodSlot < 0 {
			t.Fatal("starter kit should include wood")
		}
		w.Inputs().PushAction("p1", &protocol.Envelope{
			Type:  protocol.TypeEquip,
			Equip: &protocol.Equip{Slot: woodSlot},
		})
		w.Step(testDT)

		notes := w.notify.Drain()
		if len(notes.Rejects) != 1 || notes.Rejects[0].Op != "equip" {
			t.Errorf("expected an equip reject, got %+v", notes.Rejects)
		}
	})
}

// TestDisconnectGrace tests that the entity lingers through the grace
// window and is reclaimed afterward.
func TestDisconnectGrace(t *testing.T) {
	w := newTestWorld()
	ps := connectAt(w, "p1", 0, 0)
	entity := ps.entity

	w.DisconnectPlayer("p1")

	if !w.Store().Exists(entity) {
		t.Fatal("entity should linger during the grace window")
	}

	for i := uint64(0); i <= w.Tuning.DisconnectGraceTicks; i++ {
		w.Step(testDT)
	}

	if w.Store().Exists(entity) {
		t.Error("entity should be reclaimed after the grace window")
	}
	if w.PlayerCount() != 0 {
		t.Errorf("expected no attached players, got %d", w.PlayerCount())
	}
}

// TestReconnectWithinGrace tests that a quick reconnect resumes the
// same entity.
func TestReconnectWithinGrace(t *testing.T) {
	w := newTestWorld()
	ps := connectAt(w, "p1", 0, 0)
	entity := ps.entity

	w.DisconnectPlayer("p1")
	w.Step(testDT)

	if got := w.ConnectPlayer("p1", "p1", nil); got != entity {
		t.Errorf("expected reconnect to resume entity %d, got %d", entity, got)
	}

	for i := uint64(0); i <= w.Tuning.DisconnectGraceTicks; i++ {
		w.Step(testDT)
	}
	if !w.Store().Exists(entity) {
		t.Error("reconnected player should not be reclaimed")
	}
}

// TestDisconnectedInputIgnored tests that samples and actions from a
// player in grace are dropped.
func TestDisconnectedInputIgnored(t *testing.T) {
	w := newTestWorld()
	ps := connectAt(w, "p1", 0, 0)
	w.DisconnectPlayer("p1")

	pos, _ := w.Store().Position(ps.entity)
	startZ := pos.Z
	w.Inputs().PushInput("p1", protocol.Input{Seq: 1, Forward: 1})
	w.Step(testDT)

	if pos.Z != startZ {
		t.Error("input from a disconnected player should be ignored")
	}
}

// fakeRepo records save calls for assertions.
type fakeRepo struct {
	players   []PlayerRecord
	buildings [][]BuildingRecord
}

func (r *fakeRepo) SavePlayer(rec PlayerRecord)         { r.players = append(r.players, rec) }
func (r *fakeRepo) SaveBuildings(recs []BuildingRecord) { r.buildings = append(r.buildings, recs) }

// TestSaveAll tests that players and buildings are captured for the
// repository.
func TestSaveAll(t *testing.T) {
	w := newTestWorld()
	repo := &fakeRepo{}
	w.SetRepository(repo)

	ps := connectAt(w, "p1", 2, 3)
	inv, _ := w.Store().Inventory(ps.entity)
	AddItem(inv, "metal", 7)

	def, _ := PieceByType("foundation")
	spawnPiece(w, def, 1, 9, 1, 9, 0, "p1", "", 333)

	w.SaveAll()

	if len(repo.players) != 1 {
		t.Fatalf("expected one player save, got %d", len(repo.players))
	}
	rec := repo.players[0]
	if rec.PlayerID != "p1" || rec.X != 2 || rec.Z != 3 {
		t.Errorf("unexpected player record: %+v", rec)
	}
	foundMetal := false
	for _, it := range rec.Items {
		if it.ItemID == "metal" && it.Quantity == 7 {
			foundMetal = true
		}
	}
	if !foundMetal {
		t.Error("player record should carry the inventory contents")
	}

	if len(repo.buildings) != 1 || len(repo.buildings[0]) != 1 {
		t.Fatalf("expected one building snapshot with one piece, got %+v", repo.buildings)
	}
	b := repo.buildings[0][0]
	if b.PieceType != "foundation" || b.Tier != 1 || b.Health != 333 || b.OwnerID != "p1" {
		t.Errorf("unexpected building record: %+v", b)
	}
}

// TestRestoreRoundTrip tests that a saved player comes back with the
// same slots and pose.
func TestRestoreRoundTrip(t *testing.T) {
	w := newTestWorld()
	rec := &PlayerRecord{
		PlayerID: "p1", Name: "Alice",
		X: 4, Y: 2, Z: 6, Rotation: 1.5,
		Health: 40, MaxHealth: 100,
		Items: []ItemRecord{
			{Slot: 0, ItemID: "metal_sword", Quantity: 1, Durability: 17},
			{Slot: 5, ItemID: "wood", Quantity: 240},
			{Slot: 99, ItemID: "stone", Quantity: 5}, // out of range, dropped
		},
	}
	id := w.ConnectPlayer("p1", "Alice", rec)

	pos, _ := w.Store().Position(id)
	if pos.X != 4 || pos.Y != 2 || pos.Z != 6 || pos.Rotation != 1.5 {
		t.Errorf("unexpected restored pose: %+v", pos)
	}
	hp, _ := w.Store().Health(id)
	if hp.Current != 40 || hp.Max != 100 {
		t.Errorf("unexpected restored health: %+v", hp)
	}
	inv, _ := w.Store().Inventory(id)
	if inv.Slots[0] == nil || inv.Slots[0].Durability != 17 {
		t.Error("restored slot 0 should keep its durability")
	}
	if CountItem(inv, "wood") != 240 {
		t.Errorf("expected 240 wood restored, got %d", CountItem(inv, "wood"))
	}
	if CountItem(inv, "stone") != 0 {
		t.Error("out-of-range slot should be dropped")
	}
}
