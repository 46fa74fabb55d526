package sim

import (
	"testing"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
)

// TestAddItemStacks tests stacking onto existing slots before opening
// new ones, and overflow reporting.
func TestAddItemStacks(t *testing.T) {
	inv := NewInventory(2)

	if left := AddItem(inv, "arrow", 50); left != 0 {
		t.Errorf("expected everything to fit, %d left over", left)
	}
	if left := AddItem(inv, "arrow", 50); left != 0 {
		t.Errorf("expected a second stack to open, %d left over", left)
	}
	// 100 arrows in two slots of 64: 64 + 36.
	if inv.Slots[0].Quantity != 64 || inv.Slots[1].Quantity != 36 {
		t.Errorf("unexpected stack split: %d / %d", inv.Slots[0].Quantity, inv.Slots[1].Quantity)
	}

	if left := AddItem(inv, "arrow", 40); left != 12 {
		t.Errorf("expected 12 overflow from a full inventory, got %d", left)
	}
}

// TestAddWeaponSetsDurability tests that fresh weapon stacks start at
// full durability.
func TestAddWeaponSetsDurability(t *testing.T) {
	inv := NewInventory(4)
	AddItem(inv, "metal_sword", 1)

	def, _ := ItemByID("metal_sword")
	if inv.Slots[0].Durability != def.Weapon.MaxDurability {
		t.Errorf("expected durability %d, got %d", def.Weapon.MaxDurability, inv.Slots[0].Durability)
	}
}

// TestRemoveItemAllOrNothing tests that a short inventory is left
// untouched.
func TestRemoveItemAllOrNothing(t *testing.T) {
	inv := NewInventory(4)
	AddItem(inv, "wood", 30)

	if RemoveItem(inv, "wood", 50) {
		t.Error("removal beyond the held quantity should fail")
	}
	if CountItem(inv, "wood") != 30 {
		t.Errorf("failed removal should not mutate, have %d", CountItem(inv, "wood"))
	}
	if !RemoveItem(inv, "wood", 30) {
		t.Error("exact removal should succeed")
	}
	if !IsEmpty(inv) {
		t.Error("inventory should be empty after removal")
	}
}

// TestRemoveItemSpansSlots tests deduction across multiple stacks.
func TestRemoveItemSpansSlots(t *testing.T) {
	inv := NewInventory(4)
	AddItem(inv, "arrow", 64)
	AddItem(inv, "arrow", 64)

	if !RemoveItem(inv, "arrow", 100) {
		t.Fatal("removal across stacks should succeed")
	}
	if got := CountItem(inv, "arrow"); got != 28 {
		t.Errorf("expected 28 arrows left, got %d", got)
	}
	if inv.Slots[0] != nil {
		t.Error("drained slot should be nil, not a zero stack")
	}
}

// TestMaterials tests the cost check/deduct pair.
func TestMaterials(t *testing.T) {
	inv := NewInventory(6)
	AddItem(inv, "wood", 100)
	AddItem(inv, "stone", 10)

	cost := []MaterialCost{{ItemID: "wood", Quantity: 75}, {ItemID: "stone", Quantity: 20}}
	if HasMaterials(inv, cost) {
		t.Error("10 stone should not satisfy a 20 stone cost")
	}
	if DeductMaterials(inv, cost) {
		t.Error("deduction without materials should fail")
	}
	if CountItem(inv, "wood") != 100 {
		t.Error("failed deduction must not spend anything")
	}

	AddItem(inv, "stone", 10)
	if !DeductMaterials(inv, cost) {
		t.Fatal("deduction with materials should succeed")
	}
	if CountItem(inv, "wood") != 25 || CountItem(inv, "stone") != 0 {
		t.Errorf("unexpected leftovers: %d wood, %d stone", CountItem(inv, "wood"), CountItem(inv, "stone"))
	}
}

// TestMoveSlot tests moving, merging and swapping stacks.
func TestMoveSlot(t *testing.T) {
	inv := NewInventory(4)
	AddItem(inv, "wood", 40)  // slot 0
	AddItem(inv, "stone", 10) // slot 1

	t.Run("move to empty", func(t *testing.T) {
		if !MoveSlot(inv, 0, 3) {
			t.Fatal("move to empty slot should succeed")
		}
		if inv.Slots[0] != nil || inv.Slots[3] == nil {
			t.Error("stack did not move")
		}
	})

	t.Run("swap mismatched", func(t *testing.T) {
		if !MoveSlot(inv, 1, 3) {
			t.Fatal("swap should succeed")
		}
		if inv.Slots[1].ItemID != "wood" || inv.Slots[3].ItemID != "stone" {
			t.Error("stacks did not swap")
		}
	})

	t.Run("merge matching", func(t *testing.T) {
		inv := NewInventory(2)
		inv.Slots[0] = &ecs.ItemStack{ItemID: "arrow", Quantity: 30}
		inv.Slots[1] = &ecs.ItemStack{ItemID: "arrow", Quantity: 50}

		if !MoveSlot(inv, 0, 1) {
			t.Fatal("merge onto a matching stack should succeed")
		}
		// The destination caps at 64; the remainder stays behind.
		if inv.Slots[1].Quantity != 64 {
			t.Errorf("expected destination capped at 64, got %d", inv.Slots[1].Quantity)
		}
		if inv.Slots[0].Quantity != 16 {
			t.Errorf("expected 16 left in the source, got %d", inv.Slots[0].Quantity)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		if MoveSlot(inv, -1, 2) || MoveSlot(inv, 0, 9) {
			t.Error("out-of-range moves should fail")
		}
	})
}

// TestTransferAll tests bulk transfer with and without room.
func TestTransferAll(t *testing.T) {
	src := NewInventory(4)
	AddItem(src, "wood", 500)
	dst := NewInventory(4)

	if !TransferAll(src, dst) {
		t.Error("transfer into an empty inventory should drain the source")
	}
	if CountItem(dst, "wood") != 500 {
		t.Errorf("expected 500 wood transferred, got %d", CountItem(dst, "wood"))
	}

	t.Run("partial transfer keeps leftovers in source", func(t *testing.T) {
		src := NewInventory(4)
		AddItem(src, "arrow", 64)
		dst := NewInventory(1)
		AddItem(dst, "arrow", 40) // room for 24 more

		if TransferAll(src, dst) {
			t.Error("transfer into a nearly full inventory should not drain the source")
		}
		if CountItem(src, "arrow") != 40 || CountItem(dst, "arrow") != 64 {
			t.Errorf("unexpected split: src %d, dst %d", CountItem(src, "arrow"), CountItem(dst, "arrow"))
		}
	})
}
