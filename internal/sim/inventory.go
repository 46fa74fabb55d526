package sim

import (
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"
)

// Inventory operations. The invariant throughout: a slot holds a stack
// with Quantity > 0 or is nil, never a zero-quantity stack.

// NewInventory returns an empty inventory with the given slot count.
func NewInventory(slots int) *ecs.Inventory {
	return &ecs.Inventory{
		Slots:    make([]*ecs.ItemStack, slots),
		MaxSlots: slots,
	}
}

// CountItem returns the total quantity of an item across all slots.
func CountItem(inv *ecs.Inventory, itemID string) int {
	total := 0
	for _, s := range inv.Slots {
		if s != nil && s.ItemID == itemID {
			total += s.Quantity
		}
	}
	return total
}

// AddItem inserts quantity of an item, stacking onto existing slots up
// to the item's stack limit and then filling empty slots. Returns the
// quantity that did not fit.
func AddItem(inv *ecs.Inventory, itemID string, quantity int) int {
	if quantity <= 0 {
		return 0
	}
	maxStack := MaxStackFor(itemID)

	// Top up existing stacks first.
	for _, s := range inv.Slots {
		if quantity == 0 {
			break
		}
		if s == nil || s.ItemID != itemID || s.Quantity >= maxStack {
			continue
		}
		room := maxStack - s.Quantity
		if room > quantity {
			room = quantity
		}
		s.Quantity += room
		quantity -= room
	}

	// Then open new slots.
	for i := range inv.Slots {
		if quantity == 0 {
			break
		}
		if inv.Slots[i] != nil {
			continue
		}
		take := quantity
		if take > maxStack {
			take = maxStack
		}
		stack := &ecs.ItemStack{ItemID: itemID, Quantity: take}
		if def, ok := ItemByID(itemID); ok && def.Weapon != nil {
			stack.Durability = def.Weapon.MaxDurability
		}
		inv.Slots[i] = stack
		quantity -= take
	}

	return quantity
}

// RemoveItem deducts quantity of an item across slots. Returns false
// and mutates nothing when the inventory holds less than requested.
func RemoveItem(inv *ecs.Inventory, itemID string, quantity int) bool {
	if quantity <= 0 {
		return true
	}
	if CountItem(inv, itemID) < quantity {
		return false
	}
	for i, s := range inv.Slots {
		if quantity == 0 {
			break
		}
		if s == nil || s.ItemID != itemID {
			continue
		}
		if s.Quantity > quantity {
			s.Quantity -= quantity
			quantity = 0
		} else {
			quantity -= s.Quantity
			inv.Slots[i] = nil
		}
	}
	return true
}

// HasMaterials reports whether every cost line is satisfied.
func HasMaterials(inv *ecs.Inventory, costs []MaterialCost) bool {
	for _, c := range costs {
		if CountItem(inv, c.ItemID) < c.Quantity {
			return false
		}
	}
	return true
}

// DeductMaterials removes every cost line. Callers must have checked
// HasMaterials; a partial deduction is never left behind.
func DeductMaterials(inv *ecs.Inventory, costs []MaterialCost) bool {
	if !HasMaterials(inv, costs) {
		return false
	}
	for _, c := range costs {
		RemoveItem(inv, c.ItemID, c.Quantity)
	}
	return true
}

// MoveSlot moves a stack between slots of one inventory, merging onto
// matching stacks. Out-of-range indexes are rejected.
func MoveSlot(inv *ecs.Inventory, from, to int) bool {
	if from < 0 || from >= len(inv.Slots) || to < 0 || to >= len(inv.Slots) || from == to {
		return false
	}
	src := inv.Slots[from]
	if src == nil {
		return false
	}
	dst := inv.Slots[to]
	if dst == nil {
		inv.Slots[to] = src
		inv.Slots[from] = nil
		return true
	}
	if dst.ItemID == src.ItemID {
		maxStack := MaxStackFor(src.ItemID)
		room := maxStack - dst.Quantity
		if room <= 0 {
			return false
		}
		moved := src.Quantity
		if moved > room {
			moved = room
		}
		dst.Quantity += moved
		src.Quantity -= moved
		if src.Quantity == 0 {
			inv.Slots[from] = nil
		}
		return true
	}
	// Swap mismatched stacks.
	inv.Slots[from], inv.Slots[to] = dst, src
	return true
}

// TransferAll moves every stack from src into dst; whatever does not
// fit stays in src. Returns true when src ends empty.
func TransferAll(src, dst *ecs.Inventory) bool {
	empty := true
	for i, s := range src.Slots {
		if s == nil {
			continue
		}
		left := AddItem(dst, s.ItemID, s.Quantity)
		if left == 0 {
			src.Slots[i] = nil
		} else {
			s.Quantity = left
			empty = false
		}
	}
	return empty
}

// IsEmpty reports whether no slot holds a stack.
func IsEmpty(inv *ecs.Inventory) bool {
	for _, s := range inv.Slots {
		if s != nil {
			return false
		}
	}
	return true
}
