package sim

import "github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"

// Entity factories. Every archetype is assembled here so the component
// makeup of each kind lives in one place.

const (
	playerWidth  = 0.8
	playerHeight = 1.8
	playerDepth  = 0.8
	playerSlots  = 24
	playerMaxHP  = 100

	lootBagSlots    = 24
	containerSlots  = 30
	lootBagHeight   = 0.5
	containerHeight = 1.0
)

// starterInventory is what a fresh or respawned player carries.
func starterInventory() *ecs.Inventory {
	inv := NewInventory(playerSlots)
	AddItem(inv, "rock", 1)
	AddItem(inv, "wood", 50)
	return inv
}

// SpawnPlayer creates a player entity at (x, ground, z).
func SpawnPlayer(w *World, x, z float64) ecs.EntityID {
	id := w.store.CreateEntity()
	w.store.AddComponent(id, ecs.CKind, &ecs.Kind{Kind: ecs.KindPlayer})
	w.store.AddComponent(id, ecs.CPosition, &ecs.Position{X: x, Y: w.groundHeight(x, z), Z: z})
	w.store.AddComponent(id, ecs.CVelocity, &ecs.Velocity{})
	w.store.AddComponent(id, ecs.CCollider, &ecs.Collider{
		Width: playerWidth, Height: playerHeight, Depth: playerDepth,
	})
	w.store.AddComponent(id, ecs.CHealth, &ecs.Health{Current: playerMaxHP, Max: playerMaxHP})
	w.store.AddComponent(id, ecs.CInventory, starterInventory())
	w.store.AddComponent(id, ecs.CEquipment, &ecs.Equipment{})
	return id
}

// SpawnPlayerFromRecord restores a saved player. Items land in their
// saved slots; a record slot outside the inventory is dropped.
func SpawnPlayerFromRecord(w *World, rec *PlayerRecord) ecs.EntityID {
	id := SpawnPlayer(w, rec.X, rec.Z)
	if pos, ok := w.store.Position(id); ok {
		pos.Y = rec.Y
		pos.Rotation = rec.Rotation
	}
	if hp, ok := w.store.Health(id); ok && rec.MaxHealth > 0 {
		hp.Max = rec.MaxHealth
		hp.Current = rec.Health
		if hp.Current <= 0 || hp.Current > hp.Max {
			hp.Current = hp.Max
		}
	}
	inv := NewInventory(playerSlots)
	for _, it := range rec.Items {
		if it.Slot < 0 || it.Slot >= playerSlots || it.Quantity <= 0 {
			continue
		}
		inv.Slots[it.Slot] = &ecs.ItemStack{
			ItemID: it.ItemID, Quantity: it.Quantity, Durability: it.Durability,
		}
	}
	w.store.AddComponent(id, ecs.CInventory, inv)
	return id
}

// SpawnNPC creates a hostile or neutral creature.
func SpawnNPC(w *World, x, z float64, hp float64) ecs.EntityID {
	id := w.store.CreateEntity()
	w.store.AddComponent(id, ecs.CKind, &ecs.Kind{Kind: ecs.KindNPC})
	w.store.AddComponent(id, ecs.CPosition, &ecs.Position{X: x, Y: w.groundHeight(x, z), Z: z})
	w.store.AddComponent(id, ecs.CVelocity, &ecs.Velocity{})
	w.store.AddComponent(id, ecs.CCollider, &ecs.Collider{Width: 1.0, Height: 1.2, Depth: 1.0})
	w.store.AddComponent(id, ecs.CHealth, &ecs.Health{Current: hp, Max: hp})
	w.store.AddComponent(id, ecs.CInventory, NewInventory(6))
	return id
}

// SpawnLootBag creates a container that despawns after the configured
// lifetime. The expiry is registered immediately.
func SpawnLootBag(w *World, x, y, z float64) ecs.EntityID {
	id := w.store.CreateEntity()
	w.store.AddComponent(id, ecs.CKind, &ecs.Kind{Kind: ecs.KindLootBag})
	w.store.AddComponent(id, ecs.CPosition, &ecs.Position{X: x, Y: y, Z: z})
	w.store.AddComponent(id, ecs.CCollider, &ecs.Collider{
		Width: 0.6, Height: lootBagHeight, Depth: 0.6, Static: true,
	})
	w.store.AddComponent(id, ecs.CInventory, NewInventory(lootBagSlots))
	w.lootExpiry[id] = w.tick + w.Tuning.LootBagLifetimeTicks
	return id
}

// SpawnContainer creates a persistent storage box owned by a player.
func SpawnContainer(w *World, ownerID string, x, y, z float64) ecs.EntityID {
	id := w.store.CreateEntity()
	w.store.AddComponent(id, ecs.CKind, &ecs.Kind{Kind: ecs.KindContainer})
	w.store.AddComponent(id, ecs.CPosition, &ecs.Position{X: x, Y: y, Z: z})
	w.store.AddComponent(id, ecs.CCollider, &ecs.Collider{
		Width: 1.0, Height: containerHeight, Depth: 1.0, Static: true,
	})
	w.store.AddComponent(id, ecs.CInventory, NewInventory(containerSlots))
	w.store.AddComponent(id, ecs.COwnership, &ecs.Ownership{OwnerID: ownerID})
	return id
}

// SpawnBuildingFromRecord restores one saved piece. Unknown piece
// types are skipped by returning false.
func SpawnBuildingFromRecord(w *World, rec BuildingRecord) (ecs.EntityID, bool) {
	def, ok := PieceByType(rec.PieceType)
	if !ok {
		return 0, false
	}
	maxHP := def.HealthAtTier(rec.Tier)
	if maxHP <= 0 {
		return 0, false
	}
	hp := rec.Health
	if hp <= 0 || hp > maxHP {
		hp = maxHP
	}
	id := spawnPiece(w, def, rec.Tier, rec.X, rec.Y, rec.Z, rec.Rotation, rec.OwnerID, rec.TeamID, hp)
	return id, true
}

// spawnPiece assembles a building-piece entity. Door pieces carry door
// state in addition to the shared building components.
func spawnPiece(w *World, def PieceDef, tier int, x, y, z, rotation float64, ownerID, teamID string, hp float64) ecs.EntityID {
	id := w.store.CreateEntity()
	kind := ecs.KindBuilding
	if def.Category == CategoryDoor {
		kind = ecs.KindDoor
	}
	w.store.AddComponent(id, ecs.CKind, &ecs.Kind{Kind: kind})
	w.store.AddComponent(id, ecs.CPosition, &ecs.Position{X: x, Y: y, Z: z, Rotation: rotation})
	w.store.AddComponent(id, ecs.CCollider, &ecs.Collider{
		Width: def.Width, Height: def.Height, Depth: def.Depth, Static: true,
	})
	w.store.AddComponent(id, ecs.CHealth, &ecs.Health{Current: hp, Max: def.HealthAtTier(tier)})
	w.store.AddComponent(id, ecs.CBuilding, &ecs.Building{PieceType: def.Type, Tier: tier})
	w.store.AddComponent(id, ecs.COwnership, &ecs.Ownership{OwnerID: ownerID, TeamID: teamID})
	if def.Category == CategoryDoor {
		w.store.AddComponent(id, ecs.CDoorState, &ecs.DoorState{OwnerID: ownerID})
	}
	return id
}
