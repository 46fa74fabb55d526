package ecs

// ComponentType identifies a component table in the store.
type ComponentType string

const (
	CPosition   ComponentType = "position"
	CVelocity   ComponentType = "velocity"
	CCollider   ComponentType = "collider"
	CHealth     ComponentType = "health"
	CInventory  ComponentType = "inventory"
	CEquipment  ComponentType = "equipment"
	CBuilding   ComponentType = "building"
	COwnership  ComponentType = "ownership"
	CProjectile ComponentType = "projectile"
	CDoorState  ComponentType = "doorState"
	CKind       ComponentType = "kind"
)

// EntityKind tags what an entity is. Historically the kind was inferred
// from which components were absent; the explicit tag replaces those
// hasComponent chains.
type EntityKind uint8

const (
	KindUnknown EntityKind = iota
	KindPlayer
	KindNPC
	KindBuilding
	KindProjectile
	KindDrop
	KindLootBag
	KindContainer
	KindDoor
)

// String returns a human-readable kind name.
func (k EntityKind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindNPC:
		return "npc"
	case KindBuilding:
		return "building"
	case KindProjectile:
		return "projectile"
	case KindDrop:
		return "drop"
	case KindLootBag:
		return "lootBag"
	case KindContainer:
		return "container"
	case KindDoor:
		return "door"
	default:
		return "unknown"
	}
}

// Kind is the entity-kind tag component.
type Kind struct {
	Kind EntityKind
}

// Position is world-space position plus yaw rotation in radians.
// Mutated every tick by physics and input.
type Position struct {
	X, Y, Z  float64
	Rotation float64
}

// Velocity in world units per second.
type Velocity struct {
	VX, VY, VZ float64
}

// Collider is an axis-aligned box centered on the entity's X/Z with its
// base at the entity's Y. Static colliders are skipped by physics.
type Collider struct {
	Width, Height, Depth float64
	Static               bool
}

// Health. Current <= 0 triggers death handling by the owning system.
type Health struct {
	Current, Max float64
}

// ItemStack is a quantity of one item. Quantity is always > 0; an empty
// slot is a nil *ItemStack, never a zero-quantity stack.
type ItemStack struct {
	ItemID     string
	Quantity   int
	Durability int // remaining uses for tools/weapons, 0 = not tracked or spent
}

// Inventory is the shared slot container shape used by players,
// containers, drops and loot bags.
type Inventory struct {
	Slots    []*ItemStack
	MaxSlots int
}

// Equipment holds worn armor and the held item.
type Equipment struct {
	Head, Chest, Legs, Feet *ItemStack
	Held                    *ItemStack
}

// Building marks a placed construction piece. The footprint is fixed at
// placement; upgrades change tier and max health only.
type Building struct {
	PieceType string
	Tier      int
}

// Ownership records who placed or owns an entity and who may use it.
type Ownership struct {
	OwnerID    string
	TeamID     string
	Locked     bool
	Authorized []string
}

// Projectile is the transient in-flight state of a fired projectile.
type Projectile struct {
	SourceEntity EntityID
	SourcePlayer string
	WeaponID     string
	Damage       float64
	Age          float64 // seconds since spawn
	Traveled     float64 // cumulative distance
	MaxRange     float64
	MaxLifetime  float64 // seconds
}

// DoorState tracks an openable door.
type DoorState struct {
	Open       bool
	LockCode   string
	Authorized []string
	OwnerID    string
	DoorItemID string
}
