package sim

// ItemClass groups items by behavior.
type ItemClass string

const (
	ClassWeapon     ItemClass = "weapon"
	ClassArmor      ItemClass = "armor"
	ClassAmmo       ItemClass = "ammo"
	ClassMaterial   ItemClass = "material"
	ClassConsumable ItemClass = "consumable"
	ClassUtility    ItemClass = "utility"
)

// ArmorSlot names an equipment slot.
type ArmorSlot string

const (
	SlotHead  ArmorSlot = "head"
	SlotChest ArmorSlot = "chest"
	SlotLegs  ArmorSlot = "legs"
	SlotFeet  ArmorSlot = "feet"
)

// WeaponDef is the server-authoritative stat block for a weapon.
type WeaponDef struct {
	Damage          float64
	Range           float64 // melee reach
	AttackRate      float64 // attacks per second; cooldown = 1/rate
	HeadshotCapable bool
	Knockback       float64
	MaxDurability   int // 0 = indestructible

	// Ranged fields. Ranged weapons fire projectiles instead of melee.
	Ranged          bool
	AmmoItem        string
	ProjectileSpeed float64
	SpreadDeg       float64 // full cone angle, 0 = perfectly accurate
	MaxRange        float64
	MaxLifetime     float64 // seconds

	// Explosive projectiles apply area damage on impact.
	Explosive       bool
	ExplosionRadius float64
}

// ArmorDef is a wearable damage reducer.
type ArmorDef struct {
	Slot      ArmorSlot
	Reduction float64 // fraction of incoming damage absorbed
}

// ItemDef describes one item type.
type ItemDef struct {
	ID       string
	Name     string
	Class    ItemClass
	MaxStack int
	Weapon   *WeaponDef
	Armor    *ArmorDef
}

// items is the registry. Unknown lookups are logged and skipped by
// callers, never fatal.
var items = map[string]ItemDef{
	"rock": {
		ID: "rock", Name: "Rock", Class: ClassWeapon, MaxStack: 1,
		Weapon: &WeaponDef{
			Damage: 12, Range: 1.5, AttackRate: 1.25,
			Knockback: 1.5, MaxDurability: 250,
		},
	},
	"wood_spear": {
		ID: "wood_spear", Name: "Wooden Spear", Class: ClassWeapon, MaxStack: 1,
		Weapon: &WeaponDef{
			Damage: 25, Range: 2.4, AttackRate: 0.9,
			HeadshotCapable: true, Knockback: 2.0, MaxDurability: 120,
		},
	},
	"metal_sword": {
		ID: "metal_sword", Name: "Metal Sword", Class: ClassWeapon, MaxStack: 1,
		Weapon: &WeaponDef{
			Damage: 40, Range: 1.9, AttackRate: 1.1,
			HeadshotCapable: true, Knockback: 2.5, MaxDurability: 200,
		},
	},
	"hunting_bow": {
		ID: "hunting_bow", Name: "Hunting Bow", Class: ClassWeapon, MaxStack: 1,
		Weapon: &WeaponDef{
			Damage: 45, AttackRate: 0.8, HeadshotCapable: true,
			Knockback: 1.0, MaxDurability: 80,
			Ranged: true, AmmoItem: "arrow", ProjectileSpeed: 40,
			SpreadDeg: 1.5, MaxRange: 90, MaxLifetime: 4,
		},
	},
	"flare_launcher": {
		ID: "flare_launcher", Name: "Flare Launcher", Class: ClassWeapon, MaxStack: 1,
		Weapon: &WeaponDef{
			Damage: 60, AttackRate: 0.33, Knockback: 1.0, MaxDurability: 40,
			Ranged: true, AmmoItem: "flare", ProjectileSpeed: 25,
			SpreadDeg: 4, MaxRange: 60, MaxLifetime: 5,
			Explosive: true, ExplosionRadius: 4,
		},
	},
	"arrow": {ID: "arrow", Name: "Arrow", Class: ClassAmmo, MaxStack: 64},
	"flare": {ID: "flare", Name: "Flare", Class: ClassAmmo, MaxStack: 16},

	"cloth_hood":   {ID: "cloth_hood", Name: "Cloth Hood", Class: ClassArmor, MaxStack: 1, Armor: &ArmorDef{Slot: SlotHead, Reduction: 0.10}},
	"cloth_shirt":  {ID: "cloth_shirt", Name: "Cloth Shirt", Class: ClassArmor, MaxStack: 1, Armor: &ArmorDef{Slot: SlotChest, Reduction: 0.15}},
	"cloth_pants":  {ID: "cloth_pants", Name: "Cloth Pants", Class: ClassArmor, MaxStack: 1, Armor: &ArmorDef{Slot: SlotLegs, Reduction: 0.10}},
	"metal_helmet": {ID: "metal_helmet", Name: "Metal Helmet", Class: ClassArmor, MaxStack: 1, Armor: &ArmorDef{Slot: SlotHead, Reduction: 0.30}},
	"metal_chest":  {ID: "metal_chest", Name: "Metal Chestplate", Class: ClassArmor, MaxStack: 1, Armor: &ArmorDef{Slot: SlotChest, Reduction: 0.40}},
	"boots":        {ID: "boots", Name: "Boots", Class: ClassArmor, MaxStack: 1, Armor: &ArmorDef{Slot: SlotFeet, Reduction: 0.05}},

	"wood":  {ID: "wood", Name: "Wood", Class: ClassMaterial, MaxStack: 1000},
	"stone": {ID: "stone", Name: "Stone", Class: ClassMaterial, MaxStack: 1000},
	"metal": {ID: "metal", Name: "Metal Fragments", Class: ClassMaterial, MaxStack: 1000},

	"key_lock": {ID: "key_lock", Name: "Key Lock", Class: ClassUtility, MaxStack: 8},
}

// ItemByID looks up an item definition.
func ItemByID(id string) (ItemDef, bool) {
	def, ok := items[id]
	return def, ok
}

// WeaponByID returns the weapon stats for an item id, or false when the
// item is unknown or not a weapon.
func WeaponByID(id string) (*WeaponDef, bool) {
	def, ok := items[id]
	if !ok || def.Weapon == nil {
		return nil, false
	}
	return def.Weapon, true
}

// MaxStackFor returns the stack limit for an item, defaulting to 1 for
// unknown ids so corrupt data cannot inflate stacks.
func MaxStackFor(id string) int {
	if def, ok := items[id]; ok && def.MaxStack > 0 {
		return def.MaxStack
	}
	return 1
}
