package sim

// PieceCategory drives snapping and support rules for a building piece.
type PieceCategory int

const (
	CategoryFoundation PieceCategory = iota
	CategoryWall
	CategoryFloor
	CategoryRoof
	CategoryPillar
	CategoryFence
	CategoryDoorway
	CategoryDoor
)

// String returns the category name.
func (c PieceCategory) String() string {
	switch c {
	case CategoryFoundation:
		return "foundation"
	case CategoryWall:
		return "wall"
	case CategoryFloor:
		return "floor"
	case CategoryRoof:
		return "roof"
	case CategoryPillar:
		return "pillar"
	case CategoryFence:
		return "fence"
	case CategoryDoorway:
		return "doorway"
	case CategoryDoor:
		return "door"
	default:
		return "unknown"
	}
}

// MaterialCost is one line of a piece's build cost.
type MaterialCost struct {
	ItemID   string
	Quantity int
}

// PieceDef describes a placeable construction piece. HealthPerTier and
// CostPerTier are indexed by tier; a zero health entry means the tier
// does not exist for this piece.
type PieceDef struct {
	Type          string
	Category      PieceCategory
	Width         float64
	Height        float64
	Depth         float64
	HealthPerTier []float64
	CostPerTier   [][]MaterialCost
}

// pieces is the construction registry.
var pieces = map[string]PieceDef{
	"foundation": {
		Type: "foundation", Category: CategoryFoundation,
		Width: 3, Height: 1.5, Depth: 3,
		HealthPerTier: []float64{250, 500, 1000},
		CostPerTier: [][]MaterialCost{
			{{ItemID: "wood", Quantity: 100}},
			{{ItemID: "stone", Quantity: 150}},
			{{ItemID: "metal", Quantity: 100}},
		},
	},
	"wall": {
		Type: "wall", Category: CategoryWall,
		Width: 3, Height: 3, Depth: 0.25,
		HealthPerTier: []float64{200, 400, 800},
		CostPerTier: [][]MaterialCost{
			{{ItemID: "wood", Quantity: 75}},
			{{ItemID: "stone", Quantity: 100}},
			{{ItemID: "metal", Quantity: 75}},
		},
	},
	"floor": {
		Type: "floor", Category: CategoryFloor,
		Width: 3, Height: 0.25, Depth: 3,
		HealthPerTier: []float64{200, 400, 800},
		CostPerTier: [][]MaterialCost{
			{{ItemID: "wood", Quantity: 75}},
			{{ItemID: "stone", Quantity: 100}},
			{{ItemID: "metal", Quantity: 75}},
		},
	},
	"roof": {
		Type: "roof", Category: CategoryRoof,
		Width: 3, Height: 0.5, Depth: 3,
		HealthPerTier: []float64{200, 400, 800},
		CostPerTier: [][]MaterialCost{
			{{ItemID: "wood", Quantity: 90}},
			{{ItemID: "stone", Quantity: 120}},
			{{ItemID: "metal", Quantity: 90}},
		},
	},
	"pillar": {
		Type: "pillar", Category: CategoryPillar,
		Width: 0.4, Height: 3, Depth: 0.4,
		HealthPerTier: []float64{150, 300, 600},
		CostPerTier: [][]MaterialCost{
			{{ItemID: "wood", Quantity: 25}},
			{{ItemID: "stone", Quantity: 40}},
			{{ItemID: "metal", Quantity: 25}},
		},
	},
	"fence": {
		Type: "fence", Category: CategoryFence,
		Width: 3, Height: 1.2, Depth: 0.2,
		HealthPerTier: []float64{100},
		CostPerTier: [][]MaterialCost{
			{{ItemID: "wood", Quantity: 40}},
		},
	},
	"doorway": {
		Type: "doorway", Category: CategoryDoorway,
		Width: 3, Height: 3, Depth: 0.25,
		HealthPerTier: []float64{200, 400, 800},
		CostPerTier: [][]MaterialCost{
			{{ItemID: "wood", Quantity: 60}},
			{{ItemID: "stone", Quantity: 90}},
			{{ItemID: "metal", Quantity: 60}},
		},
	},
	"door": {
		Type: "door", Category: CategoryDoor,
		Width: 1.2, Height: 2.4, Depth: 0.15,
		HealthPerTier: []float64{150, 300, 600},
		CostPerTier: [][]MaterialCost{
			{{ItemID: "wood", Quantity: 30}},
			{{ItemID: "metal", Quantity: 25}},
			{{ItemID: "metal", Quantity: 40}},
		},
	},
}

// PieceByType looks up a piece definition.
func PieceByType(t string) (PieceDef, bool) {
	def, ok := pieces[t]
	return def, ok
}

// HealthAtTier returns the max health for a tier, 0 when the tier does
// not exist.
func (p PieceDef) HealthAtTier(tier int) float64 {
	if tier < 0 || tier >= len(p.HealthPerTier) {
		return 0
	}
	return p.HealthPerTier[tier]
}

// CostAtTier returns the material cost for a tier, nil when absent.
func (p PieceDef) CostAtTier(tier int) []MaterialCost {
	if tier < 0 || tier >= len(p.CostPerTier) {
		return nil
	}
	return p.CostPerTier[tier]
}
