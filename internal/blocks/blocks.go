// Package blocks defines the block provider contract. Terrain
// generation is opaque to the simulation core: systems only ever ask
// what block occupies a coordinate.
package blocks

// ID identifies a block type.
type ID uint16

const (
	Air ID = iota
	Water
	Dirt
	Grass
	Stone
	Sand
	Snow
	Bedrock
)

// Provider answers point queries against the terrain.
type Provider interface {
	// BlockAt returns the block occupying the cell containing (x, y, z).
	BlockAt(x, y, z int) ID
}

// IsSolid reports whether a block stops movement and projectiles.
func IsSolid(id ID) bool {
	switch id {
	case Air, Water:
		return false
	default:
		return true
	}
}

// IsLiquid reports whether a block applies buoyancy and drag.
func IsLiquid(id ID) bool {
	return id == Water
}

// FlatProvider is a trivial provider: solid ground at and below
// GroundY, water-filled pools listed explicitly, air above. It backs
// tests and local development; production wires a real generator.
type FlatProvider struct {
	GroundY int
	Surface ID

	// Pools maps a column (x, z) to a water surface level. Cells in the
	// column between GroundY+1 and the level are water.
	Pools map[[2]int]int
}

// NewFlatProvider returns a flat grass world with ground at y=0.
func NewFlatProvider() *FlatProvider {
	return &FlatProvider{GroundY: 0, Surface: Grass}
}

// BlockAt implements Provider.
func (f *FlatProvider) BlockAt(x, y, z int) ID {
	if y < f.GroundY {
		return Stone
	}
	if y == f.GroundY {
		if f.Surface == Air {
			return Grass
		}
		return f.Surface
	}
	if f.Pools != nil {
		if level, ok := f.Pools[[2]int{x, z}]; ok && y <= level {
			return Water
		}
	}
	return Air
}
