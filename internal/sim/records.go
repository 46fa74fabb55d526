package sim

import "github.com/LaunchDay-Studio-Inc/linesremain/internal/ecs"

// Persistence contract. The core never blocks the tick on storage:
// saves are fire-and-forget into the repository's own writer, and
// loads happen on the connection path, outside the tick loop.

// ItemRecord is one occupied inventory slot in storable form.
type ItemRecord struct {
	Slot       int
	ItemID     string
	Quantity   int
	Durability int
}

// PlayerRecord is the storable subset of a player entity.
type PlayerRecord struct {
	PlayerID  string
	Name      string
	X, Y, Z   float64
	Rotation  float64
	Health    float64
	MaxHealth float64
	Items     []ItemRecord
}

// BuildingRecord is the storable form of a placed building piece.
type BuildingRecord struct {
	PieceType string
	Tier      int
	X, Y, Z   float64
	Rotation  float64
	Health    float64
	OwnerID   string
	TeamID    string
}

// Repository is the narrow save/load contract the core calls.
// Save methods must not block; implementations queue internally.
type Repository interface {
	SavePlayer(rec PlayerRecord)
	SaveBuildings(recs []BuildingRecord)
}

// recordFromPlayer captures a player entity into a record.
func recordFromPlayer(s *ecs.Store, playerID, name string, id ecs.EntityID) (PlayerRecord, bool) {
	pos, ok := s.Position(id)
	if !ok {
		return PlayerRecord{}, false
	}
	rec := PlayerRecord{
		PlayerID: playerID,
		Name:     name,
		X:        pos.X, Y: pos.Y, Z: pos.Z,
		Rotation: pos.Rotation,
	}
	if hp, ok := s.Health(id); ok {
		rec.Health = hp.Current
		rec.MaxHealth = hp.Max
	}
	if inv, ok := s.Inventory(id); ok {
		for i, st := range inv.Slots {
			if st == nil {
				continue
			}
			rec.Items = append(rec.Items, ItemRecord{
				Slot: i, ItemID: st.ItemID, Quantity: st.Quantity, Durability: st.Durability,
			})
		}
	}
	return rec, true
}
