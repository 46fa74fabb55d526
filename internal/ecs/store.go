// Package ecs implements the entity-component store at the heart of the
// simulation. Entities are bare integer ids; behavior is determined by
// which components are attached. Component tables are indexed by type so
// queries never scan the full entity set.
package ecs

// EntityID identifies an entity. Ids are never reused within a world.
type EntityID int64

// Store holds all entities and their components for one world.
// It is not safe for concurrent use; the tick loop owns it.
type Store struct {
	nextID EntityID

	// tables[type][id] = component value (pointer, mutated in place)
	tables map[ComponentType]map[EntityID]any

	// alive[id] = set of component types held, for O(1) destroy
	alive map[EntityID]map[ComponentType]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tables: make(map[ComponentType]map[EntityID]any),
		alive:  make(map[EntityID]map[ComponentType]struct{}),
	}
}

// CreateEntity allocates a fresh entity id with no components.
func (s *Store) CreateEntity() EntityID {
	s.nextID++
	id := s.nextID
	s.alive[id] = make(map[ComponentType]struct{}, 8)
	return id
}

// Exists reports whether the entity is alive. Deferred paths must
// re-check existence: a destroyed id is "not found", never a fault.
func (s *Store) Exists(id EntityID) bool {
	_, ok := s.alive[id]
	return ok
}

// AddComponent attaches value to the entity, replacing any previous
// component of the same type. No-op for destroyed entities.
func (s *Store) AddComponent(id EntityID, t ComponentType, value any) {
	types, ok := s.alive[id]
	if !ok {
		return
	}
	table, ok := s.tables[t]
	if !ok {
		table = make(map[EntityID]any)
		s.tables[t] = table
	}
	table[id] = value
	types[t] = struct{}{}
}

// GetComponent returns the component of the given type, or nil if the
// entity is gone or does not hold it.
func (s *Store) GetComponent(id EntityID, t ComponentType) any {
	if table, ok := s.tables[t]; ok {
		if v, ok := table[id]; ok {
			return v
		}
	}
	return nil
}

// HasComponent reports whether the entity holds the component type.
func (s *Store) HasComponent(id EntityID, t ComponentType) bool {
	if types, ok := s.alive[id]; ok {
		_, held := types[t]
		return held
	}
	return false
}

// RemoveComponent detaches a component type from the entity.
func (s *Store) RemoveComponent(id EntityID, t ComponentType) {
	if table, ok := s.tables[t]; ok {
		delete(table, id)
	}
	if types, ok := s.alive[id]; ok {
		delete(types, t)
	}
}

// DestroyEntity removes the entity and all its components.
func (s *Store) DestroyEntity(id EntityID) {
	types, ok := s.alive[id]
	if !ok {
		return
	}
	for t := range types {
		delete(s.tables[t], id)
	}
	delete(s.alive, id)
}

// Query returns the ids of all entities holding every given type.
// It iterates the smallest component table and membership-checks the
// rest, so cost is bounded by the rarest component, not world size.
func (s *Store) Query(types ...ComponentType) []EntityID {
	if len(types) == 0 {
		return nil
	}

	smallest := -1
	for i, t := range types {
		table, ok := s.tables[t]
		if !ok || len(table) == 0 {
			return nil
		}
		if smallest < 0 || len(table) < len(s.tables[types[smallest]]) {
			smallest = i
		}
	}

	base := s.tables[types[smallest]]
	out := make([]EntityID, 0, len(base))
outer:
	for id := range base {
		for i, t := range types {
			if i == smallest {
				continue
			}
			if _, ok := s.tables[t][id]; !ok {
				continue outer
			}
		}
		out = append(out, id)
	}
	return out
}

// AllEntities returns every live entity id.
func (s *Store) AllEntities() []EntityID {
	out := make([]EntityID, 0, len(s.alive))
	for id := range s.alive {
		out = append(out, id)
	}
	return out
}

// Count returns the number of live entities.
func (s *Store) Count() int {
	return len(s.alive)
}

// Typed accessors. These keep the type assertions in one place so the
// systems read cleanly.

func (s *Store) Position(id EntityID) (*Position, bool) {
	v, ok := s.GetComponent(id, CPosition).(*Position)
	return v, ok
}

func (s *Store) Velocity(id EntityID) (*Velocity, bool) {
	v, ok := s.GetComponent(id, CVelocity).(*Velocity)
	return v, ok
}

func (s *Store) Collider(id EntityID) (*Collider, bool) {
	v, ok := s.GetComponent(id, CCollider).(*Collider)
	return v, ok
}

func (s *Store) Health(id EntityID) (*Health, bool) {
	v, ok := s.GetComponent(id, CHealth).(*Health)
	return v, ok
}

func (s *Store) Inventory(id EntityID) (*Inventory, bool) {
	v, ok := s.GetComponent(id, CInventory).(*Inventory)
	return v, ok
}

func (s *Store) Equipment(id EntityID) (*Equipment, bool) {
	v, ok := s.GetComponent(id, CEquipment).(*Equipment)
	return v, ok
}

func (s *Store) Building(id EntityID) (*Building, bool) {
	v, ok := s.GetComponent(id, CBuilding).(*Building)
	return v, ok
}

func (s *Store) Ownership(id EntityID) (*Ownership, bool) {
	v, ok := s.GetComponent(id, COwnership).(*Ownership)
	return v, ok
}

func (s *Store) Projectile(id EntityID) (*Projectile, bool) {
	v, ok := s.GetComponent(id, CProjectile).(*Projectile)
	return v, ok
}

func (s *Store) DoorState(id EntityID) (*DoorState, bool) {
	v, ok := s.GetComponent(id, CDoorState).(*DoorState)
	return v, ok
}

// KindOf returns the entity's kind tag, or KindUnknown if untagged.
func (s *Store) KindOf(id EntityID) EntityKind {
	if v, ok := s.GetComponent(id, CKind).(*Kind); ok {
		return v.Kind
	}
	return KindUnknown
}
