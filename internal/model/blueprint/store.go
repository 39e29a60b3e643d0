package blueprint

// Store exposes blueprint retrieval for services and HTTP handlers.
type Store interface {
	List() []Blueprint
	FindByID(id string) (Blueprint, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Blueprint
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied blueprints.
func NewMemoryStore(items []Blueprint) *MemoryStore {
	return &MemoryStore{items: append([]Blueprint(nil), items...)}
}

// List returns the predefined blueprint list.
func (s *MemoryStore) List() []Blueprint {
	return append([]Blueprint(nil), s.items...)
}

// FindByID looks up a blueprint by identifier.
func (s *MemoryStore) FindByID(id string) (Blueprint, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Blueprint{}, false
}
