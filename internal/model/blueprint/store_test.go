package blueprint

import "testing"

func TestMemoryStoreFindByID(t *testing.T) {
	store := NewMemoryStore(Seed())

	got, ok := store.FindByID(DefaultID)
	if !ok {
		t.Fatalf("expected seeded blueprint %s", DefaultID)
	}
	if got.Name != "MOTION SOUL" {
		t.Fatalf("unexpected name: %s", got.Name)
	}

	if _, ok := store.FindByID("missing"); ok {
		t.Fatal("expected missing blueprint lookup to fail")
	}
}

func TestMemoryStoreListIsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())

	list := store.List()
	list[0].Name = "mutated"

	if store.List()[0].Name == "mutated" {
		t.Fatal("List must not expose internal slice")
	}
}
