package persona

import "testing"

func TestSeedContainsDefaultPersona(t *testing.T) {
	store := NewMemoryStore(Seed())

	p, ok := store.FindByID(DefaultID)
	if !ok {
		t.Fatalf("expected default persona %q to be seeded", DefaultID)
	}
	if len(p.Rules) == 0 {
		t.Fatal("expected default persona to carry conversation rules")
	}
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())

	items := store.List()
	items[0].Name = "mutated"

	if got, _ := store.FindByID(items[0].ID); got.Name == "mutated" {
		t.Fatal("List must not expose the backing slice")
	}
}
