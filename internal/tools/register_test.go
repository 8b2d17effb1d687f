package tools

import (
	"testing"

	"github.com/crolens/crolens-api/internal/registry"
)

func TestStandardRegistry_MatchesSchemaOrder(t *testing.T) {
	r := NewStandardRegistry()
	want := registry.Names()

	if r.Len() != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), r.Len())
	}

	got := r.Names()
	for i, name := range want {
		if got[i] != name {
			t.Errorf("position %d: expected %q, got %q", i, name, got[i])
		}
	}
}

func TestStandardRegistry_EveryToolResolvable(t *testing.T) {
	r := NewStandardRegistry()
	for _, name := range r.Names() {
		if _, ok := r.Get(name); !ok {
			t.Errorf("tool %q registered but not resolvable", name)
		}
	}
}
