package runtime

import "testing"

func TestChainOrdering(t *testing.T) {
	chain := NewChain()
	var order []string
	record := func(tag string) func(string) error {
		return func(string) error {
			order = append(order, tag)
			return nil
		}
	}

	chain.Register(record("a"), false)
	chain.Register(record("b"), false)
	chain.Register(record("c"), true)

	for _, handler := range chain.Handlers() {
		if err := handler("X"); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if len(order) != 3 || order[0] != "c" || order[1] != "a" || order[2] != "b" {
		t.Fatalf("expected prepend-first order [c a b], got %v", order)
	}
}

func TestChainUnregister(t *testing.T) {
	chain := NewChain()
	tokA := chain.Register(func(string) error { return nil }, false)
	chain.Register(func(string) error { return nil }, false)

	chain.Unregister(tokA)
	if chain.Len() != 1 {
		t.Fatalf("expected 1 handler after unregister, got %d", chain.Len())
	}
	// Unknown and zero tokens are ignored.
	chain.Unregister(tokA)
	chain.Unregister(0)
	if chain.Len() != 1 {
		t.Fatalf("repeated unregister must be a no-op, got %d", chain.Len())
	}
}

func TestChainNilHandlerIgnored(t *testing.T) {
	chain := NewChain()
	if token := chain.Register(nil, false); token != 0 {
		t.Fatalf("nil handler must not be registered, got token %d", token)
	}
	if chain.Len() != 0 {
		t.Fatalf("chain must stay empty, got %d", chain.Len())
	}
}
