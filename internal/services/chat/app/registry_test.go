package server

import "testing"

func TestRegistryRegisterLastWins(t *testing.T) {
	t.Parallel()

	r := newRegistry()
	first := &peer{userID: 1}
	second := &peer{userID: 1}

	if prev := r.register(7, 1, first); prev != nil {
		t.Fatalf("register returned %v, want nil", prev)
	}
	if prev := r.register(7, 1, second); prev != first {
		t.Fatalf("register returned %v, want the replaced peer", prev)
	}
	if got := r.get(7, 1); got != second {
		t.Fatalf("get returned %v, want the newest peer", got)
	}
}

func TestRegistryUnregisterStaleIsNoOp(t *testing.T) {
	t.Parallel()

	r := newRegistry()
	stale := &peer{userID: 1}
	live := &peer{userID: 1}
	r.register(7, 1, stale)
	r.register(7, 1, live)

	r.unregister(7, 1, stale)
	if got := r.get(7, 1); got != live {
		t.Fatalf("stale unregister evicted the live peer")
	}

	r.unregister(7, 1, live)
	if got := r.get(7, 1); got != nil {
		t.Fatalf("get after unregister returned %v, want nil", got)
	}
}

func TestRegistryConversationSnapshot(t *testing.T) {
	t.Parallel()

	r := newRegistry()
	a := &peer{userID: 1}
	b := &peer{userID: 2}
	r.register(7, 1, a)
	r.register(7, 2, b)

	snap := r.conversation(7)
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d peers, want 2", len(snap))
	}

	// Mutating the snapshot must not affect the registry.
	delete(snap, 1)
	if got := r.get(7, 1); got != a {
		t.Fatalf("registry lost a peer after snapshot mutation")
	}

	if snap := r.conversation(99); snap != nil {
		t.Fatalf("unknown conversation snapshot = %v, want nil", snap)
	}
}
