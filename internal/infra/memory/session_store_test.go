package memory

import (
	"testing"

	"quiz-poll-bot/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	first := app.NewSession(42, nil)
	if replaced := store.Put(first); replaced != nil {
		t.Fatalf("expected no replaced session, got %v", replaced.ID)
	}
	if got, ok := store.Get(42); !ok || got != first {
		t.Fatalf("expected first session present")
	}

	second := app.NewSession(42, nil)
	if replaced := store.Put(second); replaced != first {
		t.Fatalf("expected first session to be replaced")
	}

	if store.Delete(42, first.ID) {
		t.Fatalf("stale delete must not remove the newer session")
	}
	if got, _ := store.Get(42); got != second {
		t.Fatalf("expected second session present")
	}

	if !store.Delete(42, second.ID) {
		t.Fatalf("expected delete to succeed")
	}
	if _, ok := store.Get(42); ok {
		t.Fatalf("expected session removed")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}
