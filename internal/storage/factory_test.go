package storage

import "testing"

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore("memory", "")
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestNewStoreSQLBackends(t *testing.T) {
	for _, kind := range []string{KindSQLite, KindPostgres} {
		store, err := NewStore(kind, "dsn")
		if err != nil {
			t.Fatalf("new %s store: %v", kind, err)
		}
		if _, ok := store.(*SQLStore); !ok {
			t.Fatalf("expected sql store for %s, got %T", kind, store)
		}
		if err := CloseIfSupported(store); err != nil {
			t.Fatalf("close unopened %s store: %v", kind, err)
		}
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("unknown", "")
	if err == nil {
		t.Fatal("expected unsupported store error")
	}
}
