package testsupport

import (
	"context"
	"testing"

	"lectern/internal/config"
	"lectern/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewSession creates a module with a single session for tests.
func NewSession(t testing.TB, st *store.Store, moduleName, sessionName string) *store.Session {
	t.Helper()

	module, err := st.CreateModule(context.Background(), moduleName)
	if err != nil {
		t.Fatalf("store.CreateModule: %v", err)
	}
	session, err := st.CreateSession(context.Background(), module.ID, sessionName)
	if err != nil {
		t.Fatalf("store.CreateSession: %v", err)
	}
	return session
}
