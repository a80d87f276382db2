package memory

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestBackendOf(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"", BackendInMemory},
		{"postgres://u:p@localhost:5432/chat", BackendPostgres},
		{"postgresql://localhost/chat", BackendPostgres},
		{"sqlite:///var/lib/lankachat/turns.db", BackendSQLite},
		{"sqlite:turns.db", BackendSQLite},
		{"file:turns.db", BackendSQLite},
		{"mysql://localhost/chat", ""},
		{"sqlite://", ""},
	}
	for _, tc := range cases {
		if got := BackendOf(tc.url); got != tc.want {
			t.Fatalf("BackendOf(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestNewStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.db")
	store, err := NewStore(context.Background(), "sqlite://"+path)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("NewStore() = %T, want *SQLiteStore", store)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestNewStoreRejectsUnknownSchemeWithoutLeakingPassword(t *testing.T) {
	_, err := NewStore(context.Background(), "mysql://admin:hunter2@db/chat")
	if err == nil {
		t.Fatalf("NewStore() expected error for mysql scheme")
	}
	if strings.Contains(err.Error(), "hunter2") {
		t.Fatalf("error leaks password: %v", err)
	}
}
