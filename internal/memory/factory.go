package memory

import (
	"context"
	"fmt"
	"strings"
)

// Backend names reported by BackendOf.
const (
	BackendInMemory = "in-memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// NewStore picks a backend from the database URL scheme. An empty URL yields the
// in-process store.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	backend, target, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	switch backend {
	case BackendPostgres:
		return NewPostgresStore(ctx, target)
	case BackendSQLite:
		return NewSQLiteStore(ctx, target)
	default:
		return NewInMemoryStore(), nil
	}
}

// BackendOf returns the backend NewStore would choose for databaseURL.
func BackendOf(databaseURL string) string {
	backend, _, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return ""
	}
	return backend
}

func parseDatabaseURL(databaseURL string) (backend, target string, err error) {
	u := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(u)
	switch {
	case u == "":
		return BackendInMemory, "", nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return BackendPostgres, u, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return sqliteTarget(u[len("sqlite://"):])
	case strings.HasPrefix(lower, "sqlite:"):
		return sqliteTarget(u[len("sqlite:"):])
	case strings.HasPrefix(lower, "file:"):
		return sqliteTarget(u[len("file:"):])
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme in %q (expected postgres://, sqlite:// or file:)", redactURL(u))
	}
}

func sqliteTarget(path string) (string, string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", "", fmt.Errorf("sqlite DATABASE_URL is missing a file path")
	}
	return BackendSQLite, path, nil
}

// redactURL drops userinfo so credentials never reach logs or errors.
func redactURL(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return u
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}
