package repositories

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/cbodonnell/buddybeacon/pkg/repositories/models"
)

// Repository is the first-join ledger. It is the only persistent state of
// the server.
type Repository interface {
	Close(ctx context.Context) error
	// GetPlayer returns ErrNotFound for a uid that has never joined.
	GetPlayer(ctx context.Context, uid string) (*models.Player, error)
	// SavePlayerJoin records a join, creating the entry on the first one.
	SavePlayerJoin(ctx context.Context, uid string, name string, timestamp int64) error
}

//go:embed migrations/*.sql
var migrationFS embed.FS

// NewRepository picks the implementation from the database URL scheme:
// memory://, sqlite://<path> or postgres://...
func NewRepository(ctx context.Context, databaseURL string) (Repository, error) {
	switch {
	case databaseURL == "" || strings.HasPrefix(databaseURL, "memory://"):
		return NewMemoryRepository(), nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return NewSQLiteRepository(ctx, strings.TrimPrefix(databaseURL, "sqlite://"))
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return NewPostgresRepository(ctx, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %s", databaseURL)
	}
}

// migrations returns the embedded schema files in name order.
func migrations() ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		b, err := migrationFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", entry.Name(), err)
		}
		out = append(out, string(b))
	}
	return out, nil
}
