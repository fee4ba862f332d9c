package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger(t *testing.T, repo Repository) {
	ctx := context.Background()

	_, err := repo.GetPlayer(ctx, "u1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	require.NoError(t, repo.SavePlayerJoin(ctx, "u1", "Ann", 100))
	require.NoError(t, repo.SavePlayerJoin(ctx, "u1", "Annie", 250))

	player, err := repo.GetPlayer(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", player.UID)
	assert.Equal(t, "Annie", player.Name)
	assert.Equal(t, int64(100), player.FirstJoinedAt)
	assert.Equal(t, int64(250), player.LastJoinedAt)

	assert.NoError(t, repo.Close(ctx))
}

func TestMemoryRepository(t *testing.T) {
	testLedger(t, NewMemoryRepository())
}

func TestSQLiteRepository(t *testing.T) {
	repo, err := NewRepository(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	testLedger(t, repo)
}

func TestNewRepository(t *testing.T) {
	repo, err := NewRepository(context.Background(), "memory://")
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepository{}, repo)

	_, err = NewRepository(context.Background(), "mysql://nope")
	assert.Error(t, err)
}
