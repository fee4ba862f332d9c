package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cbodonnell/buddybeacon/pkg/repositories/models"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, path string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	schema, err := migrations()
	if err != nil {
		db.Close()
		return nil, err
	}
	for i, migration := range schema {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute migration %d: %v", i+1, err)
		}
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) GetPlayer(ctx context.Context, uid string) (*models.Player, error) {
	q := `
	SELECT uid, name, first_joined_at, last_joined_at FROM players WHERE uid = ?;
	`
	player := &models.Player{}
	if err := r.db.QueryRowContext(ctx, q, uid).Scan(&player.UID, &player.Name, &player.FirstJoinedAt, &player.LastJoinedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan player: %v", err)
	}

	return player, nil
}

func (r *SQLiteRepository) SavePlayerJoin(ctx context.Context, uid string, name string, timestamp int64) error {
	q := `
	INSERT INTO players (uid, name, first_joined_at, last_joined_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (uid) DO UPDATE SET name = excluded.name, last_joined_at = excluded.last_joined_at;
	`
	if _, err := r.db.ExecContext(ctx, q, uid, name, timestamp, timestamp); err != nil {
		return fmt.Errorf("failed to save player join: %v", err)
	}

	return nil
}
