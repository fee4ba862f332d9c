package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbodonnell/buddybeacon/pkg/log"
	"github.com/cbodonnell/buddybeacon/pkg/repositories/models"
	"github.com/jackc/pgx/v5"
)

type PostgresRepository struct {
	conn *pgx.Conn
}

// NewPostgresRepository connects to the database and applies the schema.
// The caller is responsible for calling Close() on the repository.
func NewPostgresRepository(ctx context.Context, connStr string) (Repository, error) {
	conn, err := connectDb(ctx, connStr)
	if err != nil {
		return nil, err
	}

	schema, err := migrations()
	if err != nil {
		conn.Close(ctx)
		return nil, err
	}
	for i, migration := range schema {
		if _, err := conn.Exec(ctx, migration); err != nil {
			conn.Close(ctx)
			return nil, fmt.Errorf("failed to execute migration %d: %v", i+1, err)
		}
	}

	return &PostgresRepository{
		conn: conn,
	}, nil
}

func connectDb(ctx context.Context, connStr string) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	var username string
	var database string
	err = conn.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("unable to query database: %v", err)
	}

	log.Info("Connected to %s as %s", database, username)

	return conn, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}

func (r *PostgresRepository) GetPlayer(ctx context.Context, uid string) (*models.Player, error) {
	q := `
	SELECT uid, name, first_joined_at, last_joined_at FROM players WHERE uid = $1;
	`
	player := &models.Player{}
	if err := r.conn.QueryRow(ctx, q, uid).Scan(&player.UID, &player.Name, &player.FirstJoinedAt, &player.LastJoinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan player: %v", err)
	}

	return player, nil
}

func (r *PostgresRepository) SavePlayerJoin(ctx context.Context, uid string, name string, timestamp int64) error {
	q := `
	INSERT INTO players (uid, name, first_joined_at, last_joined_at) VALUES ($1, $2, $3, $3)
	ON CONFLICT (uid) DO UPDATE SET name = $2, last_joined_at = $3;
	`
	if _, err := r.conn.Exec(ctx, q, uid, name, timestamp); err != nil {
		return fmt.Errorf("failed to save player join: %v", err)
	}

	return nil
}
