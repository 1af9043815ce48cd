package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/dropfour/server/internal/domain"

	_ "github.com/lib/pq"
)

// ArchiveRepo persists finished-game records. Gameplay never reads this
// table; it only feeds the history endpoint and offline analysis.
type ArchiveRepo struct {
	DB *sql.DB
}

func NewArchiveRepo(db *sql.DB) *ArchiveRepo {
	return &ArchiveRepo{DB: db}
}

// Connect opens the database and applies pool settings.
func Connect(connStr string, maxOpenConns, maxIdleConns, connMaxLifetimeMin int) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(time.Duration(connMaxLifetimeMin) * time.Minute)

	log.Println("[ARCHIVE] Database connected successfully")
	return db, nil
}

// RunMigrations creates the archive table if it does not exist.
func RunMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS game_archive (
		room_id      TEXT        NOT NULL,
		event        TEXT        NOT NULL,
		winner       INT         NOT NULL,
		players      JSONB       NOT NULL,
		final_board  JSONB       NOT NULL,
		move_count   INT         NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (room_id, finished_at)
	);
	CREATE INDEX IF NOT EXISTS idx_game_archive_finished_at ON game_archive (finished_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create game_archive schema: %v", err)
	}
	return nil
}

// SaveResult inserts one finished-game record. The same room can finish
// repeatedly across resets, hence the composite primary key.
func (r *ArchiveRepo) SaveResult(ctx context.Context, rec domain.GameRecord) error {
	playersJSON, err := json.Marshal(rec.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal players: %v", err)
	}
	boardJSON, err := json.Marshal(rec.FinalBoard)
	if err != nil {
		return fmt.Errorf("failed to marshal final board: %v", err)
	}

	query := `
	INSERT INTO game_archive (room_id, event, winner, players, final_board, move_count, created_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (room_id, finished_at) DO NOTHING;
	`
	if _, err := r.DB.ExecContext(ctx, query, rec.RoomID, rec.Event, rec.Winner, playersJSON, boardJSON, rec.MoveCount, rec.CreatedAt, rec.FinishedAt); err != nil {
		return fmt.Errorf("failed to insert game record: %v", err)
	}
	return nil
}

// RecentResults returns the latest finished games, newest first.
func (r *ArchiveRepo) RecentResults(ctx context.Context, limit int) ([]domain.GameRecord, error) {
	query := `
	SELECT room_id, event, winner, players, final_board, move_count, created_at, finished_at
	FROM game_archive
	ORDER BY finished_at DESC
	LIMIT $1;
	`

	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query game archive: %v", err)
	}
	defer rows.Close()

	var records []domain.GameRecord
	for rows.Next() {
		var rec domain.GameRecord
		var playersJSON, boardJSON []byte

		if err := rows.Scan(&rec.RoomID, &rec.Event, &rec.Winner, &playersJSON, &boardJSON, &rec.MoveCount, &rec.CreatedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %v", err)
		}
		if err := json.Unmarshal(playersJSON, &rec.Players); err != nil {
			return nil, fmt.Errorf("failed to unmarshal players: %v", err)
		}
		if err := json.Unmarshal(boardJSON, &rec.FinalBoard); err != nil {
			return nil, fmt.Errorf("failed to unmarshal final board: %v", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
