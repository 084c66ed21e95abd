package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TableStore mirrors the derived per-table state into the s_table side
// table so other viewers share consistent elapsed-game timers. The mirror
// is never authoritative for assignment, the per-user status field is.
type TableStore struct {
	db *pgxpool.Pool
}

func NewTableStore(db *pgxpool.Pool) *TableStore {
	return &TableStore{db: db}
}

func (s *TableStore) GetAll(ctx context.Context) ([]models.Table, error) {
	rows, err := s.db.Query(ctx, `
        SELECT table_number, status, game_started_at, current_players, waiting_players, last_updated
        FROM s_table
        ORDER BY table_number ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("could not list tables: %w", err)
	}
	defer rows.Close()

	var tables []models.Table
	for rows.Next() {
		t := models.Table{}
		err := rows.Scan(
			&t.TableNumber,
			&t.Status,
			&t.GameStartedAt,
			&t.CurrentPlayers,
			&t.WaitingPlayers,
			&t.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("could not scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table rows: %w", err)
	}
	return tables, nil
}

func (s *TableStore) Get(ctx context.Context, tableNumber int) (*models.Table, error) {
	t := &models.Table{}
	err := s.db.QueryRow(ctx, `
        SELECT table_number, status, game_started_at, current_players, waiting_players, last_updated
        FROM s_table
        WHERE table_number = $1
    `, tableNumber).Scan(
		&t.TableNumber,
		&t.Status,
		&t.GameStartedAt,
		&t.CurrentPlayers,
		&t.WaitingPlayers,
		&t.LastUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("could not get table %d: %w", tableNumber, err)
	}
	return t, nil
}

// Sync pushes one table's derived roster to the mirror.
func (s *TableStore) Sync(ctx context.Context, t models.Table) error {
	_, err := s.db.Exec(ctx, `
        UPDATE s_table
        SET status = $2,
            game_started_at = $3,
            current_players = $4,
            waiting_players = $5,
            last_updated = NOW()
        WHERE table_number = $1
    `, t.TableNumber, t.Status, t.GameStartedAt, t.CurrentPlayers, t.WaitingPlayers)
	if err != nil {
		return fmt.Errorf("could not sync table %d: %w", t.TableNumber, err)
	}
	return nil
}

// StartGame stamps the shared game clock for a table.
func (s *TableStore) StartGame(ctx context.Context, tableNumber int, playerIDs []string, startedAt time.Time) error {
	_, err := s.db.Exec(ctx, `
        UPDATE s_table
        SET status = 'playing',
            game_started_at = $2,
            current_players = $3,
            last_updated = NOW()
        WHERE table_number = $1
    `, tableNumber, startedAt, playerIDs)
	if err != nil {
		return fmt.Errorf("could not start game on table %d: %w", tableNumber, err)
	}
	return nil
}

// EndGame clears the shared game clock and roster for a table.
func (s *TableStore) EndGame(ctx context.Context, tableNumber int) error {
	_, err := s.db.Exec(ctx, `
        UPDATE s_table
        SET status = 'available',
            game_started_at = NULL,
            current_players = '{}',
            waiting_players = '{}',
            last_updated = NOW()
        WHERE table_number = $1
    `, tableNumber)
	if err != nil {
		return fmt.Errorf("could not end game on table %d: %w", tableNumber, err)
	}
	return nil
}

// EndAllGames is the closing-time sweep: every non-available table resets.
func (s *TableStore) EndAllGames(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
        UPDATE s_table
        SET status = 'available',
            game_started_at = NULL,
            current_players = '{}',
            waiting_players = '{}',
            last_updated = NOW()
        WHERE status <> 'available'
    `)
	if err != nil {
		return fmt.Errorf("could not end all games: %w", err)
	}
	return nil
}
