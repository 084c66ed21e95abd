package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyunwoo-dev/billiard-services/internal/floorsvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserStore struct {
	db *pgxpool.Pool
}

func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, name, is_online, status, online_at, online_count, session_game_count, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.IsOnline,
		&u.Status,
		&u.OnlineAt,
		&u.OnlineCount,
		&u.SessionGameCount,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// List returns every user record, newest arrivals first.
func (r *UserStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+userColumns+`
        FROM s_user
        ORDER BY created_at DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("could not list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user rows: %w", err)
	}
	return users, nil
}

func (r *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM s_user
        WHERE id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not get user: %w", err)
	}
	return u, nil
}

// Create inserts a new patron. New users start offline in the wait queue.
func (r *UserStore) Create(ctx context.Context, id, name string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
        INSERT INTO s_user (id, name, is_online, status, online_count, session_game_count, created_at, updated_at)
        VALUES ($1, $2, false, 'wait', 0, 0, NOW(), NOW())
        RETURNING `+userColumns+`
    `, id, name))
	if err != nil {
		return nil, fmt.Errorf("could not create user: %w", err)
	}
	return u, nil
}

// Update applies a partial patch and returns the updated record. Only the
// fields set on the patch are touched; updated_at is always stamped so the
// waitlist FIFO position moves with every mutation.
func (r *UserStore) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	sets := []string{}
	args := []interface{}{id}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.IsOnline != nil {
		add("is_online", *patch.IsOnline)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.OnlineAt != nil {
		add("online_at", *patch.OnlineAt)
	} else if patch.ClearOnlineAt {
		sets = append(sets, "online_at = NULL")
	}
	if patch.OnlineCount != nil {
		add("online_count", *patch.OnlineCount)
	}
	if patch.SessionGameCount != nil {
		add("session_game_count", *patch.SessionGameCount)
	}

	updatedAt := time.Now()
	if patch.UpdatedAt != nil {
		updatedAt = *patch.UpdatedAt
	}
	add("updated_at", updatedAt)

	query := fmt.Sprintf(`
        UPDATE s_user
        SET %s
        WHERE id = $1
        RETURNING %s
    `, strings.Join(sets, ", "), userColumns)

	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not update user: %w", err)
	}
	return u, nil
}

func (r *UserStore) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM s_user WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("could not delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountsByOnlineStatus returns the aggregate totals shown on the board
// header. One query keeps the counts consistent with each other.
func (r *UserStore) CountsByOnlineStatus(ctx context.Context) (models.UserCounts, error) {
	var c models.UserCounts
	err := r.db.QueryRow(ctx, `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE is_online),
               COUNT(*) FILTER (WHERE NOT is_online)
        FROM s_user
    `).Scan(&c.Total, &c.Online, &c.Offline)
	if err != nil {
		return models.UserCounts{}, fmt.Errorf("could not count users: %w", err)
	}
	return c, nil
}
