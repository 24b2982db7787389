// Package postgres implements the credential store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"session-auth/internal/domain"
	"session-auth/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	full_name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	is_confirmed BOOLEAN NOT NULL DEFAULT FALSE
)`

const selectUser = `SELECT id, full_name, email, username, password_hash, created_at, is_confirmed FROM users`

// Pool is the subset of *pgxpool.Pool used by the repository.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect opens a connection pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

type UserRepository struct {
	pool Pool
}

func NewUserRepository(pool Pool) repository.UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (full_name, email, username, password_hash, created_at, is_confirmed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		user.FullName,
		user.Email,
		user.Username,
		user.PasswordHash,
		createdAt,
		user.IsConfirmed,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("insert user: %w", domain.ErrUserExists)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	user.CreatedAt = createdAt
	return id, nil
}

func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, selectUser+` WHERE email = $1 OR username = $1 ORDER BY id LIMIT 1`, identifier)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR username = $2)`,
		email, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.IsConfirmed,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
