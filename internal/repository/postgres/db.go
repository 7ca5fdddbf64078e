package postgres

/*
Файл db.go содержит пул соединений и миграцию схемы.

Все методы хранилища отдают промахи как domain.ErrNotFound, а проваленные условные
записи (WHERE status = $from) как domain.ErrConcurrentModification.
*/

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/brief-governance/internal/domain"
	"github.com/xela07ax/brief-governance/internal/infra"
)

//go:embed schema.sql
var schemaSQL string

type Repo struct {
	pool *pgxpool.Pool
}

// New открывает пул. Доступность базы проверяется отдельно через Ping.
func New(ctx context.Context, cfg infra.DatabaseConfig) (*Repo, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func NewWithPool(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Ping проверяет доступность базы при старте
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Close() {
	r.pool.Close()
}

// Migrate накатывает схему. Все DDL идемпотентны (IF NOT EXISTS).
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// notFound переводит pgx.ErrNoRows в доменный промах.
func notFound(err error, what, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("postgres: failed to load %s %s: %w", what, id, err)
}

// querier общий знаменатель пула и транзакции.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// missOrConflict вызывается, когда условная запись не задела ни одной строки:
// либо строки нет, либо ее статус уже поменяли.
func missOrConflict(ctx context.Context, q querier, table, id string) error {
	var exists bool
	err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: failed to check %s %s: %w", table, id, err)
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", table, id, domain.ErrNotFound)
	}
	return domain.ErrConcurrentModification
}
