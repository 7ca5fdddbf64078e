package postgres

/*
Файл policy_repo.go хранит переопределения порогов Policy Engine.
Долговременное хранение здесь, мгновенная проверка в памяти (policy.SettingsCache).
*/

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// LoadPolicySettings "холодная загрузка" всех переопределений.
func (r *Repo) LoadPolicySettings(ctx context.Context) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM policy_settings`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query policy settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			key   string
			value float64
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan policy setting: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return out, nil
}

// UpsertPolicySetting создает или обновляет порог.
func (r *Repo) UpsertPolicySetting(ctx context.Context, key string, value float64) error {
	query := `
		INSERT INTO policy_settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("postgres: failed to upsert policy setting %s: %w", key, err)
	}
	return nil
}

// DeletePolicySetting возвращает порог к значению из конфигурации.
func (r *Repo) DeletePolicySetting(ctx context.Context, key string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM policy_settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete policy setting: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "policy setting", key)
	}
	return nil
}
