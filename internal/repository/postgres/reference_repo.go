package postgres

/*
Файл reference_repo.go читает справочники: шаблоны запросов, клубы и мощности продакшна.
Владелец данных внешний, движок их только читает.
*/

import (
	"context"
	"database/sql"

	"github.com/xela07ax/brief-governance/internal/domain"
)

func (r *Repo) GetTemplate(ctx context.Context, id string) (*domain.RequestTemplate, error) {
	query := `
		SELECT id, code, name, default_sla_days, is_internal, is_blacklisted, blacklist_reason, capacity_id
		FROM request_templates WHERE id = $1`

	var (
		t          domain.RequestTemplate
		capacityID sql.NullString // Используем для обработки NULL из БД
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Code, &t.Name, &t.DefaultSLADays, &t.IsInternal, &t.IsBlacklisted, &t.BlacklistReason, &capacityID,
	)
	if err != nil {
		return nil, notFound(err, "template", id)
	}
	if capacityID.Valid {
		t.CapacityID = capacityID.String
	}
	return &t, nil
}

func (r *Repo) GetClub(ctx context.Context, id string) (*domain.Club, error) {
	var c domain.Club
	err := r.pool.QueryRow(ctx, `SELECT id, name, region, tier FROM clubs WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Region, &c.Tier)
	if err != nil {
		return nil, notFound(err, "club", id)
	}
	return &c, nil
}

func (r *Repo) GetCapacity(ctx context.Context, id string) (*domain.ProductionCapacity, error) {
	var c domain.ProductionCapacity
	err := r.pool.QueryRow(ctx, `SELECT id, name, is_active FROM production_capacity WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.IsActive)
	if err != nil {
		return nil, notFound(err, "capacity", id)
	}
	return &c, nil
}
