package postgres

/*
Файл brief_repo.go хранит брифы. Каждая смена статуса это один UPDATE ... WHERE status = $from:
если параллельный переход успел раньше, строка не задевается и вызывающий получает
ErrConcurrentModification (защита от Double Decision, как в approvals).
*/

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/brief-governance/internal/domain"
)

const briefColumns = `id, code, club_id, brand_id, template_id, creator_id,
	title, context, offer_details, legal_copy, asset_links, custom_fields, formats, custom_formats,
	business_objective, kpi_description, kpi_target, decision_context,
	estimated_cost, is_crisis_communication, confidence_level, policy_result, policy_evaluated_at,
	requires_owner_approval, owner_approval_reason, priority,
	reviewer_id, review_comment, sla_days, decided_at,
	status, created_at, updated_at, submitted_at, deadline, start_date, end_date`

const briefColumnCount = 37

func scanBrief(row pgx.Row) (*domain.Brief, error) {
	var (
		b                          domain.Brief
		customFields, policyResult []byte
	)
	err := row.Scan(
		&b.ID, &b.Code, &b.ClubID, &b.BrandID, &b.TemplateID, &b.CreatorID,
		&b.Title, &b.Context, &b.OfferDetails, &b.LegalCopy, &b.AssetLinks, &customFields, &b.Formats, &b.CustomFormats,
		&b.BusinessObjective, &b.KPIDescription, &b.KPITarget, &b.DecisionContext,
		&b.EstimatedCost, &b.IsCrisisCommunication, &b.ConfidenceLevel, &policyResult, &b.PolicyEvaluatedAt,
		&b.RequiresOwnerApproval, &b.OwnerApprovalReason, &b.Priority,
		&b.ReviewerID, &b.ReviewComment, &b.SLADays, &b.DecidedAt,
		&b.Status, &b.CreatedAt, &b.UpdatedAt, &b.SubmittedAt, &b.Deadline, &b.StartDate, &b.EndDate,
	)
	if err != nil {
		return nil, err
	}
	if len(customFields) > 0 {
		if err := json.Unmarshal(customFields, &b.CustomFields); err != nil {
			return nil, fmt.Errorf("postgres: corrupted custom_fields of brief %s: %w", b.ID, err)
		}
	}
	if len(policyResult) > 0 {
		b.PolicyResult = &domain.PolicyResult{}
		if err := json.Unmarshal(policyResult, b.PolicyResult); err != nil {
			return nil, fmt.Errorf("postgres: corrupted policy_result of brief %s: %w", b.ID, err)
		}
	}
	return &b, nil
}

func briefArgs(b *domain.Brief) ([]any, error) {
	customFields, err := jsonOrNil(b.CustomFields, len(b.CustomFields) == 0)
	if err != nil {
		return nil, err
	}
	policyResult, err := jsonOrNil(b.PolicyResult, b.PolicyResult == nil)
	if err != nil {
		return nil, err
	}
	return []any{
		b.ID, b.Code, b.ClubID, b.BrandID, b.TemplateID, b.CreatorID,
		b.Title, b.Context, b.OfferDetails, b.LegalCopy, nonNil(b.AssetLinks), customFields, nonNil(b.Formats), nonNil(b.CustomFormats),
		string(b.BusinessObjective), b.KPIDescription, b.KPITarget, string(b.DecisionContext),
		b.EstimatedCost, b.IsCrisisCommunication, string(b.ConfidenceLevel), policyResult, b.PolicyEvaluatedAt,
		b.RequiresOwnerApproval, b.OwnerApprovalReason, string(b.Priority),
		b.ReviewerID, b.ReviewComment, b.SLADays, b.DecidedAt,
		string(b.Status), b.CreatedAt, b.UpdatedAt, b.SubmittedAt, b.Deadline, b.StartDate, b.EndDate,
	}, nil
}

func (r *Repo) GetBrief(ctx context.Context, id string) (*domain.Brief, error) {
	b, err := scanBrief(r.pool.QueryRow(ctx, "SELECT "+briefColumns+" FROM briefs WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "brief", id)
	}
	return b, nil
}

// CreateBrief назначает ID и код BR-<год>-<seq> в одной транзакции со вставкой.
func (r *Repo) CreateBrief(ctx context.Context, b *domain.Brief) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	year := b.CreatedAt.Year()
	var seq int
	err = tx.QueryRow(ctx, `
		INSERT INTO brief_code_seq (year, last) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last = brief_code_seq.last + 1
		RETURNING last`, year).Scan(&seq)
	if err != nil {
		return fmt.Errorf("postgres: failed to allocate brief code: %w", err)
	}

	b.ID = uuid.NewString()
	b.Code = domain.FormatBriefCode(year, seq)

	args, err := briefArgs(b)
	if err != nil {
		return err
	}
	query := "INSERT INTO briefs (" + briefColumns + ") VALUES (" + placeholders(1, briefColumnCount) + ")"
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: failed to create brief: %w", err)
	}
	return tx.Commit(ctx)
}

// UpdateBriefContent пишет контент, если ни статус, ни updated_at не поменялись с момента чтения.
func (r *Repo) UpdateBriefContent(ctx context.Context, b *domain.Brief, expected domain.BriefStatus, expectedUpdatedAt time.Time) error {
	customFields, err := jsonOrNil(b.CustomFields, len(b.CustomFields) == 0)
	if err != nil {
		return err
	}
	query := `
		UPDATE briefs
		SET title = $1, context = $2, offer_details = $3, legal_copy = $4,
		    asset_links = $5, custom_fields = $6, formats = $7, custom_formats = $8,
		    business_objective = $9, kpi_description = $10, kpi_target = $11, decision_context = $12,
		    estimated_cost = $13, is_crisis_communication = $14, confidence_level = $15,
		    deadline = $16, start_date = $17, end_date = $18, updated_at = $19
		WHERE id = $20 AND status = $21 AND updated_at = $22`

	ct, err := r.pool.Exec(ctx, query,
		b.Title, b.Context, b.OfferDetails, b.LegalCopy,
		nonNil(b.AssetLinks), customFields, nonNil(b.Formats), nonNil(b.CustomFormats),
		string(b.BusinessObjective), b.KPIDescription, b.KPITarget, string(b.DecisionContext),
		b.EstimatedCost, b.IsCrisisCommunication, string(b.ConfidenceLevel),
		b.Deadline, b.StartDate, b.EndDate, b.UpdatedAt,
		b.ID, string(expected), expectedUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to update brief content: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return missOrConflict(ctx, r.pool, "briefs", b.ID)
	}
	return nil
}

const transitionBriefSQL = `
	UPDATE briefs
	SET status = $1, policy_result = $2, policy_evaluated_at = $3,
	    requires_owner_approval = $4, owner_approval_reason = $5, priority = $6,
	    reviewer_id = $7, review_comment = $8, sla_days = $9, decided_at = $10,
	    submitted_at = $11, updated_at = $12
	WHERE id = $13 AND status = $14 AND updated_at = $15`

func transitionArgs(b *domain.Brief, from domain.BriefStatus, expectedUpdatedAt time.Time) ([]any, error) {
	policyResult, err := jsonOrNil(b.PolicyResult, b.PolicyResult == nil)
	if err != nil {
		return nil, err
	}
	return []any{
		string(b.Status), policyResult, b.PolicyEvaluatedAt,
		b.RequiresOwnerApproval, b.OwnerApprovalReason, string(b.Priority),
		b.ReviewerID, b.ReviewComment, b.SLADays, b.DecidedAt,
		b.SubmittedAt, b.UpdatedAt,
		b.ID, string(from), expectedUpdatedAt,
	}, nil
}

// TransitionBrief атомарно пишет статус и метаданные политики, если статус == from
// и контент не правили после чтения (updated_at).
func (r *Repo) TransitionBrief(ctx context.Context, b *domain.Brief, from domain.BriefStatus, expectedUpdatedAt time.Time) error {
	args, err := transitionArgs(b, from, expectedUpdatedAt)
	if err != nil {
		return err
	}
	ct, err := r.pool.Exec(ctx, transitionBriefSQL, args...)
	if err != nil {
		return fmt.Errorf("postgres: failed to transition brief: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return missOrConflict(ctx, r.pool, "briefs", b.ID)
	}
	return nil
}

// ApproveBrief SUBMITTED -> APPROVED и задача продакшна в одной транзакции:
// одобренного брифа без задачи не бывает.
func (r *Repo) ApproveBrief(ctx context.Context, b *domain.Brief, task *domain.ProductionTask, expectedUpdatedAt time.Time) error {
	args, err := transitionArgs(b, domain.StatusSubmitted, expectedUpdatedAt)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, transitionBriefSQL, args...)
	if err != nil {
		return fmt.Errorf("postgres: failed to approve brief: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return missOrConflict(ctx, tx, "briefs", b.ID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO production_tasks (id, brief_id, status, priority, assignee_id, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		task.ID, task.BriefID, string(task.Status), string(task.Priority), task.AssigneeID,
		task.DueDate, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to create production task: %w", err)
	}
	return tx.Commit(ctx)
}

// DeleteDraft удаляет только DRAFT.
func (r *Repo) DeleteDraft(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM briefs WHERE id = $1 AND status = 'DRAFT'`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete draft: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return missOrConflict(ctx, r.pool, "briefs", id)
	}
	return nil
}

// BriefFilter выборка очереди. Пустые поля не фильтруют.
type BriefFilter struct {
	Status    domain.BriefStatus
	ClubIDs   []string
	CreatorID string
	// ClubsOrCreator: бриф виден, если он из клубов ClubIDs ИЛИ создан CreatorID
	ClubsOrCreator bool
	Limit          int
}

func buildListQuery(f BriefFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	switch {
	case f.ClubsOrCreator:
		where = append(where, "(club_id = ANY("+arg(nonNil(f.ClubIDs))+") OR creator_id = "+arg(f.CreatorID)+")")
	default:
		if f.ClubIDs != nil {
			where = append(where, "club_id = ANY("+arg(f.ClubIDs)+")")
		}
		if f.CreatorID != "" {
			where = append(where, "creator_id = "+arg(f.CreatorID))
		}
	}

	query := "SELECT " + briefColumns + " FROM briefs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query += " ORDER BY updated_at DESC LIMIT " + arg(limit)
	return query, args
}

// ListBriefs очередь брифов для консоли.
func (r *Repo) ListBriefs(ctx context.Context, f BriefFilter) ([]*domain.Brief, error) {
	query, args := buildListQuery(f)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query briefs: %w", err)
	}
	defer rows.Close()

	// Пустой слайс, чтобы в JSON был [] вместо null
	results := make([]*domain.Brief, 0)
	for rows.Next() {
		b, err := scanBrief(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan brief: %w", err)
		}
		results = append(results, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "$" + strconv.Itoa(from+i)
	}
	return strings.Join(parts, ", ")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// jsonOrNil кодирует значение для JSONB, пустое пишется как NULL.
func jsonOrNil(v any, empty bool) ([]byte, error) {
	if empty {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to encode json: %w", err)
	}
	return data, nil
}
