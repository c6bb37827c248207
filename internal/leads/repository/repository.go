package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadflow_backend/internal/leads/domain"
)

const leadColumns = `id, first_name, last_name, phone, email,
	workflow_status, status, priority,
	call_count, last_attempt_at, next_retry_at,
	next_follow_up_date, follow_up_start, follow_up_end,
	level_assessment_start, level_assessment_end,
	interested_level, conversion_date, notes, sms_reminder_enabled,
	version, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead     domain.Lead
		stage    string
		status   string
		priority string
	)
	err := row.Scan(
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.Phone, &lead.Email,
		&stage, &status, &priority,
		&lead.CallCount, &lead.LastAttemptAt, &lead.NextRetryAt,
		&lead.NextFollowUpDate, &lead.FollowUpStart, &lead.FollowUpEnd,
		&lead.LevelAssessmentStart, &lead.LevelAssessmentEnd,
		&lead.InterestedLevel, &lead.ConversionDate, &lead.Notes, &lead.SMSReminderEnabled,
		&lead.Version, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.WorkflowStatus = domain.Stage(stage)
	lead.Status = domain.Status(status)
	lead.Priority = domain.Priority(priority)
	return lead, nil
}

func (r *Repository) Create(ctx context.Context, lead domain.Lead, activity *Activity) (domain.Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanLead(tx.QueryRow(ctx, `
		INSERT INTO leads (
			id, first_name, last_name, phone, email, workflow_status, status, priority,
			notes, sms_reminder_enabled, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+leadColumns,
		lead.ID, lead.FirstName, lead.LastName, lead.Phone, lead.Email,
		string(lead.WorkflowStatus), string(lead.Status), string(lead.Priority),
		lead.Notes, lead.SMSReminderEnabled, lead.Version, lead.CreatedAt, lead.UpdatedAt,
	))
	if err != nil {
		return domain.Lead{}, err
	}

	if activity != nil {
		activity.LeadID = created.ID
		if err := insertActivity(ctx, tx, *activity); err != nil {
			return domain.Lead{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// Update locks the lead row, applies fn to the locked copy and writes the
// result back with a version check, all in one transaction.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fn MutateFunc) (domain.Lead, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := scanLead(tx.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	expected := lead.Version
	activity, err := fn(&lead)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.ID = id

	updated, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads SET
			workflow_status = $3, status = $4,
			call_count = $5, last_attempt_at = $6, next_retry_at = $7,
			next_follow_up_date = $8, follow_up_start = $9, follow_up_end = $10,
			level_assessment_start = $11, level_assessment_end = $12,
			interested_level = $13, conversion_date = $14,
			notes = $15, sms_reminder_enabled = $16,
			version = version + 1, updated_at = $17
		WHERE id = $1 AND version = $2
		RETURNING `+leadColumns,
		id, expected,
		string(lead.WorkflowStatus), string(lead.Status),
		lead.CallCount, lead.LastAttemptAt, lead.NextRetryAt,
		lead.NextFollowUpDate, lead.FollowUpStart, lead.FollowUpEnd,
		lead.LevelAssessmentStart, lead.LevelAssessmentEnd,
		lead.InterestedLevel, lead.ConversionDate,
		lead.Notes, lead.SMSReminderEnabled, lead.UpdatedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrVersionConflict
	}
	if err != nil {
		return domain.Lead{}, err
	}

	if activity != nil {
		activity.LeadID = id
		if err := insertActivity(ctx, tx, *activity); err != nil {
			return domain.Lead{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return updated, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if params.Stage != nil {
		conditions = append(conditions, fmt.Sprintf("workflow_status = $%d", argIdx))
		args = append(args, string(*params.Stage))
		argIdx++
	}
	if params.HasFollowUp {
		conditions = append(conditions, "next_follow_up_date IS NOT NULL")
	}
	if params.HasAssessment {
		conditions = append(conditions, "level_assessment_start IS NOT NULL")
	}
	whereClause := strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, normalizeLimit(params.Limit), max(params.Offset, 0))
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d`,
		leadColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return leads, total, nil
}

func (r *Repository) CountByStage(ctx context.Context) (map[domain.Stage]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT workflow_status, COUNT(*) FROM leads GROUP BY workflow_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Stage]int, len(domain.Stages))
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		counts[domain.Stage(stage)] = n
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return counts, nil
}

func (r *Repository) AddActivity(ctx context.Context, activity Activity) error {
	return insertActivity(ctx, r.pool, activity)
}

func (r *Repository) ListActivity(ctx context.Context, leadID uuid.UUID, limit int) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, actor_id, action, meta, created_at
		FROM lead_activity
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, leadID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var item Activity
		var metaJSON []byte
		if err := rows.Scan(&item.ID, &item.LeadID, &item.ActorID, &item.Action, &metaJSON, &item.CreatedAt); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &item.Meta); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertActivity(ctx context.Context, db execer, activity Activity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	meta := activity.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, `
		INSERT INTO lead_activity (id, lead_id, actor_id, action, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`, activity.ID, activity.LeadID, activity.ActorID, activity.Action, metaJSON, nullableTime(activity.CreatedAt))
	return err
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
