package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"intelwire/internal/domain/entity"
	"intelwire/internal/repository"
)

type EscalationRepo struct{ db *sql.DB }

func NewEscalationRepo(db *sql.DB) repository.EscalationRepository {
	return &EscalationRepo{db: db}
}

const escalationColumns = `id, type, priority, title, description, context, confidence_score,
error_details, suggested_actions, related, status, created_at, updated_at,
resolved_at, resolved_by, resolution_notes`

func scanEscalationRow(scan func(dest ...any) error) (*entity.Escalation, error) {
	var esc entity.Escalation
	var actionsJSON, relatedJSON []byte
	var ctxStr, errDetails, resolvedBy, notes sql.NullString
	if err := scan(
		&esc.ID, &esc.Type, &esc.Priority, &esc.Title, &esc.Description,
		&ctxStr, &esc.ConfidenceScore, &errDetails, &actionsJSON, &relatedJSON,
		&esc.Status, &esc.CreatedAt, &esc.UpdatedAt,
		&esc.ResolvedAt, &resolvedBy, &notes,
	); err != nil {
		return nil, err
	}
	esc.Context = ctxStr.String
	esc.ErrorDetails = errDetails.String
	esc.ResolvedBy = resolvedBy.String
	esc.ResolutionNotes = notes.String
	if len(actionsJSON) > 0 {
		if err := json.Unmarshal(actionsJSON, &esc.SuggestedActions); err != nil {
			return nil, fmt.Errorf("unmarshal suggested_actions: %w", err)
		}
	}
	if len(relatedJSON) > 0 {
		if err := json.Unmarshal(relatedJSON, &esc.Related); err != nil {
			return nil, fmt.Errorf("unmarshal related: %w", err)
		}
	}
	return &esc, nil
}

func escalationArgs(esc *entity.Escalation) (actionsJSON, relatedJSON []byte, err error) {
	actions := esc.SuggestedActions
	if actions == nil {
		actions = []string{}
	}
	actionsJSON, err = json.Marshal(actions)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal suggested_actions: %w", err)
	}
	relatedJSON, err = json.Marshal(esc.Related)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal related: %w", err)
	}
	return actionsJSON, relatedJSON, nil
}

func (repo *EscalationRepo) Get(ctx context.Context, id string) (*entity.Escalation, error) {
	query := `
SELECT ` + escalationColumns + `
FROM escalations
WHERE id = $1
LIMIT 1`
	row := repo.db.QueryRowContext(ctx, query, id)
	esc, err := scanEscalationRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return esc, nil
}

func escalationConditions(filter repository.EscalationFilter) ([]string, []any) {
	var conditions []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	return conditions, args
}

func (repo *EscalationRepo) List(ctx context.Context, filter repository.EscalationFilter) ([]*entity.Escalation, error) {
	conditions, args := escalationConditions(filter)

	query := `SELECT ` + escalationColumns + ` FROM escalations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	escalations := make([]*entity.Escalation, 0, 50)
	for rows.Next() {
		esc, err := scanEscalationRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		escalations = append(escalations, esc)
	}
	return escalations, rows.Err()
}

func (repo *EscalationRepo) Counts(ctx context.Context, filter repository.EscalationFilter) (*repository.EscalationCounts, error) {
	conditions, args := escalationConditions(filter)

	query := `SELECT status, priority, type, COUNT(*) FROM escalations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " GROUP BY status, priority, type"

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := &repository.EscalationCounts{
		ByStatus:   make(map[entity.EscalationStatus]int),
		ByPriority: make(map[entity.Priority]int),
		ByType:     make(map[entity.EscalationType]int),
	}
	for rows.Next() {
		var status entity.EscalationStatus
		var priority entity.Priority
		var typ entity.EscalationType
		var count int
		if err := rows.Scan(&status, &priority, &typ, &count); err != nil {
			return nil, fmt.Errorf("Counts: %w", err)
		}
		counts.ByStatus[status] += count
		counts.ByPriority[priority] += count
		counts.ByType[typ] += count
	}
	return counts, rows.Err()
}

func (repo *EscalationRepo) Create(ctx context.Context, esc *entity.Escalation) error {
	actionsJSON, relatedJSON, err := escalationArgs(esc)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	const query = `
INSERT INTO escalations (id, type, priority, title, description, context, confidence_score,
                         error_details, suggested_actions, related, status, created_at, updated_at,
                         resolved_at, resolved_by, resolution_notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = repo.db.ExecContext(ctx, query,
		esc.ID, esc.Type, esc.Priority, esc.Title, esc.Description,
		nullString(esc.Context), esc.ConfidenceScore, nullString(esc.ErrorDetails),
		actionsJSON, relatedJSON, esc.Status, esc.CreatedAt, esc.UpdatedAt,
		esc.ResolvedAt, nullString(esc.ResolvedBy), nullString(esc.ResolutionNotes),
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *EscalationRepo) Update(ctx context.Context, esc *entity.Escalation) error {
	const query = `
UPDATE escalations SET
       status           = $1,
       updated_at       = $2,
       resolved_at      = $3,
       resolved_by      = $4,
       resolution_notes = $5
WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, query,
		esc.Status, esc.UpdatedAt, esc.ResolvedAt,
		nullString(esc.ResolvedBy), nullString(esc.ResolutionNotes), esc.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}
