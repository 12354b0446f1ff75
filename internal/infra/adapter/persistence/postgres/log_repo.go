package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"intelwire/internal/domain/entity"
	"intelwire/internal/repository"
)

type LogRepo struct{ db *sql.DB }

func NewLogRepo(db *sql.DB) repository.LogRepository {
	return &LogRepo{db: db}
}

func (repo *LogRepo) Save(ctx context.Context, entry *entity.LogEntry) error {
	var metadataJSON, errorJSON []byte
	var err error
	if entry.Metadata != nil {
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("Save: marshal metadata: %w", err)
		}
	}
	if entry.Error != nil {
		errorJSON, err = json.Marshal(entry.Error)
		if err != nil {
			return fmt.Errorf("Save: marshal error: %w", err)
		}
	}

	const query = `
INSERT INTO logs (timestamp, level, message, context, metadata, error, request_id, user_id, session_id, source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = repo.db.ExecContext(ctx, query,
		entry.Timestamp, entry.Level, entry.Message,
		nullString(entry.Context), metadataJSON, errorJSON,
		nullString(entry.RequestID), nullString(entry.UserID),
		nullString(entry.SessionID), nullString(entry.Source),
	)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

func (repo *LogRepo) Query(ctx context.Context, filter repository.LogFilter) ([]*entity.LogEntry, error) {
	var conditions []string
	var args []any
	if filter.Level != "" {
		args = append(args, filter.Level)
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)))
	}
	if filter.Context != "" {
		args = append(args, filter.Context)
		conditions = append(conditions, fmt.Sprintf("context = $%d", len(args)))
	}

	query := `
SELECT id, timestamp, level, message, context, metadata, error, request_id, user_id, session_id, source
FROM logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"
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
		return nil, fmt.Errorf("Query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*entity.LogEntry, 0, 100)
	for rows.Next() {
		var entry entity.LogEntry
		var metadataJSON, errorJSON []byte
		var logCtx, requestID, userID, sessionID, source sql.NullString
		if err := rows.Scan(
			&entry.ID, &entry.Timestamp, &entry.Level, &entry.Message,
			&logCtx, &metadataJSON, &errorJSON,
			&requestID, &userID, &sessionID, &source,
		); err != nil {
			return nil, fmt.Errorf("Query: %w", err)
		}
		entry.Context = logCtx.String
		entry.RequestID = requestID.String
		entry.UserID = userID.String
		entry.SessionID = sessionID.String
		entry.Source = source.String
		if len(metadataJSON) > 0 {
			// Skip undecodable rows rather than failing the whole query.
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				continue
			}
		}
		if len(errorJSON) > 0 {
			var logErr entity.LogError
			if err := json.Unmarshal(errorJSON, &logErr); err != nil {
				continue
			}
			entry.Error = &logErr
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (repo *LogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM logs WHERE timestamp < $1`
	res, err := repo.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("DeleteOlderThan: %w", err)
	}
	return res.RowsAffected()
}
