package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one row of the interaction audit log.
type AuditRecord struct {
	ID            uuid.UUID
	InteractionID string
	Kind          string
	Handled       bool
	Status        int
	CommandName   string
	CustomID      string
	GuildID       string
	Duration      time.Duration
	Error         string
	OccurredAt    time.Time
}

// AuditRepository persists dispatch outcomes to the interaction_log table.
type AuditRepository struct {
	conn *Connection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(conn *Connection) *AuditRepository {
	return &AuditRepository{
		conn: conn,
	}
}

// Insert writes one audit record. A zero record ID is assigned here.
func (r *AuditRepository) Insert(ctx context.Context, rec AuditRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO interaction_log (
			id, interaction_id, kind, handled, status,
			command_name, custom_id, guild_id, duration_ms, error, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn.Exec(ctx, query,
		rec.ID,
		rec.InteractionID,
		rec.Kind,
		rec.Handled,
		rec.Status,
		rec.CommandName,
		rec.CustomID,
		rec.GuildID,
		rec.Duration.Milliseconds(),
		rec.Error,
		rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert audit record: %w", err)
	}

	return nil
}

// RecentByInteraction returns audit rows for one interaction id, newest
// first. Useful when tracing a redelivery storm.
func (r *AuditRepository) RecentByInteraction(ctx context.Context, interactionID string, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
		SELECT id, interaction_id, kind, handled, status,
		       command_name, custom_id, guild_id, duration_ms, error, occurred_at
		FROM interaction_log
		WHERE interaction_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, interactionID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query audit records: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		var durationMs int64

		if err := rows.Scan(
			&rec.ID,
			&rec.InteractionID,
			&rec.Kind,
			&rec.Handled,
			&rec.Status,
			&rec.CommandName,
			&rec.CustomID,
			&rec.GuildID,
			&durationMs,
			&rec.Error,
			&rec.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan audit record: %w", err)
		}

		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, rec)
	}

	return records, rows.Err()
}
