package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE INTERACTION LOG
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create interaction_log table
-- Version: 001

CREATE TABLE IF NOT EXISTS interaction_log (
    id UUID PRIMARY KEY,
    interaction_id VARCHAR(32) NOT NULL,
    kind VARCHAR(16) NOT NULL,
    handled BOOLEAN NOT NULL DEFAULT FALSE,
    status SMALLINT NOT NULL,
    command_name VARCHAR(100) NOT NULL DEFAULT '',
    custom_id VARCHAR(100) NOT NULL DEFAULT '',
    guild_id VARCHAR(32) NOT NULL DEFAULT '',
    duration_ms BIGINT NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_status CHECK (status >= 100 AND status < 600)
);

CREATE INDEX IF NOT EXISTS idx_interaction_log_interaction_id ON interaction_log(interaction_id);
CREATE INDEX IF NOT EXISTS idx_interaction_log_occurred_at ON interaction_log(occurred_at);
CREATE INDEX IF NOT EXISTS idx_interaction_log_kind ON interaction_log(kind);
`

const migration001Down = `
DROP TABLE IF EXISTS interaction_log;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_interaction_log",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
	}
}
