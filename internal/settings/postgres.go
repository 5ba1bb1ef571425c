package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the guild_settings table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS guild_settings (
    guild_id          TEXT PRIMARY KEY,
    voice_category_id TEXT NOT NULL DEFAULT '',
    result_channel_id TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database, for
// deployments where settings must survive host replacement.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] using the given database
// connection or pool. Call [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("settings: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, guildID string) (GuildSettings, bool, error) {
	const query = `
		SELECT voice_category_id, result_channel_id
		FROM guild_settings
		WHERE guild_id = $1`

	var gs GuildSettings
	err := s.db.QueryRow(ctx, query, guildID).Scan(&gs.VoiceCategoryID, &gs.ResultChannelID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GuildSettings{}, false, nil
		}
		return GuildSettings{}, false, fmt.Errorf("settings: get %q: %w", guildID, err)
	}
	return gs, true, nil
}

func (s *PostgresStore) SetVoiceCategory(ctx context.Context, guildID, categoryID string) error {
	const query = `
		INSERT INTO guild_settings (guild_id, voice_category_id)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET
			voice_category_id = EXCLUDED.voice_category_id,
			updated_at = now()`

	if _, err := s.db.Exec(ctx, query, guildID, categoryID); err != nil {
		return fmt.Errorf("settings: set voice category for %q: %w", guildID, err)
	}
	return nil
}

func (s *PostgresStore) SetResultChannel(ctx context.Context, guildID, channelID string) error {
	const query = `
		INSERT INTO guild_settings (guild_id, result_channel_id)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET
			result_channel_id = EXCLUDED.result_channel_id,
			updated_at = now()`

	if _, err := s.db.Exec(ctx, query, guildID, channelID); err != nil {
		return fmt.Errorf("settings: set result channel for %q: %w", guildID, err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, guildID string) error {
	const query = `DELETE FROM guild_settings WHERE guild_id = $1`
	if _, err := s.db.Exec(ctx, query, guildID); err != nil {
		return fmt.Errorf("settings: clear %q: %w", guildID, err)
	}
	return nil
}
