// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/models"
)

// postgresStore is the [VaultStore] used by the hosted persistence service.
// Queries are built with squirrel against the goose-managed schema in
// migrations/.
type postgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	logger  *logger.Logger
}

// NewPostgresDB opens a pgx-backed *sql.DB for dsn and verifies the
// connection with a ping. The caller owns the handle (migrations, close).
func NewPostgresDB(ctx context.Context, dsn string, log *logger.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Err(err).Str("func", "NewPostgresDB").Msg("error occurred during database connection")
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)

	if err = db.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "NewPostgresDB").Msg("error connecting database (ping)")
		return nil, err
	}
	log.Info().Str("func", "NewPostgresDB").Msg("connected to database successfully")

	return db, nil
}

// NewPostgresStore constructs a [VaultStore] on top of an open database
// handle.
func NewPostgresStore(db *sql.DB, log *logger.Logger) VaultStore {
	return &postgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:  log,
	}
}

func (p *postgresStore) GetSalt(ctx context.Context, userID int64) (models.VaultSalt, error) {
	query, args, err := p.builder.
		Select("user_id", "salt", "wrapped_item_key", "created_at").
		From("vault_salts").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return models.VaultSalt{}, fmt.Errorf("build salt query: %w", err)
	}

	var salt models.VaultSalt
	err = p.db.QueryRowContext(ctx, query, args...).
		Scan(&salt.UserID, &salt.Salt, &salt.WrappedItemKey, &salt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VaultSalt{}, ErrSaltNotFound
	}
	if err != nil {
		return models.VaultSalt{}, fmt.Errorf("query vault salt: %w", err)
	}
	return salt, nil
}

func (p *postgresStore) CreateSalt(ctx context.Context, salt models.VaultSalt) error {
	log := logger.FromContext(ctx)

	query, args, err := p.builder.
		Insert("vault_salts").
		Columns("user_id", "salt", "wrapped_item_key", "created_at").
		Values(salt.UserID, salt.Salt, salt.WrappedItemKey, salt.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build salt insert: %w", err)
	}

	if _, err = p.db.ExecContext(ctx, query, args...); err != nil {
		if isPgUniqueViolation(err) {
			return ErrSaltAlreadyExists
		}
		log.Err(err).Str("func", "postgresStore.CreateSalt").Int64("user_id", salt.UserID).
			Msg("failed to insert vault salt")
		return fmt.Errorf("insert vault salt: %w", err)
	}
	return nil
}

func (p *postgresStore) DeleteSalt(ctx context.Context, userID int64) error {
	query, args, err := p.builder.
		Delete("vault_salts").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build salt delete: %w", err)
	}

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete vault salt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSaltNotFound
	}
	return nil
}

func (p *postgresStore) ListEnvelopes(ctx context.Context, userID int64) ([]models.EncryptedVaultItem, error) {
	log := logger.FromContext(ctx)

	query, args, err := p.builder.
		Select("id", "user_id", "item_type", "name", "ciphertext", "iv", "auth_tag", "created_at", "updated_at").
		From("vault_items").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "postgresStore.ListEnvelopes").Int64("user_id", userID).
			Msg("failed to query vault items")
		return nil, fmt.Errorf("query vault items: %w", err)
	}
	defer rows.Close()

	var items []models.EncryptedVaultItem
	for rows.Next() {
		item, err := scanEnvelope(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vault item row: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vault item rows: %w", err)
	}
	return items, nil
}

func (p *postgresStore) GetEnvelope(ctx context.Context, userID int64, id string) (models.EncryptedVaultItem, error) {
	query, args, err := p.builder.
		Select("id", "user_id", "item_type", "name", "ciphertext", "iv", "auth_tag", "created_at", "updated_at").
		From("vault_items").
		Where(sq.Eq{"user_id": userID, "id": id}).
		ToSql()
	if err != nil {
		return models.EncryptedVaultItem{}, fmt.Errorf("build item query: %w", err)
	}

	item, err := scanEnvelope(p.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.EncryptedVaultItem{}, ErrItemNotFound
	}
	if err != nil {
		return models.EncryptedVaultItem{}, fmt.Errorf("query vault item: %w", err)
	}
	return item, nil
}

func (p *postgresStore) PutEnvelope(ctx context.Context, item models.EncryptedVaultItem) error {
	query, args, err := p.builder.
		Insert("vault_items").
		Columns("id", "user_id", "item_type", "name", "ciphertext", "iv", "auth_tag", "created_at", "updated_at").
		Values(item.ID, item.UserID, string(item.ItemType), item.Name,
			item.Envelope.Ciphertext, item.Envelope.IV, item.Envelope.AuthTag,
			item.CreatedAt, item.UpdatedAt).
		Suffix(`ON CONFLICT (user_id, id) DO UPDATE SET
			item_type  = excluded.item_type,
			name       = excluded.name,
			ciphertext = excluded.ciphertext,
			iv         = excluded.iv,
			auth_tag   = excluded.auth_tag,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build item upsert: %w", err)
	}

	if _, err = p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert vault item (id=%s): %w", item.ID, err)
	}
	return nil
}

func (p *postgresStore) DeleteEnvelope(ctx context.Context, userID int64, id string) error {
	query, args, err := p.builder.
		Delete("vault_items").
		Where(sq.Eq{"user_id": userID, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build item delete: %w", err)
	}

	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete vault item (id=%s): %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (p *postgresStore) DeleteAllEnvelopes(ctx context.Context, userID int64) error {
	query, args, err := p.builder.
		Delete("vault_items").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build items delete: %w", err)
	}

	if _, err = p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete vault items: %w", err)
	}
	return nil
}

func (p *postgresStore) GetSession(ctx context.Context, userID int64) (models.VaultSession, error) {
	query, args, err := p.builder.
		Select("session_id", "user_id", "escrowed_key", "created_at", "expires_at").
		From("vault_sessions").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return models.VaultSession{}, fmt.Errorf("build session query: %w", err)
	}

	var session models.VaultSession
	err = p.db.QueryRowContext(ctx, query, args...).
		Scan(&session.SessionID, &session.UserID, &session.EscrowedKey,
			&session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VaultSession{}, ErrSessionNotFound
	}
	if err != nil {
		return models.VaultSession{}, fmt.Errorf("query vault session: %w", err)
	}
	return session, nil
}

func (p *postgresStore) PutSession(ctx context.Context, session models.VaultSession) error {
	query, args, err := p.builder.
		Insert("vault_sessions").
		Columns("user_id", "session_id", "escrowed_key", "created_at", "expires_at").
		Values(session.UserID, session.SessionID, session.EscrowedKey,
			session.CreatedAt, session.ExpiresAt).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			session_id   = excluded.session_id,
			escrowed_key = excluded.escrowed_key,
			created_at   = excluded.created_at,
			expires_at   = excluded.expires_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build session upsert: %w", err)
	}

	if _, err = p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert vault session: %w", err)
	}
	return nil
}

func (p *postgresStore) DeleteSession(ctx context.Context, userID int64) error {
	query, args, err := p.builder.
		Delete("vault_sessions").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build session delete: %w", err)
	}

	if _, err = p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete vault session: %w", err)
	}
	return nil
}

// isPgUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (class 23505).
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return false
}
