package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-sqlite3"

	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/models"
)

// sqliteStore is a [VaultStore] backed by a local SQLite database. It is the
// offline/local persistence option: same contract as the hosted backend,
// ciphertext only.
type sqliteStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at dsn
// and ensures the vault schema exists. Use ":memory:" for an ephemeral
// database.
func NewSQLiteStore(ctx context.Context, dsn string, log *logger.Logger) (VaultStore, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	if dsn != ":memory:" {
		if err := createLocalDBFileIfNotExists(dsn); err != nil {
			log.Err(err).Str("func", "NewSQLiteStore").Msg("error creating database file")
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Err(err).Str("func", "NewSQLiteStore").Msg("error opening database")
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "NewSQLiteStore").Msg("error connecting database (ping)")
		return nil, err
	}

	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		log.Err(err).Str("func", "NewSQLiteStore").Msg("error creating vault schema")
		return nil, fmt.Errorf("create vault schema: %w", err)
	}
	log.Debug().Str("func", "NewSQLiteStore").Msg("connected to local database successfully")

	return &sqliteStore{db: db, logger: log}, nil
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		f, err := os.Create(dbFile)
		if err != nil {
			return fmt.Errorf("error creating DB file: %w", err)
		}
		f.Close()
	}
	return nil
}

func (s *sqliteStore) GetSalt(ctx context.Context, userID int64) (models.VaultSalt, error) {
	var salt models.VaultSalt
	err := s.db.QueryRowContext(ctx, sqliteGetSalt, userID).
		Scan(&salt.UserID, &salt.Salt, &salt.WrappedItemKey, &salt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VaultSalt{}, ErrSaltNotFound
	}
	if err != nil {
		return models.VaultSalt{}, fmt.Errorf("query vault salt: %w", err)
	}
	return salt, nil
}

func (s *sqliteStore) CreateSalt(ctx context.Context, salt models.VaultSalt) error {
	res, err := s.db.ExecContext(ctx, sqliteInsertSalt,
		salt.UserID, salt.Salt, salt.WrappedItemKey, salt.CreatedAt)
	if err != nil {
		if isSQLiteConstraintErr(err) {
			return ErrSaltAlreadyExists
		}
		return fmt.Errorf("insert vault salt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSaltAlreadyExists
	}
	return nil
}

func (s *sqliteStore) DeleteSalt(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, sqliteDeleteSalt, userID)
	if err != nil {
		return fmt.Errorf("delete vault salt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSaltNotFound
	}
	return nil
}

func (s *sqliteStore) ListEnvelopes(ctx context.Context, userID int64) ([]models.EncryptedVaultItem, error) {
	log := logger.FromContext(ctx)

	rows, err := s.db.QueryContext(ctx, sqliteListEnvelopes, userID)
	if err != nil {
		log.Err(err).Str("func", "sqliteStore.ListEnvelopes").Int64("user_id", userID).
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

func (s *sqliteStore) GetEnvelope(ctx context.Context, userID int64, id string) (models.EncryptedVaultItem, error) {
	row := s.db.QueryRowContext(ctx, sqliteGetEnvelope, userID, id)

	item, err := scanEnvelope(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EncryptedVaultItem{}, ErrItemNotFound
	}
	if err != nil {
		return models.EncryptedVaultItem{}, fmt.Errorf("query vault item: %w", err)
	}
	return item, nil
}

func (s *sqliteStore) PutEnvelope(ctx context.Context, item models.EncryptedVaultItem) error {
	_, err := s.db.ExecContext(ctx, sqliteUpsertEnvelope,
		item.ID, item.UserID, string(item.ItemType), item.Name,
		item.Envelope.Ciphertext, item.Envelope.IV, item.Envelope.AuthTag,
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert vault item (id=%s): %w", item.ID, err)
	}
	return nil
}

func (s *sqliteStore) DeleteEnvelope(ctx context.Context, userID int64, id string) error {
	res, err := s.db.ExecContext(ctx, sqliteDeleteEnvelope, userID, id)
	if err != nil {
		return fmt.Errorf("delete vault item (id=%s): %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (s *sqliteStore) DeleteAllEnvelopes(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, sqliteDeleteAllEnvelopes, userID); err != nil {
		return fmt.Errorf("delete vault items: %w", err)
	}
	return nil
}

func (s *sqliteStore) GetSession(ctx context.Context, userID int64) (models.VaultSession, error) {
	var session models.VaultSession
	err := s.db.QueryRowContext(ctx, sqliteGetSession, userID).
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

func (s *sqliteStore) PutSession(ctx context.Context, session models.VaultSession) error {
	_, err := s.db.ExecContext(ctx, sqliteUpsertSession,
		session.UserID, session.SessionID, session.EscrowedKey,
		session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert vault session: %w", err)
	}
	return nil
}

func (s *sqliteStore) DeleteSession(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, sqliteDeleteSession, userID); err != nil {
		return fmt.Errorf("delete vault session: %w", err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnvelope(row rowScanner) (models.EncryptedVaultItem, error) {
	var (
		item     models.EncryptedVaultItem
		itemType string
	)
	err := row.Scan(&item.ID, &item.UserID, &itemType, &item.Name,
		&item.Envelope.Ciphertext, &item.Envelope.IV, &item.Envelope.AuthTag,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return models.EncryptedVaultItem{}, err
	}
	item.ItemType = models.ItemType(itemType)
	return item, nil
}

func isSQLiteConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
