// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/models"
)

func newPostgresStoreWithMock(t *testing.T) (VaultStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewPostgresStore(db, logger.Nop()), mock
}

func TestPostgresStore_GetSalt(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT user_id, salt, wrapped_item_key, created_at FROM vault_salts WHERE user_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "salt", "wrapped_item_key", "created_at"}).
			AddRow(int64(7), []byte("salt-bytes"), []byte("wrapped-key"), now))

	salt, err := s.GetSalt(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), salt.UserID)
	assert.Equal(t, []byte("salt-bytes"), salt.Salt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSalt_NotFound(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	mock.ExpectQuery(`SELECT user_id, salt, wrapped_item_key, created_at FROM vault_salts`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "salt", "wrapped_item_key", "created_at"}))

	_, err := s.GetSalt(context.Background(), 7)
	require.ErrorIs(t, err, ErrSaltNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateSalt_UniqueViolation(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	mock.ExpectExec(`INSERT INTO vault_salts`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	err := s.CreateSalt(context.Background(), testSalt(7))
	require.ErrorIs(t, err, ErrSaltAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutEnvelope_Upsert(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	mock.ExpectExec(`INSERT INTO vault_items .+ON CONFLICT \(user_id, id\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	item := testEnvelope(7, "item-1", "Bank", time.Now().UTC())
	require.NoError(t, s.PutEnvelope(context.Background(), item))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteEnvelope_NotFound(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)

	mock.ExpectExec(`DELETE FROM vault_items WHERE`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteEnvelope(context.Background(), 7, "missing")
	require.ErrorIs(t, err, ErrItemNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListEnvelopes(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "item_type", "name", "ciphertext", "iv", "auth_tag", "created_at", "updated_at",
	}).
		AddRow("item-1", int64(7), "login", "Bank", "ct1", "iv1", "tag1", now, now).
		AddRow("item-2", int64(7), "note", "Memo", "ct2", "iv2", "tag2", now, now)

	mock.ExpectQuery(`SELECT id, user_id, item_type, name, ciphertext, iv, auth_tag, created_at, updated_at FROM vault_items`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	items, err := s.ListEnvelopes(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.ItemTypeLogin, items[0].ItemType)
	assert.Equal(t, models.ItemTypeNote, items[1].ItemType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SessionRoundTrip(t *testing.T) {
	s, mock := newPostgresStoreWithMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO vault_sessions .+ON CONFLICT \(user_id\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session := models.VaultSession{
		SessionID:   "sess-1",
		UserID:      7,
		EscrowedKey: []byte("escrowed"),
		CreatedAt:   now,
		ExpiresAt:   now.Add(15 * time.Minute),
	}
	require.NoError(t, s.PutSession(context.Background(), session))

	mock.ExpectQuery(`SELECT session_id, user_id, escrowed_key, created_at, expires_at FROM vault_sessions`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "user_id", "escrowed_key", "created_at", "expires_at"}).
			AddRow("sess-1", int64(7), []byte("escrowed"), now, now.Add(15*time.Minute)))

	got, err := s.GetSession(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.SessionID)
	require.NoError(t, mock.ExpectationsWereMet())
}
