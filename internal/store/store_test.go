// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/models"
)

// The memory and SQLite stores implement the same contract; both run the
// same conformance suite.
func storesUnderTest(t *testing.T) map[string]VaultStore {
	t.Helper()

	sqlite, err := NewSQLiteStore(context.Background(), ":memory:", logger.Nop())
	require.NoError(t, err)

	return map[string]VaultStore{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func testSalt(userID int64) models.VaultSalt {
	return models.VaultSalt{
		UserID:         userID,
		Salt:           []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10},
		WrappedItemKey: []byte("wrapped-item-key-blob"),
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func testEnvelope(userID int64, id, name string, createdAt time.Time) models.EncryptedVaultItem {
	return models.EncryptedVaultItem{
		ID:       id,
		UserID:   userID,
		ItemType: models.ItemTypeLogin,
		Name:     name,
		Envelope: models.Envelope{
			Ciphertext: "Y2lwaGVydGV4dA==",
			IV:         "aXYxMjM0NTY3OA==",
			AuthTag:    "dGFnMTIzNDU2Nzg5MDEyMzQ1Ng==",
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestVaultStore_SaltLifecycle(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.GetSalt(ctx, 1)
			require.ErrorIs(t, err, ErrSaltNotFound)

			salt := testSalt(1)
			require.NoError(t, s.CreateSalt(ctx, salt))

			got, err := s.GetSalt(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, salt.Salt, got.Salt)
			assert.Equal(t, salt.WrappedItemKey, got.WrappedItemKey)

			// Salt records are write-once.
			err = s.CreateSalt(ctx, testSalt(1))
			require.ErrorIs(t, err, ErrSaltAlreadyExists)

			require.NoError(t, s.DeleteSalt(ctx, 1))
			_, err = s.GetSalt(ctx, 1)
			require.ErrorIs(t, err, ErrSaltNotFound)

			require.ErrorIs(t, s.DeleteSalt(ctx, 1), ErrSaltNotFound)
		})
	}
}

func TestVaultStore_EnvelopeCRUD(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Second)

			_, err := s.GetEnvelope(ctx, 1, "missing")
			require.ErrorIs(t, err, ErrItemNotFound)

			first := testEnvelope(1, "item-1", "Bank", now)
			second := testEnvelope(1, "item-2", "Email", now.Add(time.Second))
			require.NoError(t, s.PutEnvelope(ctx, first))
			require.NoError(t, s.PutEnvelope(ctx, second))

			// Other users never see these items.
			items, err := s.ListEnvelopes(ctx, 2)
			require.NoError(t, err)
			assert.Empty(t, items)

			items, err = s.ListEnvelopes(ctx, 1)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "item-1", items[0].ID)
			assert.Equal(t, "item-2", items[1].ID)

			// Put with an existing id replaces the envelope.
			replaced := first
			replaced.Name = "Bank (new)"
			replaced.Envelope.Ciphertext = "bmV3LWNpcGhlcnRleHQ="
			replaced.UpdatedAt = now.Add(2 * time.Second)
			require.NoError(t, s.PutEnvelope(ctx, replaced))

			got, err := s.GetEnvelope(ctx, 1, "item-1")
			require.NoError(t, err)
			assert.Equal(t, "Bank (new)", got.Name)
			assert.Equal(t, "bmV3LWNpcGhlcnRleHQ=", got.Envelope.Ciphertext)

			require.NoError(t, s.DeleteEnvelope(ctx, 1, "item-1"))
			require.ErrorIs(t, s.DeleteEnvelope(ctx, 1, "item-1"), ErrItemNotFound)

			require.NoError(t, s.DeleteAllEnvelopes(ctx, 1))
			items, err = s.ListEnvelopes(ctx, 1)
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestVaultStore_SessionLifecycle(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Second)

			_, err := s.GetSession(ctx, 1)
			require.ErrorIs(t, err, ErrSessionNotFound)

			session := models.VaultSession{
				SessionID:   "sess-1",
				UserID:      1,
				EscrowedKey: []byte("escrowed-key-blob"),
				CreatedAt:   now,
				ExpiresAt:   now.Add(15 * time.Minute),
			}
			require.NoError(t, s.PutSession(ctx, session))

			got, err := s.GetSession(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, "sess-1", got.SessionID)
			assert.Equal(t, session.EscrowedKey, got.EscrowedKey)

			// One session per user: a new unlock replaces the escrow.
			renewed := session
			renewed.SessionID = "sess-2"
			renewed.ExpiresAt = now.Add(30 * time.Minute)
			require.NoError(t, s.PutSession(ctx, renewed))

			got, err = s.GetSession(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, "sess-2", got.SessionID)

			require.NoError(t, s.DeleteSession(ctx, 1))
			_, err = s.GetSession(ctx, 1)
			require.ErrorIs(t, err, ErrSessionNotFound)

			// Deleting an absent session is a no-op.
			require.NoError(t, s.DeleteSession(ctx, 1))
		})
	}
}
