// SPDX-License-Identifier: Apache-2.0

package store

const (
	sqliteSchema = `
		CREATE TABLE IF NOT EXISTS vault_salts (
			user_id          INTEGER PRIMARY KEY,
			salt             BLOB      NOT NULL,
			wrapped_item_key BLOB      NOT NULL,
			created_at       TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS vault_items (
			id         TEXT      NOT NULL,
			user_id    INTEGER   NOT NULL,
			item_type  TEXT      NOT NULL,
			name       TEXT      NOT NULL,
			ciphertext TEXT      NOT NULL,
			iv         TEXT      NOT NULL,
			auth_tag   TEXT      NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, id)
		);

		CREATE TABLE IF NOT EXISTS vault_sessions (
			user_id      INTEGER PRIMARY KEY,
			session_id   TEXT      NOT NULL,
			escrowed_key BLOB      NOT NULL,
			created_at   TIMESTAMP NOT NULL,
			expires_at   TIMESTAMP NOT NULL
		);`

	sqliteGetSalt = `
		SELECT user_id, salt, wrapped_item_key, created_at
		FROM vault_salts
		WHERE user_id = $1;`

	sqliteInsertSalt = `
		INSERT INTO vault_salts (user_id, salt, wrapped_item_key, created_at)
		VALUES ($1, $2, $3, $4);`

	sqliteDeleteSalt = `
		DELETE FROM vault_salts
		WHERE user_id = $1;`

	sqliteListEnvelopes = `
		SELECT id, user_id, item_type, name, ciphertext, iv, auth_tag, created_at, updated_at
		FROM vault_items
		WHERE user_id = $1
		ORDER BY created_at, id;`

	sqliteGetEnvelope = `
		SELECT id, user_id, item_type, name, ciphertext, iv, auth_tag, created_at, updated_at
		FROM vault_items
		WHERE user_id = $1 AND id = $2;`

	sqliteUpsertEnvelope = `
		INSERT INTO vault_items (
			id, user_id, item_type, name, ciphertext, iv, auth_tag, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, id) DO UPDATE SET
			item_type  = excluded.item_type,
			name       = excluded.name,
			ciphertext = excluded.ciphertext,
			iv         = excluded.iv,
			auth_tag   = excluded.auth_tag,
			updated_at = excluded.updated_at;`

	sqliteDeleteEnvelope = `
		DELETE FROM vault_items
		WHERE user_id = $1 AND id = $2;`

	sqliteDeleteAllEnvelopes = `
		DELETE FROM vault_items
		WHERE user_id = $1;`

	sqliteGetSession = `
		SELECT session_id, user_id, escrowed_key, created_at, expires_at
		FROM vault_sessions
		WHERE user_id = $1;`

	sqliteUpsertSession = `
		INSERT INTO vault_sessions (user_id, session_id, escrowed_key, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			session_id   = excluded.session_id,
			escrowed_key = excluded.escrowed_key,
			created_at   = excluded.created_at,
			expires_at   = excluded.expires_at;`

	sqliteDeleteSession = `
		DELETE FROM vault_sessions
		WHERE user_id = $1;`
)
