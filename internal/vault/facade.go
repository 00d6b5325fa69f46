// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"

	"github.com/lifeos/vault/internal/crypto"
	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/internal/session"
	"github.com/lifeos/vault/internal/store"
	"github.com/lifeos/vault/internal/utils"
	"github.com/lifeos/vault/models"
)

// CorruptedItem describes an envelope that failed integrity verification
// during a bulk read. Listings report these as warnings instead of aborting.
type CorruptedItem struct {
	// ID is the envelope identifier.
	ID string

	// Name is the plaintext label, still readable when the payload is not.
	Name string

	// Err is the underlying integrity failure.
	Err error
}

// Service is the vault facade: it orchestrates item CRUD, transparently
// encrypting on write and decrypting on read with the key held by the
// session manager. Every operation requires the Unlocked state and counts
// as activity for the idle auto-lock.
type Service struct {
	userID  int64
	store   store.VaultStore
	crypto  crypto.VaultCrypto
	session *session.Manager
	logger  *logger.Logger
	ids     *utils.UUIDGenerator
	now     func() time.Time
}

// NewService constructs the facade for one user with injected
// collaborators.
func NewService(userID int64, vaultStore store.VaultStore, vaultCrypto crypto.VaultCrypto, mgr *session.Manager, log *logger.Logger) *Service {
	return &Service{
		userID:  userID,
		store:   vaultStore,
		crypto:  vaultCrypto,
		session: mgr,
		logger:  log,
		ids:     utils.NewUUIDGenerator(),
		now:     time.Now,
	}
}

// AddItem encrypts payload under the current item key and persists a new
// envelope. The item type is taken from the payload's shape. Returns the
// plaintext item as stored, with its assigned id and timestamps.
// Fails with [session.ErrVaultLocked] unless the vault is unlocked.
func (s *Service) AddItem(ctx context.Context, name string, payload models.ItemPayload) (models.VaultItem, error) {
	if name == "" {
		return models.VaultItem{}, ErrInvalidItemName
	}

	key, err := s.session.ItemKey(ctx)
	if err != nil {
		return models.VaultItem{}, err
	}

	env, err := s.crypto.EncryptItem(payload, key)
	if err != nil {
		return models.VaultItem{}, fmt.Errorf("encrypt payload for add: %w", err)
	}

	now := s.now().UTC()
	item := models.VaultItem{
		ID:        s.ids.Generate(),
		UserID:    s.userID,
		Type:      payload.ItemType(),
		Name:      name,
		Data:      payload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	envelope := models.EncryptedVaultItem{
		ID:        item.ID,
		UserID:    s.userID,
		ItemType:  item.Type,
		Name:      name,
		Envelope:  env,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.store.PutEnvelope(ctx, envelope); err != nil {
		return models.VaultItem{}, fmt.Errorf("persist envelope: %w", err)
	}

	s.logger.Debug().Str("func", "Service.AddItem").Str("item_id", item.ID).
		Str("item_type", string(item.Type)).Msg("vault item added")
	return item, nil
}

// UpdateItem merges partial over the stored item's decrypted payload and,
// optionally, renames the item. The merged payload is re-encrypted with a
// fresh IV and the envelope replaced as one logical unit. Zero-valued
// fields in partial leave the stored values untouched.
// Fails with [store.ErrItemNotFound] if the id does not exist for this
// user, and with ErrPayloadTypeMismatch if partial has the wrong shape.
func (s *Service) UpdateItem(ctx context.Context, id string, name *string, partial models.ItemPayload) (models.VaultItem, error) {
	if name != nil && *name == "" {
		return models.VaultItem{}, ErrInvalidItemName
	}

	key, err := s.session.ItemKey(ctx)
	if err != nil {
		return models.VaultItem{}, err
	}

	envelope, err := s.store.GetEnvelope(ctx, s.userID, id)
	if err != nil {
		return models.VaultItem{}, err
	}

	existing, err := s.decryptPayload(envelope, key)
	if err != nil {
		return models.VaultItem{}, err
	}

	merged := existing
	if partial != nil {
		if partial.ItemType() != envelope.ItemType {
			return models.VaultItem{}, ErrPayloadTypeMismatch
		}
		merged, err = mergePayload(existing, partial)
		if err != nil {
			return models.VaultItem{}, fmt.Errorf("merge payload: %w", err)
		}
	}

	env, err := s.crypto.EncryptItem(merged, key)
	if err != nil {
		return models.VaultItem{}, fmt.Errorf("re-encrypt payload: %w", err)
	}

	envelope.Envelope = env
	envelope.UpdatedAt = s.now().UTC()
	if name != nil {
		envelope.Name = *name
	}
	if err = s.store.PutEnvelope(ctx, envelope); err != nil {
		return models.VaultItem{}, fmt.Errorf("persist updated envelope: %w", err)
	}

	s.logger.Debug().Str("func", "Service.UpdateItem").Str("item_id", id).
		Msg("vault item updated")
	return s.toItem(envelope, merged), nil
}

// DeleteItem removes the envelope identified by id.
// Fails with [store.ErrItemNotFound] if it does not exist.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if _, err := s.session.ItemKey(ctx); err != nil {
		return err
	}

	if err := s.store.DeleteEnvelope(ctx, s.userID, id); err != nil {
		return err
	}

	s.logger.Debug().Str("func", "Service.DeleteItem").Str("item_id", id).
		Msg("vault item deleted")
	return nil
}

// GetItem fetches and decrypts a single item.
func (s *Service) GetItem(ctx context.Context, id string) (models.VaultItem, error) {
	key, err := s.session.ItemKey(ctx)
	if err != nil {
		return models.VaultItem{}, err
	}

	envelope, err := s.store.GetEnvelope(ctx, s.userID, id)
	if err != nil {
		return models.VaultItem{}, err
	}

	payload, err := s.decryptPayload(envelope, key)
	if err != nil {
		return models.VaultItem{}, err
	}
	return s.toItem(envelope, payload), nil
}

// ListItems fetches and decrypts every envelope for the user and groups the
// results by item type. An envelope that fails integrity verification is
// excluded and reported in the corrupted slice rather than aborting the
// whole listing.
func (s *Service) ListItems(ctx context.Context) (map[models.ItemType][]models.VaultItem, []CorruptedItem, error) {
	items, corrupted, err := s.decryptAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	grouped := make(map[models.ItemType][]models.VaultItem)
	for _, item := range items {
		grouped[item.Type] = append(grouped[item.Type], item)
	}
	return grouped, corrupted, nil
}

// SearchItems returns the items whose name or searchable payload fields
// contain query, case-insensitively. Matching happens client-side after
// decryption; ciphertext cannot be searched server-side without leaking
// structure. Corrupted envelopes are skipped, consistent with ListItems.
func (s *Service) SearchItems(ctx context.Context, query string) ([]models.VaultItem, error) {
	if query == "" {
		return nil, nil
	}

	items, _, err := s.decryptAll(ctx)
	if err != nil {
		return nil, err
	}

	var matched []models.VaultItem
	for _, item := range items {
		if containsFold(item.Name, query) || models.MatchesQuery(item.Data, query) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

// decryptAll is the shared bulk read: list, decrypt, collect warnings.
func (s *Service) decryptAll(ctx context.Context) ([]models.VaultItem, []CorruptedItem, error) {
	key, err := s.session.ItemKey(ctx)
	if err != nil {
		return nil, nil, err
	}

	envelopes, err := s.store.ListEnvelopes(ctx, s.userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list envelopes: %w", err)
	}

	items := make([]models.VaultItem, 0, len(envelopes))
	var corrupted []CorruptedItem
	for _, envelope := range envelopes {
		payload, err := s.decryptPayload(envelope, key)
		if err != nil {
			if errors.Is(err, crypto.ErrIntegrity) {
				s.logger.Warn().Str("func", "Service.decryptAll").Str("item_id", envelope.ID).
					Msg("skipping corrupted vault item")
				corrupted = append(corrupted, CorruptedItem{ID: envelope.ID, Name: envelope.Name, Err: err})
				continue
			}
			return nil, nil, err
		}
		items = append(items, s.toItem(envelope, payload))
	}
	return items, corrupted, nil
}

// decryptPayload verifies and decrypts one envelope into its typed payload.
func (s *Service) decryptPayload(envelope models.EncryptedVaultItem, key []byte) (models.ItemPayload, error) {
	var raw json.RawMessage
	if err := s.crypto.DecryptItem(envelope.Envelope, key, &raw); err != nil {
		return nil, fmt.Errorf("decrypt item %s: %w", envelope.ID, err)
	}

	payload, err := models.DecodePayload(envelope.ItemType, raw)
	if err != nil {
		return nil, fmt.Errorf("decode item %s: %w", envelope.ID, err)
	}
	return payload, nil
}

func (s *Service) toItem(envelope models.EncryptedVaultItem, payload models.ItemPayload) models.VaultItem {
	return models.VaultItem{
		ID:        envelope.ID,
		UserID:    envelope.UserID,
		Type:      envelope.ItemType,
		Name:      envelope.Name,
		Data:      payload,
		CreatedAt: envelope.CreatedAt,
		UpdatedAt: envelope.UpdatedAt,
	}
}

// mergePayload overlays the non-zero fields of partial onto base. Both
// must be the same concrete payload type.
func mergePayload(base, partial models.ItemPayload) (models.ItemPayload, error) {
	switch dst := base.(type) {
	case models.LoginData:
		src, ok := partial.(models.LoginData)
		if !ok {
			return nil, ErrPayloadTypeMismatch
		}
		if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
			return nil, err
		}
		return dst, nil
	case models.NoteData:
		src, ok := partial.(models.NoteData)
		if !ok {
			return nil, ErrPayloadTypeMismatch
		}
		if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
			return nil, err
		}
		return dst, nil
	case models.APIKeyData:
		src, ok := partial.(models.APIKeyData)
		if !ok {
			return nil, ErrPayloadTypeMismatch
		}
		if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
			return nil, err
		}
		return dst, nil
	case models.DocumentData:
		src, ok := partial.(models.DocumentData)
		if !ok {
			return nil, ErrPayloadTypeMismatch
		}
		if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
			return nil, err
		}
		return dst, nil
	default:
		return nil, ErrPayloadTypeMismatch
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
