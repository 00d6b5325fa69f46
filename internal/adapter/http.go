// SPDX-License-Identifier: Apache-2.0

// Package adapter provides a [store.VaultStore] implementation backed by a
// remote vaultd instance over HTTP/REST.
//
// The remote service scopes every record to the user identified by the
// bearer token, so the userID arguments of the store contract are not sent
// on the wire; they exist to satisfy the interface. Error responses are
// mapped back to the store package's sentinel errors so callers cannot tell
// a remote store from a local one.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/lifeos/vault/internal/config"
	"github.com/lifeos/vault/internal/logger"
	"github.com/lifeos/vault/internal/store"
	"github.com/lifeos/vault/models"
)

// HTTPVaultStore is the HTTP-backed store implementation. It also carries
// the bearer token used to authenticate against vaultd.
type HTTPVaultStore struct {
	client *resty.Client

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPVaultStore constructs an HTTP-backed [store.VaultStore] talking to
// the vaultd instance at cfg.BaseURL. The base URL is normalised ("http://"
// is assumed when no scheme is given) and validated.
//
// Returns an error if cfg.BaseURL is empty or cannot be parsed as a URL.
func NewHTTPVaultStore(cfg config.Adapter, log *logger.Logger) (*HTTPVaultStore, error) {
	baseURL, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter base url: %w", err)
	}

	client := resty.New().SetBaseURL(baseURL)
	if cfg.RequestTimeout > 0 {
		client.SetTimeout(cfg.RequestTimeout)
	}

	return &HTTPVaultStore{client: client, logger: log}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken stores the bearer token (whitespace-trimmed) attached to all
// subsequent requests.
func (h *HTTPVaultStore) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token returns the bearer token currently held by the adapter, or an empty
// string if none has been set.
func (h *HTTPVaultStore) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *HTTPVaultStore) GetSalt(ctx context.Context, userID int64) (models.VaultSalt, error) {
	var salt models.VaultSalt

	resp, err := h.authedRequest(ctx).
		SetResult(&salt).
		Get("/api/vault/salt")
	if err != nil {
		return models.VaultSalt{}, fmt.Errorf("get salt request: %w", err)
	}
	if err = mapHTTPError(resp, store.ErrSaltNotFound, nil); err != nil {
		return models.VaultSalt{}, err
	}

	return salt, nil
}

func (h *HTTPVaultStore) CreateSalt(ctx context.Context, salt models.VaultSalt) error {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(salt).
		Post("/api/vault/salt")
	if err != nil {
		return fmt.Errorf("create salt request: %w", err)
	}

	return mapHTTPError(resp, nil, store.ErrSaltAlreadyExists)
}

func (h *HTTPVaultStore) DeleteSalt(ctx context.Context, userID int64) error {
	resp, err := h.authedRequest(ctx).Delete("/api/vault/salt")
	if err != nil {
		return fmt.Errorf("delete salt request: %w", err)
	}

	return mapHTTPError(resp, store.ErrSaltNotFound, nil)
}

func (h *HTTPVaultStore) ListEnvelopes(ctx context.Context, userID int64) ([]models.EncryptedVaultItem, error) {
	resp, err := h.authedRequest(ctx).Get("/api/vault/items")
	if err != nil {
		return nil, fmt.Errorf("list envelopes request: %w", err)
	}
	if err = mapHTTPError(resp, nil, nil); err != nil {
		return nil, err
	}

	var envelopes []models.EncryptedVaultItem
	if err = json.Unmarshal(resp.Body(), &envelopes); err != nil {
		return nil, fmt.Errorf("decode envelopes response: %w", err)
	}

	return envelopes, nil
}

func (h *HTTPVaultStore) GetEnvelope(ctx context.Context, userID int64, id string) (models.EncryptedVaultItem, error) {
	var envelope models.EncryptedVaultItem

	resp, err := h.authedRequest(ctx).
		SetResult(&envelope).
		Get("/api/vault/items/" + url.PathEscape(id))
	if err != nil {
		return models.EncryptedVaultItem{}, fmt.Errorf("get envelope request: %w", err)
	}
	if err = mapHTTPError(resp, store.ErrItemNotFound, nil); err != nil {
		return models.EncryptedVaultItem{}, err
	}

	return envelope, nil
}

func (h *HTTPVaultStore) PutEnvelope(ctx context.Context, item models.EncryptedVaultItem) error {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(item).
		Put("/api/vault/items")
	if err != nil {
		return fmt.Errorf("put envelope request: %w", err)
	}

	return mapHTTPError(resp, nil, nil)
}

func (h *HTTPVaultStore) DeleteEnvelope(ctx context.Context, userID int64, id string) error {
	resp, err := h.authedRequest(ctx).
		Delete("/api/vault/items/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("delete envelope request: %w", err)
	}

	return mapHTTPError(resp, store.ErrItemNotFound, nil)
}

func (h *HTTPVaultStore) DeleteAllEnvelopes(ctx context.Context, userID int64) error {
	resp, err := h.authedRequest(ctx).Delete("/api/vault/items")
	if err != nil {
		return fmt.Errorf("delete all envelopes request: %w", err)
	}

	return mapHTTPError(resp, nil, nil)
}

func (h *HTTPVaultStore) GetSession(ctx context.Context, userID int64) (models.VaultSession, error) {
	var session models.VaultSession

	resp, err := h.authedRequest(ctx).
		SetResult(&session).
		Get("/api/vault/session")
	if err != nil {
		return models.VaultSession{}, fmt.Errorf("get session request: %w", err)
	}
	if err = mapHTTPError(resp, store.ErrSessionNotFound, nil); err != nil {
		return models.VaultSession{}, err
	}

	return session, nil
}

func (h *HTTPVaultStore) PutSession(ctx context.Context, session models.VaultSession) error {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(session).
		Put("/api/vault/session")
	if err != nil {
		return fmt.Errorf("put session request: %w", err)
	}

	return mapHTTPError(resp, nil, nil)
}

func (h *HTTPVaultStore) DeleteSession(ctx context.Context, userID int64) error {
	resp, err := h.authedRequest(ctx).Delete("/api/vault/session")
	if err != nil {
		return fmt.Errorf("delete session request: %w", err)
	}

	return mapHTTPError(resp, nil, nil)
}

func (h *HTTPVaultStore) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

var _ store.VaultStore = (*HTTPVaultStore)(nil)
