package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ItemType defines the semantic type of a vault item.
// The value determines how the decrypted payload must be interpreted.
type ItemType string

const (
	// ItemTypeLogin represents website or application credentials:
	// username, password, and an optional URL and TOTP seed.
	ItemTypeLogin ItemType = "login"

	// ItemTypeNote represents free-form secure text.
	ItemTypeNote ItemType = "note"

	// ItemTypeAPIKey represents API credentials for an external service.
	ItemTypeAPIKey ItemType = "api"

	// ItemTypeDocument represents a small encrypted document attachment.
	// The content is carried inline as base64; large binary blobs are not
	// a vault concern.
	ItemTypeDocument ItemType = "document"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeLogin, ItemTypeNote, ItemTypeAPIKey, ItemTypeDocument:
		return true
	}
	return false
}

// ItemPayload is the tagged union of decrypted item payload shapes.
// The concrete type is selected by the owning item's ItemType.
type ItemPayload interface {
	// ItemType returns the tag identifying the concrete payload shape.
	ItemType() ItemType

	// SearchText returns the payload fields that participate in
	// client-side substring search. Secret values (passwords, key
	// material) are deliberately excluded.
	SearchText() string
}

// LoginData represents decrypted login credentials.
// Serialized to JSON and stored encrypted when ItemType is login.
type LoginData struct {
	// Username is the login identifier used for authentication.
	Username string `json:"username"`

	// Password is the secret credential associated with the username.
	Password string `json:"password"`

	// URL is the resource where the credentials apply.
	URL string `json:"url,omitempty"`

	// TOTP contains an optional time-based one-time password seed.
	TOTP *string `json:"totp,omitempty"`
}

func (LoginData) ItemType() ItemType { return ItemTypeLogin }

func (d LoginData) SearchText() string {
	return d.Username + " " + d.URL
}

// NoteData represents decrypted free-form textual content.
type NoteData struct {
	// Text contains the textual payload.
	Text string `json:"text"`
}

func (NoteData) ItemType() ItemType { return ItemTypeNote }

func (d NoteData) SearchText() string { return d.Text }

// APIKeyData represents decrypted API credentials.
type APIKeyData struct {
	// Service identifies the external service the key belongs to.
	Service string `json:"service"`

	// Key is the API key or token value.
	Key string `json:"key"`

	// Secret is an optional secondary secret (e.g. a client secret).
	Secret *string `json:"secret,omitempty"`
}

func (APIKeyData) ItemType() ItemType { return ItemTypeAPIKey }

func (d APIKeyData) SearchText() string { return d.Service }

// DocumentData represents a decrypted document attachment.
type DocumentData struct {
	// FileName is the original name of the attached file.
	FileName string `json:"fileName"`

	// MimeType is the declared content type of the document.
	MimeType string `json:"mimeType,omitempty"`

	// Content is the document body, base64-encoded by the caller.
	Content string `json:"content"`
}

func (DocumentData) ItemType() ItemType { return ItemTypeDocument }

func (d DocumentData) SearchText() string { return d.FileName }

// DecodePayload unmarshals raw JSON into the payload shape selected by t.
// Returns an error if t is unknown or the JSON does not parse.
func DecodePayload(t ItemType, raw []byte) (ItemPayload, error) {
	var (
		payload ItemPayload
		err     error
	)

	switch t {
	case ItemTypeLogin:
		var d LoginData
		err = json.Unmarshal(raw, &d)
		payload = d
	case ItemTypeNote:
		var d NoteData
		err = json.Unmarshal(raw, &d)
		payload = d
	case ItemTypeAPIKey:
		var d APIKeyData
		err = json.Unmarshal(raw, &d)
		payload = d
	case ItemTypeDocument:
		var d DocumentData
		err = json.Unmarshal(raw, &d)
		payload = d
	default:
		return nil, fmt.Errorf("unknown item type %q", t)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return payload, nil
}

// MatchesQuery reports whether the payload's searchable text contains query,
// case-insensitively.
func MatchesQuery(p ItemPayload, query string) bool {
	if p == nil {
		return false
	}
	return strings.Contains(strings.ToLower(p.SearchText()), strings.ToLower(query))
}
