package vault

import "errors"

var (
	// ErrPayloadTypeMismatch is returned when an update supplies a payload
	// whose shape does not match the stored item's type.
	ErrPayloadTypeMismatch = errors.New("payload type does not match item type")

	// ErrInvalidItemName is returned when an item is added or renamed with
	// an empty name.
	ErrInvalidItemName = errors.New("item name must not be empty")
)
