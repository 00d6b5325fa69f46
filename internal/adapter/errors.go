// SPDX-License-Identifier: Apache-2.0

package adapter

import "errors"

var (
	// ErrUnauthorized is returned when the remote service rejects the
	// bearer token. The caller must obtain a fresh token before retrying.
	ErrUnauthorized = errors.New("client unauthorized")
)
