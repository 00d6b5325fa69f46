package http

import (
	"errors"
	"net/http"

	"github.com/lifeos/vault/internal/store"
)

var errorStatusMap = map[error]int{
	store.ErrSaltNotFound:      http.StatusNotFound,
	store.ErrSaltAlreadyExists: http.StatusConflict,
	store.ErrItemNotFound:      http.StatusNotFound,
	store.ErrSessionNotFound:   http.StatusNotFound,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
