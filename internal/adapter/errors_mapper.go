package adapter

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// mapHTTPError translates a vaultd response into the sentinel errors the
// store contract promises. notFound and conflict carry the resource-specific
// sentinels (e.g. store.ErrSaltNotFound for 404 on the salt route); pass nil
// when the status has no defined meaning for the route.
func mapHTTPError(resp *resty.Response, notFound, conflict error) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		if notFound != nil {
			return notFound
		}
	case http.StatusConflict:
		if conflict != nil {
			return conflict
		}
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return fmt.Errorf("http %d: %s", resp.StatusCode(), body)
}
