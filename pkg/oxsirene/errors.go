package oxsirene

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is matched by a *StatusError carrying a 404.
var ErrNotFound = errors.New("oxsirene: not found")

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("oxsirene: %s: unexpected status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("oxsirene: %s: unexpected status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 answers.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
