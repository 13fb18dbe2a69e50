package services

import (
	"errors"
	"sort"
	"strings"

	"dbsite/internal/repository"
)

var (
	// ErrNotFound covers missing rows and posts hidden from the viewer.
	ErrNotFound = repository.ErrNotFound
	// ErrProtected is returned when a delete is refused because other rows
	// still reference the target.
	ErrProtected = repository.ErrProtected
	// ErrForbidden is returned to anonymous viewers of moderation operations.
	ErrForbidden = errors.New("authentication required")
	// ErrInvalidCredentials is returned by a failed login.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError carries one message per rejected input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// err returns e when any field failed, nil otherwise.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) error {
	v := &ValidationError{}
	v.add(field, msg)
	return v
}
