// Package store persists agentcheck run history.
//
// Keys follow the convention "/{kind}/{profile}/{name}", so every run of a
// profile shares a common prefix.
package store

import (
	"errors"
	"fmt"
)

// Store is the persistence interface for check run history.
type Store interface {
	// Create stores a new object at the given key.
	// Returns ErrAlreadyExists if the key already exists.
	Create(key string, value interface{}) error

	// Get retrieves the object stored at key and deserialises it into target.
	// Returns ErrNotFound if the key does not exist.
	Get(key string, target interface{}) error

	// Delete removes the object at the given key.
	// Returns ErrNotFound if the key does not exist.
	Delete(key string) error

	// List returns every object whose key starts with prefix, ordered by key.
	// factory is called once per result to create a zero-value pointer that
	// the stored JSON is unmarshalled into.
	List(prefix string, factory func() interface{}) ([]interface{}, error)

	// Close releases any resources held by the store (e.g. BoltDB file handle).
	Close() error
}

// Common sentinel errors.
var (
	ErrAlreadyExists = errors.New("key already exists")
	ErrNotFound      = errors.New("key not found")
)

// ResourceKey builds a canonical store key for a resource.
//
//	ResourceKey("CheckRun", "backend-engineer", "20261014-101500-1a2b3c4d")
//	=> "/CheckRun/backend-engineer/20261014-101500-1a2b3c4d"
func ResourceKey(kind, profile, name string) string {
	return fmt.Sprintf("/%s/%s/%s", kind, profile, name)
}

// KindPrefix returns the key prefix shared by every resource of kind,
// narrowed to one profile when profile is non-empty.
func KindPrefix(kind, profile string) string {
	if profile == "" {
		return "/" + kind + "/"
	}
	return fmt.Sprintf("/%s/%s/", kind, profile)
}
