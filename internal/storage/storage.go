package storage

import "github.com/pkg/errors"

var ErrEmptyKey = errors.New("storage key is empty")
var ErrInvalidValue = errors.New("storage value is not valid JSON")

// Storage is a flat key/value blob. Values are JSON documents stored as is.
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
	Keys() []string

	// Sync picks up modifications made outside of this process and
	// reports whether the stored content changed.
	Sync() (bool, error)
}
