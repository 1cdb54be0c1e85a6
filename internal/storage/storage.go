// Package storage provides the durable key-value storage that backs the
// client session across process restarts.
package storage

import "errors"

// Keys written by the session store and read by the HTTP client.
const (
	KeyAuthToken = "authToken"
	KeyUserData  = "userData"
)

// ErrInvalidKey is returned when an empty key is used.
var ErrInvalidKey = errors.New("invalid storage key")

// Storage is a small string key-value store.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)

	// Set stores every key in values in a single write.
	Set(values map[string]string) error

	// Delete removes keys. Missing keys are ignored.
	Delete(keys ...string) error
}
