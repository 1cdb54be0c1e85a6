package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const fileName = "session.json"

// document is the on-disk layout of the session file.
type document struct {
	Version   int               `json:"version"`
	Values    map[string]string `json:"values"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// File stores values in a JSON document on the local filesystem.
type File struct {
	baseDir string

	mu sync.Mutex
}

var _ Storage = (*File)(nil)

// NewFile creates a file store.
// If baseDir is empty, uses ~/.elearn/
func NewFile(baseDir string) (*File, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".elearn")
	}

	// The session file holds a bearer token, keep the directory private
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("session storage initialized")

	return &File{baseDir: baseDir}, nil
}

// Path returns the location of the session file.
func (f *File) Path() string {
	return filepath.Join(f.baseDir, fileName)
}

func (f *File) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return "", false, err
	}

	v, ok := doc.Values[key]
	return v, ok, nil
}

func (f *File) Set(values map[string]string) error {
	for k := range values {
		if k == "" {
			return ErrInvalidKey
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	for k, v := range values {
		doc.Values[k] = v
	}

	return f.save(doc)
}

func (f *File) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}

	changed := false
	for _, k := range keys {
		if _, ok := doc.Values[k]; ok {
			delete(doc.Values, k)
			changed = true
		}
	}

	if !changed {
		return nil
	}

	return f.save(doc)
}

// load reads the session file. A missing file is an empty document, a
// corrupt one is deleted and read as empty.
func (f *File) load() (*document, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &document{Version: 1, Values: make(map[string]string)}, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		// A corrupt file is removed rather than blocking every command
		log.Warn().Err(err).Str("path", f.Path()).Msg("discarding unreadable session file")
		if err := os.Remove(f.Path()); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove corrupt session file: %w", err)
		}
		return &document{Version: 1, Values: make(map[string]string)}, nil
	}

	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}

	return &doc, nil
}

// save writes the session file atomically.
func (f *File) save(doc *document) error {
	doc.Version = 1
	doc.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session file: %w", err)
	}

	// Write to temp file first
	path := f.Path()
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save session file: %w", err)
	}

	return nil
}
