// Package store persists query records as JSON files, one per query id.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sqlscout/sqlscout/internal/errors"
)

// ContextStore writes and reads query records under a directory
type ContextStore struct {
	dir string
}

// NewContextStore creates a store rooted at dir, creating it if needed
func NewContextStore(dir string) (*ContextStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeIO, "failed to create store directory %s", dir)
	}

	return &ContextStore{dir: dir}, nil
}

// Save writes the record as <dir>/<id>.json and returns the path. Writes go
// through a temp file so a crash never leaves a truncated record behind.
func (s *ContextStore) Save(id string, record interface{}) (string, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrTypeIO, "failed to marshal query record")
	}

	path := s.path(id)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeIO, "failed to write %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeIO, "failed to finalize %s", path)
	}

	return path, nil
}

// Load reads the record for id into out
func (s *ContextStore) Load(id string, out interface{}) error {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeIO, "failed to read query record %s", id)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, errors.ErrTypeIO, "failed to parse query record %s", id)
	}

	return nil
}

// List returns the stored query ids in sorted order
func (s *ContextStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeIO, "failed to read store directory %s", s.dir)
	}

	var ids []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	sort.Strings(ids)

	return ids, nil
}

// path returns the file path for a query id
func (s *ContextStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
