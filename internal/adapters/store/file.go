// Package store implements the persistence ports as JSON documents on disk,
// matching the data files the service has always used: groups.json,
// group_aliases.json, container_aliases.json, autostart.json.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// jsonFile is one mutex-guarded JSON document. Writes go through a temp file
// and rename so a crash mid-write never corrupts the document.
type jsonFile struct {
	path string
	mu   sync.Mutex
}

func newJSONFile(path string) (*jsonFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &jsonFile{path: path}, nil
}

// load decodes the document into v. A missing or corrupted file leaves v
// untouched: resetting to the zero document beats crashing the UI.
func (f *jsonFile) load(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.path, err)
	}
	if json.Unmarshal(data, v) != nil {
		return nil
	}
	return nil
}

// save replaces the document atomically.
func (f *jsonFile) save(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", f.path, err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	return nil
}
