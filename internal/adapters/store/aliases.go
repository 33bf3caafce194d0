package store

import (
	"github.com/dockboard/dockboard/internal/core/domain"
)

// AliasStore persists alias metadata keyed by group name or container id.
// The same implementation backs both documents; only the file differs.
type AliasStore struct {
	file *jsonFile
}

// NewAliasStore opens (or prepares) an alias file.
func NewAliasStore(path string) (*AliasStore, error) {
	file, err := newJSONFile(path)
	if err != nil {
		return nil, err
	}
	return &AliasStore{file: file}, nil
}

// Read returns the stored aliases. A missing file is an empty document.
func (s *AliasStore) Read() (domain.AliasMap, error) {
	aliases := domain.AliasMap{}
	if err := s.file.load(&aliases); err != nil {
		return nil, err
	}
	return aliases, nil
}

// Write replaces the whole document with the sanitized aliases.
func (s *AliasStore) Write(aliases domain.AliasMap) (domain.AliasMap, error) {
	sanitized := aliases.Sanitize()
	if err := s.file.save(sanitized); err != nil {
		return nil, err
	}
	return sanitized, nil
}

// Merge folds the given entries into the stored document and returns the
// complete result. Entries sanitized down to nothing are removed.
func (s *AliasStore) Merge(aliases domain.AliasMap) (domain.AliasMap, error) {
	existing, err := s.Read()
	if err != nil {
		return nil, err
	}
	for key, alias := range aliases {
		existing[key] = alias
	}
	return s.Write(existing)
}
