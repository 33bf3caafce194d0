package store

import (
	"github.com/dockboard/dockboard/internal/core/domain"
)

// GroupStore persists the groups document as a name -> member-ids map.
type GroupStore struct {
	file *jsonFile
}

// NewGroupStore opens (or prepares) the groups file.
func NewGroupStore(path string) (*GroupStore, error) {
	file, err := newJSONFile(path)
	if err != nil {
		return nil, err
	}
	return &GroupStore{file: file}, nil
}

// Read returns the stored groups. A missing file is an empty document.
func (s *GroupStore) Read() (domain.Groups, error) {
	groups := domain.Groups{}
	if err := s.file.load(&groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Write replaces the document with the sanitized groups and returns what was
// stored. Full-document replace: no merge with the previous contents.
func (s *GroupStore) Write(groups domain.Groups) (domain.Groups, error) {
	sanitized := groups.Sanitize()
	if err := s.file.save(sanitized); err != nil {
		return nil, err
	}
	return sanitized, nil
}
