package store

import (
	"github.com/dockboard/dockboard/internal/core/domain"
)

// AutostartStore persists the autostart configuration document.
type AutostartStore struct {
	file *jsonFile
}

// NewAutostartStore opens (or prepares) the autostart file.
func NewAutostartStore(path string) (*AutostartStore, error) {
	file, err := newJSONFile(path)
	if err != nil {
		return nil, err
	}
	return &AutostartStore{file: file}, nil
}

// Read returns the stored configuration; a missing file is the empty config.
func (s *AutostartStore) Read() (domain.AutostartConfig, error) {
	cfg := domain.AutostartConfig{Groups: []string{}, Containers: []string{}}
	if err := s.file.load(&cfg); err != nil {
		return domain.AutostartConfig{}, err
	}
	return cfg.Sanitize(), nil
}

// Write replaces the document and returns the sanitized stored config.
func (s *AutostartStore) Write(cfg domain.AutostartConfig) (domain.AutostartConfig, error) {
	sanitized := cfg.Sanitize()
	if err := s.file.save(sanitized); err != nil {
		return domain.AutostartConfig{}, err
	}
	return sanitized, nil
}
