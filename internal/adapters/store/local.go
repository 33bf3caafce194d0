package store

// LocalStore is the client-local durable storage. It holds only the
// pinned-empty-group set and lives beside the data files but is never part
// of the backend documents.
type LocalStore struct {
	file *jsonFile
}

// NewLocalStore opens (or prepares) the local file.
func NewLocalStore(path string) (*LocalStore, error) {
	file, err := newJSONFile(path)
	if err != nil {
		return nil, err
	}
	return &LocalStore{file: file}, nil
}

// ReadPinned returns the persisted pinned names.
func (s *LocalStore) ReadPinned() ([]string, error) {
	names := []string{}
	if err := s.file.load(&names); err != nil {
		return nil, err
	}
	return names, nil
}

// WritePinned replaces the persisted pinned names.
func (s *LocalStore) WritePinned(names []string) error {
	return s.file.save(names)
}
