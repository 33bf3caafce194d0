package ports

import (
	"errors"

	"github.com/dockboard/dockboard/internal/core/domain"
)

// ErrNotFound is returned by stores when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// GroupStore persists the groups document. Write has full-document replace
// semantics: the stored document becomes exactly the sanitized argument.
type GroupStore interface {
	Read() (domain.Groups, error)
	Write(groups domain.Groups) (domain.Groups, error)
}

// AliasStore persists alias metadata keyed by group name or container id.
// Write replaces the whole document; Merge folds the given entries into the
// stored document and returns the complete result.
type AliasStore interface {
	Read() (domain.AliasMap, error)
	Write(aliases domain.AliasMap) (domain.AliasMap, error)
	Merge(aliases domain.AliasMap) (domain.AliasMap, error)
}

// AutostartStore persists the autostart configuration.
type AutostartStore interface {
	Read() (domain.AutostartConfig, error)
	Write(cfg domain.AutostartConfig) (domain.AutostartConfig, error)
}

// LocalStore is client-local durable storage. It holds the pinned-empty-group
// set and nothing else; its contents are never sent to the backend stores.
type LocalStore interface {
	ReadPinned() ([]string, error)
	WritePinned(names []string) error
}
