package lookup

import (
	"fmt"
	"sort"
	"sync"
)

// Source supplies one named catalog.
type Source interface {
	Name() string
	Load() (*Catalog, error)
}

type csvSource struct {
	name string
	path string
}

// CSVSource returns a Source that loads the catalog file at path.
func CSVSource(name, path string) Source {
	return csvSource{name, path}
}

func (s csvSource) Name() string { return s.name }

func (s csvSource) Load() (*Catalog, error) {
	return LoadCatalog(s.name, s.path)
}

func (s csvSource) String() string {
	return fmt.Sprintf("catalog %q @ %s", s.name, s.path)
}

var (
	sourcesMu sync.RWMutex
	sources   = map[string]Source{}
)

// RegisterSource makes a catalog source available to resolvers built with
// RegisteredSources.  Packages that ship catalogs call this from init().
// Registering a name twice replaces the earlier source.
func RegisterSource(src Source) {
	sourcesMu.Lock()
	sources[src.Name()] = src
	sourcesMu.Unlock()
}

// RegisteredSources returns all registered sources sorted by name.
func RegisteredSources() []Source {
	sourcesMu.RLock()
	defer sourcesMu.RUnlock()
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Source, len(names))
	for i, name := range names {
		out[i] = sources[name]
	}
	return out
}
