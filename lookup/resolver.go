package lookup

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dapello/brainio/core"
)

// Resolver merges catalogs from its sources and resolves identifiers against the
// merged view.  Read methods may be called concurrently.  Append calls are serialized.
type Resolver struct {
	sources []Source

	mu       sync.RWMutex
	catalogs map[string]*Catalog // nil until loaded
	order    []string            // catalog names in source order
	merged   []Record            // nil when invalidated

	appendMu sync.Mutex
}

// NewResolver returns a resolver over the given sources.  Catalogs are not loaded
// until first use.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// loadLocked loads all catalogs if needed.  Caller must hold r.mu for writing.
func (r *Resolver) loadLocked() error {
	if r.catalogs != nil {
		return nil
	}
	timedLog := core.NewTimeLog()
	catalogs := make(map[string]*Catalog, len(r.sources))
	order := make([]string, 0, len(r.sources))
	var numRecords int
	for _, src := range r.sources {
		name := src.Name()
		if _, found := catalogs[name]; found {
			return fmt.Errorf("catalog %q supplied by more than one source", name)
		}
		c, err := src.Load()
		if err != nil {
			return err
		}
		if c.Name == "" {
			c.Name = name
		}
		for i := range c.Records {
			c.Records[i].Source = name
		}
		catalogs[name] = c
		order = append(order, name)
		numRecords += len(c.Records)
	}
	r.catalogs = catalogs
	r.order = order
	r.merged = nil
	timedLog.Debugf("Loaded %d catalogs with %d records", len(order), numRecords)
	return nil
}

// view returns the merged records of all catalogs, building it if necessary.
func (r *Resolver) view() ([]Record, error) {
	r.mu.RLock()
	merged := r.merged
	r.mu.RUnlock()
	if merged != nil {
		return merged, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.merged != nil {
		return r.merged, nil
	}
	if err := r.loadLocked(); err != nil {
		return nil, err
	}
	merged = make([]Record, 0)
	for _, name := range r.order {
		merged = append(merged, r.catalogs[name].Records...)
	}
	r.merged = merged
	return merged, nil
}

// Invalidate drops the merged view and all loaded catalogs so the next read reloads
// them from the sources.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.catalogs = nil
	r.order = nil
	r.merged = nil
	r.mu.Unlock()
}

// CatalogNames returns the names of all catalogs in source order.
func (r *Resolver) CatalogNames() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(); err != nil {
		return nil, err
	}
	return append([]string(nil), r.order...), nil
}

// Catalog returns a copy of the named catalog.
func (r *Resolver) Catalog(name string) (*Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(); err != nil {
		return nil, err
	}
	c, found := r.catalogs[name]
	if !found {
		return nil, &core.NotFoundError{Kind: "catalog", Identifier: name}
	}
	return c.clone(), nil
}

// List returns the sorted, distinct identifiers of the given kind across all catalogs.
func (r *Resolver) List(kind Kind) ([]string, error) {
	merged, err := r.view()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, rec := range merged {
		if rec.Kind == kind {
			seen[rec.Identifier] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Resolver) ListAssemblies() ([]string, error) {
	return r.List(KindAssembly)
}

func (r *Resolver) ListStimulusSets() ([]string, error) {
	return r.List(KindStimulusSet)
}

func (r *Resolver) candidates(kind Kind, identifier string) ([]Record, error) {
	merged, err := r.view()
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range merged {
		if rec.Kind == kind && rec.Identifier == identifier {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ResolveAssembly returns the single record for an assembly identifier.  Records that
// differ only in their source catalog count once.  Records that differ in any other
// column, including the content hash, are a ConsistencyError.
func (r *Resolver) ResolveAssembly(identifier string) (Record, error) {
	cands, err := r.candidates(KindAssembly, identifier)
	if err != nil {
		return Record{}, err
	}
	if len(cands) == 0 {
		return Record{}, &core.NotFoundError{Kind: string(KindAssembly), Identifier: identifier}
	}
	distinct := dedupe(cands)
	if len(distinct) > 1 {
		core.Errorf("Found %d distinct records for assembly %q: %v\n", len(distinct), identifier, describe(distinct))
		return Record{}, &core.ConsistencyError{
			Kind:       string(KindAssembly),
			Identifier: identifier,
			Count:      len(distinct),
			Detail:     fmt.Sprintf("catalogs %v", sourcesOf(distinct)),
		}
	}
	return distinct[0], nil
}

// ResolveStimulusSet returns the CSV table and zip archive records for a stimulus set.
// A missing representation is a NotFoundError naming it.
func (r *Resolver) ResolveStimulusSet(identifier string) (table, archive *Record, err error) {
	cands, err := r.candidates(KindStimulusSet, identifier)
	if err != nil {
		return nil, nil, err
	}
	if len(cands) == 0 {
		return nil, nil, &core.NotFoundError{Kind: string(KindStimulusSet), Identifier: identifier}
	}
	if err := checkPairing(identifier, cands); err != nil {
		return nil, nil, err
	}
	table, tableErr := resolveRepresentation(identifier, cands, Record.IsTable, "CSV")
	archive, archiveErr := resolveRepresentation(identifier, cands, Record.IsArchive, "zip")
	switch {
	case errors.Is(tableErr, core.ErrInconsistent):
		return nil, nil, tableErr
	case errors.Is(archiveErr, core.ErrInconsistent):
		return nil, nil, archiveErr
	case tableErr != nil:
		return nil, nil, tableErr
	case archiveErr != nil:
		return nil, nil, archiveErr
	}
	return table, archive, nil
}

// ResolveStimulusSetLenient is like ResolveStimulusSet but returns nil for a missing
// representation instead of failing.  At least one representation must exist.
func (r *Resolver) ResolveStimulusSetLenient(identifier string) (table, archive *Record, err error) {
	cands, err := r.candidates(KindStimulusSet, identifier)
	if err != nil {
		return nil, nil, err
	}
	if len(cands) == 0 {
		return nil, nil, &core.NotFoundError{Kind: string(KindStimulusSet), Identifier: identifier}
	}
	if err := checkPairing(identifier, cands); err != nil {
		return nil, nil, err
	}
	table, err = resolveRepresentation(identifier, cands, Record.IsTable, "CSV")
	if err != nil && !core.IsNotFound(err) {
		return nil, nil, err
	}
	archive, err = resolveRepresentation(identifier, cands, Record.IsArchive, "zip")
	if err != nil && !core.IsNotFound(err) {
		return nil, nil, err
	}
	if table == nil && archive == nil {
		return nil, nil, &core.NotFoundError{Kind: string(KindStimulusSet), Identifier: identifier, Detail: "CSV or zip"}
	}
	return table, archive, nil
}

// checkPairing fails if more than a table and an archive survive deduplication.
func checkPairing(identifier string, cands []Record) error {
	distinct := dedupe(cands)
	if len(distinct) <= 2 {
		return nil
	}
	core.Errorf("Found %d distinct records for stimulus set %q: %v\n", len(distinct), identifier, describe(distinct))
	return &core.ConsistencyError{
		Kind:       string(KindStimulusSet),
		Identifier: identifier,
		Count:      len(distinct),
		Detail:     fmt.Sprintf("more than 2 lookup rows in catalogs %v", sourcesOf(distinct)),
	}
}

func resolveRepresentation(identifier string, cands []Record, pred func(Record) bool, label string) (*Record, error) {
	var matching []Record
	for _, rec := range cands {
		if pred(rec) {
			matching = append(matching, rec)
		}
	}
	distinct := dedupe(matching)
	switch len(distinct) {
	case 0:
		return nil, &core.NotFoundError{Kind: string(KindStimulusSet), Identifier: identifier, Detail: label}
	case 1:
		rec := distinct[0]
		return &rec, nil
	default:
		core.Errorf("Found %d distinct %s records for stimulus set %q: %v\n", len(distinct), label, identifier, describe(distinct))
		return nil, &core.ConsistencyError{
			Kind:       string(KindStimulusSet),
			Identifier: identifier,
			Count:      len(distinct),
			Detail:     fmt.Sprintf("%s representation in catalogs %v", label, sourcesOf(distinct)),
		}
	}
}

func sourcesOf(records []Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Source
	}
	return out
}
