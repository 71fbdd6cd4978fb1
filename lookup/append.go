package lookup

import (
	"fmt"

	"github.com/dapello/brainio/core"
)

// StoreLocation names an object in a remote store.  An empty Type means "S3".
type StoreLocation struct {
	Type   string
	Bucket string
	Key    string
}

func (l StoreLocation) locationType() string {
	if l.Type == "" {
		return "S3"
	}
	return l.Type
}

// URL returns the location string stored in a catalog row.
func (l StoreLocation) URL() string {
	t := l.locationType()
	if t == "S3" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", l.Bucket, l.Key)
	}
	return fmt.Sprintf("%s://%s/%s", t, l.Bucket, l.Key)
}

// AppendRequest describes a record to add to a catalog.
type AppendRequest struct {
	Identifier            string
	Class                 string
	Kind                  Kind
	Location              StoreLocation
	SHA1                  string
	StimulusSetIdentifier string
}

// Append adds a record to the named catalog, rewrites the catalog file and invalidates
// the merged view so the record is immediately resolvable.  A record that would break
// assembly uniqueness or stimulus set pairing is rejected with a DuplicateError.
func (r *Resolver) Append(catalogName string, req AppendRequest) (Record, error) {
	r.appendMu.Lock()
	defer r.appendMu.Unlock()

	rec := Record{
		Identifier:            req.Identifier,
		Kind:                  req.Kind,
		Class:                 req.Class,
		LocationType:          req.Location.locationType(),
		Location:              req.Location.URL(),
		SHA1:                  req.SHA1,
		StimulusSetIdentifier: req.StimulusSetIdentifier,
		Source:                catalogName,
	}
	if rec.Identifier == "" {
		return Record{}, fmt.Errorf("cannot append record without identifier")
	}
	if !rec.Kind.Valid() {
		return Record{}, fmt.Errorf("cannot append %q: lookup type must be %q or %q, not %q",
			rec.Identifier, KindAssembly, KindStimulusSet, rec.Kind)
	}
	if rec.Kind == KindStimulusSet && !rec.IsTable() && !rec.IsArchive() {
		return Record{}, fmt.Errorf("stimulus set %q must be a .csv table with class or a .zip archive without class (location %s, class %q)",
			rec.Identifier, rec.Location, rec.Class)
	}
	core.Debugf("Adding %s %s to catalog %s\n", rec.Kind, rec.Identifier, catalogName)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(); err != nil {
		return Record{}, err
	}
	catalog, found := r.catalogs[catalogName]
	if !found {
		return Record{}, &core.NotFoundError{Kind: "catalog", Identifier: catalogName}
	}

	var local, elsewhere []Record
	for _, name := range r.order {
		for _, existing := range r.catalogs[name].Records {
			if existing.Identifier != rec.Identifier || existing.Kind != rec.Kind {
				continue
			}
			if name == catalogName {
				local = append(local, existing)
			} else {
				elsewhere = append(elsewhere, existing)
			}
		}
	}
	if !allowedInCatalog(rec, local) {
		return Record{}, &core.DuplicateError{
			Catalog:    catalogName,
			Kind:       string(rec.Kind),
			Identifier: rec.Identifier,
			Existing:   describe(local),
		}
	}
	for _, existing := range elsewhere {
		if conflicts(rec, existing) {
			return Record{}, &core.DuplicateError{
				Catalog:    catalogName,
				Kind:       string(rec.Kind),
				Identifier: rec.Identifier,
				Existing:   describe(elsewhere),
			}
		}
	}

	updated := catalog.clone()
	updated.Records = append(updated.Records, rec)
	if err := updated.Save(); err != nil {
		return Record{}, err
	}
	r.catalogs[catalogName] = updated
	r.merged = nil
	core.Infof("Added %s to catalog %q\n", rec, catalogName)
	return rec, nil
}

// allowedInCatalog returns true if rec may join the records of its catalog that share
// its identifier and kind.  Only the second half of a stimulus set table/archive pair
// is allowed.
func allowedInCatalog(rec Record, existing []Record) bool {
	switch len(existing) {
	case 0:
		return true
	case 1:
		if rec.Kind != KindStimulusSet {
			return false
		}
		e := existing[0]
		return (e.IsTable() && rec.IsArchive()) || (e.IsArchive() && rec.IsTable())
	default:
		return false
	}
}

// conflicts returns true if rec and a record from another catalog would resolve to more
// than one distinct record.  An identical record is not a conflict.
func conflicts(rec, other Record) bool {
	if rec.Key() == other.Key() {
		return false
	}
	if rec.Kind == KindAssembly {
		return true
	}
	return (rec.IsTable() && other.IsTable()) || (rec.IsArchive() && other.IsArchive()) ||
		(!other.IsTable() && !other.IsArchive())
}

// SHA1Hash returns the hex SHA1 digest of a file, for registering new artifacts.
func SHA1Hash(path string) (string, error) {
	return core.HashFile(path)
}
