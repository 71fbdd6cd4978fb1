package lookup

import (
	"fmt"
	"strings"
)

// Kind is the lookup_type column of a catalog.
type Kind string

const (
	KindAssembly    Kind = "assembly"
	KindStimulusSet Kind = "stimulus_set"
)

func (k Kind) Valid() bool {
	return k == KindAssembly || k == KindStimulusSet
}

// Record is one catalog row.  Empty Class and StimulusSetIdentifier mean absent.
type Record struct {
	Identifier            string
	Kind                  Kind
	Class                 string
	LocationType          string
	Location              string
	SHA1                  string
	StimulusSetIdentifier string

	// Source is the name of the catalog the record was loaded from.  It is never
	// persisted and takes no part in deduplication.
	Source string
}

// RecordKey is every column of a Record except its source catalog.
type RecordKey struct {
	Identifier            string
	Kind                  Kind
	Class                 string
	LocationType          string
	Location              string
	SHA1                  string
	StimulusSetIdentifier string
}

func (r Record) Key() RecordKey {
	return RecordKey{
		Identifier:            r.Identifier,
		Kind:                  r.Kind,
		Class:                 r.Class,
		LocationType:          r.LocationType,
		Location:              r.Location,
		SHA1:                  r.SHA1,
		StimulusSetIdentifier: r.StimulusSetIdentifier,
	}
}

// IsTable returns true if the record is the CSV representation of a stimulus set.
func (r Record) IsTable() bool {
	return r.Kind == KindStimulusSet && strings.HasSuffix(r.Location, ".csv") && r.Class != ""
}

// IsArchive returns true if the record is the zip representation of a stimulus set.
func (r Record) IsArchive() bool {
	return r.Kind == KindStimulusSet && strings.HasSuffix(r.Location, ".zip") && r.Class == ""
}

func (r Record) String() string {
	s := fmt.Sprintf("%s %s (%s %s, sha1 %s", r.Kind, r.Identifier, r.LocationType, r.Location, r.SHA1)
	if r.Class != "" {
		s += ", class " + r.Class
	}
	if r.Source != "" {
		s += ", catalog " + r.Source
	}
	return s + ")"
}

// dedupe returns records with distinct keys, keeping the first of each in order.
func dedupe(records []Record) []Record {
	seen := make(map[RecordKey]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		k := r.Key()
		if _, found := seen[k]; found {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func describe(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.String()
	}
	return out
}
