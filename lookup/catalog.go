package lookup

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dapello/brainio/core"
	"github.com/twinj/uuid"
)

// Columns of a persisted catalog, in file order.
var catalogColumns = []string{
	"identifier",
	"lookup_type",
	"class",
	"location_type",
	"location",
	"sha1",
	"stimulus_set_identifier",
}

// Catalog is a named, ordered collection of records backed by a CSV file.
type Catalog struct {
	Name    string
	Path    string
	Records []Record
}

// LoadCatalog reads a catalog file, tagging every record with the catalog name.
func LoadCatalog(name, path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open catalog %q: %w", name, err)
	}
	defer f.Close()

	records, err := ReadRecords(f, name)
	if err != nil {
		return nil, fmt.Errorf("catalog %q (%s): %w", name, path, err)
	}
	return &Catalog{Name: name, Path: path, Records: records}, nil
}

// ReadRecords parses CSV catalog rows.  The "content_hash" column is accepted in place
// of "sha1", and columns not part of a record are ignored.
func ReadRecords(r io.Reader, source string) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "content_hash" {
			if _, found := col["sha1"]; found {
				continue
			}
			name = "sha1"
		}
		col[name] = i
	}
	for _, required := range []string{"identifier", "lookup_type", "location"} {
		if _, found := col[required]; !found {
			return nil, fmt.Errorf("catalog header lacks %q column", required)
		}
	}
	field := func(row []string, name string) string {
		i, found := col[name]
		if !found || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := Record{
			Identifier:            field(row, "identifier"),
			Kind:                  Kind(field(row, "lookup_type")),
			Class:                 field(row, "class"),
			LocationType:          field(row, "location_type"),
			Location:              field(row, "location"),
			SHA1:                  field(row, "sha1"),
			StimulusSetIdentifier: field(row, "stimulus_set_identifier"),
			Source:                source,
		}
		if rec.Identifier == "" {
			return nil, fmt.Errorf("line %d: empty identifier", line)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteRecords writes a header and one row per record.  Source tags are not written.
func WriteRecords(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(catalogColumns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Identifier,
			string(r.Kind),
			r.Class,
			r.LocationType,
			r.Location,
			r.SHA1,
			r.StimulusSetIdentifier,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save rewrites the whole catalog file.  Data goes to a temporary file in the same
// directory first and is renamed over the catalog path.
func (c *Catalog) Save() error {
	if c.Path == "" {
		return fmt.Errorf("catalog %q has no backing file", c.Name)
	}
	dir := filepath.Dir(c.Path)
	tmpPath := filepath.Join(dir, "."+filepath.Base(c.Path)+"."+uuid.NewV4().String())
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	if err := WriteRecords(f, c.Records); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("unable to write catalog %q: %w", c.Name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, c.Path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	core.Debugf("Saved catalog %q with %d records to %s\n", c.Name, len(c.Records), c.Path)
	return nil
}

func (c *Catalog) clone() *Catalog {
	dup := *c
	dup.Records = append([]Record(nil), c.Records...)
	return &dup
}
