/*
Package stimuli holds stimulus sets: the table of presented items that an assembly's
presentations refer to, plus the extracted image files when the set ships an archive.
*/
package stimuli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dapello/brainio/core"
	"github.com/klauspost/compress/zip"
)

// IDColumn is the column keying rows to images.
const IDColumn = "image_id"

// StimulusSet is a table of stimuli and the local paths of their images.
type StimulusSet struct {
	Identifier string
	Columns    []string
	Rows       [][]string

	byID       map[string]int
	imagePaths map[string]string
}

// Load reads a stimulus set from its CSV table and, if zipPath is not empty,
// extracts its image archive into dir.  Either path may be empty, but not both.
func Load(identifier, csvPath, zipPath, dir string) (*StimulusSet, error) {
	if csvPath == "" && zipPath == "" {
		return nil, fmt.Errorf("stimulus set %q has neither table nor archive", identifier)
	}
	s := &StimulusSet{
		Identifier: identifier,
		byID:       make(map[string]int),
		imagePaths: make(map[string]string),
	}
	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, err
		}
		err = s.readTable(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("stimulus set %q table %s: %w", identifier, csvPath, err)
		}
	}
	if zipPath == "" {
		return s, nil
	}
	files, err := Extract(zipPath, dir)
	if err != nil {
		return nil, fmt.Errorf("stimulus set %q archive: %w", identifier, err)
	}
	if err := s.mapImages(dir, files); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *StimulusSet) readTable(r io.Reader) error {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return err
	}
	s.Columns = header
	idCol := s.columnIndex(IDColumn)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if idCol >= 0 {
			id := row[idCol]
			if _, found := s.byID[id]; found {
				return fmt.Errorf("duplicate %s %q", IDColumn, id)
			}
			s.byID[id] = len(s.Rows)
		}
		s.Rows = append(s.Rows, row)
	}
	return nil
}

// mapImages pairs image ids with extracted files, using the "filename" column when
// present and the file name stem otherwise.
func (s *StimulusSet) mapImages(dir string, files []string) error {
	byRel := make(map[string]string, len(files))
	byStem := make(map[string]string, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			return err
		}
		byRel[filepath.ToSlash(rel)] = f
		base := filepath.Base(f)
		byStem[strings.TrimSuffix(base, filepath.Ext(base))] = f
		byRel[base] = f
	}
	if len(s.Rows) == 0 {
		for stem, f := range byStem {
			s.imagePaths[stem] = f
		}
		return nil
	}
	if s.columnIndex(IDColumn) < 0 {
		return fmt.Errorf("stimulus set %q has images but no %s column", s.Identifier, IDColumn)
	}
	fileCol := s.columnIndex("filename")
	var missing int
	for id, i := range s.byID {
		var path string
		var found bool
		if fileCol >= 0 {
			path, found = byRel[filepath.ToSlash(s.Rows[i][fileCol])]
		}
		if !found {
			path, found = byStem[id]
		}
		if !found {
			missing++
			continue
		}
		s.imagePaths[id] = path
	}
	if missing > 0 {
		core.Warningf("Stimulus set %q: %d of %d images not found in archive\n", s.Identifier, missing, len(s.byID))
	}
	return nil
}

func (s *StimulusSet) columnIndex(name string) int {
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Len returns the number of rows, or of images if there is no table.
func (s *StimulusSet) Len() int {
	if len(s.Rows) == 0 {
		return len(s.imagePaths)
	}
	return len(s.Rows)
}

// Get returns the row for an image id keyed by column name.
func (s *StimulusSet) Get(imageID string) (map[string]string, error) {
	i, found := s.byID[imageID]
	if !found {
		return nil, &core.NotFoundError{Kind: "stimulus", Identifier: imageID}
	}
	row := make(map[string]string, len(s.Columns))
	for j, c := range s.Columns {
		if j < len(s.Rows[i]) {
			row[c] = s.Rows[i][j]
		}
	}
	return row, nil
}

// Column returns all values of a column in row order.
func (s *StimulusSet) Column(name string) ([]string, error) {
	j := s.columnIndex(name)
	if j < 0 {
		return nil, &core.NotFoundError{Kind: "column", Identifier: name}
	}
	out := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		if j < len(row) {
			out[i] = row[j]
		}
	}
	return out, nil
}

// ImagePath returns the local path of an image.
func (s *StimulusSet) ImagePath(imageID string) (string, error) {
	p, found := s.imagePaths[imageID]
	if !found {
		return "", &core.NotFoundError{Kind: "image", Identifier: imageID}
	}
	return p, nil
}

// ImageIDs returns the ids of all images with a local path, sorted.
func (s *StimulusSet) ImageIDs() []string {
	ids := make([]string, 0, len(s.imagePaths))
	for id := range s.imagePaths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Extract unpacks a zip archive into dir and returns the paths of extracted files.
// Entries resolving outside dir are rejected.
func Extract(zipPath, dir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, f := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return nil, fmt.Errorf("archive entry %q escapes %s", f.Name, dir)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return nil, err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return nil, fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		files = append(files, target)
	}
	core.Debugf("Extracted %d files from %s into %s\n", len(files), zipPath, root)
	return files, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
