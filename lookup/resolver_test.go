package lookup

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dapello/brainio/core"
	"github.com/google/go-cmp/cmp"
)

const testHeader = "identifier,lookup_type,class,location_type,location,sha1,stimulus_set_identifier\n"

// writeCatalog writes a catalog file with the given rows and returns its source.
func writeCatalog(t *testing.T, dir, name string, rows ...string) Source {
	t.Helper()
	path := filepath.Join(dir, name+".csv")
	content := testHeader + strings.Join(rows, "\n")
	if len(rows) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("unable to write catalog %s: %v\n", name, err)
	}
	return CSVSource(name, path)
}

const (
	hvmAssembly = "dicarlo.hvm,assembly,NeuronRecordingAssembly,S3,https://brainio.s3.amazonaws.com/hvm.nc,aaa111,dicarlo.hvm"
	hvmTable    = "dicarlo.hvm,stimulus_set,StimulusSet,S3,https://brainio.s3.amazonaws.com/hvm.csv,bbb222,"
	hvmArchive  = "dicarlo.hvm,stimulus_set,,S3,https://brainio.s3.amazonaws.com/hvm.zip,ccc333,"
)

func TestResolveAssembly(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(writeCatalog(t, dir, "public", hvmAssembly, hvmTable, hvmArchive))

	rec, err := r.ResolveAssembly("dicarlo.hvm")
	if err != nil {
		t.Fatalf("unable to resolve assembly: %v\n", err)
	}
	want := Record{
		Identifier:            "dicarlo.hvm",
		Kind:                  KindAssembly,
		Class:                 "NeuronRecordingAssembly",
		LocationType:          "S3",
		Location:              "https://brainio.s3.amazonaws.com/hvm.nc",
		SHA1:                  "aaa111",
		StimulusSetIdentifier: "dicarlo.hvm",
		Source:                "public",
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("resolved assembly mismatch (-want +got):\n%s", diff)
	}

	_, err = r.ResolveAssembly("dicarlo.missing")
	var nf *core.NotFoundError
	if !errors.As(err, &nf) || nf.Identifier != "dicarlo.missing" {
		t.Fatalf("expected NotFoundError for missing assembly, got %v\n", err)
	}
}

func TestSameRecordInTwoCatalogs(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(
		writeCatalog(t, dir, "private", hvmAssembly, hvmTable),
		writeCatalog(t, dir, "public", hvmAssembly, hvmTable, hvmArchive),
	)
	rec, err := r.ResolveAssembly("dicarlo.hvm")
	if err != nil {
		t.Fatalf("identical records in two catalogs should resolve: %v\n", err)
	}
	if rec.Source != "private" {
		t.Errorf("expected first catalog's record, got source %q\n", rec.Source)
	}
	table, archive, err := r.ResolveStimulusSet("dicarlo.hvm")
	if err != nil {
		t.Fatalf("unable to resolve stimulus set: %v\n", err)
	}
	if table.SHA1 != "bbb222" || archive.SHA1 != "ccc333" {
		t.Errorf("bad stimulus set pair: %v / %v\n", table, archive)
	}
}

func TestDifferingHashIsInconsistent(t *testing.T) {
	dir := t.TempDir()
	other := strings.Replace(hvmAssembly, "aaa111", "fff999", 1)
	r := NewResolver(
		writeCatalog(t, dir, "private", hvmAssembly),
		writeCatalog(t, dir, "public", other),
	)
	_, err := r.ResolveAssembly("dicarlo.hvm")
	var ce *core.ConsistencyError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConsistencyError, got %v\n", err)
	}
	if ce.Count != 2 {
		t.Errorf("expected 2 conflicting records, got %d\n", ce.Count)
	}
}

func TestStimulusSetPairing(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name         string
		rows         []string
		inconsistent bool
		missing      string
	}{
		{"table and archive", []string{hvmTable, hvmArchive}, false, ""},
		{"table only", []string{hvmTable}, false, "zip"},
		{"archive only", []string{hvmArchive}, false, "CSV"},
		{"two archives", []string{hvmArchive, strings.Replace(hvmArchive, "ccc333", "ddd444", 1)}, true, ""},
		{"two tables", []string{hvmTable, strings.Replace(hvmTable, "hvm.csv", "hvm2.csv", 1), hvmArchive}, true, ""},
		{"third record", []string{hvmTable, hvmArchive, strings.Replace(hvmTable, "StimulusSet", "", 1)}, true, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(writeCatalog(t, dir, strings.ReplaceAll(tc.name, " ", "_"), tc.rows...))
			table, archive, err := r.ResolveStimulusSet("dicarlo.hvm")
			switch {
			case tc.inconsistent:
				if !errors.Is(err, core.ErrInconsistent) {
					t.Fatalf("expected ConsistencyError, got %v\n", err)
				}
			case tc.missing != "":
				var nf *core.NotFoundError
				if !errors.As(err, &nf) || nf.Detail != tc.missing {
					t.Fatalf("expected %s NotFoundError, got %v\n", tc.missing, err)
				}
				if !strings.Contains(err.Error(), tc.missing+" for stimulus_set dicarlo.hvm not found") {
					t.Errorf("unexpected message: %v\n", err)
				}
				lt, la, err := r.ResolveStimulusSetLenient("dicarlo.hvm")
				if err != nil {
					t.Fatalf("lenient resolution failed: %v\n", err)
				}
				if (lt == nil) == (la == nil) {
					t.Errorf("expected exactly one representation, got %v / %v\n", lt, la)
				}
			default:
				if err != nil {
					t.Fatalf("unable to resolve: %v\n", err)
				}
				if !table.IsTable() || !archive.IsArchive() {
					t.Errorf("representations swapped: %v / %v\n", table, archive)
				}
			}
		})
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(
		writeCatalog(t, dir, "b", hvmAssembly, "zoo.x,assembly,DataAssembly,S3,https://b.s3.amazonaws.com/x.nc,111,"),
		writeCatalog(t, dir, "a", hvmAssembly, "alpha.y,assembly,DataAssembly,S3,https://b.s3.amazonaws.com/y.nc,222,", hvmTable),
	)
	got, err := r.ListAssemblies()
	if err != nil {
		t.Fatalf("unable to list assemblies: %v\n", err)
	}
	if diff := cmp.Diff([]string{"alpha.y", "dicarlo.hvm", "zoo.x"}, got); diff != "" {
		t.Errorf("assemblies mismatch (-want +got):\n%s", diff)
	}
	got, err = r.ListStimulusSets()
	if err != nil {
		t.Fatalf("unable to list stimulus sets: %v\n", err)
	}
	if diff := cmp.Diff([]string{"dicarlo.hvm"}, got); diff != "" {
		t.Errorf("stimulus sets mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendThenResolve(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(writeCatalog(t, dir, "contrib"), writeCatalog(t, dir, "public", hvmAssembly))

	if _, err := r.ListAssemblies(); err != nil {
		t.Fatalf("unable to list: %v\n", err)
	}
	rec, err := r.Append("contrib", AppendRequest{
		Identifier:            "lab.new",
		Class:                 "NeuronRecordingAssembly",
		Kind:                  KindAssembly,
		Location:              StoreLocation{Bucket: "brainio-contrib", Key: "assy_lab_new.nc"},
		SHA1:                  "0123abcd",
		StimulusSetIdentifier: "lab.new",
	})
	if err != nil {
		t.Fatalf("unable to append: %v\n", err)
	}
	if rec.Location != "https://brainio-contrib.s3.amazonaws.com/assy_lab_new.nc" || rec.LocationType != "S3" {
		t.Errorf("bad location %s (%s)\n", rec.Location, rec.LocationType)
	}
	got, err := r.ResolveAssembly("lab.new")
	if err != nil {
		t.Fatalf("appended assembly not resolvable: %v\n", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("resolved record mismatch (-want +got):\n%s", diff)
	}

	// Reload from disk to make sure the catalog was persisted.
	fresh := NewResolver(CSVSource("contrib", filepath.Join(dir, "contrib.csv")))
	got, err = fresh.ResolveAssembly("lab.new")
	if err != nil {
		t.Fatalf("appended assembly not persisted: %v\n", err)
	}
	if got.SHA1 != "0123abcd" {
		t.Errorf("bad persisted sha1 %s\n", got.SHA1)
	}
}

func TestAppendDuplicates(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(writeCatalog(t, dir, "contrib", hvmAssembly, hvmTable), writeCatalog(t, dir, "public"))

	_, err := r.Append("contrib", AppendRequest{
		Identifier: "dicarlo.hvm",
		Class:      "NeuronRecordingAssembly",
		Kind:       KindAssembly,
		Location:   StoreLocation{Bucket: "brainio", Key: "other.nc"},
		SHA1:       "eee",
	})
	if !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("expected DuplicateError for second assembly, got %v\n", err)
	}

	// The archive half of an existing table is allowed.
	_, err = r.Append("contrib", AppendRequest{
		Identifier: "dicarlo.hvm",
		Kind:       KindStimulusSet,
		Location:   StoreLocation{Bucket: "brainio", Key: "hvm.zip"},
		SHA1:       "ccc333",
	})
	if err != nil {
		t.Fatalf("unable to append archive for existing table: %v\n", err)
	}
	table, archive, err := r.ResolveStimulusSet("dicarlo.hvm")
	if err != nil {
		t.Fatalf("unable to resolve completed pair: %v\n", err)
	}
	if table.SHA1 != "bbb222" || archive.SHA1 != "ccc333" {
		t.Errorf("bad pair %v / %v\n", table, archive)
	}

	// A third representation is not.
	_, err = r.Append("contrib", AppendRequest{
		Identifier: "dicarlo.hvm",
		Kind:       KindStimulusSet,
		Location:   StoreLocation{Bucket: "brainio", Key: "hvm2.zip"},
		SHA1:       "ddd",
	})
	if !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("expected DuplicateError for third stimulus set record, got %v\n", err)
	}

	// A conflicting assembly in another catalog would make resolution inconsistent.
	_, err = r.Append("public", AppendRequest{
		Identifier: "dicarlo.hvm",
		Class:      "NeuronRecordingAssembly",
		Kind:       KindAssembly,
		Location:   StoreLocation{Bucket: "brainio", Key: "hvm.nc"},
		SHA1:       "different",
	})
	if !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("expected DuplicateError across catalogs, got %v\n", err)
	}

	if _, err = r.Append("nonexistent", AppendRequest{Identifier: "x", Kind: KindAssembly}); !core.IsNotFound(err) {
		t.Fatalf("expected NotFoundError for unknown catalog, got %v\n", err)
	}
	if _, err = r.Append("contrib", AppendRequest{Identifier: "x", Kind: "model"}); err == nil {
		t.Fatalf("expected error for bad lookup type\n")
	}
	_, err = r.Append("contrib", AppendRequest{
		Identifier: "lab.images",
		Class:      "StimulusSet",
		Kind:       KindStimulusSet,
		Location:   StoreLocation{Bucket: "brainio", Key: "images.zip"},
	})
	if err == nil {
		t.Fatalf("expected error for zip stimulus set with class\n")
	}
}

func TestConcurrentReadsAndAppends(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(writeCatalog(t, dir, "contrib", hvmAssembly))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if _, err := r.ResolveAssembly("dicarlo.hvm"); err != nil {
				t.Errorf("resolve during appends: %v\n", err)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := r.Append("contrib", AppendRequest{
				Identifier: "lab.set" + string(rune('a'+i)),
				Class:      "DataAssembly",
				Kind:       KindAssembly,
				Location:   StoreLocation{Bucket: "b", Key: "k.nc"},
				SHA1:       "abc",
			})
			if err != nil {
				t.Errorf("append: %v\n", err)
			}
		}(i)
	}
	wg.Wait()
	ids, err := r.ListAssemblies()
	if err != nil {
		t.Fatalf("list: %v\n", err)
	}
	if len(ids) != 9 {
		t.Errorf("expected 9 assemblies after appends, got %d: %v\n", len(ids), ids)
	}
}

func TestInvalidateReloads(t *testing.T) {
	dir := t.TempDir()
	src := writeCatalog(t, dir, "public", hvmAssembly)
	r := NewResolver(src)
	if _, err := r.ResolveAssembly("dicarlo.hvm"); err != nil {
		t.Fatalf("resolve: %v\n", err)
	}
	writeCatalog(t, dir, "public", hvmAssembly, "lab.late,assembly,DataAssembly,S3,https://b.s3.amazonaws.com/late.nc,999,")
	if _, err := r.ResolveAssembly("lab.late"); !core.IsNotFound(err) {
		t.Fatalf("expected cached view to miss the new row, got %v\n", err)
	}
	r.Invalidate()
	if _, err := r.ResolveAssembly("lab.late"); err != nil {
		t.Fatalf("expected reloaded view to contain the new row: %v\n", err)
	}
}
