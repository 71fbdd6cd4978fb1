package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorTaxonomy(t *testing.T) {
	nf := fmt.Errorf("lookup: %w", &NotFoundError{Kind: "stimulus_set", Identifier: "dicarlo.hvm", Detail: "zip"})
	if !errors.Is(nf, ErrNotFound) || !IsNotFound(nf) {
		t.Fatalf("expected wrapped NotFoundError to match ErrNotFound\n")
	}
	if errors.Is(nf, ErrInconsistent) {
		t.Fatalf("NotFoundError should not match ErrInconsistent\n")
	}
	if !strings.Contains(nf.Error(), "zip for stimulus_set dicarlo.hvm not found") {
		t.Errorf("unexpected message: %s\n", nf)
	}

	ce := &ConsistencyError{Kind: "assembly", Identifier: "dicarlo.hvm", Count: 2}
	if !errors.Is(ce, ErrInconsistent) {
		t.Fatalf("expected ConsistencyError to match ErrInconsistent\n")
	}
	if !strings.Contains(ce.Error(), "2 distinct") {
		t.Errorf("consistency error should report record count: %s\n", ce)
	}

	var de error = &DuplicateError{Catalog: "contrib", Kind: "assembly", Identifier: "x"}
	var target *DuplicateError
	if !errors.As(de, &target) || target.Catalog != "contrib" {
		t.Fatalf("expected errors.As to recover DuplicateError\n")
	}
	if !errors.Is(de, ErrDuplicate) {
		t.Fatalf("expected DuplicateError to match ErrDuplicate\n")
	}
}

func TestConfig(t *testing.T) {
	var c Config
	c.SetAll(map[string]interface{}{"Path": "/tmp/x", "testing": "true", "size": int64(42)})
	if s, found, err := c.GetString("path"); err != nil || !found || s != "/tmp/x" {
		t.Fatalf("bad path setting: %q %t %v\n", s, found, err)
	}
	if b, found, err := c.GetBool("testing"); err != nil || !found || !b {
		t.Fatalf("bad testing setting: %t %t %v\n", b, found, err)
	}
	if i, found, err := c.GetInt("size"); err != nil || !found || i != 42 {
		t.Fatalf("bad size setting: %d %t %v\n", i, found, err)
	}
	if _, _, err := c.GetBool("path"); err == nil {
		t.Fatalf("expected error getting string as bool\n")
	}
	if _, found, _ := c.GetString("missing"); found {
		t.Fatalf("missing key reported as found\n")
	}

	abs, err := ConvertToAbsolute("catalogs/a.csv", "/etc/brainio")
	if err != nil || abs != "/etc/brainio/catalogs/a.csv" {
		t.Fatalf("bad absolute path %q: %v\n", abs, err)
	}
}
