package assemblies

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dapello/brainio/ndarray"
)

func mustAssembly(t *testing.T, data []float64, dims []string, shape []int, coords ...ndarray.Coord) *Assembly {
	t.Helper()
	assy, err := NewDataAssembly(data, dims, shape, coords...)
	if err != nil {
		t.Fatalf("unable to create assembly: %v\n", err)
	}
	return assy
}

func checkEqual(t *testing.T, name string, want, got *Assembly) {
	t.Helper()
	if !want.Equal(got) {
		t.Errorf("%s: expected\n%s\ngot\n%s", name, want, got)
	}
}

func TestMultiGroupBySingleDimension(t *testing.T) {
	d := mustAssembly(t, []float64{1, 2, 3, 4, 5, 6}, []string{"a", "b"}, []int{2, 3},
		ndarray.Coord{Name: "a", Dim: "a", Values: vals("a", "b")},
		ndarray.Coord{Name: "b", Dim: "b", Values: vals(3, 4, 5)},
	)
	g, err := d.MultiGroupBy("a")
	if err != nil {
		t.Fatalf("groupby: %v\n", err)
	}
	got, err := g.Mean()
	if err != nil {
		t.Fatalf("mean: %v\n", err)
	}
	want := mustAssembly(t, []float64{2, 5}, []string{"a"}, []int{2},
		ndarray.Coord{Name: "a", Dim: "a", Values: vals("a", "b")})
	checkEqual(t, "single dimension", want, got)

	d = mustAssembly(t, []float64{1, 2, 3, 4, 5, 6}, []string{"a", "b"}, []int{2, 3},
		ndarray.Coord{Name: "a", Dim: "a", Values: vals(1, 2)},
		ndarray.Coord{Name: "b", Dim: "b", Values: vals(3, 4, 5)},
	)
	if g, err = d.MultiGroupBy("a"); err != nil {
		t.Fatalf("groupby: %v\n", err)
	}
	if got, err = g.Mean(); err != nil {
		t.Fatalf("mean: %v\n", err)
	}
	want = mustAssembly(t, []float64{2, 5}, []string{"a"}, []int{2},
		ndarray.Coord{Name: "a", Dim: "a", Values: vals(1, 2)})
	checkEqual(t, "single integer dimension", want, got)
}

func TestMultiGroupBySingleCoord(t *testing.T) {
	d := mustAssembly(t, seq(0, 20), []string{"a", "b"}, []int{3, 7},
		ndarray.Coord{Name: "greek", Dim: "a", Values: vals("alpha", "beta", "gamma")},
		ndarray.Coord{Name: "colors", Dim: "a", Values: vals("red", "green", "blue")},
		ndarray.Coord{Name: "compass", Dim: "b", Values: vals("north", "south", "east", "west", "northeast", "southeast", "southwest")},
		ndarray.Coord{Name: "integer", Dim: "b", Values: vals(0, 1, 2, 3, 4, 5, 6)},
	)
	g, err := d.MultiGroupBy("greek")
	if err != nil {
		t.Fatalf("groupby: %v\n", err)
	}
	got, err := g.Mean()
	if err != nil {
		t.Fatalf("mean: %v\n", err)
	}
	want := mustAssembly(t, []float64{3, 10, 17}, []string{"greek"}, []int{3},
		ndarray.Coord{Name: "greek", Dim: "greek", Values: vals("alpha", "beta", "gamma")})
	checkEqual(t, "single coord", want, got)
}

func TestMultiGroupByMultiCoord(t *testing.T) {
	for _, first := range []interface{}{"a", 1} {
		d := mustAssembly(t, seq(1, 6), []string{"multi_dim"}, []int{6},
			ndarray.Coord{Name: "a", Dim: "multi_dim", Values: vals(first, first, first, first, first, first)},
			ndarray.Coord{Name: "b", Dim: "multi_dim", Values: vals("a", "a", "a", "b", "b", "b")},
			ndarray.Coord{Name: "c", Dim: "multi_dim", Values: vals("a", "b", "c", "d", "e", "f")},
		)
		g, err := d.MultiGroupBy("a", "b")
		if err != nil {
			t.Fatalf("groupby: %v\n", err)
		}
		got, err := g.Mean()
		if err != nil {
			t.Fatalf("mean: %v\n", err)
		}
		want := mustAssembly(t, []float64{2, 5}, []string{"multi_dim"}, []int{2},
			ndarray.Coord{Name: "a", Dim: "multi_dim", Values: vals(first, first)},
			ndarray.Coord{Name: "b", Dim: "multi_dim", Values: vals("a", "b")},
		)
		checkEqual(t, "multi coord", want, got)
		if diff := cmp.Diff([]string{"a", "b"}, got.LevelsOf("multi_dim")); diff != "" {
			t.Errorf("levels (-want +got):\n%s", diff)
		}
	}
}

func TestMultiGroupByTwoLevels(t *testing.T) {
	assy := upDown(t)
	g, err := assy.MultiGroupBy("up", "down")
	if err != nil {
		t.Fatalf("groupby: %v\n", err)
	}
	if g.Len() != 3 {
		t.Fatalf("expected 3 groups, got %d\n", g.Len())
	}
	wantKeys := [][]interface{}{{"alpha", int64(1)}, {"beta", int64(1)}, {"beta", int64(2)}}
	if diff := cmp.Diff(wantKeys, g.Keys()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"up", "down"}, g.KeyNames()); diff != "" {
		t.Errorf("key names (-want +got):\n%s", diff)
	}
	second, err := g.Group(1)
	if err != nil {
		t.Fatalf("group: %v\n", err)
	}
	if diff := cmp.Diff(seq(7, 12), second.Values()); diff != "" {
		t.Errorf("group values (-want +got):\n%s", diff)
	}

	got, err := g.Mean("a")
	if err != nil {
		t.Fatalf("mean: %v\n", err)
	}
	want := mustAssembly(t, []float64{2.5, 3.5, 4.5, 8.5, 9.5, 10.5, 14.5, 15.5, 16.5}, []string{"a", "b"}, []int{3, 3},
		ndarray.Coord{Name: "up", Dim: "a", Values: vals("alpha", "beta", "beta")},
		ndarray.Coord{Name: "down", Dim: "a", Values: vals(1, 1, 2)},
		ndarray.Coord{Name: "sideways", Dim: "b", Values: vals("x", "y", "z")},
	)
	checkEqual(t, "two coords", want, got)
	if diff := cmp.Diff([]string{"up", "down"}, got.LevelsOf("a")); diff != "" {
		t.Errorf("levels (-want +got):\n%s", diff)
	}
	if _, err := got.Sel("up", "beta"); err != nil {
		t.Errorf("result not selectable by up: %v\n", err)
	}
	if _, err := got.Sel("down", 2); err != nil {
		t.Errorf("result not selectable by down: %v\n", err)
	}

	reversed, err := assy.MultiGroupBy("down", "up")
	if err != nil {
		t.Fatalf("groupby: %v\n", err)
	}
	other, err := reversed.Mean("a")
	if err != nil {
		t.Fatalf("mean: %v\n", err)
	}
	checkEqual(t, "name order", got, other)

	byDim, err := assy.MultiGroupBy("a")
	if err != nil {
		t.Fatalf("groupby: %v\n", err)
	}
	if diff := cmp.Diff([]string{"up", "down"}, byDim.KeyNames()); diff != "" {
		t.Errorf("dimension with levels should group by its levels (-want +got):\n%s", diff)
	}
}

func TestMultiGroupByErrors(t *testing.T) {
	assy := upDown(t)
	if _, err := assy.MultiGroupBy(); err == nil {
		t.Errorf("expected error grouping by nothing\n")
	}
	if _, err := assy.MultiGroupBy("missing"); err == nil {
		t.Errorf("expected error grouping by unknown name\n")
	}
	g, err := assy.MultiGroupBy("up")
	if err != nil {
		t.Fatalf("groupby: %v\n", err)
	}
	_, err = g.Apply(func(group *Assembly) (*Assembly, error) {
		if len(group.Values()) == 6 {
			return group.Mean("a")
		}
		return group, nil
	})
	if err == nil {
		t.Errorf("expected error when groups disagree on reducing a dimension\n")
	}
}

func TestMultiDimApplyIdentity(t *testing.T) {
	identity := func(x *Assembly) (*Assembly, error) { return x, nil }
	d := mustAssembly(t, seq(1, 12), []string{"a", "b"}, []int{4, 3},
		ndarray.Coord{Name: "a", Dim: "a", Values: vals("a", "b", "c", "d")},
		ndarray.Coord{Name: "b", Dim: "b", Values: vals("x", "y", "z")},
	)
	for _, names := range [][]string{{"a", "b"}, {"b", "a"}} {
		got, err := d.MultiDimApply(names, identity)
		if err != nil {
			t.Fatalf("apply %v: %v\n", names, err)
		}
		checkEqual(t, "unique values", d, got)
		if diff := cmp.Diff(d.Dims(), got.Dims()); diff != "" {
			t.Errorf("dims for names %v (-want +got):\n%s", names, diff)
		}
	}

	withScalar := mustAssembly(t, seq(1, 12), []string{"a", "b"}, []int{4, 3},
		ndarray.Coord{Name: "a", Dim: "a", Values: vals("a", "b", "c", "d")},
		ndarray.Coord{Name: "b", Dim: "b", Values: vals("x", "y", "z")},
		ndarray.Coord{Name: "c", Values: vals("remnant")},
	)
	got, err := withScalar.MultiDimApply([]string{"a", "b"}, identity)
	if err != nil {
		t.Fatalf("apply: %v\n", err)
	}
	checkEqual(t, "scalar coordinate", withScalar, got)
	if c, err := got.Coord("c"); err != nil || c.Values[0] != "remnant" {
		t.Errorf("scalar coordinate lost: %+v (%v)\n", c, err)
	}

	assy := upDown(t)
	got, err = assy.MultiDimApply([]string{"a", "b"}, identity)
	if err != nil {
		t.Fatalf("apply: %v\n", err)
	}
	checkEqual(t, "multi level", assy, got)
	if diff := cmp.Diff([]string{"up", "down"}, got.LevelsOf("a")); diff != "" {
		t.Errorf("levels (-want +got):\n%s", diff)
	}
}

func TestMultiDimApplySubtractMean(t *testing.T) {
	d := mustAssembly(t, seq(1, 12), []string{"a", "b"}, []int{4, 3},
		ndarray.Coord{Name: "a", Dim: "a", Values: vals("a", "b", "c", "d")},
		ndarray.Coord{Name: "aa", Dim: "a", Values: vals("a", "a", "b", "b")},
		ndarray.Coord{Name: "b", Dim: "b", Values: vals("x", "y", "z")},
	)
	got, err := d.MultiDimApply([]string{"aa", "b"}, func(x *Assembly) (*Assembly, error) {
		mean, err := x.Mean()
		if err != nil {
			return nil, err
		}
		return x.Sub(mean)
	})
	if err != nil {
		t.Fatalf("apply: %v\n", err)
	}
	want := mustAssembly(t,
		[]float64{-1.5, -1.5, -1.5, 1.5, 1.5, 1.5, -1.5, -1.5, -1.5, 1.5, 1.5, 1.5},
		[]string{"a", "b"}, []int{4, 3},
		ndarray.Coord{Name: "a", Dim: "a", Values: vals("a", "b", "c", "d")},
		ndarray.Coord{Name: "aa", Dim: "a", Values: vals("a", "a", "b", "b")},
		ndarray.Coord{Name: "b", Dim: "b", Values: vals("x", "y", "z")},
	)
	checkEqual(t, "subtract mean", want, got)
}

func TestMultiDimApplyDropsUngroupedLevels(t *testing.T) {
	d := mustAssembly(t, seq(1, 6), []string{"multi_dim"}, []int{6},
		ndarray.Coord{Name: "a", Dim: "multi_dim", Values: vals("p", "p", "p", "q", "q", "q")},
		ndarray.Coord{Name: "b", Dim: "multi_dim", Values: vals("u", "u", "v", "v", "w", "w")},
		ndarray.Coord{Name: "c", Dim: "multi_dim", Values: vals("a", "b", "c", "d", "e", "f")},
	)
	got, err := d.MultiDimApply([]string{"b", "a"}, func(x *Assembly) (*Assembly, error) {
		return x.Sum()
	})
	if err != nil {
		t.Fatalf("apply: %v\n", err)
	}
	want := mustAssembly(t, []float64{3, 3, 4, 11}, []string{"multi_dim"}, []int{4},
		ndarray.Coord{Name: "a", Dim: "multi_dim", Values: vals("p", "p", "q", "q")},
		ndarray.Coord{Name: "b", Dim: "multi_dim", Values: vals("u", "v", "v", "w")},
	)
	checkEqual(t, "dropped level", want, got)
	if diff := cmp.Diff([]string{"a", "b"}, got.LevelsOf("multi_dim")); diff != "" {
		t.Errorf("levels (-want +got):\n%s", diff)
	}
}
