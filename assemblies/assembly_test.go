package assemblies

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dapello/brainio/core"
	"github.com/dapello/brainio/ndarray"
)

func vals(v ...interface{}) []interface{} {
	return v
}

func seq(from, to float64) []float64 {
	var out []float64
	for v := from; v <= to; v++ {
		out = append(out, v)
	}
	return out
}

// upDown has dimension a with levels up and down, and dimension b with one coordinate.
func upDown(t *testing.T) *Assembly {
	t.Helper()
	assy, err := NewDataAssembly(seq(1, 18), []string{"a", "b"}, []int{6, 3},
		ndarray.Coord{Name: "up", Dim: "a", Values: vals("alpha", "alpha", "beta", "beta", "beta", "beta")},
		ndarray.Coord{Name: "down", Dim: "a", Values: vals(1, 1, 1, 1, 2, 2)},
		ndarray.Coord{Name: "sideways", Dim: "b", Values: vals("x", "y", "z")},
	)
	if err != nil {
		t.Fatalf("unable to create assembly: %v\n", err)
	}
	return assy
}

func TestLevels(t *testing.T) {
	assy := upDown(t)
	if diff := cmp.Diff([]string{"up", "down"}, assy.Levels()); diff != "" {
		t.Errorf("levels (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"up", "down"}, assy.LevelsOf("a")); diff != "" {
		t.Errorf("levels of a (-want +got):\n%s", diff)
	}
	if got := assy.LevelsOf("b"); len(got) != 0 {
		t.Errorf("expected no levels on b, got %v\n", got)
	}
	if diff := cmp.Diff([]string{"a"}, assy.IndexDims()); diff != "" {
		t.Errorf("index dims (-want +got):\n%s", diff)
	}
	again := New(ClassDataAssembly, assy.Array())
	if diff := cmp.Diff(assy.Levels(), again.Levels()); diff != "" {
		t.Errorf("gathering levels twice changed them (-want +got):\n%s", diff)
	}
}

func TestResetAndSetLevels(t *testing.T) {
	assy := upDown(t)
	reset, err := assy.ResetLevels("up", "down")
	if err != nil {
		t.Fatalf("reset: %v\n", err)
	}
	if got := reset.Levels(); len(got) != 0 {
		t.Errorf("expected no levels after reset, got %v\n", got)
	}
	if !reset.Array().HasCoord("up") || !reset.Array().HasCoord("down") {
		t.Errorf("reset should keep the coordinates\n")
	}
	if diff := cmp.Diff([]string{"up", "down"}, assy.Levels()); diff != "" {
		t.Errorf("reset modified its receiver (-want +got):\n%s", diff)
	}
	if _, err := assy.ResetLevels("sideways"); !core.IsNotFound(err) {
		t.Errorf("expected not found resetting a non-level, got %v\n", err)
	}

	swapped, err := reset.SetLevels("a", "down", "up")
	if err != nil {
		t.Fatalf("set levels: %v\n", err)
	}
	if diff := cmp.Diff([]string{"down", "up"}, swapped.LevelsOf("a")); diff != "" {
		t.Errorf("set levels (-want +got):\n%s", diff)
	}
	if _, err := reset.SetLevels("a", "up", "sideways"); err == nil {
		t.Errorf("expected error setting a level from another dimension\n")
	}
	if _, err := reset.SetLevels("a", "up"); err == nil {
		t.Errorf("expected error setting a single level\n")
	}
}

func TestRepr(t *testing.T) {
	assy, err := NewDataAssembly(seq(1, 18), []string{"a", "b"}, []int{6, 3},
		ndarray.Coord{Name: "up", Dim: "a", Values: vals("alpha", "alpha", "beta", "beta", "beta", "beta")},
		ndarray.Coord{Name: "down", Dim: "a", Values: vals(1, 1, 1, 1, 2, 2)},
		ndarray.Coord{Name: "back", Dim: "b", Values: vals("x", "y", "z")},
		ndarray.Coord{Name: "forth", Dim: "b", Values: vals(true, true, false)},
	)
	if err != nil {
		t.Fatalf("unable to create assembly: %v\n", err)
	}
	repr := assy.String()
	for _, name := range []string{"DataAssembly", "up", "down", "back", "forth", "MultiIndex"} {
		if !strings.Contains(repr, name) {
			t.Errorf("repr lacks %q:\n%s", name, repr)
		}
	}
}

func TestIselKeepsClass(t *testing.T) {
	assy := upDown(t).WithClass(ClassNeuronRecordingAssembly)
	single, err := assy.Isel(0, 0)
	if err != nil {
		t.Fatalf("isel: %v\n", err)
	}
	if single.Class() != ClassNeuronRecordingAssembly {
		t.Errorf("expected class %s, got %s\n", ClassNeuronRecordingAssembly, single.Class())
	}
	if len(single.Dims()) != 0 {
		t.Errorf("expected 0-d assembly, got dims %v\n", single.Dims())
	}
	v, err := single.Item()
	if err != nil || v != 1 {
		t.Errorf("expected item 1, got %v (%v)\n", v, err)
	}
	up, err := single.Coord("up")
	if err != nil || !up.IsScalar() || up.Values[0] != "alpha" {
		t.Errorf("expected scalar up=alpha, got %+v (%v)\n", up, err)
	}

	line, err := NewDataAssembly([]float64{0}, []string{"dim"}, []int{1},
		ndarray.Coord{Name: "coordA", Dim: "dim", Values: vals(0)},
		ndarray.Coord{Name: "coordB", Dim: "dim", Values: vals(1)},
	)
	if err != nil {
		t.Fatalf("unable to create assembly: %v\n", err)
	}
	one, err := line.Isel(0)
	if err != nil {
		t.Fatalf("isel: %v\n", err)
	}
	if one.Class() != line.Class() {
		t.Errorf("single element lost its class\n")
	}
}

func TestSel(t *testing.T) {
	assy := upDown(t)
	beta, err := assy.Sel("up", "beta")
	if err != nil {
		t.Fatalf("sel: %v\n", err)
	}
	if diff := cmp.Diff([]int{4, 3}, beta.Shape()); diff != "" {
		t.Errorf("shape (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"up", "down"}, beta.LevelsOf("a")); diff != "" {
		t.Errorf("sel lost levels (-want +got):\n%s", diff)
	}
	down2, err := beta.Sel("down", 2)
	if err != nil {
		t.Fatalf("sel by level: %v\n", err)
	}
	if diff := cmp.Diff(seq(13, 18), down2.Values()); diff != "" {
		t.Errorf("values (-want +got):\n%s", diff)
	}

	byKey, err := assy.Sel("a", vals("beta", 1))
	if err != nil {
		t.Fatalf("sel by composite key: %v\n", err)
	}
	if diff := cmp.Diff(seq(7, 12), byKey.Values()); diff != "" {
		t.Errorf("composite key values (-want +got):\n%s", diff)
	}

	if _, err := assy.Sel("up", "gamma"); !core.IsNotFound(err) {
		t.Errorf("expected not found for missing value, got %v\n", err)
	}
	if _, err := assy.Sel("nope", 1); !core.IsNotFound(err) {
		t.Errorf("expected not found for missing coordinate, got %v\n", err)
	}

	line, err := NewDataAssembly([]float64{0, 1, 2, 3, 4}, []string{"dim"}, []int{5},
		ndarray.Coord{Name: "coordA", Dim: "dim", Values: vals(0, 1, 2, 3, 4)},
		ndarray.Coord{Name: "coordB", Dim: "dim", Values: vals(1, 2, 3, 4, 5)},
	)
	if err != nil {
		t.Fatalf("unable to create assembly: %v\n", err)
	}
	for _, sel := range []struct {
		name  string
		value int
	}{{"coordA", 0}, {"coordA", 4}, {"coordB", 1}, {"coordB", 5}} {
		if _, err := line.Sel(sel.name, sel.value); err != nil {
			t.Errorf("sel %s=%d: %v\n", sel.name, sel.value, err)
		}
	}
	if _, err := line.Sel("coordB", 0); !core.IsNotFound(err) {
		t.Errorf("expected not found for coordB=0, got %v\n", err)
	}
}

func TestLookup(t *testing.T) {
	assy := upDown(t)
	keys, err := assy.Lookup("a")
	if err != nil {
		t.Fatalf("lookup: %v\n", err)
	}
	if len(keys) != 6 {
		t.Fatalf("expected 6 composite keys, got %d\n", len(keys))
	}
	if diff := cmp.Diff(vals("beta", int64(2)), keys[5]); diff != "" {
		t.Errorf("last key (-want +got):\n%s", diff)
	}
	down, err := assy.Lookup("down")
	if err != nil {
		t.Fatalf("lookup: %v\n", err)
	}
	if diff := cmp.Diff(vals(int64(1), int64(1), int64(1), int64(1), int64(2), int64(2)), down); diff != "" {
		t.Errorf("down (-want +got):\n%s", diff)
	}
	if _, err := assy.Lookup("missing"); !core.IsNotFound(err) {
		t.Errorf("expected not found, got %v\n", err)
	}
}

func TestAlign(t *testing.T) {
	build := func(ups []interface{}) *Assembly {
		assy, err := NewDataAssembly(seq(1, 18), []string{"a", "b"}, []int{6, 3},
			ndarray.Coord{Name: "up", Dim: "a", Values: ups},
			ndarray.Coord{Name: "down", Dim: "a", Values: vals(1, 2, 3, 4, 5, 6)},
			ndarray.Coord{Name: "b", Dim: "b", Values: vals("x", "y", "z")},
		)
		if err != nil {
			t.Fatalf("unable to create assembly: %v\n", err)
		}
		return assy.WithClass(ClassNeuronRecordingAssembly)
	}
	da1 := build(vals("alpha", "alpha", "beta", "beta", "beta", "beta"))
	da2 := build(vals("alpha", "alpha", "beta", "beta", "gamma", "gamma"))

	aligned1, aligned2, err := Align(JoinOuter, da1, da2)
	if err != nil {
		t.Fatalf("align: %v\n", err)
	}
	for i, aligned := range []*Assembly{aligned1, aligned2} {
		if diff := cmp.Diff([]string{"up", "down"}, aligned.LevelsOf("a")); diff != "" {
			t.Errorf("aligned %d levels (-want +got):\n%s", i+1, diff)
		}
		if diff := cmp.Diff([]int{8, 3}, aligned.Shape()); diff != "" {
			t.Errorf("aligned %d shape (-want +got):\n%s", i+1, diff)
		}
		if _, err := aligned.Sel("up", "gamma"); err != nil {
			t.Errorf("aligned %d not selectable by level: %v\n", i+1, err)
		}
		if aligned.Class() != ClassNeuronRecordingAssembly {
			t.Errorf("aligned %d lost its class\n", i+1)
		}
	}
	gamma, err := aligned1.Sel("a", vals("gamma", 5))
	if err != nil {
		t.Fatalf("sel: %v\n", err)
	}
	for _, v := range gamma.Values() {
		if !math.IsNaN(v) {
			t.Errorf("expected NaN for key missing from first assembly, got %v\n", v)
		}
	}
	beta5, err := aligned2.Sel("a", vals("beta", 5))
	if err != nil {
		t.Fatalf("sel: %v\n", err)
	}
	for _, v := range beta5.Values() {
		if !math.IsNaN(v) {
			t.Errorf("expected NaN for key missing from second assembly, got %v\n", v)
		}
	}

	inner1, inner2, err := Align(JoinInner, da1, da2)
	if err != nil {
		t.Fatalf("inner align: %v\n", err)
	}
	if diff := cmp.Diff(seq(1, 12), inner1.Values()); diff != "" {
		t.Errorf("inner values (-want +got):\n%s", diff)
	}
	if !inner1.Equal(inner2) {
		t.Errorf("inner join of equal rows differ:\n%s\n%s", inner1, inner2)
	}
}

func TestArithmetic(t *testing.T) {
	assy := upDown(t)
	mean, err := assy.Mean("a")
	if err != nil {
		t.Fatalf("mean: %v\n", err)
	}
	if diff := cmp.Diff([]float64{8.5, 9.5, 10.5}, mean.Values()); diff != "" {
		t.Errorf("mean (-want +got):\n%s", diff)
	}
	centered, err := assy.Sub(mean)
	if err != nil {
		t.Fatalf("sub: %v\n", err)
	}
	if diff := cmp.Diff([]string{"up", "down"}, centered.LevelsOf("a")); diff != "" {
		t.Errorf("sub lost levels (-want +got):\n%s", diff)
	}
	if v := centered.Values()[0]; v != -7.5 {
		t.Errorf("expected -7.5, got %v\n", v)
	}
	transposed, err := assy.Transpose()
	if err != nil {
		t.Fatalf("transpose: %v\n", err)
	}
	if diff := cmp.Diff([]string{"b", "a"}, transposed.Dims()); diff != "" {
		t.Errorf("transpose dims (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"up", "down"}, transposed.LevelsOf("a")); diff != "" {
		t.Errorf("transpose lost levels (-want +got):\n%s", diff)
	}
	first, err := assy.IselDims(map[string][]int{"b": {0}})
	if err != nil {
		t.Fatalf("isel: %v\n", err)
	}
	squeezed, err := first.Squeeze("b")
	if err != nil {
		t.Fatalf("squeeze: %v\n", err)
	}
	if diff := cmp.Diff([]string{"a"}, squeezed.Dims()); diff != "" {
		t.Errorf("squeeze dims (-want +got):\n%s", diff)
	}
}
