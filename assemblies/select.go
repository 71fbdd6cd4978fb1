package assemblies

import (
	"fmt"
	"sort"

	"github.com/dapello/brainio/core"
	"github.com/dapello/brainio/ndarray"
)

// Coord returns a coordinate or level by name.
func (a *Assembly) Coord(name string) (ndarray.Coord, error) {
	c, found := a.arr.Coord(name)
	if !found {
		return ndarray.Coord{}, &core.NotFoundError{Kind: "coordinate", Identifier: name}
	}
	return c, nil
}

// Lookup is attribute-style access restricted to known names.  A coordinate or level
// returns its values.  A dimension with levels returns its composite keys, each a
// []interface{} ordered like LevelsOf.
func (a *Assembly) Lookup(name string) ([]interface{}, error) {
	if len(a.levels[name]) > 0 {
		tuples := a.KeyTuples(name)
		out := make([]interface{}, len(tuples))
		for i, t := range tuples {
			out[i] = t
		}
		return out, nil
	}
	c, err := a.Coord(name)
	if err != nil {
		return nil, err
	}
	return c.Values, nil
}

// KeyTuples returns the composite key at each position of a dimension with levels,
// or the single-value keys of its dimension coordinate.  Nil if dim has neither.
func (a *Assembly) KeyTuples(dim string) [][]interface{} {
	names := a.levels[dim]
	if len(names) == 0 {
		if c, found := a.arr.Coord(dim); found && c.Dim == dim {
			names = []string{dim}
		} else {
			return nil
		}
	}
	return a.tuples(dim, names)
}

func (a *Assembly) tuples(dim string, names []string) [][]interface{} {
	size := a.arr.DimSize(dim)
	cols := make([][]interface{}, len(names))
	for j, name := range names {
		c, _ := a.arr.Coord(name)
		cols[j] = c.Values
	}
	out := make([][]interface{}, size)
	for i := range out {
		t := make([]interface{}, len(names))
		for j := range names {
			t[j] = cols[j][i]
		}
		out[i] = t
	}
	return out
}

// Sel selects elements whose coordinate or level name equals value.  The dimension
// stays, restricted to the matching positions, and keeps its levels.  A dimension
// name with levels may be selected with a []interface{} composite key.  No match is
// a NotFoundError.
func (a *Assembly) Sel(name string, value interface{}) (*Assembly, error) {
	if tuple, ok := value.([]interface{}); ok && len(a.levels[name]) > 0 {
		return a.selTuple(name, tuple)
	}
	c, found := a.arr.Coord(name)
	if !found {
		return nil, &core.NotFoundError{Kind: "coordinate", Identifier: name}
	}
	v, err := ndarray.Normalize(value)
	if err != nil {
		return nil, err
	}
	if c.IsScalar() {
		if !ndarray.ValuesEqual(c.Values[0], v) {
			return nil, &core.NotFoundError{Kind: "coordinate value", Identifier: fmt.Sprintf("%s=%s", name, ndarray.FormatValue(v))}
		}
		return a, nil
	}
	var positions []int
	for i, x := range c.Values {
		if ndarray.ValuesEqual(x, v) {
			positions = append(positions, i)
		}
	}
	if len(positions) == 0 {
		return nil, &core.NotFoundError{Kind: "coordinate value", Identifier: fmt.Sprintf("%s=%s", name, ndarray.FormatValue(v))}
	}
	return a.iselDim(c.Dim, positions)
}

func (a *Assembly) selTuple(dim string, key []interface{}) (*Assembly, error) {
	names := a.levels[dim]
	if len(key) != len(names) {
		return nil, fmt.Errorf("key %v for dimension %q needs %d values (%v)", key, dim, len(names), names)
	}
	normalized, err := ndarray.NormalizeAll(key)
	if err != nil {
		return nil, err
	}
	var positions []int
	for i, t := range a.tuples(dim, names) {
		if tupleEqual(t, normalized) {
			positions = append(positions, i)
		}
	}
	if len(positions) == 0 {
		return nil, &core.NotFoundError{Kind: "coordinate value", Identifier: fmt.Sprintf("%s=%v", dim, key)}
	}
	return a.iselDim(dim, positions)
}

func tupleEqual(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ndarray.ValuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// SelMany applies Sel for every entry, in name order.
func (a *Assembly) SelMany(sel map[string]interface{}) (*Assembly, error) {
	names := make([]string, 0, len(sel))
	for name := range sel {
		names = append(names, name)
	}
	sort.Strings(names)
	out := a
	for _, name := range names {
		var err error
		if out, err = out.Sel(name, sel[name]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (a *Assembly) iselDim(dim string, positions []int) (*Assembly, error) {
	arr, err := a.arr.Isel(map[string][]int{dim: positions})
	if err != nil {
		return nil, err
	}
	return a.derive(arr), nil
}

// IselDims selects positions along dimensions, keeping every dimension.
func (a *Assembly) IselDims(sel map[string][]int) (*Assembly, error) {
	arr, err := a.arr.Isel(sel)
	if err != nil {
		return nil, err
	}
	return a.derive(arr), nil
}

// Isel indexes the leading dimensions by position, removing them.  Indexing every
// dimension yields a 0-d Assembly of the same class, never a bare number; use Item
// to extract it.
func (a *Assembly) Isel(idx ...int) (*Assembly, error) {
	dims := a.arr.Dims()
	if len(idx) > len(dims) {
		return nil, fmt.Errorf("%d indices given for %d-d assembly", len(idx), len(dims))
	}
	if len(idx) == 0 {
		return a, nil
	}
	sel := make(map[string][]int, len(idx))
	for i, x := range idx {
		sel[dims[i]] = []int{x}
	}
	arr, err := a.arr.Isel(sel)
	if err != nil {
		return nil, err
	}
	if arr, err = arr.Squeeze(dims[:len(idx)]...); err != nil {
		return nil, err
	}
	return a.derive(arr), nil
}

// Item returns the value of a single-element assembly.
func (a *Assembly) Item() (float64, error) {
	if a.arr.Size() != 1 {
		return 0, fmt.Errorf("item needs a single element, assembly has %d", a.arr.Size())
	}
	return a.arr.Data()[0], nil
}
