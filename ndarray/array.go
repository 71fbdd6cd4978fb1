/*
Package ndarray is a small dense labeled array: row-major float64 data with named
dimensions and ordered coordinates.

A coordinate is either bound to one dimension, with one value per element along it,
or scalar, with a single value describing the whole array.  Every operation returns
a new Array; arrays are never modified in place.
*/
package ndarray

import (
	"fmt"
	"math"
)

// Coord is a named coordinate.  An empty Dim marks a scalar coordinate with one value.
type Coord struct {
	Name   string
	Dim    string
	Values []interface{}
}

// IsScalar returns true if the coordinate is not bound to a dimension.
func (c Coord) IsScalar() bool {
	return c.Dim == ""
}

func (c Coord) clone() Coord {
	return Coord{c.Name, c.Dim, append([]interface{}(nil), c.Values...)}
}

// Array is an immutable dense labeled array.
type Array struct {
	Name string

	dims   []string
	shape  []int
	data   []float64
	coords []Coord
	attrs  map[string]interface{}
}

func sizeOf(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// New returns a validated array.  Coordinate values are normalized.
func New(data []float64, dims []string, shape []int, coords ...Coord) (*Array, error) {
	if len(dims) != len(shape) {
		return nil, fmt.Errorf("%d dims given for %d-d shape", len(dims), len(shape))
	}
	if n := sizeOf(shape); n != len(data) {
		return nil, fmt.Errorf("shape %v holds %d elements, got %d data values", shape, n, len(data))
	}
	dimSize := make(map[string]int, len(dims))
	for i, d := range dims {
		if d == "" {
			return nil, fmt.Errorf("dimension %d has no name", i)
		}
		if _, found := dimSize[d]; found {
			return nil, fmt.Errorf("duplicate dimension %q", d)
		}
		if shape[i] < 0 {
			return nil, fmt.Errorf("negative extent for dimension %q", d)
		}
		dimSize[d] = shape[i]
	}
	seen := make(map[string]struct{}, len(coords))
	normalized := make([]Coord, len(coords))
	for i, c := range coords {
		if c.Name == "" {
			return nil, fmt.Errorf("coordinate %d has no name", i)
		}
		if _, found := seen[c.Name]; found {
			return nil, fmt.Errorf("duplicate coordinate %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.IsScalar() {
			if len(c.Values) != 1 {
				return nil, fmt.Errorf("scalar coordinate %q must have 1 value, got %d", c.Name, len(c.Values))
			}
		} else {
			size, found := dimSize[c.Dim]
			if !found {
				return nil, fmt.Errorf("coordinate %q is on unknown dimension %q", c.Name, c.Dim)
			}
			if len(c.Values) != size {
				return nil, fmt.Errorf("coordinate %q has %d values for dimension %q of size %d",
					c.Name, len(c.Values), c.Dim, size)
			}
		}
		if _, isDim := dimSize[c.Name]; isDim && c.Dim != c.Name {
			return nil, fmt.Errorf("coordinate %q is named after a dimension it is not on", c.Name)
		}
		values, err := NormalizeAll(c.Values)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %v", c.Name, err)
		}
		normalized[i] = Coord{c.Name, c.Dim, values}
	}
	return &Array{
		dims:   append([]string(nil), dims...),
		shape:  append([]int(nil), shape...),
		data:   append([]float64(nil), data...),
		coords: normalized,
	}, nil
}

// FromCoords builds an array from parts without validating or copying them.  Only use
// it with parts already known to be consistent and normalized.
func FromCoords(name string, dims []string, shape []int, data []float64, coords []Coord, attrs map[string]interface{}) *Array {
	return &Array{Name: name, dims: dims, shape: shape, data: data, coords: coords, attrs: attrs}
}

// Scalar returns a 0-d array holding v.
func Scalar(v float64) *Array {
	return &Array{data: []float64{v}}
}

func (a *Array) Dims() []string {
	return append([]string(nil), a.dims...)
}

func (a *Array) Shape() []int {
	return append([]int(nil), a.shape...)
}

func (a *Array) NDim() int {
	return len(a.dims)
}

func (a *Array) Size() int {
	return len(a.data)
}

// Data returns the row-major data.  The slice must not be modified.
func (a *Array) Data() []float64 {
	return a.data
}

// Attrs returns a copy of the array attributes.
func (a *Array) Attrs() map[string]interface{} {
	out := make(map[string]interface{}, len(a.attrs))
	for k, v := range a.attrs {
		out[k] = v
	}
	return out
}

// WithAttrs returns a shallow copy of the array carrying the given attributes.
func (a *Array) WithAttrs(attrs map[string]interface{}) *Array {
	dup := *a
	dup.attrs = attrs
	return &dup
}

// WithName returns a shallow copy of the array with a new name.
func (a *Array) WithName(name string) *Array {
	dup := *a
	dup.Name = name
	return &dup
}

// Axis returns the position of a dimension, or -1.
func (a *Array) Axis(dim string) int {
	for i, d := range a.dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// DimSize returns the extent of a dimension, or -1 if absent.
func (a *Array) DimSize(dim string) int {
	if i := a.Axis(dim); i >= 0 {
		return a.shape[i]
	}
	return -1
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

func (a *Array) offset(idx []int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, fmt.Errorf("%d indices given for %d-d array", len(idx), len(a.shape))
	}
	st := strides(a.shape)
	var off int
	for i, x := range idx {
		if x < 0 || x >= a.shape[i] {
			return 0, fmt.Errorf("index %d out of range for dimension %q of size %d", x, a.dims[i], a.shape[i])
		}
		off += x * st[i]
	}
	return off, nil
}

// At returns the element at the given index, one position per dimension.
func (a *Array) At(idx ...int) (float64, error) {
	off, err := a.offset(idx)
	if err != nil {
		return math.NaN(), err
	}
	return a.data[off], nil
}

// Coords returns copies of all coordinates in declaration order.
func (a *Array) Coords() []Coord {
	out := make([]Coord, len(a.coords))
	for i, c := range a.coords {
		out[i] = c.clone()
	}
	return out
}

// Coord returns the named coordinate.
func (a *Array) Coord(name string) (Coord, bool) {
	for _, c := range a.coords {
		if c.Name == name {
			return c.clone(), true
		}
	}
	return Coord{}, false
}

// HasCoord returns true if a coordinate of that name exists.
func (a *Array) HasCoord(name string) bool {
	for _, c := range a.coords {
		if c.Name == name {
			return true
		}
	}
	return false
}

// CoordNames returns coordinate names in declaration order.
func (a *Array) CoordNames() []string {
	names := make([]string, len(a.coords))
	for i, c := range a.coords {
		names[i] = c.Name
	}
	return names
}

// CoordsOn returns the coordinates bound to a dimension in declaration order.
func (a *Array) CoordsOn(dim string) []Coord {
	var out []Coord
	for _, c := range a.coords {
		if c.Dim == dim {
			out = append(out, c.clone())
		}
	}
	return out
}

// ScalarCoords returns the coordinates not bound to any dimension.
func (a *Array) ScalarCoords() []Coord {
	return a.CoordsOn("")
}

// WithCoord returns an array with the coordinate added, or replaced in place if one
// of that name exists.
func (a *Array) WithCoord(c Coord) (*Array, error) {
	coords := make([]Coord, 0, len(a.coords)+1)
	replaced := false
	for _, old := range a.coords {
		if old.Name == c.Name {
			coords = append(coords, c)
			replaced = true
		} else {
			coords = append(coords, old)
		}
	}
	if !replaced {
		coords = append(coords, c)
	}
	out, err := New(a.data, a.dims, a.shape, coords...)
	if err != nil {
		return nil, err
	}
	out.Name = a.Name
	out.attrs = a.attrs
	return out, nil
}

// DropCoords returns an array without the named coordinates.  Unknown names are ignored.
func (a *Array) DropCoords(names ...string) *Array {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	coords := make([]Coord, 0, len(a.coords))
	for _, c := range a.coords {
		if !drop[c.Name] {
			coords = append(coords, c)
		}
	}
	return FromCoords(a.Name, a.dims, a.shape, a.data, coords, a.attrs)
}

// Map returns an array with fn applied to every element.
func (a *Array) Map(fn func(float64) float64) *Array {
	data := make([]float64, len(a.data))
	for i, v := range a.data {
		data[i] = fn(v)
	}
	return FromCoords(a.Name, a.dims, a.shape, data, a.coords, a.attrs)
}
