package ndarray

import (
	"fmt"
	"math"
)

// gather builds data for an array whose axis i holds source positions idx[i].
// A negative source position yields NaN.
func (a *Array) gather(idx [][]int) []float64 {
	outShape := make([]int, len(idx))
	for i, x := range idx {
		outShape[i] = len(x)
	}
	n := sizeOf(outShape)
	data := make([]float64, n)
	if n == 0 {
		return data
	}
	st := strides(a.shape)
	pos := make([]int, len(idx))
	for o := 0; o < n; o++ {
		off := 0
		missing := false
		for i, p := range pos {
			s := idx[i][p]
			if s < 0 {
				missing = true
				break
			}
			off += s * st[i]
		}
		if missing {
			data[o] = math.NaN()
		} else {
			data[o] = a.data[off]
		}
		for i := len(pos) - 1; i >= 0; i-- {
			pos[i]++
			if pos[i] < outShape[i] {
				break
			}
			pos[i] = 0
		}
	}
	return data
}

func pick(values []interface{}, idx []int) []interface{} {
	out := make([]interface{}, len(idx))
	for i, x := range idx {
		out[i] = values[x]
	}
	return out
}

func allPositions(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Isel selects positions along dimensions.  Dimensions not in sel are kept whole.
func (a *Array) Isel(sel map[string][]int) (*Array, error) {
	idx := make([][]int, len(a.dims))
	for i, d := range a.dims {
		positions, found := sel[d]
		if !found {
			idx[i] = allPositions(a.shape[i])
			continue
		}
		for _, p := range positions {
			if p < 0 || p >= a.shape[i] {
				return nil, fmt.Errorf("index %d out of range for dimension %q of size %d", p, d, a.shape[i])
			}
		}
		idx[i] = positions
	}
	for d := range sel {
		if a.Axis(d) < 0 {
			return nil, fmt.Errorf("no dimension %q in array with dims %v", d, a.dims)
		}
	}
	shape := make([]int, len(idx))
	for i, x := range idx {
		shape[i] = len(x)
	}
	coords := make([]Coord, len(a.coords))
	for i, c := range a.coords {
		if c.IsScalar() {
			coords[i] = c
			continue
		}
		coords[i] = Coord{c.Name, c.Dim, pick(c.Values, idx[a.Axis(c.Dim)])}
	}
	return FromCoords(a.Name, append([]string(nil), a.dims...), shape, a.gather(idx), coords, a.attrs), nil
}

// Squeeze removes dimensions of size 1, all of them if none are named.  Coordinates
// on a removed dimension become scalar coordinates.
func (a *Array) Squeeze(dims ...string) (*Array, error) {
	remove := make(map[string]bool)
	if len(dims) == 0 {
		for i, d := range a.dims {
			if a.shape[i] == 1 {
				remove[d] = true
			}
		}
	}
	for _, d := range dims {
		size := a.DimSize(d)
		if size < 0 {
			return nil, fmt.Errorf("no dimension %q to squeeze", d)
		}
		if size != 1 {
			return nil, fmt.Errorf("cannot squeeze dimension %q of size %d", d, size)
		}
		remove[d] = true
	}
	var newDims []string
	var newShape []int
	for i, d := range a.dims {
		if !remove[d] {
			newDims = append(newDims, d)
			newShape = append(newShape, a.shape[i])
		}
	}
	coords := make([]Coord, len(a.coords))
	for i, c := range a.coords {
		if remove[c.Dim] {
			coords[i] = Coord{c.Name, "", c.Values}
		} else {
			coords[i] = c
		}
	}
	return FromCoords(a.Name, newDims, newShape, a.data, coords, a.attrs), nil
}

// IselScalar selects a single element, returning a 0-d array whose coordinates are
// all scalar.
func (a *Array) IselScalar(idx ...int) (*Array, error) {
	if len(idx) != len(a.dims) {
		return nil, fmt.Errorf("%d indices given for %d-d array", len(idx), len(a.dims))
	}
	sel := make(map[string][]int, len(idx))
	for i, d := range a.dims {
		sel[d] = []int{idx[i]}
	}
	out, err := a.Isel(sel)
	if err != nil {
		return nil, err
	}
	return out.Squeeze()
}

// Transpose reorders dimensions.  With no dims given, the order is reversed.
func (a *Array) Transpose(dims ...string) (*Array, error) {
	if len(dims) == 0 {
		for i := len(a.dims) - 1; i >= 0; i-- {
			dims = append(dims, a.dims[i])
		}
	}
	if len(dims) != len(a.dims) {
		return nil, fmt.Errorf("transpose needs all of %v, got %v", a.dims, dims)
	}
	perm := make([]int, len(dims))
	used := make(map[string]bool, len(dims))
	for i, d := range dims {
		ax := a.Axis(d)
		if ax < 0 || used[d] {
			return nil, fmt.Errorf("transpose needs all of %v, got %v", a.dims, dims)
		}
		used[d] = true
		perm[i] = ax
	}
	shape := make([]int, len(dims))
	for i, ax := range perm {
		shape[i] = a.shape[ax]
	}
	st := strides(a.shape)
	n := len(a.data)
	data := make([]float64, n)
	pos := make([]int, len(dims))
	for o := 0; o < n; o++ {
		off := 0
		for i, p := range pos {
			off += p * st[perm[i]]
		}
		data[o] = a.data[off]
		for i := len(pos) - 1; i >= 0; i-- {
			pos[i]++
			if pos[i] < shape[i] {
				break
			}
			pos[i] = 0
		}
	}
	return FromCoords(a.Name, append([]string(nil), dims...), shape, data, a.coords, a.attrs), nil
}

// Reindex rearranges one dimension so output position i holds source position idx[i],
// or NaN where idx[i] is negative.  The coordinates on dim are replaced by coords.
func (a *Array) Reindex(dim string, idx []int, coords []Coord) (*Array, error) {
	ax := a.Axis(dim)
	if ax < 0 {
		return nil, fmt.Errorf("no dimension %q to reindex", dim)
	}
	for _, p := range idx {
		if p >= a.shape[ax] {
			return nil, fmt.Errorf("index %d out of range for dimension %q of size %d", p, dim, a.shape[ax])
		}
	}
	all := make([][]int, len(a.dims))
	shape := make([]int, len(a.dims))
	for i := range a.dims {
		if i == ax {
			all[i] = idx
		} else {
			all[i] = allPositions(a.shape[i])
		}
		shape[i] = len(all[i])
	}
	var out []Coord
	for _, c := range a.coords {
		if c.Dim != dim {
			out = append(out, c)
		}
	}
	for _, c := range coords {
		if c.Dim != dim || len(c.Values) != len(idx) {
			return nil, fmt.Errorf("replacement coordinate %q must have %d values on %q", c.Name, len(idx), dim)
		}
		out = append(out, c)
	}
	return FromCoords(a.Name, append([]string(nil), a.dims...), shape, a.gather(all), out, a.attrs), nil
}

// ReduceFunc summarizes a set of values into one.
type ReduceFunc func([]float64) float64

// Reduce applies fn along the named dimensions, all of them if none are named.
// Coordinates on reduced dimensions are dropped.
func (a *Array) Reduce(fn ReduceFunc, dims ...string) (*Array, error) {
	reduce := make(map[int]bool)
	if len(dims) == 0 {
		for i := range a.dims {
			reduce[i] = true
		}
	}
	for _, d := range dims {
		ax := a.Axis(d)
		if ax < 0 {
			return nil, fmt.Errorf("cannot reduce over %q: not a dimension of %v", d, a.dims)
		}
		reduce[ax] = true
	}
	var outDims []string
	var outShape []int
	outAxis := make([]int, len(a.dims))
	for i, d := range a.dims {
		if reduce[i] {
			outAxis[i] = -1
			continue
		}
		outAxis[i] = len(outDims)
		outDims = append(outDims, d)
		outShape = append(outShape, a.shape[i])
	}
	outStrides := strides(outShape)
	buckets := make([][]float64, sizeOf(outShape))
	pos := make([]int, len(a.dims))
	for _, v := range a.data {
		off := 0
		for i, p := range pos {
			if outAxis[i] >= 0 {
				off += p * outStrides[outAxis[i]]
			}
		}
		buckets[off] = append(buckets[off], v)
		for i := len(pos) - 1; i >= 0; i-- {
			pos[i]++
			if pos[i] < a.shape[i] {
				break
			}
			pos[i] = 0
		}
	}
	data := make([]float64, len(buckets))
	for i, b := range buckets {
		data[i] = fn(b)
	}
	var coords []Coord
	for _, c := range a.coords {
		if c.IsScalar() || !reduce[a.Axis(c.Dim)] {
			coords = append(coords, c)
		}
	}
	return FromCoords(a.Name, outDims, outShape, data, coords, a.attrs), nil
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Mean is the average of non-NaN values, NaN if there are none.
func Mean(values []float64) float64 {
	values = finite(values)
	if len(values) == 0 {
		return math.NaN()
	}
	return Sum(values) / float64(len(values))
}

// Sum adds non-NaN values.
func Sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		if !math.IsNaN(v) {
			s += v
		}
	}
	return s
}

// Min is the smallest non-NaN value, NaN if there are none.
func Min(values []float64) float64 {
	values = finite(values)
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		m = math.Min(m, v)
	}
	return m
}

// Max is the largest non-NaN value, NaN if there are none.
func Max(values []float64) float64 {
	values = finite(values)
	if len(values) == 0 {
		return math.NaN()
	}
	m := values[0]
	for _, v := range values[1:] {
		m = math.Max(m, v)
	}
	return m
}

// Std is the population standard deviation of non-NaN values.
func Std(values []float64) float64 {
	values = finite(values)
	if len(values) == 0 {
		return math.NaN()
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(values)))
}

// Combine applies fn elementwise to a and b, broadcasting b over dimensions it lacks.
// Every dimension of b must be in a with the same extent.  The result carries a's
// coordinates.
func Combine(a, b *Array, fn func(x, y float64) float64) (*Array, error) {
	bAxes := make([]int, len(b.dims))
	for j, d := range b.dims {
		ax := a.Axis(d)
		if ax < 0 {
			return nil, fmt.Errorf("cannot broadcast dimension %q onto %v", d, a.dims)
		}
		if a.shape[ax] != b.shape[j] {
			return nil, fmt.Errorf("dimension %q has size %d and %d", d, a.shape[ax], b.shape[j])
		}
		bAxes[j] = ax
	}
	bStrides := strides(b.shape)
	data := make([]float64, len(a.data))
	pos := make([]int, len(a.dims))
	for o, x := range a.data {
		off := 0
		for j, ax := range bAxes {
			off += pos[ax] * bStrides[j]
		}
		data[o] = fn(x, b.data[off])
		for i := len(pos) - 1; i >= 0; i-- {
			pos[i]++
			if pos[i] < a.shape[i] {
				break
			}
			pos[i] = 0
		}
	}
	return FromCoords(a.Name, a.dims, a.shape, data, a.coords, a.attrs), nil
}

// Equal returns true if both arrays have the same dimensions, data and coordinates.
// NaNs compare equal.  Names, attributes and coordinate order are ignored.
func Equal(a, b *Array) bool {
	if len(a.dims) != len(b.dims) || len(a.data) != len(b.data) || len(a.coords) != len(b.coords) {
		return false
	}
	for i := range a.dims {
		if a.dims[i] != b.dims[i] || a.shape[i] != b.shape[i] {
			return false
		}
	}
	for i, x := range a.data {
		y := b.data[i]
		if x != y && !(math.IsNaN(x) && math.IsNaN(y)) {
			return false
		}
	}
	for _, ca := range a.coords {
		cb, found := b.Coord(ca.Name)
		if !found || ca.Dim != cb.Dim || len(ca.Values) != len(cb.Values) {
			return false
		}
		for i := range ca.Values {
			if !ValuesEqual(ca.Values[i], cb.Values[i]) {
				return false
			}
		}
	}
	return true
}
