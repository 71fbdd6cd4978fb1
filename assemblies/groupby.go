package assemblies

import (
	"fmt"
	"math"
	"sort"

	"github.com/dapello/brainio/core"
	"github.com/dapello/brainio/ndarray"
)

// ApplyFunc transforms the sub-assembly of one group.
type ApplyFunc func(*Assembly) (*Assembly, error)

// GroupBy partitions an assembly by the values of one or more coordinates.  Groups
// are the cross product of the distinct keys found on each involved dimension, in
// dimension order with the last dimension varying fastest.  Keys on a dimension are
// sorted.
type GroupBy struct {
	src   *Assembly
	names []string

	// Involved dimensions in input order.  Key names per dimension follow coordinate
	// declaration order.
	dims       []string
	keyNames   map[string][]string
	positional map[string]bool
	keys       map[string][][]interface{}
	positions  map[string][][]int
}

// MultiGroupBy groups by the named coordinates.  A name may be a level, a 1-D
// coordinate, or a dimension.  A dimension with levels is grouped by all of its
// levels; a dimension without coordinates is grouped by position.
func (a *Assembly) MultiGroupBy(names ...string) (*GroupBy, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("groupby needs at least one coordinate name")
	}
	g := &GroupBy{
		src:        a,
		names:      append([]string(nil), names...),
		keyNames:   make(map[string][]string),
		positional: make(map[string]bool),
		keys:       make(map[string][][]interface{}),
		positions:  make(map[string][][]int),
	}
	byDim := make(map[string]map[string]bool)
	add := func(dim, name string) {
		if byDim[dim] == nil {
			byDim[dim] = make(map[string]bool)
		}
		byDim[dim][name] = true
	}
	for _, name := range names {
		if levels := a.levels[name]; len(levels) > 0 {
			for _, level := range levels {
				add(name, level)
			}
			continue
		}
		if c, found := a.arr.Coord(name); found {
			if c.IsScalar() {
				return nil, fmt.Errorf("cannot group by scalar coordinate %q", name)
			}
			add(c.Dim, name)
			continue
		}
		if a.arr.Axis(name) >= 0 {
			g.positional[name] = true
			add(name, name)
			continue
		}
		return nil, &core.NotFoundError{Kind: "coordinate", Identifier: name}
	}
	order := a.arr.CoordNames()
	for _, dim := range a.arr.Dims() {
		requested, found := byDim[dim]
		if !found {
			continue
		}
		g.dims = append(g.dims, dim)
		if g.positional[dim] {
			g.keyNames[dim] = []string{dim}
		} else {
			for _, name := range order {
				if requested[name] {
					g.keyNames[dim] = append(g.keyNames[dim], name)
				}
			}
		}
		g.partition(dim)
	}
	return g, nil
}

// partition finds the distinct keys along dim and the positions holding each.
func (g *GroupBy) partition(dim string) {
	var tuples [][]interface{}
	if g.positional[dim] {
		size := g.src.arr.DimSize(dim)
		tuples = make([][]interface{}, size)
		for i := range tuples {
			tuples[i] = []interface{}{int64(i)}
		}
	} else {
		tuples = g.src.tuples(dim, g.keyNames[dim])
	}
	order := make([]int, len(tuples))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return ndarray.CompareTuples(tuples[order[i]], tuples[order[j]]) < 0
	})
	var keys [][]interface{}
	var positions [][]int
	for _, i := range order {
		last := len(keys) - 1
		if last >= 0 && ndarray.CompareTuples(keys[last], tuples[i]) == 0 {
			positions[last] = append(positions[last], i)
			continue
		}
		keys = append(keys, tuples[i])
		positions = append(positions, []int{i})
	}
	g.keys[dim] = keys
	g.positions[dim] = positions
}

// Len returns the number of groups.
func (g *GroupBy) Len() int {
	n := 1
	for _, dim := range g.dims {
		n *= len(g.keys[dim])
	}
	return n
}

// KeyNames returns the coordinate names making up a group key, dimension by dimension.
func (g *GroupBy) KeyNames() []string {
	var out []string
	for _, dim := range g.dims {
		out = append(out, g.keyNames[dim]...)
	}
	return out
}

// split returns the per-dimension key index of group i.
func (g *GroupBy) split(i int) []int {
	ks := make([]int, len(g.dims))
	for j := len(g.dims) - 1; j >= 0; j-- {
		n := len(g.keys[g.dims[j]])
		ks[j] = i % n
		i /= n
	}
	return ks
}

// Key returns the key of group i, ordered like KeyNames.
func (g *GroupBy) Key(i int) []interface{} {
	var out []interface{}
	for j, k := range g.split(i) {
		out = append(out, g.keys[g.dims[j]][k]...)
	}
	return out
}

// Keys returns the key of every group in group order.
func (g *GroupBy) Keys() [][]interface{} {
	out := make([][]interface{}, g.Len())
	for i := range out {
		out[i] = g.Key(i)
	}
	return out
}

func (g *GroupBy) selection(ks []int) map[string][]int {
	sel := make(map[string][]int, len(g.dims))
	for j, dim := range g.dims {
		sel[dim] = g.positions[dim][ks[j]]
	}
	return sel
}

// Group returns the sub-assembly of group i.  Every dimension is kept.
func (g *GroupBy) Group(i int) (*Assembly, error) {
	if i < 0 || i >= g.Len() {
		return nil, fmt.Errorf("group %d out of range, have %d groups", i, g.Len())
	}
	return g.src.IselDims(g.selection(g.split(i)))
}

// Apply runs fn on every group and reassembles the results.  A grouped dimension the
// results no longer span holds one entry per distinct key.  When grouping by a single
// coordinate that is not a dimension, such a dimension takes the coordinate's name.
func (g *GroupBy) Apply(fn ApplyFunc) (*Assembly, error) {
	return g.combine(fn, true)
}

// Reduce summarizes each group over the named dimensions, or entirely if none are named.
func (g *GroupBy) Reduce(fn ndarray.ReduceFunc, dims ...string) (*Assembly, error) {
	return g.Apply(func(group *Assembly) (*Assembly, error) {
		return group.Reduce(fn, dims...)
	})
}

func (g *GroupBy) Mean(dims ...string) (*Assembly, error) {
	return g.Reduce(ndarray.Mean, dims...)
}

func (g *GroupBy) Sum(dims ...string) (*Assembly, error) {
	return g.Reduce(ndarray.Sum, dims...)
}

func (g *GroupBy) Std(dims ...string) (*Assembly, error) {
	return g.Reduce(ndarray.Std, dims...)
}

func (g *GroupBy) Min(dims ...string) (*Assembly, error) {
	return g.Reduce(ndarray.Min, dims...)
}

func (g *GroupBy) Max(dims ...string) (*Assembly, error) {
	return g.Reduce(ndarray.Max, dims...)
}

// MultiDimApply groups by names, runs fn on each group and reassembles the results
// with the input's dimension order, whatever the order of names.  Coordinates not
// involved in grouping, scalar ones included, are carried over.
func (a *Assembly) MultiDimApply(names []string, fn ApplyFunc) (*Assembly, error) {
	g, err := a.MultiGroupBy(names...)
	if err != nil {
		return nil, err
	}
	return g.combine(fn, false)
}

// What happens to an input dimension across the group results.
type dimFate int

const (
	fateUnknown dimFate = iota
	fateKept
	fateReduced
	fateDropped
)

func (f dimFate) String() string {
	switch f {
	case fateKept:
		return "kept"
	case fateReduced:
		return "reduced"
	case fateDropped:
		return "dropped"
	}
	return "unknown"
}

// fateOf classifies dim in one group result.  fateUnknown means the result cannot tell.
func (g *GroupBy) fateOf(r *ndarray.Array, dim string, count int, involved bool) (dimFate, error) {
	size := r.DimSize(dim)
	if !involved {
		switch {
		case size < 0:
			return fateDropped, nil
		case size == g.src.arr.DimSize(dim):
			return fateKept, nil
		}
		return fateUnknown, fmt.Errorf("result changed extent of ungrouped dimension %q from %d to %d",
			dim, g.src.arr.DimSize(dim), size)
	}
	switch {
	case size < 0:
		return fateReduced, nil
	case size == 1 && count == 1:
		return fateUnknown, nil
	case size == count:
		return fateKept, nil
	case size == 1:
		return fateReduced, nil
	}
	return fateUnknown, fmt.Errorf("result has %d entries along grouped dimension %q for a group of %d", size, dim, count)
}

func (g *GroupBy) combine(fn ApplyFunc, rename bool) (*Assembly, error) {
	if fn == nil {
		return nil, fmt.Errorf("no function to apply")
	}
	src := g.src.arr
	inDims := src.Dims()
	involved := make(map[string]int, len(g.dims))
	for j, dim := range g.dims {
		involved[dim] = j
	}

	n := g.Len()
	results := make([]*ndarray.Array, n)
	fates := make(map[string]dimFate, len(inDims))
	for i := 0; i < n; i++ {
		ks := g.split(i)
		group, err := g.src.IselDims(g.selection(ks))
		if err != nil {
			return nil, err
		}
		out, err := fn(group)
		if err != nil {
			return nil, fmt.Errorf("group %v: %w", g.Key(i), err)
		}
		if out == nil {
			return nil, fmt.Errorf("group %v: function returned no assembly", g.Key(i))
		}
		r := out.arr
		var order []string
		for _, dim := range r.Dims() {
			if src.Axis(dim) < 0 {
				return nil, fmt.Errorf("group %v: result introduces dimension %q", g.Key(i), dim)
			}
		}
		for _, dim := range inDims {
			if r.Axis(dim) >= 0 {
				order = append(order, dim)
			}
			count := 0
			j, isInvolved := involved[dim]
			if isInvolved {
				count = len(g.positions[dim][ks[j]])
			}
			fate, err := g.fateOf(r, dim, count, isInvolved)
			if err != nil {
				return nil, fmt.Errorf("group %v: %w", g.Key(i), err)
			}
			if fate == fateUnknown {
				continue
			}
			if prev := fates[dim]; prev != fateUnknown && prev != fate {
				return nil, fmt.Errorf("dimension %q is %s in some groups and %s in others", dim, prev, fate)
			}
			fates[dim] = fate
		}
		if r, err = r.Transpose(order...); err != nil {
			return nil, err
		}
		results[i] = r
	}
	for _, dim := range g.dims {
		if fates[dim] == fateUnknown {
			fates[dim] = fateKept
		}
	}

	// Output dimensions keep input order.
	newName := make(map[string]string)
	if rename && len(g.names) == 1 && len(g.dims) == 1 {
		dim := g.dims[0]
		if name := g.names[0]; name != dim && fates[dim] == fateReduced && len(g.keyNames[dim]) == 1 {
			newName[dim] = name
		}
	}
	var outDims []string
	var outShape []int
	outAxis := make(map[string]int)
	for _, dim := range inDims {
		var size int
		switch fates[dim] {
		case fateDropped:
			continue
		case fateReduced:
			size = len(g.keys[dim])
		default:
			size = src.DimSize(dim)
		}
		outAxis[dim] = len(outDims)
		name := dim
		if renamed, found := newName[dim]; found {
			name = renamed
		}
		outDims = append(outDims, name)
		outShape = append(outShape, size)
	}

	size := 1
	for _, s := range outShape {
		size *= s
	}
	data := make([]float64, size)
	for i := range data {
		data[i] = math.NaN()
	}
	outStrides := make([]int, len(outShape))
	stride := 1
	for i := len(outShape) - 1; i >= 0; i-- {
		outStrides[i] = stride
		stride *= outShape[i]
	}
	for i, r := range results {
		ks := g.split(i)
		rDims := r.Dims()
		rShape := r.Shape()
		pos := make([]int, len(rDims))
		base := 0
		for dim, ax := range outAxis {
			if fates[dim] == fateReduced {
				base += ks[involved[dim]] * outStrides[ax]
			}
		}
		for _, v := range r.Data() {
			off := base
			for k, dim := range rDims {
				if fates[dim] == fateReduced {
					continue
				}
				p := pos[k]
				if j, isInvolved := involved[dim]; isInvolved {
					p = g.positions[dim][ks[j]][p]
				}
				off += p * outStrides[outAxis[dim]]
			}
			data[off] = v
			for k := len(pos) - 1; k >= 0; k-- {
				pos[k]++
				if pos[k] < rShape[k] {
					break
				}
				pos[k] = 0
			}
		}
	}

	var coords []ndarray.Coord
	for _, c := range src.Coords() {
		if c.IsScalar() || fates[c.Dim] == fateKept {
			coords = append(coords, c)
		}
	}
	levels := make(map[string][]string)
	for _, dim := range inDims {
		switch fates[dim] {
		case fateKept:
			if names := g.src.levels[dim]; len(names) > 0 {
				levels[dim] = append([]string(nil), names...)
			}
		case fateReduced:
			outDim := outDims[outAxis[dim]]
			for j, name := range g.keyNames[dim] {
				values := make([]interface{}, len(g.keys[dim]))
				for k, key := range g.keys[dim] {
					values[k] = key[j]
				}
				coords = append(coords, ndarray.Coord{Name: name, Dim: outDim, Values: values})
			}
			if names := g.keyNames[dim]; len(names) >= 2 {
				levels[outDim] = append([]string(nil), names...)
			}
		}
	}
	arr, err := ndarray.New(data, outDims, outShape, coords...)
	if err != nil {
		return nil, fmt.Errorf("reassembling groups: %w", err)
	}
	arr = arr.WithName(src.Name).WithAttrs(src.Attrs())
	return newFast(arr, g.src.class, levels, g.src.stimulusSet), nil
}
