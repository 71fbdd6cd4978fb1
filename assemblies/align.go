package assemblies

import (
	"fmt"
	"strings"

	"github.com/dapello/brainio/ndarray"
)

// Join selects which index entries survive alignment.
type Join int

const (
	// JoinOuter keeps the keys of either assembly: a's in order, then b's new ones.
	JoinOuter Join = iota

	// JoinInner keeps a's keys that b also has.
	JoinInner
)

func (j Join) String() string {
	switch j {
	case JoinOuter:
		return "outer"
	case JoinInner:
		return "inner"
	}
	return fmt.Sprintf("join(%d)", int(j))
}

func tupleString(t []interface{}) string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = ndarray.FormatValue(v)
	}
	return strings.Join(parts, "\x1f")
}

// alignNames picks the coordinates keying dim in both assemblies.  Nil means dim is
// aligned by position.
func alignNames(a, b *Assembly, dim string) ([]string, error) {
	has := func(x *Assembly, names []string) bool {
		for _, name := range names {
			if c, found := x.arr.Coord(name); !found || c.Dim != dim {
				return false
			}
		}
		return true
	}
	if levels := a.levels[dim]; len(levels) > 0 {
		if !has(b, levels) {
			return nil, fmt.Errorf("cannot align %q: levels %v missing from other assembly", dim, levels)
		}
		return levels, nil
	}
	if c, found := a.arr.Coord(dim); found && c.Dim == dim {
		if !has(b, []string{dim}) {
			return nil, fmt.Errorf("cannot align %q: other assembly has no %q coordinate", dim, dim)
		}
		return []string{dim}, nil
	}
	ca, cb := a.arr.CoordsOn(dim), b.arr.CoordsOn(dim)
	if len(ca) == 1 && len(cb) == 1 && ca[0].Name == cb[0].Name {
		return []string{ca[0].Name}, nil
	}
	return nil, nil
}

func keyIndex(dim string, tuples [][]interface{}) (map[string]int, error) {
	index := make(map[string]int, len(tuples))
	for i, t := range tuples {
		k := tupleString(t)
		if _, found := index[k]; found {
			return nil, fmt.Errorf("cannot align %q: duplicate key %v", dim, t)
		}
		index[k] = i
	}
	return index, nil
}

// Align conforms a and b to a common index along every dimension they share.  Entries
// missing from one assembly are NaN.  Levels are kept, so both results remain
// selectable by any individual level.  1-D coordinates on an aligned dimension survive
// only if both assemblies carry them.
func Align(join Join, a, b *Assembly) (*Assembly, *Assembly, error) {
	for _, dim := range a.arr.Dims() {
		if b.arr.Axis(dim) < 0 {
			continue
		}
		names, err := alignNames(a, b, dim)
		if err != nil {
			return nil, nil, err
		}
		if names == nil {
			if a.arr.DimSize(dim) != b.arr.DimSize(dim) {
				return nil, nil, fmt.Errorf("cannot align unindexed dimension %q of sizes %d and %d",
					dim, a.arr.DimSize(dim), b.arr.DimSize(dim))
			}
			continue
		}
		if a, b, err = alignDim(join, a, b, dim, names); err != nil {
			return nil, nil, err
		}
	}
	return a, b, nil
}

func alignDim(join Join, a, b *Assembly, dim string, names []string) (*Assembly, *Assembly, error) {
	ta, tb := a.tuples(dim, names), b.tuples(dim, names)
	ia, err := keyIndex(dim, ta)
	if err != nil {
		return nil, nil, err
	}
	ib, err := keyIndex(dim, tb)
	if err != nil {
		return nil, nil, err
	}

	// Result position i comes from posA[i] in a and posB[i] in b, -1 if absent.
	var posA, posB []int
	for i, t := range ta {
		j, inB := ib[tupleString(t)]
		switch {
		case inB:
			posA, posB = append(posA, i), append(posB, j)
		case join == JoinOuter:
			posA, posB = append(posA, i), append(posB, -1)
		}
	}
	if join == JoinOuter {
		for j, t := range tb {
			if _, inA := ia[tupleString(t)]; !inA {
				posA, posB = append(posA, -1), append(posB, j)
			}
		}
	}

	var coords []ndarray.Coord
	for _, ca := range a.arr.CoordsOn(dim) {
		cb, found := b.arr.Coord(ca.Name)
		if !found || cb.Dim != dim {
			continue
		}
		values := make([]interface{}, len(posA))
		for i := range values {
			if posA[i] >= 0 {
				values[i] = ca.Values[posA[i]]
			} else {
				values[i] = cb.Values[posB[i]]
			}
		}
		coords = append(coords, ndarray.Coord{Name: ca.Name, Dim: dim, Values: values})
	}

	arrA, err := a.arr.Reindex(dim, posA, coords)
	if err != nil {
		return nil, nil, err
	}
	arrB, err := b.arr.Reindex(dim, posB, coords)
	if err != nil {
		return nil, nil, err
	}
	return a.derive(arrA), b.derive(arrB), nil
}
