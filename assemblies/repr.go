package assemblies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dapello/brainio/ndarray"
)

const (
	reprValues = 6 // values shown per coordinate and for the data
)

func previewValues(values []interface{}) string {
	parts := make([]string, 0, reprValues+1)
	for i, v := range values {
		if i == reprValues {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, ndarray.FormatValue(v))
	}
	return strings.Join(parts, " ")
}

// String renders the class, dimensions, a data preview, every coordinate and every
// level.  Levels are listed under their dimension, marked with "-".
func (a *Assembly) String() string {
	var b strings.Builder
	dims := a.arr.Dims()
	shape := a.arr.Shape()
	extents := make([]string, len(dims))
	for i, d := range dims {
		extents[i] = fmt.Sprintf("%s: %d", d, shape[i])
	}
	name := ""
	if a.arr.Name != "" {
		name = fmt.Sprintf(" %q", a.arr.Name)
	}
	fmt.Fprintf(&b, "<brainio.%s%s (%s)>\n", a.class, name, strings.Join(extents, ", "))

	data := a.arr.Data()
	vals := make([]string, 0, reprValues+1)
	for i, v := range data {
		if i == reprValues {
			vals = append(vals, "...")
			break
		}
		vals = append(vals, ndarray.FormatValue(v))
	}
	fmt.Fprintf(&b, "array([%s])\n", strings.Join(vals, ", "))

	coords := a.arr.Coords()
	if len(coords) > 0 {
		b.WriteString("Coordinates:\n")
	}
	width := 0
	for _, c := range coords {
		if len(c.Name) > width {
			width = len(c.Name)
		}
	}
	for _, d := range dims {
		if width < len(d) {
			width = len(d)
		}
	}
	printed := make(map[string]bool, len(coords))
	line := func(marker string, c ndarray.Coord) {
		dimLabel := "()"
		if !c.IsScalar() {
			dimLabel = "(" + c.Dim + ")"
		}
		fmt.Fprintf(&b, "  %s %-*s %s %s %s\n", marker, width, c.Name, dimLabel, ndarray.DType(c.Values), previewValues(c.Values))
		printed[c.Name] = true
	}
	for _, d := range dims {
		if levels := a.levels[d]; len(levels) > 0 {
			fmt.Fprintf(&b, "  * %-*s (%s) MultiIndex\n", width, d, d)
			for _, name := range levels {
				c, _ := a.arr.Coord(name)
				line("-", c)
			}
			continue
		}
		if c, found := a.arr.Coord(d); found && c.Dim == d {
			line("*", c)
		}
	}
	for _, c := range coords {
		if !printed[c.Name] {
			line(" ", c)
		}
	}

	attrs := a.arr.Attrs()
	if len(attrs) > 0 {
		b.WriteString("Attributes:\n")
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "    %s: %v\n", k, attrs[k])
		}
	}
	return b.String()
}
