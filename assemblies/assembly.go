/*
Package assemblies implements the labeled containers of recorded data.

An Assembly wraps an ndarray.Array and adds levels: several 1-D coordinates on one
dimension that together form its composite index.  Levels keep their declaration
order, survive selection, alignment and grouping, and are addressable individually.

	assy, _ := assemblies.NewDataAssembly(data, []string{"a", "b"}, []int{6, 3},
		ndarray.Coord{Name: "up", Dim: "a", Values: ups},
		ndarray.Coord{Name: "down", Dim: "a", Values: downs},
		ndarray.Coord{Name: "sideways", Dim: "b", Values: sides})
	assy.LevelsOf("a")  // [up down]
	grouped, _ := assy.MultiGroupBy("up", "down")
	means, _ := grouped.Mean("a")
*/
package assemblies

import (
	"fmt"

	"github.com/dapello/brainio/core"
	"github.com/dapello/brainio/ndarray"
	"github.com/dapello/brainio/stimuli"
)

// Assembly classes found in catalogs.
const (
	ClassDataAssembly            = "DataAssembly"
	ClassNeuronRecordingAssembly = "NeuronRecordingAssembly"
	ClassBehavioralAssembly      = "BehavioralAssembly"
	ClassPropertyAssembly        = "PropertyAssembly"
	ClassMetaDataAssembly        = "MetaDataAssembly"
)

// Assembly is a labeled array with per-dimension levels.  Operations return new
// assemblies of the same class; the receiver is never modified.
type Assembly struct {
	arr    *ndarray.Array
	class  string
	levels map[string][]string

	stimulusSet *stimuli.StimulusSet
}

// GatherLevels returns the levels of every dimension that carries two or more 1-D
// coordinates besides one named after the dimension itself.  Levels are in
// coordinate declaration order.
func GatherLevels(arr *ndarray.Array) map[string][]string {
	levels := make(map[string][]string)
	for _, dim := range arr.Dims() {
		var names []string
		for _, c := range arr.CoordsOn(dim) {
			if c.Name != dim {
				names = append(names, c.Name)
			}
		}
		if len(names) >= 2 {
			levels[dim] = names
		}
	}
	return levels
}

// New wraps an array, gathering its levels.  An empty class means DataAssembly.
func New(class string, arr *ndarray.Array) *Assembly {
	if class == "" {
		class = ClassDataAssembly
	}
	return newFast(arr, class, GatherLevels(arr), nil)
}

// NewDataAssembly validates the parts of an array and wraps it as a DataAssembly.
func NewDataAssembly(data []float64, dims []string, shape []int, coords ...ndarray.Coord) (*Assembly, error) {
	arr, err := ndarray.New(data, dims, shape, coords...)
	if err != nil {
		return nil, err
	}
	return New(ClassDataAssembly, arr), nil
}

// newFast assembles an Assembly from parts known to be consistent.  No validation.
func newFast(arr *ndarray.Array, class string, levels map[string][]string, stimulusSet *stimuli.StimulusSet) *Assembly {
	if levels == nil {
		levels = map[string][]string{}
	}
	return &Assembly{arr: arr, class: class, levels: levels, stimulusSet: stimulusSet}
}

// derive wraps a new array computed from a, keeping the levels that still apply.
func (a *Assembly) derive(arr *ndarray.Array) *Assembly {
	return newFast(arr, a.class, pruneLevels(arr, a.levels), a.stimulusSet)
}

// pruneLevels drops levels whose dimension or coordinate is gone.  A dimension left
// with fewer than two levels has none.
func pruneLevels(arr *ndarray.Array, levels map[string][]string) map[string][]string {
	out := make(map[string][]string, len(levels))
	for dim, names := range levels {
		if arr.Axis(dim) < 0 {
			continue
		}
		var kept []string
		for _, name := range names {
			if c, found := arr.Coord(name); found && c.Dim == dim {
				kept = append(kept, name)
			}
		}
		if len(kept) >= 2 {
			out[dim] = kept
		}
	}
	return out
}

// Array returns the underlying array.
func (a *Assembly) Array() *ndarray.Array {
	return a.arr
}

func (a *Assembly) Class() string {
	return a.class
}

// WithClass returns the assembly relabeled with another class.
func (a *Assembly) WithClass(class string) *Assembly {
	return newFast(a.arr, class, a.levels, a.stimulusSet)
}

func (a *Assembly) Name() string {
	return a.arr.Name
}

func (a *Assembly) Dims() []string {
	return a.arr.Dims()
}

func (a *Assembly) Shape() []int {
	return a.arr.Shape()
}

func (a *Assembly) Size() int {
	return a.arr.Size()
}

// Values returns the row-major data.  The slice must not be modified.
func (a *Assembly) Values() []float64 {
	return a.arr.Data()
}

func (a *Assembly) Attrs() map[string]interface{} {
	return a.arr.Attrs()
}

// WithAttrs returns the assembly carrying the given attributes.
func (a *Assembly) WithAttrs(attrs map[string]interface{}) *Assembly {
	return newFast(a.arr.WithAttrs(attrs), a.class, a.levels, a.stimulusSet)
}

// StimulusSet returns the attached stimulus set, or nil.
func (a *Assembly) StimulusSet() *stimuli.StimulusSet {
	return a.stimulusSet
}

// SetStimulusSet attaches a stimulus set and returns the assembly.
func (a *Assembly) SetStimulusSet(s *stimuli.StimulusSet) *Assembly {
	return newFast(a.arr, a.class, a.levels, s)
}

// Levels returns the level names of all dimensions in dimension order.
func (a *Assembly) Levels() []string {
	var out []string
	for _, dim := range a.arr.Dims() {
		out = append(out, a.levels[dim]...)
	}
	return out
}

// LevelsOf returns the levels of one dimension, or nil.
func (a *Assembly) LevelsOf(dim string) []string {
	return append([]string(nil), a.levels[dim]...)
}

// IndexDims returns the dimensions that carry levels, in dimension order.
func (a *Assembly) IndexDims() []string {
	var out []string
	for _, dim := range a.arr.Dims() {
		if len(a.levels[dim]) > 0 {
			out = append(out, dim)
		}
	}
	return out
}

// levelDim returns the dimension a level belongs to, or "".
func (a *Assembly) levelDim(name string) string {
	for dim, names := range a.levels {
		for _, n := range names {
			if n == name {
				return dim
			}
		}
	}
	return ""
}

func copyLevels(levels map[string][]string) map[string][]string {
	out := make(map[string][]string, len(levels))
	for dim, names := range levels {
		out[dim] = append([]string(nil), names...)
	}
	return out
}

// ResetLevels removes the named levels from their dimensions' composite keys.  The
// coordinates and data are untouched.  A dimension left with one level has none.
func (a *Assembly) ResetLevels(names ...string) (*Assembly, error) {
	levels := copyLevels(a.levels)
	for _, name := range names {
		dim := a.levelDim(name)
		if dim == "" {
			return nil, &core.NotFoundError{Kind: "level", Identifier: name}
		}
		var kept []string
		for _, n := range levels[dim] {
			if n != name {
				kept = append(kept, n)
			}
		}
		levels[dim] = kept
	}
	for dim, kept := range levels {
		if len(kept) < 2 {
			delete(levels, dim)
		}
	}
	return newFast(a.arr, a.class, levels, a.stimulusSet), nil
}

// SetLevels declares the composite key of a dimension.  Every name must be a 1-D
// coordinate on dim.  With no names the dimension's levels are removed.
func (a *Assembly) SetLevels(dim string, names ...string) (*Assembly, error) {
	if a.arr.Axis(dim) < 0 {
		return nil, &core.NotFoundError{Kind: "dimension", Identifier: dim}
	}
	if len(names) == 1 {
		return nil, fmt.Errorf("dimension %q needs at least 2 levels, got %v", dim, names)
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		c, found := a.arr.Coord(name)
		if !found {
			return nil, &core.NotFoundError{Kind: "coordinate", Identifier: name}
		}
		if c.Dim != dim || name == dim {
			return nil, fmt.Errorf("coordinate %q is not a level candidate for dimension %q", name, dim)
		}
		if seen[name] {
			return nil, fmt.Errorf("level %q given twice", name)
		}
		seen[name] = true
	}
	levels := copyLevels(a.levels)
	if len(names) == 0 {
		delete(levels, dim)
	} else {
		levels[dim] = append([]string(nil), names...)
	}
	return newFast(a.arr, a.class, levels, a.stimulusSet), nil
}

// Equal returns true if both assemblies have equal data, coordinates and levels.
// Class, name and attributes are ignored.
func (a *Assembly) Equal(b *Assembly) bool {
	if !ndarray.Equal(a.arr, b.arr) {
		return false
	}
	for _, dim := range a.arr.Dims() {
		la, lb := a.levels[dim], b.levels[dim]
		if len(la) != len(lb) {
			return false
		}
		for i := range la {
			if la[i] != lb[i] {
				return false
			}
		}
	}
	return true
}
