package assemblies

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/dapello/brainio/core"
	"github.com/dapello/brainio/ndarray"
)

// DataVariable is the netCDF variable holding the data of an unnamed array.
const DataVariable = "__xarray_dataarray_variable__"

// Load reads an assembly file.  Files ending in .nc are netCDF; anything else must
// hold the binary encoding.  A non-empty class overrides the stored one.
func Load(path, class string) (*Assembly, error) {
	if strings.EqualFold(filepath.Ext(path), ".nc") {
		return LoadNetCDF(path, class)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("loading assembly %s: %w", path, err)
	}
	if class != "" {
		a = a.WithClass(class)
	}
	return a, nil
}

// Save writes the binary encoding of an assembly.
func Save(path string, a *Assembly) error {
	data, err := a.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// leaves appends every non-slice value under v in row-major order and returns the
// extents of the nesting.
func leaves(v reflect.Value, out []interface{}) ([]interface{}, []int) {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice {
		return append(out, v.Interface()), nil
	}
	n := v.Len()
	var inner []int
	for i := 0; i < n; i++ {
		var shape []int
		out, shape = leaves(v.Index(i), out)
		if i == 0 {
			inner = shape
		}
	}
	return out, append([]int{n}, inner...)
}

// isText returns true for string values and nested slices of strings.
func isText(values interface{}) bool {
	t := reflect.TypeOf(values)
	for t != nil && t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.String
}

func toFloat(v interface{}) (float64, error) {
	n, err := ndarray.Normalize(v)
	if err != nil {
		return 0, err
	}
	switch t := n.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("non-numeric data value %v", v)
}

func isBoolVar(vr *api.Variable) bool {
	if vr.Attributes == nil {
		return false
	}
	dtype, found := vr.Attributes.Get("dtype")
	return found && dtype == "bool"
}

func coordValues(vr *api.Variable) ([]interface{}, error) {
	values, _ := leaves(reflect.ValueOf(vr.Values), nil)
	isBool := isBoolVar(vr)
	for i, v := range values {
		if s, ok := v.(string); ok {
			values[i] = strings.TrimRight(s, "\x00")
			continue
		}
		if isBool {
			f, err := toFloat(v)
			if err != nil {
				return nil, err
			}
			values[i] = f != 0
		}
	}
	return ndarray.NormalizeAll(values)
}

// LoadNetCDF reads an array written by xarray or SaveNetCDF.  The data is the
// variable named DataVariable, or else the variable with the most dimensions.  Other
// variables become coordinates when they are scalar or their first dimension is a
// data dimension; the rest are skipped.
func LoadNetCDF(path, class string) (*Assembly, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening netCDF %s: %w", path, err)
	}
	defer nc.Close()

	names := nc.ListVariables()
	vars := make(map[string]*api.Variable, len(names))
	for _, name := range names {
		vr, err := nc.GetVariable(name)
		if err != nil {
			return nil, fmt.Errorf("reading variable %q of %s: %w", name, path, err)
		}
		vars[name] = vr
	}
	dataName := ""
	if _, found := vars[DataVariable]; found {
		dataName = DataVariable
	} else {
		best := -1
		for _, name := range names {
			vr := vars[name]
			if isText(vr.Values) || len(vr.Dimensions) == 1 && vr.Dimensions[0] == name {
				continue
			}
			if len(vr.Dimensions) > best {
				dataName, best = name, len(vr.Dimensions)
			}
		}
	}
	if dataName == "" {
		return nil, fmt.Errorf("no data variable in netCDF %s", path)
	}
	dataVar := vars[dataName]
	dims := dataVar.Dimensions
	rawData, shape := leaves(reflect.ValueOf(dataVar.Values), nil)
	if len(shape) != len(dims) {
		return nil, fmt.Errorf("data variable %q of %s has %d dimensions and %d-d values",
			dataName, path, len(dims), len(shape))
	}
	data := make([]float64, len(rawData))
	for i, v := range rawData {
		if data[i], err = toFloat(v); err != nil {
			return nil, fmt.Errorf("data variable %q of %s: %w", dataName, path, err)
		}
	}
	isDim := make(map[string]bool, len(dims))
	for _, d := range dims {
		isDim[d] = true
	}

	var coords []ndarray.Coord
	for _, name := range names {
		if name == dataName {
			continue
		}
		vr := vars[name]
		values, err := coordValues(vr)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q of %s: %w", name, path, err)
		}
		switch {
		case reflect.ValueOf(vr.Values).Kind() != reflect.Slice:
			coords = append(coords, ndarray.Coord{Name: name, Values: values})
		case len(vr.Dimensions) > 0 && isDim[vr.Dimensions[0]]:
			coords = append(coords, ndarray.Coord{Name: name, Dim: vr.Dimensions[0], Values: values})
		default:
			core.Debugf("Skipping netCDF variable %q with dimensions %v in %s\n", name, vr.Dimensions, path)
		}
	}

	arr, err := ndarray.New(data, dims, shape, coords...)
	if err != nil {
		return nil, fmt.Errorf("netCDF %s: %w", path, err)
	}
	attrs := make(map[string]interface{})
	if dataVar.Attributes != nil {
		for _, k := range dataVar.Attributes.Keys() {
			if strings.HasPrefix(k, "_") {
				continue
			}
			if v, found := dataVar.Attributes.Get(k); found {
				attrs[k] = v
			}
		}
	}
	if dataName != DataVariable {
		arr = arr.WithName(dataName)
	}
	return New(class, arr.WithAttrs(attrs)), nil
}

func nestedType(ndim int) reflect.Type {
	t := reflect.TypeOf(float64(0))
	for i := 0; i < ndim; i++ {
		t = reflect.SliceOf(t)
	}
	return t
}

// nest turns row-major data into nested slices of the given shape.
func nest(data []float64, shape []int) reflect.Value {
	out := reflect.MakeSlice(nestedType(len(shape)), shape[0], shape[0])
	if len(shape) == 1 {
		reflect.Copy(out, reflect.ValueOf(data))
		return out
	}
	step := 1
	for _, s := range shape[1:] {
		step *= s
	}
	for i := 0; i < shape[0]; i++ {
		out.Index(i).Set(nest(data[i*step:(i+1)*step], shape[1:]))
	}
	return out
}

func attrMap(attrs map[string]interface{}) (api.AttributeMap, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return util.NewOrderedMap(keys, attrs)
}

// netcdfValues converts coordinate values to a typed slice, or a single typed value
// for a scalar coordinate.  Booleans are stored as int8 marked with a dtype attribute.
func netcdfValues(c ndarray.Coord) (interface{}, map[string]interface{}, error) {
	attrs := map[string]interface{}{}
	var out interface{}
	switch ndarray.DType(c.Values) {
	case "str":
		s := make([]string, len(c.Values))
		for i, v := range c.Values {
			s[i] = v.(string)
		}
		out = s
	case "int64":
		s := make([]int64, len(c.Values))
		for i, v := range c.Values {
			s[i] = v.(int64)
		}
		out = s
	case "float64":
		s := make([]float64, len(c.Values))
		for i, v := range c.Values {
			s[i] = v.(float64)
		}
		out = s
	case "bool":
		s := make([]int8, len(c.Values))
		for i, v := range c.Values {
			if v.(bool) {
				s[i] = 1
			}
		}
		out = s
		attrs["dtype"] = "bool"
	default:
		return nil, nil, fmt.Errorf("coordinate %q has mixed value types", c.Name)
	}
	if c.IsScalar() {
		out = reflect.ValueOf(out).Index(0).Interface()
	}
	return out, attrs, nil
}

// SaveNetCDF writes an assembly as a netCDF classic file readable by LoadNetCDF.
// Levels are not stored; they are gathered again from the coordinates on load.
// String, integer and float attributes are kept.
func SaveNetCDF(path string, a *Assembly) error {
	if a.Size() == 0 {
		return fmt.Errorf("cannot write empty assembly to netCDF")
	}
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return err
	}
	abort := func(err error) error {
		cw.Close()
		os.Remove(path)
		return err
	}

	for _, c := range a.arr.Coords() {
		values, attrs, err := netcdfValues(c)
		if err != nil {
			return abort(err)
		}
		am, err := attrMap(attrs)
		if err != nil {
			return abort(err)
		}
		var dims []string
		if !c.IsScalar() {
			dims = []string{c.Dim}
		}
		if err := cw.AddVar(c.Name, api.Variable{Values: values, Dimensions: dims, Attributes: am}); err != nil {
			return abort(fmt.Errorf("writing coordinate %q: %w", c.Name, err))
		}
	}

	attrs := make(map[string]interface{})
	for k, v := range a.arr.Attrs() {
		switch v.(type) {
		case string, int64, float64, int32, float32:
			attrs[k] = v
		default:
			core.Debugf("Not writing attribute %q of type %T to netCDF\n", k, v)
		}
	}
	am, err := attrMap(attrs)
	if err != nil {
		return abort(err)
	}
	name := a.arr.Name
	if name == "" {
		name = DataVariable
	}
	var values interface{}
	if len(a.arr.Shape()) == 0 {
		values = a.arr.Data()[0]
	} else {
		values = nest(a.arr.Data(), a.arr.Shape()).Interface()
	}
	if err := cw.AddVar(name, api.Variable{Values: values, Dimensions: a.arr.Dims(), Attributes: am}); err != nil {
		return abort(fmt.Errorf("writing data: %w", err))
	}
	return cw.Close()
}
