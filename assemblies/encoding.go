package assemblies

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/tinylib/msgp/msgp"

	"github.com/dapello/brainio/core"
	"github.com/dapello/brainio/ndarray"
)

// Encoded assemblies start with this magic, followed by a core serialization format
// byte, a CRC32 and the snappy-compressed msgpack body.
var encodingMagic = []byte("BIOA")

// MarshalBinary encodes the assembly with its class, coordinates, levels and
// attributes.  The stimulus set is not encoded.
func (a *Assembly) MarshalBinary() ([]byte, error) {
	body, err := a.appendMsg(nil)
	if err != nil {
		return nil, err
	}
	ser, err := core.SerializeData(body, core.Snappy, core.CRC32)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), encodingMagic...), ser...), nil
}

func (a *Assembly) appendMsg(b []byte) ([]byte, error) {
	var err error
	b = msgp.AppendMapHeader(b, 8)

	b = msgp.AppendString(b, "class")
	b = msgp.AppendString(b, a.class)
	b = msgp.AppendString(b, "name")
	b = msgp.AppendString(b, a.arr.Name)

	dims, shape := a.arr.Dims(), a.arr.Shape()
	b = msgp.AppendString(b, "dims")
	b = msgp.AppendArrayHeader(b, uint32(len(dims)))
	for _, d := range dims {
		b = msgp.AppendString(b, d)
	}
	b = msgp.AppendString(b, "shape")
	b = msgp.AppendArrayHeader(b, uint32(len(shape)))
	for _, s := range shape {
		b = msgp.AppendInt64(b, int64(s))
	}

	data := a.arr.Data()
	b = msgp.AppendString(b, "data")
	b = msgp.AppendArrayHeader(b, uint32(len(data)))
	for _, v := range data {
		b = msgp.AppendFloat64(b, v)
	}

	coords := a.arr.Coords()
	b = msgp.AppendString(b, "coords")
	b = msgp.AppendArrayHeader(b, uint32(len(coords)))
	for _, c := range coords {
		b = msgp.AppendMapHeader(b, 3)
		b = msgp.AppendString(b, "name")
		b = msgp.AppendString(b, c.Name)
		b = msgp.AppendString(b, "dim")
		b = msgp.AppendString(b, c.Dim)
		b = msgp.AppendString(b, "values")
		b = msgp.AppendArrayHeader(b, uint32(len(c.Values)))
		for _, v := range c.Values {
			if b, err = msgp.AppendIntf(b, v); err != nil {
				return nil, fmt.Errorf("coordinate %q: %v", c.Name, err)
			}
		}
	}

	levelDims := make([]string, 0, len(a.levels))
	for dim := range a.levels {
		levelDims = append(levelDims, dim)
	}
	sort.Strings(levelDims)
	b = msgp.AppendString(b, "levels")
	b = msgp.AppendMapHeader(b, uint32(len(levelDims)))
	for _, dim := range levelDims {
		b = msgp.AppendString(b, dim)
		b = msgp.AppendArrayHeader(b, uint32(len(a.levels[dim])))
		for _, name := range a.levels[dim] {
			b = msgp.AppendString(b, name)
		}
	}

	b = msgp.AppendString(b, "attrs")
	if b, err = msgp.AppendMapStrIntf(b, a.arr.Attrs()); err != nil {
		return nil, fmt.Errorf("attributes: %v", err)
	}
	return b, nil
}

// UnmarshalBinary replaces the receiver with a decoded assembly.  The decoded parts
// are validated as if given to NewDataAssembly and SetLevels.
func (a *Assembly) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*a = *decoded
	return nil
}

// Decode returns the assembly encoded by MarshalBinary.
func Decode(data []byte) (*Assembly, error) {
	if !bytes.HasPrefix(data, encodingMagic) {
		return nil, fmt.Errorf("not an encoded assembly")
	}
	body, _, err := core.DeserializeData(data[len(encodingMagic):], true)
	if err != nil {
		return nil, err
	}
	return readMsg(body)
}

func readStrings(b []byte) ([]string, []byte, error) {
	n, b, err := msgp.ReadArrayHeaderBytes(b)
	if err != nil {
		return nil, b, err
	}
	out := make([]string, n)
	for i := range out {
		if out[i], b, err = msgp.ReadStringBytes(b); err != nil {
			return nil, b, err
		}
	}
	return out, b, nil
}

func readCoord(b []byte) (ndarray.Coord, []byte, error) {
	var c ndarray.Coord
	n, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return c, b, err
	}
	for i := uint32(0); i < n; i++ {
		var key string
		if key, b, err = msgp.ReadStringBytes(b); err != nil {
			return c, b, err
		}
		switch key {
		case "name":
			c.Name, b, err = msgp.ReadStringBytes(b)
		case "dim":
			c.Dim, b, err = msgp.ReadStringBytes(b)
		case "values":
			var count uint32
			if count, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
				return c, b, err
			}
			c.Values = make([]interface{}, count)
			for j := range c.Values {
				if c.Values[j], b, err = msgp.ReadIntfBytes(b); err != nil {
					return c, b, err
				}
			}
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return c, b, err
		}
	}
	return c, b, nil
}

func readMsg(b []byte) (*Assembly, error) {
	var (
		class, name string
		dims        []string
		shape       []int
		data        []float64
		coords      []ndarray.Coord
		levels      = make(map[string][]string)
		attrs       map[string]interface{}
	)
	n, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < n; i++ {
		var key string
		if key, b, err = msgp.ReadStringBytes(b); err != nil {
			return nil, err
		}
		switch key {
		case "class":
			class, b, err = msgp.ReadStringBytes(b)
		case "name":
			name, b, err = msgp.ReadStringBytes(b)
		case "dims":
			dims, b, err = readStrings(b)
		case "shape":
			var count uint32
			if count, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
				break
			}
			shape = make([]int, count)
			for j := range shape {
				var s int64
				if s, b, err = msgp.ReadInt64Bytes(b); err != nil {
					break
				}
				shape[j] = int(s)
			}
		case "data":
			var count uint32
			if count, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
				break
			}
			data = make([]float64, count)
			for j := range data {
				if data[j], b, err = msgp.ReadFloat64Bytes(b); err != nil {
					break
				}
			}
		case "coords":
			var count uint32
			if count, b, err = msgp.ReadArrayHeaderBytes(b); err != nil {
				break
			}
			coords = make([]ndarray.Coord, count)
			for j := range coords {
				if coords[j], b, err = readCoord(b); err != nil {
					break
				}
			}
		case "levels":
			var count uint32
			if count, b, err = msgp.ReadMapHeaderBytes(b); err != nil {
				break
			}
			for j := uint32(0); j < count && err == nil; j++ {
				var dim string
				if dim, b, err = msgp.ReadStringBytes(b); err != nil {
					break
				}
				levels[dim], b, err = readStrings(b)
			}
		case "attrs":
			attrs, b, err = msgp.ReadMapStrIntfBytes(b, nil)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding assembly %s: %v", key, err)
		}
	}

	arr, err := ndarray.New(data, dims, shape, coords...)
	if err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		arr = arr.WithAttrs(attrs)
	}
	assy := newFast(arr.WithName(name), class, nil, nil)
	levelDims := make([]string, 0, len(levels))
	for dim := range levels {
		levelDims = append(levelDims, dim)
	}
	sort.Strings(levelDims)
	for _, dim := range levelDims {
		if assy, err = assy.SetLevels(dim, levels[dim]...); err != nil {
			return nil, err
		}
	}
	return assy, nil
}
