package cache

import (
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// defaultValueSize is the estimate used for values with no better measure.
const defaultValueSize = 64

// DefaultSizer estimates a value's byte footprint by serializing it with
// msgpack. When serialization fails (functions, channels, cyclic values),
// it degrades to a structural walk and never fails through to the caller.
func DefaultSizer(value any) int64 {
	if n, ok := probeSize(value); ok {
		return n
	}
	return structuralSize(reflect.ValueOf(value), 0)
}

func probeSize(value any) (n int64, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	buf, err := msgpack.Marshal(value)
	if err != nil {
		return 0, false
	}
	return int64(len(buf)), true
}

// maxSizeDepth bounds the structural walk so cyclic pointer chains cannot
// recurse forever.
const maxSizeDepth = 8

func structuralSize(v reflect.Value, depth int) int64 {
	if !v.IsValid() || depth > maxSizeDepth {
		return defaultValueSize
	}
	switch v.Kind() {
	case reflect.String:
		return int64(len(v.String()))
	case reflect.Slice, reflect.Array:
		var total int64
		for i := 0; i < v.Len(); i++ {
			total += structuralSize(v.Index(i), depth+1)
		}
		return total
	case reflect.Map:
		var total int64
		iter := v.MapRange()
		for iter.Next() {
			total += structuralSize(iter.Key(), depth+1)
			total += structuralSize(iter.Value(), depth+1)
		}
		return total
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return 0
		}
		return structuralSize(v.Elem(), depth+1)
	default:
		return defaultValueSize
	}
}
