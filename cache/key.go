package cache

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// keySeparator delimits the segments of a composite key before hashing.
const keySeparator = "::"

// Key canonicalizes a composite identifier into a cache key. A single
// string part passes through unchanged; anything else is serialized
// deterministically (map keys sorted, slices in order) and hashed with
// xxhash so that two logically equal composites always map to one slot.
func Key(parts ...any) string {
	if len(parts) == 1 {
		if s, ok := parts[0].(string); ok {
			return s
		}
	}
	segments := make([]string, len(parts))
	for i, part := range parts {
		segments[i] = canonical(part)
	}
	joined := strings.Join(segments, keySeparator)
	return fmt.Sprintf("%016x", xxhash.Sum64String(joined))
}

// canonical produces a deterministic string form of v. Map iteration order
// must not leak into keys, so map keys are sorted before rendering. Strings
// are quoted and containers carry their length so that delimiter characters
// inside values cannot make distinct composites render identically.
func canonical(v any) string {
	if v == nil {
		return "nil"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return canonical(rv.Elem().Interface())
	case reflect.String:
		return strconv.Quote(rv.String())
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts[i] = canonical(rv.Index(i).Interface())
		}
		return fmt.Sprintf("slice[%d]:[%s]", rv.Len(), strings.Join(parts, ","))
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		byKey := make(map[string]string, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := canonical(iter.Key().Interface())
			keys = append(keys, k)
			byKey[k] = canonical(iter.Value().Interface())
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + byKey[k]
		}
		return fmt.Sprintf("map[%d]:{%s}", len(keys), strings.Join(parts, ","))
	case reflect.Struct:
		rt := rv.Type()
		parts := make([]string, 0, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			if !rt.Field(i).IsExported() {
				continue
			}
			parts = append(parts, rt.Field(i).Name+"="+canonical(rv.Field(i).Interface()))
		}
		return rt.Name() + "{" + strings.Join(parts, ",") + "}"
	case reflect.Func, reflect.Chan:
		return fmt.Sprintf("%T:%p", v, v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
