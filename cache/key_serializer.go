package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

// maxSegmentLen is the longest segment kept verbatim; longer ones are hashed.
const maxSegmentLen = 128

// defaultKeySerializer implements KeySerializer using reflection-based serialization.
// Segments are deterministic across runs: maps are sorted, structs list exported
// fields in declaration order and oversized segments collapse to an xxhash digest.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// Key joins already formatted segments, e.g. Key("resi", "JP001") == "resi:JP001".
func Key(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

// SerializeKey builds a cache key from a prefix and args.
// The prefix always leads so DeleteByPrefix(prefix) reaches every key built here.
func (s *defaultKeySerializer) SerializeKey(prefix string, args ...any) string {
	if len(args) == 0 {
		return prefix
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, prefix)

	for _, arg := range args {
		parts = append(parts, s.segment(s.serializeValue(arg)))
	}

	return Key(parts...)
}

func (s *defaultKeySerializer) segment(v string) string {
	if len(v) <= maxSegmentLen {
		return v
	}
	return "h" + strconv.FormatUint(xxhash.Sum64String(v), 16)
}

// serializeValue handles individual argument serialization based on type.
func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	switch tv := v.(type) {
	case string:
		return tv
	case time.Time:
		return tv.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return tv.String()
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	switch rt.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "[]"
		}
		return s.serializeList(rv)
	case reflect.Array:
		return s.serializeList(rv)
	case reflect.Map:
		if rv.IsNil() {
			return "{}"
		}
		return s.serializeMap(rv)
	case reflect.Struct:
		return s.serializeStruct(rv, rt)
	}

	if s.isBasicType(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return s.jsonFallback(v)
}

// serializeList handles slices and arrays recursively
func (s *defaultKeySerializer) serializeList(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		parts[i] = s.serializeValue(rv.Index(i).Interface())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// serializeMap handles map serialization with sorted keys for determinism
func (s *defaultKeySerializer) serializeMap(rv reflect.Value) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, s.serializeValue(iter.Key().Interface())+"="+s.serializeValue(iter.Value().Interface()))
	}
	sort.Strings(pairs)
	return "{" + strings.Join(pairs, ",") + "}"
}

// serializeStruct lists exported, non-zero fields as name=value
func (s *defaultKeySerializer) serializeStruct(rv reflect.Value, rt reflect.Type) string {
	parts := make([]string, 0, rv.NumField())

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		fv := rv.Field(i)
		if fv.IsZero() {
			continue
		}

		parts = append(parts, strings.ToLower(field.Name)+"="+s.serializeValue(fv.Interface()))
	}

	return "{" + strings.Join(parts, ",") + "}"
}

// isBasicType checks if a kind represents a basic Go type
func (s *defaultKeySerializer) isBasicType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// jsonFallback provides JSON serialization as a last resort
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "type=" + reflect.TypeOf(v).String()
	}
	return string(data)
}
