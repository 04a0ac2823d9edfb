// Package metrics implements the heterogeneous metrics dictionary that
// flows from the grader's metrics.json / grader_output.json into the proof
// engine: a bag of named values that may be boolean, integral, floating
// point, or a short string, with typed accessors instead of a bare
// map[string]interface{}.
package metrics

import "encoding/json"

// Presence reports whether a key was found and, if so, whether it held the
// requested type.
type Presence int

const (
	// Missing means the key was not present in the bag at all.
	Missing Presence = iota
	// Present means the key was found and matched the requested type.
	Present
	// WrongType means the key was found but held a different kind of value.
	WrongType
)

// Kind identifies the underlying type carried by a Value.
type Kind int

const (
	KindBool Kind = iota
	KindInt64
	KindFloat64
	KindString
)

// Value is a tagged union over the metric types a grader can emit.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

func BoolValue(v bool) Value    { return Value{kind: KindBool, b: v} }
func Int64Value(v int64) Value  { return Value{kind: KindInt64, i: v} }
func FloatValue(v float64) Value { return Value{kind: KindFloat64, f: v} }
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// Kind returns the underlying type tag.
func (v Value) Kind() Kind { return v.kind }

// AsFloat64 widens any numeric kind (int64 or float64) to float64; it is
// used by rules that compare thresholds without caring which JSON numeric
// representation the grader happened to emit.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindInt64:
		return float64(v.i), true
	case KindFloat64:
		return v.f, true
	default:
		return 0, false
	}
}

// Bag is the heterogeneous metrics dictionary keyed by metric name.
type Bag map[string]Value

// Bool returns the boolean at key, or (false, Missing/WrongType) otherwise.
func (b Bag) Bool(key string) (bool, Presence) {
	v, ok := b[key]
	if !ok {
		return false, Missing
	}
	if v.kind != KindBool {
		return false, WrongType
	}
	return v.b, Present
}

// Int64 returns the integer at key, truncating a float value toward zero if
// one is stored.
func (b Bag) Int64(key string) (int64, Presence) {
	v, ok := b[key]
	if !ok {
		return 0, Missing
	}
	switch v.kind {
	case KindInt64:
		return v.i, Present
	case KindFloat64:
		return int64(v.f), Present
	default:
		return 0, WrongType
	}
}

// Float64 returns the float at key, widening an integer value if one is stored.
func (b Bag) Float64(key string) (float64, Presence) {
	v, ok := b[key]
	if !ok {
		return 0, Missing
	}
	switch v.kind {
	case KindFloat64:
		return v.f, Present
	case KindInt64:
		return float64(v.i), Present
	default:
		return 0, WrongType
	}
}

// String returns the string at key.
func (b Bag) String(key string) (string, Presence) {
	v, ok := b[key]
	if !ok {
		return "", Missing
	}
	if v.kind != KindString {
		return "", WrongType
	}
	return v.s, Present
}

// Has reports whether key is present at all, regardless of type.
func (b Bag) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Raw exposes the value for callers (e.g. EvidenceRef construction) that
// need to carry it onward without re-interpreting its type.
func (b Bag) Raw(key string) interface{} {
	v, ok := b[key]
	if !ok {
		return nil
	}
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt64:
		return v.i
	case KindFloat64:
		return v.f
	default:
		return v.s
	}
}

// ParseJSON decodes a flat JSON object into a Bag, classifying each member
// by its Go-decoded JSON type. JSON numbers without a fractional part are
// kept as int64 so integer-valued metrics (counts) round-trip as integers.
func ParseJSON(data []byte) (Bag, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return FromMap(raw), nil
}

// FromMap converts a decoded JSON object into a Bag. Only the scalar types
// encoding/json produces (bool, float64, string) are kept; values of other
// Go types, such as int, are dropped like nested shapes.
func FromMap(raw map[string]interface{}) Bag {
	bag := make(Bag, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case bool:
			bag[k] = BoolValue(t)
		case float64:
			if t == float64(int64(t)) {
				bag[k] = Int64Value(int64(t))
			} else {
				bag[k] = FloatValue(t)
			}
		case string:
			bag[k] = StringValue(t)
		default:
			// Unrepresentable shapes (nested objects/arrays/null) are
			// dropped rather than force-fit into a scalar kind.
		}
	}
	return bag
}

// Merge overlays overlay on top of base, returning a new Bag where keys
// present in overlay win, matching the grader's documented "grader_output.json wins
// conflicts" merge rule.
func Merge(base, overlay Bag) Bag {
	merged := make(Bag, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}
