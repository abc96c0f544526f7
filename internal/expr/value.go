package expr

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which member of the Value union is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the lower-case name of the kind as used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the dynamically typed result of evaluating an expression. The zero
// Value is null. Arrays and objects are reference values: two Values compare
// equal only when they share the same backing Array or Object.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  *Array
	obj  *Object

	// filtered marks arrays produced by the `.*` operator; property access on
	// such an array is applied to every element.
	filtered bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// ArrayOf returns an array value holding items in order.
func ArrayOf(items ...Value) Value {
	return Value{kind: KindArray, arr: &Array{items: items}}
}

// ObjectOf wraps o as a Value. A nil o yields an empty object.
func ObjectOf(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind reports which member of the union is populated.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// BoolValue returns the raw boolean; false for other kinds.
func (v Value) BoolValue() bool { return v.kind == KindBool && v.b }

// NumberValue returns the raw number; 0 for other kinds.
func (v Value) NumberValue() float64 {
	if v.kind != KindNumber {
		return 0
	}
	return v.n
}

// StringValue returns the raw string; empty for other kinds.
func (v Value) StringValue() string {
	if v.kind != KindString {
		return ""
	}
	return v.s
}

// Array returns the backing array or nil when v is not an array.
func (v Value) Array() *Array {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Object returns the backing object or nil when v is not an object.
func (v Value) Object() *Object {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Array is an ordered sequence of values.
type Array struct {
	items []Value
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.items) }

// At returns the element at i.
func (a *Array) At(i int) Value { return a.items[i] }

// Items returns a copy of the elements.
func (a *Array) Items() []Value {
	out := make([]Value, len(a.items))
	copy(out, a.items)
	return out
}

// Object is an insertion-ordered mapping from string keys to values. Lookups
// try the exact key first and then fall back to a case-insensitive match, the
// way property access works on the platform.
type Object struct {
	keys   []string
	values []Value
	index  map[string]int // lower-cased key -> position
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{index: map[string]int{}}
}

// Set stores v under key, replacing an existing entry whose key matches
// case-insensitively while keeping its original position.
func (o *Object) Set(key string, v Value) {
	lk := strings.ToLower(key)
	if i, ok := o.index[lk]; ok {
		o.values[i] = v
		return
	}
	o.index[lk] = len(o.keys)
	o.keys = append(o.keys, key)
	o.values = append(o.values, v)
}

// Get looks up key case-insensitively.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Null(), false
	}
	i, ok := o.index[strings.ToLower(key)]
	if !ok {
		return Null(), false
	}
	return o.values[i], true
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of entries.
func (o *Object) Len() int { return len(o.keys) }

// Clone returns a shallow copy of o. Nested arrays and objects are shared.
func (o *Object) Clone() *Object {
	out := &Object{
		keys:   append([]string(nil), o.keys...),
		values: append([]Value(nil), o.values...),
		index:  make(map[string]int, len(o.index)),
	}
	for k, i := range o.index {
		out.index[k] = i
	}
	return out
}

// MarshalJSON renders o as a JSON object with keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return ObjectOf(o).MarshalJSON()
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// Truthy converts v to a boolean: null, false, 0, -0, NaN and the empty
// string are falsy; everything else, including empty arrays and objects, is
// truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindString:
		return v.s != ""
	default:
		return true
	}
}

// ToNumber converts v to a number. Arrays and objects become NaN.
func (v Value) ToNumber() float64 {
	switch v.kind {
	case KindNull:
		return 0
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindNumber:
		return v.n
	case KindString:
		return parseNumber(v.s)
	default:
		return math.NaN()
	}
}

// String converts v to its string form used by interpolation and the string
// functions.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return v.s
	case KindArray:
		return "Array"
	case KindObject:
		return "Object"
	default:
		return ""
	}
}

// parseNumber implements the string-to-number rule: surrounding whitespace is
// ignored, the empty string is 0, 0x and 0o prefixes select hex and octal, and
// anything that is not a number becomes NaN.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "0x"):
		n, err := strconv.ParseUint(lower[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	case strings.HasPrefix(lower, "0o"):
		n, err := strconv.ParseUint(lower[2:], 8, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	switch lower {
	case "infinity", "+infinity":
		return math.Inf(1)
	case "-infinity":
		return math.Inf(-1)
	case "nan", "+nan", "-nan", "inf", "+inf", "-inf":
		// strconv accepts these spellings; the platform does not.
		return math.NaN()
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	case n == math.Trunc(n) && math.Abs(n) < 1e15:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return strconv.FormatFloat(n, 'g', 15, 64)
	}
}

// ---------------------------------------------------------------------------
// Coercion
// ---------------------------------------------------------------------------

// coerce brings two operands to a common kind before comparison:
//
//	number, string  -> string is converted to number
//	string, number  -> string is converted to number
//	bool|null, any  -> left is converted to number, then coerced again
//	any, bool|null  -> right is converted to number, then coerced again
//
// Any other pair of different kinds is left alone and compares unequal.
func coerce(left, right Value) (Value, Value) {
	switch {
	case left.kind == right.kind:
		return left, right
	case left.kind == KindNumber && right.kind == KindString:
		return left, Number(right.ToNumber())
	case left.kind == KindString && right.kind == KindNumber:
		return Number(left.ToNumber()), right
	case left.kind == KindBool || left.kind == KindNull:
		return coerce(Number(left.ToNumber()), right)
	case right.kind == KindBool || right.kind == KindNull:
		return coerce(left, Number(right.ToNumber()))
	default:
		return left, right
	}
}

// Equal reports loose equality between a and b.
func Equal(a, b Value) bool {
	a, b = coerce(a, b)
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		if math.IsNaN(a.n) || math.IsNaN(b.n) {
			return false
		}
		return a.n == b.n
	case KindString:
		return strings.EqualFold(a.s, b.s)
	case KindArray:
		return a.arr == b.arr
	case KindObject:
		return a.obj == b.obj
	default:
		return false
	}
}

// compare orders a and b after coercion. ok is false when the pair is not
// ordered (different kinds, NaN, arrays, objects, nulls).
func compare(a, b Value) (cmp int, ok bool) {
	a, b = coerce(a, b)
	if a.kind != b.kind {
		return 0, false
	}
	switch a.kind {
	case KindNumber:
		if math.IsNaN(a.n) || math.IsNaN(b.n) {
			return 0, false
		}
		switch {
		case a.n < b.n:
			return -1, true
		case a.n > b.n:
			return 1, true
		}
		return 0, true
	case KindString:
		return strings.Compare(strings.ToUpper(a.s), strings.ToUpper(b.s)), true
	case KindBool:
		switch {
		case a.b == b.b:
			return 0, true
		case !a.b:
			return -1, true
		}
		return 1, true
	default:
		return 0, false
	}
}

// ---------------------------------------------------------------------------
// Go interop
// ---------------------------------------------------------------------------

// FromGo converts plain Go data (as produced by YAML or JSON decoding) into a
// Value. Maps with string keys become objects with keys in sorted order;
// unsupported types become their fmt string.
func FromGo(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case float64:
		return Number(t)
	case string:
		return String(t)
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return ArrayOf(items...)
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromGo(e)
		}
		return ArrayOf(items...)
	case map[string]string:
		o := NewObject()
		for _, k := range sortedKeys(t) {
			o.Set(k, String(t[k]))
		}
		return ObjectOf(o)
	case map[string]any:
		o := NewObject()
		for _, k := range sortedKeys(t) {
			o.Set(k, FromGo(t[k]))
		}
		return ObjectOf(o)
	default:
		return String(strings.TrimSpace(jsonFallback(t)))
	}
}

func jsonFallback(x any) string {
	data, err := json.Marshal(x)
	if err != nil {
		return ""
	}
	return string(data)
}

// MarshalJSON renders v as compact JSON, keeping object keys in insertion
// order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	writeJSON(&buf, v, "", "")
	return buf.Bytes(), nil
}

// writeJSON serialises v. When indent is empty the output is compact.
func writeJSON(buf *bytes.Buffer, v Value, prefix, indent string) {
	newline := func(depth string) {
		if indent == "" {
			return
		}
		buf.WriteByte('\n')
		buf.WriteString(depth)
	}
	sep := ":"
	if indent != "" {
		sep = ": "
	}

	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(v.String())
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			buf.WriteString("null")
			return
		}
		buf.WriteString(formatNumber(v.n))
	case KindString:
		buf.WriteString(quoteJSON(v.s))
	case KindArray:
		if v.arr.Len() == 0 {
			buf.WriteString("[]")
			return
		}
		buf.WriteByte('[')
		for i, item := range v.arr.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(prefix + indent)
			writeJSON(buf, item, prefix+indent, indent)
		}
		newline(prefix)
		buf.WriteByte(']')
	case KindObject:
		if v.obj.Len() == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteByte('{')
		for i, k := range v.obj.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(prefix + indent)
			buf.WriteString(quoteJSON(k))
			buf.WriteString(sep)
			writeJSON(buf, v.obj.values[i], prefix+indent, indent)
		}
		newline(prefix)
		buf.WriteByte('}')
	}
}

func quoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// ParseJSON decodes a JSON document into a Value, keeping object keys in
// document order.
func ParseJSON(data []byte) (Value, error) {
	return parseJSON(string(data))
}

// parseJSON decodes data into a Value, keeping object keys in document order.
func parseJSON(data string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return Null(), err
	}
	if dec.More() {
		return Null(), errTrailingJSON
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return ArrayOf(items...), nil
		case '{':
			o := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, _ := keyTok.(string)
				val, err := decodeJSONValue(dec)
				if err != nil {
					return Null(), err
				}
				o.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return ObjectOf(o), nil
		}
	}
	return Null(), errTrailingJSON
}
