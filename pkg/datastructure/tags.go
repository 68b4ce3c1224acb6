package datastructure

import (
	"slices"
	"strconv"
	"strings"
)

type TagKind uint8

const (
	KindString TagKind = iota
	KindNumber
	KindBool
	KindStringList
)

func (k TagKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindStringList:
		return "string_list"
	}
	return "unknown"
}

// TagValue is a closed variant over the attribute kinds a node or edge may carry.
type TagValue struct {
	kind TagKind
	s    string
	n    float64
	b    bool
	list []string
}

func StringTag(s string) TagValue {
	return TagValue{kind: KindString, s: s}
}

func NumberTag(n float64) TagValue {
	return TagValue{kind: KindNumber, n: n}
}

func BoolTag(b bool) TagValue {
	return TagValue{kind: KindBool, b: b}
}

func StringListTag(list []string) TagValue {
	return TagValue{kind: KindStringList, list: slices.Clone(list)}
}

func (v TagValue) Kind() TagKind { return v.kind }

func (v TagValue) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

func (v TagValue) AsNumber() (float64, bool) {
	return v.n, v.kind == KindNumber
}

func (v TagValue) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v TagValue) AsStringList() ([]string, bool) {
	if v.kind != KindStringList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

func (v TagValue) Equal(o TagValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n
	case KindBool:
		return v.b == o.b
	case KindStringList:
		return slices.Equal(v.list, o.list)
	}
	return false
}

// String renders the value the way OSM tag values are written.
func (v TagValue) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindStringList:
		return strings.Join(v.list, ";")
	}
	return ""
}

func (v TagValue) clone() TagValue {
	if v.kind == KindStringList {
		v.list = slices.Clone(v.list)
	}
	return v
}

// Tags is an insertion-ordered attribute mapping. The zero value is ready to use.
type Tags struct {
	keys   []string
	values map[string]TagValue
}

func NewTags() Tags {
	return Tags{values: make(map[string]TagValue)}
}

// TagsFromStrings builds string tags from m, ordered by key.
func TagsFromStrings(m map[string]string) Tags {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	t := NewTags()
	for _, k := range keys {
		t.Set(k, StringTag(m[k]))
	}
	return t
}

// Set inserts or replaces key. A replaced key keeps its original position.
func (t *Tags) Set(key string, v TagValue) {
	if t.values == nil {
		t.values = make(map[string]TagValue)
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = v.clone()
}

func (t *Tags) Delete(key string) {
	if _, ok := t.values[key]; !ok {
		return
	}
	delete(t.values, key)
	t.keys = slices.DeleteFunc(t.keys, func(k string) bool { return k == key })
}

func (t Tags) Get(key string) (TagValue, bool) {
	v, ok := t.values[key]
	return v, ok
}

// GetString returns the value of key rendered as a string, or "" when absent.
func (t Tags) GetString(key string) string {
	v, ok := t.values[key]
	if !ok {
		return ""
	}
	return v.String()
}

func (t Tags) Has(key string) bool {
	_, ok := t.values[key]
	return ok
}

func (t Tags) Keys() []string {
	return slices.Clone(t.keys)
}

func (t Tags) Len() int {
	return len(t.keys)
}

func (t Tags) Clone() Tags {
	c := Tags{keys: slices.Clone(t.keys), values: make(map[string]TagValue, len(t.values))}
	for k, v := range t.values {
		c.values[k] = v.clone()
	}
	return c
}

// IsSupersetOf reports whether every key of o is present in t with an equal value.
func (t Tags) IsSupersetOf(o Tags) bool {
	for _, k := range o.keys {
		v, ok := t.values[k]
		if !ok || !v.Equal(o.values[k]) {
			return false
		}
	}
	return true
}

// Equal compares contents, ignoring insertion order.
func (t Tags) Equal(o Tags) bool {
	return t.Len() == o.Len() && t.IsSupersetOf(o)
}
