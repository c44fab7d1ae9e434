package airtable

import (
	"math"
	"strconv"
	"strings"
)

// Fields is the raw field bag of a record, keyed by display name. Values are
// whatever encoding/json produced: string, float64, bool, []any or map[string]any.
// Absent fields are simply missing from the map.
type Fields map[string]any

// Has reports whether the field is present and non-null.
func (f Fields) Has(name string) bool {
	v, ok := f[name]
	return ok && v != nil
}

// Text returns the field as a string. Absent or non-scalar values yield "".
func (f Fields) Text(name string) string {
	return toText(f[name])
}

// TextOr returns the field as a string, or def when it is absent or empty.
func (f Fields) TextOr(name, def string) string {
	if s := f.Text(name); s != "" {
		return s
	}
	return def
}

// TextOrNil returns the string value, or nil when absent or empty.
func (f Fields) TextOrNil(name string) any {
	if s := f.Text(name); s != "" {
		return s
	}
	return nil
}

// Number coerces numeric or numeric-text fields. Text that fails to parse
// is reported as absent rather than zero, as are NaN, infinities and hex
// notation, none of which a document body can carry.
func (f Fields) Number(name string) (float64, bool) {
	var n float64
	switch v := f[name].(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		text := strings.TrimLeft(strings.TrimSpace(v), "+-")
		if len(text) > 1 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// NumberOrNil is Number shaped for document bodies: float64 or nil.
func (f Fields) NumberOrNil(name string) any {
	if n, ok := f.Number(name); ok {
		return n
	}
	return nil
}

// Bool returns the truthiness of a field. Absent is false.
func (f Fields) Bool(name string) bool {
	switch v := f[name].(type) {
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case []any:
		return true
	case map[string]any:
		return true
	default:
		return false
	}
}

// FirstAttachmentURL returns the url of the first attachment object, or "".
func (f Fields) FirstAttachmentURL(name string) string {
	items, ok := f[name].([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	att, ok := items[0].(map[string]any)
	if !ok {
		return ""
	}
	url, _ := att["url"].(string)
	return url
}

// Lines splits a text field on newlines and drops empty lines. Other
// whitespace is kept as entered.
// The result is never nil so it encodes as an empty list.
func (f Fields) Lines(name string) []string {
	out := []string{}
	for _, line := range strings.Split(f.Text(name), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Split splits a text field on sep, trims each part and drops empties.
// The result is never nil so it encodes as an empty list.
func (f Fields) Split(name, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(f.Text(name), sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Strings returns the string elements of a list-valued field, such as linked
// record ids or lookup values. Scalar strings yield a one-element slice.
func (f Fields) Strings(name string) []string {
	switch v := f[name].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := toText(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// IsList reports whether the field holds a list value.
func (f Fields) IsList(name string) bool {
	_, ok := f[name].([]any)
	return ok
}

func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := toText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}
