package codec

import (
	"fmt"
	"strings"
	"unicode"
)

// KeyStrategy selects how field names are written.
type KeyStrategy int

const (
	// KeysAsDeclared writes field names as declared on the models.
	KeysAsDeclared KeyStrategy = iota
	// KeysSnakeCase writes lower snake case; appID becomes app_id.
	KeysSnakeCase
)

func (k KeyStrategy) String() string {
	switch k {
	case KeysAsDeclared:
		return "declared"
	case KeysSnakeCase:
		return "snake_case"
	default:
		return fmt.Sprintf("KeyStrategy(%d)", int(k))
	}
}

// ParseKeyStrategy reads the names returned by String.
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "declared":
		return KeysAsDeclared, nil
	case "snake_case", "snake":
		return KeysSnakeCase, nil
	}
	return 0, fmt.Errorf("unknown key strategy %q", s)
}

func (k KeyStrategy) apply(key string) string {
	if k == KeysSnakeCase {
		return SnakeCase(key)
	}
	return key
}

// SnakeCase converts a camelCase name to snake_case. A run of capitals is one
// word, so appID becomes app_id and URLPath becomes url_path.
func SnakeCase(s string) string {
	runes := []rune(s)

	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// shape describes the keys of one JSON value in the exchange format.
type shape struct {
	name string

	// fields maps declared key names to the shape of their value; nil for
	// scalars.
	fields map[string]*shape

	// required lists declared keys that must be present and not null.
	required []string

	// elem is the shape of array elements or of values in a data-keyed
	// object.
	elem *shape

	// dataKeys marks an object whose keys are data, not field names.
	dataKeys bool
}

var (
	scalar = &shape{}

	screenSizeShape = &shape{
		name:     "screenSize",
		fields:   map[string]*shape{"width": scalar, "height": scalar},
		required: []string{"width", "height"},
	}

	deviceInfoShape = &shape{
		name: "deviceInfo",
		fields: map[string]*shape{
			"model":         scalar,
			"screenSize":    screenSizeShape,
			"systemName":    scalar,
			"systemVersion": scalar,
		},
	}

	gazeShape = &shape{
		name: "gaze",
		fields: map[string]*shape{
			"timestamp":     scalar,
			"trackingState": scalar,
			"x":             scalar,
			"y":             scalar,
			"orientation":   scalar,
		},
		required: []string{"timestamp", "x", "y"},
	}

	sampleShape = &shape{
		name: "signal sample",
		fields: map[string]*shape{
			"timestamp":     scalar,
			"trackingState": scalar,
			"signalName":    scalar,
			"value":         scalar,
		},
		required: []string{"timestamp", "signalName", "value"},
	}

	sessionShape = &shape{
		name: "session",
		fields: map[string]*shape{
			"id":         scalar,
			"appID":      scalar,
			"beginTime":  scalar,
			"deviceInfo": deviceInfoShape,
			"endTime":    scalar,
			"scanPath":   {name: "scanPath", elem: gazeShape},
			"signals": {
				name:     "signals",
				dataKeys: true,
				elem:     &shape{name: "signal samples", elem: sampleShape},
			},
		},
		required: []string{"id", "appID", "beginTime", "deviceInfo", "scanPath", "signals"},
	}
)

// rename rewrites declared keys to the strategy's form. Values not matching
// the shape pass through untouched.
func rename(v any, sh *shape, keys KeyStrategy) any {
	if sh == nil {
		return v
	}
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if sh.dataKeys {
				out[k] = rename(child, sh.elem, keys)
				continue
			}
			out[keys.apply(k)] = rename(child, sh.fields[k], keys)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = rename(child, sh.elem, keys)
		}
		return out
	default:
		return v
	}
}

// canonicalize maps keys in either casing back to their declared names and
// checks required keys. Unknown keys are dropped. path locates errors.
func canonicalize(v any, sh *shape, path string) (any, error) {
	if sh == nil || sh == scalar || v == nil {
		return v, nil
	}

	switch val := v.(type) {
	case map[string]any:
		if sh.fields == nil && !sh.dataKeys {
			return nil, fmt.Errorf("%s: expected array, got object", path)
		}
		if sh.dataKeys {
			out := make(map[string]any, len(val))
			for k, child := range val {
				c, err := canonicalize(child, sh.elem, path+"."+k)
				if err != nil {
					return nil, err
				}
				out[k] = c
			}
			return out, nil
		}
		return canonicalizeObject(val, sh, path)

	case []any:
		if sh.elem == nil || sh.dataKeys {
			return nil, fmt.Errorf("%s: expected object, got array", path)
		}
		out := make([]any, len(val))
		for i, child := range val {
			c, err := canonicalize(child, sh.elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil

	default:
		if sh.fields != nil || sh.dataKeys {
			return nil, fmt.Errorf("%s: expected object, got %T", path, v)
		}
		return nil, fmt.Errorf("%s: expected array, got %T", path, v)
	}
}

func canonicalizeObject(obj map[string]any, sh *shape, path string) (map[string]any, error) {
	out := make(map[string]any, len(obj))
	for k, child := range obj {
		declared, ok := sh.lookup(k)
		if !ok {
			continue
		}
		if _, dup := out[declared]; dup {
			return nil, fmt.Errorf("%s: duplicate key %q", path, declared)
		}
		c, err := canonicalize(child, sh.fields[declared], path+"."+declared)
		if err != nil {
			return nil, err
		}
		out[declared] = c
	}

	for _, key := range sh.required {
		if v, ok := out[key]; !ok || v == nil {
			return nil, fmt.Errorf("%s: missing required key %q in %s", path, key, sh.name)
		}
	}
	return out, nil
}

// lookup resolves a key written in either casing to its declared name.
func (sh *shape) lookup(key string) (string, bool) {
	if _, ok := sh.fields[key]; ok {
		return key, true
	}
	for declared := range sh.fields {
		if SnakeCase(declared) == key {
			return declared, true
		}
	}
	return "", false
}
