package buildconfig

import "strings"

// Options is the free-form option map attached to steps and plugins. Nested maps are
// addressed with dotted paths, e.g. "terserOptions.compress.drop_console".
type Options map[string]any

// Get walks a dotted path through nested option maps.
func (o Options) Get(path string) (any, bool) {
	var cur any = o
	for _, key := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func (o Options) Bool(path string) bool {
	v, ok := o.Get(path)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (o Options) Str(path string) string {
	v, ok := o.Get(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Strings returns a list of strings, skipping non-string elements.
func (o Options) Strings(path string) []string {
	v, ok := o.Get(path)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (o Options) Map(path string) Options {
	v, ok := o.Get(path)
	if !ok {
		return nil
	}
	m, _ := asMap(v)
	return m
}

func asMap(v any) (Options, bool) {
	switch m := v.(type) {
	case Options:
		return m, true
	case map[string]any:
		return Options(m), true
	}
	return nil, false
}
