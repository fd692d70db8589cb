// Package config provides a typed view over the declarative submission
// configuration.
//
// The configuration is a nested YAML mapping. Access is by key path with
// supports-missing semantics: a required key that is absent fails with
// MissingFieldError, a key that is present but empty fails with
// EmptyFieldError unless the caller asks for an optional value. Numeric
// scalars requested as strings are stringified verbatim; lists are
// returned as lists.
//
// When timestamping is enabled a short time-derived token is prefixed to a
// fixed set of alias-bearing fields (sample titles, read set names, the
// assembly name, related sample titles, the project name) so repeated test
// submissions do not collide on archive-side aliases.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Keys whose values receive the timestamp prefix when stamping is enabled.
var stampedKeys = map[string]bool{
	"title":                true,
	"name":                 true,
	"related_sample_title": true,
	"project_name":         true,
}

// Config is the parsed submission configuration.
type Config struct {
	root  map[string]any
	stamp string
}

// Option configures Load.
type Option func(*Config)

// WithTimestamps enables or disables alias timestamping.
func WithTimestamps(on bool) Option {
	return func(c *Config) {
		if on {
			c.stamp = timestampToken(time.Now())
		} else {
			c.stamp = ""
		}
	}
}

// timestampToken derives the 4-character collision-avoidance token.
func timestampToken(t time.Time) string {
	return fmt.Sprintf("%02d%02d", t.Hour(), t.Minute())
}

// Load reads and parses a YAML configuration file.
func Load(path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data, opts...)
}

// Parse parses YAML configuration bytes.
func Parse(data []byte, opts ...Option) (*Config, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if root == nil {
		root = map[string]any{}
	}
	c := &Config{root: root}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Timestamp returns the active stamp token, or "" when stamping is off.
func (c *Config) Timestamp() string { return c.stamp }

// Has reports whether the key path is present, regardless of its value.
func (c *Config) Has(path ...string) bool {
	_, err := c.lookup(path)
	return err == nil
}

// Get returns the scalar at the key path. A missing key yields a
// MissingFieldError; a present but empty value yields an EmptyFieldError.
func (c *Config) Get(path ...string) (string, error) {
	v, err := c.lookup(path)
	if err != nil {
		return "", err
	}
	s, ok := scalarString(v)
	if !ok {
		return "", &TypeMismatchError{Path: joinPath(path), Want: "scalar"}
	}
	if s == "" {
		return "", &EmptyFieldError{Path: joinPath(path)}
	}
	return s, nil
}

// Optional returns the scalar at the key path, or "" when the key is
// absent or empty.
func (c *Config) Optional(path ...string) string {
	v, err := c.lookup(path)
	if err != nil {
		return ""
	}
	s, _ := scalarString(v)
	return s
}

// Stamped behaves like Get but prefixes the timestamp token when the
// terminal key is one of the alias-bearing fields and stamping is on.
func (c *Config) Stamped(path ...string) (string, error) {
	s, err := c.Get(path...)
	if err != nil {
		return "", err
	}
	return c.applyStamp(path[len(path)-1], s), nil
}

func (c *Config) applyStamp(key, value string) string {
	if c.stamp == "" || !stampedKeys[key] {
		return value
	}
	return c.stamp + "_" + value
}

// List returns the list of scalars at the key path. A scalar value is not
// promoted; the caller gets a TypeMismatchError.
func (c *Config) List(path ...string) ([]string, error) {
	v, err := c.lookup(path)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &TypeMismatchError{Path: joinPath(path), Want: "list"}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := scalarString(it)
		if !ok {
			return nil, &TypeMismatchError{Path: joinPath(path), Want: "list of scalars"}
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, &EmptyFieldError{Path: joinPath(path)}
	}
	return out, nil
}

// OptionalList returns the list at the key path, or nil when absent/empty.
func (c *Config) OptionalList(path ...string) []string {
	out, err := c.List(path...)
	if err != nil {
		return nil
	}
	return out
}

// records returns the list of nested mappings at the key path.
func (c *Config) records(path ...string) ([]*Record, error) {
	v, err := c.lookup(path)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &TypeMismatchError{Path: joinPath(path), Want: "list of records"}
	}
	out := make([]*Record, 0, len(items))
	for i, it := range items {
		m, ok := normalizeMap(it)
		if !ok {
			return nil, &TypeMismatchError{Path: fmt.Sprintf("%s[%d]", joinPath(path), i), Want: "record"}
		}
		out = append(out, &Record{cfg: c, path: fmt.Sprintf("%s[%d]", joinPath(path), i), m: m})
	}
	return out, nil
}

// record returns the single nested mapping at the key path.
func (c *Config) record(path ...string) (*Record, error) {
	v, err := c.lookup(path)
	if err != nil {
		return nil, err
	}
	m, ok := normalizeMap(v)
	if !ok {
		return nil, &TypeMismatchError{Path: joinPath(path), Want: "record"}
	}
	return &Record{cfg: c, path: joinPath(path), m: m}, nil
}

func (c *Config) lookup(path []string) (any, error) {
	if len(path) == 0 {
		return c.root, nil
	}
	var cur any = c.root
	for i, key := range path {
		m, ok := normalizeMap(cur)
		if !ok {
			return nil, &MissingFieldError{Path: joinPath(path[:i+1])}
		}
		next, ok := m[key]
		if !ok {
			return nil, &MissingFieldError{Path: joinPath(path[:i+1])}
		}
		cur = next
	}
	if cur == nil {
		return nil, &EmptyFieldError{Path: joinPath(path)}
	}
	return cur, nil
}

// Record is a nested mapping inside the configuration. It shares the
// parent Config's stamping state.
type Record struct {
	cfg  *Config
	path string
	m    map[string]any
}

// Get returns the required scalar under key.
func (r *Record) Get(key string) (string, error) {
	v, ok := r.m[key]
	if !ok {
		return "", &MissingFieldError{Path: r.path + "." + key}
	}
	s, sok := scalarString(v)
	if !sok {
		return "", &TypeMismatchError{Path: r.path + "." + key, Want: "scalar"}
	}
	if s == "" {
		return "", &EmptyFieldError{Path: r.path + "." + key}
	}
	return s, nil
}

// Optional returns the scalar under key, or "" when absent or empty.
func (r *Record) Optional(key string) string {
	s, _ := scalarString(r.m[key])
	return s
}

// Stamped behaves like Get with the timestamp prefix applied when key is
// alias-bearing.
func (r *Record) Stamped(key string) (string, error) {
	s, err := r.Get(key)
	if err != nil {
		return "", err
	}
	return r.cfg.applyStamp(key, s), nil
}

// List returns the list of scalars under key, or nil when absent.
func (r *Record) List(key string) []string {
	items, ok := r.m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := scalarString(it); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// StringMap returns the nested mapping under key as sorted key/value
// pairs, or nil when absent.
func (r *Record) StringMap(key string) map[string]string {
	m, ok := normalizeMap(r.m[key])
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s, _ := scalarString(v)
		out[k] = s
	}
	return out
}

// SortedKeys returns the keys of m in lexical order. Attribute rendering
// depends on a stable order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// scalarString stringifies a YAML scalar verbatim.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), true
	default:
		return "", false
	}
}

// normalizeMap converts the yaml.v3 decode shapes for mappings into
// map[string]any.
func normalizeMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}
