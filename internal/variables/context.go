// Package variables provides the per-iteration variable store that steps read
// from and write to while a plan runs.
package variables

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Seeded variable names.
const (
	KeyIterations = "iterations"
	KeyBase       = "base"
)

var pathReplacer = strings.NewReplacer("[", ".", "]", "")

// Context maps variable names to JSON-like values (nil, bool, numbers, string,
// []any, map[string]any). One Context belongs to one iteration and is not safe
// for concurrent use.
type Context struct {
	values map[string]any
}

// New returns an empty Context.
func New() *Context {
	return &Context{values: make(map[string]any)}
}

// NewIteration returns a Context seeded with the iteration index and base URL.
func NewIteration(iteration int, base string) *Context {
	c := New()
	c.Set(KeyIterations, strconv.Itoa(iteration))
	c.Set(KeyBase, base)
	return c
}

// Set stores value under key, replacing any previous value.
func (c *Context) Set(key string, value any) {
	c.values[key] = Normalize(value)
}

// Get returns the top-level value stored under key.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Len returns the number of top-level variables.
func (c *Context) Len() int {
	return len(c.values)
}

// Values returns a shallow copy of the top-level variables.
func (c *Context) Values() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// JSON renders the context as compact JSON without HTML escaping.
func (c *Context) JSON() ([]byte, error) {
	return Marshal(c.values)
}

// Lookup resolves a dotted or bracket-indexed path such as
// "user.addresses[0].city" against the stored values.
func (c *Context) Lookup(path string) (gjson.Result, bool) {
	if path == "" {
		return gjson.Result{}, false
	}
	data, err := c.JSON()
	if err != nil {
		return gjson.Result{}, false
	}
	result := gjson.GetBytes(data, pathReplacer.Replace(path))
	if !result.Exists() {
		return gjson.Result{}, false
	}
	return result, true
}

// Marshal encodes v as compact JSON without escaping HTML characters.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Normalize converts YAML-decoded values into JSON-compatible ones: maps keyed by
// arbitrary scalars become map[string]any, recursively.
func Normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = Normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = Normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = Normalize(val)
		}
		return out
	default:
		return value
	}
}
