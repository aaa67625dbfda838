package klv

import (
	"fmt"
	"strings"
)

// Result is an insertion-ordered mapping of field names to decoded values.
type Result struct {
	keys   []string
	values map[string]any
}

func NewResult(capacity int) *Result {
	return &Result{
		keys:   make([]string, 0, capacity),
		values: make(map[string]any, capacity),
	}
}

// Set stores v under name, keeping the original position on overwrite.
func (r *Result) Set(name string, v any) {
	if _, exists := r.values[name]; !exists {
		r.keys = append(r.keys, name)
	}
	r.values[name] = v
}

func (r *Result) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

func (r *Result) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Result) Len() int {
	return len(r.keys)
}

// Map returns an unordered copy.
func (r *Result) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func (r *Result) String() string {
	var b strings.Builder
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%v", k, r.values[k])
	}
	return b.String()
}
