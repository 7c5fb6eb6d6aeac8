// Package source provides data source adapters that fetch and normalize
// external data into flat key/value snapshots for rule evaluation.
package source

import (
	"context"
	"fmt"
	"sort"
	"strconv"
)

// Type identifies the kind of data source a rule reads from.
type Type string

const (
	TypeWeather Type = "WEATHER"
	TypeStatus  Type = "STATUS"
	TypeCustom  Type = "CUSTOM"
)

// Kind discriminates the scalar variants a snapshot value can hold.
type Kind int

const (
	KindNumber Kind = iota
	KindString
)

// Value is a scalar snapshot value: a number or a string.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// String returns a textual Value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// Render formats the value the way it should appear in delivered messages.
// Numbers drop the trailing ".0" for whole values.
func (v Value) Render() string {
	if v.Kind == KindNumber {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return v.Str
}

// Snapshot is an immutable flat mapping from variable name to a scalar
// value, produced by an adapter fetch and consumed by condition evaluation
// and templating. Callers must not mutate a snapshot after handing it off.
type Snapshot map[string]Value

// FromMap converts loosely-typed data (JSON decoding, mock test payloads)
// into a Snapshot. Numeric types collapse to float64; booleans and anything
// else become their string form.
func FromMap(data map[string]any) Snapshot {
	snap := make(Snapshot, len(data))
	for k, v := range data {
		switch t := v.(type) {
		case float64:
			snap[k] = Number(t)
		case float32:
			snap[k] = Number(float64(t))
		case int:
			snap[k] = Number(float64(t))
		case int64:
			snap[k] = Number(float64(t))
		case string:
			snap[k] = String(t)
		default:
			snap[k] = String(fmt.Sprintf("%v", t))
		}
	}
	return snap
}

// ToMap converts a snapshot back to loosely-typed data for JSON encoding.
func (s Snapshot) ToMap() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		if v.Kind == KindNumber {
			out[k] = v.Num
		} else {
			out[k] = v.Str
		}
	}
	return out
}

// Keys returns the snapshot's variable names in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Adapter fetches a normalized snapshot for one source type. Implementations
// must degrade to a usable fallback snapshot instead of returning an error
// when the upstream provider is unreachable; a non-nil error is reserved for
// misconfiguration that no fallback can paper over.
type Adapter interface {
	// Type returns the source type this adapter handles.
	Type() Type

	// Fetch retrieves and normalizes data for the given rule params.
	Fetch(ctx context.Context, params map[string]any) (Snapshot, error)
}

// Registry maps source types to their adapters by exact match.
type Registry struct {
	adapters map[Type]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[Type]Adapter),
	}
}

// Register adds an adapter to the registry, replacing any previous adapter
// for the same type.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Type()] = a
}

// Get returns the adapter for the given source type. An unregistered type is
// a configuration error for the rule that references it.
func (r *Registry) Get(t Type) (Adapter, error) {
	a, ok := r.adapters[t]
	if !ok {
		return nil, fmt.Errorf("no source adapter registered for type %q", t)
	}
	return a, nil
}

// Types returns all registered source types.
func (r *Registry) Types() []Type {
	types := make([]Type, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	return types
}
