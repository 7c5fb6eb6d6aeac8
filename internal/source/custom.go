package source

import (
	"context"
)

// CustomAdapter serves rule-supplied static data as a snapshot. It lets
// operators author rules over values they control directly (drills, manual
// overrides) without any upstream provider.
type CustomAdapter struct{}

// NewCustomAdapter creates a custom-data adapter.
func NewCustomAdapter() *CustomAdapter {
	return &CustomAdapter{}
}

// Type returns the source type this adapter handles.
func (a *CustomAdapter) Type() Type {
	return TypeCustom
}

// Fetch converts the rule's params directly into a snapshot. A nil params
// map yields an empty snapshot, not an error.
func (a *CustomAdapter) Fetch(_ context.Context, params map[string]any) (Snapshot, error) {
	if params == nil {
		return Snapshot{}, nil
	}
	return FromMap(params), nil
}
