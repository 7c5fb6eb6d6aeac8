// Package audience resolves a rule's targeting specification to the list of
// users it should reach.
package audience

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PranavSehgalSJSU/272-Project/internal/store"
)

// Directory is the user-directory collaborator the resolver reads from.
type Directory interface {
	// ListActiveUsers returns every active user.
	ListActiveUsers(ctx context.Context) ([]store.User, error)
}

// Resolver filters the active-user set by a rule's audience spec.
type Resolver struct {
	directory Directory
}

// NewResolver creates a resolver over the given user directory.
func NewResolver(directory Directory) *Resolver {
	return &Resolver{
		directory: directory,
	}
}

// Resolve returns the active users matching the audience spec. A nil spec
// resolves to an empty list, never to everybody: a rule with no audience
// matches nobody. City matches case-insensitively; tags match if the user
// has at least one of the required tags, also case-insensitively.
func (r *Resolver) Resolve(ctx context.Context, spec *store.RuleAudience) ([]store.User, error) {
	if spec == nil {
		return nil, nil
	}

	users, err := r.directory.ListActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}

	city := strings.TrimSpace(spec.City)
	matched := make([]store.User, 0, len(users))
	for _, user := range users {
		if !user.Active {
			continue
		}
		if city != "" && !strings.EqualFold(strings.TrimSpace(user.City), city) {
			continue
		}
		if len(spec.Tags) > 0 && !hasAnyTag(user.Tags, spec.Tags) {
			continue
		}
		matched = append(matched, user)
	}

	slog.Debug("Resolved audience",
		"city", city,
		"tags", spec.Tags,
		"matched", len(matched),
	)
	return matched, nil
}

// CountAudience reports how many users the spec targets. It delegates to
// Resolve so counting and resolving can never drift apart.
func (r *Resolver) CountAudience(ctx context.Context, spec *store.RuleAudience) (int, error) {
	users, err := r.Resolve(ctx, spec)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// hasAnyTag reports whether the user holds at least one required tag,
// comparing case-insensitively.
func hasAnyTag(userTags, required []string) bool {
	for _, want := range required {
		for _, have := range userTags {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}
