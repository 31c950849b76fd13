// filter.go defines the Filter interface shared by ignore and force-forward filters.

package errfwd

import "context"

// Filter decides whether an occurrence matches.
// Registered as an ignore filter, true suppresses forwarding. Registered as a
// force-forward filter, true forwards regardless of ignore filters.
// A filter instance is reused for every occurrence and may keep state.
type Filter interface {
	Filter(ctx context.Context, occ Occurrence) bool
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(ctx context.Context, occ Occurrence) bool

// Filter calls f(ctx, occ).
func (f FilterFunc) Filter(ctx context.Context, occ Occurrence) bool {
	return f(ctx, occ)
}

// ValidFilter instantiates candidate and returns the instance if it implements
// Filter. It returns nil and false for anything else, including candidates that
// are not constructors. ValidFilter does not log.
func ValidFilter(candidate any) (Filter, bool) {
	instance, err := instantiate(candidate)
	if err != nil || instance == nil {
		return nil, false
	}
	f, ok := instance.(Filter)
	if !ok {
		return nil, false
	}
	return f, true
}

// anyMatch reports whether any filter matches. Evaluation stops at the first match.
func anyMatch(ctx context.Context, filters []Filter, occ Occurrence) bool {
	for _, f := range filters {
		if f.Filter(ctx, occ) {
			return true
		}
	}
	return false
}
