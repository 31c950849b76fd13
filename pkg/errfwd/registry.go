// registry.go maps names to filter and sink constructors so that coordinators
// can be configured from files.

package errfwd

import (
	"sort"

	"github.com/puzpuzpuz/xsync"
)

// Registry holds named filter and sink candidates. Safe for concurrent use.
type Registry struct {
	filters *xsync.MapOf[string, any]
	sinks   *xsync.MapOf[string, any]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		filters: xsync.NewMapOf[any](),
		sinks:   xsync.NewMapOf[any](),
	}
}

// RegisterFilter adds or replaces a named filter candidate.
func (r *Registry) RegisterFilter(name string, candidate any) {
	r.filters.Store(name, candidate)
}

// RegisterSink adds or replaces a named sink candidate.
func (r *Registry) RegisterSink(name string, candidate any) {
	r.sinks.Store(name, candidate)
}

// Filter returns the filter candidate registered under name.
func (r *Registry) Filter(name string) (any, bool) {
	return r.filters.Load(name)
}

// Sink returns the sink candidate registered under name.
func (r *Registry) Sink(name string) (any, bool) {
	return r.sinks.Load(name)
}

// FilterNames returns the registered filter names, sorted.
func (r *Registry) FilterNames() []string {
	return sortedKeys(r.filters)
}

// SinkNames returns the registered sink names, sorted.
func (r *Registry) SinkNames() []string {
	return sortedKeys(r.sinks)
}

func sortedKeys(m *xsync.MapOf[string, any]) []string {
	var names []string
	m.Range(func(name string, _ any) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
