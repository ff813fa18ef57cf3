package agent

import (
	"slices"

	"github.com/rayhaanfarooq/squire/internal/registry"
)

// Global is the process-wide analyzer catalog. Analyzer packages register
// a constructor from init; binaries pick producers by name from it.
var Global = registry.New[func() Analyzer]()

// Register adds a named analyzer constructor to the catalog.
func Register(name string, build func() Analyzer) {
	Global.Add(name, build)
}

// Build constructs the analyzer registered under name.
func Build(name string) (Analyzer, bool) {
	build, ok := Global.Get(name)
	if !ok {
		return nil, false
	}
	return build(), true
}

// Names lists every registered analyzer, sorted for stable output.
func Names() []string {
	var names []string
	Global.ForEach(func(name string, _ func() Analyzer) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}
