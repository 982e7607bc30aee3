package strategy

import (
	"fmt"
	"sort"
	"strings"
)

// ParamDescription documents one strategy parameter for API consumers.
type ParamDescription struct {
	Default     any    `json:"default"`
	Description string `json:"description"`
}

// Descriptor is one registered strategy: its lookup key, its parameter
// descriptions, and a constructor producing a fresh instance per run.
type Descriptor struct {
	Name   string                      `json:"name"`
	Params map[string]ParamDescription `json:"parameters"`
	New    func() Strategy             `json:"-"`
}

var registry = map[string]Descriptor{}

// Register adds a strategy to the registry. Registering a duplicate name or
// a descriptor without a constructor panics; the registry is assembled once
// at startup.
func Register(d Descriptor) {
	if d.New == nil {
		panic(fmt.Sprintf("strategy: %q registered without a constructor", d.Name))
	}
	key := strings.ToLower(d.Name)
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("strategy: %q registered twice", d.Name))
	}
	registry[key] = d
}

// Lookup finds a strategy by case-insensitive name.
func Lookup(name string) (Descriptor, bool) {
	d, ok := registry[strings.ToLower(name)]
	return d, ok
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every descriptor sorted by name, for the API listing.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(registry))
	for _, name := range Names() {
		out = append(out, registry[name])
	}
	return out
}
