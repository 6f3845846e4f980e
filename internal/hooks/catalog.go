package hooks

import (
	"sort"
	"sync"
)

// Definition describes one overload to intercept and how to render it.
type Definition struct {
	Type      string // Fully qualified target type, e.g. "javax.crypto.Mac"
	Method    string // Method name, Constructor for constructors
	Signature Signature
	Category  string // For grouping: "jca", "flutter", ...
	Observer  Observer
}

// Key returns the binding key of the definition.
func (d Definition) Key() Key {
	return Key{Type: d.Type, Method: d.Method, Signature: d.Signature}
}

// Catalog holds definitions keyed by binding key. Registering a key twice
// replaces the earlier definition.
type Catalog struct {
	mu   sync.RWMutex
	defs map[Key]Definition
}

// DefaultCatalog is the global catalog used by init() functions.
var DefaultCatalog = NewCatalog()

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[Key]Definition)}
}

// Register adds a definition.
func (c *Catalog) Register(def Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[def.Key()] = def
}

// RegisterFunc is a convenience method to register a definition.
func (c *Catalog) RegisterFunc(category, typ, method string, sig Signature, obs Observer) {
	c.Register(Definition{
		Type:      typ,
		Method:    method,
		Signature: sig,
		Category:  category,
		Observer:  obs,
	})
}

// Lookup returns the definition for key.
func (c *Catalog) Lookup(key Key) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[key]
	return d, ok
}

// ByName looks a definition up by its rendered key, as agents report it.
func (c *Catalog) ByName(name string) (Definition, bool) {
	key, err := ParseKey(name)
	if err != nil {
		return Definition{}, false
	}
	return c.Lookup(key)
}

// Definitions returns all definitions sorted by type, method and signature.
func (c *Catalog) Definitions() []Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Signature < b.Signature
	})
	return out
}

// Categories returns the distinct categories in sorted order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range c.Definitions() {
		if !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	sort.Strings(out)
	return out
}

// Filter returns a new catalog with only the given categories. With no
// categories it returns a copy of the whole catalog.
func (c *Catalog) Filter(categories ...string) *Catalog {
	want := make(map[string]bool, len(categories))
	for _, cat := range categories {
		want[cat] = true
	}
	out := NewCatalog()
	for _, d := range c.Definitions() {
		if len(want) == 0 || want[d.Category] {
			out.Register(d)
		}
	}
	return out
}

// Count returns the number of definitions.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}

// Convenience functions for the default catalog

// Register adds a definition to the default catalog.
func Register(def Definition) {
	DefaultCatalog.Register(def)
}

// RegisterFunc adds a definition to the default catalog.
func RegisterFunc(category, typ, method string, sig Signature, obs Observer) {
	DefaultCatalog.RegisterFunc(category, typ, method, sig, obs)
}
