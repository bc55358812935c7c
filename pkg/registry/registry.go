// Package registry implements the component catalog and dispatcher: the
// mapping from named configuration components to the generators that emit
// them, plus the macro table that lets job definitions alias ordered lists
// of component invocations under a reusable name.
package registry

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/beevik/etree"
	"gopkg.in/yaml.v3"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
	"github.com/jobforge/jobforge/pkg/telemetry"
)

// Generator is the external callable contract for one component: it
// mutates parent in place and signals failures through the shared error
// taxonomy (missing or invalid attributes in particular).
type Generator func(reg *Registry, parent *etree.Element, data any) error

// RootFunc builds the root element of a project or view output tree.
type RootFunc func(doc *etree.Document, data *localyaml.Mapping) (*etree.Element, error)

// Module is one configuration module. Modules run in sequence order
// against every job and each may own a component category whose members
// are dispatched through the registry.
type Module interface {
	Name() string
	Sequence() int

	// ComponentType is the category the module defines ("" for none),
	// and ComponentListType the job definition key its invocation list
	// lives under (for example "builder" and "builders").
	ComponentType() string
	ComponentListType() string

	GenXML(reg *Registry, root *etree.Element, data *localyaml.Mapping) error
}

// Macro is a named, reusable ordered list of component invocations.
// Params records declared formal parameter names when the definition
// carries them; substitution itself is driven purely by the arguments the
// invocation supplies.
type Macro struct {
	Name   string
	Params []string
	Body   []any
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *telemetry.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithAllowEmptyVariables tolerates missing placeholders during argument
// interpolation, substituting empty strings instead of failing.
func WithAllowEmptyVariables(allow bool) Option {
	return func(r *Registry) { r.allowEmpty = allow }
}

// WithMaxDepth overrides the dispatch recursion limit that converts
// self- or mutually-recursive macros into a reported error.
func WithMaxDepth(depth int) Option {
	return func(r *Registry) { r.maxDepth = depth }
}

const defaultMaxDepth = 50

// Registry is the session-scoped component catalog: modules in sequence
// order, per-category generator caches, the macro table, and project/view
// roots. Give each concurrent session its own instance.
type Registry struct {
	mu sync.RWMutex

	modules  []Module
	listKeys map[string]string // category -> invocation list key

	generators map[string]map[string]Generator
	macros     map[string]map[string]*Macro
	projects   map[string]RootFunc
	views      map[string]RootFunc

	// maskedWarned dedupes the macro-shadows-generator warning per name.
	maskedWarned map[string]bool

	pluginsInfo map[string]map[string]any

	allowEmpty bool
	maxDepth   int
	logger     *telemetry.Logger
	metrics    *telemetry.Metrics
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		listKeys:     make(map[string]string),
		generators:   make(map[string]map[string]Generator),
		macros:       make(map[string]map[string]*Macro),
		projects:     make(map[string]RootFunc),
		views:        make(map[string]RootFunc),
		maskedWarned: make(map[string]bool),
		pluginsInfo:  make(map[string]map[string]any),
		maxDepth:     defaultMaxDepth,
		logger:       telemetry.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterModule adds a module, keeping the module list sorted by
// sequence. A module that declares a component category also registers
// the category's invocation list key.
func (r *Registry) RegisterModule(m Module) error {
	if m == nil {
		return fmt.Errorf("registry: module is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if ct := m.ComponentType(); ct != "" {
		if existing, ok := r.listKeys[ct]; ok && existing != m.ComponentListType() {
			return fmt.Errorf("registry: component category %q already declared with list key %q", ct, existing)
		}
		r.listKeys[ct] = m.ComponentListType()
	}
	r.modules = append(r.modules, m)
	sort.SliceStable(r.modules, func(i, j int) bool {
		return r.modules[i].Sequence() < r.modules[j].Sequence()
	})
	return nil
}

// Modules returns the registered modules in sequence order.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Module, len(r.modules))
	copy(out, r.modules)
	return out
}

// RegisterComponent registers a generator under a category and name. Two
// generators claiming the same name within one category is a
// configuration error.
func (r *Registry) RegisterComponent(category, name string, gen Generator) error {
	if gen == nil {
		return fmt.Errorf("registry: generator is required for %s/%s", category, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cat := r.generators[category]
	if cat == nil {
		cat = make(map[string]Generator)
		r.generators[category] = cat
	}
	if _, exists := cat[name]; exists {
		return errors.NewDuplicateDefinition(category, name)
	}
	cat[name] = gen
	r.logger.Debugf("registered component %s/%s", category, name)
	return nil
}

// Generator returns the generator registered under category and name.
func (r *Registry) Generator(category, name string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.generators[category][name]
	return gen, ok
}

// Components returns the sorted generator names for a category.
func (r *Registry) Components(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.generators[category]))
	for name := range r.generators[category] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterProject registers a project root builder for a project type.
func (r *Registry) RegisterProject(kind string, fn RootFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.projects[kind]; exists {
		return errors.NewDuplicateDefinition("project", kind)
	}
	r.projects[kind] = fn
	return nil
}

// Project returns the root builder for a project type.
func (r *Registry) Project(kind string) (RootFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.projects[kind]
	return fn, ok
}

// RegisterView registers a view root builder for a view type.
func (r *Registry) RegisterView(kind string, fn RootFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.views[kind]; exists {
		return errors.NewDuplicateDefinition("view", kind)
	}
	r.views[kind] = fn
	return nil
}

// View returns the root builder for a view type.
func (r *Registry) View(kind string) (RootFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.views[kind]
	return fn, ok
}

// AddMacro records a user-defined macro for a category. A macro defined
// twice replaces the earlier definition with a warning.
func (r *Registry) AddMacro(category string, m *Macro) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cat := r.macros[category]
	if cat == nil {
		cat = make(map[string]*Macro)
		r.macros[category] = cat
	}
	if _, exists := cat[m.Name]; exists {
		r.logger.Warnf("duplicate macro %q for category %q, later definition wins", m.Name, category)
	}
	cat[m.Name] = m
}

// Macro returns the macro registered under category and name.
func (r *Registry) Macro(category, name string) (*Macro, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.macros[category][name]
	return m, ok
}

// ListKey returns the invocation list key for a category.
func (r *Registry) ListKey(category string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.listKeys[category]
	return key, ok
}

// LoadPluginsInfo reads a plugin info document (a YAML list of plugin
// property mappings, as served by a CI controller's plugin manager API)
// and indexes it by both long and short plugin names.
func (r *Registry) LoadPluginsInfo(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var entries []map[string]any
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return errors.NewParse(fmt.Sprintf("malformed plugins info %q", path), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range entries {
		for _, key := range []string{"longName", "shortName"} {
			if name, ok := entry[key].(string); ok && name != "" {
				r.pluginsInfo[name] = entry
			}
		}
	}
	return nil
}

// GetPluginInfo returns the recorded properties for a plugin, letting
// generators vary output by plugin version. Unknown plugins yield an
// empty mapping.
func (r *Registry) GetPluginInfo(name string) map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, ok := r.pluginsInfo[name]; ok {
		return info
	}
	return map[string]any{}
}

// Logger returns the registry logger for generators that need to warn.
func (r *Registry) Logger() *telemetry.Logger {
	return r.logger
}
