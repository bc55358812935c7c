// Package plugins extends the component catalog from YAML manifests.
// A manifest declares aliases: new component names bound to an existing
// generator with default arguments merged under each invocation.
package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/beevik/etree"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
	"github.com/jobforge/jobforge/pkg/registry"
	"github.com/jobforge/jobforge/pkg/telemetry"
)

// Manifest is one plugin manifest file.
type Manifest struct {
	Name    string  `yaml:"name" validate:"required"`
	Version string  `yaml:"version"`
	Aliases []Alias `yaml:"aliases" validate:"required,min=1,dive"`
}

// Alias binds a new component name to an existing generator, with
// optional default argument values.
type Alias struct {
	Category string         `yaml:"category" validate:"required"`
	Name     string         `yaml:"name" validate:"required"`
	Target   string         `yaml:"target" validate:"required"`
	Defaults map[string]any `yaml:"defaults"`
}

// Loader reads manifests and installs their aliases into a registry.
type Loader struct {
	validate *validator.Validate
	logger   *telemetry.Logger
}

// NewLoader creates a manifest loader.
func NewLoader(logger *telemetry.Logger) *Loader {
	if logger == nil {
		logger = telemetry.Default()
	}
	return &Loader{
		validate: validator.New(),
		logger:   logger.NewComponentLogger("plugins"),
	}
}

// LoadDir installs every *.yaml manifest under dir, in name order. A
// missing directory is not an error.
func (l *Loader) LoadDir(reg *registry.Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading plugin directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ext := filepath.Ext(entry.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := l.LoadFile(reg, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile installs the aliases of a single manifest.
func (l *Loader) LoadFile(reg *registry.Registry, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return errors.NewParse(fmt.Sprintf("malformed plugin manifest %q", path), err)
	}
	if err := l.validate.Struct(&manifest); err != nil {
		return errors.NewParse(fmt.Sprintf("invalid plugin manifest %q", path), err)
	}
	return l.install(reg, &manifest)
}

func (l *Loader) install(reg *registry.Registry, manifest *Manifest) error {
	logger := l.logger.WithField("plugin", manifest.Name)
	for _, alias := range manifest.Aliases {
		target, ok := reg.Generator(alias.Category, alias.Target)
		if !ok {
			return errors.NewUnknownComponent(alias.Category, alias.Target)
		}
		gen := aliasGenerator(target, alias.Defaults)
		if err := reg.RegisterComponent(alias.Category, alias.Name, gen); err != nil {
			return err
		}
		logger.WithCategory(alias.Category).Debugf("registered alias %q -> %q", alias.Name, alias.Target)
	}
	return nil
}

// aliasGenerator wraps a generator so invocation arguments are laid
// over the alias defaults. Explicitly passed keys win.
func aliasGenerator(target registry.Generator, defaults map[string]any) registry.Generator {
	return func(reg *registry.Registry, parent *etree.Element, data any) error {
		if len(defaults) == 0 {
			return target(reg, parent, data)
		}
		args, ok := data.(*localyaml.Mapping)
		if !ok {
			// Scalar arguments bypass default merging.
			if data == nil {
				args = localyaml.NewMapping()
			} else {
				return target(reg, parent, data)
			}
		}

		merged := localyaml.NewMapping()
		keys := make([]string, 0, len(defaults))
		for key := range defaults {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := merged.Set(key, defaults[key]); err != nil {
				return err
			}
		}
		for _, key := range args.Keys() {
			val, _ := args.Get(key)
			if err := merged.Set(key, val); err != nil {
				return err
			}
		}
		return target(reg, parent, merged)
	}
}
