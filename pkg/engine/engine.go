// Package engine orchestrates one compilation run: loading definition
// documents, sorting them into jobs, views, and macros, and generating
// the output XML through the registry.
package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
	"github.com/jobforge/jobforge/pkg/modules"
	"github.com/jobforge/jobforge/pkg/plugins"
	"github.com/jobforge/jobforge/pkg/registry"
	"github.com/jobforge/jobforge/pkg/telemetry"
	"github.com/jobforge/jobforge/pkg/xmlgen"
)

// Options configures an engine run.
type Options struct {
	// SearchPath lists extra directories consulted when resolving
	// include directives.
	SearchPath []string

	// AllowEmptyVariables substitutes empty strings for missing
	// placeholders instead of failing.
	AllowEmptyVariables bool

	// Recursive walks definition directories recursively; Excludes
	// names directory basenames to skip during the walk.
	Recursive bool
	Excludes  []string

	// PluginsInfoPath optionally points at a plugin info YAML document.
	PluginsInfoPath string

	// PluginsDir optionally points at a directory of alias manifests
	// installed into the registry before compilation.
	PluginsDir string

	Logger  *telemetry.Logger
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer
}

// Engine compiles YAML job definitions into XML documents. Each Run
// call is an isolated session: anchors, macros, and registered
// components never leak between runs.
type Engine struct {
	opts   Options
	logger *telemetry.Logger
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = telemetry.Default()
	}
	return &Engine{opts: opts, logger: opts.Logger.NewComponentLogger("engine")}
}

// Result holds the generated documents of one run.
type Result struct {
	Jobs  []*xmlgen.Job
	Views []*xmlgen.Job
}

// Filter keeps only jobs and views whose names match at least one of
// the given glob patterns. No patterns keeps everything.
func (r *Result) Filter(globs []string) *Result {
	if len(globs) == 0 {
		return r
	}
	match := func(name string) bool {
		for _, glob := range globs {
			if ok, err := path.Match(glob, name); err == nil && ok {
				return true
			}
		}
		return false
	}
	filtered := &Result{}
	for _, job := range r.Jobs {
		if match(job.Name) {
			filtered.Jobs = append(filtered.Jobs, job)
		}
	}
	for _, view := range r.Views {
		if match(view.Name) {
			filtered.Views = append(filtered.Views, view)
		}
	}
	return filtered
}

// Run loads every definition file under the given paths and generates
// the job and view documents.
func (e *Engine) Run(ctx context.Context, paths []string) (*Result, error) {
	run := telemetry.NewRun(e.logger, e.opts.Metrics)
	logger := run.Logger()

	var span = telemetry.SpanFromContext(ctx)
	if e.opts.Tracer != nil {
		ctx, span = e.opts.Tracer.StartRunSpan(ctx, run.ID)
		defer span.End()
	}

	result, err := e.run(ctx, logger, paths)
	if err != nil {
		telemetry.RecordError(span, err)
		run.Finish(0, 0, err)
		return nil, err
	}
	telemetry.RecordSuccess(span)
	run.Finish(len(result.Jobs), len(result.Views), nil)
	return result, nil
}

func (e *Engine) run(ctx context.Context, logger *telemetry.Logger, paths []string) (*Result, error) {
	reg := registry.New(
		registry.WithLogger(logger),
		registry.WithMetrics(e.opts.Metrics),
		registry.WithAllowEmptyVariables(e.opts.AllowEmptyVariables),
	)
	if err := modules.Register(reg); err != nil {
		return nil, err
	}
	if e.opts.PluginsInfoPath != "" {
		if err := reg.LoadPluginsInfo(e.opts.PluginsInfoPath); err != nil {
			return nil, fmt.Errorf("loading plugins info: %w", err)
		}
	}
	if e.opts.PluginsDir != "" {
		if err := plugins.NewLoader(logger).LoadDir(reg, e.opts.PluginsDir); err != nil {
			return nil, err
		}
	}

	files, err := e.collectFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no definition files found under %v", paths)
	}

	session := localyaml.NewSession(
		localyaml.WithSearchPath(e.opts.SearchPath...),
		localyaml.WithAllowEmptyVariables(e.opts.AllowEmptyVariables),
		localyaml.WithLogger(logger),
		localyaml.WithMetrics(e.opts.Metrics),
	)

	var jobs, views []*localyaml.Mapping
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var loadSpan = telemetry.SpanFromContext(ctx)
		if e.opts.Tracer != nil {
			_, loadSpan = e.opts.Tracer.StartLoadSpan(ctx, file)
		}
		docs, err := session.ParseFile(file)
		if e.opts.Tracer != nil {
			if err != nil {
				telemetry.RecordError(loadSpan, err)
			} else {
				telemetry.RecordSuccess(loadSpan)
			}
			loadSpan.End()
		}
		if err != nil {
			return nil, err
		}

		fileJobs, fileViews, err := collectDefinitions(reg, logger, file, docs)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, fileJobs...)
		views = append(views, fileViews...)
	}

	gen := xmlgen.NewGenerator(reg)
	xmlJobs, err := gen.GenerateJobs(jobs)
	if err != nil {
		return nil, err
	}
	xmlViews, err := gen.GenerateViews(views)
	if err != nil {
		return nil, err
	}
	if e.opts.Metrics != nil {
		for range xmlJobs {
			e.opts.Metrics.RecordJobGenerated()
		}
		for range xmlViews {
			e.opts.Metrics.RecordViewGenerated()
		}
	}
	return &Result{Jobs: xmlJobs, Views: xmlViews}, nil
}

// collectDefinitions sorts a file's documents into job and view
// definitions, registering macros as a side effect. A top-level key
// equal to a registered component category defines a macro for that
// category.
func collectDefinitions(reg *registry.Registry, logger *telemetry.Logger, file string, docs []any) ([]*localyaml.Mapping, []*localyaml.Mapping, error) {
	var jobs, views []*localyaml.Mapping

	var walk func(v any) error
	walk = func(v any) error {
		switch t := v.(type) {
		case nil:
			return nil
		case []any:
			for _, item := range t {
				if err := walk(item); err != nil {
					return err
				}
			}
			return nil
		case *localyaml.Mapping:
			if t.Len() != 1 {
				return errors.NewParse(
					fmt.Sprintf("%s: each definition must have exactly one top-level key, got %d", file, t.Len()), nil)
			}
			key := fmt.Sprint(t.Keys()[0])
			value, _ := t.Get(t.Keys()[0])
			def, ok := value.(*localyaml.Mapping)
			if !ok {
				return errors.NewParse(fmt.Sprintf("%s: %q definition must be a mapping", file, key), nil)
			}
			switch key {
			case "job":
				jobs = append(jobs, def)
			case "view":
				views = append(views, def)
			default:
				if listKey, ok := reg.ListKey(key); ok {
					return addMacro(reg, logger, key, listKey, def)
				}
				return errors.NewParse(fmt.Sprintf("%s: unknown definition kind %q", file, key), nil)
			}
			return nil
		default:
			return errors.NewParse(fmt.Sprintf("%s: definition must be a mapping, got %T", file, v), nil)
		}
	}

	for _, doc := range docs {
		if err := walk(doc); err != nil {
			return nil, nil, err
		}
	}
	return jobs, views, nil
}

func addMacro(reg *registry.Registry, logger *telemetry.Logger, category, listKey string, def *localyaml.Mapping) error {
	name, ok := def.Get("name")
	if !ok || name == nil {
		return errors.NewMissingAttribute("name")
	}
	var params []string
	if raw, ok := def.Get("parameters"); ok {
		if list, ok := raw.([]any); ok {
			for _, p := range list {
				params = append(params, fmt.Sprint(p))
			}
		}
	}
	macro := &registry.Macro{
		Name:   fmt.Sprint(name),
		Params: params,
		Body:   def.Slice(listKey),
	}
	reg.AddMacro(category, macro)
	logger.WithCategory(category).Debugf("registered macro %q", macro.Name)
	return nil
}

// collectFiles expands the given paths into a sorted list of YAML
// definition files.
func (e *Engine) collectFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	excluded := func(base string) bool {
		for _, ex := range e.opts.Excludes {
			if base == ex {
				return true
			}
		}
		return false
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading definition path: %w", err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(entry string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if entry != p && (excluded(d.Name()) || !e.opts.Recursive) {
					return fs.SkipDir
				}
				return nil
			}
			if isYAML(entry) {
				add(entry)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
