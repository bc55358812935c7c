package registry

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
)

// Dispatch resolves one component invocation and emits its XML under
// parent. A bare string invokes the component with empty arguments; a
// single-entry mapping invokes its key with its value as arguments.
// Arguments are interpolated with templateData when present, then a
// user macro is preferred over an inbuilt generator of the same name.
// Macro bodies dispatch recursively with the invocation arguments as
// the new template data.
func (r *Registry) Dispatch(category string, parent *etree.Element, component any, templateData map[string]any) error {
	return r.dispatch(category, parent, component, templateData, 0)
}

func (r *Registry) dispatch(category string, parent *etree.Element, component any, templateData map[string]any, depth int) error {
	if depth > r.maxDepth {
		err := fmt.Errorf("macro recursion limit (%d) exceeded dispatching %s component %v", r.maxDepth, category, componentName(component))
		r.recordError(err)
		return err
	}
	if _, known := r.ListKey(category); !known {
		err := fmt.Errorf("unknown component category %q", category)
		r.recordError(err)
		return err
	}

	name, args, err := splitComponent(component)
	if err != nil {
		r.recordError(err)
		return err
	}

	if len(templateData) > 0 {
		args, err = localyaml.DeepFormat(args, templateData, r.allowEmpty)
		if err != nil {
			r.recordError(err)
			return err
		}
	}

	if macro, ok := r.Macro(category, name); ok {
		r.warnIfMasked(category, name)
		if r.metrics != nil {
			r.metrics.RecordMacroExpansion()
		}
		nested := argsAsVars(args)
		for _, member := range macro.Body {
			if err := r.dispatch(category, parent, member, nested, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	gen, ok := r.Generator(category, name)
	if !ok {
		err := errors.NewUnknownComponent(category, name)
		r.recordError(err)
		return err
	}
	if err := gen(r, parent, args); err != nil {
		r.recordError(err)
		return err
	}
	return nil
}

// splitComponent normalizes an invocation into a component name and its
// raw arguments. Scalar arguments (for example a bare cron spec) pass
// through unchanged for the generator to interpret.
func splitComponent(component any) (string, any, error) {
	switch c := component.(type) {
	case string:
		return c, localyaml.NewMapping(), nil
	case *localyaml.Mapping:
		if c.Len() != 1 {
			return "", nil, errors.NewParse(
				fmt.Sprintf("component invocation must be a name or a single-entry mapping, got %d entries", c.Len()), nil)
		}
		key := c.Keys()[0]
		name, ok := key.(string)
		if !ok {
			return "", nil, errors.NewParse(fmt.Sprintf("component name must be a string, got %T", key), nil)
		}
		args, _ := c.Get(name)
		if args == nil {
			args = localyaml.NewMapping()
		}
		return name, args, nil
	default:
		return "", nil, errors.NewParse(fmt.Sprintf("component invocation must be a name or mapping, got %T", component), nil)
	}
}

// argsAsVars converts macro invocation arguments into the variable set
// the macro body is interpolated with. Non-mapping arguments expose no
// variables.
func argsAsVars(args any) map[string]any {
	m, ok := args.(*localyaml.Mapping)
	if !ok {
		return map[string]any{}
	}
	vars := make(map[string]any, m.Len())
	for _, key := range m.Keys() {
		value, _ := m.Get(key)
		vars[fmt.Sprint(key)] = value
	}
	return vars
}

func (r *Registry) warnIfMasked(category, name string) {
	if _, isInbuilt := r.Generator(category, name); !isInbuilt {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := category + "." + name
	if r.maskedWarned[key] {
		return
	}
	r.maskedWarned[key] = true
	r.logger.Warnf("macro %q is masking an inbuilt definition in category %q", name, category)
}

func componentName(component any) any {
	if m, ok := component.(*localyaml.Mapping); ok && m.Len() == 1 {
		return m.Keys()[0]
	}
	return component
}

func (r *Registry) recordError(err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordDispatchError(errors.KindOf(err))
}
