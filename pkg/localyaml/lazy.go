package localyaml

import (
	"fmt"
	"strings"

	"github.com/jobforge/jobforge/pkg/format"
)

// Resolvable is a deferred value produced during parsing and consumed
// during argument interpolation: resolving it with a substitution-argument
// set yields the concrete included content.
type Resolvable interface {
	Resolve(args map[string]any) (any, error)
}

// LazyRef is a deferred inclusion whose path contains unresolved
// placeholders. It holds the directive kind, the originating loader's
// search context, and the raw path expression; Resolve substitutes the
// arguments into the path and re-runs the directive's normal resolution.
type LazyRef struct {
	kind   IncludeKind
	path   string
	loader *loader
}

// Resolve substitutes args into the stored path and resolves the
// directive: a parsed document for inline includes, text for raw ones.
func (r *LazyRef) Resolve(args map[string]any) (any, error) {
	path, err := format.Interpolate(r.path, args, r.loader.session.allowEmpty)
	if err != nil {
		return nil, err
	}
	r.loader.session.metrics.RecordLazyResolution()
	return r.loader.resolvePath(r.kind, path)
}

// Kind returns the directive kind the reference will resolve with.
func (r *LazyRef) Kind() IncludeKind {
	return r.kind
}

// Path returns the unresolved path expression.
func (r *LazyRef) Path() string {
	return r.path
}

func (r *LazyRef) String() string {
	return fmt.Sprintf("%s %s", r.kind.Tag(), r.path)
}

// LazyCollection is a multi-file include where at least one member path
// was deferred. Every member resolves with the same argument set and the
// raw contents join with single newlines, matching the eager multi-path
// join rule.
type LazyCollection struct {
	refs []*LazyRef
}

// Resolve resolves each member with args. String results join with
// newlines; anything else (inline documents) concatenates into a list.
func (c *LazyCollection) Resolve(args map[string]any) (any, error) {
	parts := make([]any, 0, len(c.refs))
	allStrings := true
	for _, ref := range c.refs {
		v, err := ref.Resolve(args)
		if err != nil {
			return nil, err
		}
		if _, ok := v.(string); !ok {
			allStrings = false
		}
		parts = append(parts, v)
	}
	if allStrings {
		joined := make([]string, len(parts))
		for i, p := range parts {
			joined[i] = p.(string)
		}
		return strings.Join(joined, "\n"), nil
	}
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		if docs, ok := p.([]any); ok {
			out = append(out, docs...)
		} else {
			out = append(out, p)
		}
	}
	return out, nil
}

// Refs returns the deferred members in source order.
func (c *LazyCollection) Refs() []*LazyRef {
	return c.refs
}

func (c *LazyCollection) String() string {
	parts := make([]string, len(c.refs))
	for i, r := range c.refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
