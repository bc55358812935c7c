// Package localyaml parses job definition documents. It extends plain YAML
// with inclusion directives (!include:, !include-raw:, !include-raw-escape:),
// keeps mapping keys in insertion order, and persists anchors across every
// document parsed within one Session so a later file can reference an anchor
// defined in an earlier one.
package localyaml

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/format"
	"github.com/jobforge/jobforge/pkg/telemetry"
)

// EscapeFunc transforms raw-escaped include content before it is returned.
type EscapeFunc func(string) string

// IncludeKind identifies one of the closed set of inclusion directives.
type IncludeKind int

const (
	// IncludeInline parses the included content as a nested document.
	IncludeInline IncludeKind = iota
	// IncludeRaw includes the file as literal text.
	IncludeRaw
	// IncludeRawEscaped includes literal text with brace escaping applied.
	IncludeRawEscaped
)

// Tag returns the canonical directive spelling for the kind.
func (k IncludeKind) Tag() string {
	switch k {
	case IncludeInline:
		return "!include:"
	case IncludeRaw:
		return "!include-raw:"
	case IncludeRawEscaped:
		return "!include-raw-escape:"
	}
	return "!include:"
}

// directive behavior is table-driven: whether the content is re-parsed as a
// document and whether the escape function runs on eager resolution.
type directiveSpec struct {
	kind       IncludeKind
	deprecated bool
}

var includeTags = map[string]directiveSpec{
	"!include:":            {kind: IncludeInline},
	"!include-raw:":        {kind: IncludeRaw},
	"!include-raw-escape:": {kind: IncludeRawEscaped},

	// Deprecated spellings without the trailing colon delegate fully to
	// their replacements after a non-fatal warning.
	"!include":            {kind: IncludeInline, deprecated: true},
	"!include-raw":        {kind: IncludeRaw, deprecated: true},
	"!include-raw-escape": {kind: IncludeRawEscaped, deprecated: true},
}

// Option configures a Session.
type Option func(*Session)

// WithSearchPath adds extra directories searched for included files before
// the current document's directory and the working directory.
func WithSearchPath(dirs ...string) Option {
	return func(s *Session) {
		for _, d := range dirs {
			s.extraDirs = append(s.extraDirs, filepath.Clean(d))
		}
	}
}

// WithEscapeFunc overrides the escape function applied to raw-escaped
// inclusions. The default doubles every literal brace.
func WithEscapeFunc(fn EscapeFunc) Option {
	return func(s *Session) { s.escape = fn }
}

// WithAllowEmptyVariables tolerates missing placeholders during lazy path
// resolution, substituting empty strings instead of failing.
func WithAllowEmptyVariables(allow bool) Option {
	return func(s *Session) { s.allowEmpty = allow }
}

// WithLogger sets the session logger.
func WithLogger(logger *telemetry.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics attaches a metrics collector recording include and lazy
// resolution counts.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session is one loading session: an anchor table plus loader options. The
// anchor table accumulates across every document parsed through the same
// Session and is cleared only by Reset. A Session is not safe for
// concurrent use; give each concurrent load its own instance.
type Session struct {
	anchors    map[string]any
	extraDirs  []string
	escape     EscapeFunc
	allowEmpty bool
	logger     *telemetry.Logger
	metrics    *telemetry.Metrics
}

// NewSession creates a fresh session with an empty anchor table.
func NewSession(opts ...Option) *Session {
	s := &Session{
		anchors: make(map[string]any),
		escape:  format.EscapeBraces,
		logger:  telemetry.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reset clears the anchor table, returning the session to its fresh state.
func (s *Session) Reset() {
	s.anchors = make(map[string]any)
}

// Load is a convenience for a fresh top-level load: it creates a new
// session and parses one file.
func Load(path string, opts ...Option) ([]any, error) {
	return NewSession(opts...).ParseFile(path)
}

// ParseFile parses every document in the file at path, resolving inclusion
// directives relative to the session search path plus the file's directory.
// Anchors accumulate into the session.
func (s *Session) ParseFile(path string) ([]any, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return s.ParseBytes(src, path)
}

// ParseBytes parses documents from src. name is used for diagnostics and,
// when non-empty, contributes its directory to the include search path.
func (s *Session) ParseBytes(src []byte, name string) ([]any, error) {
	l := &loader{session: s, filename: name, searchPath: s.searchPathFor(name)}
	return l.parse(src)
}

// searchPathFor composes the effective include search path for a document:
// configured extra directories in caller order, then the directory
// containing the document (if known), then the current working directory.
// This order is load-bearing; the first existing candidate wins.
func (s *Session) searchPathFor(name string) []string {
	path := make([]string, 0, len(s.extraDirs)+2)
	path = append(path, s.extraDirs...)
	if name != "" {
		path = append(path, filepath.Clean(filepath.Dir(name)))
	}
	return append(path, ".")
}

// loader carries the per-document parse state: the owning session and the
// effective search path. Nested inline includes reuse the same loader so
// nested directives resolve against the including document's search path.
type loader struct {
	session    *Session
	filename   string
	searchPath []string
}

func (l *loader) parse(src []byte) ([]any, error) {
	file, err := parser.ParseBytes(src, 0)
	if err != nil {
		return nil, errors.NewParse(fmt.Sprintf("malformed document %q", l.filename), err)
	}
	docs := make([]any, 0, len(file.Docs))
	for _, doc := range file.Docs {
		if doc.Body == nil {
			continue
		}
		v, err := l.convert(doc.Body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, v)
	}
	return docs, nil
}

func (l *loader) convert(node ast.Node) (any, error) {
	switch n := node.(type) {
	case *ast.MappingNode:
		return l.convertMapping(n.Values)
	case *ast.MappingValueNode:
		return l.convertMapping([]*ast.MappingValueNode{n})
	case *ast.SequenceNode:
		out := make([]any, 0, len(n.Values))
		for _, item := range n.Values {
			v, err := l.convert(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *ast.StringNode:
		return n.Value, nil
	case *ast.LiteralNode:
		return n.Value.Value, nil
	case *ast.IntegerNode:
		return n.Value, nil
	case *ast.FloatNode:
		return n.Value, nil
	case *ast.BoolNode:
		return n.Value, nil
	case *ast.NullNode:
		return nil, nil
	case *ast.InfinityNode:
		return n.Value, nil
	case *ast.NanNode:
		return math.NaN(), nil
	case *ast.MappingKeyNode:
		return l.convert(n.Value)
	case *ast.AnchorNode:
		name := n.Name.GetToken().Value
		v, err := l.convert(n.Value)
		if err != nil {
			return nil, err
		}
		l.session.anchors[name] = v
		return v, nil
	case *ast.AliasNode:
		name := n.Value.GetToken().Value
		v, ok := l.session.anchors[name]
		if !ok {
			return nil, errors.NewParse(fmt.Sprintf("unknown anchor %q referenced in %q", name, l.filename), nil)
		}
		return v, nil
	case *ast.TagNode:
		return l.convertTag(n)
	default:
		return nil, errors.NewParse(fmt.Sprintf("unsupported node %s in %q", node.Type(), l.filename), nil)
	}
}

func (l *loader) convertMapping(values []*ast.MappingValueNode) (any, error) {
	m := NewMapping()
	for _, pair := range values {
		if _, isMerge := pair.Key.(*ast.MergeKeyNode); isMerge {
			if err := l.mergeInto(m, pair.Value); err != nil {
				return nil, err
			}
			continue
		}
		key, err := l.convert(pair.Key)
		if err != nil {
			return nil, err
		}
		value, err := l.convert(pair.Value)
		if err != nil {
			return nil, err
		}
		if err := m.Set(key, value); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// mergeInto handles the YAML merge key (<<), accepting either one alias or
// a sequence of aliases. Explicit keys keep precedence over merged ones.
func (l *loader) mergeInto(m *Mapping, value ast.Node) error {
	sources := []ast.Node{value}
	if seq, ok := value.(*ast.SequenceNode); ok {
		sources = seq.Values
	}
	for _, src := range sources {
		v, err := l.convert(src)
		if err != nil {
			return err
		}
		nested, ok := v.(*Mapping)
		if !ok {
			return errors.NewParse(fmt.Sprintf("merge key expects a mapping in %q", l.filename), nil)
		}
		m.Merge(nested)
	}
	return nil
}

func (l *loader) convertTag(n *ast.TagNode) (any, error) {
	tag := n.Start.Value
	spec, ok := includeTags[tag]
	if !ok {
		// Standard YAML tags (!!str and friends) pass through to the
		// underlying value; anything else is unsupported syntax.
		if strings.HasPrefix(tag, "!!") {
			return l.convert(n.Value)
		}
		return nil, errors.NewParse(fmt.Sprintf("unsupported tag %q in %q", tag, l.filename), nil)
	}
	if spec.deprecated {
		l.session.logger.Warnf("tag %q is deprecated, switch to using %q", tag, spec.kind.Tag())
	}
	return l.include(spec.kind, n.Value)
}

// include resolves one inclusion directive, accepting a scalar path or a
// sequence of paths.
func (l *loader) include(kind IncludeKind, node ast.Node) (any, error) {
	switch n := node.(type) {
	case *ast.StringNode:
		return l.includePath(kind, n.Value)
	case *ast.LiteralNode:
		return l.includePath(kind, n.Value.Value)
	case *ast.SequenceNode:
		return l.includeSequence(kind, n)
	default:
		return nil, errors.NewParse(
			fmt.Sprintf("expected a scalar or sequence node for %s in %q, found %s", kind.Tag(), l.filename, node.Type()), nil)
	}
}

func (l *loader) includePath(kind IncludeKind, path string) (any, error) {
	if lazy := l.lazyRef(kind, path); lazy != nil {
		return lazy, nil
	}
	return l.resolvePath(kind, path)
}

// lazyRef returns a deferred reference when path contains unresolved
// placeholders, detected by attempting zero-argument interpolation.
func (l *loader) lazyRef(kind IncludeKind, path string) *LazyRef {
	if _, err := format.Interpolate(path, nil, false); !errors.IsSubstitution(err) {
		return nil
	}
	if kind == IncludeRawEscaped {
		// Escaping would garble content that is interpolated later, so a
		// lazy raw-escape downgrades to a plain raw include.
		l.session.logger.Warnf("replacing %q tag with %q since lazy loading means file contents will not be escaped for variable substitution",
			IncludeRawEscaped.Tag(), IncludeRaw.Tag())
		kind = IncludeRaw
	}
	l.session.logger.Infof("lazy loading of file template %q enabled", path)
	return &LazyRef{kind: kind, path: path, loader: l}
}

// resolvePath runs the eager resolution logic for one concrete path:
// search, read, then parse or escape per the directive kind.
func (l *loader) resolvePath(kind IncludeKind, path string) (any, error) {
	filename := l.findFile(path)
	content, err := os.ReadFile(filename)
	if err != nil {
		l.session.logger.Errorf("failed to include file using search path %q", strings.Join(l.searchPath, ":"))
		return nil, errors.NewIncludeResolution(path, l.searchPath, err)
	}
	l.session.metrics.RecordIncludeResolved(kind.Tag())

	switch kind {
	case IncludeInline:
		nested := &loader{session: l.session, filename: filename, searchPath: l.searchPath}
		docs, err := nested.parse(content)
		if err != nil {
			return nil, err
		}
		if len(docs) == 1 {
			return docs[0], nil
		}
		return docs, nil
	case IncludeRawEscaped:
		return l.session.escape(string(content)), nil
	default:
		return string(content), nil
	}
}

// findFile returns the first existing candidate along the search path, or
// the raw path when nothing matches so the failure surfaces as a read
// error at the caller.
func (l *loader) findFile(path string) string {
	for _, dir := range l.searchPath {
		candidate := filepath.Join(dir, path)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			l.session.logger.Infof("including file %q from path %q", path, dir)
			return candidate
		}
	}
	return path
}

// includeSequence resolves a multi-path include. When every member is
// eager, raw variants concatenate with a single newline and inline
// variants concatenate nested documents. If any member is lazy the whole
// sequence becomes a LazyCollection resolving with one argument set.
func (l *loader) includeSequence(kind IncludeKind, seq *ast.SequenceNode) (any, error) {
	paths := make([]string, 0, len(seq.Values))
	anyLazy := false
	for _, item := range seq.Values {
		var p string
		switch n := item.(type) {
		case *ast.StringNode:
			p = n.Value
		case *ast.LiteralNode:
			p = n.Value.Value
		default:
			return nil, errors.NewParse(
				fmt.Sprintf("expected scalar paths for %s in %q, found %s", kind.Tag(), l.filename, item.Type()), nil)
		}
		paths = append(paths, p)
		if _, err := format.Interpolate(p, nil, false); errors.IsSubstitution(err) {
			anyLazy = true
		}
	}

	if anyLazy {
		memberKind := kind
		if kind == IncludeRawEscaped {
			l.session.logger.Warnf("replacing %q tag with %q since lazy loading means file contents will not be escaped for variable substitution",
				IncludeRawEscaped.Tag(), IncludeRaw.Tag())
			memberKind = IncludeRaw
		}
		refs := make([]*LazyRef, 0, len(paths))
		for _, p := range paths {
			refs = append(refs, &LazyRef{kind: memberKind, path: p, loader: l})
		}
		return &LazyCollection{refs: refs}, nil
	}

	if kind == IncludeInline {
		var out []any
		for _, p := range paths {
			v, err := l.resolvePath(kind, p)
			if err != nil {
				return nil, err
			}
			if docs, ok := v.([]any); ok {
				out = append(out, docs...)
			} else {
				out = append(out, v)
			}
		}
		return out, nil
	}

	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		v, err := l.resolvePath(IncludeRaw, p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, v.(string))
	}
	joined := strings.Join(parts, "\n")
	if kind == IncludeRawEscaped {
		joined = l.session.escape(joined)
	}
	return joined, nil
}
