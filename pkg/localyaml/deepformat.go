package localyaml

import (
	"github.com/jobforge/jobforge/pkg/format"
)

// DeepFormat interpolates template arguments into every string inside v,
// recursing through mappings and sequences. Mapping keys interpolate too.
// Deferred inclusions resolve with the same argument set, which is the
// point where lazy references are consumed and replaced by concrete
// content. Non-string scalars pass through unchanged.
func DeepFormat(v any, vars map[string]any, allowEmpty bool) (any, error) {
	switch t := v.(type) {
	case string:
		return format.Interpolate(t, vars, allowEmpty)
	case *Mapping:
		out := NewMapping()
		for _, key := range t.Keys() {
			fk, err := DeepFormat(key, vars, allowEmpty)
			if err != nil {
				return nil, err
			}
			value, _ := t.Get(key)
			fv, err := DeepFormat(value, vars, allowEmpty)
			if err != nil {
				return nil, err
			}
			if err := out.Set(fk, fv); err != nil {
				return nil, err
			}
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			fv, err := DeepFormat(item, vars, allowEmpty)
			if err != nil {
				return nil, err
			}
			out[i] = fv
		}
		return out, nil
	case Resolvable:
		return t.Resolve(vars)
	default:
		return v, nil
	}
}
