// Package format implements placeholder substitution for component
// definitions and include paths. The grammar follows the template syntax
// used throughout job definitions: {name} substitutes a variable, while
// doubled braces ({{ and }}) emit literal brace characters.
package format

import (
	"fmt"
	"strings"

	"github.com/jobforge/jobforge/pkg/errors"
)

// Interpolate substitutes {name} placeholders in s from vars. Doubled
// braces escape to literal braces. A placeholder with no matching variable
// yields a substitution error unless allowEmpty is true, in which case it
// substitutes the empty string.
func Interpolate(s string, vars map[string]any, allowEmpty bool) (string, error) {
	out, _, err := interpolate(s, vars, allowEmpty)
	return out, err
}

// Missing returns the placeholder names in s that have no matching entry
// in vars, in order of appearance. It reports nothing for malformed
// templates; those surface through Interpolate.
func Missing(s string, vars map[string]any) []string {
	_, missing, err := interpolate(s, vars, true)
	if err != nil {
		return nil
	}
	return missing
}

// HasPlaceholders reports whether s contains at least one unescaped
// placeholder.
func HasPlaceholders(s string) bool {
	return len(Missing(s, nil)) > 0
}

func interpolate(s string, vars map[string]any, allowEmpty bool) (string, []string, error) {
	var (
		b       strings.Builder
		missing []string
	)
	for i := 0; i < len(s); {
		c := s[i]
		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return "", nil, errors.NewParse(fmt.Sprintf("unterminated placeholder in %q", s), nil)
			}
			name := s[i+1 : i+end]
			if strings.ContainsAny(name, "{") {
				return "", nil, errors.NewParse(fmt.Sprintf("malformed placeholder in %q", s), nil)
			}
			val, ok := vars[name]
			if !ok {
				missing = append(missing, name)
				if !allowEmpty {
					return "", nil, errors.NewSubstitution(name)
				}
			} else {
				b.WriteString(stringify(val))
			}
			i += end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			return "", nil, errors.NewParse(fmt.Sprintf("single '}' encountered in %q", s), nil)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), missing, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		// XML output uses lowercase booleans, so substituted values do too.
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}

// EscapeBraces doubles every literal brace character. It is the default
// escape function applied to raw-escaped inclusions so that template
// interpolation later leaves the included content untouched.
func EscapeBraces(s string) string {
	s = strings.ReplaceAll(s, "{", "{{")
	return strings.ReplaceAll(s, "}", "}}")
}
