// Package modules provides the built-in component generators: project
// roots, view roots, and the per-category modules that translate job
// definition keys into output XML. The set here covers the common
// freestyle surface; plugin manifests extend it at runtime.
package modules

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
)

// Attr declares one definition-key-to-element translation for
// ConvertMappingToXML. A nil Default marks the key required when the
// caller runs with failRequired.
type Attr struct {
	Key     string
	XML     string
	Default any

	// Options restricts the accepted values; Dict additionally rewrites
	// the accepted value before emission.
	Options []string
	Dict    map[string]string
}

// Text renders a scalar as element text. Booleans are lowercased to
// match the consuming controller's serialization.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// ConvertMappingToXML emits one child element per attribute, pulling
// values from data with declared defaults. A nil resolved value is a
// MissingAttribute error under failRequired and skipped otherwise.
// Values outside Options or Dict raise InvalidAttribute.
func ConvertMappingToXML(parent *etree.Element, data *localyaml.Mapping, attrs []Attr, failRequired bool) error {
	for _, attr := range attrs {
		val, ok := data.Get(attr.Key)
		if !ok || val == nil {
			val = attr.Default
		}
		if val == nil {
			if failRequired {
				return errors.NewMissingAttribute(attr.Key)
			}
			continue
		}

		text := Text(val)
		if attr.Dict != nil {
			mapped, ok := attr.Dict[text]
			if !ok {
				return errors.NewInvalidAttribute(attr.Key, val, dictKeys(attr.Dict))
			}
			text = mapped
		}
		if len(attr.Options) > 0 && !contains(attr.Options, text) {
			return errors.NewInvalidAttribute(attr.Key, val, attr.Options)
		}

		parent.CreateElement(attr.XML).SetText(text)
	}
	return nil
}

// AsMapping coerces generator arguments into a mapping, treating a
// missing argument block as empty.
func AsMapping(data any) (*localyaml.Mapping, error) {
	switch t := data.(type) {
	case nil:
		return localyaml.NewMapping(), nil
	case *localyaml.Mapping:
		return t, nil
	default:
		return nil, errors.NewParse(fmt.Sprintf("expected a mapping of arguments, got %T", data), nil)
	}
}

// scalarArg coerces generator arguments that are a bare scalar, like a
// shell command or cron spec.
func scalarArg(data any) (string, error) {
	switch t := data.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool, int, int64, uint64, float64:
		return Text(t), nil
	case *localyaml.Mapping:
		if t.Len() == 0 {
			return "", nil
		}
		return "", errors.NewParse("expected a scalar argument, got a mapping", nil)
	default:
		return "", errors.NewParse(fmt.Sprintf("expected a scalar argument, got %T", data), nil)
	}
}

func contains(options []string, val string) bool {
	for _, o := range options {
		if o == val {
			return true
		}
	}
	return false
}

func dictKeys(d map[string]string) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}

// stringList accepts either a single string or a list of strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, Text(item))
		}
		return out
	default:
		return []string{Text(t)}
	}
}

// findOrCreate returns the named child, creating it when absent. Used
// where two modules share one container element.
func findOrCreate(parent *etree.Element, tag string) *etree.Element {
	if el := parent.SelectElement(tag); el != nil {
		return el
	}
	return parent.CreateElement(tag)
}
