package modules

import (
	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
	"github.com/jobforge/jobforge/pkg/registry"
)

// Parameters nests parameter definitions under the shared properties
// container and dispatches each entry through the registry.
type Parameters struct{}

func (Parameters) Name() string              { return "parameters" }
func (Parameters) Sequence() int             { return 21 }
func (Parameters) ComponentType() string     { return "parameter" }
func (Parameters) ComponentListType() string { return "parameters" }

func (Parameters) GenXML(reg *registry.Registry, root *etree.Element, data *localyaml.Mapping) error {
	params := data.Slice("parameters")
	if len(params) == 0 {
		return nil
	}
	properties := findOrCreate(root, "properties")
	pdefp := findOrCreate(properties, "hudson.model.ParametersDefinitionProperty")
	pdefs := findOrCreate(pdefp, "parameterDefinitions")
	for _, param := range params {
		if err := reg.Dispatch("parameter", pdefs, param, nil); err != nil {
			return err
		}
	}
	return nil
}

// baseParam emits the name/description skeleton shared by every
// parameter definition and, when withDefault, the defaultValue element.
func baseParam(parent *etree.Element, data any, withDefault bool, ptype string) (*etree.Element, error) {
	args, err := AsMapping(data)
	if err != nil {
		return nil, err
	}
	name, ok := args.Get("name")
	if !ok || name == nil {
		return nil, errors.NewMissingAttribute("name")
	}
	pdef := parent.CreateElement(ptype)
	pdef.CreateElement("name").SetText(Text(name))
	pdef.CreateElement("description").SetText(args.String("description", ""))
	if withDefault {
		def := pdef.CreateElement("defaultValue")
		if v, ok := args.Get("default"); ok && v != nil {
			def.SetText(Text(v))
		}
	}
	return pdef, nil
}

// StringParam defines a free-form string parameter.
func StringParam(reg *registry.Registry, parent *etree.Element, data any) error {
	_, err := baseParam(parent, data, true, "hudson.model.StringParameterDefinition")
	return err
}

// TextParam defines a multi-line text parameter.
func TextParam(reg *registry.Registry, parent *etree.Element, data any) error {
	_, err := baseParam(parent, data, true, "hudson.model.TextParameterDefinition")
	return err
}

// BoolParam defines a boolean parameter, defaulting false.
func BoolParam(reg *registry.Registry, parent *etree.Element, data any) error {
	args, err := AsMapping(data)
	if err != nil {
		return err
	}
	normalized := localyaml.NewMapping()
	for _, key := range args.Keys() {
		v, _ := args.Get(key)
		normalized.Set(key, v)
	}
	normalized.Set("default", Text(args.Bool("default", false)))
	_, err = baseParam(parent, normalized, true, "hudson.model.BooleanParameterDefinition")
	return err
}

// PasswordParam defines a password parameter.
func PasswordParam(reg *registry.Registry, parent *etree.Element, data any) error {
	_, err := baseParam(parent, data, true, "hudson.model.PasswordParameterDefinition")
	return err
}

// FileParam defines a file upload parameter; the name is the target
// location for the upload.
func FileParam(reg *registry.Registry, parent *etree.Element, data any) error {
	_, err := baseParam(parent, data, false, "hudson.model.FileParameterDefinition")
	return err
}

// ChoiceParam defines a single-selection parameter.
func ChoiceParam(reg *registry.Registry, parent *etree.Element, data any) error {
	args, err := AsMapping(data)
	if err != nil {
		return err
	}
	pdef, err := baseParam(parent, data, false, "hudson.model.ChoiceParameterDefinition")
	if err != nil {
		return err
	}
	choices, ok := args.Get("choices")
	if !ok || choices == nil {
		return errors.NewMissingAttribute("choices")
	}
	container := pdef.CreateElement("choices")
	container.CreateAttr("class", "java.util.Arrays$ArrayList")
	arr := container.CreateElement("a")
	arr.CreateAttr("class", "string-array")
	for _, choice := range stringList(choices) {
		arr.CreateElement("string").SetText(choice)
	}
	return nil
}
