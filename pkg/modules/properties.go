package modules

import (
	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/localyaml"
	"github.com/jobforge/jobforge/pkg/registry"
)

// Properties emits the job property container and dispatches each
// configured property through the registry.
type Properties struct{}

func (Properties) Name() string              { return "properties" }
func (Properties) Sequence() int             { return 20 }
func (Properties) ComponentType() string     { return "property" }
func (Properties) ComponentListType() string { return "properties" }

func (Properties) GenXML(reg *registry.Registry, root *etree.Element, data *localyaml.Mapping) error {
	// Parameters shares this container, so it may already exist.
	properties := findOrCreate(root, "properties")
	for _, prop := range data.Slice("properties") {
		if err := reg.Dispatch("property", properties, prop, nil); err != nil {
			return err
		}
	}
	return nil
}

// GithubProperty links the job to its GitHub project page.
func GithubProperty(reg *registry.Registry, parent *etree.Element, data any) error {
	args, err := AsMapping(data)
	if err != nil {
		return err
	}
	github := parent.CreateElement("com.coravy.hudson.plugins.github.GithubProjectProperty")
	github.CreateAttr("plugin", "github")
	return ConvertMappingToXML(github, args, []Attr{
		{Key: "url", XML: "projectUrl"},
		{Key: "display-name", XML: "displayName", Default: ""},
	}, true)
}

// LeastLoadProperty toggles least-load scheduling for the job.
func LeastLoadProperty(reg *registry.Registry, parent *etree.Element, data any) error {
	args, err := AsMapping(data)
	if err != nil {
		return err
	}
	least := parent.CreateElement("org.bstick12.jenkinsci.plugins.leastload.LeastLoadDisabledProperty")
	least.CreateElement("leastLoadDisabled").SetText(Text(args.Bool("disabled", true)))
	return nil
}
