package modules

import (
	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/localyaml"
	"github.com/jobforge/jobforge/pkg/registry"
)

// Freestyle builds the root element for the default project type.
func Freestyle(doc *etree.Document, data *localyaml.Mapping) (*etree.Element, error) {
	return doc.CreateElement("project"), nil
}

// General emits the job attributes every project type shares:
// description, disabled state, concurrency, node assignment, quiet
// period, and up/downstream blocking. It runs before every other
// module.
type General struct{}

func (General) Name() string              { return "general" }
func (General) Sequence() int             { return 10 }
func (General) ComponentType() string     { return "" }
func (General) ComponentListType() string { return "" }

func (General) GenXML(reg *registry.Registry, root *etree.Element, data *localyaml.Mapping) error {
	root.CreateElement("actions")
	root.CreateElement("description").SetText(data.String("description", ""))
	root.CreateElement("keepDependencies").SetText("false")
	root.CreateElement("disabled").SetText(Text(data.Bool("disabled", false)))

	if name, ok := data.Get("display-name"); ok {
		root.CreateElement("displayName").SetText(Text(name))
	}

	if data.Has("block-downstream") {
		root.CreateElement("blockBuildWhenDownstreamBuilding").SetText(Text(data.Bool("block-downstream", false)))
	}
	if data.Has("block-upstream") {
		root.CreateElement("blockBuildWhenUpstreamBuilding").SetText(Text(data.Bool("block-upstream", false)))
	}

	root.CreateElement("concurrentBuild").SetText(Text(data.Bool("concurrent", false)))

	if node, ok := data.Get("node"); ok {
		root.CreateElement("assignedNode").SetText(Text(node))
		root.CreateElement("canRoam").SetText("false")
	} else {
		root.CreateElement("canRoam").SetText("true")
	}

	if quiet, ok := data.Get("quiet-period"); ok {
		root.CreateElement("quietPeriod").SetText(Text(quiet))
	}
	if retries, ok := data.Get("retry-count"); ok {
		root.CreateElement("scmCheckoutRetryCount").SetText(Text(retries))
	}
	if ws, ok := data.Get("workspace"); ok {
		root.CreateElement("customWorkspace").SetText(Text(ws))
	}
	return nil
}
