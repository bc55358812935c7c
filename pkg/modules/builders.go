package modules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
	"github.com/jobforge/jobforge/pkg/registry"
)

// Builders emits the pre/main/post build step containers. The main
// builders container is always present on freestyle jobs because the
// controller rejects configs without it.
type Builders struct{}

func (Builders) Name() string              { return "builders" }
func (Builders) Sequence() int             { return 60 }
func (Builders) ComponentType() string     { return "builder" }
func (Builders) ComponentListType() string { return "builders" }

func (Builders) GenXML(reg *registry.Registry, root *etree.Element, data *localyaml.Mapping) error {
	for _, alias := range []string{"prebuilders", "builders", "postbuilders"} {
		if !data.Has(alias) {
			continue
		}
		container := root.CreateElement(alias)
		for _, builder := range data.Slice(alias) {
			if err := reg.Dispatch("builder", container, builder, nil); err != nil {
				return err
			}
		}
	}
	if kind := data.String("project-type", "freestyle"); kind == "freestyle" && !data.Has("builders") {
		root.CreateElement("builders")
	}
	return nil
}

// ShellBuilder runs a shell command given as the bare argument.
func ShellBuilder(reg *registry.Registry, parent *etree.Element, data any) error {
	command, err := scalarArg(data)
	if err != nil {
		return err
	}
	shell := parent.CreateElement("hudson.tasks.Shell")
	shell.CreateElement("command").SetText(command)
	return nil
}

// BatchBuilder runs a Windows batch command given as the bare argument.
func BatchBuilder(reg *registry.Registry, parent *etree.Element, data any) error {
	command, err := scalarArg(data)
	if err != nil {
		return err
	}
	batch := parent.CreateElement("hudson.tasks.BatchFile")
	batch.CreateElement("command").SetText(command)
	return nil
}

// AntBuilder invokes Ant targets. The short form takes the target list
// as a bare string; the mapping form adds buildfile, properties, and
// java options.
func AntBuilder(reg *registry.Registry, parent *etree.Element, data any) error {
	ant := parent.CreateElement("hudson.tasks.Ant")

	args := localyaml.NewMapping()
	switch t := data.(type) {
	case string:
		args.Set("targets", t)
	case *localyaml.Mapping:
		args = t
	case nil:
	default:
		return errors.NewParse(fmt.Sprintf("ant takes a target string or a mapping, got %T", data), nil)
	}

	if targets, ok := args.Get("targets"); ok {
		ant.CreateElement("targets").SetText(Text(targets))
	}
	if buildfile, ok := args.Get("buildfile"); ok {
		ant.CreateElement("buildFile").SetText(Text(buildfile))
	}
	if props := args.Child("properties"); props != nil {
		var b strings.Builder
		for _, key := range props.Keys() {
			val, _ := props.Get(key)
			fmt.Fprintf(&b, "%s=%s\n", Text(key), Text(val))
		}
		ant.CreateElement("properties").SetText(b.String())
	}
	if opts, ok := args.Get("java-opts"); ok {
		ant.CreateElement("antOpts").SetText(strings.Join(stringList(opts), " "))
	}
	ant.CreateElement("antName").SetText(args.String("ant-name", "default"))
	return nil
}

var buildSelectors = map[string]string{
	"last-successful":  "hudson.plugins.copyartifact.StatusBuildSelector",
	"last-completed":   "hudson.plugins.copyartifact.LastCompletedBuildSelector",
	"specific-build":   "hudson.plugins.copyartifact.SpecificBuildSelector",
	"last-saved":       "hudson.plugins.copyartifact.SavedBuildSelector",
	"upstream-build":   "hudson.plugins.copyartifact.TriggeredBuildSelector",
	"permalink":        "hudson.plugins.copyartifact.PermalinkBuildSelector",
	"workspace-latest": "hudson.plugins.copyartifact.WorkspaceSelector",
	"build-param":      "hudson.plugins.copyartifact.ParameterizedBuildSelector",
}

// CopyArtifactBuilder copies artifacts from another project's build.
func CopyArtifactBuilder(reg *registry.Registry, parent *etree.Element, data any) error {
	args, err := AsMapping(data)
	if err != nil {
		return err
	}
	project, ok := args.Get("project")
	if !ok || project == nil {
		return errors.NewMissingAttribute("project")
	}

	t := parent.CreateElement("hudson.plugins.copyartifact.CopyArtifact")
	t.CreateElement("project").SetText(Text(project))
	t.CreateElement("filter").SetText(args.String("filter", ""))
	t.CreateElement("target").SetText(args.String("target", ""))
	t.CreateElement("flatten").SetText(Text(args.Bool("flatten", false)))
	t.CreateElement("optional").SetText(Text(args.Bool("optional", false)))
	t.CreateElement("doNotFingerprintArtifacts").SetText(Text(args.Bool("do-not-fingerprint", false)))
	t.CreateElement("parameters").SetText(args.String("parameter-filters", ""))

	which := args.String("which-build", "last-successful")
	class, ok := buildSelectors[which]
	if !ok {
		return errors.NewInvalidAttribute("which-build", which, selectorNames())
	}
	selector := t.CreateElement("selector")
	selector.CreateAttr("class", class)
	switch which {
	case "specific-build":
		selector.CreateElement("buildNumber").SetText(args.String("build-number", ""))
	case "last-successful":
		selector.CreateElement("stable").SetText(Text(args.Bool("stable", false)))
	case "upstream-build":
		selector.CreateElement("fallbackToLastSuccessful").SetText(Text(args.Bool("fallback-to-last-successful", false)))
	case "permalink":
		selector.CreateElement("id").SetText(args.String("permalink", ""))
	case "build-param":
		selector.CreateElement("parameterName").SetText(args.String("param", ""))
	}
	return nil
}

func selectorNames() []string {
	names := make([]string, 0, len(buildSelectors))
	for name := range buildSelectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
