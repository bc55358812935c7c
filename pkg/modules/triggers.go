package modules

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
	"github.com/jobforge/jobforge/pkg/registry"
)

// buildThreshold mirrors the controller's build result model for
// trigger and publisher threshold elements.
type buildThreshold struct {
	ordinal string
	color   string
}

var buildThresholds = map[string]buildThreshold{
	"SUCCESS":  {ordinal: "0", color: "BLUE"},
	"UNSTABLE": {ordinal: "1", color: "YELLOW"},
	"FAILURE":  {ordinal: "2", color: "RED"},
}

func thresholdNames() []string {
	return []string{"SUCCESS", "UNSTABLE", "FAILURE"}
}

func writeThreshold(parent *etree.Element, result string) error {
	th, ok := buildThresholds[result]
	if !ok {
		return errors.NewInvalidAttribute("threshold", result, thresholdNames())
	}
	el := parent.CreateElement("threshold")
	el.CreateElement("name").SetText(result)
	el.CreateElement("ordinal").SetText(th.ordinal)
	el.CreateElement("color").SetText(th.color)
	el.CreateElement("completeBuild").SetText("true")
	return nil
}

// Triggers emits the trigger container and dispatches each configured
// trigger. Jobs without triggers get no container at all.
type Triggers struct{}

func (Triggers) Name() string              { return "triggers" }
func (Triggers) Sequence() int             { return 50 }
func (Triggers) ComponentType() string     { return "trigger" }
func (Triggers) ComponentListType() string { return "triggers" }

func (Triggers) GenXML(reg *registry.Registry, root *etree.Element, data *localyaml.Mapping) error {
	triggers := data.Slice("triggers")
	if len(triggers) == 0 {
		return nil
	}
	container := root.CreateElement("triggers")
	container.CreateAttr("class", "vector")
	for _, trigger := range triggers {
		if err := reg.Dispatch("trigger", container, trigger, nil); err != nil {
			return err
		}
	}
	return nil
}

// TimedTrigger schedules builds on a cron spec given as the bare
// argument.
func TimedTrigger(reg *registry.Registry, parent *etree.Element, data any) error {
	spec, err := scalarArg(data)
	if err != nil {
		return err
	}
	trig := parent.CreateElement("hudson.triggers.TimerTrigger")
	trig.CreateElement("spec").SetText(spec)
	return nil
}

// PollSCMTrigger polls the SCM on a cron spec. The bare-string form is
// deprecated in favor of the cron/ignore-post-commit-hooks mapping.
func PollSCMTrigger(reg *registry.Registry, parent *etree.Element, data any) error {
	var cron string
	ignoreHooks := false

	switch args := data.(type) {
	case string:
		reg.Logger().Warn("bare-string pollscm is deprecated, use the cron mapping form instead")
		cron = args
	case *localyaml.Mapping:
		v, ok := args.Get("cron")
		if !ok || v == nil {
			return errors.NewMissingAttribute("cron")
		}
		cron = Text(v)
		ignoreHooks = args.Bool("ignore-post-commit-hooks", false)
	default:
		return errors.NewMissingAttribute("cron")
	}

	trig := parent.CreateElement("hudson.triggers.SCMTrigger")
	trig.CreateElement("spec").SetText(cron)
	trig.CreateElement("ignorePostCommitHooks").SetText(Text(ignoreHooks))
	return nil
}

// GithubTrigger builds on pushes to the linked GitHub repository.
func GithubTrigger(reg *registry.Registry, parent *etree.Element, data any) error {
	trig := parent.CreateElement("com.cloudbees.jenkins.GitHubPushTrigger")
	trig.CreateElement("spec").SetText("")
	return nil
}

// ReverseTrigger schedules a build when the named upstream jobs finish
// with at least the configured result.
func ReverseTrigger(reg *registry.Registry, parent *etree.Element, data any) error {
	args, err := AsMapping(data)
	if err != nil {
		return err
	}
	jobs, ok := args.Get("jobs")
	if !ok || jobs == nil {
		return errors.NewMissingAttribute("jobs")
	}

	trig := parent.CreateElement("jenkins.triggers.ReverseBuildTrigger")
	trig.CreateElement("spec").SetText("")
	trig.CreateElement("upstreamProjects").SetText(strings.Join(stringList(jobs), ","))

	result := strings.ToUpper(args.String("result", "success"))
	return writeThreshold(trig, result)
}
