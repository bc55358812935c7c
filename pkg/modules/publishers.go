package modules

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
	"github.com/jobforge/jobforge/pkg/registry"
)

// Publishers emits the publisher container and dispatches each
// configured post-build action.
type Publishers struct{}

func (Publishers) Name() string              { return "publishers" }
func (Publishers) Sequence() int             { return 70 }
func (Publishers) ComponentType() string     { return "publisher" }
func (Publishers) ComponentListType() string { return "publishers" }

func (Publishers) GenXML(reg *registry.Registry, root *etree.Element, data *localyaml.Mapping) error {
	publishers := root.CreateElement("publishers")
	for _, action := range data.Slice("publishers") {
		if err := reg.Dispatch("publisher", publishers, action, nil); err != nil {
			return err
		}
	}
	return nil
}

// ArchivePublisher archives build artifacts. The latest_only spelling
// is deprecated in favor of latest-only.
func ArchivePublisher(reg *registry.Registry, parent *etree.Element, data any) error {
	args, err := AsMapping(data)
	if err != nil {
		return err
	}
	artifacts, ok := args.Get("artifacts")
	if !ok || artifacts == nil {
		return errors.NewMissingAttribute("artifacts")
	}

	archiver := parent.CreateElement("hudson.tasks.ArtifactArchiver")
	archiver.CreateElement("artifacts").SetText(Text(artifacts))
	if excludes, ok := args.Get("excludes"); ok {
		archiver.CreateElement("excludes").SetText(Text(excludes))
	}

	latestOnly := args.Bool("latest_only", false)
	if args.Has("latest_only") {
		reg.Logger().Warn("latest_only is deprecated, use latest-only")
	}
	if args.Has("latest-only") {
		latestOnly = args.Bool("latest-only", false)
	}
	archiver.CreateElement("latestOnly").SetText(Text(latestOnly))

	if args.Has("allow-empty") {
		archiver.CreateElement("allowEmptyArchive").SetText(Text(args.Bool("allow-empty", false)))
	}
	if args.Has("only-if-success") {
		archiver.CreateElement("onlyIfSuccessful").SetText(Text(args.Bool("only-if-success", false)))
	}
	if args.Has("fingerprint") {
		archiver.CreateElement("fingerprint").SetText(Text(args.Bool("fingerprint", false)))
	}
	archiver.CreateElement("defaultExcludes").SetText(Text(args.Bool("default-excludes", true)))
	return nil
}

// EmailPublisher sends build failure notifications.
func EmailPublisher(reg *registry.Registry, parent *etree.Element, data any) error {
	args, err := AsMapping(data)
	if err != nil {
		return err
	}
	mailer := parent.CreateElement("hudson.tasks.Mailer")
	mailer.CreateAttr("plugin", "mailer")
	if err := ConvertMappingToXML(mailer, args, []Attr{
		{Key: "recipients", XML: "recipients"},
	}, true); err != nil {
		return err
	}
	// Element sense is inverted relative to the definition key.
	mailer.CreateElement("dontNotifyEveryUnstableBuild").SetText(Text(!args.Bool("notify-every-unstable-build", true)))
	mailer.CreateElement("sendToIndividuals").SetText(Text(args.Bool("send-to-individuals", false)))
	return nil
}

// TriggerPublisher starts non-parameterized builds of other jobs when
// this build reaches the configured threshold.
func TriggerPublisher(reg *registry.Registry, parent *etree.Element, data any) error {
	args, err := AsMapping(data)
	if err != nil {
		return err
	}
	project, ok := args.Get("project")
	if !ok || project == nil {
		return errors.NewMissingAttribute("project")
	}

	trigger := parent.CreateElement("hudson.tasks.BuildTrigger")
	trigger.CreateElement("childProjects").SetText(strings.Join(stringList(project), ","))
	return writeThreshold(trigger, args.String("threshold", "SUCCESS"))
}

// FingerprintPublisher records file fingerprints to track them across
// builds.
func FingerprintPublisher(reg *registry.Registry, parent *etree.Element, data any) error {
	args, err := AsMapping(data)
	if err != nil {
		return err
	}
	finger := parent.CreateElement("hudson.tasks.Fingerprinter")
	return ConvertMappingToXML(finger, args, []Attr{
		{Key: "files", XML: "targets", Default: ""},
		{Key: "record-artifacts", XML: "recordBuildArtifacts", Default: false},
	}, true)
}
