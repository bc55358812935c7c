package modules

import (
	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
)

var listViewColumns = map[string]string{
	"status":        "hudson.views.StatusColumn",
	"weather":       "hudson.views.WeatherColumn",
	"job":           "hudson.views.JobColumn",
	"last-success":  "hudson.views.LastSuccessColumn",
	"last-failure":  "hudson.views.LastFailureColumn",
	"last-duration": "hudson.views.LastDurationColumn",
	"build-button":  "hudson.views.BuildButtonColumn",
	"last-stable":   "hudson.views.LastStableColumn",
}

// ListView builds the root tree for a plain job list view.
func ListView(doc *etree.Document, data *localyaml.Mapping) (*etree.Element, error) {
	name, ok := data.Get("name")
	if !ok || name == nil {
		return nil, errors.NewMissingAttribute("name")
	}

	root := doc.CreateElement("hudson.model.ListView")
	root.CreateElement("name").SetText(Text(name))
	if desc, ok := data.Get("description"); ok && desc != nil {
		root.CreateElement("description").SetText(Text(desc))
	}
	root.CreateElement("filterExecutors").SetText(Text(data.Bool("filter-executors", false)))
	root.CreateElement("filterQueue").SetText(Text(data.Bool("filter-queue", false)))
	root.CreateElement("properties").CreateAttr("class", "hudson.model.View$PropertyList")

	jobNames := root.CreateElement("jobNames")
	jobNames.CreateElement("comparator").CreateAttr("class", "hudson.util.CaseInsensitiveComparator")
	if names, ok := data.Get("job-name"); ok {
		for _, jobName := range stringList(names) {
			jobNames.CreateElement("string").SetText(jobName)
		}
	}
	root.CreateElement("jobFilters")

	columns := root.CreateElement("columns")
	for _, column := range stringList(data.Slice("columns")) {
		if class, ok := listViewColumns[column]; ok {
			columns.CreateElement(class)
		}
	}

	if regex, ok := data.Get("regex"); ok && regex != nil {
		root.CreateElement("includeRegex").SetText(Text(regex))
	}
	root.CreateElement("recurse").SetText(Text(data.Bool("recurse", false)))
	if sf, ok := data.Get("status-filter"); ok && sf != nil {
		root.CreateElement("statusFilter").SetText(Text(sf))
	}
	return root, nil
}

// PipelineView builds the root tree for a build pipeline view.
func PipelineView(doc *etree.Document, data *localyaml.Mapping) (*etree.Element, error) {
	name, ok := data.Get("name")
	if !ok || name == nil {
		return nil, errors.NewMissingAttribute("name")
	}

	root := doc.CreateElement("au.com.centrumsystems.hudson.plugin.buildpipeline.BuildPipelineView")
	root.CreateAttr("plugin", "build-pipeline-plugin")
	root.CreateElement("name").SetText(Text(name))
	if desc, ok := data.Get("description"); ok && desc != nil {
		root.CreateElement("description").SetText(Text(desc))
	}
	root.CreateElement("filterExecutors").SetText(Text(data.Bool("filter-executors", false)))
	root.CreateElement("filterQueue").SetText(Text(data.Bool("filter-queue", false)))
	root.CreateElement("properties").CreateAttr("class", "hudson.model.View$PropertyList")

	grid := root.CreateElement("gridBuilder")
	grid.CreateAttr("class", "au.com.centrumsystems.hudson.plugin.buildpipeline.DownstreamProjectGridBuilder")
	grid.CreateElement("firstJob").SetText(data.String("first-job", ""))

	if v, ok := data.Get("no-of-displayed-builds"); ok && v != nil {
		root.CreateElement("noOfDisplayedBuilds").SetText(Text(v))
	} else {
		root.CreateElement("noOfDisplayedBuilds").SetText("1")
	}

	title := root.CreateElement("buildViewTitle")
	if v, ok := data.Get("title"); ok && v != nil {
		title.SetText(Text(v))
	}

	linkStyle := data.String("link-style", "Lightbox")
	if linkStyle != "Lightbox" && linkStyle != "New Window" {
		linkStyle = "Lightbox"
	}
	root.CreateElement("consoleOutputLinkStyle").SetText(linkStyle)

	cssURL := root.CreateElement("cssUrl")
	if v, ok := data.Get("css-url"); ok && v != nil {
		cssURL.SetText(Text(v))
	}

	root.CreateElement("triggerOnlyLatestJob").SetText(Text(data.Bool("latest-job-only", false)))
	root.CreateElement("alwaysAllowManualTrigger").SetText(Text(data.Bool("manual-trigger", false)))
	root.CreateElement("showPipelineParameters").SetText(Text(data.Bool("show-parameters", false)))
	root.CreateElement("showPipelineParametersInHeaders").SetText(Text(data.Bool("parameters-in-headers", false)))
	root.CreateElement("startsWithParameters").SetText(Text(data.Bool("start-with-parameters", false)))

	if v, ok := data.Get("refresh-frequency"); ok && v != nil {
		root.CreateElement("refreshFrequency").SetText(Text(v))
	} else {
		root.CreateElement("refreshFrequency").SetText("3")
	}
	root.CreateElement("showPipelineDefinitionHeader").SetText(Text(data.Bool("definition-header", false)))
	return root, nil
}
