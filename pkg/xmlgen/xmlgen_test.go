package xmlgen

import (
	"strings"
	"testing"

	"github.com/jobforge/jobforge/pkg/localyaml"
	"github.com/jobforge/jobforge/pkg/modules"
	"github.com/jobforge/jobforge/pkg/registry"
)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	reg := registry.New()
	if err := modules.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return NewGenerator(reg)
}

func mapping(t *testing.T, pairs ...any) *localyaml.Mapping {
	t.Helper()
	m := localyaml.NewMapping()
	for i := 0; i < len(pairs); i += 2 {
		if err := m.Set(pairs[i], pairs[i+1]); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	return m
}

func jobDef(t *testing.T) *localyaml.Mapping {
	return mapping(t,
		"name", "release-build",
		"description", "builds the release tarball",
		"triggers", []any{mapping(t, "timed", "@midnight")},
		"builders", []any{mapping(t, "shell", "make dist")},
		"publishers", []any{mapping(t, "archive", mapping(t, "artifacts", "dist/*.tar.gz"))},
	)
}

func TestGenerateJobs(t *testing.T) {
	gen := newGenerator(t)
	jobs, err := gen.GenerateJobs([]*localyaml.Mapping{jobDef(t)})
	if err != nil {
		t.Fatalf("GenerateJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	if jobs[0].Name != "release-build" {
		t.Errorf("job name = %q", jobs[0].Name)
	}

	out, err := jobs[0].Output()
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	got := string(out)
	for _, want := range []string{
		`<?xml version="1.0" encoding="utf-8"?>`,
		"<project>",
		"<description>builds the release tarball</description>",
		`<triggers class="vector">`,
		"<spec>@midnight</spec>",
		"<command>make dist</command>",
		"<artifacts>dist/*.tar.gz</artifacts>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	// Module ordering: properties before builders before publishers.
	if pi, bi := strings.Index(got, "<properties"), strings.Index(got, "<builders"); pi < 0 || bi < pi {
		t.Errorf("properties not before builders:\n%s", got)
	}
	if bi, pi := strings.Index(got, "<builders"), strings.Index(got, "<publishers"); bi < 0 || pi < bi {
		t.Errorf("builders not before publishers:\n%s", got)
	}
}

func TestGenerateJobsDeterministic(t *testing.T) {
	gen := newGenerator(t)
	var outputs []string
	for i := 0; i < 2; i++ {
		jobs, err := gen.GenerateJobs([]*localyaml.Mapping{jobDef(t)})
		if err != nil {
			t.Fatalf("GenerateJobs: %v", err)
		}
		out, err := jobs[0].Output()
		if err != nil {
			t.Fatalf("Output: %v", err)
		}
		outputs = append(outputs, string(out))
	}
	if outputs[0] != outputs[1] {
		t.Errorf("outputs differ across runs:\n%s\n---\n%s", outputs[0], outputs[1])
	}
}

func TestJobMD5Stable(t *testing.T) {
	gen := newGenerator(t)
	jobs, err := gen.GenerateJobs([]*localyaml.Mapping{jobDef(t)})
	if err != nil {
		t.Fatalf("GenerateJobs: %v", err)
	}
	first, err := jobs[0].MD5()
	if err != nil {
		t.Fatalf("MD5: %v", err)
	}
	second, err := jobs[0].MD5()
	if err != nil {
		t.Fatalf("MD5: %v", err)
	}
	if first == "" || first != second {
		t.Errorf("md5 not stable: %q vs %q", first, second)
	}
}

func TestGenerateJobsUnknownProjectType(t *testing.T) {
	gen := newGenerator(t)
	_, err := gen.GenerateJobs([]*localyaml.Mapping{
		mapping(t, "name", "x", "project-type", "matrix"),
	})
	if err == nil || !strings.Contains(err.Error(), "unrecognized project type") {
		t.Fatalf("want unrecognized project type error, got %v", err)
	}
}

func TestGenerateViews(t *testing.T) {
	gen := newGenerator(t)
	defs := []*localyaml.Mapping{
		mapping(t,
			"name", "all-jobs",
			"columns", []any{"status", "job", "build-button"},
			"regex", "release-.*",
		),
		mapping(t,
			"name", "release-pipeline",
			"view-type", "pipeline",
			"first-job", "release-build",
		),
	}
	views, err := gen.GenerateViews(defs)
	if err != nil {
		t.Fatalf("GenerateViews: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d views, want 2", len(views))
	}

	listOut, err := views[0].Output()
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	for _, want := range []string{
		"<hudson.model.ListView>",
		"<name>all-jobs</name>",
		"<hudson.views.StatusColumn/>",
		"<includeRegex>release-.*</includeRegex>",
	} {
		if !strings.Contains(string(listOut), want) {
			t.Errorf("list view missing %q:\n%s", want, listOut)
		}
	}

	pipeOut, err := views[1].Output()
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	for _, want := range []string{
		"au.com.centrumsystems.hudson.plugin.buildpipeline.BuildPipelineView",
		"<firstJob>release-build</firstJob>",
		"<consoleOutputLinkStyle>Lightbox</consoleOutputLinkStyle>",
	} {
		if !strings.Contains(string(pipeOut), want) {
			t.Errorf("pipeline view missing %q:\n%s", want, pipeOut)
		}
	}
}
