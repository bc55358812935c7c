// Package xmlgen turns resolved job and view definitions into output
// XML documents.
package xmlgen

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
	"github.com/jobforge/jobforge/pkg/registry"
)

// Job is one generated configuration document.
type Job struct {
	Name string
	Doc  *etree.Document

	md5sum string
}

// Output serializes the document with a 2-space indent and XML
// declaration.
func (j *Job) Output() ([]byte, error) {
	j.Doc.Indent(2)
	return j.Doc.WriteToBytes()
}

// MD5 returns the hex digest of the serialized document, computed once.
func (j *Job) MD5() (string, error) {
	if j.md5sum != "" {
		return j.md5sum, nil
	}
	out, err := j.Output()
	if err != nil {
		return "", err
	}
	sum := md5.Sum(out)
	j.md5sum = hex.EncodeToString(sum[:])
	return j.md5sum, nil
}

// Generator builds output documents from resolved definitions using
// the registry's roots and modules.
type Generator struct {
	reg *registry.Registry
}

// NewGenerator creates a generator bound to a registry.
func NewGenerator(reg *registry.Registry) *Generator {
	return &Generator{reg: reg}
}

// GenerateJobs builds one document per job definition: the project
// root for the definition's project-type (default freestyle), then
// every registered module in sequence order.
func (g *Generator) GenerateJobs(defs []*localyaml.Mapping) ([]*Job, error) {
	jobs := make([]*Job, 0, len(defs))
	for _, def := range defs {
		job, err := g.generateJob(def)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (g *Generator) generateJob(def *localyaml.Mapping) (*Job, error) {
	name, ok := def.Get("name")
	if !ok || name == nil {
		return nil, errors.NewMissingAttribute("name")
	}
	kind := def.String("project-type", "freestyle")
	rootFn, ok := g.reg.Project(kind)
	if !ok {
		return nil, fmt.Errorf("unrecognized project type %q", kind)
	}

	doc := newDocument()
	root, err := rootFn(doc, def)
	if err != nil {
		return nil, err
	}
	for _, module := range g.reg.Modules() {
		if err := module.GenXML(g.reg, root, def); err != nil {
			return nil, err
		}
	}
	return &Job{Name: fmt.Sprint(name), Doc: doc}, nil
}

// GenerateViews builds one document per view definition from the view
// root for its view-type (default list).
func (g *Generator) GenerateViews(defs []*localyaml.Mapping) ([]*Job, error) {
	views := make([]*Job, 0, len(defs))
	for _, def := range defs {
		name, ok := def.Get("name")
		if !ok || name == nil {
			return nil, errors.NewMissingAttribute("name")
		}
		kind := def.String("view-type", "list")
		rootFn, ok := g.reg.View(kind)
		if !ok {
			return nil, fmt.Errorf("unrecognized view type %q", kind)
		}

		doc := newDocument()
		if _, err := rootFn(doc, def); err != nil {
			return nil, err
		}
		views = append(views, &Job{Name: fmt.Sprint(name), Doc: doc})
	}
	return views, nil
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	return doc
}
