package localyaml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jobforge/jobforge/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func parseOne(t *testing.T, s *Session, src string) any {
	t.Helper()
	docs, err := s.ParseBytes([]byte(src), "test.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	return docs[0]
}

func TestParsePreservesKeyOrder(t *testing.T) {
	doc := parseOne(t, NewSession(), `
zulu: 1
alpha: 2
mike: 3
`)
	m, ok := doc.(*Mapping)
	if !ok {
		t.Fatalf("expected mapping, got %T", doc)
	}
	want := []any{"zulu", "alpha", "mike"}
	if diff := cmp.Diff(want, m.Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
}

func TestAnchorsPersistAcrossDocuments(t *testing.T) {
	s := NewSession()
	if _, err := s.ParseBytes([]byte("defaults: &defaults\n  retries: 3\n"), "a.yaml"); err != nil {
		t.Fatal(err)
	}

	doc := parseOne(t, s, "job:\n  settings: *defaults\n")
	settings := doc.(*Mapping).Child("job").Child("settings")
	if settings == nil {
		t.Fatal("settings not resolved")
	}
	if v, _ := settings.Get("retries"); v != uint64(3) && v != int64(3) && v != 3 {
		t.Errorf("retries = %v (%T)", v, v)
	}
}

func TestResetClearsAnchors(t *testing.T) {
	s := NewSession()
	if _, err := s.ParseBytes([]byte("defaults: &defaults\n  retries: 3\n"), "a.yaml"); err != nil {
		t.Fatal(err)
	}
	s.Reset()

	_, err := s.ParseBytes([]byte("job: *defaults\n"), "b.yaml")
	if !errors.IsParse(err) {
		t.Fatalf("expected parse error for unknown anchor, got %v", err)
	}
}

func TestMergeKey(t *testing.T) {
	doc := parseOne(t, NewSession(), `
base: &base
  timeout: 30
  retries: 1
job:
  <<: *base
  retries: 5
`)
	job := doc.(*Mapping).Child("job")
	if v, ok := job.Get("timeout"); !ok || v == nil {
		t.Fatal("timeout not merged")
	}
	if v, _ := job.Get("retries"); v == uint64(1) || v == int64(1) {
		t.Error("explicit key overridden by merge")
	}
}

func TestMalformedDocument(t *testing.T) {
	_, err := NewSession().ParseBytes([]byte(":\n  - ]["), "bad.yaml")
	if !errors.IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestIncludeInline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fragment.yaml", "retries: 3\n")
	main := writeFile(t, dir, "main.yaml", "job: !include: fragment.yaml\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	job := docs[0].(*Mapping).Child("job")
	if job == nil {
		t.Fatal("included fragment not parsed as mapping")
	}
	if _, ok := job.Get("retries"); !ok {
		t.Error("retries missing from included fragment")
	}
}

func TestIncludeRaw(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "build.sh", "#!/bin/sh\nmake {target}\n")
	main := writeFile(t, dir, "main.yaml", "script: !include-raw: build.sh\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	script, _ := docs[0].(*Mapping).Get("script")
	if script != "#!/bin/sh\nmake {target}\n" {
		t.Errorf("script = %q", script)
	}
}

func TestIncludeRawEscape(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "build.sh", "echo {literal}\n")
	main := writeFile(t, dir, "main.yaml", "script: !include-raw-escape: build.sh\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	script, _ := docs[0].(*Mapping).Get("script")
	if script != "echo {{literal}}\n" {
		t.Errorf("script = %q", script)
	}
}

func TestDeprecatedSpellingBehavesIdentically(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "build.sh", "make all\n")
	canonical := writeFile(t, dir, "a.yaml", "script: !include-raw: build.sh\n")
	deprecated := writeFile(t, dir, "b.yaml", "script: !include-raw build.sh\n")

	want, err := NewSession().ParseFile(canonical)
	if err != nil {
		t.Fatal(err)
	}
	got, err := NewSession().ParseFile(deprecated)
	if err != nil {
		t.Fatal(err)
	}
	wantScript, _ := want[0].(*Mapping).Get("script")
	gotScript, _ := got[0].(*Mapping).Get("script")
	if wantScript != gotScript {
		t.Errorf("deprecated spelling: got %q, want %q", gotScript, wantScript)
	}
}

func TestIncludeSearchPathPrecedence(t *testing.T) {
	extra := t.TempDir()
	docDir := t.TempDir()
	writeFile(t, extra, "build.sh", "from extra\n")
	writeFile(t, docDir, "build.sh", "from docdir\n")
	main := writeFile(t, docDir, "main.yaml", "script: !include-raw: build.sh\n")

	docs, err := NewSession(WithSearchPath(extra)).ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	script, _ := docs[0].(*Mapping).Get("script")
	if script != "from extra\n" {
		t.Errorf("script = %q, want the extra-dir copy", script)
	}

	// Without the extra dir the document's own directory wins.
	docs, err = NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	script, _ = docs[0].(*Mapping).Get("script")
	if script != "from docdir\n" {
		t.Errorf("script = %q, want the document-dir copy", script)
	}
}

func TestIncludeMissingFile(t *testing.T) {
	_, err := NewSession().ParseBytes([]byte("script: !include-raw: nope.sh\n"), "main.yaml")
	if !errors.IsIncludeResolution(err) {
		t.Fatalf("expected include resolution error, got %v", err)
	}
}

func TestNestedInlineIncludeUsesIncluderSearchPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inner.sh", "inner\n")
	writeFile(t, dir, "middle.yaml", "script: !include-raw: inner.sh\n")
	main := writeFile(t, dir, "main.yaml", "job: !include: middle.yaml\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	script, _ := docs[0].(*Mapping).Child("job").Get("script")
	if script != "inner\n" {
		t.Errorf("script = %q", script)
	}
}

func TestLazyIncludeResolves(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "build-prod.sh", "deploy prod\n")
	main := writeFile(t, dir, "main.yaml", "script: !include-raw: build-{env}.sh\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := docs[0].(*Mapping).Get("script")
	ref, ok := v.(Resolvable)
	if !ok {
		t.Fatalf("expected deferred reference, got %T", v)
	}
	resolved, err := ref.Resolve(map[string]any{"env": "prod"})
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "deploy prod\n" {
		t.Errorf("resolved = %q", resolved)
	}
}

func TestLazyIncludeMissingArgument(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.yaml", "script: !include-raw: build-{env}.sh\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := docs[0].(*Mapping).Get("script")
	_, err = v.(Resolvable).Resolve(nil)
	if !errors.IsSubstitution(err) {
		t.Fatalf("expected substitution error, got %v", err)
	}
}

func TestLazyRawEscapeDowngradesToRaw(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "build-ci.sh", "echo {literal}\n")
	main := writeFile(t, dir, "main.yaml", "script: !include-raw-escape: build-{env}.sh\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	ref := mustGet(t, docs[0]).(*LazyRef)
	if ref.Kind() != IncludeRaw {
		t.Errorf("kind = %v, want raw", ref.Kind())
	}
	resolved, err := ref.Resolve(map[string]any{"env": "ci"})
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "echo {literal}\n" {
		t.Errorf("resolved = %q, content must not be escaped", resolved)
	}
}

func mustGet(t *testing.T, doc any) any {
	t.Helper()
	v, ok := doc.(*Mapping).Get("script")
	if !ok {
		t.Fatal("script key missing")
	}
	return v
}

func TestMultiFileRawIncludeJoinsWithNewline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sh", "first")
	writeFile(t, dir, "b.sh", "second")
	main := writeFile(t, dir, "main.yaml", "script: !include-raw:\n  - a.sh\n  - b.sh\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	script := mustGet(t, docs[0])
	if script != "first\nsecond" {
		t.Errorf("script = %q", script)
	}
}

func TestMultiFileRawEscapeAppliesOnceAfterJoin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.sh", "left {a}")
	writeFile(t, dir, "b.sh", "right {b}")
	main := writeFile(t, dir, "main.yaml", "script: !include-raw-escape:\n  - a.sh\n  - b.sh\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	script := mustGet(t, docs[0])
	if script != "left {{a}}\nright {{b}}" {
		t.Errorf("script = %q", script)
	}
}

func TestMultiFileLazyCollection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "setup.sh", "setup")
	writeFile(t, dir, "run-ci.sh", "run ci")
	main := writeFile(t, dir, "main.yaml", "script: !include-raw:\n  - setup.sh\n  - run-{env}.sh\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	coll, ok := mustGet(t, docs[0]).(*LazyCollection)
	if !ok {
		t.Fatalf("expected lazy collection, got %T", mustGet(t, docs[0]))
	}
	if len(coll.Refs()) != 2 {
		t.Fatalf("refs = %d, want 2", len(coll.Refs()))
	}
	resolved, err := coll.Resolve(map[string]any{"env": "ci"})
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "setup\nrun ci" {
		t.Errorf("resolved = %q", resolved)
	}
}

func TestUnsupportedTag(t *testing.T) {
	_, err := NewSession().ParseBytes([]byte("v: !mystery foo\n"), "main.yaml")
	if !errors.IsParse(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestDumpRoundTripKeyOrder(t *testing.T) {
	src := "zulu: 1\nalpha: two\nmike: true\n"
	doc := parseOne(t, NewSession(), src)

	out, err := Dump(doc)
	if err != nil {
		t.Fatal(err)
	}
	// Key order survives a dump-then-reload cycle.
	reloaded := parseOne(t, NewSession(), string(out))
	want := []any{"zulu", "alpha", "mike"}
	if diff := cmp.Diff(want, reloaded.(*Mapping).Keys()); diff != "" {
		t.Fatalf("key order after round trip (-want +got):\n%s", diff)
	}
}

func TestDumpLazyRefKeepsTag(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.yaml", "script: !include-raw: build-{env}.sh\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Dump(docs[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "!include-raw:") || !strings.Contains(string(out), "build-{env}.sh") {
		t.Errorf("dump = %q, want the original tagged form", out)
	}
}

func TestDeepFormatInterpolatesAndResolves(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "run-ci.sh", "run ci\n")
	main := writeFile(t, dir, "main.yaml", "name: job-{env}\nscript: !include-raw: run-{env}.sh\n")

	docs, err := NewSession().ParseFile(main)
	if err != nil {
		t.Fatal(err)
	}
	formatted, err := DeepFormat(docs[0], map[string]any{"env": "ci"}, false)
	if err != nil {
		t.Fatal(err)
	}
	m := formatted.(*Mapping)
	if name, _ := m.Get("name"); name != "job-ci" {
		t.Errorf("name = %v", name)
	}
	if script, _ := m.Get("script"); script != "run ci\n" {
		t.Errorf("script = %v", script)
	}
}
