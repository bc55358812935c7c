package modules

import (
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
)

func mapping(t *testing.T, pairs ...any) *localyaml.Mapping {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatal("mapping: odd number of pairs")
	}
	m := localyaml.NewMapping()
	for i := 0; i < len(pairs); i += 2 {
		if err := m.Set(pairs[i], pairs[i+1]); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	return m
}

func render(t *testing.T, el *etree.Element) string {
	t.Helper()
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	out, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("WriteToString: %v", err)
	}
	return out
}

func TestText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{true, "true"},
		{false, "false"},
		{"x", "x"},
		{42, "42"},
		{-1, "-1"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConvertMappingToXML(t *testing.T) {
	attrs := []Attr{
		{Key: "url", XML: "projectUrl"},
		{Key: "display-name", XML: "displayName", Default: ""},
		{Key: "enabled", XML: "enabled", Default: true},
	}

	t.Run("defaults and values", func(t *testing.T) {
		parent := etree.NewElement("p")
		data := mapping(t, "url", "https://example.org/repo")
		if err := ConvertMappingToXML(parent, data, attrs, true); err != nil {
			t.Fatalf("ConvertMappingToXML: %v", err)
		}
		got := render(t, parent)
		for _, want := range []string{
			"<projectUrl>https://example.org/repo</projectUrl>",
			"<displayName/>",
			"<enabled>true</enabled>",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("output %q missing %q", got, want)
			}
		}
	})

	t.Run("required missing fails", func(t *testing.T) {
		parent := etree.NewElement("p")
		err := ConvertMappingToXML(parent, localyaml.NewMapping(), attrs, true)
		if !errors.IsMissingAttribute(err) {
			t.Fatalf("want missing-attribute error, got %v", err)
		}
	})

	t.Run("required missing skipped without failRequired", func(t *testing.T) {
		parent := etree.NewElement("p")
		if err := ConvertMappingToXML(parent, localyaml.NewMapping(), attrs, false); err != nil {
			t.Fatalf("ConvertMappingToXML: %v", err)
		}
		if got := render(t, parent); strings.Contains(got, "projectUrl") {
			t.Errorf("skipped attribute still emitted: %q", got)
		}
	})

	t.Run("valid options", func(t *testing.T) {
		optAttrs := []Attr{{Key: "mode", XML: "mode", Default: "fast", Options: []string{"fast", "slow"}}}
		parent := etree.NewElement("p")
		err := ConvertMappingToXML(parent, mapping(t, "mode", "warp"), optAttrs, true)
		if !errors.IsInvalidAttribute(err) {
			t.Fatalf("want invalid-attribute error, got %v", err)
		}
	})

	t.Run("valid dict rewrites", func(t *testing.T) {
		dictAttrs := []Attr{{Key: "level", XML: "thresholdLimit", Default: "low",
			Dict: map[string]string{"low": "LOW", "high": "HIGH"}}}
		parent := etree.NewElement("p")
		if err := ConvertMappingToXML(parent, mapping(t, "level", "high"), dictAttrs, true); err != nil {
			t.Fatalf("ConvertMappingToXML: %v", err)
		}
		if got := render(t, parent); !strings.Contains(got, "<thresholdLimit>HIGH</thresholdLimit>") {
			t.Errorf("dict value not rewritten: %q", got)
		}

		err := ConvertMappingToXML(etree.NewElement("p"), mapping(t, "level", "mid"), dictAttrs, true)
		if !errors.IsInvalidAttribute(err) {
			t.Fatalf("want invalid-attribute error, got %v", err)
		}
	})
}

func TestStringList(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, nil},
		{"single", "a", []string{"a"}},
		{"list", []any{"a", "b"}, []string{"a", "b"}},
		{"scalar", 3, []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringList(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
