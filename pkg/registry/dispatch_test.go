package registry

import (
	"strings"
	"testing"

	"github.com/beevik/etree"

	"github.com/jobforge/jobforge/pkg/errors"
	"github.com/jobforge/jobforge/pkg/localyaml"
)

type fakeModule struct {
	name     string
	sequence int
	category string
	listKey  string
}

func (m *fakeModule) Name() string              { return m.name }
func (m *fakeModule) Sequence() int             { return m.sequence }
func (m *fakeModule) ComponentType() string     { return m.category }
func (m *fakeModule) ComponentListType() string { return m.listKey }
func (m *fakeModule) GenXML(reg *Registry, root *etree.Element, data *localyaml.Mapping) error {
	return nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	if err := r.RegisterModule(&fakeModule{name: "builders", sequence: 60, category: "builder", listKey: "builders"}); err != nil {
		t.Fatalf("RegisterModule: %v", err)
	}
	return r
}

// shellGen emits a <shell><command> element, defaulting the command when
// the invocation carries no arguments.
func shellGen(reg *Registry, parent *etree.Element, data any) error {
	command := "true"
	if m, ok := data.(*localyaml.Mapping); ok {
		command = m.String("command", command)
	}
	el := parent.CreateElement("shell")
	el.CreateElement("command").SetText(command)
	return nil
}

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

func render(t *testing.T, parent *etree.Element) string {
	t.Helper()
	doc := etree.NewDocument()
	doc.SetRoot(parent.Copy())
	out, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("WriteToString: %v", err)
	}
	return out
}

func TestDispatchBareNameAndMapping(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.RegisterComponent("builder", "shell", shellGen); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}

	tests := []struct {
		name      string
		component any
		want      string
	}{
		{"bare name", "shell", "<command>true</command>"},
		{"mapping", mapping(t, "shell", mapping(t, "command", "make")), "<command>make</command>"},
		{"mapping with nil args", mapping(t, "shell", nil), "<command>true</command>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := etree.NewElement("builders")
			if err := r.Dispatch("builder", parent, tt.component, nil); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			if got := render(t, parent); !strings.Contains(got, tt.want) {
				t.Errorf("output %q does not contain %q", got, tt.want)
			}
		})
	}
}

func TestDispatchInterpolatesTemplateData(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.RegisterComponent("builder", "shell", shellGen); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}

	parent := etree.NewElement("builders")
	component := mapping(t, "shell", mapping(t, "command", "make {target}"))
	if err := r.Dispatch("builder", parent, component, map[string]any{"target": "dist"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := render(t, parent); !strings.Contains(got, "<command>make dist</command>") {
		t.Errorf("unexpected output %q", got)
	}
}

func TestDispatchMissingTemplateVariable(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.RegisterComponent("builder", "shell", shellGen); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}

	parent := etree.NewElement("builders")
	component := mapping(t, "shell", mapping(t, "command", "make {target}"))
	err := r.Dispatch("builder", parent, component, map[string]any{"other": "x"})
	if !errors.IsSubstitution(err) {
		t.Fatalf("want substitution error, got %v", err)
	}
}

func TestDispatchMacroEquivalence(t *testing.T) {
	// A macro invocation must produce exactly the XML its expanded body
	// would produce when dispatched directly.
	r := newTestRegistry(t)
	if err := r.RegisterComponent("builder", "shell", shellGen); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	body := []any{
		mapping(t, "shell", mapping(t, "command", "make {target}")),
		mapping(t, "shell", mapping(t, "command", "make check")),
	}
	r.AddMacro("builder", &Macro{Name: "build-and-check", Body: body})

	viaMacro := etree.NewElement("builders")
	invocation := mapping(t, "build-and-check", mapping(t, "target", "dist"))
	if err := r.Dispatch("builder", viaMacro, invocation, nil); err != nil {
		t.Fatalf("Dispatch macro: %v", err)
	}

	direct := etree.NewElement("builders")
	for _, member := range body {
		if err := r.Dispatch("builder", direct, member, map[string]any{"target": "dist"}); err != nil {
			t.Fatalf("Dispatch body member: %v", err)
		}
	}

	if got, want := render(t, viaMacro), render(t, direct); got != want {
		t.Errorf("macro output %q differs from direct output %q", got, want)
	}
}

func TestDispatchMacroPreferredOverGenerator(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.RegisterComponent("builder", "shell", shellGen); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	antGen := func(reg *Registry, parent *etree.Element, data any) error {
		parent.CreateElement("ant")
		return nil
	}
	if err := r.RegisterComponent("builder", "ant", Generator(antGen)); err != nil {
		t.Fatalf("RegisterComponent: %v", err)
	}
	r.AddMacro("builder", &Macro{Name: "shell", Body: []any{"ant"}})

	parent := etree.NewElement("builders")
	if err := r.Dispatch("builder", parent, mapping(t, "shell", mapping(t, "command", "ignored")), nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	got := render(t, parent)
	if !strings.Contains(got, "<ant/>") {
		t.Errorf("macro did not shadow generator: %q", got)
	}
	if strings.Contains(got, "ignored") {
		t.Errorf("generator ran despite macro shadow: %q", got)
	}
}

func TestDispatchRecursionLimit(t *testing.T) {
	r := newTestRegistry(t)
	// A macro whose body invokes itself must fail, not spin.
	r.AddMacro("builder", &Macro{Name: "loop", Body: []any{"loop"}})

	parent := etree.NewElement("builders")
	err := r.Dispatch("builder", parent, "loop", nil)
	if err == nil || !strings.Contains(err.Error(), "recursion limit") {
		t.Fatalf("want recursion limit error, got %v", err)
	}
}

func TestDispatchUnknownComponent(t *testing.T) {
	r := newTestRegistry(t)
	parent := etree.NewElement("builders")
	err := r.Dispatch("builder", parent, "no-such-builder", nil)
	if !errors.IsUnknownComponent(err) {
		t.Fatalf("want unknown-component error, got %v", err)
	}
	if !strings.Contains(err.Error(), "no-such-builder") {
		t.Errorf("error %q does not name the component", err)
	}
}

func TestDispatchUnknownCategory(t *testing.T) {
	r := newTestRegistry(t)
	parent := etree.NewElement("wrappers")
	err := r.Dispatch("wrapper", parent, "timeout", nil)
	if err == nil || !strings.Contains(err.Error(), "unknown component category") {
		t.Fatalf("want unknown category error, got %v", err)
	}
}

func TestDispatchMalformedInvocation(t *testing.T) {
	r := newTestRegistry(t)
	tests := []struct {
		name      string
		component any
	}{
		{"two entries", mapping(t, "shell", nil, "ant", nil)},
		{"non-string key", mapping(t, 7, nil)},
		{"wrong type", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := etree.NewElement("builders")
			err := r.Dispatch("builder", parent, tt.component, nil)
			if !errors.IsParse(err) {
				t.Fatalf("want parse error, got %v", err)
			}
		})
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.RegisterComponent("builder", "shell", shellGen); err != nil {
		t.Fatalf("first RegisterComponent: %v", err)
	}
	err := r.RegisterComponent("builder", "shell", shellGen)
	if !errors.IsDuplicateDefinition(err) {
		t.Fatalf("want duplicate-definition error, got %v", err)
	}
}

func TestModulesSortedBySequence(t *testing.T) {
	r := New()
	for _, m := range []*fakeModule{
		{name: "publishers", sequence: 70},
		{name: "properties", sequence: 20},
		{name: "builders", sequence: 60},
	} {
		if err := r.RegisterModule(m); err != nil {
			t.Fatalf("RegisterModule(%s): %v", m.name, err)
		}
	}
	want := []string{"properties", "builders", "publishers"}
	mods := r.Modules()
	if len(mods) != len(want) {
		t.Fatalf("got %d modules, want %d", len(mods), len(want))
	}
	for i, name := range want {
		if mods[i].Name() != name {
			t.Errorf("module[%d] = %s, want %s", i, mods[i].Name(), name)
		}
	}
}
