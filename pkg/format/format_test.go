package format

import (
	"testing"

	"github.com/jobforge/jobforge/pkg/errors"
)

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		vars       map[string]any
		allowEmpty bool
		want       string
		wantErr    bool
	}{
		{
			name:  "no placeholders",
			input: "plain text",
			want:  "plain text",
		},
		{
			name:  "single placeholder",
			input: "run-{suite}",
			vars:  map[string]any{"suite": "unit"},
			want:  "run-unit",
		},
		{
			name:  "multiple placeholders",
			input: "{a}/{b}/file.txt",
			vars:  map[string]any{"a": "1.0", "b": "linux"},
			want:  "1.0/linux/file.txt",
		},
		{
			name:  "escaped braces pass through",
			input: "fn() {{ return {x}; }}",
			vars:  map[string]any{"x": "42"},
			want:  "fn() { return 42; }",
		},
		{
			name:    "missing placeholder is an error",
			input:   "{version}/file.txt",
			wantErr: true,
		},
		{
			name:       "missing placeholder tolerated",
			input:      "prefix-{gone}-suffix",
			allowEmpty: true,
			want:       "prefix--suffix",
		},
		{
			name:  "non-string value",
			input: "retries={n}",
			vars:  map[string]any{"n": int64(3)},
			want:  "retries=3",
		},
		{
			name:  "bool value lowercases",
			input: "enabled={on}",
			vars:  map[string]any{"on": true},
			want:  "enabled=true",
		},
		{
			name:    "unterminated placeholder",
			input:   "oops {never",
			wantErr: true,
		},
		{
			name:    "stray closing brace",
			input:   "oops } here",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interpolate(tt.input, tt.vars, tt.allowEmpty)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInterpolateMissingIsSubstitutionError(t *testing.T) {
	_, err := Interpolate("{version}/file.txt", nil, false)
	if !errors.IsSubstitution(err) {
		t.Fatalf("expected substitution error, got %v", err)
	}
}

func TestMissing(t *testing.T) {
	missing := Missing("{a}-{b}-{a}", map[string]any{"b": "x"})
	if len(missing) != 2 || missing[0] != "a" || missing[1] != "a" {
		t.Errorf("unexpected missing set: %v", missing)
	}
}

func TestHasPlaceholders(t *testing.T) {
	if HasPlaceholders("no placeholders {{here}}") {
		t.Error("escaped braces should not count as placeholders")
	}
	if !HasPlaceholders("{version}/file.txt") {
		t.Error("expected a placeholder to be detected")
	}
}

func TestEscapeBraces(t *testing.T) {
	got := EscapeBraces("if { x } then {y}")
	want := "if {{ x }} then {{y}}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
