package desugar

import (
	"testing"

	"github.com/Masterminds/semver/v3"
)

func TestDesugar(t *testing.T) {
	tests := []struct {
		req  string
		want string
	}{
		// wildcards
		{"1.2.x", ">=1.2.0 <1.3.0"},
		{"1.2.X", ">=1.2.0 <1.3.0"},
		{"1.2.*", ">=1.2.0 <1.3.0"},
		{"0.9.*", ">=0.9.0 <0.10.0"},
		{"1.x.x", ">=1.0.0 <2.0.0"},
		{"2.*", ">=2.0.0 <3.0.0"},

		// single bounds
		{"= 1.2.3", "1.2.3"},
		{"=1.2.3", "1.2.3"},
		{"= 0.1.0-alpha.1", "0.1.0-alpha.1"},
		{"> 1.2.3", "^1.2.3"},
		{">0.3", "^0.3"},

		// compound bounds
		{"^1.2.3, >= 1.5.0", "^1.5.0"},
		{"^1.2.3, < 1.5.0", ">= 1.2.3 < 1.5.0"},
		{"^1.2.3, <= 1.5.0", "1.2.3"},
		{">= 1.2.3, <= 1.5.0", ">= 1.2.3 < 1.5.0"},
		{"^1.2.3, ^1.2.0", "^1.2.3"},
		{"^ 1.2.3 ^ 1.2.0", "^1.2.3"},
		{"> 1.2.3, < 1.5.0", ">= 1.2.3 < 1.5.0"},
		{">= 1.2.3, 1.x", "^1.2.3"},
		{">= 1.2.3 1.2.*", "^1.2.3"},

		// pass-through
		{"^1.2.3", "^1.2.3"},
		{"1.0", "1.0"},
		{"*", "*"},
		{"~0.4", "~0.4"},
		{">= 1.2.3, < 1.5.0", ">= 1.2.3, < 1.5.0"},
		{"1.2.3x", "1.2.3x"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.req, func(t *testing.T) {
			if got := Desugar(tt.req); got != tt.want {
				t.Errorf("Desugar(%q) = %q, want %q", tt.req, got, tt.want)
			}
		})
	}
}

func TestDesugar_Idempotent(t *testing.T) {
	inputs := []string{
		"1.2.x", "1.x.x", "= 1.2.3", "> 1.2.3",
		"^1.2.3, >= 1.5.0", "^1.2.3, < 1.5.0", "^1.2.3, <= 1.5.0",
		">= 1.2.3, <= 1.5.0", "^1.2.3, ^1.2.0", "> 1.2.3, < 1.5.0", ">= 1.2.3, 1.x",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := Desugar(in)
			if twice := Desugar(once); twice != once {
				t.Errorf("Desugar(Desugar(%q)) = %q, want %q", in, twice, once)
			}
			if _, ok := Match(once); ok {
				t.Errorf("desugared range %q matched a rule", once)
			}
		})
	}
}

func TestDesugar_WildcardPatchCoversMinorRelease(t *testing.T) {
	c, err := semver.NewConstraint(Desugar("1.2.x"))
	if err != nil {
		t.Fatalf("NewConstraint() error = %v", err)
	}

	tests := []struct {
		version string
		want    bool
	}{
		{"1.1.9", false},
		{"1.2.0", true},
		{"1.2.17", true},
		{"1.3.0", false},
		{"2.2.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			if got := c.Check(semver.MustParse(tt.version)); got != tt.want {
				t.Errorf("Check(%s) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestMatch_RuleOrder(t *testing.T) {
	tests := []struct {
		req      string
		wantRule string
	}{
		{"1.2.x", "wildcard-patch"},
		{"1.x.x", "wildcard-minor-patch"},
		{"^1.2.3, < 1.5.0", "caret-below"},
		{"^1.2.3, <= 1.5.0", "caret-max"},
		{">= 1.2.3, 1.x", "min-wildcard"},
	}

	for _, tt := range tests {
		t.Run(tt.req, func(t *testing.T) {
			r, ok := Match(tt.req)
			if !ok {
				t.Fatalf("Match(%q) found no rule", tt.req)
			}
			if r.Name != tt.wantRule {
				t.Errorf("Match(%q) = %s, want %s", tt.req, r.Name, tt.wantRule)
			}
		})
	}
}

func TestRules_ExamplesMatchOwnRule(t *testing.T) {
	for _, r := range Rules() {
		t.Run(r.Name, func(t *testing.T) {
			got, ok := Match(r.Example)
			if !ok || got.Name != r.Name {
				t.Errorf("example %q matched %q, want %q", r.Example, got.Name, r.Name)
			}
		})
	}
}
