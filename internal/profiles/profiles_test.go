package profiles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spigell/hr-screener/internal/screening"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	store, err := Default()
	if err != nil {
		t.Fatalf("loading default profiles: %v", err)
	}

	tests := []struct {
		role   string
		expect string
	}{
		{role: "Senior Test Engineer", expect: "verification_engineer"},
		{role: "V&V lead", expect: "verification_engineer"},
		{role: "Verification Engineer", expect: "verification_engineer"},
		{role: "System Safety Engineer", expect: "safety_engineer"},
		{role: "Reliability analyst", expect: "safety_engineer"},
		{role: "Systems Architect", expect: "systems_architect"},
		{role: "Avionics Software Engineer", expect: "avionics_software_engineer"},
		{role: "Barista", expect: "avionics_software_engineer"},
		{role: "", expect: "avionics_software_engineer"},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			t.Parallel()
			got := store.Resolve(tt.role)
			if got == nil {
				t.Fatalf("expected a profile for %q", tt.role)
			}
			if got.Name != tt.expect {
				t.Fatalf("expected %s for %q, got %s", tt.expect, tt.role, got.Name)
			}
			if again := store.Resolve(tt.role); again != got {
				t.Fatalf("resolution is not deterministic for %q", tt.role)
			}
		})
	}
}

func TestNewRejectsPhraseInTwoTiers(t *testing.T) {
	_, err := New([]Spec{{
		Name:    "dup",
		Default: true,
		Tiers: TierSpecs{
			Critical: []string{"Embedded  C"},
			Bonus:    []string{"embedded c"},
		},
	}})
	if err == nil {
		t.Fatal("expected error for a phrase listed in two tiers")
	}
	if !strings.Contains(err.Error(), "embedded c") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRejectsPhrasesTextCannotContain(t *testing.T) {
	tests := []struct {
		name   string
		phrase string
	}{
		{name: "parenthesis", phrase: "c (embedded)"},
		{name: "colon", phrase: "level: a"},
		{name: "clause comma", phrase: "ada, spark"},
		{name: "sentence dot", phrase: "etc. tools"},
		{name: "symbol only word", phrase: "c ++ -"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]Spec{{Name: "bad", Default: true, Tiers: TierSpecs{High: []string{tt.phrase}}}})
			if err == nil {
				t.Fatalf("expected phrase %q to be rejected", tt.phrase)
			}
		})
	}
}

func TestNormalizePhrase(t *testing.T) {
	tests := map[string]string{
		"  Embedded   C ":      "embedded c",
		"Dijkstra's Algorithm": "dijkstras algorithm",
		"O’Reilly":             "oreilly",
		"node.js":              "node.js",
	}

	for input, expect := range tests {
		if got := NormalizePhrase(input); got != expect {
			t.Fatalf("expected %q for %q, got %q", expect, input, got)
		}
	}
}

func TestNewRequiresSingleDefault(t *testing.T) {
	if _, err := New([]Spec{{Name: "a"}}); err == nil {
		t.Fatal("expected error without default profile")
	}

	if _, err := New([]Spec{{Name: "a", Default: true}, {Name: "b", Default: true}}); err == nil {
		t.Fatal("expected error with two default profiles")
	}

	if _, err := New([]Spec{{Name: "a", Default: true}, {Name: "a"}}); err == nil {
		t.Fatal("expected error with duplicate names")
	}
}

func TestProfileLookup(t *testing.T) {
	store, err := Default()
	if err != nil {
		t.Fatalf("loading default profiles: %v", err)
	}

	p, ok := store.Get("avionics_software_engineer")
	if !ok {
		t.Fatal("expected avionics profile")
	}

	tier, ok := p.TierOf("spark ada")
	if !ok || tier != screening.TierCritical {
		t.Fatalf("expected spark ada to be critical, got %q (%v)", tier, ok)
	}

	if !p.HasWord("c++") || !p.HasWord("embedded") || p.HasWord("c/c++") {
		t.Fatalf("unexpected phrase words")
	}

	if p.MaxPhraseWords() != 2 {
		t.Fatalf("expected longest phrase of 2 words, got %d", p.MaxPhraseWords())
	}

	profiles := store.Profiles()
	if profiles[len(profiles)-1].Name != "avionics_software_engineer" {
		t.Fatalf("expected default profile last, got %s", profiles[len(profiles)-1].Name)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	content := `roles:
  - name: data
    title: Data Engineer
    match: [data]
    tiers:
      critical: [spark, "data pipelines"]
  - name: general
    default: true
    tiers:
      bonus: [git]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing profiles: %v", err)
	}

	store, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := store.Resolve("Big Data Engineer").Title; got != "Data Engineer" {
		t.Fatalf("unexpected title: %s", got)
	}

	if got := store.Resolve("Cook").Name; got != "general" {
		t.Fatalf("expected fallback to default, got %s", got)
	}
}

func TestFromMap(t *testing.T) {
	raw := []any{
		map[string]any{
			"name":    "ops",
			"default": true,
			"match":   []any{"ops"},
			"tiers": map[string]any{
				"high": []any{"kubernetes"},
			},
		},
	}

	store, err := FromMap(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := store.Resolve("anything")
	if tier, ok := p.TierOf("kubernetes"); !ok || tier != screening.TierHigh {
		t.Fatalf("expected kubernetes in high tier, got %q", tier)
	}
}
