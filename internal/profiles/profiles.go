// Package profiles holds the role knowledge used by the scoring stage: per-role
// keyword tiers and the total mapping from free-text role titles to a profile.
package profiles

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/spigell/hr-screener/internal/screening"
)

//go:embed profiles.yaml
var builtin []byte

var (
	apostrophes = strings.NewReplacer("'", "", "’", "", "`", "")
	// Scored text keeps only letters, digits and these symbols inside a clause.
	phraseChars = regexp.MustCompile(`^[\p{L}\p{N} .\-/+#&]+$`)
)

// Spec is the serialized form of a profile as found in YAML files and config.
type Spec struct {
	Name    string    `yaml:"name" mapstructure:"name"`
	Title   string    `yaml:"title" mapstructure:"title"`
	Default bool      `yaml:"default" mapstructure:"default"`
	Match   []string  `yaml:"match" mapstructure:"match"`
	Tiers   TierSpecs `yaml:"tiers" mapstructure:"tiers"`
}

// TierSpecs lists the phrases of every tier.
type TierSpecs struct {
	Critical []string `yaml:"critical" mapstructure:"critical"`
	High     []string `yaml:"high" mapstructure:"high"`
	Bonus    []string `yaml:"bonus" mapstructure:"bonus"`
	Bias     []string `yaml:"bias" mapstructure:"bias"`
}

type document struct {
	Roles []Spec `yaml:"roles" mapstructure:"roles"`
}

// Profile is a read-only role profile.
type Profile struct {
	Name    string
	Title   string
	match   []string
	tiers   map[screening.Tier][]string
	lookup  map[string]screening.Tier
	words   map[string]struct{}
	longest int
}

// Phrases returns the normalized phrases of the tier.
func (p *Profile) Phrases(t screening.Tier) []string {
	return append([]string(nil), p.tiers[t]...)
}

// TierOf returns the tier the normalized phrase belongs to.
func (p *Profile) TierOf(phrase string) (screening.Tier, bool) {
	t, ok := p.lookup[phrase]
	return t, ok
}

// HasWord reports whether token is a word of any phrase of the profile.
func (p *Profile) HasWord(token string) bool {
	_, ok := p.words[token]
	return ok
}

// MaxPhraseWords is the word count of the longest phrase in the profile.
func (p *Profile) MaxPhraseWords() int {
	return p.longest
}

// Store resolves role titles to profiles. It is immutable after construction
// and safe for concurrent use.
type Store struct {
	ordered []*Profile
	def     *Profile
}

// Default returns the store built from the embedded profiles.
func Default() (*Store, error) {
	return Parse(builtin)
}

// LoadFile reads a YAML profiles file.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profiles file %q: %w", path, err)
	}

	store, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profiles file %q: %w", path, err)
	}

	return store, nil
}

// Parse builds a store from YAML.
func Parse(data []byte) (*Store, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	return New(doc.Roles)
}

// FromMap builds a store from a generic config tree, e.g. the `profiles.roles`
// viper key.
func FromMap(raw any) (*Store, error) {
	var specs []Spec
	if err := mapstructure.Decode(raw, &specs); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}

	return New(specs)
}

// New validates the specs and builds a store. Exactly one profile must be the
// default and a phrase may appear in at most one tier of a profile.
func New(specs []Spec) (*Store, error) {
	if len(specs) == 0 {
		return nil, errors.New("at least one profile is required")
	}

	store := &Store{}
	seen := make(map[string]struct{}, len(specs))

	for _, spec := range specs {
		p, err := build(spec)
		if err != nil {
			return nil, err
		}

		if _, ok := seen[p.Name]; ok {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		if spec.Default {
			if store.def != nil {
				return nil, fmt.Errorf("profiles %q and %q are both marked default", store.def.Name, p.Name)
			}
			store.def = p
			continue
		}

		store.ordered = append(store.ordered, p)
	}

	if store.def == nil {
		return nil, errors.New("no default profile configured")
	}

	return store, nil
}

func build(spec Spec) (*Profile, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, errors.New("profile name is required")
	}

	title := strings.TrimSpace(spec.Title)
	if title == "" {
		title = name
	}

	p := &Profile{
		Name:   name,
		Title:  title,
		tiers:  make(map[screening.Tier][]string, len(screening.Tiers)),
		lookup: make(map[string]screening.Tier),
		words:  make(map[string]struct{}),
	}

	for _, m := range spec.Match {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			p.match = append(p.match, m)
		}
	}

	raw := map[screening.Tier][]string{
		screening.TierCritical: spec.Tiers.Critical,
		screening.TierHigh:     spec.Tiers.High,
		screening.TierBonus:    spec.Tiers.Bonus,
		screening.TierBias:     spec.Tiers.Bias,
	}

	for _, tier := range screening.Tiers {
		for _, phrase := range raw[tier] {
			phrase = NormalizePhrase(phrase)
			if phrase == "" {
				continue
			}

			if err := checkPhrase(phrase); err != nil {
				return nil, fmt.Errorf("profile %q: %w", name, err)
			}

			if existing, ok := p.lookup[phrase]; ok {
				if existing == tier {
					continue
				}
				return nil, fmt.Errorf("profile %q: phrase %q appears in tiers %s and %s", name, phrase, existing, tier)
			}

			p.lookup[phrase] = tier
			p.tiers[tier] = append(p.tiers[tier], phrase)

			words := strings.Fields(phrase)
			for _, w := range words {
				p.words[w] = struct{}{}
			}
			if len(words) > p.longest {
				p.longest = len(words)
			}
		}
	}

	return p, nil
}

// NormalizePhrase lower-cases a phrase, drops apostrophes the way scored text
// does and collapses its inner whitespace.
func NormalizePhrase(phrase string) string {
	return strings.Join(strings.Fields(apostrophes.Replace(strings.ToLower(phrase))), " ")
}

// checkPhrase rejects normalized phrases that sanitized text can never contain.
func checkPhrase(phrase string) error {
	if !phraseChars.MatchString(phrase) {
		return fmt.Errorf("phrase %q has characters removed from scored text", phrase)
	}

	for _, w := range strings.Fields(phrase) {
		if strings.HasSuffix(w, ".") {
			return fmt.Errorf("phrase %q has a word ending a sentence", phrase)
		}
		if strings.Trim(w, "-/+#&.") == "" {
			return fmt.Errorf("phrase %q has a word without letters or digits", phrase)
		}
	}

	return nil
}

// Resolve maps a free-text role title to a profile. It never fails: titles
// matching no keyword resolve to the default profile.
func (s *Store) Resolve(role string) *Profile {
	lower := strings.ToLower(role)
	for _, p := range s.ordered {
		for _, m := range p.match {
			if strings.Contains(lower, m) {
				return p
			}
		}
	}
	return s.def
}

// Profiles returns all profiles in resolution order, default last.
func (s *Store) Profiles() []*Profile {
	out := make([]*Profile, 0, len(s.ordered)+1)
	out = append(out, s.ordered...)
	return append(out, s.def)
}

// Get returns the profile with the given name.
func (s *Store) Get(name string) (*Profile, bool) {
	for _, p := range s.Profiles() {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
