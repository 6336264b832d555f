// Package scoring maps free text against role profiles and produces a
// deterministic risk score.
package scoring

import (
	"strings"

	"github.com/spigell/hr-screener/internal/profiles"
	"github.com/spigell/hr-screener/internal/screening"
)

const (
	Baseline = 50
	MinScore = 0
	MaxScore = 100
)

var deltas = map[screening.Tier]int{
	screening.TierCritical: -15,
	screening.TierHigh:     -10,
	screening.TierBonus:    -5,
	screening.TierBias:     40,
}

// Delta returns the score change applied for a counted phrase of the tier.
func Delta(t screening.Tier) int {
	return deltas[t]
}

// Engine scores text against the profile resolved for a role. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	profiles *profiles.Store
}

// New creates an engine backed by the given profile store.
func New(store *profiles.Store) *Engine {
	return &Engine{profiles: store}
}

type occurrence struct {
	phrase  string
	tier    screening.Tier
	negated bool
}

// Score evaluates text for the role. Identical input always yields an
// identical result.
func (e *Engine) Score(text, role string) *screening.ScoringResult {
	profile := e.profiles.Resolve(role)

	result := &screening.ScoringResult{
		RiskScore:      Baseline,
		Profile:        profile.Name,
		MatchedFactors: []screening.Factor{},
		NegatedSkips:   []string{},
	}

	score := Baseline
	counted := make(map[string]struct{})
	negated := make(map[string]struct{})
	var negatedOrder []string

	for _, occ := range match(profile, segment(Sanitize(text))) {
		if _, ok := counted[occ.phrase]; ok {
			continue
		}

		if occ.negated {
			if _, ok := negated[occ.phrase]; !ok {
				negated[occ.phrase] = struct{}{}
				negatedOrder = append(negatedOrder, occ.phrase)
			}
			continue
		}

		counted[occ.phrase] = struct{}{}
		score += Delta(occ.tier)
		result.MatchedFactors = append(result.MatchedFactors, screening.Factor{Phrase: occ.phrase, Tier: occ.tier})
	}

	// A phrase counted by a later affirmative mention is no longer a skip.
	for _, phrase := range negatedOrder {
		if _, ok := counted[phrase]; !ok {
			result.NegatedSkips = append(result.NegatedSkips, phrase)
		}
	}

	result.RiskScore = clamp(score)
	return result
}

// match finds profile phrases in text order. At every position the longest
// phrase wins and its tokens are consumed, so "spark ada" is not also read as
// "ada".
func match(profile *profiles.Profile, clauses []clause) []occurrence {
	var found []occurrence
	longest := profile.MaxPhraseWords()

	for _, c := range clauses {
		tokens := expand(profile, c.tokens)
		for i := 0; i < len(tokens); {
			width := 0
			for n := min(longest, len(tokens)-i); n > 0; n-- {
				phrase := strings.Join(tokens[i:i+n], " ")
				if tier, ok := profile.TierOf(phrase); ok {
					found = append(found, occurrence{phrase: phrase, tier: tier, negated: c.negated})
					width = n
					break
				}
			}

			if width == 0 {
				width = 1
			}
			i += width
		}
	}

	return found
}

// expand splits joined tokens such as "c/c++" or "ada-based" into their
// parts unless the token is itself a word of a profile phrase, as "mc/dc" is.
// Slashes split before hyphens so "do-178c/do-254" keeps "do-178c".
func expand(profile *profiles.Profile, tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		out = appendParts(out, profile, token)
	}
	return out
}

func appendParts(out []string, profile *profiles.Profile, token string) []string {
	if profile.HasWord(token) || !strings.ContainsAny(token, "/-") {
		return append(out, token)
	}

	sep := "-"
	if strings.Contains(token, "/") {
		sep = "/"
	}

	for _, part := range strings.Split(token, sep) {
		if strings.Trim(part, "-/+#&.") == "" {
			continue
		}
		out = appendParts(out, profile, part)
	}
	return out
}

func clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}
