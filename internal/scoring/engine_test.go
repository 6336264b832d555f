package scoring

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spigell/hr-screener/internal/profiles"
	"github.com/spigell/hr-screener/internal/screening"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()

	store, err := profiles.Default()
	if err != nil {
		t.Fatalf("loading default profiles: %v", err)
	}
	return New(store)
}

func phrases(factors []screening.Factor) []string {
	out := make([]string, 0, len(factors))
	for _, f := range factors {
		out = append(out, f.Phrase)
	}
	return out
}

func TestScore(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)

	tests := []struct {
		name    string
		text    string
		role    string
		score   int
		profile string
		factors []string
		negated []string
	}{
		{
			name:    "empty text keeps baseline",
			text:    "",
			role:    "Avionics Software Engineer",
			score:   Baseline,
			profile: "avionics_software_engineer",
			factors: []string{},
			negated: []string{},
		},
		{
			name:    "critical and high skills lower risk",
			text:    "Ten years of DO-178C and Embedded C on VxWorks.",
			role:    "Avionics Software Engineer",
			score:   50 - 15 - 15 - 10,
			profile: "avionics_software_engineer",
			factors: []string{"do-178c", "embedded c", "vxworks"},
			negated: []string{},
		},
		{
			name:    "negated skill is skipped",
			text:    "Strong Ada background, no experience with embedded C.",
			role:    "Avionics Software Engineer",
			score:   50 - 15,
			profile: "avionics_software_engineer",
			factors: []string{"ada"},
			negated: []string{"embedded c"},
		},
		{
			name:    "contracted negation",
			text:    "I haven't used MISRA",
			role:    "Avionics Software Engineer",
			score:   50,
			profile: "avionics_software_engineer",
			factors: []string{},
			negated: []string{"misra"},
		},
		{
			name:    "conjunction starts a fresh clause",
			text:    "No Ada but solid MISRA",
			role:    "Avionics Software Engineer",
			score:   50 - 15,
			profile: "avionics_software_engineer",
			factors: []string{"misra"},
			negated: []string{"ada"},
		},
		{
			name:    "negated then affirmed counts once",
			text:    "Not much RTOS at first. Later shipped an RTOS port.",
			role:    "Avionics Software Engineer",
			score:   50 - 10,
			profile: "avionics_software_engineer",
			factors: []string{"rtos"},
			negated: []string{},
		},
		{
			name:    "keyword stuffing counts once",
			text:    "Ada ada ADA, ada; ada!",
			role:    "Avionics Software Engineer",
			score:   50 - 15,
			profile: "avionics_software_engineer",
			factors: []string{"ada"},
			negated: []string{},
		},
		{
			name:    "longest phrase consumes shorter one",
			text:    "Spark Ada proofs",
			role:    "Avionics Software Engineer",
			score:   50 - 15,
			profile: "avionics_software_engineer",
			factors: []string{"spark ada"},
			negated: []string{},
		},
		{
			name:    "bias raises risk and clamps",
			text:    "Young energetic rockstar ninja",
			role:    "Avionics Software Engineer",
			score:   MaxScore,
			profile: "avionics_software_engineer",
			factors: []string{"young", "energetic", "rockstar", "ninja"},
			negated: []string{},
		},
		{
			name: "floor clamp",
			text: "DO-178C, embedded C, Ada, MISRA, safe coding, VxWorks, Green Hills, RTOS, " +
				"multithreading, ISR, Python, Linux, Git, Jira",
			role:    "Avionics Software Engineer",
			score:   MinScore,
			profile: "avionics_software_engineer",
			factors: []string{
				"do-178c", "embedded c", "ada", "misra", "safe coding", "vxworks", "green hills",
				"rtos", "multithreading", "isr", "python", "linux", "git", "jira",
			},
			negated: []string{},
		},
		{
			name:    "verification profile",
			text:    "MC/DC structural coverage with VectorCAST",
			role:    "Test Engineer",
			score:   50 - 15 - 15 - 10,
			profile: "verification_engineer",
			factors: []string{"mc/dc", "structural coverage", "vectorcast"},
			negated: []string{},
		},
		{
			name:    "markup is stripped",
			text:    "<ul><li>ARP4754</li><li>DOORS</li></ul>",
			role:    "Systems Architect",
			score:   50 - 15 - 15,
			profile: "systems_architect",
			factors: []string{"arp4754", "doors"},
			negated: []string{},
		},
		{
			name:    "slash joined skills",
			text:    "Embedded C/C++ developer",
			role:    "Avionics Software Engineer",
			score:   50 - 15 - 5,
			profile: "avionics_software_engineer",
			factors: []string{"embedded c", "c++"},
			negated: []string{},
		},
		{
			name:    "slash joined phrases and standards",
			text:    "Ada/SPARK Ada and DO-178C/DO-254",
			role:    "Avionics Software Engineer",
			score:   50 - 15 - 15 - 15,
			profile: "avionics_software_engineer",
			factors: []string{"ada", "spark ada", "do-178c"},
			negated: []string{},
		},
		{
			name:    "hyphen suffix",
			text:    "Ada-based tooling",
			role:    "Avionics Software Engineer",
			score:   50 - 15,
			profile: "avionics_software_engineer",
			factors: []string{"ada"},
			negated: []string{},
		},
		{
			name:    "negated slash joined skills",
			text:    "No embedded C/C++ yet",
			role:    "Avionics Software Engineer",
			score:   50,
			profile: "avionics_software_engineer",
			factors: []string{},
			negated: []string{"embedded c", "c++"},
		},
		{
			name:    "role text is not scored",
			text:    "gardening",
			role:    "Embedded Ada Engineer",
			score:   Baseline,
			profile: "avionics_software_engineer",
			factors: []string{},
			negated: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := engine.Score(tt.text, tt.role)
			if got.RiskScore != tt.score {
				t.Fatalf("expected score %d, got %d (%v)", tt.score, got.RiskScore, phrases(got.MatchedFactors))
			}
			if got.Profile != tt.profile {
				t.Fatalf("expected profile %q, got %q", tt.profile, got.Profile)
			}
			if strings.Join(phrases(got.MatchedFactors), "|") != strings.Join(tt.factors, "|") {
				t.Fatalf("expected factors %v, got %v", tt.factors, phrases(got.MatchedFactors))
			}
			if strings.Join(got.NegatedSkips, "|") != strings.Join(tt.negated, "|") {
				t.Fatalf("expected negated skips %v, got %v", tt.negated, got.NegatedSkips)
			}
		})
	}
}

func TestScorePhraseWithApostrophe(t *testing.T) {
	store, err := profiles.New([]profiles.Spec{{
		Name:    "algorithms",
		Default: true,
		Tiers:   profiles.TierSpecs{High: []string{"Dijkstra's algorithm"}},
	}})
	if err != nil {
		t.Fatalf("building profiles: %v", err)
	}

	got := New(store).Score("Implemented Dijkstra’s algorithm twice", "any")
	if strings.Join(phrases(got.MatchedFactors), "|") != "dijkstras algorithm" {
		t.Fatalf("expected the apostrophe phrase to match, got %v", got.MatchedFactors)
	}
}

func TestScoreTiers(t *testing.T) {
	engine := newEngine(t)

	got := engine.Score("Ada, VxWorks, Python, rockstar", "avionics")
	want := map[string]screening.Tier{
		"ada":      screening.TierCritical,
		"vxworks":  screening.TierHigh,
		"python":   screening.TierBonus,
		"rockstar": screening.TierBias,
	}

	if len(got.MatchedFactors) != len(want) {
		t.Fatalf("expected %d factors, got %v", len(want), got.MatchedFactors)
	}
	for _, f := range got.MatchedFactors {
		if want[f.Phrase] != f.Tier {
			t.Fatalf("expected %q in tier %s, got %s", f.Phrase, want[f.Phrase], f.Tier)
		}
	}
	if got.RiskScore != 50-15-10-5+40 {
		t.Fatalf("unexpected score %d", got.RiskScore)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	engine := newEngine(t)
	text := "Ada and SPARK Ada, no MISRA. Jenkins automation; DO-178C <b>certified</b>."

	first, err := json.Marshal(engine.Score(text, "Avionics Software Engineer"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for i := 0; i < 50; i++ {
		next, err := json.Marshal(engine.Score(text, "Avionics Software Engineer"))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(next) != string(first) {
			t.Fatalf("run %d differs:\n%s\n%s", i, first, next)
		}
	}
}

func TestScoreResultSlicesAreNeverNil(t *testing.T) {
	engine := newEngine(t)

	got := engine.Score("   ", "")
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"matched_factors":[]`) || !strings.Contains(string(data), `"negated_skips":[]`) {
		t.Fatalf("expected empty arrays, got %s", data)
	}
	if got.HasSignal() {
		t.Fatalf("expected no signal")
	}
}
