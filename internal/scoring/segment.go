package scoring

import (
	"strings"
)

var clauseBreaks = map[string]struct{}{
	".": {}, ",": {}, ";": {}, "!": {}, "?": {},
}

// Contrastive conjunctions open a new clause: "no ada but strong misra".
var conjunctions = map[string]struct{}{
	"but": {}, "however": {}, "although": {}, "though": {}, "whereas": {}, "yet": {}, "while": {},
}

// Lexical cues and contracted verb negations that deny a nearby skill.
var negationCues = map[string]struct{}{
	"no": {}, "not": {}, "without": {}, "lack": {}, "lacks": {}, "lacking": {}, "zero": {},
	"never": {}, "none": {}, "neither": {}, "nor": {}, "cannot": {},
	"dont": {}, "doesnt": {}, "didnt": {}, "havent": {}, "hasnt": {}, "hadnt": {},
	"cant": {}, "wont": {}, "isnt": {}, "arent": {}, "wasnt": {}, "werent": {},
}

type clause struct {
	tokens  []string
	negated bool
}

// segment splits sanitized text into clauses of tokens.
func segment(sanitized string) []clause {
	var (
		clauses []clause
		current clause
	)

	flush := func() {
		if len(current.tokens) > 0 {
			clauses = append(clauses, current)
		}
		current = clause{}
	}

	for _, token := range strings.Fields(sanitized) {
		if _, ok := clauseBreaks[token]; ok {
			flush()
			continue
		}
		if _, ok := conjunctions[token]; ok {
			flush()
			continue
		}
		// Bullets and dangling symbols carry no words.
		if strings.Trim(token, "-/+#&.") == "" {
			continue
		}

		if _, ok := negationCues[token]; ok {
			current.negated = true
		}
		current.tokens = append(current.tokens, token)
	}
	flush()

	return clauses
}
