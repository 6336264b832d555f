// Package inspector blocks unsafe screening input before it reaches scoring.
package inspector

import (
	"regexp"
)

const (
	ReasonInjection = "injection pattern detected"
	ReasonPII       = "restricted PII detected"
)

// NationalIDPattern matches 3-2-4 digit identifiers separated by dashes or
// spaces. The enforcer redacts with the same pattern it is blocked with here.
var NationalIDPattern = regexp.MustCompile(`\b\d{3}[- ]\d{2}[- ]\d{4}\b`)

type rule struct {
	name    string
	reason  string
	pattern *regexp.Regexp
}

// Phone numbers and e-mail addresses are allowed on purpose: recruiters need
// the candidate's contact details.
var defaultRules = []rule{
	{
		name:   "sql_injection",
		reason: ReasonInjection,
		pattern: regexp.MustCompile(`(?i)drop\s+table|select\s+\*\s+from|delete\s+from|insert\s+into|` +
			`union\s+(all\s+)?select|;\s*--|\bxp_cmdshell\b`),
	},
	{
		name:    "command_injection",
		reason:  ReasonInjection,
		pattern: regexp.MustCompile(`(?i)\brm\s+-rf\b|\$\([^)]*\)|;\s*(sh|bash|curl|wget)\b`),
	},
	{
		name:    "national_id",
		reason:  ReasonPII,
		pattern: NationalIDPattern,
	},
}

// Inspector is a stateless content inspector, safe for concurrent use.
type Inspector struct {
	rules []rule
}

// New creates an inspector with the built-in rules.
func New() *Inspector {
	return &Inspector{rules: defaultRules}
}

// Inspect reports whether text is safe. The reason is empty for safe text.
func (i *Inspector) Inspect(text string) (bool, string) {
	for _, r := range i.rules {
		if r.pattern.MatchString(text) {
			return false, r.reason
		}
	}
	return true, ""
}

// Rule returns the name of the first rule matching text, or an empty string.
func (i *Inspector) Rule(text string) string {
	for _, r := range i.rules {
		if r.pattern.MatchString(text) {
			return r.name
		}
	}
	return ""
}
