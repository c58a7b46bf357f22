package guardrail

import (
	"fmt"
	"strings"
)

// Rule names reported in denied verdicts
const (
	RuleTooLong             = "query_too_long"
	RuleUnterminatedLiteral = "unterminated_literal"
	RuleEmptyStatement      = "empty_statement"
	RuleMultipleStatements  = "multiple_statements"
	RuleWriteVerb           = "write_verb"
	RuleNonReadVerb         = "non_read_verb"
	RuleCTEWrite            = "cte_write"
	RuleSelectInto          = "select_into"
	RuleDeniedIdentifier    = "denied_identifier"
)

// Verdict is the result of validating one candidate query
type Verdict struct {
	Allowed         bool   `json:"allowed"`
	MatchedRule     string `json:"matched_rule,omitempty"`
	NormalizedQuery string `json:"normalized_query"`

	// Token is the offending keyword or identifier, kept for audit logs
	Token string `json:"-"`
}

// DeniedError is returned by Check when the validator rejects a query
type DeniedError struct {
	Rule  string
	Token string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("query denied by guardrail rule %s", e.Rule)
}

// Validator applies a Policy to candidate SQL text. It holds no mutable
// state and is safe for concurrent use.
type Validator struct {
	policy            Policy
	readVerbs         map[string]bool
	writeVerbs        map[string]bool
	deniedIdentifiers map[string]bool
	deniedPrefixes    []string
}

// NewValidator creates a validator for the given policy
func NewValidator(policy Policy) *Validator {
	prefixes := make([]string, 0, len(policy.DeniedPrefixes))
	for _, p := range policy.DeniedPrefixes {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &Validator{
		policy:            policy,
		readVerbs:         toSet(policy.ReadVerbs),
		writeVerbs:        toSet(policy.WriteVerbs),
		deniedIdentifiers: toSet(policy.DeniedIdentifiers),
		deniedPrefixes:    prefixes,
	}
}

// Policy returns the policy the validator enforces
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate checks candidate and returns a verdict. Identical input always
// yields an identical verdict.
func (v *Validator) Validate(candidate string) Verdict {
	if v.policy.MaxLength > 0 && len(candidate) > v.policy.MaxLength {
		return deny(RuleTooLong, "", "")
	}

	statements, err := scan(candidate)
	if err != nil {
		return deny(RuleUnterminatedLiteral, "", "")
	}

	nonEmpty := make([]statement, 0, len(statements))
	texts := make([]string, 0, len(statements))
	for _, st := range statements {
		if st.text == "" {
			continue
		}
		nonEmpty = append(nonEmpty, st)
		texts = append(texts, st.text)
	}
	normalized := strings.Join(texts, "; ")

	if len(nonEmpty) == 0 {
		return deny(RuleEmptyStatement, "", normalized)
	}
	if len(nonEmpty) > 1 {
		return deny(RuleMultipleStatements, "", normalized)
	}

	st := nonEmpty[0]
	if len(st.tokens) == 0 || st.tokens[0].quoted {
		return deny(RuleNonReadVerb, "", normalized)
	}

	verb := st.tokens[0].text
	if v.writeVerbs[verb] {
		return deny(RuleWriteVerb, verb, normalized)
	}
	if !v.readVerbs[verb] {
		return deny(RuleNonReadVerb, verb, normalized)
	}

	for i, tok := range st.tokens[1:] {
		if tok.quoted {
			continue
		}
		// tokens[i] precedes tok; a bare AS makes tok a column alias
		prev := st.tokens[i]
		alias := prev.text == "AS" && !prev.call && !prev.quoted
		if verb == "WITH" && v.writeVerbs[tok.text] && !tok.call && !alias {
			return deny(RuleCTEWrite, tok.text, normalized)
		}
		if tok.text == "INTO" {
			return deny(RuleSelectInto, tok.text, normalized)
		}
	}

	for _, tok := range st.tokens {
		if v.isDenied(tok.text) {
			return deny(RuleDeniedIdentifier, tok.text, normalized)
		}
	}

	return Verdict{
		Allowed:         true,
		NormalizedQuery: normalized,
	}
}

// Check validates candidate and returns the normalized query to execute,
// or a *DeniedError.
func (v *Validator) Check(candidate string) (string, error) {
	verdict := v.Validate(candidate)
	if !verdict.Allowed {
		return "", &DeniedError{Rule: verdict.MatchedRule, Token: verdict.Token}
	}
	return verdict.NormalizedQuery, nil
}

func (v *Validator) isDenied(ident string) bool {
	if v.deniedIdentifiers[ident] {
		return true
	}
	for _, p := range v.deniedPrefixes {
		if strings.HasPrefix(ident, p) {
			return true
		}
	}
	return false
}

func deny(rule, tok, normalized string) Verdict {
	return Verdict{
		Allowed:         false,
		MatchedRule:     rule,
		NormalizedQuery: normalized,
		Token:           tok,
	}
}
