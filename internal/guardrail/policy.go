package guardrail

import "strings"

// Policy configures what the validator accepts
type Policy struct {
	// ReadVerbs are the leading verbs that may start a statement
	ReadVerbs []string `yaml:"read_verbs"`

	// WriteVerbs are data-modifying, DDL, permission and procedure verbs
	WriteVerbs []string `yaml:"write_verbs"`

	// DeniedIdentifiers are rejected wherever they appear outside string literals
	DeniedIdentifiers []string `yaml:"denied_identifiers"`

	// DeniedPrefixes reject any identifier starting with them (system procedures)
	DeniedPrefixes []string `yaml:"denied_prefixes"`

	// MaxLength bounds the candidate text in bytes; 0 disables the check
	MaxLength int `yaml:"max_length"`
}

// DefaultPolicy returns the read-only policy used by the structured query provider
func DefaultPolicy() Policy {
	return Policy{
		ReadVerbs: []string{"SELECT", "WITH"},
		WriteVerbs: []string{
			"INSERT", "UPDATE", "DELETE", "MERGE", "UPSERT", "REPLACE",
			"DROP", "ALTER", "CREATE", "TRUNCATE", "RENAME", "COMMENT",
			"GRANT", "REVOKE", "DENY",
			"EXEC", "EXECUTE", "CALL", "DO",
		},
		DeniedIdentifiers: []string{
			"ATTACH", "DETACH", "PRAGMA", "VACUUM", "LOAD_EXTENSION",
			"SHUTDOWN", "KILL", "WAITFOR", "SLEEP", "BENCHMARK",
			"PG_SLEEP", "PG_READ_FILE", "PG_READ_BINARY_FILE", "PG_LS_DIR",
			"PG_TERMINATE_BACKEND", "SET_CONFIG", "LO_IMPORT", "LO_EXPORT", "DBLINK",
			"OPENROWSET", "OPENDATASOURCE", "OPENQUERY",
			"LOAD_FILE", "OUTFILE", "DUMPFILE",
		},
		DeniedPrefixes: []string{"XP_", "SP_", "DBMS_", "UTL_"},
		MaxLength:      10000,
	}
}

// Merge returns a copy of p extended with the entries of extra. Lists are
// unioned, and a non-zero extra.MaxLength replaces the limit.
func (p Policy) Merge(extra Policy) Policy {
	out := Policy{
		ReadVerbs:         union(p.ReadVerbs, extra.ReadVerbs),
		WriteVerbs:        union(p.WriteVerbs, extra.WriteVerbs),
		DeniedIdentifiers: union(p.DeniedIdentifiers, extra.DeniedIdentifiers),
		DeniedPrefixes:    union(p.DeniedPrefixes, extra.DeniedPrefixes),
		MaxLength:         p.MaxLength,
	}
	if extra.MaxLength > 0 {
		out.MaxLength = extra.MaxLength
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	return set
}
