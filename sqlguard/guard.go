// Package sqlguard pulls a SQL statement out of a model reply and
// decides whether it may run.
//
// The mutation policy is a keyword gate: blocked keywords are matched as
// whole, case-insensitive tokens outside string literals, quoted
// identifiers and comments. It is not a SQL parser. A blocked word used
// harmlessly (SELECT ... FOR UPDATE) is rejected, and a write hidden in a
// function call the gate cannot see is not. The executor's read-only
// transaction is the second line of defence.
package sqlguard

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultBlocked are the keywords rejected unless mutations are allowed.
var DefaultBlocked = []string{"DROP", "DELETE", "UPDATE", "ALTER", "TRUNCATE"}

// ExtractionError means no SQL statement could be found in a reply.
type ExtractionError struct {
	Reason string
	// Response is the start of the offending reply, for logs.
	Response string
}

func (e *ExtractionError) Error() string {
	return "no SQL statement in model response: " + e.Reason
}

// PolicyViolation names the blocked keyword found in a statement.
type PolicyViolation struct {
	Keyword   string
	Statement string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("policy violation: %s statements are not allowed (enable allow_mutations to permit them)", e.Keyword)
}

// Policy decides which statements may be executed.
type Policy struct {
	AllowMutations bool
	Blocked        []string
}

// DefaultPolicy blocks DefaultBlocked.
func DefaultPolicy() Policy {
	return Policy{Blocked: slices.Clone(DefaultBlocked)}
}

// NewPolicy builds a policy from config values. An empty list means
// DefaultBlocked.
func NewPolicy(allowMutations bool, blocked []string) Policy {
	p := Policy{AllowMutations: allowMutations}
	for _, kw := range blocked {
		if kw = strings.ToUpper(strings.TrimSpace(kw)); kw != "" {
			p.Blocked = append(p.Blocked, kw)
		}
	}
	if len(p.Blocked) == 0 {
		p.Blocked = slices.Clone(DefaultBlocked)
	}
	return p
}

// Validate returns a *PolicyViolation for the first blocked keyword in
// sql, or nil when the statement may run.
func (p Policy) Validate(sql string) error {
	if !hasCode(sql) {
		return &ExtractionError{Reason: "empty statement"}
	}
	if p.AllowMutations {
		return nil
	}
	for _, w := range words(sql) {
		if slices.Contains(p.Blocked, w) {
			return &PolicyViolation{Keyword: w, Statement: sql}
		}
	}
	return nil
}

var (
	readVerbs = []string{"SELECT", "WITH", "SHOW", "EXPLAIN", "DESCRIBE", "DESC", "VALUES", "TABLE", "PRAGMA", "SUMMARIZE", "FROM"}
	writeWords = []string{
		"INSERT", "UPDATE", "DELETE", "MERGE", "UPSERT", "TRUNCATE", "DROP", "ALTER", "CREATE",
		"GRANT", "REVOKE", "COPY", "ATTACH", "DETACH", "INSTALL", "LOAD", "VACUUM", "CALL",
	}
)

// IsReadOnly reports whether sql starts with a read verb and contains no
// data-modifying keyword.
func IsReadOnly(sql string) bool {
	if !slices.Contains(readVerbs, firstWord(sql)) {
		return false
	}
	for _, w := range words(sql) {
		if slices.Contains(writeWords, w) {
			return false
		}
	}
	return true
}

// IsRowReturning reports whether sql can be wrapped as a subquery
// (plain SELECT or WITH ... SELECT).
func IsRowReturning(sql string) bool {
	switch firstWord(sql) {
	case "SELECT", "WITH", "VALUES":
		return IsReadOnly(sql)
	}
	return false
}
