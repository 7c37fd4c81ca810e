package sqlguard

import (
	"encoding/json"
	"regexp"
	"slices"
	"strings"
)

var (
	reFence = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_+-]*)[^\\n]*\\n(.*?)```")
	// A statement in prose must begin a line.
	reStmtStart   = regexp.MustCompile(`(?im)^[ \t]*(SELECT|WITH|INSERT|UPDATE|DELETE|DROP|ALTER|TRUNCATE|CREATE|EXPLAIN|SHOW|DESCRIBE|VALUES|PRAGMA|MERGE|GRANT|REVOKE)\b`)
	reBlankLine   = regexp.MustCompile(`\n[ \t]*\n`)
	reSentenceEnd = regexp.MustCompile(`[A-Za-z]\.$`)

	sqlFenceTags = []string{"sql", "postgresql", "postgres", "psql", "pgsql", "duckdb", "sqlite", "mysql"}
	stmtVerbs    = []string{
		"SELECT", "WITH", "INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE", "CREATE",
		"EXPLAIN", "SHOW", "DESCRIBE", "VALUES", "PRAGMA", "MERGE", "GRANT", "REVOKE", "TABLE", "FROM",
	}
)

// Extract returns the first SQL statement in a model reply, without a
// trailing semicolon. It accepts fenced code blocks, a JSON object with
// a sql, query or statement field, or bare SQL starting a line of prose.
// A reply beginning with "MISSING:" means the model declined; its reason
// becomes the ExtractionError.
func Extract(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ExtractionError{Reason: "empty response"}
	}
	if reason, ok := cutPrefixFold(text, "MISSING:"); ok {
		return "", &ExtractionError{Reason: "model could not answer: " + strings.TrimSpace(firstLine(reason)), Response: preview(text)}
	}

	for _, c := range candidates(text) {
		stmt := firstStatement(c.body)
		if stmt == "" || (c.prose && !structured(stmt)) {
			continue
		}
		return stmt, nil
	}
	return "", &ExtractionError{Reason: "no statement found", Response: preview(text)}
}

type candidate struct {
	body string
	// prose marks text found outside code blocks and JSON, which must
	// also look like a statement rather than an English sentence.
	prose bool
}

// candidates lists places a statement may live, most explicit first.
func candidates(text string) []candidate {
	var tagged, untagged []candidate
	for _, m := range reFence.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[2])
		switch {
		case slices.Contains(sqlFenceTags, strings.ToLower(m[1])):
			tagged = append(tagged, candidate{body: body})
		case strings.HasPrefix(body, "{"):
			for _, q := range jsonSQL(body) {
				untagged = append(untagged, candidate{body: q})
			}
		default:
			untagged = append(untagged, candidate{body: body})
		}
	}
	out := append(tagged, untagged...)
	for _, q := range jsonSQL(text) {
		out = append(out, candidate{body: q})
	}

	prose := reFence.ReplaceAllString(text, "\n\n")
	for _, loc := range reStmtStart.FindAllStringIndex(prose, -1) {
		rest := prose[loc[0]:]
		if end := reBlankLine.FindStringIndex(rest); end != nil {
			rest = rest[:end[0]]
		}
		out = append(out, candidate{body: rest, prose: true})
	}
	return out
}

// stmtShapes holds the minimal structure each statement verb needs before
// a line of prose is taken as SQL. "With the sales table..." or "Show
// totals per region:" fail these.
var stmtShapes = map[string]*regexp.Regexp{
	"SELECT":   regexp.MustCompile(`(?is)^SELECT\s+(.+\sFROM\s+\S|[0-9'"(*$-]|[a-z_][a-z0-9_.]*\s*\()`),
	"WITH":     regexp.MustCompile(`(?is)^WITH\s+(RECURSIVE\s+)?("[^"]+"|[a-z_][a-z0-9_]*)\s*(\([^)]*\)\s*)?AS\s*(NOT\s+)?(MATERIALIZED\s*)?\(`),
	"INSERT":   regexp.MustCompile(`(?is)^INSERT\s+INTO\s+\S`),
	"UPDATE":   regexp.MustCompile(`(?is)^UPDATE\s+\S+(\s+(AS\s+)?\w+)?\s+SET\s`),
	"DELETE":   regexp.MustCompile(`(?is)^DELETE\s+FROM\s+\S`),
	"DROP":     regexp.MustCompile(`(?is)^DROP\s+(TABLE|VIEW|INDEX|SCHEMA|SEQUENCE|FUNCTION|DATABASE|MATERIALIZED|TYPE|EXTENSION|ROLE|USER|TRIGGER|MACRO)\b`),
	"ALTER":    regexp.MustCompile(`(?is)^ALTER\s+(TABLE|VIEW|INDEX|SCHEMA|SEQUENCE|FUNCTION|DATABASE|MATERIALIZED|TYPE|ROLE|USER)\b`),
	"TRUNCATE": regexp.MustCompile(`(?is)^TRUNCATE\s+(TABLE\s+)?("[^"]+"|[a-z_][a-z0-9_.]*)\s*(,|CASCADE|RESTRICT|RESTART|CONTINUE|$)`),
	"CREATE":   regexp.MustCompile(`(?is)^CREATE\s+(OR\s+REPLACE\s+)?((TEMP|TEMPORARY|UNIQUE|MATERIALIZED)\s+)?(TABLE|VIEW|INDEX|SCHEMA|SEQUENCE|FUNCTION|TYPE|MACRO)\b`),
	"EXPLAIN":  regexp.MustCompile(`(?is)^EXPLAIN\s+(\([^)]*\)\s*|ANALYZE\s+|VERBOSE\s+)*(SELECT|WITH|INSERT|UPDATE|DELETE)\b`),
	"SHOW":     regexp.MustCompile(`(?is)^SHOW\s+("[^"]+"|[a-z_][a-z0-9_.]*)(\s+("[^"]+"|[a-z_][a-z0-9_.]*))?\s*$`),
	"DESCRIBE": regexp.MustCompile(`(?is)^DESCRIBE\s+("[^"]+"|[a-z_][a-z0-9_.]*)\s*$`),
	"VALUES":   regexp.MustCompile(`(?is)^VALUES\s*\(`),
	"PRAGMA":   regexp.MustCompile(`(?is)^PRAGMA\s+[a-z_][a-z0-9_]*\s*(\(|=|$)`),
	"MERGE":    regexp.MustCompile(`(?is)^MERGE\s+INTO\s+\S`),
	"GRANT":    regexp.MustCompile(`(?is)^GRANT\s+.+\s+(ON|TO)\s+\S`),
	"REVOKE":   regexp.MustCompile(`(?is)^REVOKE\s+.+\s+(ON|FROM)\s+\S`),
}

// structured reports whether stmt has the shape of a statement for its
// leading verb. A trailing colon, question mark or full stop after a
// word marks a sentence.
func structured(stmt string) bool {
	if strings.HasSuffix(stmt, ":") || strings.HasSuffix(stmt, "?") || reSentenceEnd.MatchString(stmt) {
		return false
	}
	re, ok := stmtShapes[firstWord(stmt)]
	return ok && re.MatchString(strings.TrimSpace(stmt))
}

// jsonSQL returns the sql, query or statement field of a JSON object.
func jsonSQL(s string) []string {
	if !strings.HasPrefix(s, "{") {
		return nil
	}
	var payload map[string]any
	if json.Unmarshal([]byte(s), &payload) != nil {
		return nil
	}
	var out []string
	for _, key := range []string{"sql", "query", "statement"} {
		if v, ok := payload[key].(string); ok {
			out = append(out, v)
		}
	}
	return out
}

func firstStatement(s string) string {
	stmts := statements(s)
	if len(stmts) == 0 {
		return ""
	}
	stmt := strings.TrimSpace(stmts[0])
	if !slices.Contains(stmtVerbs, firstWord(stmt)) {
		return ""
	}
	return stmt
}

// Commentary is the reply text outside fenced code blocks, used as the
// model's explanation. Replies without a fence have no separable
// commentary.
func Commentary(text string) string {
	if !reFence.MatchString(text) {
		return ""
	}
	rest := strings.TrimSpace(reFence.ReplaceAllString(text, ""))
	return strings.Join(strings.Fields(rest), " ")
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func preview(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
