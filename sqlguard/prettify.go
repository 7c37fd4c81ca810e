package sqlguard

import (
	"slices"
	"strings"
)

var (
	upperWords = []string{
		"SELECT", "DISTINCT", "FROM", "WHERE", "GROUP", "BY", "HAVING", "ORDER", "LIMIT", "OFFSET",
		"JOIN", "LEFT", "RIGHT", "INNER", "OUTER", "FULL", "CROSS", "NATURAL", "ON", "USING",
		"AND", "OR", "NOT", "IN", "IS", "NULL", "AS", "ASC", "DESC", "LIKE", "ILIKE", "BETWEEN",
		"CASE", "WHEN", "THEN", "ELSE", "END", "WITH", "UNION", "ALL", "INTERSECT", "EXCEPT",
		"COUNT", "SUM", "AVG", "MIN", "MAX", "COALESCE", "CAST", "EXTRACT", "DATE_TRUNC",
		"OVER", "PARTITION", "WINDOW", "QUALIFY", "FILTER", "EXISTS", "TRUE", "FALSE",
		"INSERT", "INTO", "VALUES", "UPDATE", "SET", "DELETE", "RETURNING", "NULLS", "FIRST", "LAST",
	}
	clauseWords = []string{
		"SELECT", "FROM", "WHERE", "HAVING", "LIMIT", "OFFSET", "UNION", "INTERSECT", "EXCEPT",
		"WINDOW", "QUALIFY", "RETURNING", "SET", "VALUES",
	}
	joinPrefixes = []string{"LEFT", "RIGHT", "INNER", "FULL", "CROSS", "NATURAL"}
)

// Prettify formats sql for display: keywords upper-cased, one major
// clause per line, subqueries indented. Literals, quoted identifiers
// and comments are left as written.
func Prettify(sql string) string {
	toks := lex(strings.TrimSpace(sql))

	var (
		lines []string
		cur   strings.Builder
		depth int
		prev  string // previous word, upper-cased
	)
	newline := func() {
		if line := strings.TrimRight(cur.String(), " "); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
		cur.Reset()
		cur.WriteString(strings.Repeat("  ", depth))
	}
	next := func(i int) string {
		for j := i + 1; j < len(toks); j++ {
			switch toks[j].kind {
			case tkSpace, tkComment:
				continue
			case tkWord:
				return strings.ToUpper(toks[j].text)
			default:
				return toks[j].text
			}
		}
		return ""
	}

	for i, t := range toks {
		switch t.kind {
		case tkSpace:
			if s := cur.String(); s != "" && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "(") {
				cur.WriteByte(' ')
			}
			continue
		case tkSymbol:
			switch t.text {
			case "(":
				depth++
			case ")":
				if depth > 0 {
					depth--
				}
			}
			cur.WriteString(t.text)
			continue
		case tkComment:
			cur.WriteString(t.text)
			if strings.HasPrefix(t.text, "--") {
				newline()
			}
			continue
		case tkWord:
		default:
			cur.WriteString(t.text)
			continue
		}

		word := strings.ToUpper(t.text)
		breakBefore := slices.Contains(clauseWords, word) ||
			((word == "GROUP" || word == "ORDER") && next(i) == "BY") ||
			(slices.Contains(joinPrefixes, word) && (next(i) == "JOIN" || next(i) == "OUTER")) ||
			(word == "JOIN" && !slices.Contains(joinPrefixes, prev) && prev != "OUTER")
		// Inside function calls ORDER BY and FILTER stay inline.
		if word == "ORDER" && prev != "" && (strings.HasSuffix(strings.TrimSpace(cur.String()), "(") || isWindowContext(cur.String())) {
			breakBefore = false
		}
		if breakBefore && strings.TrimSpace(cur.String()) != "" {
			newline()
		}
		if slices.Contains(upperWords, word) {
			cur.WriteString(word)
		} else {
			cur.WriteString(t.text)
		}
		prev = word
	}
	newline()
	return strings.Join(lines, "\n")
}

func isWindowContext(line string) bool {
	up := strings.ToUpper(line)
	open := strings.LastIndex(up, "OVER (")
	return open >= 0 && !strings.Contains(up[open:], ")")
}
