package sqlguard

import "strings"

type tokKind int

const (
	tkWord tokKind = iota
	tkNumber
	tkString
	tkQuoted
	tkComment
	tkSpace
	tkSymbol
)

type token struct {
	kind tokKind
	text string
}

// lex splits SQL into tokens. It understands '' and E'' strings,
// dollar quoting, "" and `` identifiers, -- and nested /* */ comments,
// which is all the keyword gate and the statement splitter need.
func lex(s string) []token {
	var toks []token
	i := 0
	emit := func(kind tokKind, end int) {
		toks = append(toks, token{kind: kind, text: s[i:end]})
		i = end
	}
	for i < len(s) {
		c := s[i]
		switch {
		case isSpace(c):
			j := i
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			emit(tkSpace, j)
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				emit(tkComment, len(s))
			} else {
				emit(tkComment, i+j)
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			emit(tkComment, blockCommentEnd(s, i))
		case c == '\'':
			emit(tkString, quotedEnd(s, i+1, '\'', false))
		case (c == 'E' || c == 'e') && i+1 < len(s) && s[i+1] == '\'':
			emit(tkString, quotedEnd(s, i+2, '\'', true))
		case c == '"' || c == '`':
			emit(tkQuoted, quotedEnd(s, i+1, c, false))
		case c == '$' && dollarTag(s, i) != "":
			tag := dollarTag(s, i)
			j := strings.Index(s[i+len(tag):], tag)
			if j < 0 {
				emit(tkString, len(s))
			} else {
				emit(tkString, i+len(tag)+j+len(tag))
			}
		case isDigit(c):
			j := i
			for j < len(s) && (isDigit(s[j]) || s[j] == '.' || s[j] == 'e' || s[j] == 'E') {
				j++
			}
			emit(tkNumber, j)
		case isWordStart(c):
			j := i
			for j < len(s) && isWordPart(s[j]) {
				j++
			}
			emit(tkWord, j)
		default:
			emit(tkSymbol, i+1)
		}
	}
	return toks
}

// quotedEnd returns the index just past the closing quote starting the
// scan at from. A doubled quote is an escaped quote.
func quotedEnd(s string, from int, q byte, backslash bool) int {
	for j := from; j < len(s); j++ {
		switch {
		case backslash && s[j] == '\\':
			j++
		case s[j] == q:
			if j+1 < len(s) && s[j+1] == q {
				j++
				continue
			}
			return j + 1
		}
	}
	return len(s)
}

func blockCommentEnd(s string, start int) int {
	depth := 0
	for j := start; j+1 < len(s); j++ {
		switch {
		case s[j] == '/' && s[j+1] == '*':
			depth++
			j++
		case s[j] == '*' && s[j+1] == '/':
			depth--
			j++
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(s)
}

// dollarTag returns "$tag$" when s[i:] opens a dollar-quoted string.
func dollarTag(s string, i int) string {
	j := i + 1
	for j < len(s) && (isWordStart(s[j]) || (j > i+1 && isDigit(s[j]))) {
		j++
	}
	if j < len(s) && s[j] == '$' {
		return s[i : j+1]
	}
	return ""
}

func isSpace(c byte) bool     { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' }
func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isWordStart(c byte) bool { return c == '_' || c >= 0x80 || (c|0x20 >= 'a' && c|0x20 <= 'z') }
func isWordPart(c byte) bool  { return isWordStart(c) || isDigit(c) || c == '$' }

// words returns the upper-cased bare words of sql, skipping literals,
// quoted identifiers and comments.
func words(sql string) []string {
	var out []string
	for _, t := range lex(sql) {
		if t.kind == tkWord {
			out = append(out, strings.ToUpper(t.text))
		}
	}
	return out
}

// statements splits sql at top-level semicolons and drops empty pieces.
func statements(sql string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if st := strings.TrimSpace(cur.String()); st != "" && hasCode(st) {
			out = append(out, st)
		}
		cur.Reset()
	}
	for _, t := range lex(sql) {
		if t.kind == tkSymbol && t.text == ";" {
			flush()
			continue
		}
		cur.WriteString(t.text)
	}
	flush()
	return out
}

// hasCode reports whether sql holds anything besides comments and space.
func hasCode(sql string) bool {
	for _, t := range lex(sql) {
		if t.kind != tkComment && t.kind != tkSpace {
			return true
		}
	}
	return false
}

// firstWord is the first bare word, upper-cased.
func firstWord(sql string) string {
	for _, t := range lex(sql) {
		switch t.kind {
		case tkWord:
			return strings.ToUpper(t.text)
		case tkComment, tkSpace:
			continue
		case tkSymbol:
			if t.text == "(" {
				continue
			}
		}
		return ""
	}
	return ""
}
