package guardrail

import (
	"errors"
	"strings"
	"unicode"
)

var errUnterminated = errors.New("unterminated literal")

// token is a keyword or identifier found outside string literals
type token struct {
	text   string // upper-cased
	quoted bool   // came from a quoted identifier
	call   bool   // followed by an opening parenthesis
}

// statement is one ';'-separated piece of the candidate text
type statement struct {
	text   string // comments removed, whitespace collapsed, original case
	tokens []token
}

// scanner splits SQL text into statements while skipping comments and
// string literals. It never interprets the SQL beyond that.
type scanner struct {
	runes        []rune
	statements   []statement
	cur          strings.Builder
	word         strings.Builder
	tokens       []token
	pendingSpace bool
	lastWasWord  bool
}

func scan(input string) ([]statement, error) {
	s := &scanner{runes: []rune(input)}
	if err := s.run(); err != nil {
		return nil, err
	}
	return s.statements, nil
}

func (s *scanner) run() error {
	n := len(s.runes)
	for i := 0; i < n; i++ {
		r := s.runes[i]
		next := rune(0)
		if i+1 < n {
			next = s.runes[i+1]
		}

		switch {
		case r == '-' && next == '-':
			s.flushWord()
			for i < n && s.runes[i] != '\n' {
				i++
			}
			s.pendingSpace = true

		case r == '/' && next == '*':
			s.flushWord()
			end := indexFrom(s.runes, i+2, "*/")
			if end < 0 {
				i = n
			} else {
				i = end + 1
			}
			s.pendingSpace = true

		case unicode.IsSpace(r):
			s.flushWord()
			s.pendingSpace = true

		case r == '\'':
			s.flushWord()
			end, ok := closeQuote(s.runes, i, '\'')
			if !ok {
				return errUnterminated
			}
			s.emit(string(s.runes[i : end+1]))
			s.lastWasWord = false
			i = end

		case r == '"' || r == '`' || r == '[':
			s.flushWord()
			closing := r
			if r == '[' {
				closing = ']'
			}
			end, ok := closeQuote(s.runes, i, closing)
			if !ok {
				return errUnterminated
			}
			inner := string(s.runes[i+1 : end])
			s.emit(string(s.runes[i : end+1]))
			s.tokens = append(s.tokens, token{text: strings.ToUpper(inner), quoted: true})
			s.lastWasWord = true
			i = end

		case r == ';':
			s.endStatement()

		case isWordRune(r):
			s.word.WriteRune(r)
			s.emit(string(r))

		default:
			s.flushWord()
			if r == '(' && s.lastWasWord && len(s.tokens) > 0 {
				s.tokens[len(s.tokens)-1].call = true
			}
			s.emit(string(r))
			s.lastWasWord = false
		}
	}
	s.endStatement()
	return nil
}

func (s *scanner) emit(text string) {
	if s.pendingSpace && s.cur.Len() > 0 {
		s.cur.WriteByte(' ')
	}
	s.pendingSpace = false
	s.cur.WriteString(text)
}

func (s *scanner) flushWord() {
	if s.word.Len() == 0 {
		return
	}
	s.tokens = append(s.tokens, token{text: strings.ToUpper(s.word.String())})
	s.word.Reset()
	s.lastWasWord = true
}

func (s *scanner) endStatement() {
	s.flushWord()
	s.statements = append(s.statements, statement{
		text:   strings.TrimSpace(s.cur.String()),
		tokens: s.tokens,
	})
	s.cur.Reset()
	s.tokens = nil
	s.pendingSpace = false
	s.lastWasWord = false
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || r == '@' || r == '#' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// closeQuote finds the closing quote for the literal opened at start.
// A doubled closing character is an escaped quote.
func closeQuote(runes []rune, start int, closing rune) (int, bool) {
	for j := start + 1; j < len(runes); j++ {
		if runes[j] != closing {
			continue
		}
		if j+1 < len(runes) && runes[j+1] == closing {
			j++
			continue
		}
		return j, true
	}
	return 0, false
}

func indexFrom(runes []rune, from int, needle string) int {
	pattern := []rune(needle)
	for i := from; i+len(pattern) <= len(runes); i++ {
		match := true
		for k := range pattern {
			if runes[i+k] != pattern[k] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
