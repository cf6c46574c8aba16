package codec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType lists the tokens produced by the lexer.
type TokenType int

const (
	// TokenError carries a scanning error message in Text.
	TokenError TokenType = iota
	// TokenEOF marks the end of input.
	TokenEOF
	// TokenIRI is an <IRIREF>; Text is the IRI without brackets.
	TokenIRI
	// TokenPName is a prefixed name; Text is "prefix:local".
	TokenPName
	// TokenBlank is a blank node label; Text excludes "_:".
	TokenBlank
	// TokenVar is a variable; Text excludes '?' or '$'.
	TokenVar
	// TokenString is a string literal; Text is the unescaped value.
	TokenString
	// TokenLangTag is a language tag; Text excludes '@'.
	TokenLangTag
	// TokenInteger is an unsigned integer.
	TokenInteger
	// TokenDecimal is an unsigned decimal.
	TokenDecimal
	// TokenDouble is an unsigned double with exponent.
	TokenDouble
	// TokenKeyword is a bare word such as SELECT, a, true or regex.
	TokenKeyword
	// TokenPunct is punctuation or an operator; Text is the symbol.
	TokenPunct
)

func (tt TokenType) String() string {
	switch tt {
	case TokenError:
		return "ERROR"
	case TokenEOF:
		return "EOF"
	case TokenIRI:
		return "IRI"
	case TokenPName:
		return "PNAME"
	case TokenBlank:
		return "BLANK_NODE"
	case TokenVar:
		return "VAR"
	case TokenString:
		return "STRING"
	case TokenLangTag:
		return "LANGTAG"
	case TokenInteger:
		return "INTEGER"
	case TokenDecimal:
		return "DECIMAL"
	case TokenDouble:
		return "DOUBLE"
	case TokenKeyword:
		return "KEYWORD"
	case TokenPunct:
		return "PUNCT"
	default:
		return "UNKNOWN"
	}
}

// Token is one lexical item with its position.
type Token struct {
	Type   TokenType
	Text   string
	Line   int
	Column int
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenPunct, TokenKeyword:
		return fmt.Sprintf("%q", t.Text)
	default:
		return fmt.Sprintf("%s %q", t.Type, t.Text)
	}
}

const eof = rune(-1)

// Multi-character punctuation, longest first.
var multiPunct = []string{"^^", "&&", "||", "!=", "<=", ">="}

const singlePunct = "{}()[].,;*=<>!+-/|^"

// stateFn represents the state of the scanner as a function that returns the
// next state.
type stateFn func(*lexer) stateFn

// lexer holds the state of the scanner.
type lexer struct {
	input  string
	start  int // start position of this item
	pos    int // current position in the input
	width  int // width of last rune read
	line   int // line of start
	col    int // column of start
	tokens []Token
	err    *ParseError
}

// lex scans the whole input. It returns a *ParseError on the first
// malformed token.
func lex(input string) ([]Token, error) {
	if err := checkUTF8(input); err != nil {
		return nil, err
	}
	l := &lexer{input: input, line: 1, col: 1}
	for state := lexToken; state != nil; {
		state = state(l)
	}
	if l.err != nil {
		return nil, l.err
	}
	return l.tokens, nil
}

// checkUTF8 reports the first byte that is not valid UTF-8.
func checkUTF8(input string) *ParseError {
	line, col := 1, 1
	for i := 0; i < len(input); {
		r, w := utf8.DecodeRuneInString(input[i:])
		if r == utf8.RuneError && w == 1 {
			return &ParseError{Line: line, Column: col, Message: fmt.Sprintf("invalid UTF-8 byte %#x", input[i])}
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
		i += w
	}
	return nil
}

func (l *lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	return r
}

func (l *lexer) backup() {
	l.pos -= l.width
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos+offset:])
	return r
}

// advance moves start to pos, keeping line and column in step.
func (l *lexer) advance() {
	for _, r := range l.input[l.start:l.pos] {
		if r == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
	}
	l.start = l.pos
}

func (l *lexer) emit(tt TokenType, text string) {
	l.tokens = append(l.tokens, Token{Type: tt, Text: text, Line: l.line, Column: l.col})
	l.advance()
}

func (l *lexer) errorf(format string, args ...any) stateFn {
	l.err = &ParseError{Line: l.line, Column: l.col, Message: fmt.Sprintf(format, args...)}
	return nil
}

// lexToken is the initial state for token identification.
func lexToken(l *lexer) stateFn {
	for {
		r := l.peek()
		switch {
		case r == eof:
			l.emit(TokenEOF, "")
			return nil
		case unicode.IsSpace(r):
			l.next()
			l.advance()
			continue
		case r == '#':
			for r := l.next(); r != '\n' && r != eof; r = l.next() {
			}
			l.advance()
			continue
		case r == '<':
			return lexIRIOrLess
		case r == '?' || r == '$':
			return lexVar
		case r == '"' || r == '\'':
			return lexString
		case r == '@':
			return lexLangTag
		case r == '_' && l.peekAt(1) == ':':
			return lexBlank
		case isDigit(r) || (r == '.' && isDigit(l.peekAt(1))):
			return lexNumber
		case r == ':' || isNameStart(r):
			return lexName
		}
		return lexPunct
	}
}

func lexIRIOrLess(l *lexer) stateFn {
	rest := l.input[l.pos+1:]
	for i, r := range rest {
		if r == '>' {
			l.pos += i + 2
			l.emit(TokenIRI, rest[:i])
			return lexToken
		}
		if r <= 0x20 || strings.ContainsRune("<\"{}|^`\\", r) {
			break
		}
	}
	return lexPunct
}

func lexVar(l *lexer) stateFn {
	l.next()
	if !isNameChar(l.peek()) {
		return l.errorf("variable name expected after %q", l.input[l.start:l.pos])
	}
	for isNameChar(l.peek()) {
		l.next()
	}
	l.emit(TokenVar, l.input[l.start+1:l.pos])
	return lexToken
}

func lexBlank(l *lexer) stateFn {
	l.next()
	l.next()
	for isNameChar(l.peek()) || (l.peek() == '.' && isNameChar(l.peekAt(1))) {
		l.next()
	}
	label := l.input[l.start+2 : l.pos]
	if label == "" {
		return l.errorf("blank node label expected after \"_:\"")
	}
	l.emit(TokenBlank, label)
	return lexToken
}

func lexLangTag(l *lexer) stateFn {
	l.next()
	for r := l.peek(); isLetter(r) || isDigit(r) || r == '-'; r = l.peek() {
		l.next()
	}
	tag := l.input[l.start+1 : l.pos]
	if tag == "" || !isLetter(rune(tag[0])) {
		return l.errorf("malformed language tag")
	}
	l.emit(TokenLangTag, tag)
	return lexToken
}

func lexNumber(l *lexer) stateFn {
	tt := TokenInteger
	for isDigit(l.peek()) {
		l.next()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		tt = TokenDecimal
		l.next()
		for isDigit(l.peek()) {
			l.next()
		}
	}
	if r := l.peek(); r == 'e' || r == 'E' {
		save := l.pos
		l.next()
		if r := l.peek(); r == '+' || r == '-' {
			l.next()
		}
		if !isDigit(l.peek()) {
			l.pos = save
		} else {
			tt = TokenDouble
			for isDigit(l.peek()) {
				l.next()
			}
		}
	}
	l.emit(tt, l.input[l.start:l.pos])
	return lexToken
}

// lexName scans a keyword or a prefixed name.
func lexName(l *lexer) stateFn {
	for r := l.peek(); isNameChar(r) || r == '.'; r = l.peek() {
		l.next()
	}
	if l.peek() == ':' {
		l.next()
		for r := l.peek(); isNameChar(r) || r == '.' || r == ':' || r == '%'; r = l.peek() {
			l.next()
		}
		for strings.HasSuffix(l.input[l.start:l.pos], ".") {
			l.pos--
		}
		l.emit(TokenPName, l.input[l.start:l.pos])
		return lexToken
	}
	// Keywords are plain words; back off any trailing '.' or '-'.
	word := l.input[l.start:l.pos]
	end := strings.IndexFunc(word, func(r rune) bool { return r == '.' || r == '-' })
	if end == 0 {
		return lexPunct
	}
	if end > 0 {
		l.pos = l.start + end
		word = word[:end]
	}
	l.emit(TokenKeyword, word)
	return lexToken
}

func lexPunct(l *lexer) stateFn {
	rest := l.input[l.pos:]
	for _, p := range multiPunct {
		if strings.HasPrefix(rest, p) {
			l.pos += len(p)
			l.emit(TokenPunct, p)
			return lexToken
		}
	}
	r := l.next()
	if strings.ContainsRune(singlePunct, r) {
		l.emit(TokenPunct, string(r))
		return lexToken
	}
	return l.errorf("unexpected character %q", r)
}

func lexString(l *lexer) stateFn {
	q := l.next()
	long := strings.HasPrefix(l.input[l.pos:], strings.Repeat(string(q), 2))
	if long {
		l.pos += 2
	}
	var b strings.Builder
	for {
		r := l.next()
		switch {
		case r == eof:
			return l.errorf("unterminated string literal")
		case r == '\n' && !long:
			return l.errorf("newline in string literal")
		case r == '\\':
			esc, err := l.escape()
			if err != nil {
				return l.errorf("%v", err)
			}
			b.WriteRune(esc)
		case r == q && !long:
			l.emit(TokenString, b.String())
			return lexToken
		case r == q && long && strings.HasPrefix(l.input[l.pos:], strings.Repeat(string(q), 2)):
			l.pos += 2
			// a long string may end with one or two extra quote characters
			for l.peek() == q {
				b.WriteRune(q)
				l.next()
			}
			l.emit(TokenString, b.String())
			return lexToken
		default:
			b.WriteRune(r)
		}
	}
}

func (l *lexer) escape() (rune, error) {
	r := l.next()
	switch r {
	case 't':
		return '\t', nil
	case 'b':
		return '\b', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 'f':
		return '\f', nil
	case '"', '\'', '\\':
		return r, nil
	case 'u', 'U':
		n := 4
		if r == 'U' {
			n = 8
		}
		if l.pos+n > len(l.input) {
			return 0, fmt.Errorf("truncated \\%c escape", r)
		}
		v, err := strconv.ParseUint(l.input[l.pos:l.pos+n], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("malformed \\%c escape", r)
		}
		l.pos += n
		return rune(v), nil
	default:
		return 0, fmt.Errorf("unknown escape \\%c", r)
	}
}

func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }

func isNameStart(r rune) bool {
	return r != eof && (unicode.IsLetter(r) || r == '_')
}

func isNameChar(r rune) bool {
	return r != eof && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-')
}
