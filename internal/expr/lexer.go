package expr

import (
	"math"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNull
	tokTrue
	tokFalse
	tokNumber
	tokString
	tokIdent
	tokDot
	tokStar
	tokComma
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokNot
	tokEq
	tokNe
	tokLt
	tokLe
	tokGt
	tokGe
	tokAnd
	tokOr
)

var tokenNames = map[tokenKind]string{
	tokEOF:      "end of expression",
	tokNull:     "null",
	tokTrue:     "true",
	tokFalse:    "false",
	tokNumber:   "number",
	tokString:   "string",
	tokIdent:    "identifier",
	tokDot:      "'.'",
	tokStar:     "'*'",
	tokComma:    "','",
	tokLParen:   "'('",
	tokRParen:   "')'",
	tokLBracket: "'['",
	tokRBracket: "']'",
	tokNot:      "'!'",
	tokEq:       "'=='",
	tokNe:       "'!='",
	tokLt:       "'<'",
	tokLe:       "'<='",
	tokGt:       "'>'",
	tokGe:       "'>='",
	tokAnd:      "'&&'",
	tokOr:       "'||'",
}

func (k tokenKind) String() string { return tokenNames[k] }

type token struct {
	kind tokenKind
	text string // raw text; unescaped content for strings
	num  float64
	pos  int // 1-based byte column
}

// lex splits src into tokens. The returned slice always ends with tokEOF.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		pos := i + 1
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '.':
			// A dot directly followed by a digit starts a number unless it
			// follows something that can be dereferenced.
			if i+1 < len(src) && isDigit(src[i+1]) && !endsOperand(toks) {
				tok, n, err := lexNumber(src, i)
				if err != nil {
					return nil, err
				}
				toks = append(toks, tok)
				i = n
				continue
			}
			toks = append(toks, token{kind: tokDot, text: ".", pos: pos})
			i++
		case c == '*':
			toks = append(toks, token{kind: tokStar, text: "*", pos: pos})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: pos})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: pos})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: pos})
			i++
		case c == '[':
			toks = append(toks, token{kind: tokLBracket, text: "[", pos: pos})
			i++
		case c == ']':
			toks = append(toks, token{kind: tokRBracket, text: "]", pos: pos})
			i++
		case c == '!':
			if strings.HasPrefix(src[i:], "!=") {
				toks = append(toks, token{kind: tokNe, text: "!=", pos: pos})
				i += 2
			} else {
				toks = append(toks, token{kind: tokNot, text: "!", pos: pos})
				i++
			}
		case c == '=':
			if !strings.HasPrefix(src[i:], "==") {
				return nil, newError(src, pos, "unexpected symbol '='")
			}
			toks = append(toks, token{kind: tokEq, text: "==", pos: pos})
			i += 2
		case c == '<':
			if strings.HasPrefix(src[i:], "<=") {
				toks = append(toks, token{kind: tokLe, text: "<=", pos: pos})
				i += 2
			} else {
				toks = append(toks, token{kind: tokLt, text: "<", pos: pos})
				i++
			}
		case c == '>':
			if strings.HasPrefix(src[i:], ">=") {
				toks = append(toks, token{kind: tokGe, text: ">=", pos: pos})
				i += 2
			} else {
				toks = append(toks, token{kind: tokGt, text: ">", pos: pos})
				i++
			}
		case c == '&':
			if !strings.HasPrefix(src[i:], "&&") {
				return nil, newError(src, pos, "unexpected symbol '&'")
			}
			toks = append(toks, token{kind: tokAnd, text: "&&", pos: pos})
			i += 2
		case c == '|':
			if !strings.HasPrefix(src[i:], "||") {
				return nil, newError(src, pos, "unexpected symbol '|'")
			}
			toks = append(toks, token{kind: tokOr, text: "||", pos: pos})
			i += 2
		case c == '\'':
			tok, n, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = n
		case isDigit(c) || ((c == '-' || c == '+') && i+1 < len(src) && (isDigit(src[i+1]) || src[i+1] == '.')):
			tok, n, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = n
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			word := src[i:j]
			kind := tokIdent
			// Keywords are only keywords where an operand is expected;
			// after a dot they are property names.
			if !afterDot(toks) {
				switch word {
				case "null":
					kind = tokNull
				case "true":
					kind = tokTrue
				case "false":
					kind = tokFalse
				}
			}
			toks = append(toks, token{kind: kind, text: word, pos: pos})
			i = j
		default:
			return nil, newError(src, pos, "unexpected symbol %q", string(c))
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src) + 1})
	return toks, nil
}

func lexString(src string, start int) (token, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(src) {
		if src[i] == '\'' {
			if i+1 < len(src) && src[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			return token{kind: tokString, text: b.String(), pos: start + 1}, i + 1, nil
		}
		b.WriteByte(src[i])
		i++
	}
	return token{}, 0, newError(src, start+1, "unterminated string literal")
}

func lexNumber(src string, start int) (token, int, error) {
	i := start
	if src[i] == '-' || src[i] == '+' {
		i++
	}
	for i < len(src) {
		c := src[i]
		if isIdentPart(c) || c == '.' {
			i++
			continue
		}
		// Exponent sign.
		if (c == '+' || c == '-') && (src[i-1] == 'e' || src[i-1] == 'E') && !isHexLiteral(src[start:i]) {
			i++
			continue
		}
		break
	}
	text := src[start:i]
	n := parseNumber(text)
	if math.IsNaN(n) {
		return token{}, 0, newError(src, start+1, "unexpected symbol %q", text)
	}
	return token{kind: tokNumber, text: text, num: n, pos: start + 1}, i, nil
}

func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '-'
}

func afterDot(toks []token) bool {
	return len(toks) > 0 && toks[len(toks)-1].kind == tokDot
}

// endsOperand reports whether the previous token can be followed by a
// property dereference.
func endsOperand(toks []token) bool {
	if len(toks) == 0 {
		return false
	}
	switch toks[len(toks)-1].kind {
	case tokIdent, tokRParen, tokRBracket, tokStar:
		return true
	}
	return false
}
