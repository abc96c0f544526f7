package expr

import (
	"strings"
)

// maxDepth bounds nesting so hostile input cannot exhaust the stack.
const maxDepth = 50

type node interface {
	position() int
}

type literalNode struct {
	pos   int
	value Value
}

type contextNode struct {
	pos  int
	name string
}

type propertyNode struct {
	pos    int
	target node
	name   string
}

type indexNode struct {
	pos    int
	target node
	index  node
}

// filterNode is the `.*` operator.
type filterNode struct {
	pos    int
	target node
}

type notNode struct {
	pos     int
	operand node
}

type binaryNode struct {
	pos         int
	op          tokenKind
	left, right node
}

type callNode struct {
	pos  int
	fn   *function
	args []node
}

func (n *literalNode) position() int  { return n.pos }
func (n *contextNode) position() int  { return n.pos }
func (n *propertyNode) position() int { return n.pos }
func (n *indexNode) position() int    { return n.pos }
func (n *filterNode) position() int   { return n.pos }
func (n *notNode) position() int      { return n.pos }
func (n *binaryNode) position() int   { return n.pos }
func (n *callNode) position() int     { return n.pos }

// Expression is a parsed expression ready for repeated evaluation.
type Expression struct {
	source string
	root   node
}

// Parse compiles src. Function names and arities are checked here; context
// names are checked at evaluation time.
func Parse(src string) (*Expression, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, newError(src, 0, "expected an expression")
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, newError(src, tok.pos, "unexpected %s", describe(tok))
	}
	return &Expression{source: src, root: root}, nil
}

// Source returns the text the expression was parsed from.
func (e *Expression) Source() string { return e.source }

// UsesStatusFunction reports whether the expression calls success(),
// failure(), always() or cancelled() anywhere.
func (e *Expression) UsesStatusFunction() bool {
	return walkAny(e.root, func(n node) bool {
		call, ok := n.(*callNode)
		return ok && call.fn.status
	})
}

// References returns the lower-cased context names the expression reads, in
// first-use order.
func (e *Expression) References() []string {
	var names []string
	seen := map[string]bool{}
	walkAny(e.root, func(n node) bool {
		if c, ok := n.(*contextNode); ok && !seen[c.name] {
			seen[c.name] = true
			names = append(names, c.name)
		}
		return false
	})
	return names
}

// walkAny visits every node depth-first and stops as soon as fn returns true.
func walkAny(n node, fn func(node) bool) bool {
	if n == nil {
		return false
	}
	if fn(n) {
		return true
	}
	switch t := n.(type) {
	case *propertyNode:
		return walkAny(t.target, fn)
	case *indexNode:
		return walkAny(t.target, fn) || walkAny(t.index, fn)
	case *filterNode:
		return walkAny(t.target, fn)
	case *notNode:
		return walkAny(t.operand, fn)
	case *binaryNode:
		return walkAny(t.left, fn) || walkAny(t.right, fn)
	case *callNode:
		for _, a := range t.args {
			if walkAny(a, fn) {
				return true
			}
		}
	}
	return false
}

type parser struct {
	src   string
	toks  []token
	i     int
	depth int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	tok := p.toks[p.i]
	if tok.kind != tokEOF {
		p.i++
	}
	return tok
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, newError(p.src, tok.pos, "expected %s but found %s", kind, describe(tok))
	}
	return tok, nil
}

func (p *parser) enter(pos int) error {
	p.depth++
	if p.depth > maxDepth {
		return newError(p.src, pos, "exceeded max nesting depth of %d", maxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		op := p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{pos: op.pos, op: tokOr, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		op := p.next()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{pos: op.pos, op: tokAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseEquality() (node, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for k := p.peek().kind; k == tokEq || k == tokNe; k = p.peek().kind {
		op := p.next()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{pos: op.pos, op: op.kind, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseRelational() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for k := p.peek().kind; k == tokLt || k == tokLe || k == tokGt || k == tokGe; k = p.peek().kind {
		op := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{pos: op.pos, op: op.kind, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokNot {
		op := p.next()
		if err := p.enter(op.pos); err != nil {
			return nil, err
		}
		defer p.leave()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{pos: op.pos, operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	target, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokDot:
			dot := p.next()
			tok := p.next()
			switch tok.kind {
			case tokStar:
				target = &filterNode{pos: dot.pos, target: target}
			case tokIdent, tokNull, tokTrue, tokFalse:
				target = &propertyNode{pos: tok.pos, target: target, name: tok.text}
			default:
				return nil, newError(p.src, tok.pos, "expected property name after '.' but found %s", describe(tok))
			}
		case tokLBracket:
			open := p.next()
			if p.peek().kind == tokStar {
				p.next()
				if _, err := p.expect(tokRBracket); err != nil {
					return nil, err
				}
				target = &filterNode{pos: open.pos, target: target}
				continue
			}
			if err := p.enter(open.pos); err != nil {
				return nil, err
			}
			index, err := p.parseOr()
			p.leave()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket); err != nil {
				return nil, err
			}
			target = &indexNode{pos: open.pos, target: target, index: index}
		default:
			return target, nil
		}
	}
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNull:
		return &literalNode{pos: tok.pos, value: Null()}, nil
	case tokTrue:
		return &literalNode{pos: tok.pos, value: Bool(true)}, nil
	case tokFalse:
		return &literalNode{pos: tok.pos, value: Bool(false)}, nil
	case tokNumber:
		return &literalNode{pos: tok.pos, value: Number(tok.num)}, nil
	case tokString:
		return &literalNode{pos: tok.pos, value: String(tok.text)}, nil
	case tokLParen:
		if err := p.enter(tok.pos); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		p.leave()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(tok)
		}
		return &contextNode{pos: tok.pos, name: strings.ToLower(tok.text)}, nil
	default:
		return nil, newError(p.src, tok.pos, "unexpected %s", describe(tok))
	}
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := lookupFunction(name.text)
	if !ok {
		return nil, newError(p.src, name.pos, "unrecognized function: '%s'", name.text)
	}
	open := p.next() // '('
	if err := p.enter(open.pos); err != nil {
		return nil, err
	}
	defer p.leave()

	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	if len(args) < fn.minArgs {
		return nil, newError(p.src, name.pos, "too few arguments to '%s': expected at least %d, got %d", fn.name, fn.minArgs, len(args))
	}
	if fn.maxArgs >= 0 && len(args) > fn.maxArgs {
		return nil, newError(p.src, name.pos, "too many arguments to '%s': expected at most %d, got %d", fn.name, fn.maxArgs, len(args))
	}
	return &callNode{pos: name.pos, fn: fn, args: args}, nil
}

func describe(tok token) string {
	if tok.kind == tokEOF {
		return "end of expression"
	}
	return "'" + tok.text + "'"
}
