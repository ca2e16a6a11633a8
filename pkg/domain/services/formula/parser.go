package formula

// Grammar:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | primary
//	primary = number | "qty" | func "(" expr { "," expr } ")" | "(" expr ")"
//	func    = "ceil" | "floor" | "round" | "min" | "max"

const (
	maxExpressionLength = 512
	maxNestingDepth     = 64
)

// VariableName is the only identifier a formula may reference
const VariableName = "qty"

type parser struct {
	tokens []token
	pos    int
	depth  int
}

func parse(src string) (node, error) {
	if len(src) > maxExpressionLength {
		return nil, syntaxError(-1, "formula longer than %d characters", maxExpressionLength)
	}
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	if p.peek().kind == tokEOF {
		return nil, syntaxError(0, "empty formula")
	}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, syntaxError(tok.pos, "unexpected %s", describe(tok))
	}
	return n, nil
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.next()
	if tok.kind != kind {
		return tok, syntaxError(tok.pos, "expected %s, found %s", kind, describe(tok))
	}
	return tok, nil
}

func (p *parser) enter(pos int) error {
	p.depth++
	if p.depth > maxNestingDepth {
		return syntaxError(pos, "formula nested deeper than %d levels", maxNestingDepth)
	}
	return nil
}

func (p *parser) leave() {
	p.depth--
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokPlus && tok.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tok.kind, pos: tok.pos, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokStar && tok.kind != tokSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: tok.kind, pos: tok.pos, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	tok := p.peek()
	if tok.kind != tokPlus && tok.kind != tokMinus {
		return p.parsePrimary()
	}
	p.next()
	if err := p.enter(tok.pos); err != nil {
		return nil, err
	}
	defer p.leave()
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if tok.kind == tokPlus {
		return operand, nil
	}
	return &negateNode{operand: operand}, nil
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return &numberNode{value: tok.value}, nil
	case tokIdent:
		return p.parseIdent(tok)
	case tokLParen:
		if err := p.enter(tok.pos); err != nil {
			return nil, err
		}
		defer p.leave()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, syntaxError(tok.pos, "unexpected %s", describe(tok))
	}
}

func (p *parser) parseIdent(tok token) (node, error) {
	isCall := p.peek().kind == tokLParen

	if tok.text == VariableName {
		if isCall {
			return nil, syntaxError(tok.pos, "%q is a variable, not a function", tok.text)
		}
		return &variableNode{}, nil
	}

	fn, known := functions[tok.text]
	if !isCall {
		if known {
			return nil, syntaxError(tok.pos, "function %q must be called with parentheses", tok.text)
		}
		return nil, syntaxError(tok.pos, "unknown identifier %q", tok.text)
	}
	if !known {
		return nil, &Error{Kind: ErrUnknownFunction, Pos: tok.pos, Msg: "function " + tok.text + " is not allowed"}
	}

	open := p.next()
	if err := p.enter(open.pos); err != nil {
		return nil, err
	}
	defer p.leave()

	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseExpr()
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
	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, syntaxError(tok.pos, "function %s called with %d arguments", tok.text, len(args))
	}
	return &callNode{name: tok.text, fn: fn, args: args}, nil
}

func describe(tok token) string {
	switch tok.kind {
	case tokNumber, tokIdent:
		return tok.kind.String() + " " + tok.text
	default:
		return tok.kind.String()
	}
}
