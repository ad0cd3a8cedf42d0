package irp

// Parse parses an IRP protocol definition, e.g.
//
//	{38k,564}<1,-1|1,-3>(16,-8,D:8,S:8,F:8,~F:8,1,^108m)[D:0..255,S:0..255=255,F:0..255]
//
// into a Protocol. It returns a *ParseError for malformed syntax and a
// *SemanticError for well-formed syntax that violates a static constraint
// (a parameter whose min exceeds its max or whose default lies outside
// that range, an empty bitspec, a repeat group whose min exceeds its max).
// A parameter's range is not checked against the width of the bitfields
// that carry it.
func Parse(src string) (*Protocol, error) {
	toks, err := lexAll(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	proto, err := p.parseProtocol()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, p.errorf("unexpected trailing input %q", p.cur().text)
	}
	return proto, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) peek() token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return parseErrorf(p.cur().pos, format, args...)
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.cur().kind != k {
		return token{}, p.errorf("expected %s, got %q", what, p.cur().text)
	}
	return p.advance(), nil
}

func (p *parser) parseProtocol() (*Protocol, error) {
	general, err := p.parseGeneralSpec()
	if err != nil {
		return nil, err
	}
	bitspec, err := p.parseBitSpec()
	if err != nil {
		return nil, err
	}
	stream, err := p.parseTopStream()
	if err != nil {
		return nil, err
	}
	var params []ParamSpec
	var defs []Definition
	if p.cur().kind == tokLBracket {
		params, defs, err = p.parseParamsAndDefs()
		if err != nil {
			return nil, err
		}
	}
	proto := &Protocol{
		General:     general,
		Params:      params,
		BitSpec:     bitspec,
		Stream:      stream,
		Definitions: defs,
	}
	if err := validateProtocol(proto); err != nil {
		return nil, err
	}
	return proto, nil
}

// parseGeneralSpec parses the leading "{freq,unit,duty%,msb}" header. Every
// field is optional except the enclosing braces; order follows the
// convention used throughout the IRP corpus (frequency first when a 'k'
// suffix is present, unit second, duty cycle marked with '%', bit order
// marked with the "msb"/"lsb" keyword).
func (p *parser) parseGeneralSpec() (GeneralSpec, error) {
	gs := GeneralSpec{UnitUs: 1}
	if p.cur().kind != tokLBrace {
		return gs, p.errorf("expected general spec '{...}', got %q", p.cur().text)
	}
	p.advance()
	for p.cur().kind != tokRBrace {
		neg := false
		if p.cur().kind == tokMinus {
			neg = true
			p.advance()
		}
		switch p.cur().kind {
		case tokNumber:
			n := p.advance()
			val := n.num
			if neg {
				val = -val
			}
			switch {
			case p.cur().kind == tokPercent:
				p.advance()
				gs.DutyCyclePct = val
			case p.cur().kind == tokIdent:
				base, unit, ok := unitSuffix(p.cur().text)
				if ok && base == "" {
					p.advance()
					switch unit {
					case 'k':
						gs.FrequencyKHz = val
					case 'u':
						gs.UnitUs = val
					case 'm':
						gs.UnitUs = val * 1000
					case 'p':
						gs.UnitUs = val
					}
				} else {
					gs.UnitUs = val
				}
			default:
				gs.UnitUs = val
			}
		case tokIdent:
			id := p.advance()
			switch id.text {
			case "msb":
				gs.MSBFirst = true
			case "lsb":
				gs.MSBFirst = false
			default:
				return gs, p.errorf("unknown general spec keyword %q", id.text)
			}
		default:
			return gs, p.errorf("unexpected token %q in general spec", p.cur().text)
		}
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return gs, err
	}
	return gs, nil
}

// parseBitSpec parses "<entry|entry|...>" where each entry is a comma
// separated list of stream items (almost always exactly two Durations).
func (p *parser) parseBitSpec() (BitSpec, error) {
	var bs BitSpec
	if p.cur().kind != tokLAngle {
		return bs, p.errorf("expected bitspec '<...>', got %q", p.cur().text)
	}
	p.advance()
	for {
		entry, err := p.parseItemList(tokPipe, tokRAngle)
		if err != nil {
			return bs, err
		}
		bs.Entries = append(bs.Entries, entry)
		if p.cur().kind == tokPipe {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokRAngle, "'>'"); err != nil {
		return bs, err
	}
	return bs, nil
}

// parseItemList parses a comma-separated run of stream items, stopping
// before a token of kind sep or end (both left unconsumed).
func (p *parser) parseItemList(sep, end tokenKind) ([]StreamItem, error) {
	var items []StreamItem
	for {
		if p.cur().kind == sep || p.cur().kind == end {
			break
		}
		item, err := p.parseStreamItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

// parseTopStream parses the main modulation stream: one or more
// parenthesized groups, optionally repeat-marked, optionally separated by
// '|' to express top-level alternation between whole frame sequences.
func (p *parser) parseTopStream() ([]StreamItem, error) {
	var branches [][]StreamItem
	for {
		var seq []StreamItem
		for p.cur().kind == tokLParen {
			group, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			seq = append(seq, group)
		}
		if len(seq) == 0 {
			return nil, p.errorf("expected modulation stream '(...)', got %q", p.cur().text)
		}
		branches = append(branches, seq)
		if p.cur().kind == tokPipe {
			p.advance()
			continue
		}
		break
	}
	if len(branches) == 1 {
		return branches[0], nil
	}
	return []StreamItem{&Alternative{Branches: branches}}, nil
}

// parseGroup parses one "(...)" possibly followed by a repeat marker: '*'
// (0+), '+' (1+), a bare count "3", or "2,5" (min,max), or "3+" (at least
// 3). A group with no marker repeats exactly once.
func (p *parser) parseGroup() (StreamItem, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	items, err := p.parseItemList(tokEOF, tokRParen)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	min, max := 1, 1
	switch p.cur().kind {
	case tokStar:
		p.advance()
		min, max = 0, -1
	case tokPlus:
		p.advance()
		min, max = 1, -1
	case tokNumber:
		n := p.advance()
		min = int(n.num)
		max = min
		if p.cur().kind == tokPlus {
			p.advance()
			max = -1
		} else if p.cur().kind == tokComma && p.peek().kind == tokNumber {
			p.advance()
			n2 := p.advance()
			max = int(n2.num)
		}
	}
	if min == 1 && max == 1 {
		return &RepeatGroup{Items: items, Min: 1, Max: 1}, nil
	}
	return &RepeatGroup{Items: items, Min: min, Max: max}, nil
}

// parseStreamItem parses one item of a comma-separated list: a signed or
// unsigned duration, an extent ("^108m"), a bitfield ("F:8", "~F:-8:4"),
// an assignment ("T=1-T"), or a nested group.
func (p *parser) parseStreamItem() (StreamItem, error) {
	switch p.cur().kind {
	case tokLParen:
		return p.parseGroup()
	case tokCaret:
		p.advance()
		return p.parseExtent()
	case tokMinus, tokPlus, tokNumber:
		return p.parseDuration()
	case tokTilde:
		return p.parseBitFieldOrAssign(true)
	case tokIdent:
		if id := p.cur().text; id != "" {
			if p.peek().kind == tokEquals {
				return p.parseAssignment()
			}
		}
		return p.parseBitFieldOrAssign(false)
	default:
		return nil, p.errorf("unexpected token %q in stream", p.cur().text)
	}
}

func (p *parser) parseExtent() (StreamItem, error) {
	neg := false
	if p.cur().kind == tokMinus {
		neg = true
		p.advance()
	}
	n, err := p.expect(tokNumber, "number")
	if err != nil {
		return nil, err
	}
	val := n.num
	if neg {
		val = -val
	}
	micro := false
	if p.cur().kind == tokIdent {
		base, unit, ok := unitSuffix(p.cur().text)
		if ok && base == "" && (unit == 'u' || unit == 'm') {
			p.advance()
			micro = true
			if unit == 'm' {
				val *= 1000
			}
		}
	}
	return &Extent{Value: val, Microseconds: micro}, nil
}

func (p *parser) parseDuration() (StreamItem, error) {
	sign := 0
	if p.cur().kind == tokMinus {
		sign = -1
		p.advance()
	} else if p.cur().kind == tokPlus {
		sign = 1
		p.advance()
	}
	n, err := p.expect(tokNumber, "number")
	if err != nil {
		return nil, err
	}
	val := n.num
	micro := false
	if p.cur().kind == tokIdent {
		base, unit, ok := unitSuffix(p.cur().text)
		if ok && base == "" && (unit == 'u' || unit == 'm') {
			p.advance()
			micro = true
			if unit == 'm' {
				val *= 1000
			}
		}
	}
	return &Duration{Value: val, Sign: sign, Microseconds: micro}, nil
}

// parseBitFieldOrAssign parses "NAME:width", "NAME:width:offset", with an
// optional leading '~' complement already consumed by the caller when
// complement is true.
func (p *parser) parseBitFieldOrAssign(complement bool) (StreamItem, error) {
	if complement {
		if _, err := p.expect(tokTilde, "'~'"); err != nil {
			return nil, err
		}
	}
	varExpr, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	width, err := p.parseUnaryNumericExpr()
	if err != nil {
		return nil, err
	}
	var offset Expr
	if p.cur().kind == tokColon {
		p.advance()
		offset, err = p.parseExpr(0)
		if err != nil {
			return nil, err
		}
	}
	return &BitField{Var: varExpr, Width: width, Offset: offset, Complement: complement}, nil
}

func (p *parser) parseAssignment() (StreamItem, error) {
	name, err := p.expect(tokIdent, "variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokEquals, "'='"); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return &Assignment{Var: name.text, Expr: rhs}, nil
}

// parseParamsAndDefs parses the trailing "[D:0..255,S:0..255=255,F:0..255]
// {X=Y,...}" clause: a bracketed parameter list and an optional braced
// definitions list.
func (p *parser) parseParamsAndDefs() ([]ParamSpec, []Definition, error) {
	if _, err := p.expect(tokLBracket, "'['"); err != nil {
		return nil, nil, err
	}
	var params []ParamSpec
	for p.cur().kind != tokRBracket {
		ps, err := p.parseParamSpec()
		if err != nil {
			return nil, nil, err
		}
		params = append(params, ps)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, nil, err
	}
	var defs []Definition
	if p.cur().kind == tokLBrace {
		p.advance()
		for p.cur().kind != tokRBrace {
			name, err := p.expect(tokIdent, "definition name")
			if err != nil {
				return nil, nil, err
			}
			if _, err := p.expect(tokEquals, "'='"); err != nil {
				return nil, nil, err
			}
			expr, err := p.parseExpr(0)
			if err != nil {
				return nil, nil, err
			}
			defs = append(defs, Definition{Name: name.text, Expr: expr})
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tokRBrace, "'}'"); err != nil {
			return nil, nil, err
		}
	}
	return params, defs, nil
}

func (p *parser) parseParamSpec() (ParamSpec, error) {
	name, err := p.expect(tokIdent, "parameter name")
	if err != nil {
		return ParamSpec{}, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return ParamSpec{}, err
	}
	lo, err := p.expect(tokNumber, "number")
	if err != nil {
		return ParamSpec{}, err
	}
	if _, err := p.expect(tokDotDot, "'..'"); err != nil {
		return ParamSpec{}, err
	}
	hi, err := p.expect(tokNumber, "number")
	if err != nil {
		return ParamSpec{}, err
	}
	ps := ParamSpec{Name: name.text, Min: int64(lo.num), Max: int64(hi.num)}
	if p.cur().kind == tokEquals {
		p.advance()
		d, err := p.expect(tokNumber, "default value")
		if err != nil {
			return ParamSpec{}, err
		}
		def := int64(d.num)
		ps.Default = &def
	}
	return ps, nil
}

// --- expression parsing: standard precedence-climbing over the binary
// operator set, handling unary '-', '~', '!' and bitfield "X:W[:O]" and
// "~X:W[:O]" forms at the primary level.

var binPrec = map[tokenKind]int{
	tokPipePipe: 1,
	tokAmpAmp:   2,
	tokPipe:     3,
	tokCaret:    4,
	tokAmp:      5,
	tokEqEq:     6, tokNotEq: 6,
	tokLAngle: 7, tokRAngle: 7, tokLe: 7, tokGe: 7,
	tokShl: 8, tokShr: 8,
	tokPlus: 9, tokMinus: 9,
	tokStar: 10, tokSlash: 10, tokPercent: 10,
	tokPow: 11,
}

var binOpText = map[tokenKind]string{
	tokPipePipe: "||", tokAmpAmp: "&&", tokPipe: "|", tokCaret: "^", tokAmp: "&",
	tokEqEq: "==", tokNotEq: "!=", tokLAngle: "<", tokRAngle: ">", tokLe: "<=", tokGe: ">=",
	tokShl: "<<", tokShr: ">>", tokPlus: "+", tokMinus: "-", tokStar: "*", tokSlash: "/",
	tokPercent: "%", tokPow: "**",
}

func (p *parser) parseExpr(minPrec int) (Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		prec, ok := binPrec[p.cur().kind]
		if !ok || prec < minPrec {
			return lhs, nil
		}
		opKind := p.advance().kind
		rhs, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		lhs = &BinaryExpr{Op: binOpText[opKind], X: lhs, Y: rhs}
	}
}

// parseUnaryNumericExpr is used for bitfield widths, which may be a bare
// negative literal ("-8" meaning "reverse the 8-bit field") rather than a
// general unary expression; it still falls back to parseExpr for anything
// more complex such as "F:(8+1)".
func (p *parser) parseUnaryNumericExpr() (Expr, error) {
	return p.parseExpr(0)
}

func (p *parser) parseUnary() (Expr, error) {
	switch p.cur().kind {
	case tokMinus:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: '-', X: x}, nil
	case tokTilde:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: '~', X: x}, nil
	case tokBang:
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: '!', X: x}, nil
	default:
		return p.parsePostfix()
	}
}

// parsePostfix parses a primary expression followed by an optional
// "bitfield" suffix (":width" or ":width:offset"), so that Definitions
// entries like "T:1:0" parse the same way stream bitfields do.
func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimaryExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokColon {
		p.advance()
		width, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		var offset Expr
		if p.cur().kind == tokColon {
			p.advance()
			offset, err = p.parseExpr(0)
			if err != nil {
				return nil, err
			}
		}
		return &BitFieldExpr{X: x, Width: width, Offset: offset}, nil
	}
	return x, nil
}

func (p *parser) parsePrimaryExpr() (Expr, error) {
	switch p.cur().kind {
	case tokNumber:
		n := p.advance()
		return &ConstExpr{Value: int64(n.num)}, nil
	case tokIdent:
		id := p.advance()
		return &NameExpr{Name: id.text}, nil
	case tokLParen:
		p.advance()
		x, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return x, nil
	case tokMinus:
		p.advance()
		x, err := p.parsePrimaryExpr()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: '-', X: x}, nil
	default:
		return nil, p.errorf("expected expression, got %q", p.cur().text)
	}
}

// validateProtocol checks the static constraints Parse guarantees: every
// parameter's min must not exceed its max and its default must lie within
// [min, max], the bitspec must be non-empty, and repeat group bounds must
// be satisfiable (min <= max, or max == -1 meaning unbounded). Parameter
// ranges are not compared with bitfield widths.
func validateProtocol(proto *Protocol) error {
	for _, ps := range proto.Params {
		if ps.Min > ps.Max {
			return semanticErrorf("parameter %q has min %d greater than max %d", ps.Name, ps.Min, ps.Max)
		}
		if ps.Default != nil && (*ps.Default < ps.Min || *ps.Default > ps.Max) {
			return semanticErrorf("parameter %q default %d out of range [%d,%d]", ps.Name, *ps.Default, ps.Min, ps.Max)
		}
	}
	if len(proto.BitSpec.Entries) == 0 {
		return semanticErrorf("protocol has an empty bitspec")
	}
	return validateStreamItems(proto.Stream)
}

func validateStreamItems(items []StreamItem) error {
	for _, item := range items {
		switch it := item.(type) {
		case *RepeatGroup:
			if it.Max != -1 && it.Min > it.Max {
				return semanticErrorf("repeat group has min %d greater than max %d", it.Min, it.Max)
			}
			if err := validateStreamItems(it.Items); err != nil {
				return err
			}
		case *Alternative:
			for _, branch := range it.Branches {
				if err := validateStreamItems(branch); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

