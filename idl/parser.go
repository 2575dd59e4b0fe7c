package idl

import (
	"fmt"
	"regexp"
)

var (
	interfaceNameRe = regexp.MustCompile(`^[A-Za-z]([-.]?[A-Za-z0-9])*$`)
	upperNameRe     = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	lowerNameRe     = regexp.MustCompile(`^[a-z][A-Za-z0-9_]*$`)
)

// Parser is a recursive-descent parser over a Scanner, producing an
// Interface. It holds exactly one token of lookahead in tok.
type Parser struct {
	sc  *Scanner
	src string

	tok        Token
	pendingDoc []string
}

// Parse parses src as a single varlink interface declaration.
func Parse(src string) (*Interface, error) {
	p := &Parser{sc: NewScanner(src), src: src}
	return p.parseFile()
}

func (p *Parser) errf(kind ErrorKind, offset int, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...), Source: p.src}
}

// advance discards the current lookahead and reads the next
// significant (non-comment) token into p.tok, accumulating any
// comments seen along the way into p.pendingDoc.
func (p *Parser) advance() error {
	for {
		t, err := p.sc.Next()
		if err != nil {
			return err
		}
		if t.Kind == TokComment {
			p.pendingDoc = append(p.pendingDoc, t.Text)
			continue
		}
		p.tok = t
		return nil
	}
}

// takeDoc returns and clears the comment lines accumulated since the
// last call to takeDoc.
func (p *Parser) takeDoc() string {
	if len(p.pendingDoc) == 0 {
		return ""
	}
	doc := joinLines(p.pendingDoc)
	p.pendingDoc = nil
	return doc
}

func (p *Parser) parseFile() (*Interface, error) {
	kw, err := p.readFirst()
	if err != nil {
		return nil, err
	}
	doc := p.takeDoc()
	if kw.Kind != TokIdent || kw.Text != "interface" {
		return nil, p.errf(ExpectedToken, kw.Offset, "expected %q, found %q", "interface", kw.Text)
	}

	dotTok, err := p.sc.ScanDotname()
	if err != nil {
		return nil, err
	}
	if !interfaceNameRe.MatchString(dotTok.Text) || !containsDot(dotTok.Text) {
		return nil, p.errf(InvalidName, dotTok.Offset, "invalid interface name %q", dotTok.Text)
	}

	if err := p.advance(); err != nil {
		return nil, err
	}

	iface := &Interface{Name: dotTok.Text, Doc: doc}
	typeNames := map[string]bool{}
	methodNames := map[string]bool{}
	errorNames := map[string]bool{}

	for p.tok.Kind != TokEOF {
		m, err := p.parseMember()
		if err != nil {
			return nil, err
		}
		var seen map[string]bool
		switch m.Kind {
		case MemberNamedType:
			seen = typeNames
		case MemberMethod:
			seen = methodNames
		case MemberError:
			seen = errorNames
		}
		if seen[m.Name] {
			return nil, p.errf(InvalidName, dotTok.Offset, "duplicate declaration of %q", m.Name)
		}
		seen[m.Name] = true
		iface.Members = append(iface.Members, m)
	}

	if len(iface.Members) == 0 {
		return nil, p.errf(EmptyInterface, dotTok.Offset, "interface %q declares no members", iface.Name)
	}

	if err := resolveAndCheckCycles(iface, p.src); err != nil {
		return nil, err
	}

	return iface, nil
}

// readFirst reads the very first token of the file, retaining any
// leading comment as the eventual interface doc comment.
func (p *Parser) readFirst() (Token, error) {
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return p.tok, nil
}

func (p *Parser) parseMember() (Member, error) {
	doc := p.takeDoc()
	if p.tok.Kind != TokIdent {
		return Member{}, p.errf(ExpectedToken, p.tok.Offset, "expected a declaration, found %q", p.tok.Text)
	}

	switch p.tok.Text {
	case "type":
		if err := p.advance(); err != nil {
			return Member{}, err
		}
		name, err := p.expectUpperName()
		if err != nil {
			return Member{}, err
		}
		body, err := p.parseTypeExpr()
		if err != nil {
			return Member{}, err
		}
		return Member{Kind: MemberNamedType, Name: name, Doc: doc, TypeBody: body}, nil

	case "method":
		if err := p.advance(); err != nil {
			return Member{}, err
		}
		name, err := p.expectUpperName()
		if err != nil {
			return Member{}, err
		}
		input, err := p.parseStructType()
		if err != nil {
			return Member{}, err
		}
		if p.tok.Kind != TokPunct || p.tok.Text != "->" {
			return Member{}, p.errf(ExpectedToken, p.tok.Offset, "expected %q, found %q", "->", p.tok.Text)
		}
		if err := p.advance(); err != nil {
			return Member{}, err
		}
		output, err := p.parseStructType()
		if err != nil {
			return Member{}, err
		}
		return Member{Kind: MemberMethod, Name: name, Doc: doc, Input: input, Output: output}, nil

	case "error":
		if err := p.advance(); err != nil {
			return Member{}, err
		}
		name, err := p.expectUpperName()
		if err != nil {
			return Member{}, err
		}
		body, err := p.parseStructType()
		if err != nil {
			return Member{}, err
		}
		return Member{Kind: MemberError, Name: name, Doc: doc, ErrorBody: body}, nil

	default:
		return Member{}, p.errf(ExpectedToken, p.tok.Offset, "expected %q, %q or %q, found %q", "type", "method", "error", p.tok.Text)
	}
}

func (p *Parser) expectUpperName() (string, error) {
	if p.tok.Kind != TokIdent {
		return "", p.errf(ExpectedToken, p.tok.Offset, "expected a name, found %q", p.tok.Text)
	}
	name := p.tok.Text
	if !upperNameRe.MatchString(name) {
		return "", p.errf(InvalidName, p.tok.Offset, "invalid type/method/error name %q", name)
	}
	if err := p.advance(); err != nil {
		return "", err
	}
	return name, nil
}

func (p *Parser) expectLowerName() (string, int, error) {
	if p.tok.Kind != TokIdent {
		return "", 0, p.errf(ExpectedToken, p.tok.Offset, "expected a field name, found %q", p.tok.Text)
	}
	name, offset := p.tok.Text, p.tok.Offset
	if !lowerNameRe.MatchString(name) {
		return "", 0, p.errf(InvalidName, p.tok.Offset, "invalid field name %q", name)
	}
	if err := p.advance(); err != nil {
		return "", 0, err
	}
	return name, offset, nil
}

func (p *Parser) expectPunct(text string) error {
	if p.tok.Kind != TokPunct || p.tok.Text != text {
		return p.errf(ExpectedToken, p.tok.Offset, "expected %q, found %q", text, p.tok.Text)
	}
	return p.advance()
}

// parseTypeExpr parses "?"? BasicOrComposite.
func (p *Parser) parseTypeExpr() (TypeExpr, error) {
	maybe := p.tok.Kind == TokPunct && p.tok.Text == "?"
	offset := p.tok.Offset
	if maybe {
		if err := p.advance(); err != nil {
			return TypeExpr{}, err
		}
		if p.tok.Kind == TokPunct && p.tok.Text == "?" {
			return TypeExpr{}, p.errf(NestedMaybe, p.tok.Offset, "maybe of maybe is not allowed")
		}
	}
	base, err := p.parseBasicOrComposite()
	if err != nil {
		return TypeExpr{}, err
	}
	if !maybe {
		return base, nil
	}
	if base.Kind == KindMaybe {
		return TypeExpr{}, p.errf(NestedMaybe, offset, "maybe of maybe is not allowed")
	}
	return TypeExpr{Kind: KindMaybe, Elem: &base}, nil
}

func (p *Parser) parseBasicOrComposite() (TypeExpr, error) {
	if p.tok.Kind == TokEOF {
		return TypeExpr{}, p.errf(UnexpectedEOF, p.tok.Offset, "unexpected end of file while parsing a type")
	}

	if p.tok.Kind == TokIdent {
		switch p.tok.Text {
		case "bool":
			return p.simpleType(KindBool)
		case "int":
			return p.simpleType(KindInt)
		case "float":
			return p.simpleType(KindFloat)
		case "string":
			return p.simpleType(KindString)
		case "object":
			return p.simpleType(KindObject)
		}
		if !upperNameRe.MatchString(p.tok.Text) {
			return TypeExpr{}, p.errf(InvalidName, p.tok.Offset, "invalid type reference %q", p.tok.Text)
		}
		ref, refOffset := p.tok.Text, p.tok.Offset
		if err := p.advance(); err != nil {
			return TypeExpr{}, err
		}
		return TypeExpr{Kind: KindRef, Ref: ref, Offset: refOffset}, nil
	}

	if p.tok.Kind == TokPunct && p.tok.Text == "[" {
		if err := p.advance(); err != nil {
			return TypeExpr{}, err
		}
		if p.tok.Kind == TokPunct && p.tok.Text == "]" {
			if err := p.advance(); err != nil {
				return TypeExpr{}, err
			}
			elem, err := p.parseTypeExpr()
			if err != nil {
				return TypeExpr{}, err
			}
			return TypeExpr{Kind: KindArray, Elem: &elem}, nil
		}
		if p.tok.Kind == TokIdent && p.tok.Text == "string" {
			if err := p.advance(); err != nil {
				return TypeExpr{}, err
			}
			if err := p.expectPunct("]"); err != nil {
				return TypeExpr{}, err
			}
			elem, err := p.parseTypeExpr()
			if err != nil {
				return TypeExpr{}, err
			}
			return TypeExpr{Kind: KindMap, Elem: &elem}, nil
		}
		return TypeExpr{}, p.errf(ExpectedToken, p.tok.Offset, "expected %q or %q, found %q", "]", "string]", p.tok.Text)
	}

	if p.tok.Kind == TokPunct && p.tok.Text == "(" {
		return p.parseEnumOrStruct()
	}

	return TypeExpr{}, p.errf(ExpectedToken, p.tok.Offset, "expected a type, found %q", p.tok.Text)
}

func (p *Parser) simpleType(kind Kind) (TypeExpr, error) {
	if err := p.advance(); err != nil {
		return TypeExpr{}, err
	}
	return TypeExpr{Kind: kind}, nil
}

// parseEnumOrStruct parses "(" EnumOrStructBody ")" once the opening
// "(" has been recognized but not yet consumed by the caller.
func (p *Parser) parseEnumOrStruct() (TypeExpr, error) {
	if err := p.advance(); err != nil { // consume "("
		return TypeExpr{}, err
	}

	if p.tok.Kind == TokPunct && p.tok.Text == ")" {
		if err := p.advance(); err != nil {
			return TypeExpr{}, err
		}
		return TypeExpr{Kind: KindStruct, Struct: &StructType{}}, nil
	}

	if p.tok.Kind != TokIdent {
		return TypeExpr{}, p.errf(ExpectedToken, p.tok.Offset, "expected a field or enum value, found %q", p.tok.Text)
	}

	firstName, firstOffset := p.tok.Text, p.tok.Offset
	if err := p.advance(); err != nil { // consume first identifier
		return TypeExpr{}, err
	}

	if p.tok.Kind == TokPunct && p.tok.Text == ":" {
		st, err := p.parseStructBodyTail(firstName, firstOffset)
		if err != nil {
			return TypeExpr{}, err
		}
		return TypeExpr{Kind: KindStruct, Struct: st}, nil
	}

	values, err := p.parseEnumTail(firstName, firstOffset)
	if err != nil {
		return TypeExpr{}, err
	}
	return TypeExpr{Kind: KindEnum, Enum: values}, nil
}

// parseStructBodyTail parses the remainder of a struct body given
// that firstName has already been read and the current lookahead is
// the ":" following it.
func (p *Parser) parseStructBodyTail(firstName string, firstOffset int) (*StructType, error) {
	if !lowerNameRe.MatchString(firstName) {
		return nil, p.errf(InvalidName, firstOffset, "invalid field name %q", firstName)
	}
	if err := p.advance(); err != nil { // consume ":"
		return nil, err
	}
	t, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	st := &StructType{Fields: []Field{{Name: firstName, Type: t}}}
	seen := map[string]bool{firstName: true}

	for p.tok.Kind == TokPunct && p.tok.Text == "," {
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, offset, err := p.expectLowerName()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		t, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, p.errf(DuplicateField, offset, "duplicate field %q", name)
		}
		seen[name] = true
		st.Fields = append(st.Fields, Field{Name: name, Type: t})
	}

	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return st, nil
}

// parseEnumTail parses the remainder of an enum body given that
// firstName has already been read.
func (p *Parser) parseEnumTail(firstName string, firstOffset int) ([]string, error) {
	values := []string{firstName}
	seen := map[string]bool{firstName: true}

	for p.tok.Kind == TokPunct && p.tok.Text == "," {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != TokIdent {
			return nil, p.errf(ExpectedToken, p.tok.Offset, "expected an enum value, found %q", p.tok.Text)
		}
		name, offset := p.tok.Text, p.tok.Offset
		if err := p.advance(); err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, p.errf(DuplicateField, offset, "duplicate enum value %q", name)
		}
		seen[name] = true
		values = append(values, name)
	}

	if len(values) < 2 {
		return nil, p.errf(ExpectedToken, firstOffset, "enum requires at least two values")
	}

	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return values, nil
}

// parseStructType parses a StructType nonterminal directly: "(" Field
// ("," Field)* ")" or "()" . Unlike parseBasicOrComposite's parenthesized
// form this never allows an enum body, matching the grammar of Method
// and Error, which both take a StructType and never a general TypeExpr.
func (p *Parser) parseStructType() (StructType, error) {
	if err := p.expectPunct("("); err != nil {
		return StructType{}, err
	}
	if p.tok.Kind == TokPunct && p.tok.Text == ")" {
		if err := p.advance(); err != nil {
			return StructType{}, err
		}
		return StructType{}, nil
	}

	var st StructType
	seen := map[string]bool{}
	for {
		name, offset, err := p.expectLowerName()
		if err != nil {
			return StructType{}, err
		}
		if err := p.expectPunct(":"); err != nil {
			return StructType{}, err
		}
		t, err := p.parseTypeExpr()
		if err != nil {
			return StructType{}, err
		}
		if seen[name] {
			return StructType{}, p.errf(DuplicateField, offset, "duplicate field %q", name)
		}
		seen[name] = true
		st.Fields = append(st.Fields, Field{Name: name, Type: t})

		if p.tok.Kind == TokPunct && p.tok.Text == "," {
			if err := p.advance(); err != nil {
				return StructType{}, err
			}
			continue
		}
		break
	}

	if err := p.expectPunct(")"); err != nil {
		return StructType{}, err
	}
	return st, nil
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

func joinLines(lines []string) string {
	out := lines[0]
	for _, l := range lines[1:] {
		out += "\n" + l
	}
	return out
}
