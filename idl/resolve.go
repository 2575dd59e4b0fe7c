package idl

// resolveAndCheckCycles enforces that every Ref resolves to a
// NamedType in the same interface, and that named types may not
// reference each other in a cycle. src is the original interface text,
// carried through so a reported SyntaxError can render its snippet.
func resolveAndCheckCycles(iface *Interface, src string) error {
	named := map[string]TypeExpr{}
	for _, m := range iface.Members {
		if m.Kind == MemberNamedType {
			named[m.Name] = m.TypeBody
		}
	}

	for _, m := range iface.Members {
		var err error
		switch m.Kind {
		case MemberNamedType:
			err = walkType(m.TypeBody, named, src)
		case MemberMethod:
			err = walkStruct(m.Input, named, src)
			if err == nil {
				err = walkStruct(m.Output, named, src)
			}
		case MemberError:
			err = walkStruct(m.ErrorBody, named, src)
		}
		if err != nil {
			return err
		}
	}

	return checkCycles(named, src)
}

func walkType(t TypeExpr, named map[string]TypeExpr, src string) error {
	switch t.Kind {
	case KindArray, KindMap, KindMaybe:
		return walkType(*t.Elem, named, src)
	case KindStruct:
		return walkStruct(*t.Struct, named, src)
	case KindRef:
		if _, ok := named[t.Ref]; !ok {
			return &SyntaxError{Kind: UnresolvedType, Offset: t.Offset, Message: "unresolved type reference " + t.Ref, Source: src}
		}
	}
	return nil
}

func walkStruct(st StructType, named map[string]TypeExpr, src string) error {
	for _, f := range st.Fields {
		if err := walkType(f.Type, named, src); err != nil {
			return err
		}
	}
	return nil
}

// namedRef is one named-type reference found by directRefs, carrying
// the byte offset of the Ref token so a cycle can be reported at the
// point it was written.
type namedRef struct {
	name   string
	offset int
}

// directRefs returns the named types t refers to directly (through
// arrays, maps, maybes and struct fields, but not through another
// level of named-type indirection — that edge is added by the caller
// from the graph of all named types).
func directRefs(t TypeExpr) []namedRef {
	switch t.Kind {
	case KindArray, KindMap, KindMaybe:
		return directRefs(*t.Elem)
	case KindStruct:
		var refs []namedRef
		for _, f := range t.Struct.Fields {
			refs = append(refs, directRefs(f.Type)...)
		}
		return refs
	case KindRef:
		return []namedRef{{name: t.Ref, offset: t.Offset}}
	default:
		return nil
	}
}

const (
	white = 0
	grey  = 1
	black = 2
)

func checkCycles(named map[string]TypeExpr, src string) error {
	color := map[string]int{}
	for name := range named {
		color[name] = white
	}

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = grey
		for _, ref := range directRefs(named[name]) {
			if _, ok := named[ref.name]; !ok {
				continue // already reported by walkType
			}
			switch color[ref.name] {
			case grey:
				return &SyntaxError{Kind: UnresolvedType, Offset: ref.offset, Message: "cyclic type reference involving " + ref.name, Source: src}
			case white:
				if err := visit(ref.name); err != nil {
					return err
				}
			}
		}
		color[name] = black
		return nil
	}

	for name := range named {
		if color[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}
