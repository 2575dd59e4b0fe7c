package idl

// Kind tags the variant a TypeExpr holds. TypeExpr is a sum type
// (Bool | Int | Float | String | Object | Array | Map | Maybe | Enum |
// Struct | Ref); Go has no sum types, so it is represented as a single
// struct with a Kind discriminant and the fields relevant to that
// variant, following the same tagged-union shape as a reflect-derived
// type description.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	KindObject
	KindArray
	KindMap
	KindMaybe
	KindEnum
	KindStruct
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindMaybe:
		return "maybe"
	case KindEnum:
		return "enum"
	case KindStruct:
		return "struct"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// TypeExpr is one node of a varlink type expression.
type TypeExpr struct {
	Kind Kind

	// Elem holds the element type for KindArray, KindMap and KindMaybe.
	Elem *TypeExpr

	// Enum holds the ordered, non-empty list of variant names for
	// KindEnum.
	Enum []string

	// Struct holds the field list for KindStruct.
	Struct *StructType

	// Ref holds the referenced type name for KindRef.
	Ref string

	// Offset is the byte offset of the Ref token in the source,
	// populated for KindRef so an unresolved or cyclic reference can be
	// reported at the point it was written rather than at the start of
	// the file.
	Offset int
}

// Field is one member of a StructType. Name matches
// [a-z][A-Za-z0-9_]* and is unique within its enclosing struct.
type Field struct {
	Name string
	Type TypeExpr
}

// StructType is an ordered list of fields. Field order is
// significant and preserved for formatted output.
type StructType struct {
	Fields []Field
}

// FieldByName returns the field with the given name and whether it
// was found.
func (s StructType) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// MemberKind tags the variant a Member holds: a named type
// declaration, a method, or an error.
type MemberKind int

const (
	MemberNamedType MemberKind = iota
	MemberMethod
	MemberError
)

// Member is one top-level declaration inside an Interface: a
// NamedType{name, body}, a Method{name, input, output}, or an
// Error{name, body}.
type Member struct {
	Kind MemberKind
	Name string

	// Doc is the line-comment block immediately preceding this
	// member, with the leading "# " stripped from every line and
	// lines joined by "\n". Empty if there was no comment.
	Doc string

	// TypeBody is populated for MemberNamedType.
	TypeBody TypeExpr

	// Input and Output are populated for MemberMethod.
	Input  StructType
	Output StructType

	// ErrorBody is populated for MemberError.
	ErrorBody StructType
}

// Interface is a parsed and validated varlink interface: a
// reverse-DNS name, an ordered list of members, and an optional
// leading doc comment.
type Interface struct {
	Name string
	Doc  string

	Members []Member
}

// NamedType looks up a top-level type declaration by name.
func (i *Interface) NamedType(name string) (Member, bool) {
	for _, m := range i.Members {
		if m.Kind == MemberNamedType && m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// Methods returns every MemberMethod in declaration order.
func (i *Interface) Methods() []Member {
	var ms []Member
	for _, m := range i.Members {
		if m.Kind == MemberMethod {
			ms = append(ms, m)
		}
	}
	return ms
}

// Errors returns every MemberError in declaration order.
func (i *Interface) Errors() []Member {
	var ms []Member
	for _, m := range i.Members {
		if m.Kind == MemberError {
			ms = append(ms, m)
		}
	}
	return ms
}
