package idl

import (
	"strings"
)

// maxInlineWidth is the canonical formatter's wrap threshold for a
// parenthesized field list.
const maxInlineWidth = 72

// Format renders iface as canonical varlink IDL text. format(parse(text))
// is idempotent under re-parsing: Parse(Format(iface)) produces a
// structurally equal *Interface. The source offsets recorded on type
// references are not part of that equality; they follow the
// reformatted text.
func Format(iface *Interface) string {
	var b strings.Builder
	writeDoc(&b, "", iface.Doc)
	b.WriteString("interface ")
	b.WriteString(iface.Name)
	b.WriteString("\n")

	for _, m := range iface.Members {
		b.WriteString("\n")
		writeDoc(&b, "", m.Doc)
		writeMember(&b, m)
	}

	return b.String()
}

func writeDoc(b *strings.Builder, indent, doc string) {
	if doc == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		b.WriteString(indent)
		b.WriteString("# ")
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func writeMember(b *strings.Builder, m Member) {
	switch m.Kind {
	case MemberNamedType:
		b.WriteString("type ")
		b.WriteString(m.Name)
		b.WriteString(" ")
		writeTypeExpr(b, m.TypeBody)
		b.WriteString("\n")

	case MemberMethod:
		b.WriteString("method ")
		b.WriteString(m.Name)
		writeStructType(b, m.Input)
		b.WriteString(" -> ")
		writeStructType(b, m.Output)
		b.WriteString("\n")

	case MemberError:
		b.WriteString("error ")
		b.WriteString(m.Name)
		writeStructType(b, m.ErrorBody)
		b.WriteString("\n")
	}
}

func writeTypeExpr(b *strings.Builder, t TypeExpr) {
	switch t.Kind {
	case KindBool:
		b.WriteString("bool")
	case KindInt:
		b.WriteString("int")
	case KindFloat:
		b.WriteString("float")
	case KindString:
		b.WriteString("string")
	case KindObject:
		b.WriteString("object")
	case KindMaybe:
		b.WriteString("?")
		writeTypeExpr(b, *t.Elem)
	case KindArray:
		b.WriteString("[]")
		writeTypeExpr(b, *t.Elem)
	case KindMap:
		b.WriteString("[string]")
		writeTypeExpr(b, *t.Elem)
	case KindEnum:
		b.WriteString("(")
		b.WriteString(strings.Join(t.Enum, ", "))
		b.WriteString(")")
	case KindStruct:
		writeStructType(b, *t.Struct)
	case KindRef:
		b.WriteString(t.Ref)
	}
}

func writeStructType(b *strings.Builder, st StructType) {
	if len(st.Fields) == 0 {
		b.WriteString("()")
		return
	}

	inline := renderInline(st)
	if len(inline) <= maxInlineWidth {
		b.WriteString(inline)
		return
	}

	b.WriteString("(\n")
	for i, f := range st.Fields {
		b.WriteString("  ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		writeTypeExpr(b, f.Type)
		if i < len(st.Fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
}

func renderInline(st StructType) string {
	var b strings.Builder
	b.WriteString("(")
	for i, f := range st.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		writeTypeExpr(&b, f.Type)
	}
	b.WriteString(")")
	return b.String()
}
