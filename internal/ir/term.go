package ir

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Well-known datatype and vocabulary IRIs.
const (
	XSDString   = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger  = "http://www.w3.org/2001/XMLSchema#integer"
	XSDBoolean  = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDDecimal  = "http://www.w3.org/2001/XMLSchema#decimal"
	RDFType     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFLangText = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
)

// TermKind identifies one of the four term variants.
type TermKind int

const (
	KindNamedNode TermKind = iota + 1
	KindBlankNode
	KindLiteral
	KindVariable
)

// String returns the kind name used in logs and JSON output.
func (k TermKind) String() string {
	switch k {
	case KindNamedNode:
		return "named_node"
	case KindBlankNode:
		return "blank_node"
	case KindLiteral:
		return "literal"
	case KindVariable:
		return "variable"
	default:
		return fmt.Sprintf("TermKind(%d)", int(k))
	}
}

// Term is a sealed interface over the four term variants:
// NamedNode, BlankNode, Literal and Variable.
//
// All variants are comparable value types, so == on two Terms is structural
// equality. Blank nodes and variables are identified by their label string,
// never by reference.
type Term interface {
	term() // Sealed - only the four variants below implement it

	// Kind reports which variant this term is.
	Kind() TermKind

	// Value returns the label: IRI, blank node id, lexical form or variable name.
	Value() string

	// String returns the canonical N-Quads style rendering.
	String() string
}

// NamedNode is an IRI-named entity.
type NamedNode struct {
	IRI string
}

func (NamedNode) term()            {}
func (NamedNode) Kind() TermKind   { return KindNamedNode }
func (n NamedNode) Value() string  { return n.IRI }
func (n NamedNode) String() string { return EncodeTerm(n) }

// BlankNode is an unnamed entity scoped to its document or formula.
type BlankNode struct {
	ID string
}

func (BlankNode) term()            {}
func (BlankNode) Kind() TermKind   { return KindBlankNode }
func (b BlankNode) Value() string  { return b.ID }
func (b BlankNode) String() string { return EncodeTerm(b) }

// Literal is a lexical value with an optional datatype or language tag.
// An empty Datatype means xsd:string (or rdf:langString when Lang is set).
// Construct literals with NewLiteral so the lexical form is NFC normalized.
type Literal struct {
	Lexical  string
	Datatype string
	Lang     string
}

func (Literal) term()            {}
func (Literal) Kind() TermKind   { return KindLiteral }
func (l Literal) Value() string  { return l.Lexical }
func (l Literal) String() string { return EncodeTerm(l) }

// Variable is a universally quantified placeholder in a rule pattern.
type Variable struct {
	Name string
}

func (Variable) term()            {}
func (Variable) Kind() TermKind   { return KindVariable }
func (v Variable) Value() string  { return v.Name }
func (v Variable) String() string { return EncodeTerm(v) }

// NewNamedNode creates a NamedNode.
func NewNamedNode(iri string) NamedNode {
	return NamedNode{IRI: iri}
}

// NewBlankNode creates a BlankNode. A leading "_:" is stripped.
func NewBlankNode(id string) BlankNode {
	return BlankNode{ID: strings.TrimPrefix(id, "_:")}
}

// NewVariable creates a Variable. A leading "?" is stripped.
func NewVariable(name string) Variable {
	return Variable{Name: strings.TrimPrefix(name, "?")}
}

// NewLiteral creates a Literal in normal form:
//   - lexical form is NFC normalized
//   - xsd:string datatype is dropped (it is the default)
//   - language tags are lower-cased and force rdf:langString
func NewLiteral(lexical, datatype, lang string) Literal {
	lit := Literal{Lexical: norm.NFC.String(lexical)}
	if lang != "" {
		lit.Lang = strings.ToLower(lang)
		return lit
	}
	if datatype != XSDString {
		lit.Datatype = datatype
	}
	return lit
}

// IsBlankNodeOrVariable reports whether t is an existential or universal
// placeholder. A nil term is neither.
func IsBlankNodeOrVariable(t Term) bool {
	switch t.(type) {
	case BlankNode, Variable:
		return true
	default:
		return false
	}
}

// SkolemPrefix is the reserved local-name prefix of minted existential
// identifiers. Input blank nodes should not use it.
const SkolemPrefix = "sk_"

// IsSkolem reports whether t is a blank node minted by a skolem generator.
func IsSkolem(t Term) bool {
	b, ok := t.(BlankNode)
	return ok && strings.HasPrefix(b.ID, SkolemPrefix)
}

// Equal reports structural equality of two terms, treating nil as the
// default graph.
func Equal(a, b Term) bool {
	return a == b
}
