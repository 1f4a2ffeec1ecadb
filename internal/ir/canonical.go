package ir

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EncodeTerm produces the canonical N-Quads style encoding of a term.
// CRITICAL: This is the ONLY encoding used for content-addressed identity
// (QuadID, BindingHash) and for the SQLite term columns.
//
//	NamedNode  <iri>
//	BlankNode  _:id
//	Literal    "lexical" | "lexical"@lang | "lexical"^^<datatype>
//	Variable   ?name
//
// Strings are NFC normalized at this boundary. A nil term encodes as ""
// (the default graph).
func EncodeTerm(t Term) string {
	switch v := t.(type) {
	case nil:
		return ""
	case NamedNode:
		return "<" + escapeIRI(norm.NFC.String(v.IRI)) + ">"
	case BlankNode:
		return "_:" + v.ID
	case Variable:
		return "?" + v.Name
	case Literal:
		var b strings.Builder
		b.WriteByte('"')
		b.WriteString(escapeLiteral(norm.NFC.String(v.Lexical)))
		b.WriteByte('"')
		switch {
		case v.Lang != "":
			b.WriteByte('@')
			b.WriteString(v.Lang)
		case v.Datatype != "" && v.Datatype != XSDString:
			b.WriteString("^^<")
			b.WriteString(escapeIRI(v.Datatype))
			b.WriteByte('>')
		}
		return b.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// EncodeQuad renders a quad as an N-Quads statement ("s p o [g] .").
func EncodeQuad(q Quad) string {
	var b strings.Builder
	b.WriteString(EncodeTerm(q.Subject))
	b.WriteByte(' ')
	b.WriteString(EncodeTerm(q.Predicate))
	b.WriteByte(' ')
	b.WriteString(EncodeTerm(q.Object))
	if q.Graph != nil {
		b.WriteByte(' ')
		b.WriteString(EncodeTerm(q.Graph))
	}
	b.WriteString(" .")
	return b.String()
}

// DecodeTerm parses the canonical encoding produced by EncodeTerm.
// The empty string decodes to a nil term (default graph).
func DecodeTerm(s string) (Term, error) {
	if s == "" {
		return nil, nil
	}
	t, rest, err := scanTerm(s)
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("decode term %q: trailing input %q", s, rest)
	}
	return t, nil
}

// DecodeQuad parses one N-Quads statement in canonical form.
// The trailing " ." is optional.
func DecodeQuad(line string) (Quad, error) {
	rest := strings.TrimSpace(line)
	rest = strings.TrimSuffix(rest, ".")

	var terms []Term
	for {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			break
		}
		t, remaining, err := scanTerm(rest)
		if err != nil {
			return Quad{}, fmt.Errorf("decode quad %q: %w", line, err)
		}
		terms = append(terms, t)
		rest = remaining
	}

	switch len(terms) {
	case 3:
		return NewQuad(terms[0], terms[1], terms[2]), nil
	case 4:
		return Quad{Subject: terms[0], Predicate: terms[1], Object: terms[2], Graph: terms[3]}, nil
	default:
		return Quad{}, fmt.Errorf("decode quad %q: expected 3 or 4 terms, got %d", line, len(terms))
	}
}

// scanTerm reads one term from the front of s and returns the remainder.
func scanTerm(s string) (Term, string, error) {
	switch {
	case strings.HasPrefix(s, "<"):
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return nil, "", fmt.Errorf("unterminated IRI in %q", s)
		}
		iri, err := unescapeIRI(s[1:end])
		if err != nil {
			return nil, "", err
		}
		return NamedNode{IRI: iri}, s[end+1:], nil

	case strings.HasPrefix(s, "_:"):
		id, rest := scanLabel(s[2:])
		if id == "" {
			return nil, "", fmt.Errorf("empty blank node label in %q", s)
		}
		return BlankNode{ID: id}, rest, nil

	case strings.HasPrefix(s, "?"):
		name, rest := scanLabel(s[1:])
		if name == "" {
			return nil, "", fmt.Errorf("empty variable name in %q", s)
		}
		return Variable{Name: name}, rest, nil

	case strings.HasPrefix(s, `"`):
		return scanLiteral(s)

	default:
		return nil, "", fmt.Errorf("unrecognized term syntax %q", s)
	}
}

// scanLabel reads a blank node or variable label up to whitespace.
func scanLabel(s string) (string, string) {
	end := strings.IndexAny(s, " \t\n")
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}

func scanLiteral(s string) (Term, string, error) {
	var lex strings.Builder
	i := 1
	for ; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			break
		}
		if c != '\\' {
			lex.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return nil, "", fmt.Errorf("dangling escape in %q", s)
		}
		i++
		switch s[i] {
		case 'n':
			lex.WriteByte('\n')
		case 'r':
			lex.WriteByte('\r')
		case 't':
			lex.WriteByte('\t')
		case '"':
			lex.WriteByte('"')
		case '\\':
			lex.WriteByte('\\')
		default:
			return nil, "", fmt.Errorf("unsupported escape \\%c in %q", s[i], s)
		}
	}
	if i >= len(s) {
		return nil, "", fmt.Errorf("unterminated literal in %q", s)
	}
	rest := s[i+1:]

	switch {
	case strings.HasPrefix(rest, "@"):
		lang, remaining := scanLabel(rest[1:])
		return NewLiteral(lex.String(), "", lang), remaining, nil
	case strings.HasPrefix(rest, "^^<"):
		dt, remaining, err := scanTerm(rest[2:])
		if err != nil {
			return nil, "", fmt.Errorf("literal datatype: %w", err)
		}
		return NewLiteral(lex.String(), dt.Value(), ""), remaining, nil
	default:
		return NewLiteral(lex.String(), "", ""), rest, nil
	}
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

var iriEscaper = strings.NewReplacer(
	"\\", "\\u005C",
	">", "\\u003E",
)

func escapeIRI(s string) string {
	return iriEscaper.Replace(s)
}

var iriUnescaper = strings.NewReplacer(
	"\\u005C", "\\",
	"\\u003E", ">",
)

func unescapeIRI(s string) (string, error) {
	if strings.ContainsAny(s, " \n") {
		return "", fmt.Errorf("invalid whitespace in IRI %q", s)
	}
	return iriUnescaper.Replace(s), nil
}

// MarshalJSON encodes a NamedNode as its canonical string.
func (n NamedNode) MarshalJSON() ([]byte, error) { return json.Marshal(EncodeTerm(n)) }

// MarshalJSON encodes a BlankNode as its canonical string.
func (b BlankNode) MarshalJSON() ([]byte, error) { return json.Marshal(EncodeTerm(b)) }

// MarshalJSON encodes a Literal as its canonical string.
func (l Literal) MarshalJSON() ([]byte, error) { return json.Marshal(EncodeTerm(l)) }

// MarshalJSON encodes a Variable as its canonical string.
func (v Variable) MarshalJSON() ([]byte, error) { return json.Marshal(EncodeTerm(v)) }
