package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/think/internal/ir"
)

// DefaultPrefixes are available in every rule file unless redefined.
var DefaultPrefixes = map[string]string{
	"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
	"xsd":  "http://www.w3.org/2001/XMLSchema#",
	"owl":  "http://www.w3.org/2002/07/owl#",
}

// ParseTerm parses one term in rule-file syntax:
//
//	?x                 variable
//	_:b                blank node
//	<http://ex/a>      IRI
//	ex:a  :a           prefixed name
//	a                  rdf:type
//	"lex" "lex"@en "lex"^^xsd:integer "lex"^^<dt>
//	42  -7             xsd:integer
//	true  false        xsd:boolean
func ParseTerm(s string, prefixes map[string]string) (ir.Term, error) {
	switch {
	case s == "":
		return nil, fmt.Errorf("empty term")
	case s == "a":
		return ir.NewNamedNode(ir.RDFType), nil
	case strings.HasPrefix(s, "?"):
		if len(s) == 1 {
			return nil, fmt.Errorf("empty variable name")
		}
		return ir.NewVariable(s), nil
	case strings.HasPrefix(s, "_:"):
		if len(s) == 2 {
			return nil, fmt.Errorf("empty blank node label")
		}
		return ir.NewBlankNode(s), nil
	case strings.HasPrefix(s, "<"):
		if !strings.HasSuffix(s, ">") || len(s) < 3 {
			return nil, fmt.Errorf("malformed IRI %q", s)
		}
		return ir.NewNamedNode(s[1 : len(s)-1]), nil
	case strings.HasPrefix(s, `"`):
		return parseLiteral(s, prefixes)
	case s == "true" || s == "false":
		return ir.NewLiteral(s, ir.XSDBoolean, ""), nil
	case isInteger(s):
		return ir.NewLiteral(s, ir.XSDInteger, ""), nil
	default:
		return expandPrefixed(s, prefixes)
	}
}

func expandPrefixed(s string, prefixes map[string]string) (ir.Term, error) {
	prefix, local, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("unrecognized term %q", s)
	}
	if ns, found := lookupPrefix(prefix, prefixes); found {
		return ir.NewNamedNode(ns + local), nil
	}
	// Absolute IRIs are accepted without brackets.
	if strings.HasPrefix(local, "//") {
		return ir.NewNamedNode(s), nil
	}
	return nil, fmt.Errorf("undefined prefix %q in %q", prefix, s)
}

func lookupPrefix(prefix string, prefixes map[string]string) (string, bool) {
	if ns, ok := prefixes[prefix]; ok {
		return ns, true
	}
	ns, ok := DefaultPrefixes[prefix]
	return ns, ok
}

func parseLiteral(s string, prefixes map[string]string) (ir.Term, error) {
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
		i++
		if i >= len(s) {
			return nil, fmt.Errorf("dangling escape in %q", s)
		}
		switch s[i] {
		case 'n':
			lex.WriteByte('\n')
		case 't':
			lex.WriteByte('\t')
		case 'r':
			lex.WriteByte('\r')
		case '"', '\\':
			lex.WriteByte(s[i])
		default:
			return nil, fmt.Errorf("unsupported escape \\%c in %q", s[i], s)
		}
	}
	if i >= len(s) {
		return nil, fmt.Errorf("unterminated literal %q", s)
	}

	rest := s[i+1:]
	switch {
	case rest == "":
		return ir.NewLiteral(lex.String(), "", ""), nil
	case strings.HasPrefix(rest, "@") && len(rest) > 1:
		return ir.NewLiteral(lex.String(), "", rest[1:]), nil
	case strings.HasPrefix(rest, "^^"):
		dt, err := ParseTerm(rest[2:], prefixes)
		if err != nil {
			return nil, fmt.Errorf("literal datatype: %w", err)
		}
		iri, ok := dt.(ir.NamedNode)
		if !ok {
			return nil, fmt.Errorf("literal datatype must be an IRI, got %s", dt)
		}
		return ir.NewLiteral(lex.String(), iri.IRI, ""), nil
	default:
		return nil, fmt.Errorf("unexpected %q after literal", rest)
	}
}

func isInteger(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// parseTermValue parses a CUE value in a pattern position. Strings use
// ParseTerm; CUE numbers and booleans become typed literals.
func parseTermValue(v cue.Value, prefixes map[string]string, field string) (ir.Term, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		t, err := ParseTerm(s, prefixes)
		if err != nil {
			return nil, fieldError(field, v, "%v", err)
		}
		return t, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.NewLiteral(strconv.FormatInt(n, 10), ir.XSDInteger, ""), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.NewLiteral(strconv.FormatFloat(f, 'f', -1, 64), ir.XSDDecimal, ""), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.NewLiteral(strconv.FormatBool(b), ir.XSDBoolean, ""), nil
	default:
		return nil, fieldError(field, v, "term must be a string, number or bool, got %v", v.IncompleteKind())
	}
}
