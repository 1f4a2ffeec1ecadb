package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"

	"github.com/roach88/think/internal/ir"
)

// ReadNQuads parses an N-Quads document. Typed literals keep their lexical
// form and datatype; blank node labels are returned as written. Errors name
// the 1-based position of the offending statement.
func ReadNQuads(r io.Reader) ([]ir.Quad, error) {
	reader := nquads.NewReader(r, true)
	var out []ir.Quad
	for {
		cq, err := reader.ReadQuad()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read n-quads: quad %d: %w", len(out)+1, err)
		}
		q, err := fromCayleyQuad(cq)
		if err != nil {
			return nil, fmt.Errorf("read n-quads: quad %d: %w", len(out)+1, err)
		}
		out = append(out, q)
	}
}

// WriteQuads writes quads as N-Quads, one per line, in the given order.
// Variables cannot be serialized and fail the write.
func WriteQuads(w io.Writer, quads []ir.Quad) error {
	writer := nquads.NewWriter(w)
	for _, q := range quads {
		cq, err := toCayleyQuad(q)
		if err != nil {
			return fmt.Errorf("write n-quads: %s: %w", q, err)
		}
		if err := writer.WriteQuad(cq); err != nil {
			return fmt.Errorf("write n-quads: %w", err)
		}
	}
	return writer.Close()
}

// WriteNQuads writes every quad of src in its iteration order.
func WriteNQuads(ctx context.Context, w io.Writer, src Source) error {
	quads, err := Collect(ctx, src)
	if err != nil {
		return fmt.Errorf("write n-quads: %w", err)
	}
	return WriteQuads(w, quads)
}

func toCayleyQuad(q ir.Quad) (quad.Quad, error) {
	var out quad.Quad
	for _, c := range []struct {
		dst *quad.Value
		t   ir.Term
	}{{&out.Subject, q.Subject}, {&out.Predicate, q.Predicate}, {&out.Object, q.Object}, {&out.Label, q.Graph}} {
		v, err := toCayley(c.t)
		if err != nil {
			return quad.Quad{}, err
		}
		*c.dst = v
	}
	return out, nil
}

func toCayley(t ir.Term) (quad.Value, error) {
	switch v := t.(type) {
	case nil:
		return nil, nil
	case ir.NamedNode:
		return quad.IRI(v.IRI), nil
	case ir.BlankNode:
		return quad.BNode(v.ID), nil
	case ir.Literal:
		switch {
		case v.Lang != "":
			return quad.LangString{Value: quad.String(v.Lexical), Lang: v.Lang}, nil
		case v.Datatype != "":
			return quad.TypedString{Value: quad.String(v.Lexical), Type: quad.IRI(v.Datatype)}, nil
		default:
			return quad.String(v.Lexical), nil
		}
	case ir.Variable:
		return nil, fmt.Errorf("variable %s cannot be serialized", v)
	default:
		return nil, fmt.Errorf("unknown term type %T", t)
	}
}

func fromCayleyQuad(cq quad.Quad) (ir.Quad, error) {
	var out ir.Quad
	for _, c := range []struct {
		dst *ir.Term
		v   quad.Value
	}{{&out.Subject, cq.Subject}, {&out.Predicate, cq.Predicate}, {&out.Object, cq.Object}, {&out.Graph, cq.Label}} {
		t, err := fromCayley(c.v)
		if err != nil {
			return ir.Quad{}, err
		}
		*c.dst = t
	}
	if out.Subject == nil || out.Predicate == nil || out.Object == nil {
		return ir.Quad{}, fmt.Errorf("incomplete quad %v", cq)
	}
	return out, nil
}

func fromCayley(v quad.Value) (ir.Term, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case quad.IRI:
		return ir.NewNamedNode(string(x)), nil
	case quad.BNode:
		return ir.NewBlankNode(string(x)), nil
	case quad.String:
		return ir.NewLiteral(string(x), "", ""), nil
	case quad.LangString:
		return ir.NewLiteral(string(x.Value), "", x.Lang), nil
	case quad.TypedString:
		return ir.NewLiteral(string(x.Value), string(x.Type), ""), nil
	case quad.TypedStringer:
		ts := x.TypedString()
		return ir.NewLiteral(string(ts.Value), string(ts.Type), ""), nil
	default:
		return nil, fmt.Errorf("unsupported n-quads value %T", v)
	}
}
