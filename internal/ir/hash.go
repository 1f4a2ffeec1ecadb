package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainQuad    = "think/quad/v1"
	DomainBinding = "think/binding/v1"
	DomainRuleSet = "think/ruleset/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QuadID computes the content-addressed identity of a quad.
// Two quads share an ID exactly when they are equal, graph included.
// Used as the quads table key: UNIQUE(table_id, id).
func QuadID(q Quad) string {
	var b strings.Builder
	for i, t := range []Term{q.Subject, q.Predicate, q.Object, q.Graph} {
		if i > 0 {
			b.WriteByte(0x00)
		}
		b.WriteString(EncodeTerm(t))
	}
	return hashWithDomain(DomainQuad, []byte(b.String()))
}

// BindingHash computes the identity of one solution row, used to collapse
// duplicate rows produced by a join. Keys are hashed in SortedKeys order.
func BindingHash(b Binding) string {
	var sb strings.Builder
	for _, k := range b.SortedKeys() {
		sb.WriteString(k)
		sb.WriteByte(0x00)
		sb.WriteString(EncodeTerm(b[k]))
		sb.WriteByte(0x00)
	}
	return hashWithDomain(DomainBinding, []byte(sb.String()))
}

// RuleSetHash identifies the rules a run was started with. Graphs are hashed
// in label order; implications and facts in declaration order. Prefixes are
// not hashed since terms are already expanded.
func RuleSetHash(rs *RuleSet) string {
	var sb strings.Builder
	labels := make([]string, 0, len(rs.Graphs))
	for label := range rs.Graphs {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	for _, label := range labels {
		sb.WriteString("graph\x00" + label + "\x00")
		for i, st := range rs.Graphs[label] {
			sb.WriteString(strconv.Itoa(i))
			sb.WriteByte(0x00)
			for _, q := range st {
				sb.WriteString(EncodeQuad(q))
				sb.WriteByte(0x00)
			}
		}
	}
	for i, imp := range rs.Implies {
		sb.WriteString("implies\x00" + imp.ID(i) + "\x00" + imp.Premise + "\x00" + imp.Conclusion + "\x00")
	}
	for _, q := range rs.Facts {
		sb.WriteString("fact\x00" + EncodeQuad(q) + "\x00")
	}
	return hashWithDomain(DomainRuleSet, []byte(sb.String()))
}
