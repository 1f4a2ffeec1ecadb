// Package ir provides the term, quad and rule-set types shared by every
// other package.
//
// All other internal packages import ir; ir imports nothing internal. This
// keeps the representation the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Terms are comparable value types; == is structural equality
//   - Blank nodes and variables are identified by their label, never by pointer
//   - EncodeTerm is the only encoding used for hashing and storage
//   - Literal lexical forms are NFC normalized at construction and encoding
package ir
