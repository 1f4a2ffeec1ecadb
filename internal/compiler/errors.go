package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a rule-file problem located by its field path
// ("rule.person-role.premise[0][2]", "graph.g1", "facts") and, when the
// value came from a file, its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if !e.Pos.IsValid() {
		return e.Field + ": " + e.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
}

// IsCompileError reports whether err wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// fieldError builds a CompileError positioned at v.
func fieldError(field string, v cue.Value, format string, args ...any) *CompileError {
	return &CompileError{Field: field, Message: fmt.Sprintf(format, args...), Pos: v.Pos()}
}

// formatCUEError converts a CUE evaluation error into a CompileError at the
// position of its first underlying error. A CUE error list of several
// entries keeps only the first; the count is appended to the message.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return err
	}

	first := list[0]
	msg := first.Error()
	if extra := len(list) - 1; extra > 0 {
		msg = fmt.Sprintf("%s (and %d more)", msg, extra)
	}
	positions := cueerrors.Positions(first)
	if len(positions) == 0 {
		return &CompileError{Field: "cue", Message: msg}
	}
	return &CompileError{Field: "cue", Message: msg, Pos: positions[0]}
}
