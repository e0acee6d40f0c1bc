// Package errors provides the error taxonomy used throughout jetstore.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by errors.Is against the typed errors below.
var (
	// ErrUnsupportedCodec indicates an encrypted file with no capable codec.
	ErrUnsupportedCodec = errors.New("unsupported codec")
	// ErrConstraintViolation indicates a foreign-key or uniqueness violation.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrIllegalArgument indicates a validation rejection.
	ErrIllegalArgument = errors.New("illegal argument")
	// ErrIllegalState indicates corrupt internal bookkeeping or a detected cycle.
	ErrIllegalState = errors.New("illegal state")
	// ErrEval indicates an expression failed to parse or evaluate.
	ErrEval = errors.New("evaluation error")
)

// IOError wraps an underlying file error: unreachable file, short read or
// write, or a corrupt page header.
type IOError struct {
	Op   string // e.g. "read page", "write page", "open"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NewIO creates an IOError.
func NewIO(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

// ConstraintViolation carries the offending row literal and a description of
// the foreign key that rejected it.
type ConstraintViolation struct {
	Table   string
	Index   string
	RefName string // the constrained FK's name/description
	Row     []any  // offending row literal, column order
	Reason  string
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation on %s.%s (%s): %s", e.Table, e.Index, e.RefName, e.Reason)
}

func (e *ConstraintViolation) Unwrap() error { return ErrConstraintViolation }

// NewConstraintViolation creates a ConstraintViolation.
func NewConstraintViolation(table, index, refName, reason string, row []any) *ConstraintViolation {
	return &ConstraintViolation{Table: table, Index: index, RefName: refName, Reason: reason, Row: row}
}

// UnsupportedCodecError indicates an encrypted file whose codec type has no
// registered capable provider.
type UnsupportedCodecError struct {
	CodecType int
}

func (e *UnsupportedCodecError) Error() string {
	return fmt.Sprintf("unsupported codec type %d", e.CodecType)
}

func (e *UnsupportedCodecError) Unwrap() error { return ErrUnsupportedCodec }

// NewUnsupportedCodec creates an UnsupportedCodecError.
func NewUnsupportedCodec(codecType int) *UnsupportedCodecError {
	return &UnsupportedCodecError{CodecType: codecType}
}

// EvalError indicates the (excluded) expression evaluator collaborator
// failed: parse failure, unresolved identifier, or a type mismatch.
type EvalError struct {
	Expr   string
	Reason string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluating %q: %s", e.Expr, e.Reason)
}

func (e *EvalError) Unwrap() error { return ErrEval }

// NewEval creates an EvalError.
func NewEval(expr, reason string) *EvalError {
	return &EvalError{Expr: expr, Reason: reason}
}

// IllegalArgumentError indicates a validation rejection: duplicate name,
// too many columns/indexes, or an unsupported column type (e.g. complex).
type IllegalArgumentError struct {
	Field  string
	Reason string
}

func (e *IllegalArgumentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("illegal argument %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("illegal argument: %s", e.Reason)
}

func (e *IllegalArgumentError) Unwrap() error { return ErrIllegalArgument }

// NewIllegalArgument creates an IllegalArgumentError.
func NewIllegalArgument(field, reason string) *IllegalArgumentError {
	return &IllegalArgumentError{Field: field, Reason: reason}
}

// IllegalStateError indicates a cycle detected by the topological sorter or
// otherwise corrupt internal bookkeeping.
type IllegalStateError struct {
	Reason string
}

func (e *IllegalStateError) Error() string { return fmt.Sprintf("illegal state: %s", e.Reason) }

func (e *IllegalStateError) Unwrap() error { return ErrIllegalState }

// NewIllegalState creates an IllegalStateError.
func NewIllegalState(reason string) *IllegalStateError {
	return &IllegalStateError{Reason: reason}
}

// Is wraps errors.Is for convenience at call sites that already import this
// package for the typed errors above.
func Is(err, target error) bool { return errors.Is(err, target) }

// As wraps errors.As for convenience.
func As(err error, target any) bool { return errors.As(err, target) }
