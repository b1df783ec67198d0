// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors defines the failure kinds reported by patch generation.
//
// Every error returned by the kamek packages for a rejected input implements
// the following interface:
//
//	interface {
//	    PatchError() string
//	}
//
// The Kind of such an error can be tested with xerrors.Is against the Err*
// sentinels, or extracted with KindOf.  Other errors are read errors which
// are passed through as is.
package errors

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind of patch generation failure.  All kinds are terminal for the call
// which reports them.
type Kind int

const (
	NotFound Kind = iota + 1
	Malformed
	ArgumentTypeMismatch
	UnknownGame
	UnresolvedSymbol
	RelocationOutOfRange
	OffsetOutOfBounds
	InvalidLoadAddress
	UninitializedTable
)

var kindNames = [...]string{
	NotFound:             "not found",
	Malformed:            "malformed",
	ArgumentTypeMismatch: "argument type mismatch",
	UnknownGame:          "unknown game",
	UnresolvedSymbol:     "unresolved symbol",
	RelocationOutOfRange: "relocation out of range",
	OffsetOutOfBounds:    "offset out of bounds",
	InvalidLoadAddress:   "invalid load address",
	UninitializedTable:   "uninitialized table",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// LoadError is true for the kinds which the patch module loader reports.
func (k Kind) LoadError() bool {
	switch k {
	case NotFound, Malformed, ArgumentTypeMismatch:
		return true

	default:
		return false
	}
}

// Error implements the error interface, so that a Kind can be used as a
// matching target.
func (k Kind) Error() string      { return k.String() }
func (k Kind) PatchError() string { return k.String() }

// Sentinels for xerrors.Is.
var (
	ErrNotFound             error = NotFound
	ErrMalformed            error = Malformed
	ErrArgumentTypeMismatch error = ArgumentTypeMismatch
	ErrUnknownGame          error = UnknownGame
	ErrUnresolvedSymbol     error = UnresolvedSymbol
	ErrRelocationOutOfRange error = RelocationOutOfRange
	ErrOffsetOutOfBounds    error = OffsetOutOfBounds
	ErrInvalidLoadAddress   error = InvalidLoadAddress
	ErrUninitializedTable   error = UninitializedTable
)

// Error is a patch error of a specific kind.  It may wrap an underlying
// error.
type Error struct {
	Kind  Kind
	Text  string
	Cause error
}

// New patch error.
func New(kind Kind, text string) error {
	return &Error{Kind: kind, Text: text}
}

// Errorf formats the text of a new patch error.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Text: fmt.Sprintf(format, args...)}
}

// Wrap an underlying error as a patch error.
func Wrap(kind Kind, cause error, text string) error {
	return &Error{Kind: kind, Text: text, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Text, e.Cause)
	}
	return e.Text
}

func (e *Error) PatchError() string { return e.Text }
func (e *Error) Unwrap() error      { return e.Cause }

// Is matches the error's own kind sentinel.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf finds the kind of the first patch error in err's chain.  Zero is
// returned if there is none.
func KindOf(err error) Kind {
	var e *Error
	if xerrors.As(err, &e) {
		return e.Kind
	}

	var k Kind
	if xerrors.As(err, &k) {
		return k
	}

	return 0
}
