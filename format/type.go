// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package format

import (
	"strings"

	"github.com/smgtools/kamek/errors"
)

// Type of patch output.
type Type int

const (
	Bin Type = iota + 1 // Raw image bytes.
	Dol                 // Image bytes checked against the executable's memory map.
	XML                 // Riivolution memory directives.
	INI                 // Dolphin patch lines.
)

var typeNames = [...]string{
	Bin: "bin",
	Dol: "dol",
	XML: "xml",
	INI: "ini",
}

// Types lists the valid output types.
func Types() []Type {
	return []Type{Bin, Dol, XML, INI}
}

// ParseType accepts a type name, ignoring case.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name != "" && strings.EqualFold(s, name) {
			return Type(t), nil
		}
	}
	return 0, errors.Errorf(errors.Malformed, "unknown patch type: %q", s)
}

func (t Type) Valid() bool {
	return t >= Bin && t <= INI
}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return "invalid"
}

// Textual output consists of directives.
func (t Type) Textual() bool {
	return t == XML || t == INI
}
