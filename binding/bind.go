// Copyright (c) 2018 Timo Savola.
// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package binding resolves the symbols imported by patch modules.
package binding

import (
	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/patch"
)

// Builtin is the Module index of symbols defined by the game executable.
const Builtin = -1

// Symbol is a resolved symbol definition.  Value is an absolute address for
// built-in symbols, or an offset within the defining module.
type Symbol struct {
	Module int
	Value  uint32
}

// BuiltinTable maps symbol names to absolute addresses.  *symbols.Table
// implements it.
type BuiltinTable interface {
	Lookup(name string) (addr uint32, found bool)
}

// Set of resolved imports.
type Set struct {
	imports map[string]Symbol
}

// Resolve every import of the modules.  The built-in table is consulted
// first, and each module's exports are layered on top of it in order: a later
// definition of a name shadows earlier ones.  The table is not modified.
func Resolve(mods []*patch.Module, builtin BuiltinTable) (*Set, error) {
	exports := make(map[string]Symbol)

	for i, m := range mods {
		for _, e := range m.Exports {
			exports[e.Name] = Symbol{Module: i, Value: e.Offset}
		}
	}

	s := &Set{
		imports: make(map[string]Symbol),
	}

	for _, m := range mods {
		for _, imp := range m.Imports() {
			if _, done := s.imports[imp.Name]; done {
				continue
			}

			if sym, found := exports[imp.Name]; found {
				s.imports[imp.Name] = sym
				continue
			}

			if builtin != nil {
				if addr, found := builtin.Lookup(imp.Name); found {
					s.imports[imp.Name] = Symbol{Module: Builtin, Value: addr}
					continue
				}
			}

			return nil, errors.Errorf(errors.UnresolvedSymbol, "%s: unresolved symbol %s", m.Name, imp.Name)
		}
	}

	return s, nil
}

// Lookup a resolved import.
func (s *Set) Lookup(name string) (sym Symbol, found bool) {
	sym, found = s.imports[name]
	return
}

// Address of a resolved symbol, given the start offsets of the modules within
// an image loaded at base.
func (sym Symbol) Address(base uint32, starts []uint32) uint32 {
	if sym.Module == Builtin {
		return sym.Value
	}
	return base + starts[sym.Module] + sym.Value
}
