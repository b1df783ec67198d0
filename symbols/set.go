// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package symbols

import (
	"bytes"

	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/game"
	"github.com/smgtools/kamek/internal/mapfile"
)

// Set of built-in tables, one per game release.  A Set is loaded once and
// then shared read-only.
type Set struct {
	tables map[game.ID]*Table
}

// NewSet takes ownership of the map.
func NewSet(tables map[game.ID]*Table) *Set {
	return &Set{tables}
}

// LoadSet reads "<code>.map" files (e.g. "RMGE01.map") for the given games.
func LoadSet(src mapfile.Source, ids []game.ID, warn func(string, ...interface{})) (*Set, error) {
	tables := make(map[game.ID]*Table, len(ids))

	for _, id := range ids {
		name := id.Code() + ".map"

		t, err := loadTable(src, name, warn)
		if err != nil {
			return nil, err
		}

		tables[id] = t
	}

	return NewSet(tables), nil
}

func loadTable(src mapfile.Source, name string, warn func(string, ...interface{})) (*Table, error) {
	m, err := src.Open(name)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	return ParseMap(bytes.NewReader(m.Bytes()), name, warn)
}

// Table of a game release.
func (s *Set) Table(id game.ID) (*Table, error) {
	if t := s.tables[id]; t != nil {
		return t, nil
	}
	return nil, errors.Errorf(errors.UnknownGame, "no symbol table for game %s", id)
}
