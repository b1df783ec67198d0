// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package game enumerates the supported game executables.
package game

import (
	"strings"

	"github.com/smgtools/kamek/errors"
)

// ID identifies a regional release of a game.  The zero value is invalid.
type ID int

const (
	RMGJ ID = iota + 1
	RMGE
	RMGP
	RMGK
	SB4J
	SB4E
	SB4P
	SB4K
	SB4W

	numIDs
)

// All valid IDs in ascending order.
func All() []ID {
	ids := make([]ID, 0, numIDs-1)
	for id := ID(1); id < numIDs; id++ {
		ids = append(ids, id)
	}
	return ids
}

var idNames = [numIDs]string{
	RMGJ: "RMGJ",
	RMGE: "RMGE",
	RMGP: "RMGP",
	RMGK: "RMGK",
	SB4J: "SB4J",
	SB4E: "SB4E",
	SB4P: "SB4P",
	SB4K: "SB4K",
	SB4W: "SB4W",
}

// Parse a game id such as "RMGE" or "RMGE01".
func Parse(s string) (ID, error) {
	name := strings.TrimSuffix(s, "01")
	for id := ID(1); id < numIDs; id++ {
		if idNames[id] == name {
			return id, nil
		}
	}
	return 0, errors.Errorf(errors.UnknownGame, "unknown game: %q", s)
}

func (id ID) Valid() bool {
	return id > 0 && id < numIDs
}

func (id ID) String() string {
	if id.Valid() {
		return idNames[id]
	}
	return "<invalid>"
}

// Code is the six-character game code used in file names, e.g. "RMGE01".
func (id ID) Code() string {
	return id.String() + "01"
}

// Title of the game.
type Title int

const (
	SMG1 Title = iota + 1
	SMG2
)

func (t Title) String() string {
	switch t {
	case SMG1:
		return "smg"

	case SMG2:
		return "smg2"

	default:
		return "<invalid>"
	}
}

// Titles in ascending order.
func Titles() []Title {
	return []Title{SMG1, SMG2}
}

// Title which the release belongs to.
func (id ID) Title() Title {
	switch {
	case id >= RMGJ && id <= RMGK:
		return SMG1

	case id >= SB4J && id <= SB4W:
		return SMG2

	default:
		return 0
	}
}

// Layout of the target console's address space.
func (id ID) Layout() Layout {
	if !id.Valid() {
		return nil
	}
	return wiiLayout
}
