// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package loader

import (
	"encoding/json"

	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/patch"
)

// DefaultArgSection is the segment written by parameters which don't name
// one.
const DefaultArgSection = ".data"

// Param declares an argument which a patch takes.
//
// An int parameter is written as a 32-bit big-endian value at each offset of
// Section.  A string parameter is written as NUL-terminated bytes (at most
// Length bytes including the terminator, if Length is positive) at each
// offset; if there are no offsets, the string is placed in a new segment and
// exported under the parameter's name.
//
// If Type is omitted, a parameter with offsets is an int and a parameter
// without offsets is a string.
type Param struct {
	Name    string   `json:"name"`
	Type    string   `json:"type,omitempty"`
	Offsets []uint32 `json:"offsets,omitempty"`
	Section string   `json:"section,omitempty"`
	Length  int      `json:"length,omitempty"`
}

// ArgType of the parameter.
func (p *Param) ArgType() patch.ArgType {
	t, _ := patch.ParseArgType(p.Type)
	if t == patch.ArgNone {
		if len(p.Offsets) > 0 {
			return patch.ArgInt
		}
		return patch.ArgString
	}
	return t
}

// Entry of a patch catalogue.
type Entry struct {
	Name      string  `json:"name"`
	Arguments []Param `json:"arguments,omitempty"`
}

// Catalog lists the patches available for a game title.  It is immutable.
type Catalog struct {
	entries map[string]*Entry
	names   []string
}

// ParseCatalog decodes a JSON array of entries.
func ParseCatalog(data []byte) (*Catalog, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(errors.Malformed, err, "patch catalogue")
	}

	c := &Catalog{
		entries: make(map[string]*Entry, len(entries)),
	}

	for i := range entries {
		e := &entries[i]

		if e.Name == "" {
			return nil, errors.Errorf(errors.Malformed, "patch catalogue entry %d has no name", i)
		}
		if _, dup := c.entries[e.Name]; dup {
			return nil, errors.Errorf(errors.Malformed, "patch %q is listed twice", e.Name)
		}

		for j := range e.Arguments {
			p := &e.Arguments[j]

			if _, ok := patch.ParseArgType(p.Type); !ok {
				return nil, errors.Errorf(errors.Malformed, "patch %q argument %q has unknown type %q", e.Name, p.Name, p.Type)
			}
			if p.ArgType() == patch.ArgInt && len(p.Offsets) == 0 {
				return nil, errors.Errorf(errors.Malformed, "patch %q int argument %q has no offsets", e.Name, p.Name)
			}
			if p.ArgType() == patch.ArgString && len(p.Offsets) == 0 && p.Name == "" {
				return nil, errors.Errorf(errors.Malformed, "patch %q string argument without offsets has no name", e.Name)
			}
		}

		c.entries[e.Name] = e
		c.names = append(c.names, e.Name)
	}

	return c, nil
}

// Lookup an entry by patch name.
func (c *Catalog) Lookup(name string) (e *Entry, found bool) {
	e, found = c.entries[name]
	return
}

// Names of the patches in catalogue order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}
