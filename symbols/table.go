// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package symbols contains the built-in symbol tables of game executables.
package symbols

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"sort"
	"strconv"

	"github.com/smgtools/kamek/errors"
)

// Table maps symbol names to absolute addresses.  It is immutable and safe for
// concurrent use.
type Table struct {
	name  string
	addrs map[string]uint32
}

// NewTable copies the mapping.
func NewTable(name string, addrs map[string]uint32) *Table {
	t := &Table{
		name:  name,
		addrs: make(map[string]uint32, len(addrs)),
	}
	for sym, addr := range addrs {
		t.addrs[sym] = addr
	}
	return t
}

func (t *Table) Name() string { return t.name }
func (t *Table) Len() int     { return len(t.addrs) }

// Lookup doesn't allocate.  A nil table is empty.
func (t *Table) Lookup(sym string) (addr uint32, found bool) {
	if t == nil {
		return
	}
	addr, found = t.addrs[sym]
	return
}

// Range calls f for each symbol in name order until f returns false.
func (t *Table) Range(f func(sym string, addr uint32) bool) {
	names := make([]string, 0, len(t.addrs))
	for sym := range t.addrs {
		names = append(names, sym)
	}
	sort.Strings(names)

	for _, sym := range names {
		if !f(sym, t.addrs[sym]) {
			return
		}
	}
}

var (
	blankLine      = regexp.MustCompile(`^\s*$`)
	commentLine    = regexp.MustCompile(`^\s*#`)
	assignmentLine = regexp.MustCompile(`^\s*([^\s=#]+)\s*=\s*0x([0-9A-Fa-f]+)\s*(?:#.*)?$`)
)

// ParseMap reads a symbol map consisting of "name = 0xaddress" lines.  Blank
// lines and lines starting with # are ignored; a # after the address starts a
// comment.  Unrecognized lines are passed to warn (if not nil) and skipped.
// Later assignments override earlier ones.
func ParseMap(r io.Reader, name string, warn func(format string, args ...interface{})) (*Table, error) {
	t := &Table{
		name:  name,
		addrs: make(map[string]uint32),
	}

	s := bufio.NewScanner(r)
	s.Buffer(nil, 1024*1024)

	for lineNum := 1; s.Scan(); lineNum++ {
		line := bytes.TrimSuffix(s.Bytes(), []byte{'\r'})

		if blankLine.Match(line) || commentLine.Match(line) {
			continue
		}

		m := assignmentLine.FindSubmatch(line)
		if m == nil {
			if warn != nil {
				warn("unrecognised line in %s: %s", name, line)
			}
			continue
		}

		addr, err := strconv.ParseUint(string(m[2]), 16, 32)
		if err != nil {
			return nil, errors.Wrap(errors.Malformed, err, name+":"+strconv.Itoa(lineNum))
		}

		t.addrs[string(m[1])] = uint32(addr)
	}

	if err := s.Err(); err != nil {
		return nil, err
	}

	return t, nil
}
