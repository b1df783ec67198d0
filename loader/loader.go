// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loader turns patch names and arguments into patch modules.
package loader

import (
	"encoding/binary"
	"io/fs"
	"path"

	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/internal/bits"
	"github.com/smgtools/kamek/internal/mapfile"
	"github.com/smgtools/kamek/patch"
	"golang.org/x/xerrors"
)

// ObjectSuffix is appended to patch names to get object file names.
const ObjectSuffix = ".o"

// Loader of the patches of one game title.  Loading doesn't modify the Loader,
// so it can be used concurrently.
type Loader struct {
	catalog *Catalog
	source  mapfile.Source
	dir     string
}

// New loader which opens "<dir>/<name>.o" files from the source.
func New(catalog *Catalog, source mapfile.Source, dir string) *Loader {
	return &Loader{catalog, source, dir}
}

func (l *Loader) Catalog() *Catalog { return l.catalog }

// Load the named patch and substitute its parameters.  Each argument is
// matched with the parameter at the same position; missing trailing arguments
// are ArgNone.  Each call returns a new module.
func (l *Loader) Load(id string, args []patch.Argument) (*patch.Module, error) {
	entry, found := l.catalog.Lookup(id)
	if !found {
		return nil, errors.Errorf(errors.NotFound, "no such patch: %s", id)
	}

	if err := checkArgs(entry, args); err != nil {
		return nil, err
	}

	filename := path.Join(l.dir, id+ObjectSuffix)

	obj, err := l.source.Open(filename)
	if err != nil {
		if xerrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.NotFound, err, "patch "+id)
		}
		return nil, err
	}
	defer obj.Close()

	m, err := ReadObject(id, obj.Bytes())
	if err != nil {
		return nil, err
	}

	if err := applyArgs(m, entry, args); err != nil {
		return nil, err
	}

	return m, nil
}

func checkArgs(entry *Entry, args []patch.Argument) error {
	for i, p := range entry.Arguments {
		var arg patch.Argument
		if i < len(args) {
			arg = args[i]
		}

		if arg.Type() != p.ArgType() {
			return errors.Errorf(errors.ArgumentTypeMismatch, "patch %s argument %q: expected %s, got %s", entry.Name, p.Name, p.ArgType(), arg.Type())
		}
	}

	for i := len(entry.Arguments); i < len(args); i++ {
		if args[i].Type() != patch.ArgNone {
			return errors.Errorf(errors.ArgumentTypeMismatch, "patch %s takes %d arguments, got %s as argument %d", entry.Name, len(entry.Arguments), args[i].Type(), i+1)
		}
	}

	return nil
}

func applyArgs(m *patch.Module, entry *Entry, args []patch.Argument) error {
	for i := range entry.Arguments {
		p := &entry.Arguments[i]

		var arg patch.Argument
		if i < len(args) {
			arg = args[i]
		}

		var value []byte

		switch n, ok := arg.Int(); {
		case arg.Type() == patch.ArgNone:
			continue

		case ok:
			value = make([]byte, 4)
			binary.BigEndian.PutUint32(value, uint32(n))

		default:
			s, _ := arg.Str()
			value = append([]byte(s), 0)
			if p.Length > 0 && len(value) > p.Length {
				value = append(value[:p.Length-1], 0)
			}

			if len(p.Offsets) == 0 {
				appendStringSegment(m, p.Name, value)
				continue
			}
		}

		section := p.Section
		if section == "" {
			section = DefaultArgSection
		}

		seg := findSegment(m, section)
		if seg == nil {
			return errors.Errorf(errors.Malformed, "patch %s argument %q: no %s section", entry.Name, p.Name, section)
		}

		for _, offset := range p.Offsets {
			if uint64(offset)+uint64(len(value)) > uint64(len(seg.Data)) {
				return errors.Errorf(errors.Malformed, "patch %s argument %q: offset 0x%x is outside of %s section", entry.Name, p.Name, offset, section)
			}
			copy(seg.Data[offset:], value)
		}
	}

	return nil
}

func findSegment(m *patch.Module, name string) *patch.Segment {
	for i := range m.Segments {
		if m.Segments[i].Name == name {
			return &m.Segments[i]
		}
	}
	return nil
}

func appendStringSegment(m *patch.Module, name string, value []byte) {
	data := make([]byte, bits.Align(len(value), segmentPadding))
	copy(data, value)

	m.Segments = append(m.Segments, patch.Segment{
		Name:  ".kmarg." + name,
		Align: 4,
		Data:  data,
	})

	layout := m.Layout()
	m.Exports = append(m.Exports, patch.Export{
		Name:   name,
		Offset: layout[len(layout)-1],
	})
}
