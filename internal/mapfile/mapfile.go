// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mapfile provides read-only access to input files.  On Unix systems
// the files are memory-mapped.
package mapfile

import (
	"io/fs"
	"path/filepath"
)

// Mapping of a file's contents.  Bytes must not be modified, and must not be
// used after Close.
type Mapping struct {
	data  []byte
	unmap func([]byte) error
}

func (m *Mapping) Bytes() []byte { return m.data }
func (m *Mapping) Len() int      { return len(m.data) }

// Close releases the mapping.  It may be called more than once.
func (m *Mapping) Close() (err error) {
	if m.unmap != nil {
		err = m.unmap(m.data)
		m.unmap = nil
	}
	m.data = nil
	return
}

// Source of named input files.  A missing file is reported with an error
// matching fs.ErrNotExist.
type Source interface {
	Open(name string) (*Mapping, error)
}

// Dir is a Source rooted at a filesystem directory.  Names are slash-separated.
type Dir string

func (d Dir) Open(name string) (*Mapping, error) {
	return Open(filepath.Join(string(d), filepath.FromSlash(name)))
}

// FS is a Source backed by an fs.FS.  File contents are copied to memory.
type FS struct {
	FS fs.FS
}

func (s FS) Open(name string) (*Mapping, error) {
	data, err := fs.ReadFile(s.FS, name)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}
