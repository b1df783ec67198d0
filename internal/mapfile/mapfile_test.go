// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mapfile

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"golang.org/x/xerrors"
)

func TestDir(t *testing.T) {
	dir := t.TempDir()
	content := []byte("RMGE01 = 0x80001800\n")

	if err := os.WriteFile(filepath.Join(dir, "test.map"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "empty"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Dir(dir).Open("test.map")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(m.Bytes(), content) {
		t.Errorf("content: %q", m.Bytes())
	}
	if err := m.Close(); err != nil {
		t.Error(err)
	}
	if err := m.Close(); err != nil {
		t.Error("second close:", err)
	}
	if m.Len() != 0 {
		t.Error("closed mapping has data")
	}

	m, err = Dir(dir).Open("empty")
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Error(m.Len())
	}
	m.Close()

	if _, err := Dir(dir).Open("missing"); !xerrors.Is(err, fs.ErrNotExist) {
		t.Error(err)
	}
}

func TestFS(t *testing.T) {
	src := FS{fstest.MapFS{
		"a/b.o": &fstest.MapFile{Data: []byte{1, 2, 3}},
	}}

	m, err := src.Open("a/b.o")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if !bytes.Equal(m.Bytes(), []byte{1, 2, 3}) {
		t.Error(m.Bytes())
	}

	if _, err := src.Open("a/c.o"); !xerrors.Is(err, fs.ErrNotExist) {
		t.Error(err)
	}
}
