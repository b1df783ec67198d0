// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dol

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/smgtools/kamek/errors"
	"golang.org/x/xerrors"
)

func fill(n int, value byte) []byte {
	return bytes.Repeat([]byte{value}, n)
}

func testFile() *File {
	return &File{
		Text:    []Section{{0x80004000, fill(0x44, 0x60)}},
		Data:    []Section{{0x80100000, fill(0x20, 0xd0)}, {0x80100020, fill(0x10, 0xd1)}},
		BSSAddr: 0x80100040,
		BSSSize: 0x1000,
		Entry:   0x80004000,
	}
}

func TestRoundTrip(t *testing.T) {
	f := testFile()
	data := f.Bytes()

	if n := binary.BigEndian.Uint32(data[0x00:]); n != HeaderSize {
		t.Errorf("text offset: 0x%x", n)
	}
	if n := binary.BigEndian.Uint32(data[0x1c:]); n != HeaderSize+0x60 {
		t.Errorf("data offset: 0x%x", n)
	}
	if n := binary.BigEndian.Uint32(data[0xe0:]); n != 0x80004000 {
		t.Errorf("entry: 0x%x", n)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(parsed, f) {
		t.Error(parsed)
	}

	var buf bytes.Buffer
	if _, err := parsed.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Error("re-encoding differs")
	}
}

func TestInject(t *testing.T) {
	f := testFile()

	if err := f.Inject(0x80001800, []byte{0xaa, 0xbb, 0xcc, 0xdd}); err != nil {
		t.Fatal(err)
	}

	parsed, err := Parse(f.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(parsed.Text) != 2 || !reflect.DeepEqual(parsed.Text[1], Section{0x80001800, []byte{0xaa, 0xbb, 0xcc, 0xdd}}) {
		t.Error(parsed.Text)
	}

	l := parsed.Regions()
	if len(l) != 5 || l[0].Start != 0x80001800 || l[0].End != 0x80001804 || l[4].Name != ".bss" {
		t.Error(l)
	}

	if r, ok := l.Contains(0x80100000, 0x20); !ok || r.Name != ".data0" {
		t.Error(r, ok)
	}
}

func TestInjectErrors(t *testing.T) {
	f := testFile()

	if err := f.Inject(0x80004040, make([]byte, 8)); !xerrors.Is(err, errors.ErrInvalidLoadAddress) {
		t.Error(err)
	}
	if err := f.Inject(0xfffffffc, make([]byte, 8)); !xerrors.Is(err, errors.ErrInvalidLoadAddress) {
		t.Error(err)
	}
	if err := f.Inject(0x80100040, make([]byte, 8)); err != nil {
		t.Errorf("overlapping BSS: %v", err)
	}

	f = &File{}
	for i := 0; i < NumText+NumData; i++ {
		if err := f.Inject(0x80001800+uint32(i)*0x100, make([]byte, 4)); err != nil {
			t.Fatal(i, err)
		}
	}
	if len(f.Text) != NumText || len(f.Data) != NumData {
		t.Error(len(f.Text), len(f.Data))
	}
	if err := f.Inject(0x80003000, make([]byte, 4)); !xerrors.Is(err, errors.ErrMalformed) {
		t.Error(err)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(make([]byte, 0x80)); !xerrors.Is(err, errors.ErrMalformed) {
		t.Error(err)
	}

	data := testFile().Bytes()
	if _, err := Parse(data[:len(data)-1]); !xerrors.Is(err, errors.ErrMalformed) {
		t.Error(err)
	}
}
