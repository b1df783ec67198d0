// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package format

import (
	"io"
)

// Output is either *Binary or *Directives.
type Output interface {
	Type() Type

	// Len is the byte count of binary output, or the directive count of
	// textual output.
	Len() int

	// WriteTo writes the output in file form.
	WriteTo(w io.Writer) (int64, error)

	// Release drops the payload.  It may be called more than once.
	Release()

	output()
}

// Binary output.
type Binary struct {
	typ   Type
	Bytes []byte
}

func (b *Binary) Type() Type { return b.typ }
func (b *Binary) Len() int   { return len(b.Bytes) }
func (b *Binary) Release()   { b.Bytes = nil }
func (*Binary) output()      {}

func (b *Binary) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes)
	return int64(n), err
}

// Directive sets the bytes of one contiguous write at an absolute address.
type Directive struct {
	Addr uint32
	Data []byte
}

// Directives is textual output.  Lines[i] is the formatted Directives[i].  An
// INI line holds one Dolphin entry per naturally aligned dword, word or byte of
// the directive, separated by newlines.
type Directives struct {
	typ        Type
	Directives []Directive
	Lines      []string
}

func (d *Directives) Type() Type { return d.typ }
func (d *Directives) Len() int   { return len(d.Directives) }
func (*Directives) output()      {}

func (d *Directives) Release() {
	d.Directives = nil
	d.Lines = nil
}

// WriteTo writes the lines of every directive.
func (d *Directives) WriteTo(w io.Writer) (total int64, err error) {
	for _, line := range d.Lines {
		var n int
		n, err = io.WriteString(w, line+"\n")
		total += int64(n)
		if err != nil {
			return
		}
	}
	return
}
