// Copyright (c) 2018 Timo Savola.
// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fuzzutil

import (
	"io"

	"github.com/smgtools/kamek/binding"
	"github.com/smgtools/kamek/format"
	"github.com/smgtools/kamek/game"
	"github.com/smgtools/kamek/link"
	"github.com/smgtools/kamek/loader"
	"github.com/smgtools/kamek/patch"
	"github.com/smgtools/kamek/symbols"
	"golang.org/x/xerrors"
)

const Base = 0x80001800

var builtin = symbols.NewTable("fuzz", map[string]uint32{
	"OSReport": 0x8024a5c0,
	"memcpy":   0x80004000,
})

// Run an object file through the whole pipeline.
func Run(data []byte) error {
	m, err := loader.ReadObject("fuzz", data)
	if err != nil {
		return err
	}

	mods := []*patch.Module{m}

	resolved, err := binding.Resolve(mods, builtin)
	if err != nil {
		return err
	}

	img, err := link.Relocate(mods, resolved, Base)
	if err != nil {
		return err
	}

	for _, t := range format.Types() {
		out, err := format.Serialize(img, t, game.RMGE.Layout())
		if err != nil {
			return err
		}
		out.Release()
	}

	return nil
}

// Result converts an error to a go-fuzz return value.  Unexpected errors are
// not ok.
func Result(err error) (result int, ok bool) {
	var epatch interface{ PatchError() string }

	switch {
	case err == nil:
		result = 1
		ok = true

	case err == io.EOF, xerrors.Is(err, io.ErrUnexpectedEOF), xerrors.As(err, &epatch):
		result = 0
		ok = true
	}

	return
}
