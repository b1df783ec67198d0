// Copyright (c) 2018 Timo Savola.
// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Program kamek links patch modules for Super Mario Galaxy games.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/smgtools/kamek"
	"github.com/smgtools/kamek/disasm"
	"github.com/smgtools/kamek/dol"
	"github.com/smgtools/kamek/format"
	"github.com/smgtools/kamek/game"
	"github.com/smgtools/kamek/internal/mapfile"
	"github.com/smgtools/kamek/patch"
	"github.com/smgtools/kamek/symbols"
)

var (
	verbose = false
)

// parsePatch parses "name[=arg[,arg...]]".  An argument is an integer if it
// parses as one (with base prefix), and a string otherwise.  The prefixes
// "i:" and "s:" force the type.
func parsePatch(s string) (p kamek.Patch, err error) {
	name, args, found := strings.Cut(s, "=")
	p.ID = name
	if !found {
		return
	}

	for _, arg := range strings.Split(args, ",") {
		var a patch.Argument

		switch {
		case strings.HasPrefix(arg, "s:"):
			a = patch.String(arg[2:])

		case strings.HasPrefix(arg, "i:"):
			var n int64
			n, err = strconv.ParseInt(arg[2:], 0, 32)
			if err != nil {
				return
			}
			a = patch.Int(int32(n))

		default:
			if n, e := strconv.ParseInt(arg, 0, 32); e == nil {
				a = patch.Int(int32(n))
			} else {
				a = patch.String(arg)
			}
		}

		p.Args = append(p.Args, a)
	}

	return
}

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] patch[=arg[,arg...]]...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	var (
		root     = "."
		gameID   = "RMGE"
		typeName = format.Bin.String()
		address  = "0x80001800"
		output   = ""
		dolName  = ""
		dumpText = false
		dumpSyms = false
	)

	flag.BoolVar(&verbose, "v", verbose, "verbose logging")
	flag.StringVar(&root, "root", root, "directory containing symbol maps and patch catalogues")
	flag.StringVar(&gameID, "game", gameID, "game id such as RMGE or SB4E01")
	flag.StringVar(&typeName, "type", typeName, "output type: bin, dol, xml or ini")
	flag.StringVar(&address, "address", address, "base address of the patch")
	flag.StringVar(&output, "o", output, "output file (default stdout)")
	flag.StringVar(&dolName, "dol", dolName, "inject into this executable (implies -type=dol)")
	flag.BoolVar(&dumpText, "dumptext", dumpText, "disassemble the linked code to stderr")
	flag.BoolVar(&dumpSyms, "dumpsyms", dumpSyms, "list the game's symbols and exit")
	flag.Parse()

	if flag.NArg() == 0 && !dumpSyms {
		flag.Usage()
		os.Exit(2)
	}

	id, err := game.Parse(gameID)
	if err != nil {
		log.Fatal(err)
	}

	typ, err := format.ParseType(typeName)
	if err != nil {
		log.Fatal(err)
	}
	if dolName != "" {
		typ = format.Dol
	}

	base, err := strconv.ParseUint(address, 0, 32)
	if err != nil {
		log.Fatalf("address: %v", err)
	}

	var patches []kamek.Patch
	for _, arg := range flag.Args() {
		p, err := parsePatch(arg)
		if err != nil {
			log.Fatalf("%s: %v", arg, err)
		}
		patches = append(patches, p)
	}

	config := &kamek.Config{
		Root:  root,
		Games: []game.ID{id},
		Warn: func(msg string, args ...interface{}) {
			if verbose {
				log.Printf(msg, args...)
			}
		},
	}

	lib, err := kamek.NewLibrary(config)
	if err != nil {
		log.Fatal(err)
	}

	if dumpSyms {
		table, err := lib.Symbols(gameID)
		if err != nil {
			log.Fatal(err)
		}
		if err := writeSymbols(os.Stdout, table); err != nil {
			log.Fatal(err)
		}
		return
	}

	if verbose {
		for _, p := range patches {
			log.Printf("patch %s %v", p.ID, p.Args)
		}
	}

	req := &kamek.Request{
		Patches:     patches,
		Game:        gameID,
		Type:        typ,
		BaseAddress: uint32(base),
	}

	if dumpText {
		img, err := lib.Link(req.Game, req.Patches, req.BaseAddress)
		if err != nil {
			log.Fatal(err)
		}
		if err := disasm.Fprint(os.Stderr, img); err != nil {
			log.Fatal(err)
		}
	}

	out, err := lib.CreatePatch(req)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Release()

	if verbose {
		log.Printf("%s patch: %d", out.Type(), out.Len())
	}

	w := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		w = f
	}

	if dolName != "" {
		err = injectDol(w, dolName, req.BaseAddress, out.(*format.Binary).Bytes)
	} else {
		_, err = out.WriteTo(w)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// writeSymbols in symbol map syntax.
func writeSymbols(w io.Writer, table *symbols.Table) (err error) {
	if verbose {
		log.Printf("%s: %d symbols", table.Name(), table.Len())
	}

	table.Range(func(sym string, addr uint32) bool {
		_, err = fmt.Fprintf(w, "%s = 0x%08X\n", sym, addr)
		return err == nil
	})
	return
}

func injectDol(w *os.File, filename string, base uint32, code []byte) error {
	m, err := mapfile.Open(filename)
	if err != nil {
		return err
	}
	defer m.Close()

	f, err := dol.Parse(m.Bytes())
	if err != nil {
		return err
	}

	if err := f.Inject(base, code); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
