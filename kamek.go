// Copyright (c) 2018 Timo Savola.
// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package kamek links Super Mario Galaxy patch modules into deployable patches.

A patch is created from a list of precompiled patch modules and their
arguments.  The modules are loaded, their symbol references are resolved
against each other and the game's symbol map, and the linked image is encoded
as raw bytes, as a checked executable patch, or as Riivolution or Dolphin
memory directives.

See the Library.Link method's source code for an example of how to use the
lower-level APIs.

# Errors

Errors caused by the request or the input files implement the PatchError
method; their kind is accessible via the errors subpackage.  Other errors are
read errors which are passed through as is.
*/
package kamek

import (
	"github.com/smgtools/kamek/binding"
	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/format"
	"github.com/smgtools/kamek/game"
	"github.com/smgtools/kamek/internal/mapfile"
	"github.com/smgtools/kamek/link"
	"github.com/smgtools/kamek/loader"
	"github.com/smgtools/kamek/patch"
	"github.com/smgtools/kamek/symbols"
)

// CatalogName is the patch catalogue file of a game title.
func CatalogName(t game.Title) string {
	return t.String() + "-patches.json"
}

// ObjectDir contains the patch object files of a game title.
func ObjectDir(t game.Title) string {
	return t.String() + "-patches"
}

// Config for a library.  Zero values are replaced with effective defaults.
type Config struct {
	Root   string                                   // Defaults to current directory.
	Source mapfile.Source                           // Defaults to Root directory.
	Games  []game.ID                                // Defaults to all games.
	Warn   func(format string, args ...interface{}) // Non-fatal input problems.
}

// Library holds the symbol maps and patch catalogues.  It is immutable and
// can be used concurrently.
type Library struct {
	symbols *symbols.Set
	loaders map[game.Title]*loader.Loader
}

// NewLibrary loads the symbol maps of the configured games and the patch
// catalogues of their titles.  A missing file is an error.
func NewLibrary(config *Config) (*Library, error) {
	if config == nil {
		config = new(Config)
	}

	source := config.Source
	if source == nil {
		root := config.Root
		if root == "" {
			root = "."
		}
		source = mapfile.Dir(root)
	}

	ids := config.Games
	if len(ids) == 0 {
		ids = game.All()
	}

	for _, id := range ids {
		if !id.Valid() {
			return nil, errors.Errorf(errors.UnknownGame, "invalid game id: %d", int(id))
		}
	}

	set, err := symbols.LoadSet(source, ids, config.Warn)
	if err != nil {
		return nil, err
	}

	lib := &Library{
		symbols: set,
		loaders: make(map[game.Title]*loader.Loader),
	}

	for _, id := range ids {
		title := id.Title()
		if lib.loaders[title] != nil {
			continue
		}

		catalog, err := loadCatalog(source, CatalogName(title))
		if err != nil {
			return nil, err
		}

		lib.loaders[title] = loader.New(catalog, source, ObjectDir(title))
	}

	return lib, nil
}

func loadCatalog(source mapfile.Source, name string) (*loader.Catalog, error) {
	m, err := source.Open(name)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	catalog, err := loader.ParseCatalog(m.Bytes())
	if err != nil {
		return nil, errors.Wrap(errors.KindOf(err), err, name)
	}
	return catalog, nil
}

// Catalog of patches available for a game.
func (lib *Library) Catalog(gameID string) (*loader.Catalog, error) {
	id, err := game.Parse(gameID)
	if err != nil {
		return nil, err
	}

	l := lib.loaders[id.Title()]
	if l == nil {
		return nil, errors.Errorf(errors.UnknownGame, "game %s is not configured", id)
	}
	return l.Catalog(), nil
}

// Symbols of a game's executable.
func (lib *Library) Symbols(gameID string) (*symbols.Table, error) {
	id, err := game.Parse(gameID)
	if err != nil {
		return nil, err
	}
	return lib.symbols.Table(id)
}

// Patch is a patch name and its arguments.
type Patch struct {
	ID   string
	Args []patch.Argument
}

// Request for a patch.
type Request struct {
	Patches     []Patch
	Game        string // Such as "RMGE" or "SB4E01".
	Type        format.Type
	BaseAddress uint32
}

// Link the patches for a game at a base address.  The game is checked before
// any patch is loaded.
func (lib *Library) Link(gameID string, patches []Patch, base uint32) (*link.Image, error) {
	img, _, err := lib.link(gameID, patches, base)
	return img, err
}

func (lib *Library) link(gameID string, patches []Patch, base uint32) (*link.Image, game.ID, error) {
	id, err := game.Parse(gameID)
	if err != nil {
		return nil, id, err
	}

	builtin, err := lib.symbols.Table(id)
	if err != nil {
		return nil, id, err
	}

	l := lib.loaders[id.Title()]
	if l == nil {
		return nil, id, errors.Errorf(errors.UnknownGame, "game %s is not configured", id)
	}

	mods := make([]*patch.Module, 0, len(patches))

	for _, p := range patches {
		m, err := l.Load(p.ID, p.Args)
		if err != nil {
			return nil, id, err
		}

		mods = append(mods, m)
	}

	resolved, err := binding.Resolve(mods, builtin)
	if err != nil {
		return nil, id, err
	}

	img, err := link.Relocate(mods, resolved, base)
	return img, id, err
}

// CreatePatch links and serializes the requested patches.  A successful
// result may be empty.
func (lib *Library) CreatePatch(req *Request) (format.Output, error) {
	if req == nil {
		return nil, errors.New(errors.Malformed, "nil patch request")
	}
	if !req.Type.Valid() {
		return nil, errors.Errorf(errors.Malformed, "invalid patch type: %d", int(req.Type))
	}

	img, id, err := lib.link(req.Game, req.Patches, req.BaseAddress)
	if err != nil {
		return nil, err
	}

	return format.Serialize(img, req.Type, id.Layout())
}
