// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kamek

import (
	"sync"
	"sync/atomic"

	"github.com/smgtools/kamek/errors"
	"github.com/smgtools/kamek/format"
)

var (
	initMu     sync.Mutex
	defaultLib atomic.Pointer[Library]
)

// Init the process-wide library.  Once a call has succeeded, later calls have
// no effect.  A failed call leaves the library uninitialized, so Init may be
// retried with another configuration.
func Init(config *Config) error {
	initMu.Lock()
	defer initMu.Unlock()

	if defaultLib.Load() != nil {
		return nil
	}

	lib, err := NewLibrary(config)
	if err != nil {
		return err
	}

	defaultLib.Store(lib)
	return nil
}

// CreatePatch using the process-wide library.
func CreatePatch(req *Request) (format.Output, error) {
	lib := defaultLib.Load()
	if lib == nil {
		return nil, errors.New(errors.UninitializedTable, "CreatePatch called before successful Init")
	}
	return lib.CreatePatch(req)
}
