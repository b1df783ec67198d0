// Copyright (c) 2018 Timo Savola.
// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kamek

import (
	"os"
	"path"
	"strings"
	"testing"

	"github.com/smgtools/kamek/internal/test/fuzzutil"
)

const (
	fuzzInputDir = "testdata/fuzz/crashers"
)

func TestFuzz(t *testing.T) {
	entries, err := os.ReadDir(fuzzInputDir)
	if err != nil {
		if os.IsNotExist(err) {
			t.Log(err)
			return
		}
		t.Fatal(err)
	}

	for _, entry := range entries {
		if !strings.Contains(entry.Name(), ".") {
			testFuzz(t, path.Join(fuzzInputDir, entry.Name()))
		}
	}
}

func testFuzz(t *testing.T, filename string) {
	t.Log(filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Errorf("%s: %v", filename, err)
		return
	}

	err = fuzzutil.Run(data)
	if _, ok := fuzzutil.Result(err); !ok {
		t.Errorf("%s: %v", filename, err)
	} else if err != nil {
		t.Log(err)
	}
}

func TestFuzzSeeds(t *testing.T) {
	for i, data := range [][]byte{helloObject(), reportObject(), lonelyObject(), helloObject()[:100]} {
		if _, ok := fuzzutil.Result(fuzzutil.Run(data)); !ok {
			t.Error(i)
		}
	}
}
