// Copyright (c) 2016 Timo Savola.
// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build gofuzz

package kamek

import (
	"github.com/smgtools/kamek/internal/test/fuzzutil"
)

func Fuzz(data []byte) int {
	err := fuzzutil.Run(data)
	result, ok := fuzzutil.Result(err)
	if !ok {
		panic(err)
	}
	return result
}
