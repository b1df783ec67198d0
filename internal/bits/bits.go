// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bits

import "golang.org/x/exp/constraints"

// Align rounds a up to a multiple of b, which must be a power of two.  Zero
// alignment is treated as 1.
func Align[I constraints.Integer](a, b I) I {
	if b <= 1 {
		return a
	}
	return (a + b - 1) &^ (b - 1)
}

// FitsSigned reports whether v can be represented as a two's complement
// integer of the given bit width.
func FitsSigned[I constraints.Signed](v I, width int) bool {
	lo := -(int64(1) << (width - 1))
	hi := int64(1)<<(width-1) - 1
	return int64(v) >= lo && int64(v) <= hi
}

// Pow2 reports whether v is a power of two.
func Pow2[I constraints.Unsigned](v I) bool {
	return v != 0 && v&(v-1) == 0
}
