// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pan

import (
	"io"

	"github.com/smgtools/kamek/errors"
	"import.name/pan"
)

var (
	Check = pan.Check
	Panic = pan.Panic
)

// Error converts a recovered value to an error.  Panics which didn't
// originate from Check or Panic are propagated.  A truncated input is a
// malformed input.
func Error(x interface{}) error {
	err := pan.Error(x)
	if err == nil {
		return nil
	}

	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrap(errors.Malformed, io.ErrUnexpectedEOF, "truncated input")
	}

	return err
}
