// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package patch

import (
	"fmt"
	"strconv"
)

// ArgType is the tag of an Argument.
type ArgType int

const (
	ArgNone ArgType = iota
	ArgString
	ArgInt
)

func (t ArgType) String() string {
	switch t {
	case ArgNone:
		return "none"

	case ArgString:
		return "string"

	case ArgInt:
		return "int"

	default:
		return strconv.Itoa(int(t))
	}
}

// ParseArgType accepts the names returned by ArgType.String.
func ParseArgType(s string) (ArgType, bool) {
	switch s {
	case "string":
		return ArgString, true

	case "int":
		return ArgInt, true

	case "none", "":
		return ArgNone, true

	default:
		return 0, false
	}
}

// Argument is a tagged value passed to a patch parameter.  The zero value has
// type ArgNone.  The payload can only be read through the accessor matching
// the tag.
type Argument struct {
	typ ArgType
	str string
	num int32
}

// String argument.
func String(s string) Argument { return Argument{typ: ArgString, str: s} }

// Int argument.
func Int(n int32) Argument { return Argument{typ: ArgInt, num: n} }

func (a Argument) Type() ArgType { return a.typ }

// Str returns the payload of a string argument.
func (a Argument) Str() (s string, ok bool) {
	if a.typ == ArgString {
		s, ok = a.str, true
	}
	return
}

// Int returns the payload of an integer argument.
func (a Argument) Int() (n int32, ok bool) {
	if a.typ == ArgInt {
		n, ok = a.num, true
	}
	return
}

func (a Argument) String() string {
	switch a.typ {
	case ArgString:
		return strconv.Quote(a.str)

	case ArgInt:
		return fmt.Sprintf("%d", a.num)

	default:
		return "none"
	}
}
