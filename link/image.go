// Copyright (c) 2024 The smgtools Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

// Write is a contiguous range of image bytes which the patch sets.  Alignment
// padding between segments is not written.
type Write struct {
	Offset uint32 // Relative to image base.
	Size   uint32
}

// Segment placement within an image.
type Segment struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Placement of a module within an image.
type Placement struct {
	Name     string
	Start    uint32 // Image offset of the module.
	Size     uint32 // Including internal alignment padding.
	Segments []Segment
}

// Label is an exported symbol at an absolute address.
type Label struct {
	Name string
	Addr uint32
}

// Image of linked modules, anchored at a base address.
type Image struct {
	Base    uint32
	Data    []byte
	Writes  []Write     // Ordered by offset.
	Modules []Placement // In link order.
	Labels  []Label     // Ordered by address, then name.
}

// Size of the image in bytes.
func (img *Image) Size() uint32 {
	return uint32(len(img.Data))
}

// Addr converts an image offset to an absolute address.
func (img *Image) Addr(offset uint32) uint32 {
	return img.Base + offset
}

// WriteBytes returns the bytes of a write.  The slice aliases the image.
func (img *Image) WriteBytes(w Write) []byte {
	return img.Data[w.Offset : w.Offset+w.Size]
}
