// Package vcdiff implements a minimal subset of the VCDIFF window
// format (RFC 3284): enough window/instruction/address-section framing
// to decode and encode one window's worth of RUN/ADD/COPY instructions.
// Secondary compression and code tables are not implemented; every
// instruction is written as an explicit fixed-width record rather than
// packed through a code table.
package vcdiff

import (
	appendpath "github.com/morfoh/xdelta3/src/delta/append"
)

const (
	winIndicatorNone   byte = 0
	winIndicatorSource byte = 1
	winIndicatorTarget byte = 2
)

// instRecordSize is the on-wire size of one fixed-width instruction
// record: type (1 byte) + size (8 bytes) + addr (8 bytes).
const instRecordSize = 1 + 8 + 8

// Window is one decoded VCDIFF window: its copy-region metadata, its
// instruction list, and the literal byte pool the instructions index
// into via a LiteralCursor.
type Window struct {
	Meta  appendpath.WindowMeta
	Insts []appendpath.Hinst
	Data  []byte
}

// Cursor returns a LiteralCursor draining w's data section in order,
// for handing to delta/append.AppendWindow.
func (w Window) Cursor() appendpath.LiteralCursor {
	return &dataCursor{data: w.Data}
}

type dataCursor struct {
	data []byte
	pos  int
}

func (c *dataCursor) Next(n int) []byte {
	b := c.data[c.pos : c.pos+n]
	c.pos += n

	return b
}
