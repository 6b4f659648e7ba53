package vcdiff

import (
	"io"

	"github.com/morfoh/xdelta3/src/alfa/errors"
	appendpath "github.com/morfoh/xdelta3/src/delta/append"
	"github.com/morfoh/xdelta3/src/delta/wholestate"
)

// Encoder serializes a delta/wholestate.State back into a single
// VCDIFF-subset window, the inverse of Decoder. No instruction
// coalescing is attempted: one whole-state instruction becomes exactly
// one wire record.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// EncodeWhole writes state as a single window whose copy region spans
// [0, sourceLen) of an external source, or has no copy region at all
// when sourceLen == 0 and state contains no SOURCE copies.
func (e *Encoder) EncodeWhole(state *wholestate.State, sourceLen uint64) error {
	winIndicator := winIndicatorNone
	if sourceLen > 0 {
		winIndicator = winIndicatorSource
	}

	if err := writeByte(e.w, winIndicator); err != nil {
		return err
	}

	if winIndicator != winIndicatorNone {
		if err := writeUint64(e.w, sourceLen); err != nil {
			return err
		}
		if err := writeUint64(e.w, 0); err != nil {
			return err
		}
	}

	if err := writeUint64(e.w, uint64(len(state.Inst))); err != nil {
		return err
	}

	if err := writeUint64(e.w, uint64(state.AddsLen)); err != nil {
		return err
	}

	if _, err := e.w.Write(state.Adds[:state.AddsLen]); err != nil {
		return errors.Wrap(err)
	}

	for _, inst := range state.Inst {
		hinst := appendpath.Hinst{
			Type: inst.Type,
			Size: inst.Size,
			Addr: inst.Addr,
		}

		if inst.Type == wholestate.COPY {
			switch inst.Mode {
			case wholestate.ModeSource:
				hinst.Addr = inst.Addr
			case wholestate.ModeTarget:
				hinst.Addr = sourceLen + inst.Addr
			}
		}

		if err := writeInst(e.w, hinst); err != nil {
			return err
		}
	}

	return nil
}
