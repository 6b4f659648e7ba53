// Package appendpath implements the instruction-append path: it consumes a
// decoder's per-window instructions and migrates them into a
// delta/wholestate.State, rewriting COPY addresses into an absolute
// reference frame as it goes.
package appendpath

import (
	"github.com/morfoh/xdelta3/src/delta/wholestate"
)

// Hinst is one decoder-emitted, window-local instruction.
type Hinst struct {
	Type wholestate.InstType
	Size uint64
	Addr uint64 // window-local; meaningless for RUN/ADD
}

// WindowMeta describes the window the decoder is currently emitting
// instructions for.
type WindowMeta struct {
	// CopyLen is the length of this window's source-copy region
	// (dec_cpylen in xdelta3).
	CopyLen uint64
	// CopyOffset is the base offset of the source-copy region
	// (dec_cpyoff in xdelta3).
	CopyOffset uint64
	// SourceIsTarget is true when this window's copy region is sourced
	// from prior output (VCD_TARGET) rather than the external source
	// (VCD_SOURCE); derived from dec_win_ind.
	SourceIsTarget bool
	// TotalOut is the cumulative output length produced by this decode
	// so far, not counting the instruction currently being appended.
	TotalOut uint64
}

// LiteralCursor hands out literal bytes in the order the decoder's
// data section holds them, one RUN byte or one ADD run at a time.
type LiteralCursor interface {
	// Next returns the next n literal bytes and advances the cursor.
	Next(n int) []byte
}

// AppendInstruction converts one decoded, non-NOOP instruction into a
// whole-instruction appended to s.
func AppendInstruction(
	s *wholestate.State,
	meta WindowMeta,
	inst Hinst,
	literals LiteralCursor,
) {
	idx := s.AllocateInstruction()

	size := inst.Size
	position := s.Length
	s.Length += size

	winst := wholestate.Instruction{
		Type:     inst.Type,
		Size:     size,
		Position: position,
	}

	switch inst.Type {
	case wholestate.RUN:
		b := literals.Next(1)
		offset := s.AppendLiterals(b)
		winst.Addr = uint64(offset)

	case wholestate.ADD:
		b := literals.Next(int(size))
		offset := s.AppendLiterals(b)
		winst.Addr = uint64(offset)

	case wholestate.COPY:
		if inst.Addr < meta.CopyLen {
			if meta.SourceIsTarget {
				winst.Mode = wholestate.ModeTarget
			} else {
				winst.Mode = wholestate.ModeSource
			}

			winst.Addr = meta.CopyOffset + inst.Addr
		} else {
			winst.Mode = wholestate.ModeTarget
			winst.Addr = meta.TotalOut + inst.Addr - meta.CopyLen
		}
	}

	s.Inst[idx] = winst
}

// AppendWindow appends every non-NOOP instruction in insts, in order,
// exactly as xd3_whole_append_window drains one window's instruction
// section.
func AppendWindow(
	s *wholestate.State,
	meta WindowMeta,
	insts []Hinst,
	literals LiteralCursor,
) {
	for _, inst := range insts {
		if inst.Type == wholestate.NOOP {
			continue
		}

		AppendInstruction(s, meta, inst, literals)
	}
}
