// Package merge implements the delta-merge engine: it consumes a
// target-relative delta B's whole-state and a source-relative delta
// A's whole-state and produces a single equivalent whole-state C,
// resolving every one of B's SOURCE copies against A without ever
// materializing the intermediate version A maps into.
//
// This is a close structural translation of xd3_merge_inputs and its
// helpers in xdelta3: the split loop, half-open binary search, and
// TARGET-mode passthrough all mirror that algorithm directly.
package merge

import (
	"github.com/morfoh/xdelta3/src/alfa/errors"
	"github.com/morfoh/xdelta3/src/delta/wholestate"
)

// Merge produces C = B resolved against A: for any V0 such that applying
// sourceA to V0 yields V1, applying the result to V0 yields the same
// bytes as applying inputB to V1.
//
// Preconditions: every COPY in inputB with Mode == ModeSource must have
// Addr+Size <= sourceA.Length; violating this returns ErrInvalidInput.
// A broken tiling invariant in sourceA surfaces as ErrInternal.
//
// TARGET-mode and mode-0 copies reference C's own output, which is
// built in the same order as B's, so they pass through unchanged.
// xdelta3 itself marks this path only lightly exercised; this package
// pins the inherited behavior down with a dedicated test.
func Merge(sourceA, inputB *wholestate.State) (*wholestate.State, error) {
	return mergeInto(wholestate.New(), sourceA, inputB)
}

func mergeRun(out *wholestate.State, b *wholestate.State, iinst wholestate.Instruction) error {
	idx := out.AllocateInstruction()

	offset := out.AppendLiterals(b.Adds[iinst.Addr : iinst.Addr+1])

	out.Inst[idx] = wholestate.Instruction{
		Type:     wholestate.RUN,
		Mode:     iinst.Mode,
		Size:     iinst.Size,
		Position: out.Length,
		Addr:     uint64(offset),
	}
	out.Length += iinst.Size

	return nil
}

func mergeAdd(out *wholestate.State, b *wholestate.State, iinst wholestate.Instruction) error {
	idx := out.AllocateInstruction()

	offset := out.AppendLiterals(b.Adds[iinst.Addr : iinst.Addr+iinst.Size])

	out.Inst[idx] = wholestate.Instruction{
		Type:     wholestate.ADD,
		Mode:     iinst.Mode,
		Size:     iinst.Size,
		Position: out.Length,
		Addr:     uint64(offset),
	}
	out.Length += iinst.Size

	return nil
}

func mergeTargetCopy(out *wholestate.State, iinst wholestate.Instruction) error {
	idx := out.AllocateInstruction()

	m := iinst
	m.Position = out.Length
	out.Inst[idx] = m
	out.Length += iinst.Size

	return nil
}

func mergeSourceCopy(out *wholestate.State, sourceA *wholestate.State, iinst wholestate.Instruction) error {
	if iinst.Addr+iinst.Size > sourceA.Length {
		return errors.Wrapf(errors.ErrInvalidInput, "Invalid copy offset in merge")
	}

	startIdx, err := FindPosition(sourceA, iinst.Addr)
	if err != nil {
		return err
	}

	remaining := iinst.Size
	curAddr := iinst.Addr
	curOutPos := iinst.Position
	ai := startIdx

	for remaining > 0 {
		if ai >= len(sourceA.Inst) {
			return errors.Wrapf(errors.ErrInternal, "Internal error in merge")
		}

		ainst := sourceA.Inst[ai]

		if curAddr < ainst.Position {
			return errors.Wrapf(errors.ErrInternal, "Internal error in merge")
		}

		off := curAddr - ainst.Position
		if off >= ainst.Size {
			return errors.Wrapf(errors.ErrInternal, "Internal error in merge")
		}

		avail := ainst.Size - off
		take := remaining
		if avail < take {
			take = avail
		}

		idx := out.AllocateInstruction()

		m := wholestate.Instruction{
			Size:     take,
			Position: curOutPos,
		}

		switch ainst.Type {
		case wholestate.RUN:
			offset := out.AppendLiterals(sourceA.Adds[ainst.Addr : ainst.Addr+1])
			m.Type = wholestate.RUN
			m.Mode = wholestate.ModeNone
			m.Addr = uint64(offset)

		case wholestate.ADD:
			offset := out.AppendLiterals(sourceA.Adds[ainst.Addr+off : ainst.Addr+off+take])
			m.Type = wholestate.ADD
			m.Mode = wholestate.ModeNone
			m.Addr = uint64(offset)

		case wholestate.COPY:
			// A's source-reference frame is passed through unchanged.
			// If ainst.Mode == ModeTarget this does NOT recursively
			// resolve further, matching xd3_merge_source_copy.
			m.Type = wholestate.COPY
			m.Mode = wholestate.ModeSource
			m.Addr = ainst.Addr + off
		}

		out.Inst[idx] = m
		out.Length += take

		curOutPos += take
		curAddr += take
		remaining -= take
		ai++
	}

	return nil
}

// FindPosition returns the unique index i such that
// inst[i].Position <= a < inst[i].Position+inst[i].Size, using a
// half-open binary search over source's tiling.
//
// Returns ErrInvalidInput if a >= source.Length ("Invalid copy offset in
// merge"), and ErrInternal ("Internal error in merge") if the search
// exits without locating an interval — which can only happen if
// source's tiling invariant is broken.
func FindPosition(source *wholestate.State, a uint64) (int, error) {
	if a >= source.Length {
		return 0, errors.Wrapf(errors.ErrInvalidInput, "Invalid copy offset in merge")
	}

	low, high := 0, len(source.Inst)

	for low != high {
		mid := low + (high-low)/2
		midLow := source.Inst[mid].Position

		if a < midLow {
			high = mid
			continue
		}

		midHigh := midLow + source.Inst[mid].Size

		if a >= midHigh {
			low = mid + 1
			continue
		}

		return mid, nil
	}

	return 0, errors.Wrapf(errors.ErrInternal, "Internal error in merge")
}
