package merge

import (
	"github.com/morfoh/xdelta3/src/_/interfaces"
	"github.com/morfoh/xdelta3/src/alfa/pool"
	"github.com/morfoh/xdelta3/src/delta/wholestate"
)

// Stream holds one consumer's in-progress whole-state, the same role
// xd3_stream.whole_target plays around xd3_merge_input_output in
// xdelta3.
type Stream struct {
	Whole *wholestate.State
}

// TempPool reuses *wholestate.State buffers across successive
// MergeInPlace calls instead of allocating a fresh temporary each time.
// Grounded on alfa/pool.MakeWithResetable, since wholestate.State.Reset
// satisfies interfaces.Resetable.
var TempPool = pool.MakeWithResetable[wholestate.State, *wholestate.State]()

var _ interfaces.PoolPtr[wholestate.State, *wholestate.State] = TempPool

// MergeInPlace merges sourceA into stream's current whole-state
// (treated as B), then swaps the result into stream in place. This
// preserves pointer stability for the caller: stream.Whole keeps its
// identity even though its contents are replaced wholesale.
func MergeInPlace(sourceA *wholestate.State, stream *Stream) error {
	tmp, repool := TempPool.GetWithRepool()
	defer repool()

	tmp.Reset()

	merged, err := mergeInto(tmp, sourceA, stream.Whole)
	if err != nil {
		return err
	}

	stream.Whole.Swap(merged)

	return nil
}

// mergeInto runs Merge but writes output into a caller-supplied,
// already-allocated destination (tmp) instead of allocating a fresh
// wholestate.New(), so TempPool's buffer capacity is actually reused
// across calls.
func mergeInto(dst *wholestate.State, sourceA, inputB *wholestate.State) (*wholestate.State, error) {
	for _, iinst := range inputB.Inst {
		var err error

		switch iinst.Type {
		case wholestate.RUN:
			err = mergeRun(dst, inputB, iinst)
		case wholestate.ADD:
			err = mergeAdd(dst, inputB, iinst)
		case wholestate.COPY:
			if iinst.Mode == wholestate.ModeNone || iinst.Mode == wholestate.ModeTarget {
				err = mergeTargetCopy(dst, iinst)
			} else {
				err = mergeSourceCopy(dst, sourceA, iinst)
			}
		}

		if err != nil {
			return dst, err
		}
	}

	return dst, nil
}
