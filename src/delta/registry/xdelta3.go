package registry

import (
	"io"

	"github.com/morfoh/xdelta3/src/alfa/errors"
	"github.com/morfoh/xdelta3/src/bravo/vcdiff"
	appendpath "github.com/morfoh/xdelta3/src/delta/append"
	"github.com/morfoh/xdelta3/src/delta/wholestate"
)

func init() {
	Register(&Xdelta3{})
}

// Xdelta3 implements DeltaAlgorithm on top of bravo/vcdiff,
// delta/append and delta/wholestate: Compute emits a common-prefix /
// differing-middle / common-suffix delta (no attempt at the
// block-matching xdelta3 itself uses, which is out of this package's
// scope); Apply is a full VCDIFF-subset decode, exercising the same
// append path chained deltas go through before merge.
type Xdelta3 struct{}

var _ DeltaAlgorithm = &Xdelta3{}

func (x *Xdelta3) Id() byte {
	return AlgorithmByteXdelta3
}

func (x *Xdelta3) Name() string {
	return "xdelta3"
}

func (x *Xdelta3) Compute(base, target io.Reader, delta io.Writer) error {
	baseData, err := io.ReadAll(base)
	if err != nil {
		return errors.Wrap(err)
	}

	targetData, err := io.ReadAll(target)
	if err != nil {
		return errors.Wrap(err)
	}

	state := buildPrefixSuffixDelta(baseData, targetData)

	enc := vcdiff.NewEncoder(delta)

	return enc.EncodeWhole(state, uint64(len(baseData)))
}

// buildPrefixSuffixDelta produces the simplest possible valid
// whole-state delta: a SOURCE copy of base's common prefix with
// target, a literal ADD of whatever differs in the middle, and a
// SOURCE copy of the common suffix.
func buildPrefixSuffixDelta(base, target []byte) *wholestate.State {
	prefix := commonPrefixLen(base, target)

	maxSuffix := len(target) - prefix
	if baseRemaining := len(base) - prefix; baseRemaining < maxSuffix {
		maxSuffix = baseRemaining
	}
	suffix := commonSuffixLen(base[prefix:], target[prefix:], maxSuffix)

	s := wholestate.New()

	if prefix > 0 {
		idx := s.AllocateInstruction()
		s.Inst[idx] = wholestate.Instruction{
			Type:     wholestate.COPY,
			Mode:     wholestate.ModeSource,
			Size:     uint64(prefix),
			Position: s.Length,
			Addr:     0,
		}
		s.Length += uint64(prefix)
	}

	middle := target[prefix : len(target)-suffix]
	if len(middle) > 0 {
		idx := s.AllocateInstruction()
		offset := s.AppendLiterals(middle)
		s.Inst[idx] = wholestate.Instruction{
			Type:     wholestate.ADD,
			Size:     uint64(len(middle)),
			Position: s.Length,
			Addr:     uint64(offset),
		}
		s.Length += uint64(len(middle))
	}

	if suffix > 0 {
		idx := s.AllocateInstruction()
		s.Inst[idx] = wholestate.Instruction{
			Type:     wholestate.COPY,
			Mode:     wholestate.ModeSource,
			Size:     uint64(suffix),
			Position: s.Length,
			Addr:     uint64(len(base) - suffix),
		}
		s.Length += uint64(suffix)
	}

	return s
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	i := 0
	for i < n && a[i] == b[i] {
		i++
	}

	return i
}

func commonSuffixLen(a, b []byte, max int) int {
	i := 0
	for i < max && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}

	return i
}

func (x *Xdelta3) Apply(base, delta io.Reader, target io.Writer) error {
	baseData, err := io.ReadAll(base)
	if err != nil {
		return errors.Wrap(err)
	}

	dec := vcdiff.NewDecoder(delta)

	win, err := dec.Next()
	if err != nil {
		return errors.Wrap(err)
	}

	s := wholestate.New()
	appendpath.AppendWindow(s, win.Meta, win.Insts, win.Cursor())

	out := make([]byte, s.Length)

	for _, inst := range s.Inst {
		switch inst.Type {
		case wholestate.RUN:
			b := s.Adds[inst.Addr]
			for i := uint64(0); i < inst.Size; i++ {
				out[inst.Position+i] = b
			}
		case wholestate.ADD:
			copy(out[inst.Position:inst.Position+inst.Size], s.Adds[inst.Addr:inst.Addr+inst.Size])
		case wholestate.COPY:
			switch inst.Mode {
			case wholestate.ModeSource:
				if inst.Addr+inst.Size > uint64(len(baseData)) {
					return errors.Wrapf(errors.ErrInvalidInput, "source copy out of range")
				}
				copy(out[inst.Position:inst.Position+inst.Size], baseData[inst.Addr:inst.Addr+inst.Size])
			case wholestate.ModeTarget:
				copy(out[inst.Position:inst.Position+inst.Size], out[inst.Addr:inst.Addr+inst.Size])
			}
		}
	}

	if _, err := target.Write(out); err != nil {
		return errors.Wrap(err)
	}

	return nil
}
