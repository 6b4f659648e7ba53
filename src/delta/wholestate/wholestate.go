// Package wholestate implements the whole-target representation of one
// fully decoded delta: a length, an instruction list tiling [0, length),
// and a packed literal-byte pool. Corresponds to xd3_whole_state in
// xdelta3.
package wholestate

import (
	"github.com/morfoh/xdelta3/src/alfa/errors"
)

// Granule is the fixed allocation block size buffers round up to.
// Mirrors XD3_ALLOCSIZE in xdelta3.
const Granule = 4096

// InstType is the closed set of whole-instruction kinds. NOOP exists
// only at decode time (bravo/vcdiff) and never enters a State.
type InstType byte

const (
	NOOP InstType = iota
	RUN
	ADD
	COPY
)

func (t InstType) String() string {
	switch t {
	case RUN:
		return "RUN"
	case ADD:
		return "ADD"
	case COPY:
		return "COPY"
	default:
		return "NOOP"
	}
}

// CopyMode identifies a COPY instruction's reference frame.
type CopyMode byte

const (
	ModeNone CopyMode = iota
	ModeSource
	ModeTarget
)

// Instruction describes one contiguous run of output bytes.
type Instruction struct {
	Type     InstType
	Size     uint64
	Position uint64
	Mode     CopyMode
	Addr     uint64
}

// State is one fully decoded delta's output side.
type State struct {
	Length  uint64
	Inst    []Instruction
	Adds    []byte
	AddsLen int
}

// New returns an empty State with both buffers allocated at Granule.
func New() *State {
	return &State{
		Inst: make([]Instruction, 0, Granule/instructionSize),
		Adds: make([]byte, Granule),
	}
}

// instructionSize is the per-instruction byte footprint used only to
// convert the geometric-growth formula (expressed in bytes) into an
// equivalent slice-capacity count; it need not match the compiler's
// actual struct layout for the doubling/amortization property to hold.
const instructionSize = 40

// Reset clears a State back to empty while keeping buffer capacity, for
// reuse via alfa/pool (see delta/merge.TempPool).
func (s *State) Reset() {
	s.Length = 0
	s.Inst = s.Inst[:0]
	s.AddsLen = 0
}

// AllocateInstruction grows Inst if needed and returns the index of one
// new trailing, zero-valued instruction slot.
func (s *State) AllocateInstruction() int {
	if len(s.Inst) == cap(s.Inst) {
		newCap := growUnits(len(s.Inst), 1, instructionSize)
		grown := make([]Instruction, len(s.Inst), newCap)
		copy(grown, s.Inst)
		s.Inst = grown
	}

	s.Inst = s.Inst[:len(s.Inst)+1]

	return len(s.Inst) - 1
}

// ReserveLiterals ensures at least n more bytes are available past
// AddsLen without advancing AddsLen; callers write into
// s.Adds[s.AddsLen:s.AddsLen+n] then advance AddsLen themselves.
func (s *State) ReserveLiterals(n int) {
	needed := s.AddsLen + n
	if needed <= len(s.Adds) {
		return
	}

	newSize := growUnits(s.AddsLen, n, 1)
	grown := make([]byte, newSize)
	copy(grown, s.Adds[:s.AddsLen])
	s.Adds = grown
}

// AppendLiterals reserves and copies data into the pool, returning the
// offset the copy starts at and advancing AddsLen.
func (s *State) AppendLiterals(data []byte) int {
	s.ReserveLiterals(len(data))
	offset := s.AddsLen
	copy(s.Adds[offset:], data)
	s.AddsLen += len(data)

	return offset
}

// growUnits implements a doubling reallocation policy: new capacity
// (in units of unitSize bytes) is
// round_up(2*(current+k)*unitSize, Granule) / unitSize. This guarantees
// amortized O(1) appends regardless of whether the caller is growing
// the instruction vector (unitSize = instructionSize) or the literal
// pool (unitSize = 1).
func growUnits(currentUnits, k, unitSize int) int {
	neededBytes := (currentUnits + k) * unitSize * 2
	roundedBytes := roundUp(neededBytes, Granule)

	return (roundedBytes + unitSize - 1) / unitSize
}

func roundUp(n, granule int) int {
	if n <= 0 {
		return granule
	}

	return (n + granule - 1) / granule * granule
}

// Swap exchanges both buffers and counters with other in O(1), used to
// install merge output in place of merge input.
func (s *State) Swap(other *State) {
	*s, *other = *other, *s
}

// Validate checks the tiling and bounds invariants every State must
// hold: instructions are non-empty, tile [0, Length) with no gaps or
// overlaps, RUN and ADD addresses stay within the literal pool, and
// TARGET copies are strictly backward. SOURCE copies are not
// bounds-checked, since a State does not record its source's length.
func (s *State) Validate() error {
	var pos uint64

	for i, inst := range s.Inst {
		if inst.Size == 0 {
			return errors.Wrapf(errors.ErrInternal, "instruction %d has zero size", i)
		}

		if inst.Position != pos {
			return errors.Wrapf(
				errors.ErrInternal,
				"instruction %d position %d does not tile at %d",
				i, inst.Position, pos,
			)
		}

		switch inst.Type {
		case RUN:
			if inst.Addr >= uint64(s.AddsLen) {
				return errors.Wrapf(errors.ErrInternal, "instruction %d RUN addr out of bounds", i)
			}
		case ADD:
			if inst.Addr+inst.Size > uint64(s.AddsLen) {
				return errors.Wrapf(errors.ErrInternal, "instruction %d ADD out of bounds", i)
			}
		case COPY:
			if inst.Mode == ModeTarget && inst.Addr+inst.Size > inst.Position {
				return errors.Wrapf(errors.ErrInternal, "instruction %d TARGET copy not strictly backward", i)
			}
		}

		pos += inst.Size
	}

	if pos != s.Length {
		return errors.Wrapf(errors.ErrInternal, "tiled length %d does not match Length %d", pos, s.Length)
	}

	return nil
}
