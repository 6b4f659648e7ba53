package merge_test

import (
	"testing"

	"github.com/morfoh/xdelta3/src/delta/merge"
	"github.com/morfoh/xdelta3/src/delta/wholestate"
)

func addInst(s *wholestate.State, data []byte) {
	idx := s.AllocateInstruction()
	offset := s.AppendLiterals(data)
	s.Inst[idx] = wholestate.Instruction{
		Type:     wholestate.ADD,
		Size:     uint64(len(data)),
		Position: s.Length,
		Addr:     uint64(offset),
	}
	s.Length += uint64(len(data))
}

func runInst(s *wholestate.State, b byte, size uint64) {
	idx := s.AllocateInstruction()
	offset := s.AppendLiterals([]byte{b})
	s.Inst[idx] = wholestate.Instruction{
		Type:     wholestate.RUN,
		Size:     size,
		Position: s.Length,
		Addr:     uint64(offset),
	}
	s.Length += size
}

func copyInst(s *wholestate.State, mode wholestate.CopyMode, addr, size uint64) {
	idx := s.AllocateInstruction()
	s.Inst[idx] = wholestate.Instruction{
		Type:     wholestate.COPY,
		Mode:     mode,
		Size:     size,
		Position: s.Length,
		Addr:     addr,
	}
	s.Length += size
}

// reconstruct replays a State's literal/run instructions against an
// external source buffer, resolving SOURCE copies against it and
// TARGET copies against bytes already produced, to recover the actual
// output bytes a State represents.
func reconstruct(t *testing.T, s *wholestate.State, source []byte) []byte {
	t.Helper()

	out := make([]byte, 0, s.Length)

	for _, inst := range s.Inst {
		switch inst.Type {
		case wholestate.RUN:
			b := s.Adds[inst.Addr]
			for i := uint64(0); i < inst.Size; i++ {
				out = append(out, b)
			}
		case wholestate.ADD:
			out = append(out, s.Adds[inst.Addr:inst.Addr+inst.Size]...)
		case wholestate.COPY:
			switch inst.Mode {
			case wholestate.ModeSource:
				out = append(out, source[inst.Addr:inst.Addr+inst.Size]...)
			case wholestate.ModeTarget, wholestate.ModeNone:
				out = append(out, out[inst.Addr:inst.Addr+inst.Size]...)
			}
		}
	}

	return out
}

// TestMergePureAddPassthrough covers a B stream with no copies at all:
// C must equal B's bytes regardless of A's contents.
func TestMergePureAddPassthrough(t *testing.T) {
	a := wholestate.New()
	addInst(a, []byte("ignored"))

	b := wholestate.New()
	addInst(b, []byte("hello "))
	addInst(b, []byte("world"))

	c, err := merge.Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	got := reconstruct(t, c, nil)
	if string(got) != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", got)
	}
}

// TestMergeRunThroughCopy covers a B instruction stream mixing RUN and
// a SOURCE copy resolved entirely within one A instruction.
func TestMergeRunThroughCopy(t *testing.T) {
	v0 := []byte("XXXXXabcdefXXXXX")

	a := wholestate.New()
	copyInst(a, wholestate.ModeSource, 0, uint64(len(v0)))

	b := wholestate.New()
	runInst(b, 'Z', 3)
	copyInst(b, wholestate.ModeSource, 5, 6)

	c, err := merge.Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	got := reconstruct(t, c, v0)
	if string(got) != "ZZZabcdef" {
		t.Fatalf("expected %q, got %q", "ZZZabcdef", got)
	}
}

// TestMergeCopySpanningTwoAInstructions covers a SOURCE copy in B whose
// address range straddles a boundary between two of A's instructions,
// exercising the split loop in mergeSourceCopy.
func TestMergeCopySpanningTwoAInstructions(t *testing.T) {
	v0 := []byte("0123456789")

	a := wholestate.New()
	addInst(a, v0[0:4])              // positions 0..4, literal
	copyInst(a, wholestate.ModeSource, 4, 6) // positions 4..10, SOURCE copy of v0[4:10]

	b := wholestate.New()
	// Spans A's ADD (positions 0..4) and A's COPY (positions 4..10).
	copyInst(b, wholestate.ModeSource, 2, 5)

	c, err := merge.Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// A maps v0 onto itself identically here (ADD replays v0[0:4],
	// COPY replays v0[4:10] via SOURCE), so A's target equals v0 and
	// C must equal the slice of v0 that B's copy selects.
	got := reconstruct(t, c, v0)
	want := string(v0[2:7])
	if string(got) != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	// mergeSourceCopy must have split the single B copy into two C
	// instructions, one per A instruction it overlapped, each taking the
	// type of the A instruction it came from: an ADD, then a COPY.
	if len(c.Inst) != 2 {
		t.Fatalf("expected split copy to produce 2 instructions, got %d", len(c.Inst))
	}
	if c.Inst[0].Type != wholestate.ADD || c.Inst[1].Type != wholestate.COPY {
		t.Fatalf("expected split copy to produce ADD then COPY, got %v then %v", c.Inst[0].Type, c.Inst[1].Type)
	}
}

// TestMergeMixedBStream exercises RUN, ADD, SOURCE copy and TARGET
// copy all within a single B stream.
func TestMergeMixedBStream(t *testing.T) {
	v0 := []byte("abcdefgh")

	a := wholestate.New()
	copyInst(a, wholestate.ModeSource, 0, uint64(len(v0)))

	b := wholestate.New()
	addInst(b, []byte("PRE-"))           // positions 0..4
	copyInst(b, wholestate.ModeSource, 2, 3) // positions 4..7, v0[2:5] = "cde"
	runInst(b, '!', 2)                   // positions 7..9
	copyInst(b, wholestate.ModeTarget, 0, 4) // positions 9..13, replays "PRE-"

	c, err := merge.Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	got := reconstruct(t, c, v0)
	want := "PRE-cde!!PRE-"
	if string(got) != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

// TestMergeRejectsOutOfRangeSourceCopy covers a SOURCE copy in B whose
// address range exceeds A's length: this must fail precondition
// checking with ErrInvalidInput, not panic or silently truncate.
func TestMergeRejectsOutOfRangeSourceCopy(t *testing.T) {
	a := wholestate.New()
	addInst(a, []byte("short"))

	b := wholestate.New()
	copyInst(b, wholestate.ModeSource, 0, 100)

	_, err := merge.Merge(a, b)
	if err == nil {
		t.Fatal("expected Merge to reject an out-of-range SOURCE copy")
	}
}

// TestMergeIdentity covers the identity law: merging a B stream that
// is a single full-length SOURCE copy reproduces A's target bytes
// unchanged, since C = identity(B) applied after A is just A.
func TestMergeIdentity(t *testing.T) {
	v0 := []byte("the quick brown fox")

	a := wholestate.New()
	addInst(a, []byte("the quick "))
	copyInst(a, wholestate.ModeSource, 10, 9)

	b := wholestate.New()
	copyInst(b, wholestate.ModeSource, 0, a.Length)

	c, err := merge.Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	wantA := reconstruct(t, a, v0)
	gotC := reconstruct(t, c, v0)

	if string(gotC) != string(wantA) {
		t.Fatalf("identity merge mismatch: expected %q, got %q", wantA, gotC)
	}
}

// TestMergeReallocationStress drives enough ADD instructions through
// the merge to force several reallocations of both the output's
// instruction vector and its literal pool, checking the result is
// still internally consistent.
func TestMergeReallocationStress(t *testing.T) {
	a := wholestate.New()
	addInst(a, []byte("unused"))

	b := wholestate.New()

	// 5000 instructions and 15000 literal bytes outgrow the initial
	// buffers (Granule/instructionSize slots, Granule bytes) several times.
	const count = 5000

	var want []byte
	for i := 0; i < count; i++ {
		chunk := []byte{byte(i), byte(i + 1), byte(i + 2)}
		addInst(b, chunk)
		want = append(want, chunk...)
	}

	c, err := merge.Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if len(c.Inst) != count {
		t.Fatalf("expected %d instructions, got %d", count, len(c.Inst))
	}

	got := reconstruct(t, c, nil)
	if string(got) != string(want) {
		t.Fatalf("reallocation stress mismatch")
	}
}

func TestFindPositionBoundaries(t *testing.T) {
	s := wholestate.New()
	addInst(s, []byte("abc"))  // positions 0..3
	addInst(s, []byte("de"))   // positions 3..5
	addInst(s, []byte("fghi")) // positions 5..9

	cases := []struct {
		addr      uint64
		wantIndex int
	}{
		{0, 0},
		{2, 0},
		{3, 1},
		{4, 1},
		{5, 2},
		{8, 2},
	}

	for _, tc := range cases {
		idx, err := merge.FindPosition(s, tc.addr)
		if err != nil {
			t.Fatalf("FindPosition(%d): %v", tc.addr, err)
		}
		if idx != tc.wantIndex {
			t.Fatalf("FindPosition(%d): expected index %d, got %d", tc.addr, tc.wantIndex, idx)
		}
	}

	if _, err := merge.FindPosition(s, s.Length); err == nil {
		t.Fatal("expected FindPosition to reject an address at or past Length")
	}
}

// TestMergeTargetModePassthrough pins down the inherited xdelta3
// behavior for TARGET-mode copies appearing directly in B: they pass
// through into C unchanged, since they already reference C's own
// output in the same relative order.
func TestMergeTargetModePassthrough(t *testing.T) {
	a := wholestate.New()
	addInst(a, []byte("irrelevant"))

	b := wholestate.New()
	addInst(b, []byte("ab"))
	copyInst(b, wholestate.ModeTarget, 0, 2)

	c, err := merge.Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	got := reconstruct(t, c, nil)
	if string(got) != "abab" {
		t.Fatalf("expected %q, got %q", "abab", got)
	}
}
