package chainsvc_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/morfoh/xdelta3/src/bravo/vcdiff"
	appendpath "github.com/morfoh/xdelta3/src/delta/append"
	"github.com/morfoh/xdelta3/src/delta/registry"
	"github.com/morfoh/xdelta3/src/delta/wholestate"
	"github.com/morfoh/xdelta3/src/golf/filespec"
	"github.com/morfoh/xdelta3/src/india/chainsvc"
)

func computeWhole(t *testing.T, base, target []byte) *wholestate.State {
	t.Helper()

	var buf bytes.Buffer

	alg, err := registry.ForName("xdelta3")
	if err != nil {
		t.Fatalf("ForName: %v", err)
	}

	if err := alg.Compute(bytes.NewReader(base), bytes.NewReader(target), &buf); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	dec := vcdiff.NewDecoder(&buf)

	win, err := dec.Next()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	s := wholestate.New()
	appendpath.AppendWindow(s, win.Meta, win.Insts, win.Cursor())

	return s
}

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

// TestCompactFoldsChainToSingleDelta drives a 6-link chain through
// Compact and checks the compacted delta reproduces the final version
// from the first version's bytes.
func TestCompactFoldsChainToSingleDelta(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	opts := filespec.DefaultOptions()

	// Seven versions give six links.
	chain := filespec.GenerateChain(rng, 7, opts)

	deltas := make([]*wholestate.State, 0, len(chain)-1)
	for i := 1; i < len(chain); i++ {
		deltas = append(deltas, computeWhole(t, chain[i-1].Bytes, chain[i].Bytes))
	}

	var progressCalls int
	compacted, err := chainsvc.Compact(deltas, chainsvc.Options{
		Workers:  3,
		Strategy: chainsvc.SmallestFirst{},
		OnProgress: func(total, done int) {
			progressCalls++
		},
	})
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}

	if err := compacted.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := chain[len(chain)-1].Bytes
	got := reconstruct(t, compacted, chain[0].Bytes)

	if !bytes.Equal(got, want) {
		t.Fatalf("compacted chain mismatch:\nwant=%q\ngot=%q", want, got)
	}

	if progressCalls == 0 {
		t.Fatal("expected OnProgress to be called at least once")
	}
}

// TestCompactSingleDeltaIsIdentity covers the degenerate one-link
// chain: Compact must return that delta unchanged (no merge needed).
func TestCompactSingleDeltaIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	opts := filespec.DefaultOptions()

	chain := filespec.GenerateChain(rng, 2, opts)
	d := computeWhole(t, chain[0].Bytes, chain[1].Bytes)

	compacted, err := chainsvc.Compact([]*wholestate.State{d}, chainsvc.Options{})
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}

	if compacted != d {
		t.Fatal("expected Compact to return the sole input delta unchanged")
	}
}

// TestCompactOddLengthChain exercises the trailing-odd-element carry
// path in mergeRound with a 5-link chain (six versions): the first
// round merges two pairs and carries the fifth link over unmerged.
func TestCompactOddLengthChain(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	opts := filespec.DefaultOptions()

	chain := filespec.GenerateChain(rng, 6, opts)

	deltas := make([]*wholestate.State, 0, len(chain)-1)
	for i := 1; i < len(chain); i++ {
		deltas = append(deltas, computeWhole(t, chain[i-1].Bytes, chain[i].Bytes))
	}

	compacted, err := chainsvc.Compact(deltas, chainsvc.Options{Workers: 2})
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}

	want := chain[len(chain)-1].Bytes
	got := reconstruct(t, compacted, chain[0].Bytes)

	if !bytes.Equal(got, want) {
		t.Fatalf("odd-length compacted chain mismatch:\nwant=%q\ngot=%q", want, got)
	}
}
