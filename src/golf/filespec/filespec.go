// Package filespec generates randomized base buffers and edit sequences
// for property tests, a small analog of the regression harness's
// FileSpec/Block generator named (but explicitly out of scope) in the
// delta-merge core's own specification. It produces plain []byte
// buffers, not an encoded delta: callers turn a Block sequence into a
// wholestate.State themselves via delta/registry or by hand, the same
// separation the original harness keeps between file generation and
// delta computation.
package filespec

import "math/rand"

// BlockKind is the closed set of edit operations a FileSpec's edit
// sequence is built from.
type BlockKind int

const (
	// BlockCopy reproduces a run of the previous version's bytes
	// unchanged, starting at Offset.
	BlockCopy BlockKind = iota
	// BlockInsert introduces Data as new literal bytes not present in
	// the previous version.
	BlockInsert
)

// Block is one edit-sequence step describing how a new version's bytes
// at this position were produced from the previous version.
type Block struct {
	Kind   BlockKind
	Offset int    // meaningful only for BlockCopy
	Size   int    // meaningful only for BlockCopy
	Data   []byte // meaningful only for BlockInsert
}

// FileSpec describes one generated version: the previous version it was
// derived from (nil for the first version in a chain) plus the edit
// sequence that produces its bytes.
type FileSpec struct {
	Prev   []byte
	Blocks []Block
	Bytes  []byte
}

// Options bounds the shape of generated versions.
type Options struct {
	MinSize      int
	MaxSize      int
	MaxBlockSize int
	CopyBias     float64 // probability a block is BlockCopy rather than BlockInsert
}

// DefaultOptions returns reasonable bounds for quick property tests.
func DefaultOptions() Options {
	return Options{
		MinSize:      0,
		MaxSize:      512,
		MaxBlockSize: 48,
		CopyBias:     0.6,
	}
}

// GenerateBase produces a FileSpec for the first version in a chain:
// Prev is nil and every block is an insert, since there is nothing to
// copy from yet.
func GenerateBase(rng *rand.Rand, opts Options) FileSpec {
	size := opts.MinSize + rng.Intn(opts.MaxSize-opts.MinSize+1)

	data := make([]byte, size)
	rng.Read(data)

	return FileSpec{
		Prev:   nil,
		Blocks: []Block{{Kind: BlockInsert, Data: data}},
		Bytes:  data,
	}
}

// GenerateNext produces a FileSpec for the version that follows prev,
// interleaving BlockCopy runs from prev with BlockInsert runs of fresh
// random bytes.
func GenerateNext(rng *rand.Rand, prev []byte, opts Options) FileSpec {
	size := opts.MinSize + rng.Intn(opts.MaxSize-opts.MinSize+1)

	var blocks []Block
	out := make([]byte, 0, size)

	for len(out) < size {
		remaining := size - len(out)
		blockSize := 1 + rng.Intn(min(opts.MaxBlockSize, remaining))

		useCopy := len(prev) > 0 && rng.Float64() < opts.CopyBias

		if useCopy {
			maxOffset := len(prev) - 1
			offset := rng.Intn(maxOffset + 1)

			take := blockSize
			if offset+take > len(prev) {
				take = len(prev) - offset
			}

			blocks = append(blocks, Block{Kind: BlockCopy, Offset: offset, Size: take})
			out = append(out, prev[offset:offset+take]...)
		} else {
			data := make([]byte, blockSize)
			rng.Read(data)

			blocks = append(blocks, Block{Kind: BlockInsert, Data: data})
			out = append(out, data...)
		}
	}

	return FileSpec{
		Prev:   prev,
		Blocks: blocks,
		Bytes:  out,
	}
}

// GenerateChain produces n versions: version 0 is a random base, and
// each subsequent version is derived from the one before it, giving
// callers a V0 -> V1 -> ... -> V(n-1) chain to drive merge/chain tests
// against.
func GenerateChain(rng *rand.Rand, n int, opts Options) []FileSpec {
	if n <= 0 {
		return nil
	}

	specs := make([]FileSpec, n)
	specs[0] = GenerateBase(rng, opts)

	for i := 1; i < n; i++ {
		specs[i] = GenerateNext(rng, specs[i-1].Bytes, opts)
	}

	return specs
}
