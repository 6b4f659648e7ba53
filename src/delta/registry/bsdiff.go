package registry

import (
	"io"

	"github.com/morfoh/xdelta3/src/alfa/errors"

	bsdiffpkg "github.com/gabstv/go-bsdiff/pkg/bsdiff"
	"github.com/gabstv/go-bsdiff/pkg/bspatch"
)

func init() {
	Register(&Bsdiff{})
}

// Bsdiff implements DeltaAlgorithm via the bsdiff4 binary delta
// algorithm, an alternative that does not go through the whole-state
// merge core at all. Its deltas cannot be merged, and india/chainsvc
// does not use it.
type Bsdiff struct{}

var _ DeltaAlgorithm = &Bsdiff{}

func (b *Bsdiff) Id() byte {
	return AlgorithmByteBsdiff
}

func (b *Bsdiff) Name() string {
	return "bsdiff"
}

func (b *Bsdiff) Compute(base, target io.Reader, delta io.Writer) error {
	baseData, err := io.ReadAll(base)
	if err != nil {
		return errors.Wrap(err)
	}

	targetData, err := io.ReadAll(target)
	if err != nil {
		return errors.Wrap(err)
	}

	patch, err := bsdiffpkg.Bytes(baseData, targetData)
	if err != nil {
		return errors.Wrap(err)
	}

	if _, err := delta.Write(patch); err != nil {
		return errors.Wrap(err)
	}

	return nil
}

func (b *Bsdiff) Apply(base, delta io.Reader, target io.Writer) error {
	baseData, err := io.ReadAll(base)
	if err != nil {
		return errors.Wrap(err)
	}

	deltaData, err := io.ReadAll(delta)
	if err != nil {
		return errors.Wrap(err)
	}

	reconstructed, err := bspatch.Bytes(baseData, deltaData)
	if err != nil {
		return errors.Wrap(err)
	}

	if _, err := target.Write(reconstructed); err != nil {
		return errors.Wrap(err)
	}

	return nil
}
