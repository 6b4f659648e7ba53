// Package registry maps a one-byte algorithm identifier and an
// algorithm name to a concrete DeltaAlgorithm implementation (the
// echo/deltastore envelope does not record which algorithm produced a
// delta), the same role delta_algorithm.go plays
// in the archive format this package's sibling packages were grounded
// on.
package registry

import (
	"io"

	"github.com/morfoh/xdelta3/src/alfa/errors"
)

// DeltaAlgorithm computes and applies binary deltas between blobs.
type DeltaAlgorithm interface {
	// Id returns the byte identifier written alongside delta entries.
	Id() byte

	// Name returns the algorithm's config-file / CLI name.
	Name() string

	// Compute produces a delta transforming base into target.
	Compute(base io.Reader, target io.Reader, delta io.Writer) error

	// Apply reconstructs target from base and delta.
	Apply(base io.Reader, delta io.Reader, target io.Writer) error
}

const (
	AlgorithmByteXdelta3 byte = 0
	AlgorithmByteBsdiff  byte = 1
)

var byId = map[byte]DeltaAlgorithm{}
var byName = map[string]DeltaAlgorithm{}

// Register adds alg to the registry, indexed by both its Id and Name.
func Register(alg DeltaAlgorithm) {
	byId[alg.Id()] = alg
	byName[alg.Name()] = alg
}

func ForByte(b byte) (DeltaAlgorithm, error) {
	alg, ok := byId[b]
	if !ok {
		return nil, errors.Errorf("unsupported delta algorithm byte: %d", b)
	}

	return alg, nil
}

func ForName(name string) (DeltaAlgorithm, error) {
	alg, ok := byName[name]
	if !ok {
		return nil, errors.Errorf("unsupported delta algorithm name: %q", name)
	}

	return alg, nil
}
