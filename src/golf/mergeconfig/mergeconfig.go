// Package mergeconfig holds the TOML-backed configuration for the
// merge and chain-compaction tooling: hash format, compression, the
// default delta algorithm, and worker/growth tuning.
package mergeconfig

import (
	"io"

	"github.com/pelletier/go-toml/v2"

	"github.com/morfoh/xdelta3/src/alfa/errors"
	"github.com/morfoh/xdelta3/src/charlie/compression_type"
)

// Config is the root configuration document.
type Config struct {
	DefaultHashFormat string                          `toml:"default-hash-format"`
	CompressionType   compression_type.CompressionType `toml:"compression-type"`
	DeltaAlgorithm    string                            `toml:"delta-algorithm"`
	GranuleSize       int                               `toml:"granule-size"`
	ChainWorkerCount  int                               `toml:"chain-worker-count"`
}

// Default returns the configuration used when no config file is
// present.
func Default() Config {
	return Config{
		DefaultHashFormat: "blake2b256",
		CompressionType:   compression_type.CompressionTypeZstd,
		DeltaAlgorithm:    "xdelta3",
		GranuleSize:       4096,
		ChainWorkerCount:  4,
	}
}

// Decode reads a TOML document from r, applying it on top of Default.
func Decode(r io.Reader) (Config, error) {
	config := Default()

	data, err := io.ReadAll(r)
	if err != nil {
		return config, errors.Wrap(err)
	}

	if err := toml.Unmarshal(data, &config); err != nil {
		return config, errors.Wrap(err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// Encode writes config as TOML to w.
func Encode(w io.Writer, config Config) error {
	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err)
	}

	_, err = w.Write(data)

	return errors.Wrap(err)
}

// Validate rejects configuration combinations chain-compaction and the
// CLI can't act on.
func (config Config) Validate() error {
	if config.GranuleSize <= 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "granule-size must be positive, got %d", config.GranuleSize)
	}

	if config.ChainWorkerCount <= 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "chain-worker-count must be positive, got %d", config.ChainWorkerCount)
	}

	switch config.DeltaAlgorithm {
	case "xdelta3", "bsdiff":
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "unsupported delta-algorithm: %q", config.DeltaAlgorithm)
	}

	return nil
}
