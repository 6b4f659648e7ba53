// Package deltastore implements the on-disk envelope for one merged
// delta: a header (magic, version, hash format, compression,
// flags), a compressed payload carrying the serialized whole-state,
// and a trailing checksum computed over the whole stream — the same
// shape as data_writer_v1.go/index_v1.go/cache_v1.go in the inventory
// archive this package's sibling packages were adapted from.
package deltastore

import (
	"encoding/binary"
	"hash"
	"io"

	"github.com/morfoh/xdelta3/src/alfa/errors"
	"github.com/morfoh/xdelta3/src/bravo/vcdiff"
	"github.com/morfoh/xdelta3/src/charlie/compression_type"
	appendpath "github.com/morfoh/xdelta3/src/delta/append"
	"github.com/morfoh/xdelta3/src/delta/wholestate"

	"crypto/sha256"
	"crypto/sha512"

	"github.com/brandondube/tai"
	"golang.org/x/crypto/blake2b"
)

const (
	Magic   = "XDMC"
	Version = uint16(1)
)

const (
	FlagNone uint16 = 0
)

type hashConstructor func() hash.Hash

var hashConstructors = map[string]hashConstructor{
	"sha256": sha256.New,
	"sha512": sha512.New,
	"blake2b256": func() hash.Hash {
		h, _ := blake2b.New256(nil)
		return h
	},
	"blake2b512": func() hash.Hash {
		h, _ := blake2b.New512(nil)
		return h
	},
}

func newHashForFormat(formatId string) (hash.Hash, error) {
	constructor, ok := hashConstructors[formatId]
	if !ok {
		return nil, errors.Errorf("unsupported hash format: %q", formatId)
	}

	return constructor(), nil
}

// Write serializes state as a single delta-store file: state must
// already be fully resolved against a source of length sourceLen (0
// if state contains no SOURCE copies). Returns the trailing checksum
// and the TAI64N timestamp stamped into the header.
func Write(
	w io.Writer,
	hashFormatId string,
	ct compression_type.CompressionType,
	state *wholestate.State,
	sourceLen uint64,
) (checksum []byte, createdAt tai.TAI64N, err error) {
	hasher, err := newHashForFormat(hashFormatId)
	if err != nil {
		return nil, tai.TAI64N{}, err
	}

	multiWriter := io.MultiWriter(w, hasher)

	createdAt = tai.Now()

	if err := writeHeader(multiWriter, hashFormatId, ct, createdAt); err != nil {
		return nil, tai.TAI64N{}, err
	}

	var payloadBuf writeCounter
	compressWriter, err := compression_type.WrapWriter(ct, &payloadBuf)
	if err != nil {
		return nil, tai.TAI64N{}, err
	}

	enc := vcdiff.NewEncoder(compressWriter)
	if err := enc.EncodeWhole(state, sourceLen); err != nil {
		return nil, tai.TAI64N{}, err
	}

	if err := compressWriter.Close(); err != nil {
		return nil, tai.TAI64N{}, errors.Wrap(err)
	}

	if err := writeUint64(multiWriter, sourceLen); err != nil {
		return nil, tai.TAI64N{}, err
	}

	if err := writeUint64(multiWriter, uint64(len(payloadBuf.data))); err != nil {
		return nil, tai.TAI64N{}, err
	}

	if _, err := multiWriter.Write(payloadBuf.data); err != nil {
		return nil, tai.TAI64N{}, errors.Wrap(err)
	}

	checksum = hasher.Sum(nil)

	if _, err := w.Write(checksum); err != nil {
		return nil, tai.TAI64N{}, errors.Wrap(err)
	}

	return checksum, createdAt, nil
}

// Read deserializes a delta-store file written by Write, verifying the
// trailing checksum along the way. createdAt is the TAI64N timestamp
// stamped into the header at Write time.
func Read(r io.Reader) (state *wholestate.State, sourceLen uint64, createdAt tai.TAI64N, err error) {
	var headerBuf writeCounter

	hashFormatId, ct, createdAt, hasher, err := readHeader(io.TeeReader(r, &headerBuf))
	if err != nil {
		return nil, 0, tai.TAI64N{}, err
	}

	hasher.Write(headerBuf.data)

	multiReader := io.TeeReader(r, hasher)

	sourceLen, err = readUint64(multiReader)
	if err != nil {
		return nil, 0, tai.TAI64N{}, err
	}

	payloadLen, err := readUint64(multiReader)
	if err != nil {
		return nil, 0, tai.TAI64N{}, err
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(multiReader, payload); err != nil {
		return nil, 0, tai.TAI64N{}, errors.Wrap(err)
	}

	decompressReader, err := compression_type.WrapReader(ct, newByteReader(payload))
	if err != nil {
		return nil, 0, tai.TAI64N{}, err
	}
	defer decompressReader.Close()

	dec := vcdiff.NewDecoder(decompressReader)
	win, err := dec.Next()
	if err != nil {
		return nil, 0, tai.TAI64N{}, errors.Wrap(err)
	}

	state = wholestate.New()
	appendpath.AppendWindow(state, win.Meta, win.Insts, win.Cursor())

	expected := hasher.Sum(nil)

	actual := make([]byte, len(expected))
	if _, err := io.ReadFull(r, actual); err != nil {
		return nil, 0, tai.TAI64N{}, errors.Wrap(err)
	}

	for i := range expected {
		if expected[i] != actual[i] {
			return nil, 0, tai.TAI64N{}, errors.Wrapf(errors.ErrInvalidInput, "checksum mismatch for %q", hashFormatId)
		}
	}

	return state, sourceLen, createdAt, nil
}

func writeHeader(w io.Writer, hashFormatId string, ct compression_type.CompressionType, createdAt tai.TAI64N) error {
	if _, err := w.Write([]byte(Magic)); err != nil {
		return errors.Wrap(err)
	}

	if err := binary.Write(w, binary.BigEndian, Version); err != nil {
		return errors.Wrap(err)
	}

	if _, err := w.Write(createdAt[:]); err != nil {
		return errors.Wrap(err)
	}

	idBytes := []byte(hashFormatId)
	if len(idBytes) > 255 {
		return errors.Errorf("hash format id too long: %d bytes", len(idBytes))
	}

	if _, err := w.Write([]byte{byte(len(idBytes))}); err != nil {
		return errors.Wrap(err)
	}

	if _, err := w.Write(idBytes); err != nil {
		return errors.Wrap(err)
	}

	ctBytes := []byte(ct)
	if len(ctBytes) > 255 {
		return errors.Errorf("compression type too long: %d bytes", len(ctBytes))
	}

	if _, err := w.Write([]byte{byte(len(ctBytes))}); err != nil {
		return errors.Wrap(err)
	}

	if _, err := w.Write(ctBytes); err != nil {
		return errors.Wrap(err)
	}

	if err := binary.Write(w, binary.BigEndian, FlagNone); err != nil {
		return errors.Wrap(err)
	}

	return nil
}

func readHeader(r io.Reader) (hashFormatId string, ct compression_type.CompressionType, createdAt tai.TAI64N, hasher hash.Hash, err error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return "", "", tai.TAI64N{}, nil, errors.Wrap(err)
	}

	if string(magic) != Magic {
		return "", "", tai.TAI64N{}, nil, errors.Wrapf(errors.ErrInvalidInput, "bad magic: %q", magic)
	}

	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return "", "", tai.TAI64N{}, nil, errors.Wrap(err)
	}

	if _, err := io.ReadFull(r, createdAt[:]); err != nil {
		return "", "", tai.TAI64N{}, nil, errors.Wrap(err)
	}

	idLen, err := readByteLen(r)
	if err != nil {
		return "", "", tai.TAI64N{}, nil, err
	}

	idBytes := make([]byte, idLen)
	if _, err := io.ReadFull(r, idBytes); err != nil {
		return "", "", tai.TAI64N{}, nil, errors.Wrap(err)
	}

	ctLen, err := readByteLen(r)
	if err != nil {
		return "", "", tai.TAI64N{}, nil, err
	}

	ctBytes := make([]byte, ctLen)
	if _, err := io.ReadFull(r, ctBytes); err != nil {
		return "", "", tai.TAI64N{}, nil, errors.Wrap(err)
	}

	var flags uint16
	if err := binary.Read(r, binary.BigEndian, &flags); err != nil {
		return "", "", tai.TAI64N{}, nil, errors.Wrap(err)
	}

	hashFormatId = string(idBytes)

	hasher, err = newHashForFormat(hashFormatId)
	if err != nil {
		return "", "", tai.TAI64N{}, nil, err
	}

	return hashFormatId, compression_type.CompressionType(ctBytes), createdAt, hasher, nil
}

func readByteLen(r io.Reader) (int, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err)
	}

	return int(buf[0]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	return errors.Wrap(binary.Write(w, binary.BigEndian, v))
}

func readUint64(r io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, errors.Wrap(err)
	}

	return v, nil
}

type writeCounter struct {
	data []byte
}

func (w *writeCounter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func newByteReader(data []byte) io.Reader {
	return &byteSliceReader{data: data}
}

type byteSliceReader struct {
	data []byte
	pos  int
}

func (r *byteSliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}

	n := copy(p, r.data[r.pos:])
	r.pos += n

	return n, nil
}
