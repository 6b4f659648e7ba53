package vcdiff

import (
	"encoding/binary"
	"io"

	"github.com/morfoh/xdelta3/src/alfa/errors"
	appendpath "github.com/morfoh/xdelta3/src/delta/append"
	"github.com/morfoh/xdelta3/src/delta/wholestate"
)

var errInvalidWindowIndicator = errors.Wrapf(errors.ErrInvalidInput, "invalid window indicator")

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	return buf[0], nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err)
	}

	return binary.BigEndian.Uint64(buf[:]), nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return errors.Wrap(err)
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)

	_, err := w.Write(buf[:])
	return errors.Wrap(err)
}

// readInst decodes one fixed-width instruction record: type, size, addr.
func readInst(r io.Reader) (appendpath.Hinst, error) {
	var inst appendpath.Hinst

	typeByte, err := readByte(r)
	if err != nil {
		return inst, errors.Wrap(err)
	}

	size, err := readUint64(r)
	if err != nil {
		return inst, errors.Wrap(err)
	}

	addr, err := readUint64(r)
	if err != nil {
		return inst, errors.Wrap(err)
	}

	inst.Type = wholestate.InstType(typeByte)
	inst.Size = size
	inst.Addr = addr

	return inst, nil
}

func writeInst(w io.Writer, inst appendpath.Hinst) error {
	if err := writeByte(w, byte(inst.Type)); err != nil {
		return err
	}

	if err := writeUint64(w, inst.Size); err != nil {
		return err
	}

	return writeUint64(w, inst.Addr)
}
