package vcdiff

import (
	"io"

	appendpath "github.com/morfoh/xdelta3/src/delta/append"
)

// Decoder reads windows out of a VCDIFF-subset byte stream.
type Decoder struct {
	r        io.Reader
	totalOut uint64
}

// NewDecoder returns a Decoder reading windows from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next decodes one window. It returns io.EOF once r is exhausted
// between windows (not mid-window: a truncated window is a decode
// error, not EOF).
func (d *Decoder) Next() (Window, error) {
	var win Window

	winIndicator, err := readByte(d.r)
	if err == io.EOF {
		return win, io.EOF
	}
	if err != nil {
		return win, err
	}

	switch winIndicator {
	case winIndicatorNone:
		win.Meta.SourceIsTarget = false
	case winIndicatorSource:
		segLen, err := readUint64(d.r)
		if err != nil {
			return win, err
		}
		segPos, err := readUint64(d.r)
		if err != nil {
			return win, err
		}
		win.Meta.CopyLen = segLen
		win.Meta.CopyOffset = segPos
		win.Meta.SourceIsTarget = false
	case winIndicatorTarget:
		segLen, err := readUint64(d.r)
		if err != nil {
			return win, err
		}
		segPos, err := readUint64(d.r)
		if err != nil {
			return win, err
		}
		win.Meta.CopyLen = segLen
		win.Meta.CopyOffset = segPos
		win.Meta.SourceIsTarget = true
	default:
		return win, errInvalidWindowIndicator
	}

	win.Meta.TotalOut = d.totalOut

	numInst, err := readUint64(d.r)
	if err != nil {
		return win, err
	}

	dataLen, err := readUint64(d.r)
	if err != nil {
		return win, err
	}

	win.Data = make([]byte, dataLen)
	if _, err := io.ReadFull(d.r, win.Data); err != nil {
		return win, err
	}

	win.Insts = make([]appendpath.Hinst, numInst)
	var windowOut uint64

	for i := uint64(0); i < numInst; i++ {
		inst, err := readInst(d.r)
		if err != nil {
			return win, err
		}
		win.Insts[i] = inst
		windowOut += inst.Size
	}

	d.totalOut += windowOut

	return win, nil
}
