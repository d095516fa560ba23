package tiffengine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// TIFF tags and values that x/image/tiff consumes without exposing.
const (
	tagBitsPerSample   = 258
	tagPhotometric     = 262
	tagSamplesPerPixel = 277

	dtShort = 3
	dtLong  = 4

	photometricWhiteIsZero = 0
	photometricUnset       = -1

	ifdEntryLen = 12
)

// layout is the sample layout declared by the first IFD of a TIFF file.
type layout struct {
	bits        int // BitsPerSample of the first sample
	samples     int // SamplesPerPixel, or the BitsPerSample count when absent
	photometric int
}

// readLayout reads the sample layout from the first IFD of ra.
func readLayout(ra io.ReaderAt) (layout, error) {
	l := layout{bits: 1, samples: 1, photometric: photometricUnset}

	hdr := make([]byte, 8)
	if _, err := ra.ReadAt(hdr, 0); err != nil {
		return l, fmt.Errorf("failed to read TIFF header: %w", err)
	}
	var order binary.ByteOrder
	switch string(hdr[:4]) {
	case "II*\x00":
		order = binary.LittleEndian
	case "MM\x00*":
		order = binary.BigEndian
	default:
		return l, errors.New("malformed TIFF header")
	}

	off := int64(order.Uint32(hdr[4:8]))
	if _, err := ra.ReadAt(hdr[:2], off); err != nil {
		return l, fmt.Errorf("failed to read TIFF directory: %w", err)
	}
	entries := make([]byte, ifdEntryLen*int(order.Uint16(hdr[:2])))
	if _, err := ra.ReadAt(entries, off+2); err != nil {
		return l, fmt.Errorf("failed to read TIFF directory: %w", err)
	}

	spp, bitsCount := 0, 1
	for i := 0; i+ifdEntryLen <= len(entries); i += ifdEntryLen {
		e := entries[i : i+ifdEntryLen]
		tag := order.Uint16(e[0:2])
		if tag != tagBitsPerSample && tag != tagPhotometric && tag != tagSamplesPerPixel {
			continue
		}
		v, err := firstValue(ra, order, e)
		if err != nil {
			return l, fmt.Errorf("failed to read TIFF tag %d: %w", tag, err)
		}
		switch tag {
		case tagBitsPerSample:
			l.bits = int(v)
			bitsCount = int(order.Uint32(e[4:8]))
		case tagPhotometric:
			l.photometric = int(v)
		case tagSamplesPerPixel:
			spp = int(v)
		}
	}

	l.samples = bitsCount
	if spp > 0 {
		l.samples = spp
	}
	return l, nil
}

// firstValue returns the first value of a SHORT or LONG IFD entry, following
// the value offset when the values do not fit in the entry.
func firstValue(ra io.ReaderAt, order binary.ByteOrder, e []byte) (uint32, error) {
	typ := order.Uint16(e[2:4])
	count := order.Uint32(e[4:8])

	var size uint32
	switch typ {
	case dtShort:
		size = 2
	case dtLong:
		size = 4
	default:
		return 0, fmt.Errorf("unsupported field type %d", typ)
	}

	raw := e[8:12]
	if count*size > 4 {
		buf := make([]byte, size)
		if _, err := ra.ReadAt(buf, int64(order.Uint32(e[8:12]))); err != nil {
			return 0, err
		}
		raw = buf
	}
	if typ == dtShort {
		return uint32(order.Uint16(raw)), nil
	}
	return order.Uint32(raw), nil
}
