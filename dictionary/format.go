package dictionary

import (
	"encoding/binary"
	"hash/crc32"
	"math"

	"github.com/pkg/errors"
)

// Binary layout (all integers little endian, strings are a uint16 byte
// length followed by UTF-8 bytes):
//
//	header    magic[8] version:u32 size:u32 crc:u32
//	          kind:u32 description:str basePOS:u32 baseRows:u16 baseCols:u16
//	pos       depth:u8 count:u32 count*depth*str
//	matrix    rows:u16 cols:u16 rows*cols*i16          (system only)
//	chars     see encodeCategories                     (system only)
//	lexicon   index:u32+bytes postings:u32+u32* words:u32
//	          params:words*8 offsets:words*u32 infos:u32+bytes
//
// size and crc (IEEE CRC-32) cover every byte after the crc field.
const (
	Magic   = "JPMORPH\x00"
	Version = 2

	// NoRef marks a self reference in normalized/dictionary form fields.
	NoRef = math.MaxUint32

	// MaxStringLength is the longest string the format can store.
	MaxStringLength = math.MaxUint16

	// MaxArrayLength is the longest split or synonym list the format can store.
	MaxArrayLength = math.MaxUint8

	paramsSize = 8
)

// Kind tells system dictionaries from user overlays.
type Kind uint32

const (
	KindSystem Kind = iota
	KindUser
)

func (k Kind) String() string {
	if k == KindUser {
		return "user"
	}
	return "system"
}

// Header is the fixed prefix of every dictionary file. For user dictionaries
// the Base fields record the shape of the system dictionary the overlay was
// built against.
type Header struct {
	Kind         Kind
	Description  string
	BasePOSCount uint32
	BaseRows     uint16
	BaseCols     uint16
}

// sealedLength is the length of the magic, version, size and crc fields.
const sealedLength = len(Magic) + 12

// AppendHeader encodes h. The image must start at b[0] and be finished with
// Seal.
func AppendHeader(b []byte, h Header) []byte {
	b = append(b, Magic...)
	b = binary.LittleEndian.AppendUint32(b, Version)
	b = binary.LittleEndian.AppendUint32(b, 0)
	b = binary.LittleEndian.AppendUint32(b, 0)
	b = binary.LittleEndian.AppendUint32(b, uint32(h.Kind))
	b = AppendString(b, h.Description)
	b = binary.LittleEndian.AppendUint32(b, h.BasePOSCount)
	b = binary.LittleEndian.AppendUint16(b, h.BaseRows)
	b = binary.LittleEndian.AppendUint16(b, h.BaseCols)
	return b
}

// Seal writes the payload size and checksum of a complete image.
func Seal(image []byte) ([]byte, error) {
	if len(image) < sealedLength {
		return nil, errors.Wrapf(ErrTruncated, "image of %d bytes has no header", len(image))
	}
	payload := image[sealedLength:]
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, errors.Errorf("image payload of %d bytes does not fit the format", len(payload))
	}
	binary.LittleEndian.PutUint32(image[len(Magic)+4:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(image[len(Magic)+8:], crc32.ChecksumIEEE(payload))
	return image, nil
}

// AppendString encodes s with a uint16 length prefix. Callers validate the
// length against MaxStringLength.
func AppendString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(len(s)))
	return append(b, s...)
}

// AppendUint32s encodes a uint8 count followed by the values.
func AppendUint32s(b []byte, vs []uint32) []byte {
	b = append(b, byte(len(vs)))
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, v)
	}
	return b
}

// AppendParams encodes the fixed-size parameter block of one entry.
func AppendParams(b []byte, p Params) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(p.Left))
	b = binary.LittleEndian.AppendUint16(b, uint16(p.Right))
	b = binary.LittleEndian.AppendUint16(b, uint16(p.Cost))
	b = binary.LittleEndian.AppendUint16(b, p.POSID)
	return b
}

// decoder walks a byte slice. The first failure sticks; callers check err once.
type decoder struct {
	data []byte
	off  int
	err  error
}

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if n < 0 || d.off+n > len(d.data) {
		d.err = errors.Wrapf(ErrTruncated, "need %d bytes at offset %d, have %d", n, d.off, len(d.data)-d.off)
		return false
	}
	return true
}

func (d *decoder) bytes(n int) []byte {
	if !d.need(n) {
		return nil
	}
	b := d.data[d.off : d.off+n : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.data[d.off]
	d.off++
	return v
}

func (d *decoder) u16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(d.data[d.off:])
	d.off += 2
	return v
}

func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4
	return v
}

func (d *decoder) i16() int16 { return int16(d.u16()) }

func (d *decoder) str() string {
	n := int(d.u16())
	return string(d.bytes(n))
}

func (d *decoder) uint32s() []uint32 {
	n := int(d.u8())
	if n == 0 || !d.need(4*n) {
		return nil
	}
	vs := make([]uint32, n)
	for i := range vs {
		vs[i] = d.u32()
	}
	return vs
}

// section reads a uint32 length-prefixed block.
func (d *decoder) section() []byte {
	n := d.u32()
	if uint64(n) > uint64(math.MaxInt32) {
		d.err = errors.Wrapf(ErrTruncated, "section length %d at offset %d", n, d.off)
		return nil
	}
	return d.bytes(int(n))
}
