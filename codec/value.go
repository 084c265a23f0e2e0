// SPDX-License-Identifier: MIT

package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Kind identifies one of the value encodings a column can be declared
// with (spec §4.1). It is stored alongside the schema, not per-value, so
// a column's decoder never has to branch on a tag byte.
type Kind uint8

const (
	// KindObj stores arbitrary msgpack-encoded values: maps, slices,
	// strings, numbers. Used for LABEL/DESC/SITELINKS-style columns.
	KindObj Kind = iota
	// KindIntNumpy stores a sorted slice of uint32 as a packed
	// little-endian array, mirroring the original's numpy encoding.
	KindIntNumpy
	// KindIntBitmap stores a set of uint32 as a serialized roaring
	// bitmap, used for the typically-large posting lists.
	KindIntBitmap
	// KindBytes stores an opaque byte slice unmodified.
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindObj:
		return "OBJ"
	case KindIntNumpy:
		return "INT_NUMPY"
	case KindIntBitmap:
		return "INT_BITMAP"
	case KindBytes:
		return "BYTES"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ValueCodec encodes and decodes the Go-side representation of a column's
// values to and from the bytes stored in the backing KV engine.
type ValueCodec interface {
	Kind() Kind
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

// EncodeObj msgpack-encodes an arbitrary value for an OBJ column.
func EncodeObj(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// DecodeObj decodes bytes previously produced by EncodeObj into dst, a
// pointer to the expected Go type (matching msgpack.Unmarshal's contract).
func DecodeObj(b []byte, dst any) error {
	return msgpack.Unmarshal(b, dst)
}

type objCodec struct{}

// ObjCodec is the ValueCodec for KindObj columns.
var ObjCodec ValueCodec = objCodec{}

func (objCodec) Kind() Kind { return KindObj }

func (objCodec) Encode(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (objCodec) Decode(b []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeIntNumpy packs a slice of uint32 into a sorted, deduplicated
// little-endian array, the layout spec §4.1 calls INT_NUMPY. Sorting
// keeps the encoded form canonical regardless of insertion order, which
// downstream merge/union code relies on.
func EncodeIntNumpy(vals []uint32) []byte {
	sorted := append([]uint32(nil), vals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	sorted = dedupSortedUint32(sorted)
	out := make([]byte, 4*len(sorted))
	for i, v := range sorted {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// DecodeIntNumpy is the inverse of EncodeIntNumpy.
func DecodeIntNumpy(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("codec: INT_NUMPY value length %d not a multiple of 4", len(b))
	}
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return out, nil
}

func dedupSortedUint32(s []uint32) []uint32 {
	if len(s) == 0 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

type intNumpyCodec struct{}

// IntNumpyCodec is the ValueCodec for KindIntNumpy columns. Encode/Decode
// work on []uint32.
var IntNumpyCodec ValueCodec = intNumpyCodec{}

func (intNumpyCodec) Kind() Kind { return KindIntNumpy }

func (intNumpyCodec) Encode(v any) ([]byte, error) {
	vals, ok := v.([]uint32)
	if !ok {
		return nil, fmt.Errorf("codec: IntNumpyCodec.Encode wants []uint32, got %T", v)
	}
	return EncodeIntNumpy(vals), nil
}

func (intNumpyCodec) Decode(b []byte) (any, error) {
	return DecodeIntNumpy(b)
}

// EncodeIntBitmap serializes a roaring bitmap in its standard binary
// format, the INT_BITMAP encoding used for large posting lists (claims
// inverse index, SymDelete deletion postings).
func EncodeIntBitmap(bm *roaring.Bitmap) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := bm.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeIntBitmap is the inverse of EncodeIntBitmap.
func DecodeIntBitmap(b []byte) (*roaring.Bitmap, error) {
	bm := roaring.New()
	if _, err := bm.ReadFrom(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return bm, nil
}

type intBitmapCodec struct{}

// IntBitmapCodec is the ValueCodec for KindIntBitmap columns. Encode/Decode
// work on *roaring.Bitmap.
var IntBitmapCodec ValueCodec = intBitmapCodec{}

func (intBitmapCodec) Kind() Kind { return KindIntBitmap }

func (intBitmapCodec) Encode(v any) ([]byte, error) {
	bm, ok := v.(*roaring.Bitmap)
	if !ok {
		return nil, fmt.Errorf("codec: IntBitmapCodec.Encode wants *roaring.Bitmap, got %T", v)
	}
	return EncodeIntBitmap(bm)
}

func (intBitmapCodec) Decode(b []byte) (any, error) {
	return DecodeIntBitmap(b)
}

type bytesCodec struct{}

// BytesCodec is the ValueCodec for KindBytes columns: an identity
// encoding for opaque payloads the caller has already serialized.
var BytesCodec ValueCodec = bytesCodec{}

func (bytesCodec) Kind() Kind { return KindBytes }

func (bytesCodec) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("codec: BytesCodec.Encode wants []byte, got %T", v)
	}
	return b, nil
}

func (bytesCodec) Decode(b []byte) (any, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// ForKind returns the canonical ValueCodec for a declared column Kind.
func ForKind(k Kind) (ValueCodec, error) {
	switch k {
	case KindObj:
		return ObjCodec, nil
	case KindIntNumpy:
		return IntNumpyCodec, nil
	case KindIntBitmap:
		return IntBitmapCodec, nil
	case KindBytes:
		return BytesCodec, nil
	default:
		return nil, fmt.Errorf("codec: unknown kind %v", k)
	}
}
