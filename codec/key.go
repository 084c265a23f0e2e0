// SPDX-License-Identifier: MIT

// Package codec implements the key and value encodings used by the store
// package: fixed-width integer and composite keys, and the pluggable
// OBJ/INT_NUMPY/INT_BITMAP/BYTES value encodings of spec §4.1.
package codec

import (
	"encoding/binary"
	"errors"
)

// CompositeSentinel separates fixed-width integer segments inside a
// composite key. It cannot appear inside a big-endian uint32/uint64
// segment's byte representation in a way that would be ambiguous, because
// every segment has a fixed, known width: a scan for the sentinel byte
// only ever needs to skip exactly that many bytes between separators.
// We picked 0x7C ('|') to keep composite keys readable when dumped with
// common hex/string tools, matching the delimiter documented in spec §4.1.
const CompositeSentinel byte = 0x7C

// EncodeStringKey returns the UTF-8 bytes of a string key, unmodified.
func EncodeStringKey(s string) []byte {
	return []byte(s)
}

// DecodeStringKey is the inverse of EncodeStringKey.
func DecodeStringKey(b []byte) string {
	return string(b)
}

// EncodeUint32Key encodes a LID as a 4-byte big-endian key. Big-endian
// keeps the byte-lexicographic order of encoded keys equal to the
// numeric order of the LIDs, which iter/iter_prefix rely on.
func EncodeUint32Key(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// DecodeUint32Key is the inverse of EncodeUint32Key.
func DecodeUint32Key(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, errors.New("codec: bad uint32 key length")
	}
	return binary.BigEndian.Uint32(b), nil
}

// EncodeUint64Key encodes a value as an 8-byte big-endian key.
func EncodeUint64Key(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// DecodeUint64Key is the inverse of EncodeUint64Key.
func DecodeUint64Key(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, errors.New("codec: bad uint64 key length")
	}
	return binary.BigEndian.Uint64(b), nil
}

// EncodeCompositeKey concatenates fixed-width uint32 LIDs separated by
// CompositeSentinel, e.g. (subjectLID, propLID) -> subjectLID | propLID.
// iter_prefix on a leading subset of parts then becomes a byte-prefix
// scan, because every encoded segment (4 bytes + 1 sentinel) has the same
// width. A segment's own bytes may equal the sentinel (LID 124 encodes as
// 00 00 00 7C); segments and sentinels are located by position, so this
// does not affect prefix scans or DecodeCompositeKey.
func EncodeCompositeKey(parts ...uint32) []byte {
	out := make([]byte, 0, len(parts)*5)
	for i, p := range parts {
		if i > 0 {
			out = append(out, CompositeSentinel)
		}
		out = append(out, EncodeUint32Key(p)...)
	}
	return out
}

// EncodeCompositeKey64 is the 64-bit-segment analogue of EncodeCompositeKey.
func EncodeCompositeKey64(parts ...uint64) []byte {
	out := make([]byte, 0, len(parts)*9)
	for i, p := range parts {
		if i > 0 {
			out = append(out, CompositeSentinel)
		}
		out = append(out, EncodeUint64Key(p)...)
	}
	return out
}

// CompositeKeyPrefix returns the byte prefix that iter_prefix should scan
// for to find every composite-key row whose leading segments equal parts.
// It is EncodeCompositeKey(parts...) followed by the sentinel, since every
// full key with more segments continues with a sentinel byte next.
func CompositeKeyPrefix(parts ...uint32) []byte {
	return append(EncodeCompositeKey(parts...), CompositeSentinel)
}

// DecodeCompositeKey splits a composite key back into its uint32 segments.
func DecodeCompositeKey(b []byte) ([]uint32, error) {
	if len(b) == 0 {
		return nil, errors.New("codec: empty composite key")
	}
	if (len(b)+1)%5 != 0 {
		return nil, errors.New("codec: malformed composite key length")
	}
	n := (len(b) + 1) / 5
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		start := i * 5
		seg := b[start : start+4]
		v, err := DecodeUint32Key(seg)
		if err != nil {
			return nil, err
		}
		out[i] = v
		if i < n-1 && b[start+4] != CompositeSentinel {
			return nil, errors.New("codec: missing composite key sentinel")
		}
	}
	return out, nil
}
