// SPDX-License-Identifier: MIT

package codec

import (
	"reflect"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
)

func TestObjCodecRoundTrip(t *testing.T) {
	in := map[string]any{"en": "Douglas Adams", "rank": int64(3)}
	b, err := ObjCodec.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var out map[string]any
	if err := DecodeObj(b, &out); err != nil {
		t.Fatalf("DecodeObj: %v", err)
	}
	if out["en"] != "Douglas Adams" {
		t.Errorf("got %v", out)
	}
}

func TestIntNumpyCodecSortsAndDedups(t *testing.T) {
	b, err := IntNumpyCodec.Encode([]uint32{5, 1, 5, 3})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeIntNumpy(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []uint32{1, 3, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestIntBitmapCodecRoundTrip(t *testing.T) {
	bm := roaring.BitmapOf(1, 2, 1000000)
	b, err := IntBitmapCodec.Encode(bm)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	v, err := IntBitmapCodec.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := v.(*roaring.Bitmap)
	if !got.Equals(bm) {
		t.Errorf("got %v, want %v", got, bm)
	}
}

func TestBytesCodecRoundTrip(t *testing.T) {
	in := []byte{0x01, 0x02, 0x03}
	b, err := BytesCodec.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	v, err := BytesCodec.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(v.([]byte), in) {
		t.Errorf("got %v, want %v", v, in)
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	c := Compressed(IntNumpyCodec)
	in := []uint32{1, 2, 3, 4, 5}
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	v, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(v.([]uint32), in) {
		t.Errorf("got %v, want %v", v, in)
	}
}
