package encoding

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestExtractScalars(t *testing.T) {
	data := []byte{0x01, 0xFF, 0x34, 0x12, 0x78, 0x56, 0x34, 0x12}
	r := bytes.NewReader(data)

	var b bool
	var u8 uint8
	var u16 uint16
	var u32 uint32
	if err := Extract(r, &b, 8); err != nil {
		t.Fatalf("bool: %v", err)
	}
	if err := Extract(r, &u8, 8); err != nil {
		t.Fatalf("uint8: %v", err)
	}
	if err := Extract(r, &u16, 8); err != nil {
		t.Fatalf("uint16: %v", err)
	}
	if err := Extract(r, &u32, 8); err != nil {
		t.Fatalf("uint32: %v", err)
	}

	if !b {
		t.Error("bool = false, want true")
	}
	if u8 != 0xFF {
		t.Errorf("uint8 = %#x, want 0xFF", u8)
	}
	if u16 != 0x1234 {
		t.Errorf("uint16 = %#x, want 0x1234", u16)
	}
	if u32 != 0x12345678 {
		t.Errorf("uint32 = %#x, want 0x12345678", u32)
	}
}

func TestExtractStruct(t *testing.T) {
	data := []byte{
		0x78, 0x56, 0x34, 0x12,
		0xBB, 0xAA,
		0x01, 0x02, 0x03,
	}
	var v struct {
		A uint32
		B uint16
		C [3]uint8
	}
	if err := Extract(bytes.NewReader(data), &v, 8); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if v.A != 0x12345678 || v.B != 0xAABB {
		t.Errorf("A, B = %#x, %#x", v.A, v.B)
	}
	if v.C != [3]uint8{1, 2, 3} {
		t.Errorf("C = %v, want [1 2 3]", v.C)
	}
}

func TestExtractPointerSizedFields(t *testing.T) {
	data := []byte{0x44, 0x33, 0x22, 0x11, 0x99}
	var v struct {
		P uintptr
		C uint8
	}
	// Block size 4: the debuggee stores pointers in 4 bytes.
	if err := Extract(bytes.NewReader(data), &v, 4); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if v.P != 0x11223344 {
		t.Errorf("P = %#x, want zero-extended 0x11223344", v.P)
	}
	if v.C != 0x99 {
		t.Errorf("C = %#x, want 0x99", v.C)
	}
}

func TestExtractIgnoreTag(t *testing.T) {
	data := []byte{0x11, 0x22}
	var v struct {
		A uint8
		S string `encoding:"ignore"`
		B uint8
	}
	v.S = "kept"
	if err := Extract(bytes.NewReader(data), &v, 8); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if v.A != 0x11 || v.B != 0x22 {
		t.Errorf("A, B = %#x, %#x", v.A, v.B)
	}
	if v.S != "kept" {
		t.Errorf("ignored field overwritten: %q", v.S)
	}
}

func TestExtractRejectsUnsupported(t *testing.T) {
	var s string
	if err := Extract(bytes.NewReader([]byte{1}), &s, 8); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("string: err = %v, want ErrUnsupportedType", err)
	}
	var u uint32
	if err := Extract(bytes.NewReader(nil), u, 8); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("non-pointer: err = %v, want ErrUnsupportedType", err)
	}
	if err := Extract(bytes.NewReader(nil), &u, 3); !errors.Is(err, ErrBlockSize) {
		t.Errorf("block size 3: err = %v, want ErrBlockSize", err)
	}
}

func TestExtractShortRead(t *testing.T) {
	var v uint64
	err := Extract(bytes.NewReader([]byte{1, 2}), &v, 8)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("err = %v, want ErrUnexpectedEOF", err)
	}
}
