// Package encoding extracts Go values from raw debuggee memory. The block
// size is the debuggee's pointer width in bytes, so pointer-sized fields
// (int, uint, uintptr) decode at the debuggee's size even when a 64-bit
// debugger inspects a 32-bit process.
//
// Supported shapes are fixed-size scalars, arrays of them, and flat
// structs. Struct fields are consumed sequentially in declaration order
// with no padding; describe the debuggee layout with explicitly sized
// fields, and tag fields `encoding:"ignore"` to leave them untouched.
// Byte order is the debuggee's, assumed little-endian.
package encoding

import (
	"errors"
	"io"
	"reflect"
	"unsafe"

	"github.com/modern-go/reflect2"
)

var (
	ErrUnsupportedType = errors.New("encoding: unsupported type")
	ErrBlockSize       = errors.New("encoding: block size must be 4 or 8")
)

// Extract reads the in-memory representation of *val from r. val must be a
// non-nil pointer.
func Extract(r io.Reader, val any, blockSize int) error {
	if blockSize != 4 && blockSize != 8 {
		return ErrBlockSize
	}
	ptr := reflect2.PtrOf(val)
	if ptr == nil {
		return ErrUnsupportedType
	}
	typ := reflect2.TypeOf(val).Type1()
	if typ.Kind() != reflect.Pointer {
		return ErrUnsupportedType
	}
	return extract(r, typ.Elem(), ptr, blockSize)
}

func extract(r io.Reader, typ reflect.Type, ptr unsafe.Pointer, bs int) error {
	switch typ.Kind() {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return readFull(r, unsafe.Slice((*byte)(ptr), typ.Size()))
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return extractWord(r, ptr, int(typ.Size()), bs)
	case reflect.Array:
		elem := typ.Elem()
		elemSize := elem.Size()
		for i := 0; i < typ.Len(); i++ {
			if err := extract(r, elem, unsafe.Add(ptr, uintptr(i)*elemSize), bs); err != nil {
				return err
			}
		}
		return nil
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if field.Tag.Get("encoding") == "ignore" {
				continue
			}
			if err := extract(r, field.Type, unsafe.Add(ptr, field.Offset), bs); err != nil {
				return err
			}
		}
		return nil
	}
	return ErrUnsupportedType
}

// extractWord reads a debuggee-pointer-sized little-endian value into a
// field of the debugger's word size, zero-extending when the debuggee is
// narrower.
func extractWord(r io.Reader, ptr unsafe.Pointer, size, bs int) error {
	if bs >= size {
		return readFull(r, unsafe.Slice((*byte)(ptr), size))
	}
	var buf [8]byte
	if err := readFull(r, buf[:bs]); err != nil {
		return err
	}
	dst := unsafe.Slice((*byte)(ptr), size)
	n := copy(dst, buf[:bs])
	for i := n; i < size; i++ {
		dst[i] = 0
	}
	return nil
}

func readFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}
