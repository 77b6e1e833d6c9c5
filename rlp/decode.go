package rlp

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
)

var (
	ErrUnexpectedEOF   = errors.New("rlp: input too short")
	ErrTrailingBytes   = errors.New("rlp: trailing bytes after value")
	ErrNonCanonical    = errors.New("rlp: non-canonical encoding")
	ErrExpectedString  = errors.New("rlp: expected a string, found a list")
	ErrExpectedList    = errors.New("rlp: expected a list, found a string")
	ErrValueTooLarge   = errors.New("rlp: value does not fit target type")
)

// DecodeBytes parses the RLP value in data into the value pointed at by
// v. The whole input must be consumed.
func DecodeBytes(data []byte, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("rlp: decode target must be a non-nil pointer")
	}
	s := &stream{data: data}
	if err := s.decode(rv.Elem()); err != nil {
		return err
	}
	if s.pos != len(s.data) {
		return ErrTrailingBytes
	}
	return nil
}

// stream is a cursor over an RLP input.
type stream struct {
	data []byte
	pos  int
}

// item describes the value at the cursor without consuming its payload.
type item struct {
	list       bool
	payloadPos int
	payloadLen int
	end        int
}

// peek parses the header of the next value.
func (s *stream) peek() (item, error) {
	if s.pos >= len(s.data) {
		return item{}, ErrUnexpectedEOF
	}
	b := s.data[s.pos]
	switch {
	case b < 0x80: // single byte, its own encoding
		return item{payloadPos: s.pos, payloadLen: 1, end: s.pos + 1}, nil

	case b < 0xb8: // short string
		n := int(b - 0x80)
		start := s.pos + 1
		if start+n > len(s.data) {
			return item{}, ErrUnexpectedEOF
		}
		if n == 1 && s.data[start] < 0x80 {
			return item{}, ErrNonCanonical // should have been a single byte
		}
		return item{payloadPos: start, payloadLen: n, end: start + n}, nil

	case b < 0xc0: // long string
		n, start, err := s.longLength(int(b - 0xb7))
		if err != nil {
			return item{}, err
		}
		if n < 56 {
			return item{}, ErrNonCanonical
		}
		return item{payloadPos: start, payloadLen: n, end: start + n}, nil

	case b < 0xf8: // short list
		n := int(b - 0xc0)
		start := s.pos + 1
		if start+n > len(s.data) {
			return item{}, ErrUnexpectedEOF
		}
		return item{list: true, payloadPos: start, payloadLen: n, end: start + n}, nil

	default: // long list
		n, start, err := s.longLength(int(b - 0xf7))
		if err != nil {
			return item{}, err
		}
		if n < 56 {
			return item{}, ErrNonCanonical
		}
		return item{list: true, payloadPos: start, payloadLen: n, end: start + n}, nil
	}
}

// longLength reads a big-endian length of lenBytes bytes after the tag.
func (s *stream) longLength(lenBytes int) (length, payloadStart int, err error) {
	start := s.pos + 1
	if start+lenBytes > len(s.data) {
		return 0, 0, ErrUnexpectedEOF
	}
	if s.data[start] == 0 {
		return 0, 0, ErrNonCanonical // leading zero in length
	}
	n := 0
	for _, b := range s.data[start : start+lenBytes] {
		if n > (1<<31)/256 {
			return 0, 0, ErrValueTooLarge
		}
		n = n<<8 | int(b)
	}
	payloadStart = start + lenBytes
	if payloadStart+n > len(s.data) {
		return 0, 0, ErrUnexpectedEOF
	}
	return n, payloadStart, nil
}

// bytes consumes the next value as a string and returns its payload.
func (s *stream) bytes() ([]byte, error) {
	it, err := s.peek()
	if err != nil {
		return nil, err
	}
	if it.list {
		return nil, ErrExpectedString
	}
	s.pos = it.end
	return s.data[it.payloadPos : it.payloadPos+it.payloadLen], nil
}

// enterList consumes the list header and returns a sub-stream over its
// payload.
func (s *stream) enterList() (*stream, error) {
	it, err := s.peek()
	if err != nil {
		return nil, err
	}
	if !it.list {
		return nil, ErrExpectedList
	}
	s.pos = it.end
	return &stream{data: s.data[it.payloadPos : it.payloadPos+it.payloadLen]}, nil
}

func (s *stream) exhausted() bool {
	return s.pos >= len(s.data)
}

// decode reads the next value into rv.
func (s *stream) decode(rv reflect.Value) error {
	// Allocate through pointers.
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}

	if rv.Type() == bigIntType {
		b, err := s.bytes()
		if err != nil {
			return err
		}
		if len(b) > 0 && b[0] == 0 {
			return ErrNonCanonical // integers have no leading zeros
		}
		rv.Addr().Interface().(*big.Int).SetBytes(b)
		return nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		b, err := s.bytes()
		if err != nil {
			return err
		}
		switch {
		case len(b) == 0:
			rv.SetBool(false)
		case len(b) == 1 && b[0] == 1:
			rv.SetBool(true)
		default:
			return fmt.Errorf("rlp: invalid bool encoding %x", b)
		}
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		b, err := s.bytes()
		if err != nil {
			return err
		}
		if len(b) > 0 && b[0] == 0 {
			return ErrNonCanonical
		}
		if len(b) > 8 || uint(len(b)*8) > uint(rv.Type().Bits()) {
			return ErrValueTooLarge
		}
		var n uint64
		for _, c := range b {
			n = n<<8 | uint64(c)
		}
		rv.SetUint(n)
		return nil

	case reflect.String:
		b, err := s.bytes()
		if err != nil {
			return err
		}
		rv.SetString(string(b))
		return nil

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b, err := s.bytes()
			if err != nil {
				return err
			}
			cp := make([]byte, len(b))
			copy(cp, b)
			rv.SetBytes(cp)
			return nil
		}
		return s.decodeSlice(rv)

	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b, err := s.bytes()
			if err != nil {
				return err
			}
			if len(b) != rv.Len() {
				return fmt.Errorf("rlp: byte array length mismatch: got %d, want %d", len(b), rv.Len())
			}
			reflect.Copy(rv, reflect.ValueOf(b))
			return nil
		}
		return s.decodeArray(rv)

	case reflect.Struct:
		return s.decodeStruct(rv)

	default:
		return fmt.Errorf("rlp: unsupported decode type %v", rv.Type())
	}
}

func (s *stream) decodeSlice(rv reflect.Value) error {
	inner, err := s.enterList()
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(rv.Type(), 0, 4)
	for !inner.exhausted() {
		elem := reflect.New(rv.Type().Elem()).Elem()
		if err := inner.decode(elem); err != nil {
			return err
		}
		out = reflect.Append(out, elem)
	}
	rv.Set(out)
	return nil
}

func (s *stream) decodeArray(rv reflect.Value) error {
	inner, err := s.enterList()
	if err != nil {
		return err
	}
	for i := 0; i < rv.Len(); i++ {
		if inner.exhausted() {
			return ErrUnexpectedEOF
		}
		if err := inner.decode(rv.Index(i)); err != nil {
			return err
		}
	}
	if !inner.exhausted() {
		return ErrTrailingBytes
	}
	return nil
}

func (s *stream) decodeStruct(rv reflect.Value) error {
	inner, err := s.enterList()
	if err != nil {
		return err
	}
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" || f.Tag.Get("rlp") == "-" {
			continue
		}
		if inner.exhausted() {
			return fmt.Errorf("rlp: too few list elements for %v", t)
		}
		if err := inner.decode(rv.Field(i)); err != nil {
			return fmt.Errorf("rlp: field %s.%s: %w", t.Name(), f.Name, err)
		}
	}
	if !inner.exhausted() {
		return fmt.Errorf("rlp: too many list elements for %v", t)
	}
	return nil
}
