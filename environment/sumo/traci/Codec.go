package traci

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var errShortRead = errors.New("traci: response truncated")

// storage accumulates big-endian encoded TraCI values
type storage struct {
	bytes.Buffer
}

func (s *storage) ubyte(b byte) {
	s.WriteByte(b)
}

func (s *storage) int32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	s.Write(b[:])
}

func (s *storage) double(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	s.Write(b[:])
}

func (s *storage) str(v string) {
	s.int32(int32(len(v)))
	s.WriteString(v)
}

func (s *storage) strList(v []string) {
	s.int32(int32(len(v)))
	for _, str := range v {
		s.str(str)
	}
}

// command appends a framed command. Commands longer than 255 bytes use the
// extended length field.
func (s *storage) command(id byte, payload []byte) {
	length := 1 + 1 + len(payload)
	if length <= math.MaxUint8 {
		s.ubyte(byte(length))
	} else {
		s.ubyte(0)
		s.int32(int32(length + 4))
	}
	s.ubyte(id)
	s.Write(payload)
}

// message frames a sequence of commands with the total message length
func message(commands []byte) []byte {
	var s storage
	s.int32(int32(len(commands) + 4))
	s.Write(commands)
	return s.Bytes()
}

// reader decodes big-endian TraCI values. The first error is sticky.
type reader struct {
	buf []byte
	pos int
	err error
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = errShortRead
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) ubyte() byte {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) int32() int32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

func (r *reader) double() float64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func (r *reader) str() string {
	n := r.int32()
	b := r.next(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

// commandEnd reads a command length field, returning the offset at which
// the command ends
func (r *reader) commandEnd() int {
	start := r.pos
	length := int(r.ubyte())
	if length == 0 {
		length = int(r.int32())
	}
	return start + length
}

// skipTo moves past the end of the current command
func (r *reader) skipTo(end int) {
	if r.err != nil {
		return
	}
	if end < r.pos || end > len(r.buf) {
		r.err = errShortRead
		return
	}
	r.pos = end
}

// status reads the status response of a command
func (r *reader) status(expected byte) error {
	end := r.commandEnd()
	id := r.ubyte()
	result := r.ubyte()
	description := r.str()
	r.skipTo(end)
	if r.err != nil {
		return r.err
	}
	if id != expected {
		return fmt.Errorf("traci: status for command 0x%02x, expected 0x%02x",
			id, expected)
	}
	if result != resultOK {
		return &CommandError{Command: id, Result: result,
			Description: description}
	}
	return nil
}

// typed checks the type tag preceding a value
func (r *reader) typed(expected byte) error {
	tag := r.ubyte()
	if r.err != nil {
		return r.err
	}
	if tag != expected {
		return fmt.Errorf("traci: expected type 0x%02x, received 0x%02x",
			expected, tag)
	}
	return nil
}
