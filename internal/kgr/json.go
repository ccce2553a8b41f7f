package kgr

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	json "github.com/clarketm/json"
)

// EncodeJSON renders v as RFC 8259 JSON text. Object key order is the
// OrderedMap's insertion order; JSON itself is silent on map ordering but
// the byte stream this function produces is deterministic.
func EncodeJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJSON(buf *bytes.Buffer, v Value) error {
	switch v.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.AsInt(), 10))
	case KindFloat:
		buf.WriteString(strconv.FormatFloat(v.AsFloat(), 'g', -1, 64))
	case KindBool:
		if v.AsBool() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindString:
		b, err := json.Marshal(v.AsString())
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.AsArray() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		first := true
		var rangeErr error
		v.AsObject().Range(func(key string, val Value) bool {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			kb, err := json.Marshal(key)
			if err != nil {
				rangeErr = err
				return false
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeJSON(buf, val); err != nil {
				rangeErr = err
				return false
			}
			return true
		})
		if rangeErr != nil {
			return rangeErr
		}
		buf.WriteByte('}')
	}
	return nil
}

// DecodeJSON parses exactly one JSON text from r into a Value. Integer
// literals within int64 range decode to KindInt; every other number
// decodes to KindFloat (spec.md §4.1).
func DecodeJSON(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return decodeJSONValue(dec)
}

func DecodeJSONBytes(b []byte) (Value, error) {
	return DecodeJSON(bytes.NewReader(b))
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeJSONToken(dec, tok)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case json.Delim:
		switch t {
		case '[':
			arr := make([]Value, 0)
			for dec.More() {
				ev, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, ev)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Array(arr...), nil
		case '{':
			om := NewOrderedMap()
			for dec.More() {
				ktok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := ktok.(string)
				if !ok {
					return Value{}, fmt.Errorf("kgr: object key is not a string: %v", ktok)
				}
				vv, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				om.Set(key, vv) // duplicate keys: last occurrence wins
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return Object(om), nil
		}
	}
	return Value{}, fmt.Errorf("kgr: unexpected JSON token %v", tok)
}
