package kgr

import "github.com/sloked/sloked/internal/slkerr"

// Field looks up key in an object Value, returning TypeMismatch if v is
// not an object or the key is absent. RPC method handlers decode their
// params object through this helper rather than panicking accessors.
func Field(v Value, key string) (Value, error) {
	if !v.IsObject() {
		return Value{}, slkerr.New(slkerr.TypeMismatch, "expected object, got %v", v.Kind())
	}
	f, ok := v.AsObject().Get(key)
	if !ok {
		return Value{}, slkerr.New(slkerr.TypeMismatch, "missing field %q", key)
	}
	return f, nil
}

// OptField is like Field but returns def and no error when the key is
// absent or v is Null.
func OptField(v Value, key string, def Value) (Value, error) {
	if v.IsNull() {
		return def, nil
	}
	if !v.IsObject() {
		return Value{}, slkerr.New(slkerr.TypeMismatch, "expected object, got %v", v.Kind())
	}
	f, ok := v.AsObject().Get(key)
	if !ok {
		return def, nil
	}
	return f, nil
}

func FieldString(v Value, key string) (string, error) {
	f, err := Field(v, key)
	if err != nil {
		return "", err
	}
	if !f.IsString() {
		return "", slkerr.New(slkerr.TypeMismatch, "field %q: expected string, got %v", key, f.Kind())
	}
	return f.AsString(), nil
}

func FieldInt(v Value, key string) (int64, error) {
	f, err := Field(v, key)
	if err != nil {
		return 0, err
	}
	n, ok := f.Number()
	if !ok {
		return 0, slkerr.New(slkerr.TypeMismatch, "field %q: expected number, got %v", key, f.Kind())
	}
	return int64(n), nil
}

func OptFieldInt(v Value, key string, def int64) (int64, error) {
	f, err := OptField(v, key, Int(def))
	if err != nil {
		return 0, err
	}
	n, ok := f.Number()
	if !ok {
		return 0, slkerr.New(slkerr.TypeMismatch, "field %q: expected number, got %v", key, f.Kind())
	}
	return int64(n), nil
}

func FieldBool(v Value, key string, def bool) (bool, error) {
	f, err := OptField(v, key, Bool(def))
	if err != nil {
		return false, err
	}
	if !f.IsBool() {
		return false, slkerr.New(slkerr.TypeMismatch, "field %q: expected bool, got %v", key, f.Kind())
	}
	return f.AsBool(), nil
}
