// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

import (
	"fmt"

	"github.com/google/uuid"
)

// EncodeAny encodes a plain Go value using the narrowest matching MsgPack
// form, recursing into []any (array) and map[string]any / map[any]any
// (map). This is the glue that lets request bodies (tuples, call
// arguments, update operations) be built from ordinary Go literals instead
// of a dedicated builder type per shape.
func (e *Encoder) EncodeAny(v any) error {
	switch x := v.(type) {
	case nil:
		e.EncodeNil()
	case bool:
		e.EncodeBool(x)
	case int:
		e.EncodeInt(int64(x))
	case int8:
		e.EncodeInt(int64(x))
	case int16:
		e.EncodeInt(int64(x))
	case int32:
		e.EncodeInt(int64(x))
	case int64:
		e.EncodeInt(x)
	case uint:
		e.EncodeUint(uint64(x))
	case uint8:
		e.EncodeUint(uint64(x))
	case uint16:
		e.EncodeUint(uint64(x))
	case uint32:
		e.EncodeUint(uint64(x))
	case uint64:
		e.EncodeUint(x)
	case float32:
		e.EncodeFloat32(x)
	case float64:
		e.EncodeFloat64(x)
	case string:
		e.EncodeStr(x)
	case []byte:
		e.EncodeBin(x)
	case uuid.UUID:
		e.EncodeUUID(x)
	case Value:
		return e.encodeValueRef(x)
	case []any:
		e.EncodeArrayHeader(len(x))
		for _, elem := range x {
			if err := e.EncodeAny(elem); err != nil {
				return err
			}
		}
	case map[string]any:
		e.EncodeMapHeader(len(x))
		for k, val := range x {
			e.EncodeStr(k)
			if err := e.EncodeAny(val); err != nil {
				return err
			}
		}
	case map[any]any:
		e.EncodeMapHeader(len(x))
		for k, val := range x {
			if err := e.EncodeAny(k); err != nil {
				return err
			}
			if err := e.EncodeAny(val); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("tarantool: cannot encode Go value of type %T", v)
	}
	return nil
}

// encodeValueRef re-encodes a decoded scalar Value (nil, bool, int, float;
// floats are written in 64-bit form). View kinds (str/bin/arr/map/ext)
// return an error, since a Value does not carry the Buffer its bytes live
// in.
func (e *Encoder) encodeValueRef(v Value) error {
	switch v.Kind() {
	case FamilyNil:
		e.EncodeNil()
	case FamilyBool:
		b, _ := v.Bool()
		e.EncodeBool(b)
	case FamilyInt:
		if v.i < 0 {
			e.EncodeInt(v.i)
		} else {
			u, _ := v.Uint()
			e.EncodeUint(u)
		}
	case FamilyFloat:
		f, _ := v.Float64()
		e.EncodeFloat64(f)
	default:
		return fmt.Errorf("tarantool: cannot forward a %s Value without its source Buffer", v.Kind())
	}
	return nil
}

// EncodeTuple encodes values as a MsgPack array in a scratch Buffer and
// returns the raw bytes, for callers that want a reusable pre-built tuple.
func EncodeTuple(values ...any) ([]byte, error) {
	buf := NewBuffer()
	enc := NewEncoder(buf)
	enc.EncodeArrayHeader(len(values))
	for _, v := range values {
		if err := enc.EncodeAny(v); err != nil {
			return nil, err
		}
	}
	out, _ := buf.Read(buf.Size())
	cp := make([]byte, len(out))
	copy(cp, out)
	return cp, nil
}
