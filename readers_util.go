// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

// funcMapReader adapts plain closures to the MapReader interface, so
// ad-hoc "map of known keys" shapes (spec.md §4.2/§4.4) can be declared
// inline at each call site instead of requiring a named type per header or
// body variant.
type funcMapReader struct {
	onHeader    func(count uint32) ReadResult
	keyReader   func() Reader
	valueReader func(key Value) Reader
}

func (f *funcMapReader) Accept() Family { return FamilyMap }

func (f *funcMapReader) OnMapHeader(count uint32) ReadResult {
	if f.onHeader != nil {
		return f.onHeader(count)
	}
	return ReadSuccess
}

func (f *funcMapReader) KeyReader() Reader {
	if f.keyReader != nil {
		return f.keyReader()
	}
	return skipReader
}

func (f *funcMapReader) ValueReader(key Value) Reader {
	if f.valueReader != nil {
		return f.valueReader(key)
	}
	return skipReader
}

// funcArrReader adapts plain closures to the ArrReader interface.
type funcArrReader struct {
	onHeader      func(count uint32) ReadResult
	elementReader func(i uint32) Reader
}

func (f *funcArrReader) Accept() Family { return FamilyArr }

func (f *funcArrReader) OnArrayHeader(count uint32) ReadResult {
	if f.onHeader != nil {
		return f.onHeader(count)
	}
	return ReadSuccess
}

func (f *funcArrReader) ElementReader(i uint32) Reader {
	if f.elementReader != nil {
		return f.elementReader(i)
	}
	return skipReader
}

// newKeyedMapReader builds a MapReader for the common case of a map whose
// keys are known small uint codes, each routed to its own destination
// Value. Unknown keys are skipped, matching spec.md §4.4's "unknown keys
// are skipped" rule. keyHolder only needs to exist to satisfy the Reader
// contract for the key slot — the Decoder's own dispatchMap loop is what
// actually hands ValueReader the decoded key.
func newKeyedMapReader(dispatch map[uint64]*Value) Reader {
	var keyHolder Value
	return &funcMapReader{
		keyReader: func() Reader { return capture(&keyHolder) },
		valueReader: func(key Value) Reader {
			k, ok := key.Uint()
			if !ok {
				return skipReader
			}
			dst, ok := dispatch[k]
			if !ok {
				return skipReader
			}
			return capture(dst)
		},
	}
}
