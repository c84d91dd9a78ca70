// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

// MsgPack type-byte constants (https://github.com/msgpack/msgpack/blob/master/spec.md).
const (
	mpPositiveFixintMax = 0x7f
	mpFixmapMask        = 0x80
	mpFixarrayMask       = 0x90
	mpFixstrMask         = 0xa0
	mpNil                = 0xc0
	mpFalse              = 0xc2
	mpTrue               = 0xc3
	mpBin8               = 0xc4
	mpBin16              = 0xc5
	mpBin32              = 0xc6
	mpExt8               = 0xc7
	mpExt16              = 0xc8
	mpExt32              = 0xc9
	mpFloat32            = 0xca
	mpFloat64            = 0xcb
	mpUint8              = 0xcc
	mpUint16             = 0xcd
	mpUint32             = 0xce
	mpUint64             = 0xcf
	mpInt8               = 0xd0
	mpInt16              = 0xd1
	mpInt32              = 0xd2
	mpInt64              = 0xd3
	mpFixext1            = 0xd4
	mpFixext2            = 0xd5
	mpFixext4            = 0xd6
	mpFixext8            = 0xd7
	mpFixext16           = 0xd8
	mpStr8               = 0xd9
	mpStr16              = 0xda
	mpStr32              = 0xdb
	mpArray16            = 0xdc
	mpArray32            = 0xdd
	mpMap16              = 0xde
	mpMap32              = 0xdf
	mpNegativeFixintMin  = 0xe0
)

// fixstrMax, fixarrayMax, fixmapMax are the inline-length ceilings for the
// "fixed" encodings, beyond which an 8/16/32-bit length form is required.
const (
	fixstrMax   = 31
	fixarrayMax = 15
	fixmapMax   = 15
)
