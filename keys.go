// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

// IPROTO header and body map keys (spec.md §4.3/§4.4/§6). These are
// wire-format constants, not internal implementation detail — any client
// speaking this protocol uses the same numbers.
const (
	iprotoRequestType   = 0x00
	iprotoSync          = 0x01
	iprotoStreamID      = 0x0a
	iprotoSchemaVersion = 0x05

	iprotoSpaceID  = 0x10
	iprotoIndexID  = 0x11
	iprotoLimit    = 0x12
	iprotoOffset   = 0x13
	iprotoIterator = 0x14

	iprotoKey          = 0x20
	iprotoTuple        = 0x21
	iprotoFunctionName = 0x22
	iprotoUserName     = 0x23
	iprotoExpr         = 0x27
	iprotoOps          = 0x28

	iprotoData     = 0x30
	iprotoError24  = 0x31
	iprotoMetadata = 0x32

	iprotoSQLText   = 0x40
	iprotoSQLBind   = 0x41
	iprotoSQLInfo   = 0x42
	iprotoStmtID    = 0x43
	iprotoBindCount = 0x44

	iprotoError = 0x52
)

// Request type codes (the header's iprotoRequestType value).
const (
	iprotoOK       = 0x00
	iprotoSelect   = 0x01
	iprotoInsert   = 0x02
	iprotoReplace  = 0x03
	iprotoUpdate   = 0x04
	iprotoDelete   = 0x05
	iprotoAuth     = 0x07
	iprotoEval     = 0x08
	iprotoUpsert   = 0x09
	iprotoCall     = 0x0a
	iprotoExecute  = 0x0b
	iprotoPrepare  = 0x0d
	iprotoBegin    = 0x0e
	iprotoCommit   = 0x0f
	iprotoRollback = 0x10
	iprotoPing     = 0x40
)

// sql_info body sub-keys.
const (
	sqlInfoRowCount         = 0x00
	sqlInfoAutoincrementIDs = 0x01
)

// Column descriptor map keys within a metadata entry.
const (
	fieldName           = 0x00
	fieldType           = 0x01
	fieldColl           = 0x02
	fieldIsNullable     = 0x03
	fieldIsAutoincrement = 0x04
	fieldSpan           = 0x05
)
