// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

// IteratorType selects a server-side scan direction/predicate for select
// requests (spec.md §4.3 / GLOSSARY). Values are plain integer codes on the
// wire, confirmed against original_source/drewdzzz/tntcxx's ClientTest.cpp
// usage (`IteratorType::EQ`, `IteratorType::ALL`, ...).
type IteratorType uint32

const (
	IterEQ IteratorType = iota
	IterREQ
	IterALL
	IterLT
	IterLE
	IterGE
	IterGT
	IterBitsAllSet
	IterBitsAnySet
	IterBitsAllNotSet
	IterOverlaps
	IterNeighbor
)

func (it IteratorType) String() string {
	switch it {
	case IterEQ:
		return "EQ"
	case IterREQ:
		return "REQ"
	case IterALL:
		return "ALL"
	case IterLT:
		return "LT"
	case IterLE:
		return "LE"
	case IterGE:
		return "GE"
	case IterGT:
		return "GT"
	case IterBitsAllSet:
		return "BITS_ALL_SET"
	case IterBitsAnySet:
		return "BITS_ANY_SET"
	case IterBitsAllNotSet:
		return "BITS_ALL_NOT_SET"
	case IterOverlaps:
		return "OVERLAPS"
	case IterNeighbor:
		return "NEIGHBOR"
	default:
		return "UNKNOWN"
	}
}
