// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package tarantool

// Family is a bitmask over the closed set of MsgPack kinds (spec.md §3).
// The bit assignment mirrors original_source/drewdzzz/tntcxx's
// mpp::compact::Family enumerator order exactly: bit i is set for
// enumerator i, so a Family value can name a single kind or, via bitwise OR,
// "any of these" — used by Decoder readers to declare which families they
// accept.
type Family uint32

const (
	FamilyNil Family = 1 << iota
	FamilyIgnored
	FamilyBool
	FamilyInt
	FamilyFloat
	FamilyStr
	FamilyBin
	FamilyArr
	FamilyMap
	FamilyExt

	FamilyNone Family = 0
	// FamilyNum groups the two numeric kinds, matching Constants.hpp's MP_NUM.
	FamilyNum = FamilyInt | FamilyFloat
	// FamilyAny accepts every kind.
	FamilyAny = FamilyNil | FamilyIgnored | FamilyBool | FamilyInt | FamilyFloat |
		FamilyStr | FamilyBin | FamilyArr | FamilyMap | FamilyExt
)

var familyNames = map[Family]string{
	FamilyNil:     "nil",
	FamilyIgnored: "ignored",
	FamilyBool:    "bool",
	FamilyInt:     "int",
	FamilyFloat:   "float",
	FamilyStr:     "str",
	FamilyBin:     "bin",
	FamilyArr:     "arr",
	FamilyMap:     "map",
	FamilyExt:     "ext",
}

// String renders a single-bit Family by name, or a "|"-joined list for a
// composite mask, matching the human-readable rendering in Constants.hpp.
func (f Family) String() string {
	if f == FamilyNone {
		return "none"
	}
	if name, ok := familyNames[f]; ok {
		return name
	}
	out := ""
	for bit, name := range familyNames {
		if f&bit != 0 {
			if out != "" {
				out += "|"
			}
			out += name
		}
	}
	if out == "" {
		return "bad"
	}
	return out
}

// Has reports whether f includes every bit in want.
func (f Family) Has(want Family) bool { return f&want == want }

// Any reports whether f includes at least one bit of want.
func (f Family) Any(want Family) bool { return f&want != 0 }
