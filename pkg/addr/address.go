// Package addr holds the primitive types shared by every other package in
// the matching engine: program addresses and the mnemonic/prime arithmetic
// used to build structural signatures.
package addr

import "fmt"

// Address identifies an instruction or function entry point within a
// program image. Zero is a legal address; it is only a sentinel where a
// caller documents it as one (flow graph call-target slots use MaxIndex,
// not address zero, as their sentinel).
type Address uint64

// String renders the address the way the rest of the toolchain expects to
// see it in diagnostics: zero-padded lowercase hex with a 0x prefix.
func (a Address) String() string {
	return fmt.Sprintf("0x%08x", uint64(a))
}

// MaxIndex is the sentinel used for "no call target" / "no such vertex"
// index slots.
const MaxIndex = ^uint32(0)
