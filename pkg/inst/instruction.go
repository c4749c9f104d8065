// Package inst models a single disassembled instruction and the per-diff
// mnemonic interner that assigns it a stable, comparable identity.
package inst

import (
	"encoding/binary"
	"fmt"

	"github.com/oisee/bindiffcore/pkg/addr"
)

// Instruction is immutable after construction. Prime is
// addr.MnemonicPrime of the mnemonic (see Cache.Prime), separate from the
// sequential id Cache.Intern assigns; equal primes imply equal mnemonic
// under that hash.
type Instruction struct {
	address    addr.Address
	mnemonicID uint32
	prime      uint32
}

// New constructs an Instruction. Callers obtain mnemonicID/prime from a
// Cache so that the same mnemonic string always yields the same pair
// within one diff.
func New(address addr.Address, mnemonicID, prime uint32) Instruction {
	return Instruction{address: address, mnemonicID: mnemonicID, prime: prime}
}

// Address returns the instruction's address.
func (i Instruction) Address() addr.Address { return i.address }

// MnemonicID returns the interned mnemonic id.
func (i Instruction) MnemonicID() uint32 { return i.mnemonicID }

// Prime returns the additive signature used for prime-sums and LCS.
func (i Instruction) Prime() uint32 { return i.prime }

// GobEncode/GobDecode let Instruction round-trip through encoding/gob
// despite holding only unexported fields (gob silently skips unexported
// fields for plain struct encoding, which would drop every field here).
func (i Instruction) GobEncode() ([]byte, error) {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(i.address))
	binary.BigEndian.PutUint32(buf[8:12], i.mnemonicID)
	binary.BigEndian.PutUint32(buf[12:16], i.prime)
	return buf, nil
}

func (i *Instruction) GobDecode(data []byte) error {
	if len(data) != 16 {
		return fmt.Errorf("inst: GobDecode: want 16 bytes, got %d", len(data))
	}
	i.address = addr.Address(binary.BigEndian.Uint64(data[0:8]))
	i.mnemonicID = binary.BigEndian.Uint32(data[8:12])
	i.prime = binary.BigEndian.Uint32(data[12:16])
	return nil
}

// Pair is one matched (primary, secondary) instruction pair, as produced
// by LCS or by the entry/exit/jump-sequence basic-block steps.
type Pair struct {
	Primary   Instruction
	Secondary Instruction
}
