package inst

import (
	"strings"

	"github.com/oisee/bindiffcore/pkg/addr"
)

// Cache interns mnemonic strings into 32-bit ids for a single diff. It is
// consulted on every instruction construction and must not be shared
// across worker goroutines.
// A Cache does not hold a mutex by design; sharing it across goroutines is
// a caller bug, not a supported configuration.
type Cache struct {
	ids   map[string]uint32
	names []string // ids[name] - 1 == index into names
}

// NewCache returns an empty, ready-to-use mnemonic cache.
func NewCache() *Cache {
	return &Cache{ids: make(map[string]uint32)}
}

// Intern returns the mnemonic id for name, assigning a fresh one on first
// sight. Capitalization is normalized here so that callers never have to
// pre-lowercase mnemonics themselves.
func (c *Cache) Intern(name string) uint32 {
	name = strings.ToLower(name)
	if id, ok := c.ids[name]; ok {
		return id
	}
	c.names = append(c.names, name)
	id := uint32(len(c.names))
	c.ids[name] = id
	return id
}

// Prime returns the additive signature for a previously (or freshly)
// interned mnemonic. It is derived from the mnemonic string via
// addr.MnemonicPrime, independent of the id assigned by Intern.
func (c *Cache) Prime(name string) uint32 {
	return addr.MnemonicPrime(strings.ToLower(name))
}

// Mnemonic resolves an id back to its interned string. Exposing the raw
// string requires the cache that produced the id.
func (c *Cache) Mnemonic(id uint32) (string, bool) {
	if id == 0 || int(id) > len(c.names) {
		return "", false
	}
	return c.names[id-1], true
}

// NewInstruction interns mnemonic and constructs an Instruction at address.
func (c *Cache) NewInstruction(address addr.Address, mnemonic string) Instruction {
	id := c.Intern(mnemonic)
	prime := c.Prime(mnemonic)
	return New(address, id, prime)
}
