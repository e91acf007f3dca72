package allocator

import "fmt"

// Addr is an opaque address handed out by a Registry.
// Bank i owns the window [(i+1)<<32, (i+1)<<32 + PoolSize).
type Addr uint64

// NilAddr belongs to no bank.
const NilAddr Addr = 0

const (
	addrBankShift = 32
	maxBanks      = 1<<16 - 1
)

func bankBase(id int) Addr {
	return Addr(uint64(id+1) << addrBankShift)
}

func makeAddr(id int, offset uint32) Addr {
	return bankBase(id) + Addr(offset)
}

// IsNil ...
func (a Addr) IsNil() bool {
	return a == NilAddr
}

// String ...
func (a Addr) String() string {
	return fmt.Sprintf("0x%012x", uint64(a))
}

func (b *Bank) contains(addr Addr) bool {
	base := bankBase(b.id)
	return addr >= base && addr < base+Addr(b.poolSize)
}

// Resolve returns the bank whose window contains addr, checking banks in id order.
func (r *Registry) Resolve(addr Addr) (int, bool) {
	for _, b := range r.banks {
		if b.contains(addr) {
			return b.id, true
		}
	}
	return -1, false
}

func (r *Registry) offsetOf(b *Bank, addr Addr) uint32 {
	return uint32(addr - bankBase(b.id))
}

// Offset returns the byte offset of addr inside its bank.
func (r *Registry) Offset(addr Addr) (int, uint32, bool) {
	id, ok := r.Resolve(addr)
	if !ok {
		return -1, 0, false
	}
	return id, r.offsetOf(r.banks[id], addr), true
}
