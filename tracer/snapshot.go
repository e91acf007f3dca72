package tracer

import (
	"github.com/QuangTung97/bankpool/allocator"
)

// Snapshot is a consistent copy of the tracer state.
type Snapshot struct {
	NetAllocCount int64
	Flags         Flags
	UnusedNodes   uint32
	UsedNodes     uint32

	// BankBytes[i] is the number of bytes held by live allocations of bank i
	BankBytes []uint64
	// Repeats lists call sites in order of first appearance in the used list
	Repeats []RepeatStat
	// DoubleFrees lists where unmatched frees happened, bounded by Config.DoubleFreeSlots
	DoubleFrees []allocator.CallSite
}

// aggregate fills bankBytes and repeat from the used list. Sites that do not
// fit in the repeat table are not counted.
func (t *Tracer) aggregate() {
	for i := range t.bankBytes {
		t.bankBytes[i] = 0
	}
	for i := range t.repeat {
		t.repeat[i] = RepeatStat{}
	}

	for index := t.used.head; index != nullIndex; index = t.nodes[index].next {
		n := &t.nodes[index]
		t.bankBytes[n.bank] += uint64(n.size)

		for i := range t.repeat {
			slot := &t.repeat[i]
			if slot.Count == 0 {
				slot.Site = n.site
				slot.Count = 1
				break
			}
			if slot.Site == n.site {
				slot.Count++
				break
			}
		}
	}
}

// Snapshot aggregates the used list under the lock. Callers format the result after it returns.
func (t *Tracer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.aggregate()

	result := Snapshot{
		NetAllocCount: t.netAllocCount,
		Flags:         t.flags,
		UnusedNodes:   t.unused.count,
		UsedNodes:     t.used.count,
		BankBytes:     make([]uint64, len(t.bankBytes)),
		DoubleFrees:   make([]allocator.CallSite, t.doubleCount),
	}
	copy(result.BankBytes, t.bankBytes)
	copy(result.DoubleFrees, t.doubleFrees[:t.doubleCount])

	for _, r := range t.repeat {
		if r.Count == 0 {
			break
		}
		result.Repeats = append(result.Repeats, r)
	}
	return result
}

// TotalBytes ...
func (s Snapshot) TotalBytes() uint64 {
	total := uint64(0)
	for _, b := range s.BankBytes {
		total += b
	}
	return total
}
