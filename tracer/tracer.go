package tracer

import (
	"sync"

	"github.com/QuangTung97/bankpool/allocator"
)

// Flags ...
type Flags uint16

const (
	// FlagEmpty is set while no unused node is left
	FlagEmpty Flags = 1 << iota
	// FlagOverflow is set once an Add found no unused node, until Reset
	FlagOverflow
)

// Has ...
func (f Flags) Has(mask Flags) bool {
	return f&mask != 0
}

// Config ...
type Config struct {
	Nodes           uint32
	Banks           int
	RepeatSlots     int
	DoubleFreeSlots int
}

// RepeatStat counts the live allocations made from one call site.
type RepeatStat struct {
	Site  allocator.CallSite
	Count uint32
}

// Tracer mirrors live allocations in a fixed arena of nodes.
// It never allocates after New, so it can trace the allocator it depends on.
type Tracer struct {
	mu sync.Mutex

	banks  int
	nodes  []node
	unused nodeList
	used   nodeList

	netAllocCount int64
	flags         Flags

	bankBytes   []uint64
	repeat      []RepeatStat
	doubleFrees []allocator.CallSite
	doubleCount int
}

var _ allocator.Tracer = (*Tracer)(nil)

func tracerValidateConfig(conf Config) {
	if conf.Nodes == 0 || conf.Nodes >= uint32(nullIndex) {
		panic("Nodes must > 0")
	}
	if conf.Banks <= 0 {
		panic("Banks must > 0")
	}
	if conf.RepeatSlots <= 0 {
		panic("RepeatSlots must > 0")
	}
	if conf.DoubleFreeSlots <= 0 {
		panic("DoubleFreeSlots must > 0")
	}
}

// New ...
func New(conf Config) *Tracer {
	tracerValidateConfig(conf)

	t := &Tracer{
		banks:       conf.Banks,
		nodes:       make([]node, conf.Nodes),
		bankBytes:   make([]uint64, conf.Banks),
		repeat:      make([]RepeatStat, conf.RepeatSlots),
		doubleFrees: make([]allocator.CallSite, conf.DoubleFreeSlots),
	}
	t.reset()
	return t
}

func (t *Tracer) reset() {
	t.unused = newNodeList()
	t.used = newNodeList()
	for i := range t.nodes {
		t.nodes[i] = node{}
		t.unused.pushBack(t.nodes, uint32(i))
	}

	t.netAllocCount = 0
	t.flags = 0

	for i := range t.bankBytes {
		t.bankBytes[i] = 0
	}
	for i := range t.repeat {
		t.repeat[i] = RepeatStat{}
	}
	for i := range t.doubleFrees {
		t.doubleFrees[i] = allocator.CallSite{}
	}
	t.doubleCount = 0
}

// Reset drops every record and refills the unused pool.
func (t *Tracer) Reset() {
	t.mu.Lock()
	t.reset()
	t.mu.Unlock()
}

// Add records a live allocation. The net count is incremented even when no node is available.
func (t *Tracer) Add(bank int, size uint32, addr allocator.Addr, site allocator.CallSite) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.netAllocCount++

	if bank < 0 || bank >= t.banks {
		return false
	}

	index := t.unused.popFront(t.nodes)
	if index == nullIndex {
		t.flags |= FlagEmpty | FlagOverflow
		return false
	}

	n := &t.nodes[index]
	n.site = site
	n.addr = addr
	n.size = size
	n.bank = bank

	t.used.pushBack(t.nodes, index)
	return true
}

// Del removes the record of addr. A miss is recorded as a double or invalid free,
// unless the tracer has overflowed or tracks nothing.
func (t *Tracer) Del(addr allocator.Addr, site allocator.CallSite) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.netAllocCount--

	index := t.used.removeAddr(t.nodes, addr)
	if index == nullIndex {
		if !t.flags.Has(FlagOverflow) && t.used.count > 0 {
			t.recordDoubleFree(site)
		}
		return false
	}

	t.nodes[index] = node{}
	t.unused.pushBack(t.nodes, index)
	t.flags &^= FlagEmpty
	return true
}

func (t *Tracer) recordDoubleFree(site allocator.CallSite) {
	if t.doubleCount >= len(t.doubleFrees) {
		return
	}
	t.doubleFrees[t.doubleCount] = site
	t.doubleCount++
}

// NetAllocCount returns the number of Add calls minus the number of Del calls.
func (t *Tracer) NetAllocCount() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.netAllocCount
}

// Flags ...
func (t *Tracer) Flags() Flags {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags
}

// Lookup returns the recorded size and bank of a live allocation.
func (t *Tracer) Lookup(addr allocator.Addr) (size uint32, bank int, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for index := t.used.head; index != nullIndex; index = t.nodes[index].next {
		n := &t.nodes[index]
		if n.addr == addr {
			return n.size, n.bank, true
		}
	}
	return 0, -1, false
}
