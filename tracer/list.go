package tracer

import (
	"math"

	"github.com/QuangTung97/bankpool/allocator"
)

const nullIndex uint32 = math.MaxUint32

type node struct {
	next uint32
	site allocator.CallSite
	addr allocator.Addr
	size uint32
	bank int
}

// nodeList is a singly linked FIFO of arena slots.
type nodeList struct {
	head  uint32
	tail  uint32
	count uint32
}

func newNodeList() nodeList {
	return nodeList{
		head:  nullIndex,
		tail:  nullIndex,
		count: 0,
	}
}

// popFront ...
func (l *nodeList) popFront(nodes []node) uint32 {
	index := l.head
	if index == nullIndex {
		return nullIndex
	}

	n := &nodes[index]
	l.head = n.next
	if l.head == nullIndex {
		l.tail = nullIndex
	}
	n.next = nullIndex
	l.count--

	return index
}

// pushBack ...
func (l *nodeList) pushBack(nodes []node, index uint32) {
	n := &nodes[index]
	n.next = nullIndex

	if l.head == nullIndex {
		l.head = index
	} else {
		nodes[l.tail].next = index
	}
	l.tail = index
	l.count++
}

// removeAddr unlinks the first node holding addr.
func (l *nodeList) removeAddr(nodes []node, addr allocator.Addr) uint32 {
	prev := nullIndex
	for index := l.head; index != nullIndex; index = nodes[index].next {
		n := &nodes[index]
		if n.addr != addr {
			prev = index
			continue
		}

		if prev == nullIndex {
			l.head = n.next
		} else {
			nodes[prev].next = n.next
		}
		if l.tail == index {
			l.tail = prev
		}
		n.next = nullIndex
		l.count--

		return index
	}
	return nullIndex
}

func (l *nodeList) contentOfList(nodes []node) []uint32 {
	var result []uint32
	for index := l.head; index != nullIndex; index = nodes[index].next {
		result = append(result, index)
	}
	return result
}
