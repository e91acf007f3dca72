package allocator

import (
	"sync"
)

// BankConfig ...
type BankConfig struct {
	Name      string
	BlockSize uint32
	PoolSize  uint32
}

// Bank is one independently locked memory pool, split into equal blocks.
// table[i] is 0 when block i is free, otherwise the length of the run covering it.
type Bank struct {
	mu sync.Mutex

	id        int
	name      string
	blockSize uint32
	poolSize  uint32
	tableSize uint32

	ready bool
	pool  []byte
	table []uint16
}

// NewBank ...
func NewBank(id int, conf BankConfig) *Bank {
	bankValidateConfig(conf)
	return &Bank{
		id:        id,
		name:      conf.Name,
		blockSize: conf.BlockSize,
		poolSize:  conf.PoolSize,
		tableSize: conf.PoolSize / conf.BlockSize,

		pool:  make([]byte, conf.PoolSize),
		table: make([]uint16, conf.PoolSize/conf.BlockSize),
	}
}

func bankValidateConfig(conf BankConfig) {
	if conf.BlockSize == 0 {
		panic("BlockSize must > 0")
	}
	if conf.PoolSize == 0 {
		panic("PoolSize must > 0")
	}
	if conf.PoolSize%conf.BlockSize != 0 {
		panic("PoolSize must be a multiple of BlockSize")
	}
	if conf.PoolSize/conf.BlockSize > maxTableSize {
		panic("PoolSize / BlockSize must fit in a 16 bit run tag")
	}
}

const maxTableSize = 1<<16 - 1

// ID ...
func (b *Bank) ID() int {
	return b.id
}

// Name ...
func (b *Bank) Name() string {
	return b.name
}

// BlockSize ...
func (b *Bank) BlockSize() uint32 {
	return b.blockSize
}

// PoolSize ...
func (b *Bank) PoolSize() uint32 {
	return b.poolSize
}

// TableSize ...
func (b *Bank) TableSize() uint32 {
	return b.tableSize
}

// Ready ...
func (b *Bank) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

func (b *Bank) init() {
	for i := range b.table {
		b.table[i] = 0
	}
	for i := range b.pool {
		b.pool[i] = 0
	}
	b.ready = true
}

// Init zeroes the table and the pool. Calling it again drops every allocation.
func (b *Bank) Init() {
	b.mu.Lock()
	b.init()
	b.mu.Unlock()
}

func (b *Bank) needBlocks(size uint32) uint32 {
	need := size / b.blockSize
	if size%b.blockSize != 0 {
		need++
	}
	return need
}

func (b *Bank) allocate(size uint32) (uint32, error) {
	if size == 0 {
		return 0, ErrZeroSize
	}
	if !b.ready {
		b.init()
	}

	need := b.needBlocks(size)
	if need > b.tableSize {
		return 0, ErrOutOfSpace
	}

	empty := uint32(0)
	for offset := int(b.tableSize) - 1; offset >= 0; offset-- {
		if b.table[offset] == 0 {
			empty++
		} else {
			empty = 0
		}

		if empty == need {
			for i := uint32(0); i < need; i++ {
				b.table[uint32(offset)+i] = uint16(need)
			}
			return uint32(offset) * b.blockSize, nil
		}
	}
	return 0, ErrOutOfSpace
}

// Allocate finds the free run of blocks closest to the end of the pool
// and returns its byte offset.
func (b *Bank) Allocate(size uint32) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allocate(size)
}

func (b *Bank) free(offset uint32) error {
	if !b.ready {
		b.init()
		return ErrNotReady
	}
	if offset >= b.poolSize {
		return ErrInvalidOffset
	}

	index := offset / b.blockSize
	run := uint32(b.table[index])
	for i := uint32(0); i < run && index+i < b.tableSize; i++ {
		b.table[index+i] = 0
	}
	return nil
}

// Free clears the run starting at the block containing offset.
// An offset pointing at a free block clears nothing.
func (b *Bank) Free(offset uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.free(offset)
}

func (b *Bank) usage() uint8 {
	used := uint32(0)
	for _, v := range b.table {
		if v != 0 {
			used++
		}
	}
	return uint8(used * 100 / b.tableSize)
}

// Usage returns the percentage of blocks in use, truncated.
func (b *Bank) Usage() uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usage()
}

func (b *Bank) contentOfTable() []uint16 {
	result := make([]uint16, len(b.table))
	copy(result, b.table)
	return result
}

// Table returns a copy of the block table.
func (b *Bank) Table() []uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.contentOfTable()
}

// bytes returns the backing memory of [offset, offset+size), clamped to the pool.
func (b *Bank) bytes(offset uint32, size uint32) []byte {
	if offset >= b.poolSize {
		return nil
	}
	end := uint64(offset) + uint64(size)
	if end > uint64(b.poolSize) {
		end = uint64(b.poolSize)
	}
	return b.pool[offset:end:end]
}
