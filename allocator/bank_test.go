package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBank() *Bank {
	return NewBank(0, BankConfig{
		Name:      "test",
		BlockSize: 32,
		PoolSize:  320,
	})
}

func TestNewBank(t *testing.T) {
	b := newTestBank()
	assert.Equal(t, 0, b.ID())
	assert.Equal(t, "test", b.Name())
	assert.Equal(t, uint32(32), b.BlockSize())
	assert.Equal(t, uint32(320), b.PoolSize())
	assert.Equal(t, uint32(10), b.TableSize())
	assert.Equal(t, 320, len(b.pool))
	assert.Equal(t, 10, len(b.table))
	assert.False(t, b.Ready())
}

func TestNewBank_InvalidConfig(t *testing.T) {
	table := []struct {
		name string
		conf BankConfig
	}{
		{
			name: "zero-block-size",
			conf: BankConfig{BlockSize: 0, PoolSize: 320},
		},
		{
			name: "zero-pool-size",
			conf: BankConfig{BlockSize: 32, PoolSize: 0},
		},
		{
			name: "not-multiple",
			conf: BankConfig{BlockSize: 32, PoolSize: 100},
		},
		{
			name: "table-too-large",
			conf: BankConfig{BlockSize: 1, PoolSize: 1 << 16},
		},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			assert.Panics(t, func() {
				NewBank(0, e.conf)
			})
		})
	}
}

func TestBank_Init(t *testing.T) {
	b := newTestBank()
	b.pool[5] = 7
	b.table[3] = 1

	b.Init()
	assert.True(t, b.Ready())
	assert.Equal(t, make([]uint16, 10), b.Table())
	assert.Equal(t, make([]byte, 320), b.pool)
	assert.Equal(t, uint8(0), b.Usage())

	b.Init()
	assert.True(t, b.Ready())
	assert.Equal(t, uint8(0), b.Usage())
}

func TestBank_NeedBlocks(t *testing.T) {
	table := []struct {
		name     string
		size     uint32
		expected uint32
	}{
		{name: "one-byte", size: 1, expected: 1},
		{name: "exact-block", size: 32, expected: 1},
		{name: "one-more", size: 33, expected: 2},
		{name: "three-blocks", size: 70, expected: 3},
		{name: "whole-pool", size: 320, expected: 10},
	}

	b := newTestBank()
	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			assert.Equal(t, e.expected, b.needBlocks(e.size))
		})
	}
}

func TestBank_Allocate_FromHighEnd(t *testing.T) {
	b := newTestBank()
	b.Init()

	p, err := b.Allocate(12)
	require.NoError(t, err)
	assert.Equal(t, uint32(288), p)

	p, err = b.Allocate(10)
	require.NoError(t, err)
	assert.Equal(t, uint32(256), p)

	assert.Equal(t, uint8(20), b.Usage())
	assert.Equal(t, []uint16{0, 0, 0, 0, 0, 0, 0, 0, 1, 1}, b.Table())

	err = b.Free(288)
	require.NoError(t, err)
	assert.Equal(t, uint8(10), b.Usage())
	assert.Equal(t, []uint16{0, 0, 0, 0, 0, 0, 0, 0, 1, 0}, b.Table())
}

func TestBank_Allocate_RunTaggedWithLength(t *testing.T) {
	b := newTestBank()
	b.Init()

	p, err := b.Allocate(70)
	require.NoError(t, err)
	assert.Equal(t, uint32(224), p)
	assert.Equal(t, []uint16{0, 0, 0, 0, 0, 0, 0, 3, 3, 3}, b.Table())

	p, err = b.Allocate(64)
	require.NoError(t, err)
	assert.Equal(t, uint32(160), p)
	assert.Equal(t, []uint16{0, 0, 0, 0, 0, 2, 2, 3, 3, 3}, b.Table())
	assert.Equal(t, uint8(50), b.Usage())

	err = b.Free(224)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 0, 0, 0, 0, 2, 2, 0, 0, 0}, b.Table())

	err = b.Free(160)
	require.NoError(t, err)
	assert.Equal(t, make([]uint16, 10), b.Table())
}

func TestBank_Allocate_SkipsTooSmallGap(t *testing.T) {
	b := newTestBank()
	b.Init()
	// blocks 9 and 6 are used, leaving a gap of two blocks at 7..8
	b.table[9] = 1
	b.table[6] = 1

	p, err := b.Allocate(96)
	require.NoError(t, err)
	assert.Equal(t, uint32(96), p)
	assert.Equal(t, []uint16{0, 0, 0, 3, 3, 3, 1, 0, 0, 1}, b.Table())

	p, err = b.Allocate(64)
	require.NoError(t, err)
	assert.Equal(t, uint32(224), p)
	assert.Equal(t, []uint16{0, 0, 0, 3, 3, 3, 1, 2, 2, 1}, b.Table())
}

func TestBank_Allocate_ZeroSize(t *testing.T) {
	b := newTestBank()

	p, err := b.Allocate(0)
	assert.Equal(t, ErrZeroSize, err)
	assert.Equal(t, uint32(0), p)
	assert.False(t, b.Ready())

	b.Init()
	_, err = b.Allocate(0)
	assert.Equal(t, ErrZeroSize, err)
	assert.Equal(t, make([]uint16, 10), b.Table())
}

func TestBank_Allocate_LazyInit(t *testing.T) {
	b := newTestBank()
	b.pool[0] = 9

	p, err := b.Allocate(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(288), p)
	assert.True(t, b.Ready())
	assert.Equal(t, byte(0), b.pool[0])
}

func TestBank_Allocate_Full(t *testing.T) {
	b := newTestBank()
	b.Init()

	p, err := b.Allocate(320)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), p)
	assert.Equal(t, uint8(100), b.Usage())

	before := b.Table()
	_, err = b.Allocate(1)
	assert.Equal(t, ErrOutOfSpace, err)
	assert.Equal(t, before, b.Table())
}

func TestBank_Allocate_TooLarge(t *testing.T) {
	b := newTestBank()
	b.Init()

	_, err := b.Allocate(321)
	assert.Equal(t, ErrOutOfSpace, err)
	assert.Equal(t, make([]uint16, 10), b.Table())
}

func TestBank_Free_NotReady(t *testing.T) {
	b := newTestBank()

	err := b.Free(0)
	assert.Equal(t, ErrNotReady, err)
	assert.True(t, b.Ready())
	assert.Equal(t, make([]uint16, 10), b.Table())
}

func TestBank_Free_InvalidOffset(t *testing.T) {
	b := newTestBank()
	b.Init()
	_, err := b.Allocate(32)
	require.NoError(t, err)

	err = b.Free(320)
	assert.Equal(t, ErrInvalidOffset, err)
	assert.Equal(t, uint8(10), b.Usage())
}

func TestBank_Free_AlreadyFree(t *testing.T) {
	b := newTestBank()
	b.Init()
	_, err := b.Allocate(32)
	require.NoError(t, err)

	err = b.Free(0)
	assert.NoError(t, err)
	assert.Equal(t, []uint16{0, 0, 0, 0, 0, 0, 0, 0, 0, 1}, b.Table())

	err = b.Free(288)
	assert.NoError(t, err)
	err = b.Free(288)
	assert.NoError(t, err)
	assert.Equal(t, make([]uint16, 10), b.Table())
}

func TestBank_Usage_Truncates(t *testing.T) {
	b := NewBank(0, BankConfig{BlockSize: 32, PoolSize: 32 * 3})
	b.Init()

	_, err := b.Allocate(1)
	require.NoError(t, err)
	assert.Equal(t, uint8(33), b.Usage())

	_, err = b.Allocate(1)
	require.NoError(t, err)
	assert.Equal(t, uint8(66), b.Usage())
}

func TestBank_RoundTrip(t *testing.T) {
	b := newTestBank()
	b.Init()

	sizes := []uint32{12, 70, 1, 64, 33}
	offsets := make([]uint32, 0, len(sizes))
	for _, size := range sizes {
		p, err := b.Allocate(size)
		require.NoError(t, err)
		offsets = append(offsets, p)
	}
	assert.Equal(t, uint8(90), b.Usage())

	for _, p := range offsets {
		require.NoError(t, b.Free(p))
	}
	assert.Equal(t, make([]uint16, 10), b.Table())
	assert.Equal(t, uint8(0), b.Usage())
}

func TestBank_Bytes(t *testing.T) {
	b := newTestBank()
	b.Init()

	p, err := b.Allocate(12)
	require.NoError(t, err)

	data := b.bytes(p, 12)
	assert.Equal(t, 12, len(data))
	assert.Equal(t, 12, cap(data))
	data[0] = 0xab
	assert.Equal(t, byte(0xab), b.pool[288])

	assert.Equal(t, 32, len(b.bytes(p, 100)))
	assert.Nil(t, b.bytes(320, 1))
}
